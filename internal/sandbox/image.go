package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// dockerfile returns the fixed build recipe of the execution image. The
// toolchain is pinned by the base image tag.
func dockerfile(compiler *LanguageCompiler) string {
	return fmt.Sprintf("FROM %s\nRUN mkdir -p %s\nWORKDIR %s\n", compiler.baseImage, MountPoint, MountPoint)
}

// buildContext packs the dockerfile into the tar stream the build api expects.
func buildContext(compiler *LanguageCompiler) (io.Reader, error) {
	content := []byte(dockerfile(compiler))

	buffer := new(bytes.Buffer)
	writer := tar.NewWriter(buffer)

	if err := writer.WriteHeader(&tar.Header{
		Name:    "Dockerfile",
		Mode:    0o644,
		Size:    int64(len(content)),
		ModTime: time.Unix(0, 0),
	}); err != nil {
		return nil, errors.Wrap(err, "failed to write dockerfile header")
	}

	if _, err := writer.Write(content); err != nil {
		return nil, errors.Wrap(err, "failed to write dockerfile")
	}

	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to close build context")
	}

	return buffer, nil
}

// EnsureImageBuilt builds the execution image once per runtime instance. An
// image that already exists under the tag is reused. A failed build is not
// remembered, so the next caller retries it.
func (r *DockerRuntime) EnsureImageBuilt(ctx context.Context) error {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()

	if r.imageBuilt {
		return nil
	}

	image := r.compiler.VirtualMachineName

	if _, _, err := r.client.ImageInspectWithRaw(ctx, image); err == nil {
		log.Info().Str("image", image).Msg("reusing existing sandbox image")
		r.imageBuilt = true
		return nil
	} else if !errdefs.IsNotFound(err) {
		return unavailable(errors.Wrapf(err, "failed to inspect image %s", image))
	}

	if err := r.buildImage(ctx); err != nil {
		return unavailable(err)
	}

	r.imageBuilt = true
	return nil
}

// InvalidateImage forces the next EnsureImageBuilt to check the image again.
func (r *DockerRuntime) InvalidateImage() {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()

	r.imageBuilt = false
}

// RebuildImage builds the image even when one already exists under the tag,
// picking up a newer base image.
func (r *DockerRuntime) RebuildImage(ctx context.Context) error {
	r.imageMu.Lock()
	defer r.imageMu.Unlock()

	r.imageBuilt = false

	if err := r.buildImage(ctx); err != nil {
		return unavailable(err)
	}

	r.imageBuilt = true
	return nil
}

func (r *DockerRuntime) buildImage(ctx context.Context) error {
	image := r.compiler.VirtualMachineName
	started := time.Now()

	log.Info().Str("image", image).Msg("building sandbox image")

	buildCtx, err := buildContext(r.compiler)

	if err != nil {
		return err
	}

	response, err := r.client.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{image},
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
		PullParent:  true,
	})

	if err != nil {
		return errors.Wrapf(err, "failed to build image %s", image)
	}

	defer response.Body.Close()

	// the build result is only known once the progress stream has been read,
	// errors are reported as messages inside it.
	if err := jsonmessage.DisplayJSONMessagesStream(response.Body, io.Discard, 0, false, nil); err != nil {
		return errors.Wrapf(err, "failed to build image %s", image)
	}

	log.Info().Str("image", image).Dur("took", time.Since(started)).Msg("built sandbox image")
	return nil
}
