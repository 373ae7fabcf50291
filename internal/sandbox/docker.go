package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"submission-judge/internal/diagnostics"
	"submission-judge/internal/memory"
	"submission-judge/internal/sandbox/unix"
)

const (
	removeTimeout      = 10 * time.Second
	outputDrainTimeout = 2 * time.Second
	compileOutputLimit = 256 * memory.Kilobyte
)

// dockerAPI is the subset of the docker client the runtime uses.
type dockerAPI interface {
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerAttach(ctx context.Context, container string, options container.AttachOptions) (types.HijackedResponse, error)
	ContainerStart(ctx context.Context, container string, options container.StartOptions) error
	ContainerWait(ctx context.Context, container string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerKill(ctx context.Context, container, signal string) error
	ContainerInspect(ctx context.Context, container string) (types.ContainerJSON, error)
	ContainerRemove(ctx context.Context, container string, options container.RemoveOptions) error
	Close() error
}

var _ dockerAPI = (*client.Client)(nil)

type DockerConfig struct {
	// The toolchain the runtime builds and runs, defaults to C++.
	Language Language
	// Resource limits and timeouts, defaults to the profile of the machine.
	Profile *Profile
	// The maximum number of sandbox containers alive at once across all
	// consumers sharing this runtime.
	MaxConcurrentContainers int
	// The uid:gid sandbox processes run as. Defaults to the current user so the
	// compiler can write into the mounted scratch directory.
	User string
}

// DockerRuntime executes every compile and every test case in a fresh
// container started from a single lazily built image.
type DockerRuntime struct {
	client   dockerAPI
	compiler *LanguageCompiler
	profile  *Profile
	user     string
	manager  *containerManager

	imageMu    sync.Mutex
	imageBuilt bool
}

var _ Runtime = (*DockerRuntime)(nil)

// NewDockerRuntime creates a runtime on top of a docker client. The image is
// not built until EnsureImageBuilt is called.
func NewDockerRuntime(dockerClient *client.Client, config *DockerConfig) (*DockerRuntime, error) {
	if dockerClient == nil {
		return nil, errors.New("docker client is required")
	}

	return newDockerRuntime(dockerClient, config)
}

func newDockerRuntime(api dockerAPI, config *DockerConfig) (*DockerRuntime, error) {
	if config == nil {
		config = &DockerConfig{}
	}

	language := config.Language

	if language == "" {
		language = Cpp
	}

	if !Judged(language) {
		return nil, errors.Errorf("language %s has no sandbox toolchain", language)
	}

	profile := config.Profile

	if profile == nil {
		profile = GetProfileForMachine()
	}

	user := config.User

	if user == "" {
		user = currentUser()
	}

	return &DockerRuntime{
		client:   api,
		compiler: Compilers[language],
		profile:  profile,
		user:     user,
		manager:  newContainerManager(api, config.MaxConcurrentContainers),
	}, nil
}

func currentUser() string {
	uid, gid := os.Getuid(), os.Getgid()

	if uid < 0 || gid < 0 {
		return ""
	}

	return fmt.Sprintf("%d:%d", uid, gid)
}

// Close kills any container still running and releases the docker client.
func (r *DockerRuntime) Close(ctx context.Context) error {
	r.manager.killAll(ctx)
	return r.client.Close()
}

// Compile clears the previous binary, writes the source and compiles it in a
// fresh container bounded by the compile timeout of the profile.
func (r *DockerRuntime) Compile(ctx context.Context, workDir string, source string) (*CompileOutcome, error) {
	binaryPath := filepath.Join(workDir, r.compiler.BinaryFile)

	if err := os.Remove(binaryPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to clear previous binary")
	}

	sourcePath := filepath.Join(workDir, r.compiler.SourceFile)

	if err := os.WriteFile(sourcePath, []byte(source), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write source file")
	}

	result, err := r.run(ctx, containerSpec{
		cmd:         r.compiler.CompileCommand(),
		workDir:     workDir,
		timeout:     r.profile.CompileTimeout,
		memory:      r.profile.CompileMemory,
		nanoCPUs:    r.profile.NanoCPUs,
		pidsLimit:   r.profile.PidsLimit,
		outputLimit: compileOutputLimit,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to run compiler")
	}

	outcome := &CompileOutcome{
		TimedOut: result.timedOut,
		Output:   result.stdout + result.stderr,
		Duration: result.duration,
	}

	switch {
	case result.timedOut:
		outcome.Diagnostics = []diagnostics.Diagnostic{{
			Severity: diagnostics.SeverityError,
			Message:  fmt.Sprintf("compilation exceeded the %s time limit", r.profile.CompileTimeout),
		}}
	case result.exitCode != 0:
		outcome.Diagnostics = diagnostics.ForFailure(r.compiler.Tool, outcome.Output)
	default:
		if _, statErr := os.Stat(binaryPath); statErr != nil {
			outcome.Diagnostics = diagnostics.ForFailure(r.compiler.Tool, outcome.Output+"\ncompiler produced no executable")
			break
		}

		outcome.Success = true
		outcome.Diagnostics = diagnostics.Parse(r.compiler.Tool, outcome.Output)
	}

	log.Debug().
		Bool("success", outcome.Success).
		Bool("timedOut", outcome.TimedOut).
		Int("diagnostics", len(outcome.Diagnostics)).
		Dur("took", outcome.Duration).
		Msg("compiled submission")

	return outcome, nil
}

// Execute runs the compiled binary against stdin in a fresh container with the
// scratch directory mounted read only.
func (r *DockerRuntime) Execute(ctx context.Context, workDir string, stdin string, limits Limits) (*ExecutionOutcome, error) {
	limits = r.withDefaults(limits)

	result, err := r.run(ctx, containerSpec{
		cmd:         r.compiler.RunCommand(),
		workDir:     workDir,
		readOnly:    true,
		stdin:       &stdin,
		timeout:     limits.RunTimeout,
		memory:      limits.Memory,
		nanoCPUs:    limits.NanoCPUs,
		pidsLimit:   limits.PidsLimit,
		outputLimit: limits.OutputLimit,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to run submission")
	}

	outcome := &ExecutionOutcome{
		Stdout:    result.stdout,
		Stderr:    result.stderr,
		ExitCode:  result.exitCode,
		Duration:  result.duration,
		Truncated: result.stdoutTruncated,
	}

	switch {
	case result.timedOut:
		outcome.Status = ExecutionTimeout
		outcome.Message = fmt.Sprintf("exceeded the %s time limit", limits.RunTimeout)
	case result.oomKilled:
		outcome.Status = ExecutionRuntimeError
		outcome.Message = memory.LimitExceeded.Error()
	case result.stdoutTruncated:
		outcome.Status = ExecutionRuntimeError
		outcome.Message = fmt.Sprintf("%s: wrote more than %s to stdout", ErrOutputLimitExceeded, limits.OutputLimit)
	case result.exitCode != 0:
		outcome.Status = ExecutionRuntimeError
		outcome.Message = fmt.Sprintf("process exited with code %d", result.exitCode)
	default:
		outcome.Status = ExecutionSuccess
	}

	return outcome, nil
}

func (r *DockerRuntime) withDefaults(limits Limits) Limits {
	defaults := r.profile.Limits()

	if limits.RunTimeout <= 0 {
		limits.RunTimeout = defaults.RunTimeout
	}

	if limits.Memory <= 0 {
		limits.Memory = defaults.Memory
	}

	if limits.NanoCPUs <= 0 {
		limits.NanoCPUs = defaults.NanoCPUs
	}

	if limits.PidsLimit <= 0 {
		limits.PidsLimit = defaults.PidsLimit
	}

	if limits.OutputLimit <= 0 {
		limits.OutputLimit = defaults.OutputLimit
	}

	return limits
}

type containerSpec struct {
	cmd      []string
	workDir  string
	readOnly bool
	// nil when the process gets no standard input.
	stdin       *string
	timeout     time.Duration
	memory      memory.Memory
	nanoCPUs    int64
	pidsLimit   int64
	outputLimit memory.Memory
}

type containerResult struct {
	stdout          string
	stderr          string
	stdoutTruncated bool
	exitCode        int
	timedOut        bool
	oomKilled       bool
	duration        time.Duration
}

// run creates, starts and waits for a single sandbox container. The container
// is always removed before returning. Exceeding the timeout kills the
// container and is reported in the result, not as an error.
func (r *DockerRuntime) run(ctx context.Context, spec containerSpec) (*containerResult, error) {
	release, err := r.manager.acquire(ctx)

	if err != nil {
		return nil, err
	}

	defer release()

	source, err := unix.BindSource(spec.workDir)

	if err != nil {
		return nil, err
	}

	bind := fmt.Sprintf("%s:%s", source, MountPoint)

	if spec.readOnly {
		bind += ":ro"
	}

	hasStdin := spec.stdin != nil
	pidsLimit := spec.pidsLimit

	created, err := r.client.ContainerCreate(ctx,
		&container.Config{
			Image:           r.compiler.VirtualMachineName,
			Cmd:             spec.cmd,
			User:            r.user,
			WorkingDir:      MountPoint,
			NetworkDisabled: true,
			AttachStdin:     hasStdin,
			OpenStdin:       hasStdin,
			StdinOnce:       hasStdin,
			AttachStdout:    true,
			AttachStderr:    true,
		},
		&container.HostConfig{
			Runtime:     r.profile.Runtime.String(),
			NetworkMode: "none",
			Binds:       []string{bind},
			CapDrop:     []string{"ALL"},
			SecurityOpt: []string{"no-new-privileges"},
			Resources: container.Resources{
				Memory:     spec.memory.Bytes(),
				MemorySwap: spec.memory.Bytes(),
				NanoCPUs:   spec.nanoCPUs,
				PidsLimit:  &pidsLimit,
			},
		},
		nil,
		nil,
		"",
	)

	if err != nil {
		return nil, errors.Wrap(err, "failed to create container")
	}

	r.manager.track(created.ID)
	defer r.manager.remove(created.ID)

	attach, err := r.client.ContainerAttach(ctx, created.ID, container.AttachOptions{
		Stream: true,
		Stdin:  hasStdin,
		Stdout: true,
		Stderr: true,
	})

	if err != nil {
		return nil, errors.Wrap(err, "failed to attach to container")
	}

	defer attach.Close()

	stdout := newCappedBuffer(spec.outputLimit)
	stderr := newCappedBuffer(spec.outputLimit)
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
	}()

	if err := r.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, errors.Wrap(err, "failed to start container")
	}

	if hasStdin {
		go func() {
			_, _ = io.Copy(attach.Conn, strings.NewReader(*spec.stdin))
			_ = attach.CloseWrite()
		}()
	}

	runCtx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	started := time.Now()
	waitC, errC := r.client.ContainerWait(runCtx, created.ID, container.WaitConditionNotRunning)
	result := &containerResult{}
	exited := false

	select {
	case status := <-waitC:
		if status.Error != nil {
			return nil, errors.Errorf("failed waiting for container: %s", status.Error.Message)
		}

		exited = true
		result.exitCode = int(status.StatusCode)
	case err := <-errC:
		if runCtx.Err() == nil {
			return nil, errors.Wrap(err, "failed waiting for container")
		}
	case <-runCtx.Done():
	}

	result.duration = time.Since(started)

	if !exited {
		if ctx.Err() != nil {
			return nil, errors.Wrap(ctx.Err(), "sandbox execution cancelled")
		}

		result.timedOut = true
		r.kill(created.ID)
	}

	select {
	case <-drained:
	case <-time.After(outputDrainTimeout):
		log.Warn().Str("containerID", shortID(created.ID)).Msg("gave up waiting for container output")
	}

	result.stdout = stdout.String()
	result.stderr = stderr.String()
	result.stdoutTruncated = stdout.Truncated()

	if exited && result.exitCode != 0 {
		result.oomKilled = r.oomKilled(created.ID)
	}

	return result, nil
}

func (r *DockerRuntime) kill(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := r.client.ContainerKill(ctx, containerID, "SIGKILL"); err != nil && !errdefs.IsNotFound(err) {
		log.Warn().Err(err).Str("containerID", shortID(containerID)).Msg("failed to kill timed out container")
	}
}

func (r *DockerRuntime) oomKilled(containerID string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	info, err := r.client.ContainerInspect(ctx, containerID)

	if err != nil {
		log.Warn().Err(err).Str("containerID", shortID(containerID)).Msg("failed to inspect exited container")
		return false
	}

	return info.ContainerJSONBase != nil && info.State != nil && info.State.OOMKilled
}
