package sandbox

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
)

// fakeRun is what a scripted container does once started.
type fakeRun struct {
	stdout   string
	stderr   string
	exitCode int
	hang     bool
	oom      bool
}

// fakeScript decides the behaviour of a container from its command, the
// standard input it received and the host directory mounted at /sandbox.
type fakeScript func(cmd []string, stdin []byte, mountDir string) fakeRun

type fakeContainer struct {
	id     string
	config *container.Config
	host   *container.HostConfig
	server net.Conn

	done     chan container.WaitResponse
	killed   chan struct{}
	killOnce sync.Once
	doneOnce sync.Once
	oom      bool
}

func (c *fakeContainer) finish(code int) {
	c.doneOnce.Do(func() {
		c.done <- container.WaitResponse{StatusCode: int64(code)}
	})
}

func (c *fakeContainer) mountDir() string {
	return strings.SplitN(c.host.Binds[0], ":", 2)[0]
}

// fakeDocker implements dockerAPI in memory. Attached streams are real tcp
// connections so half closing stdin behaves like the docker daemon.
type fakeDocker struct {
	mu sync.Mutex

	images      map[string]bool
	inspectErr  error
	buildErr    error
	buildStream string
	builds      int

	script     fakeScript
	containers map[string]*fakeContainer
	created    []*fakeContainer
	removed    []string
	killed     []string
}

func newFakeDocker(script fakeScript) *fakeDocker {
	return &fakeDocker{
		images:      map[string]bool{},
		buildStream: `{"stream":"Step 1/3 : FROM gcc:13\n"}` + "\n" + `{"stream":"Successfully built 1234\n"}` + "\n",
		script:      script,
		containers:  map[string]*fakeContainer{},
	}
}

func (f *fakeDocker) ImageInspectWithRaw(_ context.Context, image string) (types.ImageInspect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inspectErr != nil {
		return types.ImageInspect{}, nil, f.inspectErr
	}

	if f.images[image] {
		return types.ImageInspect{ID: image}, nil, nil
	}

	return types.ImageInspect{}, nil, errdefs.NotFound(errors.Errorf("no such image: %s", image))
}

func (f *fakeDocker) ImageBuild(_ context.Context, _ io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.builds++

	if f.buildErr != nil {
		return types.ImageBuildResponse{}, f.buildErr
	}

	if !strings.Contains(f.buildStream, `"error"`) {
		for _, tag := range options.Tags {
			f.images[tag] = true
		}
	}

	return types.ImageBuildResponse{Body: io.NopCloser(strings.NewReader(f.buildStream))}, nil
}

func (f *fakeDocker) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig,
	_ *network.NetworkingConfig, _ *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c := &fakeContainer{
		id:     fmt.Sprintf("container-%03d", len(f.created)+1),
		config: config,
		host:   hostConfig,
		done:   make(chan container.WaitResponse, 1),
		killed: make(chan struct{}),
	}

	f.containers[c.id] = c
	f.created = append(f.created, c)

	return container.CreateResponse{ID: c.id}, nil
}

func (f *fakeDocker) get(id string) (*fakeContainer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	c, ok := f.containers[id]

	if !ok {
		return nil, errdefs.NotFound(errors.Errorf("no such container: %s", id))
	}

	return c, nil
}

func tcpPair() (net.Conn, net.Conn, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")

	if err != nil {
		return nil, nil, err
	}

	defer listener.Close()

	accepted := make(chan net.Conn, 1)

	go func() {
		conn, _ := listener.Accept()
		accepted <- conn
	}()

	client, err := net.Dial("tcp", listener.Addr().String())

	if err != nil {
		return nil, nil, err
	}

	return client, <-accepted, nil
}

func (f *fakeDocker) ContainerAttach(_ context.Context, id string, _ container.AttachOptions) (types.HijackedResponse, error) {
	c, err := f.get(id)

	if err != nil {
		return types.HijackedResponse{}, err
	}

	client, server, err := tcpPair()

	if err != nil {
		return types.HijackedResponse{}, err
	}

	c.server = server

	return types.HijackedResponse{Conn: client, Reader: bufio.NewReader(client)}, nil
}

func (f *fakeDocker) ContainerStart(_ context.Context, id string, _ container.StartOptions) error {
	c, err := f.get(id)

	if err != nil {
		return err
	}

	go func() {
		var stdin []byte

		if c.config.OpenStdin {
			stdin, _ = io.ReadAll(c.server)
		}

		run := f.script(c.config.Cmd, stdin, c.mountDir())

		if run.hang {
			<-c.killed
			_ = c.server.Close()
			c.finish(137)
			return
		}

		if run.stdout != "" {
			_, _ = stdcopy.NewStdWriter(c.server, stdcopy.Stdout).Write([]byte(run.stdout))
		}

		if run.stderr != "" {
			_, _ = stdcopy.NewStdWriter(c.server, stdcopy.Stderr).Write([]byte(run.stderr))
		}

		_ = c.server.Close()

		f.mu.Lock()
		c.oom = run.oom
		f.mu.Unlock()

		c.finish(run.exitCode)
	}()

	return nil
}

func (f *fakeDocker) ContainerWait(ctx context.Context, id string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	waitC := make(chan container.WaitResponse, 1)
	errC := make(chan error, 1)

	c, err := f.get(id)

	if err != nil {
		errC <- err
		return waitC, errC
	}

	go func() {
		select {
		case status := <-c.done:
			waitC <- status
		case <-ctx.Done():
			errC <- ctx.Err()
		}
	}()

	return waitC, errC
}

func (f *fakeDocker) ContainerKill(_ context.Context, id string, _ string) error {
	c, err := f.get(id)

	if err != nil {
		return err
	}

	f.mu.Lock()
	f.killed = append(f.killed, id)
	f.mu.Unlock()

	c.killOnce.Do(func() { close(c.killed) })
	return nil
}

func (f *fakeDocker) ContainerInspect(_ context.Context, id string) (types.ContainerJSON, error) {
	c, err := f.get(id)

	if err != nil {
		return types.ContainerJSON{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return types.ContainerJSON{
		ContainerJSONBase: &types.ContainerJSONBase{
			ID:    id,
			State: &types.ContainerState{OOMKilled: c.oom},
		},
	}, nil
}

func (f *fakeDocker) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.removed = append(f.removed, id)

	if c, ok := f.containers[id]; ok {
		c.killOnce.Do(func() { close(c.killed) })
		delete(f.containers, id)
	}

	return nil
}

func (f *fakeDocker) Close() error { return nil }

func (f *fakeDocker) createdContainers() []*fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*fakeContainer{}, f.created...)
}

func (f *fakeDocker) removedContainers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string{}, f.removed...)
}

func (f *fakeDocker) killedContainers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string{}, f.killed...)
}
