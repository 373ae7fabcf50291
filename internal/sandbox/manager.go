package sandbox

import (
	"context"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// containerManager bounds the number of sandbox containers alive at once and
// keeps track of them so they can be killed on shutdown.
type containerManager struct {
	// the limiter is a buffered channel sized to the number of containers that
	// can exist at any one time. Pushing blocks until a slot is released.
	limiter    chan struct{}
	containers sync.Map
	client     dockerAPI
}

func newContainerManager(client dockerAPI, maxConcurrentContainers int) *containerManager {
	if maxConcurrentContainers <= 0 {
		maxConcurrentContainers = 1
	}

	return &containerManager{
		limiter: make(chan struct{}, maxConcurrentContainers),
		client:  client,
	}
}

// acquire blocks until a container slot is available or the context is done.
func (m *containerManager) acquire(ctx context.Context) (release func(), err error) {
	select {
	case m.limiter <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-m.limiter }) }, nil
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for a sandbox container slot")
	}
}

func (m *containerManager) track(containerID string) {
	m.containers.Store(containerID, struct{}{})
}

// remove force removes the container, it is safe to call on containers that
// already exited or were killed.
func (m *containerManager) remove(containerID string) {
	defer m.containers.Delete(containerID)

	ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
	defer cancel()

	if err := m.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		log.Warn().Err(err).Str("containerID", shortID(containerID)).Msg("failed to remove sandbox container")
	}
}

// killAll kills every container still tracked, used when the process stops.
func (m *containerManager) killAll(ctx context.Context) {
	m.containers.Range(func(key, _ any) bool {
		containerID := key.(string)

		if err := m.client.ContainerKill(ctx, containerID, "SIGKILL"); err != nil {
			log.Warn().Err(err).Str("containerID", shortID(containerID)).Msg("failed to kill sandbox container")
		}

		return true
	})
}

func shortID(containerID string) string {
	if len(containerID) > 12 {
		return containerID[:12]
	}

	return containerID
}
