package sandbox

import (
	"bytes"
	"sync"

	"submission-judge/internal/memory"
)

// cappedBuffer keeps at most limit bytes and silently discards the rest so a
// chatty program cannot exhaust the memory of the judge.
type cappedBuffer struct {
	mu        sync.Mutex
	buffer    bytes.Buffer
	limit     int64
	truncated bool
}

func newCappedBuffer(limit memory.Memory) *cappedBuffer {
	return &cappedBuffer{limit: limit.Bytes()}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.limit - int64(c.buffer.Len())

	if c.limit > 0 && int64(len(p)) > remaining {
		c.truncated = true

		if remaining > 0 {
			c.buffer.Write(p[:remaining])
		}

		return len(p), nil
	}

	c.buffer.Write(p)
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.buffer.String()
}

func (c *cappedBuffer) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.truncated
}
