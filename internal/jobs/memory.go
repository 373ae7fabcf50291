package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore is the in process store used in local mode, where the api and
// the consumer share one process.
type MemoryStore struct {
	mu        sync.Mutex
	jobs      map[string]memoryEntry
	retention time.Duration
	now       func() time.Time
}

func NewMemoryStore(retention time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs:      map[string]memoryEntry{},
		retention: retention,
		now:       time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, job *Job) error {
	data, err := json.Marshal(job)

	if err != nil {
		return errors.Wrap(err, "failed to encode job")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.lookup(job.ID); ok {
		return errors.Errorf("job %s already exists", job.ID)
	}

	m.jobs[job.ID] = memoryEntry{data: data}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	entry, ok := m.lookup(id)
	m.mu.Unlock()

	if !ok {
		return nil, errors.Wrapf(ErrJobNotFound, "job %s", id)
	}

	var job Job

	if err := json.Unmarshal(entry.data, &job); err != nil {
		return nil, errors.Wrapf(err, "failed to decode job %s", id)
	}

	return &job, nil
}

func (m *MemoryStore) Update(_ context.Context, job *Job) error {
	data, err := json.Marshal(job)

	if err != nil {
		return errors.Wrap(err, "failed to encode job")
	}

	entry := memoryEntry{data: data}

	if job.State.IsTerminal() && m.retention > 0 {
		entry.expiresAt = m.now().Add(m.retention)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = entry
	return nil
}

// lookup returns the live entry, dropping it once expired. Callers hold mu.
func (m *MemoryStore) lookup(id string) (memoryEntry, bool) {
	entry, ok := m.jobs[id]

	if ok && !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		delete(m.jobs, id)
		return memoryEntry{}, false
	}

	return entry, ok
}
