package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "judge:job:"

// RedisStore keeps jobs as json values. Terminal jobs expire after the
// retention window, live ones never do.
type RedisStore struct {
	client    redis.Cmdable
	retention time.Duration
}

func NewRedisStore(client redis.Cmdable, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

func jobKey(id string) string {
	return keyPrefix + id
}

func (r *RedisStore) Create(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)

	if err != nil {
		return errors.Wrap(err, "failed to encode job")
	}

	created, err := r.client.SetNX(ctx, jobKey(job.ID), data, 0).Result()

	if err != nil {
		return errors.Wrapf(err, "failed to create job %s", job.ID)
	}

	if !created {
		return errors.Errorf("job %s already exists", job.ID)
	}

	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	data, err := r.client.Get(ctx, jobKey(id)).Bytes()

	if errors.Is(err, redis.Nil) {
		return nil, errors.Wrapf(ErrJobNotFound, "job %s", id)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job %s", id)
	}

	var job Job

	if err := json.Unmarshal(data, &job); err != nil {
		return nil, errors.Wrapf(err, "failed to decode job %s", id)
	}

	return &job, nil
}

func (r *RedisStore) Update(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)

	if err != nil {
		return errors.Wrap(err, "failed to encode job")
	}

	var ttl time.Duration

	if job.State.IsTerminal() {
		ttl = r.retention
	}

	if err := r.client.Set(ctx, jobKey(job.ID), data, ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to update job %s", job.ID)
	}

	return nil
}
