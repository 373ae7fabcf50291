package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"submission-judge/internal/memory"
	"submission-judge/internal/sandbox"
)

func TestParseArgumentsDefaults(t *testing.T) {
	args, err := ParseArguments("judge", []string{})
	require.NoError(t, err)

	assert.Equal(t, ":8080", args.ListenAddress)
	assert.Equal(t, "nsq", args.QueueBackend)
	assert.Equal(t, 1, args.Workers)
	assert.Equal(t, int64(10), args.RateLimit)
	assert.Equal(t, time.Minute, args.RateWindow)
	assert.Equal(t, 24*time.Hour, args.JobRetention)
	assert.Equal(t, time.Minute, args.SqsVisibilityTimeout)
	assert.Zero(t, args.RunTimeout)
	assert.Empty(t, args.OutputLimit)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments("judge", []string{
		"-queue-backend", "sqs",
		"-sqs-queue", "https://sqs.eu-west-2.amazonaws.com/000000000000/submissions",
		"-workers", "4",
		"-run-timeout", "3s",
		"-memory-limit", "512m",
		"-rate-limit", "5",
		"two-sum.json",
	})
	require.NoError(t, err)

	assert.Equal(t, "sqs", args.QueueBackend)
	assert.Equal(t, 4, args.Workers)
	assert.Equal(t, 3*time.Second, args.RunTimeout)
	assert.Equal(t, "512m", args.MemoryLimit)
	assert.Equal(t, int64(5), args.RateLimit)
	assert.Equal(t, []string{"two-sum.json"}, args.Positional)
}

func TestParseArgumentsInvalid(t *testing.T) {
	_, err := ParseArguments("judge", []string{"-workers", "0"})
	assert.Error(t, err)

	_, err = ParseArguments("judge", []string{"-run-timeout", "soon"})
	assert.Error(t, err)
}

func TestApplyProfile(t *testing.T) {
	profile := &sandbox.Profile{
		Memory:         256 * memory.Megabyte,
		NanoCPUs:       1_000_000_000,
		PidsLimit:      32,
		CompileTimeout: 10 * time.Second,
		RunTimeout:     2 * time.Second,
		CaseBudget:     time.Minute,
	}

	args := Arguments{RunTimeout: 5 * time.Second, MemoryLimit: "1g", OutputLimit: "2m", Cpus: 0.5}
	require.NoError(t, args.ApplyProfile(profile))

	assert.Equal(t, 5*time.Second, profile.RunTimeout)
	assert.Equal(t, memory.Gigabyte, profile.Memory)
	assert.Equal(t, 2*memory.Megabyte, profile.OutputLimit)
	assert.Equal(t, int64(500_000_000), profile.NanoCPUs)
	assert.Equal(t, 10*time.Second, profile.CompileTimeout, "unset values keep the profile")
	assert.Equal(t, int64(32), profile.PidsLimit)

	assert.Error(t, Arguments{MemoryLimit: "lots"}.ApplyProfile(profile))
	assert.Error(t, Arguments{OutputLimit: "lots"}.ApplyProfile(profile))
}

func TestRedacted(t *testing.T) {
	args := Arguments{RedisPassword: "hunter2", MinioSecretKey: "secret"}.redacted()

	assert.Equal(t, "***", args.RedisPassword)
	assert.Equal(t, "***", args.MinioSecretKey)
}
