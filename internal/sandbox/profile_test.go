package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"submission-judge/internal/memory"
)

func TestProfileFor(t *testing.T) {
	t.Run("keeps gVisor when installed", func(t *testing.T) {
		profile := profileFor("production", true)
		assert.Equal(t, GVisorRuntime, profile.Runtime)
		assert.Equal(t, int64(500_000_000), profile.NanoCPUs)
	})

	t.Run("falls back to the default runtime", func(t *testing.T) {
		profile := profileFor("staging", false)
		assert.Equal(t, DefaultRuntime, profile.Runtime)
		assert.Equal(t, GVisorRuntime, Profiles["staging"].Runtime, "shared profile must not change")
	})

	t.Run("unknown profiles use production", func(t *testing.T) {
		profile := profileFor("qa", true)
		assert.Equal(t, Profiles["production"].NanoCPUs, profile.NanoCPUs)
		assert.Equal(t, 10*time.Second, profile.CompileTimeout)
	})
}

func TestProfileLimits(t *testing.T) {
	limits := Profiles["development_linux"].Limits()

	assert.Equal(t, Limits{
		RunTimeout:  2 * time.Second,
		Memory:      256 * memory.Megabyte,
		NanoCPUs:    1_000_000_000,
		PidsLimit:   64,
		OutputLimit: 64 * memory.Kilobyte,
	}, limits)
}
