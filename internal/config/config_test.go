package config

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func resetEnvironment(t *testing.T, value string) {
	t.Helper()

	envOnce = sync.Once{}
	currentEnvironment = ""

	t.Setenv("environment", value)
}

func TestGetCurrentEnvironment(t *testing.T) {
	tests := []struct {
		name            string
		want            string
		environmentFlag string
	}{{
		name:            "should default if not provided",
		want:            DefaultEnvironment,
		environmentFlag: "",
	}, {
		name:            "should return staging if environment is set to staging",
		want:            StagingEnvironment,
		environmentFlag: "staging",
	}, {
		name:            "should return production if environment is set to production",
		want:            ProductionEnvironment,
		environmentFlag: "production",
	}, {
		name:            "should ignore case and surrounding whitespace",
		want:            ProductionEnvironment,
		environmentFlag: " Production ",
	}, {
		name:            "should return development if environment is set to development",
		want:            DevelopmentEnvironment,
		environmentFlag: "development",
	}, {
		name:            "should default if value is defined but not production or staging",
		want:            DefaultEnvironment,
		environmentFlag: "invalid-value",
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetEnvironment(t, tt.environmentFlag)

			assert.Equal(t, tt.want, GetCurrentEnvironment())
		})
	}
}

func TestProfileName(t *testing.T) {
	t.Run("development is split by os", func(t *testing.T) {
		resetEnvironment(t, "development")

		assert.Equal(t, "development_"+GetCurrentOs(), ProfileName())
		assert.True(t, IsDevelopment())
	})

	t.Run("production uses the environment name", func(t *testing.T) {
		resetEnvironment(t, "production")

		assert.Equal(t, ProductionEnvironment, ProfileName())
		assert.False(t, IsDevelopment())
	})
}

func TestConfigureLogger(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	resetEnvironment(t, "production")
	ConfigureLogger()
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	resetEnvironment(t, "development")
	ConfigureLogger()
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}
