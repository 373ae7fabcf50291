package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var currentEnvironment = ""

const (
	DefaultEnvironment     = DevelopmentEnvironment
	DevelopmentEnvironment = "development"
	StagingEnvironment     = "staging"
	ProductionEnvironment  = "production"
)

// envOnce is used to ensure concurrent tests only pull the value once at startup. It
// also keeps the value stable if the variable is overwritten during runtime.
var envOnce sync.Once

// GetCurrentEnvironment returns the environment the process is running in, read
// from the `environment` variable. Unknown or empty values fall back to development.
func GetCurrentEnvironment() string {
	envOnce.Do(func() {
		currentEnvironment = strings.ToLower(strings.TrimSpace(os.Getenv("environment")))

		for _, s := range []string{StagingEnvironment, ProductionEnvironment, DevelopmentEnvironment} {
			if currentEnvironment == s {
				return
			}
		}

		currentEnvironment = DefaultEnvironment
	})

	return currentEnvironment
}

// IsDevelopment reports if the process is running in the development environment.
func IsDevelopment() bool {
	return GetCurrentEnvironment() == DevelopmentEnvironment
}

// GetCurrentOs returns windows or linux, defaulting to linux for every other
// platform (e.g. mac) since docker runs a linux vm there.
func GetCurrentOs() string {
	if strings.EqualFold(runtime.GOOS, "windows") {
		return "windows"
	}

	return "linux"
}

// ProfileName is the sandbox profile key for the current environment. Development
// is split by os since gVisor is not available on windows hosts.
func ProfileName() string {
	env := GetCurrentEnvironment()

	if env == DevelopmentEnvironment {
		return fmt.Sprintf("%s_%s", env, GetCurrentOs())
	}

	return env
}

// ConfigureLogger writes human readable logs in development and json
// everywhere else.
func ConfigureLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if IsDevelopment() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}
