package docker

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type dockerDaemonConfig struct {
	Runtimes map[string]struct {
		Path string `json:"path"`
	} `json:"runtimes"`
}

const (
	GVisorRuntime = "runsc"

	DaemonConfigPath = "/etc/docker/daemon.json"
)

// IsGvisorInstalled reports if the local docker daemon has the gVisor runtime
// registered, in which case sandbox containers are started under it.
func IsGvisorInstalled() bool {
	return HasRuntime(DaemonConfigPath, GVisorRuntime)
}

// HasRuntime reads the daemon configuration at the given path and reports if
// the named container runtime is registered.
func HasRuntime(daemonConfigPath, runtime string) bool {
	if _, err := os.Stat(daemonConfigPath); errors.Is(err, os.ErrNotExist) {
		return false
	}

	fileBytes, err := os.ReadFile(daemonConfigPath)

	if err != nil {
		log.Err(err).Str("path", daemonConfigPath).Msg("failed to read daemon file but it exists")
		return false
	}

	daemon := &dockerDaemonConfig{}

	if err := json.Unmarshal(fileBytes, daemon); err != nil {
		log.Warn().Err(err).Str("path", daemonConfigPath).Msg("daemon file is not valid json")
		return false
	}

	_, ok := daemon.Runtimes[runtime]
	return ok
}
