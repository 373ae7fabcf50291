package sandbox

import (
	"time"

	"github.com/rs/zerolog/log"

	"submission-judge/internal/config"
	"submission-judge/internal/docker"
	"submission-judge/internal/memory"
)

const (
	DefaultRuntime ContainerRuntime = ""
	GVisorRuntime  ContainerRuntime = docker.GVisorRuntime
)

// ContainerRuntime is the OCI runtime docker starts sandbox containers with.
type ContainerRuntime string

func (r ContainerRuntime) String() string { return string(r) }

type Profile struct {
	// The runtime the sandbox containers are started with. gVisor is preferred
	// and silently dropped when the daemon does not have it registered.
	Runtime ContainerRuntime

	// Memory ceiling of the running program. Swap is disabled by setting the
	// swap limit to the same value.
	Memory memory.Memory

	// Memory ceiling of the compiler, which needs more than most solutions.
	CompileMemory memory.Memory

	// CPU share in units of 1e-9 CPUs.
	NanoCPUs int64

	// Process count cap, blocks fork bombs.
	PidsLimit int64

	CompileTimeout time.Duration
	RunTimeout     time.Duration

	// CaseBudget bounds the wall-clock time of the whole test case loop.
	CaseBudget time.Duration

	// OutputLimit caps the captured stdout and stderr of each execution.
	OutputLimit memory.Memory
}

// Limits returns the per-execution caps of the profile.
func (p *Profile) Limits() Limits {
	return Limits{
		RunTimeout:  p.RunTimeout,
		Memory:      p.Memory,
		NanoCPUs:    p.NanoCPUs,
		PidsLimit:   p.PidsLimit,
		OutputLimit: p.OutputLimit,
	}
}

// Profiles is a list of all currently supported profiles in the system
var Profiles = map[string]*Profile{
	"development_linux": {
		Runtime:        GVisorRuntime,
		Memory:         256 * memory.Megabyte,
		CompileMemory:  memory.Gigabyte,
		NanoCPUs:       1_000_000_000,
		PidsLimit:      64,
		CompileTimeout: 20 * time.Second,
		RunTimeout:     2 * time.Second,
		CaseBudget:     2 * time.Minute,
		OutputLimit:    64 * memory.Kilobyte,
	},
	"development_windows": {
		Runtime:        DefaultRuntime,
		Memory:         256 * memory.Megabyte,
		CompileMemory:  memory.Gigabyte,
		NanoCPUs:       1_000_000_000,
		PidsLimit:      64,
		CompileTimeout: 20 * time.Second,
		RunTimeout:     2 * time.Second,
		CaseBudget:     2 * time.Minute,
		OutputLimit:    64 * memory.Kilobyte,
	},
	"staging": {
		Runtime:        GVisorRuntime,
		Memory:         256 * memory.Megabyte,
		CompileMemory:  512 * memory.Megabyte,
		NanoCPUs:       1_000_000_000,
		PidsLimit:      32,
		CompileTimeout: 10 * time.Second,
		RunTimeout:     2 * time.Second,
		CaseBudget:     time.Minute,
		OutputLimit:    64 * memory.Kilobyte,
	},
	"production": {
		Runtime:        GVisorRuntime,
		Memory:         256 * memory.Megabyte,
		CompileMemory:  512 * memory.Megabyte,
		NanoCPUs:       500_000_000,
		PidsLimit:      32,
		CompileTimeout: 10 * time.Second,
		RunTimeout:     2 * time.Second,
		CaseBudget:     time.Minute,
		OutputLimit:    64 * memory.Kilobyte,
	},
}

// GetProfileForMachine returns a copy of the profile for the current
// environment, falling back to the default runtime if gVisor is missing.
func GetProfileForMachine() *Profile {
	return profileFor(config.ProfileName(), docker.IsGvisorInstalled())
}

func profileFor(name string, gvisorInstalled bool) *Profile {
	base, ok := Profiles[name]

	if !ok {
		base = Profiles["production"]
	}

	profile := *base

	if profile.Runtime == GVisorRuntime && !gvisorInstalled {
		log.Warn().Str("profile", name).Msg("gVisor runtime is not installed, using the default runtime")
		profile.Runtime = DefaultRuntime
	}

	return &profile
}
