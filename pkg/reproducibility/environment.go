package reproducibility

import (
	"runtime"
	"runtime/debug"
)

// NotLinked marks a tracked module missing from the binary.
const NotLinked = "not linked"

// TrackedModules lists the dependencies reported by Environment.
var TrackedModules = []string{
	"github.com/prometheus/client_golang",
	"github.com/redis/go-redis/v9",
	"github.com/rs/zerolog",
	"github.com/spf13/cobra",
	"github.com/spf13/viper",
	"github.com/thanos-io/objstore",
	"modernc.org/sqlite",
}

// Env describes the runtime of a run.
type Env struct {
	GoVersion  string
	OS         string
	Arch       string
	CPUs       int
	MainModule string
	Version    string
	Modules    map[string]string
}

// Environment collects the runtime and dependency versions of this binary.
func Environment() Env {
	env := Env{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		CPUs:      runtime.NumCPU(),
		Modules:   make(map[string]string, len(TrackedModules)),
	}
	for _, m := range TrackedModules {
		env.Modules[m] = NotLinked
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return env
	}
	env.MainModule = info.Main.Path
	env.Version = info.Main.Version
	for _, dep := range info.Deps {
		if _, tracked := env.Modules[dep.Path]; !tracked {
			continue
		}
		version := dep.Version
		if dep.Replace != nil {
			version = dep.Replace.Version
		}
		env.Modules[dep.Path] = version
	}
	return env
}
