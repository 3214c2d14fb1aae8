// Package version carries build metadata for the socialdash binaries.
//
// Release builds stamp the variables below with -ldflags, e.g.
//
//	-X socialdash/internal/version.Version=v1.2.0
//
// Anything left unstamped falls back to the VCS data the Go toolchain embeds.
package version

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

const unknown = "unknown"

var (
	Version   = unknown
	BuildDate = unknown
	GitCommit = unknown
)

// Info describes one running process.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns the process metadata. The instance id is generated on the
// first call and stays fixed for the life of the process.
func GetInfo() Info {
	once.Do(func() {
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			GoVersion:  runtime.Version(),
			InstanceID: uuid.NewString(),
			Hostname:   getHostname(),
		}
		if bi, ok := debug.ReadBuildInfo(); ok {
			info.fillFromBuildSettings(bi.Settings)
		}
	})
	return info
}

// fillFromBuildSettings covers plain `go build` binaries that were not
// stamped with ldflags.
func (i *Info) fillFromBuildSettings(settings []debug.BuildSetting) {
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if i.GitCommit == unknown && len(s.Value) >= 7 {
				i.GitCommit = s.Value[:7]
			}
		case "vcs.time":
			if i.BuildDate == unknown {
				i.BuildDate = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty && i.GitCommit != unknown && i.Version == unknown {
		i.GitCommit += "-dirty"
	}
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return unknown
	}
	return hostname
}

// IsRelease reports whether Version is a tagged semver without a prerelease
// suffix. Commit hashes and -dirty builds are not releases.
func (i Info) IsRelease() bool {
	v, err := semver.NewVersion(i.Version)
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}

// UserAgent identifies outbound requests made by one of our binaries.
func (i Info) UserAgent(component string) string {
	return fmt.Sprintf("socialdash-%s/%s", component, i.Version)
}

func (i Info) String() string {
	return fmt.Sprintf("socialdash version %s (commit: %s, built: %s, %s)", i.Version, i.GitCommit, i.BuildDate, i.GoVersion)
}
