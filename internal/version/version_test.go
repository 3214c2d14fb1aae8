package version

import (
	"runtime/debug"
	"testing"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo()

	if info.Version == "" {
		t.Error("Version should not be empty")
	}
	if info.InstanceID == "" {
		t.Error("InstanceID should not be empty")
	}
	if info.Hostname == "" {
		t.Error("Hostname should not be empty")
	}
	if info.GoVersion == "" {
		t.Error("GoVersion should not be empty")
	}

	if again := GetInfo(); again.InstanceID != info.InstanceID {
		t.Errorf("InstanceID changed between calls: %s then %s", info.InstanceID, again.InstanceID)
	}
}

func TestFillFromBuildSettings(t *testing.T) {
	settings := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef"},
		{Key: "vcs.time", Value: "2026-02-21T10:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	t.Run("unstamped", func(t *testing.T) {
		i := Info{Version: unknown, GitCommit: unknown, BuildDate: unknown}
		i.fillFromBuildSettings(settings)
		if i.GitCommit != "0123456-dirty" {
			t.Errorf("GitCommit = %q", i.GitCommit)
		}
		if i.BuildDate != "2026-02-21T10:00:00Z" {
			t.Errorf("BuildDate = %q", i.BuildDate)
		}
	})

	t.Run("ldflags win", func(t *testing.T) {
		i := Info{Version: "v1.0.0", GitCommit: "abc1234", BuildDate: "2026-01-01T00:00:00Z"}
		i.fillFromBuildSettings(settings)
		if i.GitCommit != "abc1234" || i.BuildDate != "2026-01-01T00:00:00Z" {
			t.Errorf("stamped values overwritten: %+v", i)
		}
	})
}

func TestInfoString(t *testing.T) {
	info := Info{
		Version:   "1.2.3",
		GitCommit: "abc1234",
		BuildDate: "2026-02-21T10:00:00Z",
		GoVersion: "go1.25.0",
	}
	expected := "socialdash version 1.2.3 (commit: abc1234, built: 2026-02-21T10:00:00Z, go1.25.0)"
	if got := info.String(); got != expected {
		t.Errorf("String() = %q, want %q", got, expected)
	}
}

func TestInfoUserAgent(t *testing.T) {
	if got := (Info{Version: "v1.4.0"}).UserAgent("healthcheck"); got != "socialdash-healthcheck/v1.4.0" {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestInfoIsRelease(t *testing.T) {
	tests := []struct {
		version string
		release bool
	}{
		{version: "v1.4.0", release: true},
		{version: "2.0.1", release: true},
		{version: "v1.0.0-dirty", release: false},
		{version: "v2.0.0-rc.1", release: false},
		{version: "a1b2c3d", release: false},
		{version: "unknown", release: false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			if got := (Info{Version: tt.version}).IsRelease(); got != tt.release {
				t.Errorf("IsRelease(%q) = %v, want %v", tt.version, got, tt.release)
			}
		})
	}
}
