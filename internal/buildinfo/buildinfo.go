package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Name is the binary name printed in version strings.
const Name = "stepgraph"

// Info holds structured build information suitable for JSON serialization.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
}

// GetInfo returns the current build information as a structured type.
// Fields left at their defaults by the linker are filled from the module
// build info when the toolchain recorded any.
func GetInfo() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fillFromModule(info, bi)
	}
	return info
}

// shortCommitLen matches the length of `git rev-parse --short`.
const shortCommitLen = 7

func fillFromModule(info Info, bi *debug.BuildInfo) Info {
	if bi == nil {
		return info
	}
	if info.Version == "dev" {
		if v := bi.Main.Version; v != "" && v != "(devel)" {
			info.Version = strings.TrimPrefix(v, "v")
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value[:min(len(s.Value), shortCommitLen)]
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String returns a human-readable version string.
// Example: "stepgraph v0.3.0 (commit: a1b2c3d, built: 2026-02-17T10:00:00Z)"
func (i Info) String() string {
	return fmt.Sprintf("%s v%s (commit: %s, built: %s)", Name, i.Version, i.Commit, i.Date)
}

// Short returns "stepgraph v<version>", used as the cobra version template.
func (i Info) Short() string {
	return fmt.Sprintf("%s v%s", Name, i.Version)
}
