// Package appver reports the build-time version stamp cmd/emnes prints for
// -version, falling back to VCS info embedded by the Go toolchain when no
// -ldflags override was given.
package appver

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Version, Commit and BuildTime are overridden at build time via
// -ldflags "-X github.com/xorllc/emnes/internal/appver.Version=...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the full set of build facts -version reports.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// Get collects Info, filling in Commit/BuildTime from the Go toolchain's
// embedded VCS metadata when -ldflags didn't set them explicitly.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "unknown" {
					info.Commit = setting.Value
				}
			case "vcs.time":
				if info.BuildTime == "unknown" {
					info.BuildTime = setting.Value
				}
			}
		}
	}

	return info
}

// String renders a single-line version string for -version, e.g.
// "emnes dev (commit a1b2c3d) built 2026-08-01 12:00:00 with go1.23.4 for linux/amd64".
func String() string {
	info := Get()

	s := fmt.Sprintf("emnes %s", info.Version)
	if info.Commit != "unknown" {
		commit := info.Commit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		s += fmt.Sprintf(" (commit %s)", commit)
	}
	if info.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, info.BuildTime); err == nil {
			s += fmt.Sprintf(" built %s", t.Format("2006-01-02 15:04:05"))
		} else {
			s += fmt.Sprintf(" built %s", info.BuildTime)
		}
	}
	s += fmt.Sprintf(" with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)
	return s
}
