package app

import "runtime/debug"

// Build information set with -ldflags at release time.
var (
	BuildVersion = "0.0.0-dev"
	BuildCommit  = "unknown"
	BuildDate    = "unknown"
)

// BuildInfo is the build stamp recorded in manifests.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go,omitempty"`
}

// CurrentBuild returns the build stamp of the running binary. Values not
// set with -ldflags fall back to what the Go toolchain embedded, e.g. the
// module version of a "go install" build or the VCS revision.
func CurrentBuild() BuildInfo {
	b := BuildInfo{Version: BuildVersion, Commit: BuildCommit, Date: BuildDate}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b
	}
	b.Go = info.GoVersion
	if b.Version == "0.0.0-dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "unknown" {
				b.Date = s.Value
			}
		}
	}
	return b
}
