package main

import (
	"runtime/debug"
	"strings"
)

const devVersion = "dev"

// version is set at build time via ldflags. Without ldflags it falls back to
// the module version the Go toolchain recorded, and is stored in every item's
// uploaderVersion metadata.
var version = devVersion

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		version = versionFromBuildInfo(version, info)
	}
}

// versionFromBuildInfo prefers an ldflags version, then a tagged module
// version (as installed by go install), then the VCS revision of a local
// build.
func versionFromBuildInfo(current string, info *debug.BuildInfo) string {
	if current != "" && current != devVersion {
		return current
	}

	if v := info.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}

	var revision string

	dirty := false

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if revision == "" {
		return devVersion
	}

	if len(revision) > 12 {
		revision = revision[:12]
	}

	v := devVersion + "+" + revision
	if dirty {
		v += "-dirty"
	}

	return v
}
