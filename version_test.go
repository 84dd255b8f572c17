package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionFromBuildInfo_LdflagsWins(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}}
	assert.Equal(t, "2.0.0", versionFromBuildInfo("2.0.0", info))
}

func TestVersionFromBuildInfo_ModuleVersion(t *testing.T) {
	info := &debug.BuildInfo{Main: debug.Module{Version: "v1.4.0"}}
	assert.Equal(t, "1.4.0", versionFromBuildInfo(devVersion, info))
}

func TestVersionFromBuildInfo_Revision(t *testing.T) {
	info := &debug.BuildInfo{
		Main: debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "5e23a4c0ffee0123456789"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	assert.Equal(t, "dev+5e23a4c0ffee-dirty", versionFromBuildInfo(devVersion, info))
}

func TestVersionFromBuildInfo_NothingRecorded(t *testing.T) {
	assert.Equal(t, devVersion, versionFromBuildInfo(devVersion, &debug.BuildInfo{}))
}
