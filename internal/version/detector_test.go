package version_test

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/pilot/internal/version"
)

type stubBuildInfoProvider struct {
	info      *debug.BuildInfo
	available bool
}

func (provider stubBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	if !provider.available {
		return nil, false
	}
	return provider.info, true
}

func TestDetectorVersion(testInstance *testing.T) {
	testCases := []struct {
		name         string
		dependencies version.Dependencies
		expected     string
	}{
		{
			name: "module_version",
			dependencies: version.Dependencies{
				BuildInfoProvider: stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, available: true},
			},
			expected: "v1.2.3",
		},
		{
			name: "override_wins",
			dependencies: version.Dependencies{
				BuildInfoProvider: stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "v1.2.3"}}, available: true},
				Override:          " v2.0.0 ",
			},
			expected: "v2.0.0",
		},
		{
			name: "devel_revision",
			dependencies: version.Dependencies{
				BuildInfoProvider: stubBuildInfoProvider{
					info: &debug.BuildInfo{
						Main: debug.Module{Version: "(devel)"},
						Settings: []debug.BuildSetting{
							{Key: "vcs.revision", Value: "4f1c2d9e8b7a6f5e4d3c"},
							{Key: "vcs.modified", Value: "false"},
						},
					},
					available: true,
				},
			},
			expected: "devel-4f1c2d9e8b7a",
		},
		{
			name: "dirty_revision",
			dependencies: version.Dependencies{
				BuildInfoProvider: stubBuildInfoProvider{
					info: &debug.BuildInfo{
						Main: debug.Module{Version: "(devel)"},
						Settings: []debug.BuildSetting{
							{Key: "vcs.revision", Value: "abc123"},
							{Key: "vcs.modified", Value: "true"},
						},
					},
					available: true,
				},
			},
			expected: "devel-abc123-dirty",
		},
		{
			name: "devel_without_revision",
			dependencies: version.Dependencies{
				BuildInfoProvider: stubBuildInfoProvider{info: &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, available: true},
			},
			expected: "unknown",
		},
		{
			name:         "build_info_unavailable",
			dependencies: version.Dependencies{BuildInfoProvider: stubBuildInfoProvider{}},
			expected:     "unknown",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, version.Detect(testCase.dependencies))
		})
	}
}

func TestNilDetectorReportsUnknown(testInstance *testing.T) {
	var detector *version.Detector
	require.Equal(testInstance, "unknown", detector.Version())
}
