package version

import (
	"runtime/debug"
	"strings"
)

const (
	unknownVersionFallbackConstant = "unknown"
	buildInfoDevelVersionValue     = "(devel)"
	vcsRevisionSettingKeyConstant  = "vcs.revision"
	vcsModifiedSettingKeyConstant  = "vcs.modified"
	vcsModifiedTrueValueConstant   = "true"
	develPrefixConstant            = "devel-"
	dirtySuffixConstant            = "-dirty"
	shortRevisionLengthConstant    = 12
)

// BuildInfoProvider exposes runtime build metadata.
type BuildInfoProvider interface {
	Read() (*debug.BuildInfo, bool)
}

// Detector resolves the pilot version string from build metadata.
type Detector struct {
	buildInfoProvider BuildInfoProvider
	override          string
}

// Dependencies describes the collaborators required for version detection.
// Override takes precedence over build metadata when it is set through -ldflags.
type Dependencies struct {
	BuildInfoProvider BuildInfoProvider
	Override          string
}

// NewDetector constructs a Detector with the supplied dependencies or runtime defaults.
func NewDetector(dependencies Dependencies) *Detector {
	provider := dependencies.BuildInfoProvider
	if provider == nil {
		provider = runtimeBuildInfoProvider{}
	}
	return &Detector{
		buildInfoProvider: provider,
		override:          strings.TrimSpace(dependencies.Override),
	}
}

// Detect resolves the application version using the supplied dependencies.
func Detect(dependencies Dependencies) string {
	return NewDetector(dependencies).Version()
}

// Version returns the module version, a VCS revision for development builds, or "unknown".
func (detector *Detector) Version() string {
	if detector == nil {
		return unknownVersionFallbackConstant
	}
	if len(detector.override) > 0 {
		return detector.override
	}

	buildInfo, available := detector.buildInfoProvider.Read()
	if !available || buildInfo == nil {
		return unknownVersionFallbackConstant
	}

	moduleVersion := strings.TrimSpace(buildInfo.Main.Version)
	if len(moduleVersion) > 0 && moduleVersion != buildInfoDevelVersionValue {
		return moduleVersion
	}

	if revisionVersion := revisionFromSettings(buildInfo.Settings); len(revisionVersion) > 0 {
		return revisionVersion
	}

	return unknownVersionFallbackConstant
}

func revisionFromSettings(settings []debug.BuildSetting) string {
	revision := ""
	modified := false
	for _, setting := range settings {
		switch setting.Key {
		case vcsRevisionSettingKeyConstant:
			revision = strings.TrimSpace(setting.Value)
		case vcsModifiedSettingKeyConstant:
			modified = setting.Value == vcsModifiedTrueValueConstant
		}
	}
	if len(revision) == 0 {
		return ""
	}
	if len(revision) > shortRevisionLengthConstant {
		revision = revision[:shortRevisionLengthConstant]
	}
	if modified {
		revision += dirtySuffixConstant
	}
	return develPrefixConstant + revision
}

type runtimeBuildInfoProvider struct{}

func (runtimeBuildInfoProvider) Read() (*debug.BuildInfo, bool) {
	return debug.ReadBuildInfo()
}
