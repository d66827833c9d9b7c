package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithExecutionFlagsStoresNormalizedValues(testInstance *testing.T) {
	accessor := NewCommandContextAccessor()
	quietTasks := []string{"server"}
	flags := ExecutionFlags{
		Raw:         true,
		RawSet:      true,
		QuietTasks:  quietTasks,
		TaskFile:    "  ci/Pilotfile.yaml ",
		TaskFileSet: true,
	}

	enriched := accessor.WithExecutionFlags(context.Background(), flags)
	quietTasks[0] = "mutated"

	retrieved, exists := accessor.ExecutionFlags(enriched)
	require.True(testInstance, exists)
	require.Equal(testInstance, ExecutionFlags{
		Raw:         true,
		RawSet:      true,
		QuietTasks:  []string{"server"},
		TaskFile:    "ci/Pilotfile.yaml",
		TaskFileSet: true,
	}, retrieved)
}

func TestExecutionFlagsMissingFromContext(testInstance *testing.T) {
	accessor := NewCommandContextAccessor()

	_, exists := accessor.ExecutionFlags(context.Background())
	require.False(testInstance, exists)

	enriched := accessor.WithLogLevel(context.Background(), "info")
	_, exists = accessor.ExecutionFlags(enriched)
	require.False(testInstance, exists)
}

func TestExecutionFlagsAnySet(testInstance *testing.T) {
	testCases := []struct {
		name     string
		flags    ExecutionFlags
		expected bool
	}{
		{name: "empty", flags: ExecutionFlags{}},
		{name: "values_without_set_markers", flags: ExecutionFlags{Raw: true, TaskFile: "Pilotfile.yaml"}},
		{name: "raw", flags: ExecutionFlags{RawSet: true}, expected: true},
		{name: "timestamp", flags: ExecutionFlags{TimestampSet: true}, expected: true},
		{name: "quiet", flags: ExecutionFlags{QuietTasks: []string{"server"}}, expected: true},
		{name: "metrics_file", flags: ExecutionFlags{MetricsFileSet: true}, expected: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.flags.AnySet())
		})
	}
}

func TestStringContextValues(testInstance *testing.T) {
	accessor := NewCommandContextAccessor()
	base := context.Background()

	enriched := accessor.WithLogLevel(base, " debug ")
	enriched = accessor.WithRunIdentifier(enriched, "0b7c1f2e")
	enriched = accessor.WithConfigurationFilePath(enriched, "/etc/pilot/config.yaml")

	logLevel, logLevelExists := accessor.LogLevel(enriched)
	require.True(testInstance, logLevelExists)
	require.Equal(testInstance, "debug", logLevel)

	runIdentifier, runIdentifierExists := accessor.RunIdentifier(enriched)
	require.True(testInstance, runIdentifierExists)
	require.Equal(testInstance, "0b7c1f2e", runIdentifier)

	configurationFilePath, configurationExists := accessor.ConfigurationFilePath(enriched)
	require.True(testInstance, configurationExists)
	require.Equal(testInstance, "/etc/pilot/config.yaml", configurationFilePath)

	unchanged := accessor.WithLogLevel(base, "   ")
	_, logLevelExists = accessor.LogLevel(unchanged)
	require.False(testInstance, logLevelExists)
	require.Equal(testInstance, base, accessor.WithRunIdentifier(base, ""))
}
