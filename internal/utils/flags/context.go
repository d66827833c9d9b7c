package flags

import "github.com/spf13/cobra"

const (
	// RawFlagName exposes the raw terminal mode flag name.
	RawFlagName = "raw"
	// RawFlagShorthand provides the shorthand for the raw flag.
	RawFlagShorthand = "r"
	// RawFlagUsage describes the raw flag purpose.
	RawFlagUsage = "Attach shell steps to the terminal instead of prefixing their output"
	// TimestampFlagName exposes the timestamp flag name.
	TimestampFlagName = "timestamp"
	// TimestampFlagShorthand provides the shorthand for the timestamp flag.
	TimestampFlagShorthand = "t"
	// TimestampFlagUsage describes the timestamp flag purpose.
	TimestampFlagUsage = "Prefix traces and output lines with the wall clock time"
	// QuietFlagName exposes the quiet flag name.
	QuietFlagName = "quiet"
	// QuietFlagShorthand provides the shorthand for the quiet flag.
	QuietFlagShorthand = "q"
	// QuietFlagUsage describes the quiet flag purpose.
	QuietFlagUsage = "Tasks whose shell output is discarded (repeatable; consumes the following arguments)"
	// TaskFileFlagName exposes the task file flag name.
	TaskFileFlagName = "file"
	// TaskFileFlagShorthand provides the shorthand for the task file flag.
	TaskFileFlagShorthand = "f"
	// TaskFileFlagUsage describes the task file flag purpose.
	TaskFileFlagUsage = "Path to the Pilotfile"
	// MetricsFileFlagName exposes the metrics textfile flag name.
	MetricsFileFlagName = "metrics-file"
	// MetricsFileFlagUsage describes the metrics textfile flag purpose.
	MetricsFileFlagUsage = "Write run metrics to this file in the node exporter textfile format"
)

// RunFlagDefaults describes the configured values shown as flag defaults.
type RunFlagDefaults struct {
	Raw         bool
	Timestamp   bool
	TaskFile    string
	MetricsFile string
}

// BindRunFlags attaches the task run flags to the provided command using persistent scope.
func BindRunFlags(command *cobra.Command, defaults RunFlagDefaults) {
	if command == nil {
		return
	}

	BindExecutionFlags(command, ExecutionDefaults{Raw: defaults.Raw, Timestamp: defaults.Timestamp}, ExecutionFlagDefinitions{
		Raw:       ExecutionFlagDefinition{Name: RawFlagName, Shorthand: RawFlagShorthand, Usage: RawFlagUsage, Enabled: true},
		Timestamp: ExecutionFlagDefinition{Name: TimestampFlagName, Shorthand: TimestampFlagShorthand, Usage: TimestampFlagUsage, Enabled: true},
	})

	persistentFlagSet := command.PersistentFlags()
	if persistentFlagSet.Lookup(QuietFlagName) == nil {
		persistentFlagSet.StringSliceP(QuietFlagName, QuietFlagShorthand, nil, QuietFlagUsage)
	}
	if persistentFlagSet.Lookup(TaskFileFlagName) == nil {
		persistentFlagSet.StringP(TaskFileFlagName, TaskFileFlagShorthand, defaults.TaskFile, TaskFileFlagUsage)
	}
	if persistentFlagSet.Lookup(MetricsFileFlagName) == nil {
		persistentFlagSet.String(MetricsFileFlagName, defaults.MetricsFile, MetricsFileFlagUsage)
	}
}
