package flags

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tyemirov/pilot/internal/utils"
)

const boolFlagParseErrorTemplateConstant = "unable to parse flag %q: %w"

// ErrFlagNotDefined indicates that the requested flag is not present on the command.
var ErrFlagNotDefined = errors.New("flag not defined")

// BoolFlag returns the flag value and whether it was set on the command line.
func BoolFlag(command *cobra.Command, name string) (bool, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return false, false, ErrFlagNotDefined
	}
	value, err := flagSet.GetBool(name)
	if err == nil {
		return value, flag.Changed, nil
	}

	if flag.Value == nil {
		return false, false, err
	}

	parsedValue, parseError := parseToggleValue(flag.Value.String())
	if parseError != nil {
		return false, false, fmt.Errorf(boolFlagParseErrorTemplateConstant, name, parseError)
	}

	return parsedValue, flag.Changed, nil
}

func StringFlag(command *cobra.Command, name string) (string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return "", false, ErrFlagNotDefined
	}
	value, err := flagSet.GetString(name)
	if err != nil {
		return "", false, err
	}
	return value, flag.Changed, nil
}

func StringSliceFlag(command *cobra.Command, name string) ([]string, bool, error) {
	flagSet, flag := locateFlag(command, name)
	if flag == nil {
		return nil, false, ErrFlagNotDefined
	}
	values, err := flagSet.GetStringSlice(name)
	if err != nil {
		return nil, false, err
	}
	return values, flag.Changed, nil
}

func locateFlag(command *cobra.Command, name string) (*pflag.FlagSet, *pflag.Flag) {
	if command == nil {
		return nil, nil
	}

	candidateSets := []*pflag.FlagSet{
		command.Flags(),
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	if root := command.Root(); root != nil {
		candidateSets = append(candidateSets, root.PersistentFlags())
	}

	for _, set := range candidateSets {
		if set == nil {
			continue
		}
		if flag := set.Lookup(name); flag != nil {
			return set, flag
		}
	}

	return nil, nil
}

// CollectExecutionFlags inspects the command's flags to produce execution flag values.
func CollectExecutionFlags(command *cobra.Command) utils.ExecutionFlags {
	executionFlags := utils.ExecutionFlags{}
	if command == nil {
		return executionFlags
	}

	if rawValue, rawChanged, rawError := BoolFlag(command, RawFlagName); rawError == nil {
		executionFlags.Raw = rawValue
		executionFlags.RawSet = rawChanged
	}

	if timestampValue, timestampChanged, timestampError := BoolFlag(command, TimestampFlagName); timestampError == nil {
		executionFlags.Timestamp = timestampValue
		executionFlags.TimestampSet = timestampChanged
	}

	if quietValues, _, quietError := StringSliceFlag(command, QuietFlagName); quietError == nil {
		for _, quietValue := range quietValues {
			trimmed := strings.TrimSpace(quietValue)
			if len(trimmed) > 0 {
				executionFlags.QuietTasks = append(executionFlags.QuietTasks, trimmed)
			}
		}
	}

	if taskFileValue, taskFileChanged, taskFileError := StringFlag(command, TaskFileFlagName); taskFileError == nil {
		executionFlags.TaskFile = strings.TrimSpace(taskFileValue)
		executionFlags.TaskFileSet = taskFileChanged
	}

	if metricsFileValue, metricsFileChanged, metricsFileError := StringFlag(command, MetricsFileFlagName); metricsFileError == nil {
		executionFlags.MetricsFile = strings.TrimSpace(metricsFileValue)
		executionFlags.MetricsFileSet = metricsFileChanged
	}

	return executionFlags
}

// ResolveExecutionFlags returns execution flags from context or flag values, indicating whether any overrides are provided.
func ResolveExecutionFlags(command *cobra.Command) (utils.ExecutionFlags, bool) {
	contextAccessor := utils.NewCommandContextAccessor()
	if command != nil {
		if flags, available := contextAccessor.ExecutionFlags(command.Context()); available {
			return flags, true
		}
	}

	executionFlags := CollectExecutionFlags(command)
	return executionFlags, executionFlags.AnySet()
}
