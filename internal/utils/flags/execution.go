// Package flags provides helpers for binding the task run flags to Cobra commands.
package flags

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	toggleTypeNameConstant           = "bool"
	toggleNoOptionValueConstant      = "true"
	toggleParseErrorTemplateConstant = "invalid toggle value %q"
)

// ExecutionDefaults describes default toggle values shared across commands.
type ExecutionDefaults struct {
	Raw       bool
	Timestamp bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	Raw       ExecutionFlagDefinition
	Timestamp ExecutionFlagDefinition
}

// BindExecutionFlags attaches the toggle flags to the provided command using persistent scope.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) {
	if command == nil {
		return
	}

	persistentFlagSet := command.PersistentFlags()

	bindToggleFlag(persistentFlagSet, definitions.Raw, defaults.Raw)
	bindToggleFlag(persistentFlagSet, definitions.Timestamp, defaults.Timestamp)
}

func bindToggleFlag(flagSet *pflag.FlagSet, definition ExecutionFlagDefinition, defaultValue bool) {
	if flagSet == nil {
		return
	}
	if !definition.Enabled {
		return
	}
	if len(definition.Name) == 0 {
		return
	}

	AddToggleFlag(flagSet, nil, definition.Name, definition.Shorthand, defaultValue, definition.Usage)
}

// AddToggleFlag registers a boolean flag that also accepts yes/no and on/off spellings.
// A bare flag sets the value to true. When target is nil the value is only reachable
// through the flag set.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || flagSet.Lookup(name) != nil {
		return
	}
	if target == nil {
		target = new(bool)
	}
	*target = defaultValue

	flag := flagSet.VarPF(&toggleValue{target: target}, name, shorthand, usage)
	flag.NoOptDefVal = toggleNoOptionValueConstant
}

type toggleValue struct {
	target *bool
}

func (value *toggleValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *toggleValue) Set(raw string) error {
	parsed, parseError := parseToggleValue(raw)
	if parseError != nil {
		return parseError
	}
	*value.target = parsed
	return nil
}

func (value *toggleValue) Type() string {
	return toggleTypeNameConstant
}

func parseToggleValue(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "y", "yes", "on":
		return true, nil
	case "0", "f", "false", "n", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf(toggleParseErrorTemplateConstant, raw)
	}
}
