package utils

import (
	"context"
	"strings"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	executionFlagsContextKeyConstant        = commandContextKey("executionFlags")
	logLevelContextKeyConstant              = commandContextKey("logLevel")
	runIdentifierContextKeyConstant         = commandContextKey("runIdentifier")
)

type commandContextKey string

// ExecutionFlags captures the run modifiers derived from CLI flags. The Set fields
// report whether the flag was given explicitly and should override configuration.
type ExecutionFlags struct {
	Raw            bool
	RawSet         bool
	Timestamp      bool
	TimestampSet   bool
	QuietTasks     []string
	TaskFile       string
	TaskFileSet    bool
	MetricsFile    string
	MetricsFileSet bool
}

// AnySet reports whether at least one flag was given explicitly.
func (flags ExecutionFlags) AnySet() bool {
	return flags.RawSet || flags.TimestampSet || flags.TaskFileSet || flags.MetricsFileSet || len(flags.QuietTasks) > 0
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// WithExecutionFlags attaches execution flag values to the provided context.
func (accessor CommandContextAccessor) WithExecutionFlags(parentContext context.Context, flags ExecutionFlags) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	normalized := flags
	normalized.TaskFile = strings.TrimSpace(flags.TaskFile)
	normalized.MetricsFile = strings.TrimSpace(flags.MetricsFile)
	normalized.QuietTasks = append([]string(nil), flags.QuietTasks...)
	return context.WithValue(parentContext, executionFlagsContextKeyConstant, normalized)
}

// WithLogLevel attaches the effective log level to the provided context.
func (accessor CommandContextAccessor) WithLogLevel(parentContext context.Context, logLevel string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	trimmedLogLevel := strings.TrimSpace(logLevel)
	if len(trimmedLogLevel) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, logLevelContextKeyConstant, trimmedLogLevel)
}

// WithRunIdentifier attaches the identifier shared by every log event of one run.
func (accessor CommandContextAccessor) WithRunIdentifier(parentContext context.Context, runIdentifier string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	if len(runIdentifier) == 0 {
		return parentContext
	}
	return context.WithValue(parentContext, runIdentifierContextKeyConstant, runIdentifier)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return contextString(executionContext, configurationFilePathContextKeyConstant)
}

// ExecutionFlags extracts execution flag values from the provided context.
func (accessor CommandContextAccessor) ExecutionFlags(executionContext context.Context) (ExecutionFlags, bool) {
	if executionContext == nil {
		return ExecutionFlags{}, false
	}
	value, valueAvailable := executionContext.Value(executionFlagsContextKeyConstant).(ExecutionFlags)
	if !valueAvailable {
		return ExecutionFlags{}, false
	}
	return value, true
}

// LogLevel extracts the effective log level from the provided context.
func (accessor CommandContextAccessor) LogLevel(executionContext context.Context) (string, bool) {
	return contextString(executionContext, logLevelContextKeyConstant)
}

// RunIdentifier extracts the run identifier from the provided context.
func (accessor CommandContextAccessor) RunIdentifier(executionContext context.Context) (string, bool) {
	return contextString(executionContext, runIdentifierContextKeyConstant)
}

func contextString(executionContext context.Context, key commandContextKey) (string, bool) {
	if executionContext == nil {
		return "", false
	}
	value, valueAvailable := executionContext.Value(key).(string)
	if !valueAvailable {
		return "", false
	}
	return value, true
}
