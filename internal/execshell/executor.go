package execshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/pilot/internal/console"
)

const (
	loggerNotConfiguredMessageConstant    = "shell executor logger not configured"
	launcherNotConfiguredMessageConstant  = "shell executor process launcher not configured"
	consoleNotConfiguredMessageConstant   = "shell executor console not configured"
	registryNotConfiguredMessageConstant  = "shell executor registry not configured"
	commandStartMessageConstant           = "shell step starting"
	commandSuccessMessageConstant         = "shell step completed"
	commandFailureMessageConstant         = "shell step returned non-zero status"
	commandLaunchErrorMessageConstant     = "shell step execution error"
	taskFieldNameConstant                 = "task"
	commandFieldNameConstant              = "command"
	modeFieldNameConstant                 = "mode"
	quietFieldNameConstant                = "quiet"
	colorFieldNameConstant                = "color"
	exitCodeFieldNameConstant             = "exit_code"
	durationFieldNameConstant             = "duration"
	commandExecutionErrorTemplateConstant = "Failed to run task %s: %v"
	streamErrorTemplateConstant           = "Could not get pty output: %v"
)

// ExecutionMode names how a shell step is connected to the terminal.
type ExecutionMode string

// Supported execution modes.
const (
	ModePseudoTerminal ExecutionMode = "pty"
	ModeRaw            ExecutionMode = "raw"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrLauncherNotConfigured indicates the process launcher dependency was missing.
	ErrLauncherNotConfigured = errors.New(launcherNotConfiguredMessageConstant)
	// ErrConsoleNotConfigured indicates the console dependency was missing.
	ErrConsoleNotConfigured = errors.New(consoleNotConfiguredMessageConstant)
	// ErrRegistryNotConfigured indicates the color registry dependency was missing.
	ErrRegistryNotConfigured = errors.New(registryNotConfiguredMessageConstant)
)

// ShellCommand describes one shell step invocation.
type ShellCommand struct {
	Command   string
	Label     string
	Quiet     bool
	Raw       bool
	Timestamp bool
}

// Mode reports the terminal connection used for the command.
func (command ShellCommand) Mode() ExecutionMode {
	if command.Raw {
		return ModeRaw
	}
	return ModePseudoTerminal
}

// ExecutionResult captures observable command results.
type ExecutionResult struct {
	ExitCode int
}

// StreamSet holds the standard streams a raw command is attached to. Nil members are
// connected to the null device.
type StreamSet struct {
	Input  io.Reader
	Output io.Writer
	Error  io.Writer
}

// LineConsumer receives every line read from a captured command.
type LineConsumer func(line string) error

// ProcessLauncher spawns shell command lines.
type ProcessLauncher interface {
	// Attach runs the command connected to streams and waits for it to exit.
	Attach(executionContext context.Context, commandLine string, streams StreamSet) (ExecutionResult, error)
	// Capture runs the command behind a pseudo-terminal and hands each output line to consumer.
	Capture(executionContext context.Context, commandLine string, consumer LineConsumer) (ExecutionResult, error)
}

// ExecutionObserver is notified about shell step lifecycle events.
type ExecutionObserver interface {
	ShellStepStarted(mode ExecutionMode)
	ShellStepFinished(mode ExecutionMode, duration time.Duration, exitCode int)
	ShellStepFailed(mode ExecutionMode)
}

// ShellExecutorOptions carries optional collaborators of the executor.
type ShellExecutorOptions struct {
	Streams  StreamSet
	Observer ExecutionObserver
}

// ShellExecutor runs shell steps and renders their output onto the shared console.
type ShellExecutor struct {
	launcher    ProcessLauncher
	taskConsole *console.Console
	registry    *console.Registry
	logger      *zap.Logger
	streams     StreamSet
	observer    ExecutionObserver
}

// CommandExecutionError wraps a failure to spawn or wait for a shell step.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the underlying launcher failure.
func (executionError CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionErrorTemplateConstant, executionError.Command.Label, executionError.Cause)
}

// Unwrap exposes the underlying error.
func (executionError CommandExecutionError) Unwrap() error {
	return executionError.Cause
}

// StreamError reports that the output of a captured command could not be read.
type StreamError struct {
	Cause error
}

// Error describes the read failure.
func (streamError StreamError) Error() string {
	return fmt.Sprintf(streamErrorTemplateConstant, streamError.Cause)
}

// Unwrap exposes the underlying error.
func (streamError StreamError) Unwrap() error {
	return streamError.Cause
}

// NewShellExecutor builds an executor for the provided launcher, console and registry.
func NewShellExecutor(logger *zap.Logger, launcher ProcessLauncher, taskConsole *console.Console, registry *console.Registry, options ShellExecutorOptions) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if launcher == nil {
		return nil, ErrLauncherNotConfigured
	}
	if taskConsole == nil {
		return nil, ErrConsoleNotConfigured
	}
	if registry == nil {
		return nil, ErrRegistryNotConfigured
	}
	observer := options.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &ShellExecutor{
		launcher:    launcher,
		taskConsole: taskConsole,
		registry:    registry,
		logger:      logger,
		streams:     options.Streams,
		observer:    observer,
	}, nil
}

// Execute runs the command and blocks until it exits. A non-zero exit status is
// reported in the result and logged, but is not an error.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	color := executor.registry.AcquireColor()
	defer executor.registry.ReleaseColor()

	mode := command.Mode()
	executor.logger.Info(commandStartMessageConstant,
		zap.String(taskFieldNameConstant, command.Label),
		zap.String(commandFieldNameConstant, command.Command),
		zap.String(modeFieldNameConstant, string(mode)),
		zap.Bool(quietFieldNameConstant, command.Quiet),
		zap.Int(colorFieldNameConstant, color.Code()),
	)
	executor.observer.ShellStepStarted(mode)

	startTime := time.Now()
	var executionResult ExecutionResult
	var launchError error
	if command.Raw {
		executionResult, launchError = executor.launcher.Attach(executionContext, command.Command, executor.streamsFor(command))
	} else {
		executionResult, launchError = executor.launcher.Capture(executionContext, command.Command, executor.consumerFor(command, color))
	}
	duration := time.Since(startTime)

	if launchError != nil {
		executor.observer.ShellStepFailed(mode)
		executor.logger.Error(commandLaunchErrorMessageConstant,
			zap.String(taskFieldNameConstant, command.Label),
			zap.String(commandFieldNameConstant, command.Command),
			zap.Error(launchError),
		)
		var streamError StreamError
		if errors.As(launchError, &streamError) {
			return ExecutionResult{}, streamError
		}
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: launchError}
	}

	executor.observer.ShellStepFinished(mode, duration, executionResult.ExitCode)
	completionFields := []zap.Field{
		zap.String(taskFieldNameConstant, command.Label),
		zap.String(commandFieldNameConstant, command.Command),
		zap.Int(exitCodeFieldNameConstant, executionResult.ExitCode),
		zap.Duration(durationFieldNameConstant, duration),
	}
	if executionResult.ExitCode != 0 {
		executor.logger.Warn(commandFailureMessageConstant, completionFields...)
	} else {
		executor.logger.Info(commandSuccessMessageConstant, completionFields...)
	}
	return executionResult, nil
}

func (executor *ShellExecutor) streamsFor(command ShellCommand) StreamSet {
	if command.Quiet {
		return StreamSet{}
	}
	return executor.streams
}

func (executor *ShellExecutor) consumerFor(command ShellCommand, color console.Color) LineConsumer {
	if command.Quiet {
		return discardLine
	}
	taskStream := executor.taskConsole.OpenStream(command.Label, color, command.Timestamp)
	return taskStream.WriteLine
}

func discardLine(string) error {
	return nil
}

type noopObserver struct{}

func (noopObserver) ShellStepStarted(ExecutionMode) {}

func (noopObserver) ShellStepFinished(ExecutionMode, time.Duration, int) {}

func (noopObserver) ShellStepFailed(ExecutionMode) {}
