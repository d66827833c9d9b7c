package taskrunner

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/pilot/internal/console"
	"github.com/tyemirov/pilot/internal/execshell"
	"github.com/tyemirov/pilot/internal/telemetry"
	"github.com/tyemirov/pilot/internal/utils"
)

const runIdentifierFieldNameConstant = "run_id"

// DependenciesConfig captures providers required to build the run collaborators.
type DependenciesConfig struct {
	LoggerProvider        func() *zap.Logger
	Launcher              execshell.ProcessLauncher
	Clock                 func() time.Time
	RunIdentifierProvider func() string
}

// DependenciesOptions allows per-command overrides when resolving run dependencies.
type DependenciesOptions struct {
	Command *cobra.Command
	Output  io.Writer
	Errors  io.Writer
	Input   io.Reader
	Shell   string
}

// DependenciesResult exposes the resolved collaborators shared by every task of one run.
type DependenciesResult struct {
	Logger        *zap.Logger
	RunIdentifier string
	Registry      *console.Registry
	Console       *console.Console
	ShellExecutor *execshell.ShellExecutor
	Metrics       *telemetry.Metrics
	Launcher      execshell.ProcessLauncher
}

// BuildDependencies resolves the console, the shell executor and the run metrics.
func BuildDependencies(config DependenciesConfig, options DependenciesOptions) (DependenciesResult, error) {
	runIdentifier := resolveRunIdentifier(config.RunIdentifierProvider)
	logger := resolveLogger(config.LoggerProvider).With(zap.String(runIdentifierFieldNameConstant, runIdentifier))
	clock := resolveClock(config.Clock)

	outputWriter := utils.NewFlushingWriter(resolveWriter(options.Output, options.Command, true))
	errorWriter := resolveWriter(options.Errors, options.Command, false)
	inputReader := resolveReader(options.Input, options.Command)

	registry := console.NewRegistry()
	taskConsole, consoleError := console.NewConsole(outputWriter, registry, console.Clock(clock))
	if consoleError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.console: %w", consoleError)
	}

	metrics, metricsError := telemetry.NewMetrics(telemetry.Clock(clock))
	if metricsError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.metrics: %w", metricsError)
	}

	launcher := config.Launcher
	if launcher == nil {
		launcher = execshell.NewSystemLauncher(options.Shell)
	}

	shellExecutor, executorError := execshell.NewShellExecutor(logger, launcher, taskConsole, registry, execshell.ShellExecutorOptions{
		Streams:  execshell.StreamSet{Input: inputReader, Output: outputWriter, Error: errorWriter},
		Observer: metrics,
	})
	if executorError != nil {
		return DependenciesResult{}, fmt.Errorf("taskrunner.dependencies.shell_executor: %w", executorError)
	}

	return DependenciesResult{
		Logger:        logger,
		RunIdentifier: runIdentifier,
		Registry:      registry,
		Console:       taskConsole,
		ShellExecutor: shellExecutor,
		Metrics:       metrics,
		Launcher:      launcher,
	}, nil
}

func resolveLogger(provider func() *zap.Logger) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveClock(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func resolveRunIdentifier(provider func() string) string {
	if provider != nil {
		if identifier := provider(); len(identifier) > 0 {
			return identifier
		}
	}
	return uuid.NewString()
}

func resolveWriter(provided io.Writer, command *cobra.Command, useStdout bool) io.Writer {
	if provided != nil {
		return provided
	}
	if command != nil {
		if useStdout {
			if writer := command.OutOrStdout(); writer != nil && writer != io.Discard {
				return writer
			}
		} else {
			if writer := command.ErrOrStderr(); writer != nil && writer != io.Discard {
				return writer
			}
		}
	}
	if useStdout {
		return os.Stdout
	}
	return os.Stderr
}

func resolveReader(provided io.Reader, command *cobra.Command) io.Reader {
	if provided != nil {
		return provided
	}
	if command != nil {
		if reader := command.InOrStdin(); reader != nil {
			return reader
		}
	}
	return os.Stdin
}
