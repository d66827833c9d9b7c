package taskrunner

import (
	"context"
	"fmt"

	"github.com/tyemirov/pilot/internal/runner"
	"github.com/tyemirov/pilot/internal/taskfile"
)

// RunOptions describes one invocation of the requested tasks.
type RunOptions struct {
	TaskNames   []string
	QuietTasks  []string
	Raw         bool
	Timestamp   bool
	MetricsFile string
}

// Executor runs the requested tasks of a task file.
type Executor interface {
	Run(ctx context.Context, taskFile taskfile.TaskFile, options RunOptions) error
}

// Factory constructs an Executor given resolved run dependencies.
type Factory func(DependenciesResult) Executor

type sequentialExecutor struct {
	dependencies DependenciesResult
}

// Run executes every requested task in order; each task starts with its own
// name as breadcrumb. The first failing task stops the run.
func (executor sequentialExecutor) Run(ctx context.Context, taskFile taskfile.TaskFile, options RunOptions) error {
	taskExecutor, executorError := runner.NewExecutor(
		taskFile,
		executor.dependencies.ShellExecutor,
		executor.dependencies.Console,
		executor.dependencies.Logger,
		executor.dependencies.Metrics,
	)
	if executorError != nil {
		return fmt.Errorf("taskrunner.executor: %w", executorError)
	}

	quietTasks := runner.NewQuietSet(options.QuietTasks...)
	for _, taskName := range options.TaskNames {
		executionState := runner.NewExecutionContext(taskName, quietTasks, options.Raw, options.Timestamp)
		if runError := taskExecutor.Execute(ctx, taskName, executionState); runError != nil {
			return runError
		}
	}
	return nil
}

// Resolve returns either the provided factory result or the default sequential
// runner, wrapped so the run summary is reported afterwards.
func Resolve(factory Factory, dependencies DependenciesResult) Executor {
	var base Executor
	if factory != nil {
		base = factory(dependencies)
	}
	if base == nil {
		base = sequentialExecutor{dependencies: dependencies}
	}
	return summaryExecutor{
		delegate:     base,
		dependencies: dependencies,
	}
}
