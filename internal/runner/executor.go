package runner

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/tyemirov/pilot/internal/console"
	"github.com/tyemirov/pilot/internal/execshell"
	"github.com/tyemirov/pilot/internal/taskfile"
)

const (
	loggerNotConfiguredMessageConstant      = "task executor logger not configured"
	shellRunnerNotConfiguredMessageConstant = "task executor shell runner not configured"
	consoleNotConfiguredMessageConstant     = "task executor console not configured"
	taskEnteredMessageConstant              = "task entered"
	taskFinishedMessageConstant             = "task finished"
	parallelStartedMessageConstant          = "parallel step starting"
	branchFailureMessageConstant            = "parallel branch failed"
	taskFieldNameConstant                   = "task"
	breadcrumbFieldNameConstant             = "breadcrumb"
	rawFieldNameConstant                    = "raw"
	branchCountFieldNameConstant            = "branches"
	branchIndexFieldNameConstant            = "branch_index"
	branchLabelFieldNameConstant            = "branch"
)

var (
	// ErrLoggerNotConfigured indicates the logger dependency was missing.
	ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)
	// ErrShellRunnerNotConfigured indicates the shell runner dependency was missing.
	ErrShellRunnerNotConfigured = errors.New(shellRunnerNotConfiguredMessageConstant)
	// ErrConsoleNotConfigured indicates the console dependency was missing.
	ErrConsoleNotConfigured = errors.New(consoleNotConfiguredMessageConstant)
)

// ShellRunner executes one shell step.
type ShellRunner interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// TaskObserver is notified about every resolved task invocation.
type TaskObserver interface {
	TaskInvoked(taskName string)
}

// Executor resolves task names against a task file and runs their steps.
type Executor struct {
	taskFile    taskfile.TaskFile
	shellRunner ShellRunner
	taskConsole *console.Console
	logger      *zap.Logger
	observer    TaskObserver
}

// NewExecutor builds an executor over taskFile. A nil observer disables task notifications.
func NewExecutor(taskFile taskfile.TaskFile, shellRunner ShellRunner, taskConsole *console.Console, logger *zap.Logger, observer TaskObserver) (*Executor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if shellRunner == nil {
		return nil, ErrShellRunnerNotConfigured
	}
	if taskConsole == nil {
		return nil, ErrConsoleNotConfigured
	}
	return &Executor{
		taskFile:    taskFile,
		shellRunner: shellRunner,
		taskConsole: taskConsole,
		logger:      logger,
		observer:    observer,
	}, nil
}

// Execute runs taskName with the breadcrumb and toggles carried by executionState. The
// entry trace is printed before the task is resolved, the exit trace after its last step.
func (executor *Executor) Execute(executionContext context.Context, taskName string, executionState ExecutionContext) error {
	if traceError := executor.taskConsole.TaskStarted(executionState.Prefix, executionState.Timestamp); traceError != nil {
		return traceError
	}

	task, resolveError := executor.resolve(taskName)
	if resolveError != nil {
		return resolveError
	}

	if executor.observer != nil {
		executor.observer.TaskInvoked(task.Name)
	}
	executor.logger.Debug(taskEnteredMessageConstant,
		zap.String(taskFieldNameConstant, task.Name),
		zap.String(breadcrumbFieldNameConstant, executionState.Prefix),
		zap.Bool(rawFieldNameConstant, executionState.Raw),
	)

	currentState := executionState
	for _, step := range task.Steps {
		var stepError error
		currentState, stepError = executor.executeStep(executionContext, task.Name, step, currentState)
		if stepError != nil {
			return stepError
		}
	}

	executor.logger.Debug(taskFinishedMessageConstant,
		zap.String(taskFieldNameConstant, task.Name),
		zap.String(breadcrumbFieldNameConstant, executionState.Prefix),
	)
	return executor.taskConsole.TaskFinished(executionState.Prefix, executionState.Timestamp)
}

func (executor *Executor) resolve(taskName string) (taskfile.Task, error) {
	matches := executor.taskFile.Matches(taskName)
	switch len(matches) {
	case 0:
		return taskfile.Task{}, TaskNotFoundError{TaskName: taskName}
	case 1:
		return matches[0], nil
	default:
		return taskfile.Task{}, DuplicateTaskError{TaskName: taskName}
	}
}

// executeStep runs one step of ownerTask and returns the state later steps of the same
// list continue with.
func (executor *Executor) executeStep(executionContext context.Context, ownerTask string, step taskfile.Step, executionState ExecutionContext) (ExecutionContext, error) {
	switch step.Kind {
	case taskfile.StepKindShell:
		_, shellError := executor.shellRunner.Execute(executionContext, execshell.ShellCommand{
			Command:   step.Command,
			Label:     ownerTask,
			Quiet:     executionState.QuietTasks.Contains(ownerTask),
			Raw:       executionState.Raw,
			Timestamp: executionState.Timestamp,
		})
		return executionState, shellError
	case taskfile.StepKindTask:
		return executionState, executor.Execute(executionContext, step.TaskName, executionState.Child(step.TaskName))
	case taskfile.StepKindParallel:
		return executionState, executor.executeParallel(executionContext, ownerTask, step.Branches, executionState)
	case taskfile.StepKindRaw:
		return executionState.WithRaw(step.Raw), nil
	case taskfile.StepKindDescription:
		return executionState, nil
	default:
		return executionState, UnknownStepKindError{TaskName: ownerTask, Kind: string(step.Kind)}
	}
}

// executeParallel starts every branch with its own copy of executionState and waits for
// all of them. The error of the lowest failing branch index is returned and the other
// failures are logged.
func (executor *Executor) executeParallel(executionContext context.Context, ownerTask string, branches []taskfile.Branch, executionState ExecutionContext) error {
	executor.logger.Debug(parallelStartedMessageConstant,
		zap.String(taskFieldNameConstant, ownerTask),
		zap.Int(branchCountFieldNameConstant, len(branches)),
	)

	branchErrors := make([]error, len(branches))
	var waitGroup sync.WaitGroup
	for branchIndex := range branches {
		waitGroup.Add(1)
		go func(index int, branch taskfile.Branch, branchState ExecutionContext) {
			defer waitGroup.Done()
			_, branchErrors[index] = executor.executeStep(executionContext, ownerTask, branch.Step, branchState)
		}(branchIndex, branches[branchIndex], executionState)
	}
	waitGroup.Wait()

	var firstError error
	for branchIndex, branchError := range branchErrors {
		if branchError == nil {
			continue
		}
		if firstError == nil {
			firstError = branchError
			continue
		}
		executor.logger.Error(branchFailureMessageConstant,
			zap.String(taskFieldNameConstant, ownerTask),
			zap.Int(branchIndexFieldNameConstant, branchIndex),
			zap.String(branchLabelFieldNameConstant, branches[branchIndex].Label),
			zap.Error(branchError),
		)
	}
	return firstError
}
