package runner_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tyemirov/pilot/internal/console"
	"github.com/tyemirov/pilot/internal/execshell"
	"github.com/tyemirov/pilot/internal/runner"
	"github.com/tyemirov/pilot/internal/taskfile"
)

const (
	testScenarioPilotfileConstant = `build:
  - description: build stuff
  - shell: echo build
server:
  - shell: echo server
client:
  - shell: echo client
straw-task:
  - task: build
run:
  - parallel:
    - task: build
    - task: server
    - task: client
    - task: straw-task
`
	testEchoPrefixConstant = "echo "
)

var shellLinePattern = regexp.MustCompile(`^\x1b\[0;(3[1-7])m([a-z-]+):\x1b\[0m +(.*)$`)

// barrierLauncher holds every capture until expected captures are running at once.
type barrierLauncher struct {
	arrivals sync.WaitGroup
}

func newBarrierLauncher(expectedCaptures int) *barrierLauncher {
	launcher := &barrierLauncher{}
	launcher.arrivals.Add(expectedCaptures)
	return launcher
}

func (launcher *barrierLauncher) Attach(executionContext context.Context, commandLine string, streams execshell.StreamSet) (execshell.ExecutionResult, error) {
	return execshell.ExecutionResult{}, nil
}

func (launcher *barrierLauncher) Capture(executionContext context.Context, commandLine string, consumer execshell.LineConsumer) (execshell.ExecutionResult, error) {
	launcher.arrivals.Done()
	launcher.arrivals.Wait()
	return execshell.ExecutionResult{}, consumer(strings.TrimPrefix(commandLine, testEchoPrefixConstant))
}

type recordingShellRunner struct {
	mutex    sync.Mutex
	commands []execshell.ShellCommand
	failures map[string]error
}

func (shellRunner *recordingShellRunner) Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	shellRunner.mutex.Lock()
	defer shellRunner.mutex.Unlock()
	shellRunner.commands = append(shellRunner.commands, command)
	return execshell.ExecutionResult{}, shellRunner.failures[command.Command]
}

func (shellRunner *recordingShellRunner) recorded() map[string]execshell.ShellCommand {
	shellRunner.mutex.Lock()
	defer shellRunner.mutex.Unlock()
	byCommand := make(map[string]execshell.ShellCommand, len(shellRunner.commands))
	for _, command := range shellRunner.commands {
		byCommand[command.Command] = command
	}
	return byCommand
}

type countingObserver struct {
	mutex       sync.Mutex
	invocations []string
}

func (taskObserver *countingObserver) TaskInvoked(taskName string) {
	taskObserver.mutex.Lock()
	defer taskObserver.mutex.Unlock()
	taskObserver.invocations = append(taskObserver.invocations, taskName)
}

func parseTaskFile(testInstance *testing.T, document string) taskfile.TaskFile {
	testInstance.Helper()
	taskFile, parseError := taskfile.Parse([]byte(document))
	require.NoError(testInstance, parseError)
	return taskFile
}

func newRecordingExecutor(testInstance *testing.T, taskFile taskfile.TaskFile, shellRunner runner.ShellRunner, logger *zap.Logger) (*runner.Executor, *bytes.Buffer) {
	testInstance.Helper()
	output := &bytes.Buffer{}
	taskConsole, consoleError := console.NewConsole(output, console.NewRegistry(), nil)
	require.NoError(testInstance, consoleError)
	executor, creationError := runner.NewExecutor(taskFile, shellRunner, taskConsole, logger, nil)
	require.NoError(testInstance, creationError)
	return executor, output
}

func TestNewExecutorValidation(testInstance *testing.T) {
	taskConsole, consoleError := console.NewConsole(&bytes.Buffer{}, console.NewRegistry(), nil)
	require.NoError(testInstance, consoleError)

	_, loggerError := runner.NewExecutor(taskfile.TaskFile{}, &recordingShellRunner{}, taskConsole, nil, nil)
	require.ErrorIs(testInstance, loggerError, runner.ErrLoggerNotConfigured)

	_, shellError := runner.NewExecutor(taskfile.TaskFile{}, nil, taskConsole, zap.NewNop(), nil)
	require.ErrorIs(testInstance, shellError, runner.ErrShellRunnerNotConfigured)

	_, consoleMissingError := runner.NewExecutor(taskfile.TaskFile{}, &recordingShellRunner{}, nil, zap.NewNop(), nil)
	require.ErrorIs(testInstance, consoleMissingError, runner.ErrConsoleNotConfigured)
}

func TestExecutorRunsParallelScenario(testInstance *testing.T) {
	taskFile := parseTaskFile(testInstance, testScenarioPilotfileConstant)
	output := &bytes.Buffer{}
	registry := console.NewRegistry()
	taskConsole, consoleError := console.NewConsole(output, registry, nil)
	require.NoError(testInstance, consoleError)
	shellExecutor, shellError := execshell.NewShellExecutor(zap.NewNop(), newBarrierLauncher(4), taskConsole, registry, execshell.ShellExecutorOptions{})
	require.NoError(testInstance, shellError)
	taskObserver := &countingObserver{}
	executor, creationError := runner.NewExecutor(taskFile, shellExecutor, taskConsole, zap.NewNop(), taskObserver)
	require.NoError(testInstance, creationError)

	require.NoError(testInstance, executor.Execute(context.Background(), "run", runner.NewExecutionContext("run", runner.NewQuietSet(), false, false)))

	lines := strings.Split(strings.TrimSuffix(output.String(), "\n"), "\n")
	require.Equal(testInstance, "> run", lines[0])
	require.Equal(testInstance, "finished run", lines[len(lines)-1])

	branchBreadcrumbs := []string{"run > build", "run > server", "run > client", "run > straw-task", "run > straw-task > build"}
	for _, breadcrumb := range branchBreadcrumbs {
		entryIndex := indexOf(lines, "> "+breadcrumb)
		exitIndex := indexOf(lines, "finished "+breadcrumb)
		require.GreaterOrEqual(testInstance, entryIndex, 0, breadcrumb)
		require.Greater(testInstance, exitIndex, entryIndex, breadcrumb)
	}

	colorsByText := make(map[string]string)
	for _, line := range lines {
		matches := shellLinePattern.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		require.Equal(testInstance, matches[2], matches[3])
		colorsByText[matches[3]+"#"+matches[1]] = matches[1]
	}
	require.Len(testInstance, colorsByText, 4)
	distinctColors := make(map[string]struct{})
	for _, color := range colorsByText {
		distinctColors[color] = struct{}{}
	}
	require.Len(testInstance, distinctColors, 4)
	require.Equal(testInstance, int64(1), registry.ActiveColorCounter())

	invocations := append([]string(nil), taskObserver.invocations...)
	sort.Strings(invocations)
	require.Equal(testInstance, []string{"build", "build", "client", "run", "server", "straw-task"}, invocations)
}

func TestExecutorReportsMissingTask(testInstance *testing.T) {
	executor, output := newRecordingExecutor(testInstance, parseTaskFile(testInstance, testScenarioPilotfileConstant), &recordingShellRunner{}, zap.NewNop())

	executionError := executor.Execute(context.Background(), "deploy", runner.NewExecutionContext("deploy", runner.NewQuietSet(), false, false))

	require.Equal(testInstance, "> deploy\n", output.String())
	require.IsType(testInstance, runner.TaskNotFoundError{}, executionError)
	require.EqualError(testInstance, executionError, "Task deploy not found in Pilotfile")
}

func TestExecutorReportsMissingSubTask(testInstance *testing.T) {
	taskFile := parseTaskFile(testInstance, "outer:\n  - task: inner\n")
	executor, output := newRecordingExecutor(testInstance, taskFile, &recordingShellRunner{}, zap.NewNop())

	executionError := executor.Execute(context.Background(), "outer", runner.NewExecutionContext("outer", runner.NewQuietSet(), false, false))

	require.Equal(testInstance, "> outer\n> outer > inner\n", output.String())
	require.EqualError(testInstance, executionError, "Task inner not found in Pilotfile")
}

func TestExecutorRejectsDuplicateAndUnknownSteps(testInstance *testing.T) {
	testCases := []struct {
		name          string
		tasks         []taskfile.Task
		expectedError string
		expectedType  error
	}{
		{
			name: "duplicate_task",
			tasks: []taskfile.Task{
				{Name: "build", Steps: []taskfile.Step{{Kind: taskfile.StepKindShell, Command: "echo one"}}},
				{Name: "build", Steps: []taskfile.Step{{Kind: taskfile.StepKindShell, Command: "echo two"}}},
			},
			expectedError: "Duplicate task build",
			expectedType:  runner.DuplicateTaskError{},
		},
		{
			name: "unknown_step_kind",
			tasks: []taskfile.Task{
				{Name: "build", Steps: []taskfile.Step{{Kind: taskfile.StepKind("deploy"), Command: "echo one"}}},
			},
			expectedError: "Unknown token deploy",
			expectedType:  runner.UnknownStepKindError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			shellRunner := &recordingShellRunner{}
			executor, _ := newRecordingExecutor(testInstance, taskfile.NewTaskFile(testCase.tasks), shellRunner, zap.NewNop())

			executionError := executor.Execute(context.Background(), "build", runner.NewExecutionContext("build", runner.NewQuietSet(), false, false))

			require.IsType(testInstance, testCase.expectedType, executionError)
			require.EqualError(testInstance, executionError, testCase.expectedError)
			require.Empty(testInstance, shellRunner.recorded())
		})
	}
}

func TestExecutorScopesRawToggle(testInstance *testing.T) {
	taskFile := parseTaskFile(testInstance, `main:
  - shell: before
  - raw: true
  - shell: after-toggle
  - task: child
  - parallel:
    - raw: false
    - shell: sibling
  - shell: after-parallel
child:
  - shell: inherited
  - raw: false
  - shell: child-reset
`)
	shellRunner := &recordingShellRunner{}
	executor, _ := newRecordingExecutor(testInstance, taskFile, shellRunner, zap.NewNop())

	require.NoError(testInstance, executor.Execute(context.Background(), "main", runner.NewExecutionContext("main", runner.NewQuietSet(), false, false)))

	recorded := shellRunner.recorded()
	expectedRaw := map[string]bool{
		"before":         false,
		"after-toggle":   true,
		"inherited":      true,
		"child-reset":    false,
		"sibling":        true,
		"after-parallel": true,
	}
	require.Len(testInstance, recorded, len(expectedRaw))
	for command, raw := range expectedRaw {
		require.Equal(testInstance, raw, recorded[command].Raw, command)
	}
	require.Equal(testInstance, "child", recorded["inherited"].Label)
	require.Equal(testInstance, "main", recorded["sibling"].Label)
}

func TestExecutorMarksQuietTasks(testInstance *testing.T) {
	taskFile := parseTaskFile(testInstance, testScenarioPilotfileConstant)
	shellRunner := &recordingShellRunner{}
	executor, output := newRecordingExecutor(testInstance, taskFile, shellRunner, zap.NewNop())

	require.NoError(testInstance, executor.Execute(context.Background(), "straw-task", runner.NewExecutionContext("straw-task", runner.NewQuietSet("build"), false, true)))

	recorded := shellRunner.recorded()
	require.True(testInstance, recorded["echo build"].Quiet)
	require.True(testInstance, recorded["echo build"].Timestamp)
	require.Equal(testInstance, "build", recorded["echo build"].Label)
	require.Regexp(testInstance, `^\d{2}:\d{2}:\d{2} > straw-task\n\d{2}:\d{2}:\d{2} > straw-task > build\n`, output.String())
}

func TestExecutorParallelFirstFailureWins(testInstance *testing.T) {
	taskFile := parseTaskFile(testInstance, `fan:
  - parallel:
    - shell: ok
    - shell: first-failure
    - shell: second-failure
  - shell: never
`)
	firstFailure := errors.New("first")
	secondFailure := errors.New("second")
	shellRunner := &recordingShellRunner{failures: map[string]error{
		"first-failure":  firstFailure,
		"second-failure": secondFailure,
	}}
	observerCore, observedLogs := observer.New(zap.ErrorLevel)
	executor, output := newRecordingExecutor(testInstance, taskFile, shellRunner, zap.New(observerCore))

	executionError := executor.Execute(context.Background(), "fan", runner.NewExecutionContext("fan", runner.NewQuietSet(), false, false))

	require.ErrorIs(testInstance, executionError, firstFailure)
	recorded := shellRunner.recorded()
	require.Len(testInstance, recorded, 3)
	require.NotContains(testInstance, recorded, "never")
	require.Equal(testInstance, "> fan\n", output.String())

	capturedLogs := observedLogs.All()
	require.Len(testInstance, capturedLogs, 1)
	require.Equal(testInstance, "parallel branch failed", capturedLogs[0].Message)
	require.Equal(testInstance, int64(2), capturedLogs[0].ContextMap()["branch_index"])
}

func TestExecutionContextValueSemantics(testInstance *testing.T) {
	parent := runner.NewExecutionContext("run", runner.NewQuietSet("server"), false, true)

	toggled := parent.WithRaw(true)
	child := toggled.Child("straw-task").Child("build")

	require.False(testInstance, parent.Raw)
	require.True(testInstance, toggled.Raw)
	require.Equal(testInstance, "run", parent.Prefix)
	require.Equal(testInstance, "run > straw-task > build", child.Prefix)
	require.True(testInstance, child.QuietTasks.Contains("server"))
	require.Equal(testInstance, 1, child.QuietTasks.Len())
	require.True(testInstance, child.Timestamp)
}

func indexOf(lines []string, target string) int {
	for lineIndex, line := range lines {
		if line == target {
			return lineIndex
		}
	}
	return -1
}
