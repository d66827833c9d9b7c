package taskfile_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tyemirov/pilot/internal/taskfile"
)

const (
	testPilotfileContentConstant = `build:
  - description: build stuff
  - shell: echo build
server:
  - shell: echo server
client:
  - description: server
  - shell: echo client
straw-task:
  - task: build
run:
  - parallel:
    - task: build
    - task: server
    - task: client
    - task: straw-task
raw:
  - raw: true
  - shell: read line && echo $line
`
	testExpectedListingConstant = "Available tasks:\n" +
		"\tbuild - build stuff\n" +
		"\tserver\n" +
		"\tclient - server\n" +
		"\tstraw-task\n" +
		"\trun\n" +
		"\traw\n"
)

func TestParseKeepsDeclarationOrderAndStepShapes(testInstance *testing.T) {
	taskFile, parseError := taskfile.Parse([]byte(testPilotfileContentConstant))
	require.NoError(testInstance, parseError)

	require.Equal(testInstance, []string{"build", "server", "client", "straw-task", "run", "raw"}, taskFile.Names())

	runMatches := taskFile.Matches("run")
	require.Len(testInstance, runMatches, 1)
	require.Len(testInstance, runMatches[0].Steps, 1)

	parallelStep := runMatches[0].Steps[0]
	require.Equal(testInstance, taskfile.StepKindParallel, parallelStep.Kind)
	require.Len(testInstance, parallelStep.Branches, 4)
	for branchIndex, expectedTask := range []string{"build", "server", "client", "straw-task"} {
		branch := parallelStep.Branches[branchIndex]
		require.Equal(testInstance, "task", branch.Label)
		require.Equal(testInstance, taskfile.StepKindTask, branch.Step.Kind)
		require.Equal(testInstance, expectedTask, branch.Step.TaskName)
	}

	rawMatches := taskFile.Matches("raw")
	require.Len(testInstance, rawMatches, 1)
	require.Equal(testInstance, taskfile.Step{Kind: taskfile.StepKindRaw, Raw: true}, rawMatches[0].Steps[0])
	require.Equal(testInstance, taskfile.Step{Kind: taskfile.StepKindShell, Command: "read line && echo $line"}, rawMatches[0].Steps[1])

	require.Empty(testInstance, taskFile.Matches("missing"))
}

func TestParseRejectsInvalidDocuments(testInstance *testing.T) {
	testCases := []struct {
		name          string
		content       string
		expectedError any
		expectedText  string
	}{
		{
			name:          "empty_document",
			content:       "",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "root_sequence",
			content:       "- shell: echo\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "task_without_list",
			content:       "build: echo build\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "unknown_step",
			content:       "build:\n  - exec: echo build\n",
			expectedError: &taskfile.ValidationError{},
			expectedText:  "This is not a valid Pilotfile: unknown step \"exec\" at line 2",
		},
		{
			name:          "step_with_two_keys",
			content:       "build:\n  - shell: echo\n    task: other\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "shell_not_string",
			content:       "build:\n  - shell: [echo]\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "raw_not_boolean",
			content:       "build:\n  - raw: sometimes\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "parallel_not_list",
			content:       "build:\n  - parallel: echo\n",
			expectedError: &taskfile.ValidationError{},
		},
		{
			name:          "multiple_descriptions",
			content:       "build:\n  - description: one\n  - description: two\n",
			expectedError: &taskfile.MultipleDescriptionsError{},
			expectedText:  "More than one description for task build",
		},
		{
			name:          "duplicate_task",
			content:       "build:\n  - shell: echo a\nbuild:\n  - shell: echo b\n",
			expectedError: &taskfile.DuplicateTaskNameError{},
			expectedText:  "Duplicate task build",
		},
		{
			name:          "malformed_yaml",
			content:       "build: [\n",
			expectedError: &taskfile.LoadError{},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, parseError := taskfile.Parse([]byte(testCase.content))
			require.Error(testInstance, parseError)
			require.True(testInstance, errors.As(parseError, testCase.expectedError))
			if len(testCase.expectedText) > 0 {
				require.Equal(testInstance, testCase.expectedText, parseError.Error())
			}
		})
	}
}

func TestLoadReportsMissingFile(testInstance *testing.T) {
	missingPath := filepath.Join(testInstance.TempDir(), taskfile.DefaultFileName)

	_, loadError := taskfile.Load(missingPath)
	require.Error(testInstance, loadError)

	var typedError taskfile.LoadError
	require.ErrorAs(testInstance, loadError, &typedError)
	require.Equal(testInstance, missingPath, typedError.Path)
	require.ErrorIs(testInstance, loadError, os.ErrNotExist)
	require.Contains(testInstance, loadError.Error(), "Pilotfile.yaml not found")
}

func TestLoadReadsFileFromDisk(testInstance *testing.T) {
	pilotfilePath := filepath.Join(testInstance.TempDir(), taskfile.DefaultFileName)
	require.NoError(testInstance, os.WriteFile(pilotfilePath, []byte(testPilotfileContentConstant), 0o600))

	taskFile, loadError := taskfile.Load(pilotfilePath)
	require.NoError(testInstance, loadError)
	require.Len(testInstance, taskFile.Tasks(), 6)
}

func TestWriteListingIsStable(testInstance *testing.T) {
	taskFile, parseError := taskfile.Parse([]byte(testPilotfileContentConstant))
	require.NoError(testInstance, parseError)

	firstOutput := &bytes.Buffer{}
	require.NoError(testInstance, taskFile.WriteListing(firstOutput))
	require.Equal(testInstance, testExpectedListingConstant, firstOutput.String())

	secondOutput := &bytes.Buffer{}
	require.NoError(testInstance, taskFile.WriteListing(secondOutput))
	require.Equal(testInstance, firstOutput.Bytes(), secondOutput.Bytes())
}

func TestParseResolvesAliases(testInstance *testing.T) {
	content := "common: &common\n  - shell: echo shared\nbuild: *common\n"

	taskFile, parseError := taskfile.Parse([]byte(content))
	require.NoError(testInstance, parseError)

	buildMatches := taskFile.Matches("build")
	require.Len(testInstance, buildMatches, 1)
	require.Equal(testInstance, "echo shared", buildMatches[0].Steps[0].Command)
}
