package runner

import "fmt"

const (
	taskNotFoundTemplateConstant    = "Task %s not found in Pilotfile"
	duplicateTaskTemplateConstant   = "Duplicate task %s"
	unknownStepKindTemplateConstant = "Unknown token %s"
)

// TaskNotFoundError reports a task name absent from the task file.
type TaskNotFoundError struct {
	TaskName string
}

// Error describes the missing task.
func (notFoundError TaskNotFoundError) Error() string {
	return fmt.Sprintf(taskNotFoundTemplateConstant, notFoundError.TaskName)
}

// DuplicateTaskError reports a task name declared more than once.
type DuplicateTaskError struct {
	TaskName string
}

// Error describes the duplicated task.
func (duplicateError DuplicateTaskError) Error() string {
	return fmt.Sprintf(duplicateTaskTemplateConstant, duplicateError.TaskName)
}

// UnknownStepKindError reports a step whose kind the executor cannot dispatch.
type UnknownStepKindError struct {
	TaskName string
	Kind     string
}

// Error describes the unknown step kind.
func (kindError UnknownStepKindError) Error() string {
	return fmt.Sprintf(unknownStepKindTemplateConstant, kindError.Kind)
}
