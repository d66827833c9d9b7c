package taskfile

// StepKind identifies the variant carried by a Step.
type StepKind string

// Supported step kinds, matching the single key of each step mapping in the task file.
const (
	StepKindShell       StepKind = StepKind("shell")
	StepKindTask        StepKind = StepKind("task")
	StepKindParallel    StepKind = StepKind("parallel")
	StepKindRaw         StepKind = StepKind("raw")
	StepKindDescription StepKind = StepKind("description")
)

// Step is one instruction of a task. Only the fields matching Kind are populated.
type Step struct {
	Kind        StepKind
	Command     string
	TaskName    string
	Branches    []Branch
	Raw         bool
	Description string
}

// Branch is a single concurrently executed step of a parallel group.
type Branch struct {
	Label string
	Step  Step
}

// Task associates a task name with its ordered steps.
type Task struct {
	Name  string
	Steps []Step
}

// Description returns the task description when one is declared.
func (task Task) Description() (string, bool) {
	for _, step := range task.Steps {
		if step.Kind == StepKindDescription {
			return step.Description, true
		}
	}
	return "", false
}

// TaskFile is the immutable, ordered set of tasks loaded from a Pilotfile.
type TaskFile struct {
	tasks []Task
}

// NewTaskFile builds a TaskFile from already validated tasks, preserving their order.
func NewTaskFile(tasks []Task) TaskFile {
	copied := make([]Task, len(tasks))
	copy(copied, tasks)
	return TaskFile{tasks: copied}
}

// Tasks returns the tasks in declaration order.
func (taskFile TaskFile) Tasks() []Task {
	copied := make([]Task, len(taskFile.tasks))
	copy(copied, taskFile.tasks)
	return copied
}

// Matches returns every task declared under the provided name.
func (taskFile TaskFile) Matches(taskName string) []Task {
	matches := make([]Task, 0, 1)
	for _, task := range taskFile.tasks {
		if task.Name == taskName {
			matches = append(matches, task)
		}
	}
	return matches
}

// Names returns the task names in declaration order.
func (taskFile TaskFile) Names() []string {
	names := make([]string, 0, len(taskFile.tasks))
	for _, task := range taskFile.tasks {
		names = append(names, task.Name)
	}
	return names
}
