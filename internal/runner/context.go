package runner

const breadcrumbSeparatorConstant = " > "

// QuietSet holds the names of tasks whose shell output is suppressed.
type QuietSet struct {
	names map[string]struct{}
}

// NewQuietSet builds a set from task names.
func NewQuietSet(taskNames ...string) QuietSet {
	names := make(map[string]struct{}, len(taskNames))
	for _, taskName := range taskNames {
		names[taskName] = struct{}{}
	}
	return QuietSet{names: names}
}

// Contains reports whether taskName is quiet.
func (quietSet QuietSet) Contains(taskName string) bool {
	_, found := quietSet.names[taskName]
	return found
}

// Len returns the number of quiet task names.
func (quietSet QuietSet) Len() int {
	return len(quietSet.names)
}

// ExecutionContext is the per-invocation state threaded through task recursion. It is
// a value: children and parallel branches receive copies, and SetRaw replaces the
// copy held by the current step list only.
type ExecutionContext struct {
	Prefix     string
	QuietTasks QuietSet
	Raw        bool
	Timestamp  bool
}

// NewExecutionContext builds the context of a top-level task invocation.
func NewExecutionContext(taskName string, quietTasks QuietSet, raw bool, timestamp bool) ExecutionContext {
	return ExecutionContext{
		Prefix:     taskName,
		QuietTasks: quietTasks,
		Raw:        raw,
		Timestamp:  timestamp,
	}
}

// WithRaw returns a copy with the raw toggle replaced.
func (executionContext ExecutionContext) WithRaw(raw bool) ExecutionContext {
	executionContext.Raw = raw
	return executionContext
}

// Child returns the context of a referenced sub task.
func (executionContext ExecutionContext) Child(taskName string) ExecutionContext {
	executionContext.Prefix = executionContext.Prefix + breadcrumbSeparatorConstant + taskName
	return executionContext
}
