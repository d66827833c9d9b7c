// Package taskrunner wires the pilot collaborators (console, color registry, shell
// executor, run metrics and the task executor) behind the `Executor` interface.
// CLI packages build the dependencies once with `BuildDependencies` and obtain a
// runner through `Resolve`, while tests swap in fake launchers or executors.
package taskrunner
