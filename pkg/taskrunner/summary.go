package taskrunner

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/tyemirov/pilot/internal/taskfile"
	"github.com/tyemirov/pilot/internal/telemetry"
)

const (
	summaryFailedMessageConstant  = "run summary unavailable"
	textfileFailedMessageConstant = "metrics textfile not written"
	textfileFieldNameConstant     = "metrics_file"
)

type summaryExecutor struct {
	delegate     Executor
	dependencies DependenciesResult
}

// Run delegates to the wrapped executor, then logs the summary line and writes the
// metrics textfile when one was requested. A textfile failure is joined to the run error.
func (executor summaryExecutor) Run(ctx context.Context, taskFile taskfile.TaskFile, options RunOptions) error {
	runError := executor.delegate.Run(ctx, taskFile, options)
	executor.logSummary()
	if textfileError := executor.writeTextfile(options.MetricsFile); textfileError != nil {
		return errors.Join(runError, textfileError)
	}
	return runError
}

func (executor summaryExecutor) logSummary() {
	metrics := executor.dependencies.Metrics
	logger := executor.logger()
	if metrics == nil {
		return
	}
	snapshot, snapshotError := metrics.Snapshot()
	if snapshotError != nil {
		logger.Warn(summaryFailedMessageConstant, zap.Error(snapshotError))
		return
	}
	logger.Info(telemetry.RenderSummaryLine(snapshot))
}

func (executor summaryExecutor) writeTextfile(filePath string) error {
	metrics := executor.dependencies.Metrics
	if metrics == nil || len(filePath) == 0 {
		return nil
	}
	if writeError := metrics.WriteTextfile(filePath); writeError != nil {
		executor.logger().Error(textfileFailedMessageConstant, zap.String(textfileFieldNameConstant, filePath), zap.Error(writeError))
		return writeError
	}
	return nil
}

func (executor summaryExecutor) logger() *zap.Logger {
	if executor.dependencies.Logger == nil {
		return zap.NewNop()
	}
	return executor.dependencies.Logger
}
