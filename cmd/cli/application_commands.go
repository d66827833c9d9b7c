package cli

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/pilot/internal/taskfile"
	"github.com/tyemirov/pilot/internal/utils"
	flagutils "github.com/tyemirov/pilot/internal/utils/flags"
	"github.com/tyemirov/pilot/pkg/taskrunner"
)

const (
	loggerNotInitializedMessageConstant = "logger not initialized"
	runStartedMessageConstant           = "pilot run started"
	listingMessageConstant              = "pilot listing tasks"
	logFieldTasksConstant               = "tasks"
	logFieldQuietTasksConstant          = "quiet_tasks"
	logFieldTaskFileConstant            = "task_file"
	logFieldRawConstant                 = "raw"
	logFieldTimestampConstant           = "timestamp"
)

// runRootCommand lists the tasks of the Pilotfile when no task was requested and
// otherwise runs the requested tasks in order.
func (application *Application) runRootCommand(command *cobra.Command, arguments []string) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	initializationHandled, initializationError := application.handleConfigurationInitialization(command)
	if initializationError != nil {
		return initializationError
	}
	if initializationHandled {
		return nil
	}

	executionFlags, available := application.commandContextAccessor.ExecutionFlags(command.Context())
	if !available {
		executionFlags, _ = flagutils.ResolveExecutionFlags(command)
	}

	taskFile, loadError := taskfile.Load(executionFlags.TaskFile)
	if loadError != nil {
		return loadError
	}

	if len(arguments) == 0 {
		application.logger.Debug(listingMessageConstant, zap.String(logFieldTaskFileConstant, executionFlags.TaskFile))
		return taskFile.WriteListing(command.OutOrStdout())
	}

	return application.runTasks(command, taskFile, arguments, executionFlags)
}

func (application *Application) runTasks(command *cobra.Command, taskFile taskfile.TaskFile, taskNames []string, executionFlags utils.ExecutionFlags) error {
	dependencies, dependenciesError := taskrunner.BuildDependencies(
		taskrunner.DependenciesConfig{
			LoggerProvider: func() *zap.Logger { return application.logger },
			Launcher:       application.launcher,
			Clock:          application.clock,
		},
		taskrunner.DependenciesOptions{
			Command: command,
			Shell:   application.configuration.Run.Shell,
		},
	)
	if dependenciesError != nil {
		return dependenciesError
	}

	updatedContext := application.commandContextAccessor.WithRunIdentifier(command.Context(), dependencies.RunIdentifier)
	command.SetContext(updatedContext)

	dependencies.Logger.Info(
		runStartedMessageConstant,
		zap.Strings(logFieldTasksConstant, taskNames),
		zap.Strings(logFieldQuietTasksConstant, executionFlags.QuietTasks),
		zap.String(logFieldTaskFileConstant, executionFlags.TaskFile),
		zap.Bool(logFieldRawConstant, executionFlags.Raw),
		zap.Bool(logFieldTimestampConstant, executionFlags.Timestamp),
	)

	return taskrunner.Resolve(application.executorFactory, dependencies).Run(updatedContext, taskFile, taskrunner.RunOptions{
		TaskNames:   taskNames,
		QuietTasks:  executionFlags.QuietTasks,
		Raw:         executionFlags.Raw,
		Timestamp:   executionFlags.Timestamp,
		MetricsFile: executionFlags.MetricsFile,
	})
}

func (application *Application) handleConfigurationInitialization(command *cobra.Command) (bool, error) {
	if !application.persistentFlagChanged(command, configurationInitializationFlagNameConstant) {
		return false, nil
	}

	initializationPlan, planError := resolveConfigurationInitializationPlan(application.configurationInitializationScope)
	if planError != nil {
		return true, planError
	}

	configurationContent, _ := EmbeddedDefaultConfiguration()
	if writeError := writeConfigurationFile(initializationPlan, configurationContent, application.configurationInitializationForced); writeError != nil {
		return true, writeError
	}

	application.logger.Info(
		configurationInitializationSuccessMessageConstant,
		zap.String(configurationFileFieldConstant, initializationPlan.FilePath),
	)

	return true, nil
}
