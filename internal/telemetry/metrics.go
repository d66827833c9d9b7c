package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tyemirov/pilot/internal/execshell"
)

const (
	metricsNamespaceConstant             = "pilot"
	taskInvocationsMetricNameConstant    = "task_invocations_total"
	shellStepsMetricNameConstant         = "shell_steps_total"
	nonzeroExitsMetricNameConstant       = "shell_nonzero_exits_total"
	spawnFailuresMetricNameConstant      = "shell_spawn_failures_total"
	activeShellStepsMetricNameConstant   = "active_shell_steps"
	shellStepDurationMetricNameConstant  = "shell_step_duration_seconds"
	modeLabelNameConstant                = "mode"
	taskInvocationsHelpConstant          = "Resolved task invocations, including sub tasks and parallel branches."
	shellStepsHelpConstant               = "Shell steps started, by terminal mode."
	nonzeroExitsHelpConstant             = "Shell steps that exited with a non-zero status."
	spawnFailuresHelpConstant            = "Shell steps that could not be started or read."
	activeShellStepsHelpConstant         = "Shell steps currently running."
	shellStepDurationHelpConstant        = "Wall time of completed shell steps."
	registrationErrorTemplateConstant    = "telemetry.register.%s: %w"
	textfileWriteErrorTemplateConstant   = "telemetry.textfile: %w"
	metricsGatherErrorTemplateConstant   = "telemetry.gather: %w"
	summaryLineTemplateConstant          = "Summary: tasks=%d shell_steps=%d nonzero_exits=%d duration_human=%s duration_ms=%d"
	zeroDurationHumanConstant            = "0s"
	fullyQualifiedNameTemplateConstant   = "%s_%s"
	initialSnapshotCapacityConstant      = 4
	millisecondsRoundingFallbackConstant = time.Millisecond
)

// Clock supplies the wall time used to measure the run.
type Clock func() time.Time

// Metrics records run statistics on a private prometheus registry.
type Metrics struct {
	registry          *prometheus.Registry
	taskInvocations   prometheus.Counter
	shellSteps        *prometheus.CounterVec
	nonzeroExits      prometheus.Counter
	spawnFailures     prometheus.Counter
	activeShellSteps  prometheus.Gauge
	shellStepDuration prometheus.Histogram
	clock             Clock
	startedAt         time.Time
}

// Snapshot is a point in time view of the run counters.
type Snapshot struct {
	Tasks         int
	ShellSteps    int
	NonzeroExits  int
	SpawnFailures int
	Duration      time.Duration
}

// NewMetrics creates the collectors and registers them on a fresh registry. The run
// duration is measured from this call.
func NewMetrics(clock Clock) (*Metrics, error) {
	if clock == nil {
		clock = time.Now
	}
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		taskInvocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      taskInvocationsMetricNameConstant,
			Help:      taskInvocationsHelpConstant,
		}),
		shellSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      shellStepsMetricNameConstant,
			Help:      shellStepsHelpConstant,
		}, []string{modeLabelNameConstant}),
		nonzeroExits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      nonzeroExitsMetricNameConstant,
			Help:      nonzeroExitsHelpConstant,
		}),
		spawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespaceConstant,
			Name:      spawnFailuresMetricNameConstant,
			Help:      spawnFailuresHelpConstant,
		}),
		activeShellSteps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespaceConstant,
			Name:      activeShellStepsMetricNameConstant,
			Help:      activeShellStepsHelpConstant,
		}),
		shellStepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespaceConstant,
			Name:      shellStepDurationMetricNameConstant,
			Help:      shellStepDurationHelpConstant,
			Buckets:   prometheus.DefBuckets,
		}),
		clock: clock,
	}

	collectors := map[string]prometheus.Collector{
		taskInvocationsMetricNameConstant:   metrics.taskInvocations,
		shellStepsMetricNameConstant:        metrics.shellSteps,
		nonzeroExitsMetricNameConstant:      metrics.nonzeroExits,
		spawnFailuresMetricNameConstant:     metrics.spawnFailures,
		activeShellStepsMetricNameConstant:  metrics.activeShellSteps,
		shellStepDurationMetricNameConstant: metrics.shellStepDuration,
	}
	for collectorName, collector := range collectors {
		if registrationError := metrics.registry.Register(collector); registrationError != nil {
			return nil, fmt.Errorf(registrationErrorTemplateConstant, collectorName, registrationError)
		}
	}

	metrics.startedAt = clock()
	return metrics, nil
}

// Registry exposes the private registry holding the run metrics.
func (metrics *Metrics) Registry() *prometheus.Registry {
	return metrics.registry
}

// TaskInvoked counts a resolved task.
func (metrics *Metrics) TaskInvoked(string) {
	metrics.taskInvocations.Inc()
}

// ShellStepStarted counts a starting shell step.
func (metrics *Metrics) ShellStepStarted(mode execshell.ExecutionMode) {
	metrics.shellSteps.WithLabelValues(string(mode)).Inc()
	metrics.activeShellSteps.Inc()
}

// ShellStepFinished records the duration and exit status of a shell step.
func (metrics *Metrics) ShellStepFinished(mode execshell.ExecutionMode, duration time.Duration, exitCode int) {
	metrics.activeShellSteps.Dec()
	metrics.shellStepDuration.Observe(duration.Seconds())
	if exitCode != 0 {
		metrics.nonzeroExits.Inc()
	}
}

// ShellStepFailed counts a shell step that could not be started or read.
func (metrics *Metrics) ShellStepFailed(mode execshell.ExecutionMode) {
	metrics.activeShellSteps.Dec()
	metrics.spawnFailures.Inc()
}

// Snapshot gathers the current counter values.
func (metrics *Metrics) Snapshot() (Snapshot, error) {
	families, gatherError := metrics.registry.Gather()
	if gatherError != nil {
		return Snapshot{}, fmt.Errorf(metricsGatherErrorTemplateConstant, gatherError)
	}

	totals := make(map[string]float64, initialSnapshotCapacityConstant)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if counter := metric.GetCounter(); counter != nil {
				totals[family.GetName()] += counter.GetValue()
			}
		}
	}

	return Snapshot{
		Tasks:         int(totals[qualifiedName(taskInvocationsMetricNameConstant)]),
		ShellSteps:    int(totals[qualifiedName(shellStepsMetricNameConstant)]),
		NonzeroExits:  int(totals[qualifiedName(nonzeroExitsMetricNameConstant)]),
		SpawnFailures: int(totals[qualifiedName(spawnFailuresMetricNameConstant)]),
		Duration:      metrics.clock().Sub(metrics.startedAt),
	}, nil
}

// WriteTextfile writes the registry in the node exporter textfile format.
func (metrics *Metrics) WriteTextfile(filePath string) error {
	if writeError := prometheus.WriteToTextfile(filePath, metrics.registry); writeError != nil {
		return fmt.Errorf(textfileWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// RenderSummaryLine returns the one line run summary logged after the requested tasks.
func RenderSummaryLine(snapshot Snapshot) string {
	return fmt.Sprintf(summaryLineTemplateConstant,
		snapshot.Tasks,
		snapshot.ShellSteps,
		snapshot.NonzeroExits,
		formatDuration(snapshot.Duration),
		snapshot.Duration.Milliseconds(),
	)
}

func formatDuration(value time.Duration) string {
	if value <= 0 {
		return zeroDurationHumanConstant
	}
	rounded := value.Round(time.Millisecond)
	if rounded == 0 {
		rounded = millisecondsRoundingFallbackConstant
	}
	return rounded.String()
}

func qualifiedName(metricName string) string {
	return fmt.Sprintf(fullyQualifiedNameTemplateConstant, metricsNamespaceConstant, metricName)
}
