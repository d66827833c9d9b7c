package console

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	timestampLayoutConstant              = "15:04:05"
	taskStartedTemplateConstant          = "%s> %s\n"
	taskFinishedTemplateConstant         = "%sfinished %s\n"
	streamLineTemplateConstant           = "%s%s%s:%s%s %s\n"
	timestampPrefixTemplateConstant      = "%s "
	writerNotConfiguredMessageConstant   = "console writer not configured"
	registryNotConfiguredMessageConstant = "console registry not configured"
)

var (
	// ErrWriterNotConfigured indicates the console was built without an output writer.
	ErrWriterNotConfigured = errors.New(writerNotConfiguredMessageConstant)
	// ErrRegistryNotConfigured indicates the console was built without a registry.
	ErrRegistryNotConfigured = errors.New(registryNotConfiguredMessageConstant)
)

// Clock supplies the wall time used for timestamp prefixes.
type Clock func() time.Time

// Console serializes every line written by concurrently running tasks onto one writer.
type Console struct {
	writer   io.Writer
	registry *Registry
	clock    Clock
	mutex    sync.Mutex
}

// NewConsole builds a console writing to writer and aligning labels through registry.
func NewConsole(writer io.Writer, registry *Registry, clock Clock) (*Console, error) {
	if writer == nil {
		return nil, ErrWriterNotConfigured
	}
	if registry == nil {
		return nil, ErrRegistryNotConfigured
	}
	if clock == nil {
		clock = time.Now
	}
	return &Console{writer: writer, registry: registry, clock: clock}, nil
}

// TaskStarted prints the entry trace of a task.
func (console *Console) TaskStarted(breadcrumb string, timestamp bool) error {
	return console.printf(taskStartedTemplateConstant, console.timestampPrefix(timestamp), breadcrumb)
}

// TaskFinished prints the exit trace of a task.
func (console *Console) TaskFinished(breadcrumb string, timestamp bool) error {
	return console.printf(taskFinishedTemplateConstant, console.timestampPrefix(timestamp), breadcrumb)
}

// OpenStream registers the label width of a task and returns a writer for its captured lines.
func (console *Console) OpenStream(label string, color Color, timestamp bool) *TaskStream {
	labelWidth := LabelWidth(label)
	console.registry.RegisterLabelWidth(labelWidth)
	return &TaskStream{
		console:    console,
		label:      label,
		color:      color,
		labelWidth: labelWidth,
		timestamp:  timestamp,
	}
}

func (console *Console) timestampPrefix(timestamp bool) string {
	if !timestamp {
		return ""
	}
	return fmt.Sprintf(timestampPrefixTemplateConstant, console.clock().Format(timestampLayoutConstant))
}

func (console *Console) printf(template string, arguments ...any) error {
	console.mutex.Lock()
	defer console.mutex.Unlock()
	_, writeError := fmt.Fprintf(console.writer, template, arguments...)
	return writeError
}

// TaskStream prints sanitized, color prefixed lines for one running shell step.
type TaskStream struct {
	console    *Console
	label      string
	color      Color
	labelWidth int
	timestamp  bool
}

// WriteLine sanitizes one captured line and prints it behind the aligned task label.
func (stream *TaskStream) WriteLine(capturedLine string) error {
	padding := strings.Repeat(" ", stream.console.registry.Padding(stream.labelWidth))
	return stream.console.printf(
		streamLineTemplateConstant,
		stream.console.timestampPrefix(stream.timestamp),
		stream.color.Sequence(),
		stream.label,
		resetSequenceConstant,
		padding,
		Sanitize(capturedLine),
	)
}

// Label returns the task label the stream prints.
func (stream *TaskStream) Label() string {
	return stream.label
}

// Color returns the color assigned to the stream.
func (stream *TaskStream) Color() Color {
	return stream.color
}
