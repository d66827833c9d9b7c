package console

import (
	"fmt"
	"sync/atomic"
)

const (
	paletteSizeConstant           = 7
	paletteBaseCodeConstant       = 31
	initialColorCounterConstant   = 1
	colorSequenceTemplateConstant = "\x1b[0;%dm"
	resetSequenceConstant         = "\x1b[0m"
	labelWidthSeparatorConstant   = 1
	minimumPaddingConstant        = 0
)

// Color is an ANSI foreground color taken from the fixed seven color palette.
type Color int

// Code returns the SGR foreground code of the color.
func (color Color) Code() int {
	return int(color)
}

// Sequence returns the escape sequence that switches the terminal to the color.
func (color Color) Sequence() string {
	return fmt.Sprintf(colorSequenceTemplateConstant, color.Code())
}

// Registry tracks the rotating color assignment of active shell steps and the widest
// label printed so far. One Registry is shared by every branch of a run.
type Registry struct {
	activeColorCounter  atomic.Int64
	labelWidthWatermark atomic.Int64
}

// NewRegistry creates a registry whose first color slot is the second palette entry.
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.activeColorCounter.Store(initialColorCounterConstant)
	return registry
}

// AcquireColor takes the next color slot for a starting shell step.
func (registry *Registry) AcquireColor() Color {
	slot := registry.activeColorCounter.Add(1) - 1
	return colorForSlot(slot)
}

// ReleaseColor frees the slot of a finished shell step so its color can be reused.
func (registry *Registry) ReleaseColor() {
	registry.activeColorCounter.Add(-1)
}

// ActiveColorCounter reports the current counter value.
func (registry *Registry) ActiveColorCounter() int64 {
	return registry.activeColorCounter.Load()
}

// RegisterLabelWidth raises the watermark to width when it is wider than anything seen.
func (registry *Registry) RegisterLabelWidth(width int) {
	candidate := int64(width)
	for {
		current := registry.labelWidthWatermark.Load()
		if candidate <= current {
			return
		}
		if registry.labelWidthWatermark.CompareAndSwap(current, candidate) {
			return
		}
	}
}

// Watermark returns the widest registered label width.
func (registry *Registry) Watermark() int {
	return int(registry.labelWidthWatermark.Load())
}

// Padding returns the number of spaces that align a label of the given width with the watermark.
func (registry *Registry) Padding(width int) int {
	padding := registry.Watermark() - width
	if padding < minimumPaddingConstant {
		return minimumPaddingConstant
	}
	return padding
}

// LabelWidth is the column width a task label occupies including its trailing colon.
func LabelWidth(label string) int {
	return len(label) + labelWidthSeparatorConstant
}

func colorForSlot(slot int64) Color {
	paletteIndex := slot % paletteSizeConstant
	if paletteIndex < 0 {
		paletteIndex += paletteSizeConstant
	}
	return Color(paletteBaseCodeConstant + int(paletteIndex))
}
