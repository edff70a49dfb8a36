package wizard

import (
	"errors"
	"fmt"
)

// Step is one screen of a wizard
type Step struct {
	Title       string
	Icon        string
	Description string
}

// ErrNoSteps is returned when a wizard is built from an empty sequence
var ErrNoSteps = errors.New("wizard has no steps")

// Engine walks a fixed, ordered sequence of steps. The index always stays in
// [0, Len()); moving past either end is a no-op.
type Engine struct {
	steps []Step
	index int
}

// NewEngine creates an Engine positioned at the first step
func NewEngine(steps []Step) (*Engine, error) {
	if len(steps) == 0 {
		return nil, ErrNoSteps
	}
	copied := make([]Step, len(steps))
	copy(copied, steps)
	return &Engine{steps: copied}, nil
}

func (e *Engine) Index() int {
	return e.index
}

func (e *Engine) Len() int {
	return len(e.steps)
}

// Current returns the step at the current index
func (e *Engine) Current() Step {
	return e.steps[e.index]
}

// Steps returns a copy of the sequence
func (e *Engine) Steps() []Step {
	out := make([]Step, len(e.steps))
	copy(out, e.steps)
	return out
}

func (e *Engine) IsFirst() bool {
	return e.index == 0
}

func (e *Engine) IsLast() bool {
	return e.index == len(e.steps)-1
}

// Next advances one step and reports whether it moved
func (e *Engine) Next() bool {
	if e.IsLast() {
		return false
	}
	e.index++
	return true
}

// Prev goes back one step and reports whether it moved
func (e *Engine) Prev() bool {
	if e.IsFirst() {
		return false
	}
	e.index--
	return true
}

// jumpTo moves directly to index
func (e *Engine) jumpTo(index int) error {
	if index < 0 || index >= len(e.steps) {
		return fmt.Errorf("step %d out of range [0, %d)", index, len(e.steps))
	}
	e.index = index
	return nil
}

// Reset returns to the first step
func (e *Engine) Reset() {
	e.index = 0
}
