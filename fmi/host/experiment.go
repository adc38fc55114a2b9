// Package host is a reference co-simulation host. It drives fmi.Instance
// values through an experiment window, one communication step at a time.
package host

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
)

// Experiment is the simulation window a host runs an instance over.
type Experiment struct {
	StartTime float64
	StopTime  float64
	StepSize  float64
}

// DefaultWindow is used for every field the model's default experiment leaves unset.
var DefaultWindow = Experiment{StartTime: 0, StopTime: 1, StepSize: 0.01}

// ExperimentFrom fills DefaultWindow with the fields set in d.
func ExperimentFrom(d *fmi.DefaultExperiment) Experiment {
	e := DefaultWindow
	if d == nil {
		return e
	}
	if d.StartTime != nil {
		e.StartTime = *d.StartTime
	}
	if d.StopTime != nil {
		e.StopTime = *d.StopTime
	}
	if d.StepSize != nil {
		e.StepSize = *d.StepSize
	}
	return e
}

// Validate checks that the window is non-empty and the step positive.
func (e Experiment) Validate() error {
	if e.StopTime <= e.StartTime {
		return fmt.Errorf("stop time %s must be after start time %s", fmi.FormatFloat(e.StopTime), fmi.FormatFloat(e.StartTime))
	}
	if e.StepSize <= 0 {
		return fmt.Errorf("step size must be positive, got %s", fmi.FormatFloat(e.StepSize))
	}
	return nil
}

// Steps is the number of communication steps needed to cover the window.
func (e Experiment) Steps() int {
	n := (e.StopTime - e.StartTime) / e.StepSize
	steps := int(n)
	if n-float64(steps) > timeEpsilon*n {
		steps++
	}
	return steps
}
