package host

import (
	"context"
	"fmt"
	"math"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/fmi/trace"
	"github.com/sirupsen/logrus"
)

// timeEpsilon is the relative tolerance used when deciding whether the
// stop time has been reached.
const timeEpsilon = 1e-9

// StepError reports a step the instance could not complete.
type StepError struct {
	Instance string
	Time     float64
	Status   fmi.Status
}

func (e *StepError) Error() string {
	return fmt.Sprintf("instance %s: step at t=%s returned %s", e.Instance, fmi.FormatFloat(e.Time), e.Status)
}

// Result summarizes one run.
type Result struct {
	Instance string
	// Steps counts completed communication steps, retries excluded.
	Steps     int
	Retries   int
	Warnings  int
	FinalTime float64
	State     fmi.State
	Status    fmi.Status
}

// Run initializes inst at the experiment start, steps it to the stop time and
// terminates it. A discarded step is retried once with half the step size.
// When tr is non-nil the initial values and every completed step are captured.
// The context is checked between steps.
func Run(ctx context.Context, inst *fmi.Instance, exp Experiment, tr *trace.Trace) (*Result, error) {
	return run(ctx, inst, exp, tr, nil)
}

func run(ctx context.Context, inst *fmi.Instance, exp Experiment, tr *trace.Trace, m *Metrics) (*Result, error) {
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("instance %s: %w", inst.Name(), err)
	}
	res := &Result{Instance: inst.Name()}
	finish := func(err error) (*Result, error) {
		res.FinalTime = inst.Time()
		res.State = inst.State()
		res.Status = inst.LastStatus()
		m.finish(res)
		return res, err
	}

	if err := inst.Initialize(exp.StartTime); err != nil {
		return finish(err)
	}
	if tr != nil {
		if err := tr.Capture(inst, exp.StartTime, fmi.StatusOK); err != nil {
			return finish(err)
		}
	}

	t := exp.StartTime
	for exp.StopTime-t > timeEpsilon*math.Max(1, math.Abs(exp.StopTime)) {
		if err := ctx.Err(); err != nil {
			logrus.Warnf("[%s t=%s] run cancelled", inst.Name(), fmi.FormatFloat(t))
			return finish(err)
		}
		dt := math.Min(exp.StepSize, exp.StopTime-t)
		status, err := inst.DoStep(t, dt)
		if err != nil {
			return finish(err)
		}
		if status == fmi.StatusDiscard {
			res.Retries++
			m.retry(inst.Name())
			dt /= 2
			logrus.Infof("[%s t=%s] retrying discarded step with %s", inst.Name(), fmi.FormatFloat(t), fmi.FormatFloat(dt))
			if status, err = inst.DoStep(t, dt); err != nil {
				return finish(err)
			}
		}
		switch status {
		case fmi.StatusOK:
		case fmi.StatusWarning:
			res.Warnings++
		default:
			if inst.State() != fmi.StateFailed {
				// discarded twice; the model is still consistent, so release it
				_ = inst.Terminate()
			}
			return finish(&StepError{Instance: inst.Name(), Time: t, Status: status})
		}
		t = inst.Time()
		res.Steps++
		m.step(inst.Name(), status, t)
		if tr != nil {
			if err := tr.Capture(inst, t, status); err != nil {
				return finish(err)
			}
		}
	}

	if err := inst.Terminate(); err != nil {
		return finish(err)
	}
	logrus.Debugf("[%s] finished %d steps at t=%s", inst.Name(), res.Steps, fmi.FormatFloat(t))
	return finish(nil)
}
