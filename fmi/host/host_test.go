package host

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/gofmu/gofmu/fmi"
	"github.com/gofmu/gofmu/fmi/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integrator accumulates elapsed time into x and can be told to misbehave.
type integrator struct {
	X float64 `fmi:"x"`

	steps        int
	failAt       int
	failWith     fmi.Status
	discardAbove float64
	delay        time.Duration
}

func (m *integrator) Define(reg *fmi.Registry) error {
	_, err := reg.Register(&fmi.Real{
		Attributes: fmi.Attributes{Name: "x", Causality: fmi.Output, Initial: fmi.Exact},
		Start:      fmi.Ptr(0.0),
	})
	return err
}

func (m *integrator) DoStep(currentTime, stepSize float64) fmi.Status {
	if m.discardAbove > 0 && stepSize > m.discardAbove {
		return fmi.StatusDiscard
	}
	m.steps++
	m.X += stepSize
	if m.failAt > 0 && m.steps == m.failAt {
		return m.failWith
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	return fmi.StatusOK
}

func instantiate(t *testing.T, name string, m *integrator) *fmi.Instance {
	t.Helper()
	inst, err := fmi.Instantiate(name, m, fmi.FMI2)
	require.NoError(t, err)
	return inst
}

func TestExperimentFrom_FillsDefaults(t *testing.T) {
	e := ExperimentFrom(&fmi.DefaultExperiment{StopTime: fmi.Ptr(3.0)})
	assert.Equal(t, Experiment{StartTime: 0, StopTime: 3, StepSize: 0.01}, e)
	assert.Equal(t, DefaultWindow, ExperimentFrom(nil))
	assert.Equal(t, 300, e.Steps())
}

func TestExperiment_Validate(t *testing.T) {
	assert.NoError(t, Experiment{StopTime: 1, StepSize: 0.1}.Validate())
	assert.ErrorContains(t, Experiment{StartTime: 1, StopTime: 1, StepSize: 0.1}.Validate(), "stop time")
	assert.ErrorContains(t, Experiment{StopTime: 1}.Validate(), "step size")
}

func TestRun_CompletesWindow(t *testing.T) {
	// GIVEN a well-behaved model and a trace on its outputs
	m := &integrator{}
	inst := instantiate(t, "i_0", m)
	cols, err := trace.Columns(inst.Registry())
	require.NoError(t, err)
	tr := trace.New("i_0", trace.Config{Columns: cols})

	// WHEN run over [0, 1] with step 0.1
	res, err := Run(context.Background(), inst, Experiment{StopTime: 1, StepSize: 0.1}, tr)

	// THEN it takes ten steps and terminates
	require.NoError(t, err)
	assert.Equal(t, 10, res.Steps)
	assert.Equal(t, fmi.StateTerminated, res.State)
	assert.InDelta(t, 1.0, res.FinalTime, 1e-9)
	assert.InDelta(t, 1.0, m.X, 1e-9)
	// initial point plus one record per step
	assert.Len(t, tr.Steps, 11)
	assert.Equal(t, 0.0, tr.Steps[0].Values[0])
}

func TestRun_LastStepShortened(t *testing.T) {
	m := &integrator{}
	inst := instantiate(t, "i_0", m)

	res, err := Run(context.Background(), inst, Experiment{StopTime: 0.25, StepSize: 0.1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Steps)
	assert.InDelta(t, 0.25, res.FinalTime, 1e-12)
}

func TestRun_DiscardRetriedWithHalfStep(t *testing.T) {
	// GIVEN a model that discards steps larger than 0.06
	m := &integrator{discardAbove: 0.06}
	inst := instantiate(t, "i_0", m)

	// WHEN run with step 0.1
	res, err := Run(context.Background(), inst, Experiment{StopTime: 0.2, StepSize: 0.1}, nil)

	// THEN full steps are retried at 0.05 and the short final step is not
	require.NoError(t, err)
	assert.Equal(t, 3, res.Retries)
	assert.Equal(t, 4, res.Steps)
	assert.InDelta(t, 0.2, res.FinalTime, 1e-12)
}

func TestRun_DiscardTwice_StepError(t *testing.T) {
	m := &integrator{discardAbove: 0.01}
	inst := instantiate(t, "i_0", m)

	res, err := Run(context.Background(), inst, Experiment{StopTime: 1, StepSize: 0.1}, nil)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, fmi.StatusDiscard, stepErr.Status)
	assert.Equal(t, fmi.StateTerminated, res.State)
}

func TestRun_ErrorStatus_FailsInstance(t *testing.T) {
	m := &integrator{failAt: 3, failWith: fmi.StatusError}
	inst := instantiate(t, "i_0", m)

	res, err := Run(context.Background(), inst, Experiment{StopTime: 1, StepSize: 0.1}, nil)
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, fmi.StatusError, stepErr.Status)
	assert.InDelta(t, 0.2, stepErr.Time, 1e-12)
	assert.Equal(t, fmi.StateFailed, res.State)
	assert.Equal(t, 2, res.Steps)
}

func TestRun_CancelledContext(t *testing.T) {
	inst := instantiate(t, "i_0", &integrator{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, inst, Experiment{StopTime: 1, StepSize: 0.1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Steps)
}

func TestRunAll_IndependentInstances(t *testing.T) {
	// GIVEN four instances of the same model
	var jobs []Job
	var models []*integrator
	for i := 0; i < 4; i++ {
		m := &integrator{}
		models = append(models, m)
		jobs = append(jobs, Job{Instance: instantiate(t, fmt.Sprintf("i_%d", i), m), Experiment: Experiment{StopTime: 1, StepSize: 0.1}})
	}

	// WHEN run in parallel with two workers
	results, err := RunAll(context.Background(), jobs, 2)

	// THEN each ran its own window
	require.NoError(t, err)
	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, jobs[i].Instance.Name(), res.Instance)
		assert.Equal(t, 10, res.Steps)
		assert.InDelta(t, 1.0, models[i].X, 1e-9)
	}
	assert.Empty(t, Failed(results))
}

func TestRunAll_ErrorStatus_OthersContinue(t *testing.T) {
	jobs := []Job{
		{Instance: instantiate(t, "bad", &integrator{failAt: 1, failWith: fmi.StatusError}), Experiment: Experiment{StopTime: 1, StepSize: 0.1}},
		{Instance: instantiate(t, "good", &integrator{}), Experiment: Experiment{StopTime: 1, StepSize: 0.1}},
	}

	results, err := RunAll(context.Background(), jobs, 0)

	require.NoError(t, err)
	assert.Equal(t, fmi.StateFailed, results[0].State)
	assert.Equal(t, fmi.StateTerminated, results[1].State)
	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "bad", failed[0].Instance)
}

func TestRunAll_FatalStatus_CancelsOthers(t *testing.T) {
	// GIVEN a slow instance and one that fails fatally on its first step
	slow := &integrator{delay: time.Millisecond}
	jobs := []Job{
		{Instance: instantiate(t, "slow", slow), Experiment: Experiment{StopTime: 10, StepSize: 0.001}},
		{Instance: instantiate(t, "fatal", &integrator{failAt: 1, failWith: fmi.StatusFatal}), Experiment: Experiment{StopTime: 1, StepSize: 0.1}},
	}

	// WHEN run together
	results, err := RunAll(context.Background(), jobs, 0)

	// THEN the fatal error is returned and the slow run was cut short
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, fmi.StatusFatal, stepErr.Status)
	assert.Equal(t, "fatal", stepErr.Instance)
	assert.Less(t, results[0].Steps, 10000)
	assert.NotEqual(t, fmi.StateTerminated, results[0].State)
}
