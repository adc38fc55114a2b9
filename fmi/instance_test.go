package fmi

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ball is a minimal free-fall model used to drive the state machine.
type ball struct {
	Time float64 `fmi:"time"`
	H    float64 `fmi:"h"`
	V    float64 `fmi:"v"`
	G    float64 `fmi:"g"`
	E    float64 `fmi:"e"`
	U    float64 `fmi:"u"`
	Max  float64 `fmi:"max"`

	next   Status
	events []string
}

func (b *ball) Define(reg *Registry) error {
	decls := []Variable{
		&Real{Attributes: Attributes{Name: "time", Causality: Independent}},
		&Real{Attributes: Attributes{Name: "h", Causality: Output, Initial: Exact}, Start: Ptr(1.0)},
		&Real{Attributes: Attributes{Name: "v", Causality: Output, Initial: Exact}, Start: Ptr(0.0)},
		&Real{Attributes: Attributes{Name: "g", Causality: Parameter, Variability: Fixed}, Start: Ptr(-9.81)},
		&Real{Attributes: Attributes{Name: "e", Causality: Parameter, Variability: Tunable}, Start: Ptr(0.7)},
		&Real{Attributes: Attributes{Name: "u", Causality: Input}, Start: Ptr(0.0)},
		&Real{Attributes: Attributes{Name: "max", Variability: Constant, Causality: Output}, Start: Ptr(10.0)},
	}
	for _, v := range decls {
		if _, err := reg.Register(v); err != nil {
			return err
		}
	}
	return nil
}

func (b *ball) DoStep(currentTime, stepSize float64) Status {
	b.V += b.G * stepSize
	b.H += b.V * stepSize
	b.Time = currentTime + stepSize
	return b.next
}

func (b *ball) ModelInfo() ModelInfo { return ModelInfo{Name: "Ball", Author: "tests"} }

func (b *ball) EnterInitialization(startTime float64) error {
	b.events = append(b.events, "enter")
	return nil
}

func (b *ball) ExitInitialization() error {
	b.events = append(b.events, "exit")
	return nil
}

func (b *ball) Terminate() error {
	b.events = append(b.events, "terminate")
	return nil
}

func (b *ball) Reset() error {
	b.events = append(b.events, "reset")
	return nil
}

func newBall(t *testing.T, opts ...InstanceOption) (*Instance, *ball) {
	t.Helper()
	b := &ball{}
	inst, err := Instantiate("ball1", b, FMI2, opts...)
	require.NoError(t, err)
	return inst, b
}

func ref(t *testing.T, inst *Instance, name string) ValueReference {
	t.Helper()
	v, err := inst.Registry().ByName(name)
	require.NoError(t, err)
	return v.Ref()
}

func TestInstantiate_AppliesStartValues(t *testing.T) {
	inst, b := newBall(t)

	assert.Equal(t, StateInstantiated, inst.State())
	assert.Equal(t, 1.0, b.H)
	assert.Equal(t, -9.81, b.G)
	assert.Equal(t, 10.0, b.Max)

	h, err := inst.Get(ref(t, inst, "h"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, h)
}

func TestInstantiate_DefineError_Wrapped(t *testing.T) {
	_, err := Instantiate("bad", &badModel{}, FMI2)
	var dup *DuplicateNameError
	require.ErrorAs(t, err, &dup)
	assert.Contains(t, err.Error(), "instance bad")
}

type badModel struct{}

func (badModel) Define(reg *Registry) error {
	var x float64
	reg.MustRegister(&Real{Attributes: Attributes{Name: "x", Causality: Input}, Start: Ptr(0.0), Bind: Float64(&x)})
	_, err := reg.Register(&Real{Attributes: Attributes{Name: "x", Causality: Input}, Start: Ptr(0.0), Bind: Float64(&x)})
	return err
}

func (badModel) DoStep(float64, float64) Status { return StatusOK }

func TestInstance_Lifecycle(t *testing.T) {
	// GIVEN an instantiated model
	inst, b := newBall(t)

	// WHEN it is initialized, stepped twice and terminated
	require.NoError(t, inst.Initialize(0))
	assert.Equal(t, StateInitialized, inst.State())

	status, err := inst.DoStep(0, 0.1)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	assert.Equal(t, StateStepping, inst.State())
	status, err = inst.DoStep(0.1, 0.1)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, status)
	require.NoError(t, inst.Terminate())

	// THEN the hooks ran in order and time advanced
	assert.Equal(t, StateTerminated, inst.State())
	assert.Equal(t, []string{"enter", "exit", "terminate"}, b.events)
	assert.InDelta(t, 0.2, inst.Time(), 1e-12)
	assert.Less(t, b.H, 1.0)
}

func TestInstance_OperationsOutOfOrder_InvalidState(t *testing.T) {
	inst, _ := newBall(t)

	_, err := inst.DoStep(0, 0.1)
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "DoStep", invalid.Op)
	assert.Equal(t, StateInstantiated, invalid.State)

	assert.ErrorAs(t, inst.ExitInitializationMode(), &invalid)
	assert.ErrorAs(t, inst.Terminate(), &invalid)

	require.NoError(t, inst.Initialize(0))
	assert.ErrorAs(t, inst.EnterInitializationMode(0), &invalid)
}

func TestInstance_DoStep_NonPositiveStep(t *testing.T) {
	inst, _ := newBall(t)
	require.NoError(t, inst.Initialize(0))

	for _, dt := range []float64{0, -0.1, math.NaN(), math.Inf(-1)} {
		_, err := inst.DoStep(0, dt)
		assert.ErrorContains(t, err, "step size must be positive", "dt=%v", dt)
		assert.Equal(t, StateInitialized, inst.State())
		assert.Equal(t, 0.0, inst.Time())
	}
}

func TestInstance_DoStep_StatusTransitions(t *testing.T) {
	tests := []struct {
		status    Status
		wantState State
		advances  bool
	}{
		{StatusOK, StateStepping, true},
		{StatusWarning, StateStepping, true},
		{StatusDiscard, StateStepping, false},
		{StatusError, StateFailed, false},
		{StatusFatal, StateFailed, false},
	}
	for _, tc := range tests {
		t.Run(tc.status.String(), func(t *testing.T) {
			inst, b := newBall(t)
			require.NoError(t, inst.Initialize(1))
			b.next = tc.status

			status, err := inst.DoStep(1, 0.5)
			require.NoError(t, err)

			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.wantState, inst.State())
			assert.Equal(t, tc.status, inst.LastStatus())
			if tc.advances {
				assert.Equal(t, 1.5, inst.Time())
			} else {
				assert.Equal(t, 1.0, inst.Time())
			}
		})
	}
}

func TestInstance_Failed_RejectsStepAndSet(t *testing.T) {
	// GIVEN an instance whose step returned error
	inst, b := newBall(t)
	require.NoError(t, inst.Initialize(0))
	b.next = StatusError
	_, err := inst.DoStep(0, 0.1)
	require.NoError(t, err)
	require.Equal(t, StateFailed, inst.State())

	// THEN DoStep and Set are refused but Get still works by default
	var invalid *InvalidStateError
	_, err = inst.DoStep(0.1, 0.1)
	assert.ErrorAs(t, err, &invalid)
	assert.ErrorAs(t, inst.Set(ref(t, inst, "u"), 1.0), &invalid)
	_, err = inst.Get(ref(t, inst, "h"))
	assert.NoError(t, err)
}

func TestInstance_Failed_GetPolicy(t *testing.T) {
	inst, b := newBall(t, WithAllowGetAfterFailure(false))
	require.NoError(t, inst.Initialize(0))
	b.next = StatusFatal
	_, err := inst.DoStep(0, 0.1)
	require.NoError(t, err)

	_, err = inst.Get(ref(t, inst, "h"))
	var invalid *InvalidStateError
	assert.ErrorAs(t, err, &invalid)

	// fatal cannot be reset
	assert.ErrorAs(t, inst.Reset(), &invalid)
}

func TestInstance_SetPolicy(t *testing.T) {
	inst, _ := newBall(t)
	var notSettable *NotSettableError

	// Before initialization: exact parameters and inputs may be set
	require.NoError(t, inst.Set(ref(t, inst, "g"), -1.62))
	require.NoError(t, inst.Set(ref(t, inst, "h"), 2.0))
	require.NoError(t, inst.Set(ref(t, inst, "u"), 1.0))
	// constants and the independent variable never
	assert.ErrorAs(t, inst.Set(ref(t, inst, "max"), 1.0), &notSettable)
	assert.ErrorAs(t, inst.Set(ref(t, inst, "time"), 1.0), &notSettable)

	require.NoError(t, inst.Initialize(0))

	// After initialization: fixed parameters and outputs are locked
	assert.ErrorAs(t, inst.Set(ref(t, inst, "g"), -9.81), &notSettable)
	assert.ErrorAs(t, inst.Set(ref(t, inst, "h"), 1.0), &notSettable)
	// inputs and tunable parameters stay open
	assert.NoError(t, inst.Set(ref(t, inst, "u"), 2.0))
	assert.NoError(t, inst.Set(ref(t, inst, "e"), 0.5))

	require.NoError(t, inst.Terminate())
	var invalid *InvalidStateError
	assert.ErrorAs(t, inst.Set(ref(t, inst, "u"), 3.0), &invalid)
}

func TestInstance_Set_UnknownAndMismatch(t *testing.T) {
	inst, _ := newBall(t)

	var unknown *UnknownVariableError
	assert.ErrorAs(t, inst.Set(999, 1.0), &unknown)

	var mismatch *TypeMismatchError
	assert.ErrorAs(t, inst.Set(ref(t, inst, "u"), "fast"), &mismatch)
}

func TestInstance_Reset_RestoresStartValues(t *testing.T) {
	// GIVEN an instance that has stepped and been terminated
	inst, b := newBall(t)
	require.NoError(t, inst.Set(ref(t, inst, "g"), -1.62))
	require.NoError(t, inst.Initialize(0))
	_, err := inst.DoStep(0, 0.5)
	require.NoError(t, err)
	require.NoError(t, inst.Terminate())

	// WHEN reset
	require.NoError(t, inst.Reset())

	// THEN values are those captured at instantiation
	assert.Equal(t, StateInstantiated, inst.State())
	assert.Equal(t, 1.0, b.H)
	assert.Equal(t, 0.0, b.V)
	assert.Equal(t, -9.81, b.G)
	assert.Equal(t, 0.0, inst.Time())
	assert.Contains(t, b.events, "reset")

	// AND it can run again
	require.NoError(t, inst.Initialize(0))
}

func TestInstance_Reset_AfterError(t *testing.T) {
	inst, b := newBall(t)
	require.NoError(t, inst.Initialize(0))
	b.next = StatusError
	_, err := inst.DoStep(0, 0.1)
	require.NoError(t, err)

	require.NoError(t, inst.Reset())
	assert.Equal(t, StateInstantiated, inst.State())
}

func TestInstance_DescriptorMatchesDispatch(t *testing.T) {
	inst, _ := newBall(t)

	out, err := inst.Descriptor(DescriptorOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(out), `modelName="Ball"`)
	assert.Contains(t, string(out), `author="tests"`)

	// every reference in the descriptor is accepted by Get
	for _, v := range inst.Registry().Variables() {
		_, err := inst.Get(v.Ref())
		assert.NoError(t, err, v.Name())
	}
}

func TestInstance_InitializerError_Fails(t *testing.T) {
	m := &failingInit{}
	inst, err := Instantiate("fi", m, FMI2)
	require.NoError(t, err)

	err = inst.Initialize(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInit))
	assert.Equal(t, StateFailed, inst.State())
}

var errInit = errors.New("sensor offline")

type failingInit struct {
	X float64 `fmi:"x"`
}

func (f *failingInit) Define(reg *Registry) error {
	_, err := reg.Register(&Real{Attributes: Attributes{Name: "x", Causality: Output}})
	return err
}
func (f *failingInit) DoStep(float64, float64) Status    { return StatusOK }
func (f *failingInit) EnterInitialization(float64) error { return errInit }
func (f *failingInit) ExitInitialization() error         { return nil }
