package fmi

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// State is the life-cycle position of an Instance.
type State int

const (
	StateInstantiated State = iota
	StateInitializationMode
	StateInitialized
	StateStepping
	StateTerminated
	// StateFailed is terminal: only Get (by policy) and Reset after a
	// non-fatal error are honoured.
	StateFailed
)

var stateNames = map[State]string{
	StateInstantiated:       "instantiated",
	StateInitializationMode: "initializationMode",
	StateInitialized:        "initialized",
	StateStepping:           "stepping",
	StateTerminated:         "terminated",
	StateFailed:             "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Model is implemented by simulation components. Define declares the
// variables; DoStep advances the model's own state from currentTime by
// stepSize and reports how it went.
type Model interface {
	Define(reg *Registry) error
	DoStep(currentTime, stepSize float64) Status
}

// Describer supplies model-level descriptor attributes.
type Describer interface {
	ModelInfo() ModelInfo
}

// Initializer receives the initialization mode transitions.
type Initializer interface {
	EnterInitialization(startTime float64) error
	ExitInitialization() error
}

// Terminator is notified when the instance is terminated.
type Terminator interface {
	Terminate() error
}

// Resetter is notified after an instance has restored its start values.
type Resetter interface {
	Reset() error
}

type instanceConfig struct {
	allowGetAfterFailure bool
	registryOpts         []RegistryOption
}

// InstanceOption configures Instantiate.
type InstanceOption func(*instanceConfig)

// WithAllowGetAfterFailure controls whether Get is honoured once the
// instance has failed. Defaults to true.
func WithAllowGetAfterFailure(allow bool) InstanceOption {
	return func(c *instanceConfig) { c.allowGetAfterFailure = allow }
}

// WithRegistryOptions passes options to the instance's registry.
func WithRegistryOptions(opts ...RegistryOption) InstanceOption {
	return func(c *instanceConfig) { c.registryOpts = append(c.registryOpts, opts...) }
}

// Instance is one running copy of a model: its own registry, dispatch
// table and state. Instances share nothing.
//
// Thread-safety: NOT thread-safe. All methods must be called from the same goroutine.
type Instance struct {
	name     string
	model    Model
	reg      *Registry
	dispatch *DispatchTable
	cfg      instanceConfig

	state      State
	time       float64
	lastStatus Status
	starts     []any
}

// Instantiate defines the model's variables in a fresh registry, binds the
// dispatch table and writes the declared start values into the model.
func Instantiate(name string, model Model, version Version, opts ...InstanceOption) (*Instance, error) {
	cfg := instanceConfig{allowGetAfterFailure: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	reg := NewRegistry(version, cfg.registryOpts...)
	if err := model.Define(reg); err != nil {
		return nil, fmt.Errorf("instance %s: defining variables: %w", name, err)
	}
	dispatch, err := NewDispatchTable(reg, model)
	if err != nil {
		return nil, fmt.Errorf("instance %s: %w", name, err)
	}
	if err := dispatch.applyStarts(); err != nil {
		return nil, fmt.Errorf("instance %s: applying start values: %w", name, err)
	}
	logrus.Debugf("[%s] instantiated with %d variables (FMI %s)", name, reg.Len(), version)
	return &Instance{
		name:     name,
		model:    model,
		reg:      reg,
		dispatch: dispatch,
		cfg:      cfg,
		state:    StateInstantiated,
		starts:   dispatch.snapshot(),
	}, nil
}

// Name is the instance name given to Instantiate.
func (i *Instance) Name() string { return i.name }

// State is the current life-cycle state.
func (i *Instance) State() State { return i.state }

// Time is the communication point the last completed step reached.
func (i *Instance) Time() float64 { return i.time }

// LastStatus is the status of the most recent DoStep.
func (i *Instance) LastStatus() Status { return i.lastStatus }

// Registry is the instance's registry. It is frozen.
func (i *Instance) Registry() *Registry { return i.reg }

// Dispatch is the instance's dispatch table. It bypasses the state checks of Get and Set.
func (i *Instance) Dispatch() *DispatchTable { return i.dispatch }

// ModelInfo is the model's descriptor information, defaulting to the instance name.
func (i *Instance) ModelInfo() ModelInfo {
	if d, ok := i.model.(Describer); ok {
		return d.ModelInfo()
	}
	return ModelInfo{Name: i.name}
}

// Descriptor serializes the instance's model description. The references in
// it are the ones Get and Set accept.
func (i *Instance) Descriptor(opts DescriptorOptions) ([]byte, error) {
	return MarshalDescriptor(i.ModelInfo(), i.reg, opts)
}

func (i *Instance) require(op string, allowed ...State) error {
	for _, s := range allowed {
		if i.state == s {
			return nil
		}
	}
	return &InvalidStateError{Op: op, State: i.state}
}

// EnterInitializationMode starts initialization at startTime.
func (i *Instance) EnterInitializationMode(startTime float64) error {
	if err := i.require("EnterInitializationMode", StateInstantiated); err != nil {
		return err
	}
	if init, ok := i.model.(Initializer); ok {
		if err := init.EnterInitialization(startTime); err != nil {
			return i.fail(fmt.Errorf("entering initialization: %w", err))
		}
	}
	i.time = startTime
	i.state = StateInitializationMode
	return nil
}

// ExitInitializationMode completes initialization.
func (i *Instance) ExitInitializationMode() error {
	if err := i.require("ExitInitializationMode", StateInitializationMode); err != nil {
		return err
	}
	if init, ok := i.model.(Initializer); ok {
		if err := init.ExitInitialization(); err != nil {
			return i.fail(fmt.Errorf("exiting initialization: %w", err))
		}
	}
	i.state = StateInitialized
	logrus.Debugf("[%s] initialized at t=%s", i.name, FormatFloat(i.time))
	return nil
}

// Initialize enters and exits initialization mode in one call.
func (i *Instance) Initialize(startTime float64) error {
	if err := i.EnterInitializationMode(startTime); err != nil {
		return err
	}
	return i.ExitInitializationMode()
}

func (i *Instance) fail(err error) error {
	i.state = StateFailed
	i.lastStatus = StatusError
	logrus.Errorf("[%s] %v", i.name, err)
	return fmt.Errorf("instance %s: %w", i.name, err)
}

// DoStep advances the model from currentTime by stepSize. A returned error
// means the call was not honoured; the model's own outcome is the Status.
// Error and fatal move the instance to StateFailed.
func (i *Instance) DoStep(currentTime, stepSize float64) (Status, error) {
	if err := i.require("DoStep", StateInitialized, StateStepping); err != nil {
		return StatusError, err
	}
	if !(stepSize > 0) {
		return StatusError, fmt.Errorf("instance %s: step size must be positive, got %s", i.name, FormatFloat(stepSize))
	}
	status := i.model.DoStep(currentTime, stepSize)
	i.lastStatus = status
	switch status {
	case StatusOK:
		i.time = currentTime + stepSize
		i.state = StateStepping
	case StatusWarning:
		i.time = currentTime + stepSize
		i.state = StateStepping
		logrus.Warnf("[%s t=%s] step returned %s", i.name, FormatFloat(currentTime), status)
	case StatusDiscard:
		i.state = StateStepping
		logrus.Warnf("[%s t=%s] step of %s discarded", i.name, FormatFloat(currentTime), FormatFloat(stepSize))
	default:
		i.state = StateFailed
		logrus.Errorf("[%s t=%s] step returned %s, instance failed", i.name, FormatFloat(currentTime), status)
	}
	return status, nil
}

// Get reads a variable by reference.
func (i *Instance) Get(ref ValueReference) (any, error) {
	if i.state == StateFailed && !i.cfg.allowGetAfterFailure {
		return nil, &InvalidStateError{Op: "Get", State: i.state}
	}
	return i.dispatch.Get(ref)
}

// Set writes a variable by reference. Constants and the independent
// variable are never settable. Before initialization completes any
// variable with an exact or approx initial may be set; afterwards only
// inputs and tunable parameters.
func (i *Instance) Set(ref ValueReference, value any) error {
	if err := i.require("Set", StateInstantiated, StateInitializationMode, StateInitialized, StateStepping); err != nil {
		return err
	}
	v, err := i.dispatch.Variable(ref)
	if err != nil {
		return err
	}
	if err := i.settable(v); err != nil {
		return err
	}
	return i.dispatch.Set(ref, value)
}

func (i *Instance) settable(v *Registered) error {
	c, va, init := EffectiveCausality(v), EffectiveVariability(v), EffectiveInitial(v)
	switch {
	case va == Constant:
		return &NotSettableError{Name: v.Name(), Reason: "constant"}
	case c == Independent:
		return &NotSettableError{Name: v.Name(), Reason: "independent variable advances with DoStep"}
	}
	switch i.state {
	case StateInstantiated, StateInitializationMode:
		if c == Input || init == Exact || init == Approx {
			return nil
		}
		return &NotSettableError{Name: v.Name(), Reason: fmt.Sprintf("initial %s", init)}
	default:
		if c == Input || (c == Parameter && va == Tunable) {
			return nil
		}
		return &NotSettableError{Name: v.Name(), Reason: fmt.Sprintf("%s %s after initialization", va, c)}
	}
}

// Terminate ends the simulation run.
func (i *Instance) Terminate() error {
	if err := i.require("Terminate", StateInitializationMode, StateInitialized, StateStepping); err != nil {
		return err
	}
	if t, ok := i.model.(Terminator); ok {
		if err := t.Terminate(); err != nil {
			return i.fail(fmt.Errorf("terminating: %w", err))
		}
	}
	i.state = StateTerminated
	logrus.Debugf("[%s] terminated at t=%s", i.name, FormatFloat(i.time))
	return nil
}

// Reset restores the values captured at instantiation and returns the
// instance to StateInstantiated. A fatal failure cannot be reset.
func (i *Instance) Reset() error {
	switch {
	case i.state == StateFailed && i.lastStatus == StatusFatal:
		return &InvalidStateError{Op: "Reset", State: i.state}
	case i.state == StateInstantiated:
		return nil
	}
	if err := i.dispatch.restore(i.starts); err != nil {
		return fmt.Errorf("instance %s: restoring start values: %w", i.name, err)
	}
	if r, ok := i.model.(Resetter); ok {
		if err := r.Reset(); err != nil {
			return i.fail(fmt.Errorf("resetting: %w", err))
		}
	}
	i.state = StateInstantiated
	i.time = 0
	i.lastStatus = StatusOK
	logrus.Debugf("[%s] reset", i.name)
	return nil
}
