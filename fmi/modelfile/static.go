package modelfile

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
)

// Static is a model defined entirely by a file. Every variable is held in
// memory and keeps whatever value was last set. DoStep only advances the
// independent variable, if one is declared. Use one Static per instance.
type Static struct {
	file   *ModelFile
	clock  *float64
	reals  map[string]*float64
	ints   map[string]*int64
	bools  map[string]*bool
	texts  map[string]*string
	arrays map[string]*[]float64
	iarray map[string]*[]int64
}

// NewStatic wraps a loaded file.
func NewStatic(f *ModelFile) *Static {
	return &Static{
		file:   f,
		reals:  map[string]*float64{},
		ints:   map[string]*int64{},
		bools:  map[string]*bool{},
		texts:  map[string]*string{},
		arrays: map[string]*[]float64{},
		iarray: map[string]*[]int64{},
	}
}

// File is the wrapped model file.
func (s *Static) File() *ModelFile { return s.file }

// Define registers the file's variables, each bound to its own storage.
func (s *Static) Define(reg *fmi.Registry) error {
	decls, err := s.file.Declarations(reg.NextReference())
	if err != nil {
		return err
	}
	for _, d := range decls {
		if err := s.bind(d); err != nil {
			return err
		}
	}
	return register(reg, decls)
}

func (s *Static) bind(d fmi.Variable) error {
	name := d.Attrs().Name
	switch t := d.(type) {
	case *fmi.Real:
		if len(t.Dimensions) > 0 {
			p := new([]float64)
			s.arrays[name] = p
			t.Bind = fmi.Float64Slice(p)
		} else {
			p := new(float64)
			s.reals[name] = p
			t.Bind = fmi.Float64(p)
			if fmi.EffectiveCausality(t) == fmi.Independent {
				s.clock = p
			}
		}
	case *fmi.Integer:
		if len(t.Dimensions) > 0 {
			p := new([]int64)
			s.iarray[name] = p
			t.Bind = fmi.Int64Slice(p)
		} else {
			p := new(int64)
			s.ints[name] = p
			t.Bind = fmi.Int(p)
		}
	case *fmi.Enumeration:
		p := new(int64)
		s.ints[name] = p
		t.Bind = fmi.Int(p)
	case *fmi.Boolean:
		p := new(bool)
		s.bools[name] = p
		t.Bind = fmi.Bool(p)
	case *fmi.String:
		p := new(string)
		s.texts[name] = p
		t.Bind = fmi.Text(p)
	default:
		return fmt.Errorf("variable %q: unsupported declaration %T", name, d)
	}
	return nil
}

// DoStep accepts every step.
func (s *Static) DoStep(currentTime, stepSize float64) fmi.Status {
	if s.clock != nil {
		*s.clock = currentTime + stepSize
	}
	return fmi.StatusOK
}

// EnterInitialization sets the independent variable to the start time.
func (s *Static) EnterInitialization(startTime float64) error {
	if s.clock != nil {
		*s.clock = startTime
	}
	return nil
}

func (s *Static) ExitInitialization() error { return nil }

// ModelInfo returns the file's descriptor attributes.
func (s *Static) ModelInfo() fmi.ModelInfo { return s.file.ModelInfo() }

// Value returns the in-memory value of a variable by name.
func (s *Static) Value(name string) (any, bool) {
	if p, ok := s.reals[name]; ok {
		return *p, true
	}
	if p, ok := s.ints[name]; ok {
		return *p, true
	}
	if p, ok := s.bools[name]; ok {
		return *p, true
	}
	if p, ok := s.texts[name]; ok {
		return *p, true
	}
	if p, ok := s.arrays[name]; ok {
		return *p, true
	}
	if p, ok := s.iarray[name]; ok {
		return *p, true
	}
	return nil, false
}
