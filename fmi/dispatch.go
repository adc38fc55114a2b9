package fmi

import (
	"fmt"
	"slices"
)

type binding struct {
	v   *Registered
	acc Accessor
}

// DispatchTable routes host reads and writes by value reference to the
// accessors bound at construction. The set of bindings never changes.
//
// Thread-safety: NOT thread-safe. The host serializes calls into one instance.
type DispatchTable struct {
	reg      *Registry
	bindings map[ValueReference]binding
}

// NewDispatchTable binds every variable of reg. A declaration's own Bind
// accessor wins; otherwise the exported field of model, or of a struct it
// embeds, tagged `fmi:"<name>"` is used. The registry must pass ValidateLinks and is frozen on success.
func NewDispatchTable(reg *Registry, model any) (*DispatchTable, error) {
	if err := reg.ValidateLinks(); err != nil {
		return nil, err
	}
	fields, err := fieldAccessors(model)
	if err != nil {
		return nil, err
	}
	d := &DispatchTable{reg: reg, bindings: make(map[ValueReference]binding, reg.Len())}
	for _, v := range reg.vars {
		acc := v.Accessor()
		if acc == nil {
			acc = fields[v.Name()]
		}
		if acc == nil {
			return nil, fmt.Errorf("binding variable %q: no accessor and no field tagged fmi:%q: %w",
				v.Name(), v.Name(), &UnknownVariableError{Name: v.Name(), ByName: true})
		}
		if !compatible(v.Type(), acc.Type()) {
			return nil, &TypeMismatchError{Name: v.Name(), Expected: v.Type(), Got: acc.Type().String() + " accessor"}
		}
		d.bindings[v.ref] = binding{v: v, acc: acc}
	}
	reg.freeze()
	return d, nil
}

// Registry is the registry the table was built from.
func (d *DispatchTable) Registry() *Registry { return d.reg }

// Variable returns the registered variable behind ref.
func (d *DispatchTable) Variable(ref ValueReference) (*Registered, error) {
	b, ok := d.bindings[ref]
	if !ok {
		return nil, &UnknownVariableError{Reference: ref}
	}
	return b.v, nil
}

// Get reads the current value of ref. Real values are float64, Integer and
// Enumeration values int64, arrays []float64 or []int64.
func (d *DispatchTable) Get(ref ValueReference) (any, error) {
	b, ok := d.bindings[ref]
	if !ok {
		return nil, &UnknownVariableError{Reference: ref}
	}
	return b.acc.Get(), nil
}

// Set writes value to ref. The value must have exactly the Go type of the
// variable; no numeric conversion is performed. On error the stored value is
// unchanged.
func (d *DispatchTable) Set(ref ValueReference, value any) error {
	b, ok := d.bindings[ref]
	if !ok {
		return &UnknownVariableError{Reference: ref}
	}
	if err := d.checkValue(b.v, value); err != nil {
		return err
	}
	if err := b.acc.Set(value); err != nil {
		return named(err, b.v.Name())
	}
	return nil
}

func (d *DispatchTable) checkValue(v *Registered, value any) error {
	mismatch := func(got string) error {
		return &TypeMismatchError{Name: v.Name(), Expected: v.Type(), Got: got}
	}
	switch t := v.Variable.(type) {
	case *Enumeration:
		n, ok := value.(int64)
		if !ok {
			return mismatch(fmt.Sprintf("%T", value))
		}
		if _, ok := t.EnumType.ItemByValue(n); !ok {
			return mismatch(fmt.Sprintf("%d, not an item of %s", n, t.EnumType.Name))
		}
	case *Real, *Integer:
		dims := dimensionsOf(t)
		var length int
		switch s := value.(type) {
		case []float64:
			length = len(s)
		case []int64:
			length = len(s)
		default:
			if len(dims) > 0 {
				return mismatch(fmt.Sprintf("%T", value))
			}
			return nil
		}
		if len(dims) == 0 {
			return mismatch(fmt.Sprintf("%T", value))
		}
		if want, ok := d.extent(dims); ok && want != length {
			return mismatch(fmt.Sprintf("%T of length %d, want %d", value, length, want))
		}
	}
	return nil
}

// extent is the element count of an array with the given dimensions, with
// referenced extents read from their current values.
func (d *DispatchTable) extent(dims []Dimension) (int, bool) {
	n := 1
	for _, dim := range dims {
		switch {
		case dim.Start != nil:
			n *= int(*dim.Start)
		case dim.Ref != nil:
			b, ok := d.bindings[*dim.Ref]
			if !ok {
				return 0, false
			}
			size, ok := b.acc.Get().(int64)
			if !ok {
				return 0, false
			}
			n *= int(size)
		}
	}
	return n, true
}

// named fills in the variable name on errors raised by accessors, which do not know it.
func named(err error, name string) error {
	switch e := err.(type) {
	case *TypeMismatchError:
		e.Name = name
	case *NotSettableError:
		e.Name = name
	}
	return err
}

// GetAs reads ref and asserts its value to T.
func GetAs[T any](d *DispatchTable, ref ValueReference) (T, error) {
	var zero T
	raw, err := d.Get(ref)
	if err != nil {
		return zero, err
	}
	v, ok := raw.(T)
	if !ok {
		b := d.bindings[ref]
		return zero, &TypeMismatchError{Name: b.v.Name(), Expected: b.v.Type(), Got: fmt.Sprintf("%T", zero)}
	}
	return v, nil
}

// snapshot captures the current value of every variable, in registration order.
func (d *DispatchTable) snapshot() []any {
	out := make([]any, 0, len(d.bindings))
	for _, v := range d.reg.vars {
		val := d.bindings[v.ref].acc.Get()
		switch s := val.(type) {
		case []float64:
			val = slices.Clone(s)
		case []int64:
			val = slices.Clone(s)
		}
		out = append(out, val)
	}
	return out
}

// restore writes a snapshot back. Read-only accessors are skipped.
func (d *DispatchTable) restore(values []any) error {
	for i, v := range d.reg.vars {
		err := d.bindings[v.ref].acc.Set(values[i])
		if _, readOnly := err.(*NotSettableError); err != nil && !readOnly {
			return named(err, v.Name())
		}
	}
	return nil
}

// applyStarts writes declared scalar and array start values into the bound
// memory so the model starts where its descriptor says it does.
func (d *DispatchTable) applyStarts() error {
	for _, v := range d.reg.vars {
		val, ok := startValue(v.Variable)
		if !ok {
			continue
		}
		err := d.bindings[v.ref].acc.Set(val)
		if _, readOnly := err.(*NotSettableError); err != nil && !readOnly {
			return named(err, v.Name())
		}
	}
	return nil
}

func startValue(v Variable) (any, bool) {
	switch t := v.(type) {
	case *Real:
		if t.Start != nil {
			return *t.Start, true
		}
		if len(t.ArrayStart) > 0 {
			return slices.Clone(t.ArrayStart), true
		}
	case *Integer:
		if t.Start != nil {
			return *t.Start, true
		}
		if len(t.ArrayStart) > 0 {
			return slices.Clone(t.ArrayStart), true
		}
	case *Boolean:
		if t.Start != nil {
			return *t.Start, true
		}
	case *String:
		if t.Start != nil {
			return *t.Start, true
		}
	case *Enumeration:
		if t.Start != nil {
			if it, ok := t.EnumType.ItemByName(*t.Start); ok {
				return it.Value, true
			}
		}
	}
	return nil, false
}
