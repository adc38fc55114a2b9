package fmi

import "strings"

// ValueReference is the stable integer a host uses to address a variable.
type ValueReference uint32

// Ptr returns a pointer to v. Handy for optional start values in declarations.
func Ptr[T any](v T) *T { return &v }

// Attributes are shared by every variable kind. Unset enum fields are omitted
// from the descriptor and resolved to the standard's defaults for validation.
type Attributes struct {
	Name        string
	Causality   Causality
	Variability Variability
	Initial     Initial
	Description string
}

// Attrs returns the shared attributes of a declaration.
func (a *Attributes) Attrs() *Attributes { return a }

// LocalName is the part of a dotted name after the last dot.
func (a *Attributes) LocalName() string {
	if i := strings.LastIndexByte(a.Name, '.'); i >= 0 {
		return a.Name[i+1:]
	}
	return a.Name
}

// Variable is a declared model variable. The concrete kinds are *Real,
// *Integer, *Boolean, *String and *Enumeration. A declaration carries no value
// reference; the Registry hands one out and keeps it in a Registered entry.
type Variable interface {
	Attrs() *Attributes
	Type() ValueType
	// HasStart reports whether a scalar or array start value is present.
	HasStart() bool
	// Accessor returns the explicitly bound accessor, or nil.
	Accessor() Accessor
	sealed()
}

// Dimension is one array extent: either a fixed Start or a Ref to an integer
// variable supplying the extent at run time. Exactly one must be set.
type Dimension struct {
	Start *uint64
	Ref   *ValueReference
}

// FixedDim returns a dimension with a fixed extent.
func FixedDim(n uint64) Dimension { return Dimension{Start: &n} }

// RefDim returns a dimension whose extent is read from another variable.
func RefDim(ref ValueReference) Dimension { return Dimension{Ref: &ref} }

// Real is a floating point variable (FMI 2 Real, FMI 3 Float64).
type Real struct {
	Attributes
	Start      *float64
	ArrayStart []float64
	// Derivative links this variable to the state whose time derivative it is.
	Derivative *ValueReference
	Dimensions []Dimension
	Unit       string
	Bind       Accessor
}

func (*Real) Type() ValueType      { return TypeReal }
func (v *Real) HasStart() bool     { return v.Start != nil || len(v.ArrayStart) > 0 }
func (v *Real) Accessor() Accessor { return v.Bind }
func (*Real) sealed()              {}

// Integer is an integer variable. Kind selects the FMI 3 element; FMI 2 only supports Int32.
type Integer struct {
	Attributes
	Start      *int64
	ArrayStart []int64
	Kind       IntegerKind
	Dimensions []Dimension
	Bind       Accessor
}

func (*Integer) Type() ValueType      { return TypeInteger }
func (v *Integer) HasStart() bool     { return v.Start != nil || len(v.ArrayStart) > 0 }
func (v *Integer) Accessor() Accessor { return v.Bind }
func (*Integer) sealed()              {}

type Boolean struct {
	Attributes
	Start *bool
	Bind  Accessor
}

func (*Boolean) Type() ValueType      { return TypeBoolean }
func (v *Boolean) HasStart() bool     { return v.Start != nil }
func (v *Boolean) Accessor() Accessor { return v.Bind }
func (*Boolean) sealed()              {}

type String struct {
	Attributes
	Start *string
	Bind  Accessor
}

func (*String) Type() ValueType      { return TypeString }
func (v *String) HasStart() bool     { return v.Start != nil }
func (v *String) Accessor() Accessor { return v.Bind }
func (*String) sealed()              {}

// EnumItem is one symbolic value of an enumeration type.
type EnumItem struct {
	Name        string
	Value       int64
	Description string
}

// EnumerationType is a named, ordered set of items shared by enumeration variables.
type EnumerationType struct {
	Name        string
	Description string
	Items       []EnumItem
}

// ItemByName returns the item with the given symbolic name.
func (t *EnumerationType) ItemByName(name string) (EnumItem, bool) {
	for _, it := range t.Items {
		if it.Name == name {
			return it, true
		}
	}
	return EnumItem{}, false
}

// ItemByValue returns the item with the given value.
func (t *EnumerationType) ItemByValue(v int64) (EnumItem, bool) {
	for _, it := range t.Items {
		if it.Value == v {
			return it, true
		}
	}
	return EnumItem{}, false
}

func (t *EnumerationType) equal(o *EnumerationType) bool {
	if t.Name != o.Name || t.Description != o.Description || len(t.Items) != len(o.Items) {
		return false
	}
	for i := range t.Items {
		if t.Items[i] != o.Items[i] {
			return false
		}
	}
	return true
}

// Enumeration is a variable over the items of EnumType. Start holds the symbolic
// item name; run-time values are the item values as int64.
type Enumeration struct {
	Attributes
	EnumType *EnumerationType
	Start    *string
	Bind     Accessor
}

func (*Enumeration) Type() ValueType      { return TypeEnumeration }
func (v *Enumeration) HasStart() bool     { return v.Start != nil }
func (v *Enumeration) Accessor() Accessor { return v.Bind }
func (*Enumeration) sealed()              {}

// dimensionsOf returns the array dimensions of numeric variables.
func dimensionsOf(v Variable) []Dimension {
	switch t := v.(type) {
	case *Real:
		return t.Dimensions
	case *Integer:
		return t.Dimensions
	}
	return nil
}

// arrayStartLen is the number of elements in an array start, 0 when unset.
func arrayStartLen(v Variable) int {
	switch t := v.(type) {
	case *Real:
		return len(t.ArrayStart)
	case *Integer:
		return len(t.ArrayStart)
	}
	return 0
}

// Registered is a variable bound to its value reference. The registry creates
// it exactly once per declaration; the reference cannot change afterwards.
type Registered struct {
	ref   ValueReference
	index int
	Variable
}

// Ref is the assigned value reference.
func (r *Registered) Ref() ValueReference { return r.ref }

// Index is the 0-based registration position.
func (r *Registered) Index() int { return r.index }

// Name is shorthand for Attrs().Name.
func (r *Registered) Name() string { return r.Attrs().Name }
