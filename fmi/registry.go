package fmi

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ErrRegistryFrozen is returned by Register once the registry backs a dispatch table.
var ErrRegistryFrozen = errors.New("registry is frozen")

// Registry is the ordered set of a model's variables. It assigns each
// declaration a value reference exactly once, in registration order.
//
// Thread-safety: NOT thread-safe. Registration happens once, sequentially,
// while the model is constructed; the registry is read-only afterwards.
type Registry struct {
	version Version
	base    ValueReference
	frozen  bool

	vars   []*Registered
	byName map[string]*Registered
	byRef  map[ValueReference]*Registered
	byDecl map[Variable]*Registered

	enums     map[string]*EnumerationType
	enumOrder []string
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBaseReference sets the first value reference handed out.
func WithBaseReference(base ValueReference) RegistryOption {
	return func(r *Registry) { r.base = base }
}

// NewRegistry creates an empty registry for the given standard version.
// References start at 1 for FMI 2 and at 0 for FMI 3 unless overridden.
func NewRegistry(version Version, opts ...RegistryOption) *Registry {
	r := &Registry{
		version: version,
		byName:  make(map[string]*Registered),
		byRef:   make(map[ValueReference]*Registered),
		byDecl:  make(map[Variable]*Registered),
		enums:   make(map[string]*EnumerationType),
	}
	if version == FMI2 {
		r.base = 1
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Version is the standard version the registry validates against.
func (r *Registry) Version() Version { return r.version }

// BaseReference is the reference assigned to the first variable.
func (r *Registry) BaseReference() ValueReference { return r.base }

// NextReference is the reference the next successful Register call will assign.
func (r *Registry) NextReference() ValueReference { return r.base + ValueReference(len(r.vars)) }

// Len is the number of registered variables.
func (r *Registry) Len() int { return len(r.vars) }

// Register validates v and assigns it the next value reference. On error the
// registry is left unchanged and no reference is consumed.
func (r *Registry) Register(v Variable) (ValueReference, error) {
	if r.frozen {
		return 0, ErrRegistryFrozen
	}
	if v == nil {
		return 0, &InvalidAttributeCombinationError{Reason: "nil variable"}
	}
	if reg, ok := v.(*Registered); ok {
		return 0, &ReferenceAlreadyAssignedError{Name: reg.Name(), Reference: reg.ref}
	}
	if prev, ok := r.byDecl[v]; ok {
		return 0, &ReferenceAlreadyAssignedError{Name: prev.Name(), Reference: prev.ref}
	}
	name := v.Attrs().Name
	if _, ok := r.byName[name]; ok {
		return 0, &DuplicateNameError{Name: name}
	}
	if err := CheckAttributes(r.version, v); err != nil {
		return 0, err
	}
	if EffectiveCausality(v) == Independent {
		for _, other := range r.vars {
			if EffectiveCausality(other) == Independent {
				return 0, &InvalidAttributeCombinationError{
					Name:   name,
					Reason: fmt.Sprintf("only one independent variable allowed, %q already declared", other.Name()),
				}
			}
		}
	}
	var newEnum *EnumerationType
	if e, ok := v.(*Enumeration); ok {
		if known, ok := r.enums[e.EnumType.Name]; ok {
			if !known.equal(e.EnumType) {
				return 0, &InvalidAttributeCombinationError{
					Name:   name,
					Reason: fmt.Sprintf("enumeration type %q conflicts with an earlier definition", e.EnumType.Name),
				}
			}
		} else {
			newEnum = e.EnumType
		}
	}

	entry := &Registered{ref: r.NextReference(), index: len(r.vars), Variable: v}
	r.vars = append(r.vars, entry)
	r.byName[name] = entry
	r.byRef[entry.ref] = entry
	r.byDecl[v] = entry
	if newEnum != nil {
		r.enums[newEnum.Name] = newEnum
		r.enumOrder = append(r.enumOrder, newEnum.Name)
	}
	logrus.Debugf("registered %s %q as value reference %d", v.Type(), name, entry.ref)
	return entry.ref, nil
}

// MustRegister is like Register but panics on error. Intended for models whose
// declarations are static.
func (r *Registry) MustRegister(v Variable) ValueReference {
	ref, err := r.Register(v)
	if err != nil {
		panic(err)
	}
	return ref
}

// ByName looks a variable up by its full name.
func (r *Registry) ByName(name string) (*Registered, error) {
	if v, ok := r.byName[name]; ok {
		return v, nil
	}
	return nil, &UnknownVariableError{Name: name, ByName: true}
}

// ByReference looks a variable up by its value reference.
func (r *Registry) ByReference(ref ValueReference) (*Registered, error) {
	if v, ok := r.byRef[ref]; ok {
		return v, nil
	}
	return nil, &UnknownVariableError{Reference: ref}
}

// Variables returns the registered variables in registration order.
func (r *Registry) Variables() []*Registered {
	out := make([]*Registered, len(r.vars))
	copy(out, r.vars)
	return out
}

// EnumerationTypes returns the enumeration types in first-use order.
func (r *Registry) EnumerationTypes() []*EnumerationType {
	out := make([]*EnumerationType, 0, len(r.enumOrder))
	for _, name := range r.enumOrder {
		out = append(out, r.enums[name])
	}
	return out
}

// ValidateLinks checks that every derivative and dimension reference resolves
// inside the registry. It runs after all registrations so declarations may
// refer forward. Array starts are checked against the extents their
// referenced dimensions have at start. All offending variables are reported at once.
func (r *Registry) ValidateLinks() error {
	var links []DanglingLink
	for _, v := range r.vars {
		if rv, ok := v.Variable.(*Real); ok && rv.Derivative != nil {
			target, ok := r.byRef[*rv.Derivative]
			switch {
			case !ok:
				links = append(links, DanglingLink{Name: v.Name(), Field: "derivative", Target: *rv.Derivative, Reason: "no such variable"})
			case target.Type() != TypeReal:
				links = append(links, DanglingLink{Name: v.Name(), Field: "derivative", Target: *rv.Derivative, Reason: "target is not a Real"})
			case target == v:
				links = append(links, DanglingLink{Name: v.Name(), Field: "derivative", Target: *rv.Derivative, Reason: "variable cannot be its own derivative"})
			}
		}
		for i, d := range dimensionsOf(v.Variable) {
			if d.Ref == nil {
				continue
			}
			field := fmt.Sprintf("dimension[%d]", i)
			target, ok := r.byRef[*d.Ref]
			switch {
			case !ok:
				links = append(links, DanglingLink{Name: v.Name(), Field: field, Target: *d.Ref, Reason: "no such variable"})
			case target.Type() != TypeInteger:
				links = append(links, DanglingLink{Name: v.Name(), Field: field, Target: *d.Ref, Reason: "target is not an Integer"})
			case EffectiveCausality(target) != StructuralParameter && EffectiveVariability(target) != Constant:
				links = append(links, DanglingLink{Name: v.Name(), Field: field, Target: *d.Ref, Reason: "target must be a structural parameter or constant"})
			}
		}
		if link, ok := r.checkStartExtent(v); !ok {
			links = append(links, link)
		}
	}
	if len(links) > 0 {
		return &DanglingReferenceError{Links: links}
	}
	return nil
}

// checkStartExtent compares the length of an array start with the extent
// its dimensions give at their start values. Dimensions that do not resolve
// to an Integer with a start are left to the link checks above.
func (r *Registry) checkStartExtent(v *Registered) (DanglingLink, bool) {
	n := arrayStartLen(v.Variable)
	if n == 0 {
		return DanglingLink{}, true
	}
	size := uint64(1)
	var last ValueReference
	referenced := false
	for _, d := range dimensionsOf(v.Variable) {
		if d.Start != nil {
			size *= *d.Start
			continue
		}
		target, ok := r.byRef[*d.Ref]
		if !ok {
			return DanglingLink{}, true
		}
		iv, ok := target.Variable.(*Integer)
		if !ok || iv.Start == nil || *iv.Start < 0 {
			return DanglingLink{}, true
		}
		size *= uint64(*iv.Start)
		last, referenced = *d.Ref, true
	}
	if !referenced || uint64(n) == size {
		return DanglingLink{}, true
	}
	return DanglingLink{
		Name:   v.Name(),
		Field:  "start",
		Target: last,
		Reason: fmt.Sprintf("array start has %d elements, dimensions require %d", n, size),
	}, false
}

// freeze stops further registration once dispatch is bound.
func (r *Registry) freeze() { r.frozen = true }
