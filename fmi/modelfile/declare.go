package modelfile

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
)

// Declarations converts the file's variables into registry declarations whose
// references are numbered from base in file order. Name links may point
// forward; they are resolved against the numbering before anything is
// registered.
func (f *ModelFile) Declarations(base fmi.ValueReference) ([]fmi.Variable, error) {
	refs := make(map[string]fmi.ValueReference, len(f.Variables))
	for i, v := range f.Variables {
		refs[v.Name] = base + fmi.ValueReference(i)
	}
	enums := make(map[string]*fmi.EnumerationType, len(f.Enumerations))
	for _, e := range f.Enumerations {
		t := &fmi.EnumerationType{Name: e.Name, Description: e.Description}
		for _, it := range e.Items {
			t.Items = append(t.Items, fmi.EnumItem{Name: it.Name, Value: it.Value, Description: it.Description})
		}
		enums[e.Name] = t
	}

	decls := make([]fmi.Variable, 0, len(f.Variables))
	for i := range f.Variables {
		d, err := declaration(&f.Variables[i], refs, enums)
		if err != nil {
			return nil, fmt.Errorf("variable[%d] (%s): %w", i, f.Variables[i].Name, err)
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func declaration(v *VariableSpec, refs map[string]fmi.ValueReference, enums map[string]*fmi.EnumerationType) (fmi.Variable, error) {
	typ, ok := validTypes[v.Type]
	if !ok {
		return nil, fmt.Errorf("unknown type %q", v.Type)
	}
	attrs, err := attributes(v)
	if err != nil {
		return nil, err
	}
	var start any
	if v.HasStart() {
		if start, err = decodeStart(&v.Start, typ, len(v.Dimensions) > 0); err != nil {
			return nil, fmt.Errorf("start: %w", err)
		}
	}
	dims := make([]fmi.Dimension, 0, len(v.Dimensions))
	for _, d := range v.Dimensions {
		if d.Start != nil {
			dims = append(dims, fmi.FixedDim(*d.Start))
			continue
		}
		ref, ok := refs[d.Ref]
		if !ok {
			return nil, fmt.Errorf("dimension ref to unknown variable %q", d.Ref)
		}
		dims = append(dims, fmi.RefDim(ref))
	}
	if len(dims) == 0 {
		dims = nil
	}

	switch typ {
	case fmi.TypeReal:
		r := &fmi.Real{Attributes: attrs, Dimensions: dims, Unit: v.Unit}
		switch s := start.(type) {
		case float64:
			r.Start = &s
		case []float64:
			r.ArrayStart = s
		}
		if v.Derivative != "" {
			ref, ok := refs[v.Derivative]
			if !ok {
				return nil, fmt.Errorf("derivative refers to unknown variable %q", v.Derivative)
			}
			r.Derivative = &ref
		}
		return r, nil
	case fmi.TypeInteger:
		n := &fmi.Integer{Attributes: attrs, Dimensions: dims}
		if v.Kind != "" {
			if n.Kind, err = fmi.ParseIntegerKind(v.Kind); err != nil {
				return nil, err
			}
		}
		switch s := start.(type) {
		case int64:
			n.Start = &s
		case []int64:
			n.ArrayStart = s
		}
		return n, nil
	case fmi.TypeBoolean:
		b := &fmi.Boolean{Attributes: attrs}
		if s, ok := start.(bool); ok {
			b.Start = &s
		}
		return b, nil
	case fmi.TypeString:
		s := &fmi.String{Attributes: attrs}
		if str, ok := start.(string); ok {
			s.Start = &str
		}
		return s, nil
	default:
		t, ok := enums[v.Enumeration]
		if !ok {
			return nil, fmt.Errorf("unknown enumeration %q", v.Enumeration)
		}
		e := &fmi.Enumeration{Attributes: attrs, EnumType: t}
		if str, ok := start.(string); ok {
			e.Start = &str
		}
		return e, nil
	}
}

func attributes(v *VariableSpec) (fmi.Attributes, error) {
	c, err := fmi.ParseCausality(v.Causality)
	if err != nil {
		return fmi.Attributes{}, err
	}
	va, err := fmi.ParseVariability(v.Variability)
	if err != nil {
		return fmi.Attributes{}, err
	}
	init, err := fmi.ParseInitial(v.Initial)
	if err != nil {
		return fmi.Attributes{}, err
	}
	return fmi.Attributes{Name: v.Name, Causality: c, Variability: va, Initial: init, Description: v.Description}, nil
}

// Declare registers every variable of the file into reg and validates the links.
// The registry must not already hold variables of another source whose
// registrations could interleave.
func (f *ModelFile) Declare(reg *fmi.Registry) error {
	decls, err := f.Declarations(reg.NextReference())
	if err != nil {
		return err
	}
	return register(reg, decls)
}

func register(reg *fmi.Registry, decls []fmi.Variable) error {
	for _, d := range decls {
		want := reg.NextReference()
		got, err := reg.Register(d)
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("variable %q registered as %d, expected %d", d.Attrs().Name, got, want)
		}
	}
	return reg.ValidateLinks()
}
