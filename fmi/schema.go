package fmi

import (
	"fmt"
	"math"
	"slices"
)

// initialRule lists the initial values permitted for a (causality, variability)
// pair. An empty allowed list means the attribute must not be given.
type initialRule struct {
	def     Initial
	allowed []Initial
}

var (
	ruleExactOnly  = initialRule{def: Exact, allowed: []Initial{Exact}}
	ruleCalcParam  = initialRule{def: Calculated, allowed: []Initial{Approx, Calculated}}
	ruleAnyCalc    = initialRule{def: Calculated, allowed: []Initial{Exact, Approx, Calculated}}
	ruleNoInitial  = initialRule{}
	validVariables = map[Variability]map[Causality]bool{
		Constant:   {Output: true, Local: true},
		Fixed:      {Parameter: true, CalculatedParameter: true, StructuralParameter: true, Local: true},
		Tunable:    {Parameter: true, CalculatedParameter: true, StructuralParameter: true, Local: true},
		Discrete:   {Input: true, Output: true, Local: true},
		Continuous: {Input: true, Output: true, Local: true, Independent: true},
	}
)

// EffectiveCausality resolves an unset causality to the standard default, local.
func EffectiveCausality(v Variable) Causality {
	if c := v.Attrs().Causality; c != CausalityUnset {
		return c
	}
	return Local
}

// EffectiveVariability resolves an unset variability: continuous for Real,
// discrete for every other type.
func EffectiveVariability(v Variable) Variability {
	if vr := v.Attrs().Variability; vr != VariabilityUnset {
		return vr
	}
	if v.Type() == TypeReal {
		return Continuous
	}
	return Discrete
}

func ruleFor(c Causality, v Variability) initialRule {
	switch c {
	case Parameter, StructuralParameter:
		return ruleExactOnly
	case CalculatedParameter:
		return ruleCalcParam
	case Output:
		if v == Constant {
			return ruleExactOnly
		}
		return ruleAnyCalc
	case Local:
		switch v {
		case Constant:
			return ruleExactOnly
		case Fixed, Tunable:
			return ruleCalcParam
		}
		return ruleAnyCalc
	}
	return ruleNoInitial
}

// EffectiveInitial resolves an unset initial to the default of the variable's
// (causality, variability) pair. It is InitialUnset for input and independent variables.
func EffectiveInitial(v Variable) Initial {
	if i := v.Attrs().Initial; i != InitialUnset {
		return i
	}
	return ruleFor(EffectiveCausality(v), EffectiveVariability(v)).def
}

// RequiresStart reports whether the variable must declare a start value:
// exact or approx initial, input or parameter causality, or constant variability.
func RequiresStart(v Variable) bool {
	switch EffectiveInitial(v) {
	case Exact, Approx:
		return true
	}
	switch EffectiveCausality(v) {
	case Input, Parameter, StructuralParameter:
		return true
	}
	return EffectiveVariability(v) == Constant
}

// ForbidsStart reports whether a start value is illegal: independent
// variables and variables whose initial is calculated.
func ForbidsStart(v Variable) bool {
	return EffectiveCausality(v) == Independent || EffectiveInitial(v) == Calculated
}

// CheckAttributes validates a declaration against the attribute rules of the
// given standard version. It does not look at links to other variables.
func CheckAttributes(version Version, v Variable) error {
	a := v.Attrs()
	invalid := func(format string, args ...any) error {
		return &InvalidAttributeCombinationError{Name: a.Name, Reason: fmt.Sprintf(format, args...)}
	}
	if a.Name == "" {
		return invalid("name must not be empty")
	}

	c, vr := EffectiveCausality(v), EffectiveVariability(v)
	if c == StructuralParameter && version != FMI3 {
		return invalid("causality %s requires FMI 3.0", c)
	}
	if !validVariables[vr][c] {
		return invalid("causality %s cannot be combined with variability %s", c, vr)
	}
	if vr == Continuous && v.Type() != TypeReal {
		return invalid("variability continuous is only allowed for Real variables, got %s", v.Type())
	}
	if c == Independent && v.Type() != TypeReal {
		return invalid("causality independent is only allowed for Real variables, got %s", v.Type())
	}

	rule := ruleFor(c, vr)
	if a.Initial != InitialUnset && !slices.Contains(rule.allowed, a.Initial) {
		if len(rule.allowed) == 0 {
			return invalid("initial must not be set for causality %s", c)
		}
		return invalid("initial %s not allowed for causality %s with variability %s", a.Initial, c, vr)
	}

	switch {
	case RequiresStart(v) && !v.HasStart():
		return invalid("start is required (causality=%s, variability=%s, initial=%s)", c, vr, EffectiveInitial(v))
	case ForbidsStart(v) && v.HasStart():
		if c == Independent {
			return invalid("start must not be set for causality independent")
		}
		return invalid("start must not be set when initial is calculated")
	}

	if err := checkTyped(version, v); err != nil {
		return invalid("%s", err.Error())
	}
	return nil
}

// checkTyped applies the rules that depend on the concrete variable kind.
func checkTyped(version Version, v Variable) error {
	switch t := v.(type) {
	case *Real:
		if t.Start != nil && math.IsNaN(*t.Start) {
			return fmt.Errorf("start must not be NaN")
		}
		if slices.ContainsFunc(t.ArrayStart, math.IsNaN) {
			return fmt.Errorf("start must not contain NaN")
		}
		if t.Derivative != nil && EffectiveVariability(v) != Continuous {
			return fmt.Errorf("derivative requires variability continuous")
		}
		if EffectiveCausality(v) == Independent && len(t.Dimensions) > 0 {
			return fmt.Errorf("independent variable must be a scalar")
		}
		return checkArray(version, t.Dimensions, t.Start != nil, len(t.ArrayStart))
	case *Integer:
		if t.Kind != Int32 && version != FMI3 {
			return fmt.Errorf("integer kind %s requires FMI 3.0", t.Kind)
		}
		lo, hi := t.Kind.bounds()
		if t.Start != nil && (*t.Start < lo || *t.Start > hi) {
			return fmt.Errorf("start %d out of range for %s", *t.Start, t.Kind)
		}
		for _, s := range t.ArrayStart {
			if s < lo || s > hi {
				return fmt.Errorf("start %d out of range for %s", s, t.Kind)
			}
		}
		return checkArray(version, t.Dimensions, t.Start != nil, len(t.ArrayStart))
	case *Enumeration:
		return checkEnumeration(t)
	}
	return nil
}

func checkArray(version Version, dims []Dimension, scalarStart bool, arrayStart int) error {
	if len(dims) == 0 {
		if arrayStart > 0 {
			return fmt.Errorf("array start given for a scalar variable")
		}
		return nil
	}
	if version != FMI3 {
		return fmt.Errorf("array dimensions require FMI 3.0")
	}
	if scalarStart {
		return fmt.Errorf("array variable requires an array start, not a scalar start")
	}
	fixed := true
	size := uint64(1)
	for i, d := range dims {
		if (d.Start == nil) == (d.Ref == nil) {
			return fmt.Errorf("dimension %d must set exactly one of start or reference", i)
		}
		if d.Start != nil {
			size *= *d.Start
		} else {
			fixed = false
		}
	}
	if fixed && arrayStart > 0 && uint64(arrayStart) != size {
		return fmt.Errorf("array start has %d elements, dimensions require %d", arrayStart, size)
	}
	return nil
}

func checkEnumeration(e *Enumeration) error {
	if e.EnumType == nil || e.EnumType.Name == "" {
		return fmt.Errorf("enumeration requires a named type")
	}
	if len(e.EnumType.Items) == 0 {
		return fmt.Errorf("enumeration type %q has no items", e.EnumType.Name)
	}
	names := make(map[string]bool, len(e.EnumType.Items))
	values := make(map[int64]bool, len(e.EnumType.Items))
	for _, it := range e.EnumType.Items {
		if it.Name == "" || names[it.Name] || values[it.Value] {
			return fmt.Errorf("enumeration type %q: item names and values must be unique and non-empty", e.EnumType.Name)
		}
		names[it.Name], values[it.Value] = true, true
	}
	if e.Start != nil {
		if _, ok := e.EnumType.ItemByName(*e.Start); !ok {
			return fmt.Errorf("start %q is not an item of %q", *e.Start, e.EnumType.Name)
		}
	}
	return nil
}
