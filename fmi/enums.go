package fmi

import (
	"fmt"
	"math"
)

// Version selects the FMI standard the descriptor targets.
type Version int

const (
	FMI2 Version = 2
	FMI3 Version = 3
)

func (v Version) String() string {
	switch v {
	case FMI2:
		return "2.0"
	case FMI3:
		return "3.0"
	}
	return fmt.Sprintf("Version(%d)", int(v))
}

// ParseVersion accepts "2", "2.0", "3" or "3.0".
func ParseVersion(s string) (Version, error) {
	switch s {
	case "2", "2.0":
		return FMI2, nil
	case "3", "3.0":
		return FMI3, nil
	}
	return 0, fmt.Errorf("unknown FMI version %q; valid: 2.0, 3.0", s)
}

// Causality declares a variable's role in data flow. The zero value means unset.
type Causality int

const (
	CausalityUnset Causality = iota
	Parameter
	CalculatedParameter
	StructuralParameter // FMI 3 only
	Input
	Output
	Local
	Independent
)

var causalityNames = map[Causality]string{
	Parameter:           "parameter",
	CalculatedParameter: "calculatedParameter",
	StructuralParameter: "structuralParameter",
	Input:               "input",
	Output:              "output",
	Local:               "local",
	Independent:         "independent",
}

func (c Causality) String() string { return causalityNames[c] }

// ParseCausality maps the standard spelling to a Causality. The empty string is CausalityUnset.
func ParseCausality(s string) (Causality, error) {
	if s == "" {
		return CausalityUnset, nil
	}
	for c, name := range causalityNames {
		if name == s {
			return c, nil
		}
	}
	return CausalityUnset, fmt.Errorf("unknown causality %q", s)
}

// Variability declares how often a variable's value may change. The zero value means unset.
type Variability int

const (
	VariabilityUnset Variability = iota
	Constant
	Fixed
	Tunable
	Discrete
	Continuous
)

var variabilityNames = map[Variability]string{
	Constant:   "constant",
	Fixed:      "fixed",
	Tunable:    "tunable",
	Discrete:   "discrete",
	Continuous: "continuous",
}

func (v Variability) String() string { return variabilityNames[v] }

func ParseVariability(s string) (Variability, error) {
	if s == "" {
		return VariabilityUnset, nil
	}
	for v, name := range variabilityNames {
		if name == s {
			return v, nil
		}
	}
	return VariabilityUnset, fmt.Errorf("unknown variability %q", s)
}

// Initial declares how a variable's starting value is determined. The zero value means unset.
type Initial int

const (
	InitialUnset Initial = iota
	Exact
	Approx
	Calculated
)

var initialNames = map[Initial]string{
	Exact:      "exact",
	Approx:     "approx",
	Calculated: "calculated",
}

func (i Initial) String() string { return initialNames[i] }

func ParseInitial(s string) (Initial, error) {
	if s == "" {
		return InitialUnset, nil
	}
	for i, name := range initialNames {
		if name == s {
			return i, nil
		}
	}
	return InitialUnset, fmt.Errorf("unknown initial %q", s)
}

// Status is the outcome of a step, mirroring the standard's severity levels.
type Status int

const (
	StatusOK Status = iota
	StatusWarning
	StatusDiscard
	StatusError
	StatusFatal
)

var statusNames = [...]string{"ok", "warning", "discard", "error", "fatal"}

func (s Status) String() string {
	if s < StatusOK || s > StatusFatal {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusNames[s]
}

// Recoverable reports whether the host may continue after this status.
func (s Status) Recoverable() bool { return s <= StatusDiscard }

// ValueType is the value type of a variable or an accessor.
type ValueType int

const (
	TypeReal ValueType = iota
	TypeInteger
	TypeBoolean
	TypeString
	TypeEnumeration
)

var valueTypeNames = [...]string{"Real", "Integer", "Boolean", "String", "Enumeration"}

func (t ValueType) String() string {
	if t < TypeReal || t > TypeEnumeration {
		return fmt.Sprintf("ValueType(%d)", int(t))
	}
	return valueTypeNames[t]
}

// IntegerKind picks the FMI 3 integer element. FMI 2 always emits Integer.
type IntegerKind int

const (
	Int32 IntegerKind = iota
	Int8
	UInt8
	Int16
	UInt16
	UInt32
	Int64
	UInt64
)

var integerKindNames = [...]string{"Int32", "Int8", "UInt8", "Int16", "UInt16", "UInt32", "Int64", "UInt64"}

func (k IntegerKind) String() string {
	if k < Int32 || k > UInt64 {
		return fmt.Sprintf("IntegerKind(%d)", int(k))
	}
	return integerKindNames[k]
}

func ParseIntegerKind(s string) (IntegerKind, error) {
	if s == "" {
		return Int32, nil
	}
	for i, name := range integerKindNames {
		if name == s {
			return IntegerKind(i), nil
		}
	}
	return Int32, fmt.Errorf("unknown integer kind %q", s)
}

// bounds returns the inclusive value range of the kind.
func (k IntegerKind) bounds() (lo, hi int64) {
	switch k {
	case Int8:
		return -1 << 7, 1<<7 - 1
	case UInt8:
		return 0, 1<<8 - 1
	case Int16:
		return -1 << 15, 1<<15 - 1
	case UInt16:
		return 0, 1<<16 - 1
	case UInt32:
		return 0, 1<<32 - 1
	case Int64:
		return math.MinInt64, math.MaxInt64
	case UInt64:
		// values above MaxInt64 are not representable in an int64 start
		return 0, math.MaxInt64
	}
	return -1 << 31, 1<<31 - 1
}
