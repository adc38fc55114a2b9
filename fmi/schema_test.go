package fmi

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	allCausalities   = []Causality{Parameter, CalculatedParameter, StructuralParameter, Input, Output, Local, Independent}
	allVariabilities = []Variability{Constant, Fixed, Tunable, Discrete, Continuous}
	allInitials      = []Initial{InitialUnset, Exact, Approx, Calculated}
)

func TestCheckAttributes_EveryValidCombination_Succeeds(t *testing.T) {
	checked := 0
	for _, c := range allCausalities {
		for _, vr := range allVariabilities {
			if !validVariables[vr][c] {
				continue
			}
			rule := ruleFor(c, vr)
			for _, init := range allInitials {
				if init != InitialUnset && !containsInitial(rule.allowed, init) {
					continue
				}
				name := fmt.Sprintf("%s/%s/%s", c, vr, init)
				t.Run(name, func(t *testing.T) {
					// GIVEN a Real declaration for the combination
					v := &Real{Attributes: Attributes{Name: "x", Causality: c, Variability: vr, Initial: init}}

					// THEN RequiresStart follows the declared rule
					eff := EffectiveInitial(v)
					want := eff == Exact || eff == Approx || c == Input || c == Parameter || c == StructuralParameter || vr == Constant
					assert.Equal(t, want, RequiresStart(v))

					// WHEN a start is supplied exactly when required
					if RequiresStart(v) {
						v.Start = Ptr(1.0)
					}

					// THEN the declaration is accepted
					assert.NoError(t, CheckAttributes(FMI3, v))
				})
				checked++
			}
		}
	}
	assert.Greater(t, checked, 20)
}

func containsInitial(list []Initial, i Initial) bool {
	for _, x := range list {
		if x == i {
			return true
		}
	}
	return false
}

func TestCheckAttributes_InvalidPairs_Rejected(t *testing.T) {
	for _, c := range allCausalities {
		for _, vr := range allVariabilities {
			if validVariables[vr][c] {
				continue
			}
			v := &Real{Attributes: Attributes{Name: "x", Causality: c, Variability: vr}, Start: Ptr(1.0)}
			err := CheckAttributes(FMI3, v)
			var invalid *InvalidAttributeCombinationError
			if !errors.As(err, &invalid) {
				t.Errorf("%s/%s: err = %v, want InvalidAttributeCombinationError", c, vr, err)
				continue
			}
			assert.Equal(t, "x", invalid.Name)
		}
	}
}

func TestCheckAttributes_ExactWithoutStart_Rejected(t *testing.T) {
	// GIVEN an output with initial=exact and no start
	v := &Real{Attributes: Attributes{Name: "h", Causality: Output, Variability: Continuous, Initial: Exact}}

	// WHEN checked
	err := CheckAttributes(FMI2, v)

	// THEN the error names the variable and the rule
	var invalid *InvalidAttributeCombinationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "h", invalid.Name)
	assert.Contains(t, invalid.Reason, "start is required")
}

func TestCheckAttributes_Rules(t *testing.T) {
	enum := &EnumerationType{Name: "Mode", Items: []EnumItem{{Name: "off", Value: 0}, {Name: "on", Value: 1}}}
	tests := []struct {
		name    string
		version Version
		v       Variable
		reason  string // empty means valid
	}{
		{"empty name", FMI2, &Real{Start: Ptr(1.0), Attributes: Attributes{Causality: Parameter, Variability: Fixed}}, "name must not be empty"},
		{"calculated with start", FMI2, &Real{Attributes: Attributes{Name: "x", Causality: Output, Initial: Calculated}, Start: Ptr(1.0)}, "start must not be set"},
		{"independent with start", FMI2, &Real{Attributes: Attributes{Name: "t", Causality: Independent}, Start: Ptr(0.0)}, "start must not be set"},
		{"independent integer", FMI2, &Integer{Attributes: Attributes{Name: "t", Causality: Independent, Variability: Continuous}}, "only allowed for Real"},
		{"continuous boolean", FMI2, &Boolean{Attributes: Attributes{Name: "b", Variability: Continuous}}, "only allowed for Real"},
		{"input with initial", FMI2, &Real{Attributes: Attributes{Name: "u", Causality: Input, Initial: Exact}, Start: Ptr(0.0)}, "initial must not be set"},
		{"parameter approx", FMI2, &Real{Attributes: Attributes{Name: "p", Causality: Parameter, Variability: Fixed, Initial: Approx}, Start: Ptr(0.0)}, "initial approx not allowed"},
		{"structural parameter in FMI 2", FMI2, &Integer{Attributes: Attributes{Name: "n", Causality: StructuralParameter, Variability: Fixed}, Start: Ptr[int64](2)}, "requires FMI 3.0"},
		{"structural parameter in FMI 3", FMI3, &Integer{Attributes: Attributes{Name: "n", Causality: StructuralParameter, Variability: Fixed}, Start: Ptr[int64](2)}, ""},
		{"NaN start", FMI2, &Real{Attributes: Attributes{Name: "p", Causality: Parameter, Variability: Fixed}, Start: Ptr(math.NaN())}, "NaN"},
		{"derivative on discrete", FMI2, &Real{Attributes: Attributes{Name: "d", Variability: Discrete}, Derivative: Ptr[ValueReference](1)}, "derivative requires variability continuous"},
		{"int kind in FMI 2", FMI2, &Integer{Attributes: Attributes{Name: "i", Causality: Input}, Kind: UInt8, Start: Ptr[int64](1)}, "requires FMI 3.0"},
		{"int kind out of range", FMI3, &Integer{Attributes: Attributes{Name: "i", Causality: Input}, Kind: UInt8, Start: Ptr[int64](300)}, "out of range"},
		{"dimensions in FMI 2", FMI2, &Real{Attributes: Attributes{Name: "a", Causality: Input}, ArrayStart: []float64{1, 2}, Dimensions: []Dimension{FixedDim(2)}}, "require FMI 3.0"},
		{"array start size", FMI3, &Real{Attributes: Attributes{Name: "a", Causality: Input}, ArrayStart: []float64{1, 2, 3}, Dimensions: []Dimension{FixedDim(2)}}, "dimensions require 2"},
		{"scalar start on array", FMI3, &Real{Attributes: Attributes{Name: "v", Causality: Input}, Start: Ptr(1.5), Dimensions: []Dimension{FixedDim(3)}}, "requires an array start"},
		{"scalar start on integer array", FMI3, &Integer{Attributes: Attributes{Name: "k", Causality: Input}, Start: Ptr[int64](1), Dimensions: []Dimension{RefDim(0)}}, "requires an array start"},
		{"array start on scalar", FMI3, &Real{Attributes: Attributes{Name: "a", Causality: Input}, ArrayStart: []float64{1}}, "scalar variable"},
		{"dimension with both", FMI3, &Real{Attributes: Attributes{Name: "a", Causality: Input}, ArrayStart: []float64{1}, Dimensions: []Dimension{{Start: Ptr[uint64](1), Ref: Ptr[ValueReference](0)}}}, "exactly one"},
		{"ref dimension", FMI3, &Real{Attributes: Attributes{Name: "y", Causality: Output}, Dimensions: []Dimension{RefDim(1)}}, ""},
		{"enum without type", FMI2, &Enumeration{Attributes: Attributes{Name: "m", Causality: Input}, Start: Ptr("on")}, "named type"},
		{"enum bad start", FMI2, &Enumeration{Attributes: Attributes{Name: "m", Causality: Input}, EnumType: enum, Start: Ptr("dim")}, "not an item"},
		{"enum ok", FMI2, &Enumeration{Attributes: Attributes{Name: "m", Causality: Input}, EnumType: enum, Start: Ptr("on")}, ""},
		{"constant output", FMI2, &Real{Attributes: Attributes{Name: "c", Causality: Output, Variability: Constant}, Start: Ptr(2.0)}, ""},
		{"constant without start", FMI2, &Integer{Attributes: Attributes{Name: "c", Variability: Constant}}, "start is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckAttributes(tc.version, tc.v)
			if tc.reason == "" {
				assert.NoError(t, err)
				return
			}
			var invalid *InvalidAttributeCombinationError
			require.ErrorAs(t, err, &invalid)
			assert.Contains(t, invalid.Reason, tc.reason)
		})
	}
}

func TestEffectiveDefaults(t *testing.T) {
	r := &Real{Attributes: Attributes{Name: "x"}}
	b := &Boolean{Attributes: Attributes{Name: "b"}}

	assert.Equal(t, Local, EffectiveCausality(r))
	assert.Equal(t, Continuous, EffectiveVariability(r))
	assert.Equal(t, Discrete, EffectiveVariability(b))
	assert.Equal(t, Calculated, EffectiveInitial(r))
	assert.Equal(t, InitialUnset, EffectiveInitial(&Real{Attributes: Attributes{Name: "u", Causality: Input}}))
	assert.Equal(t, Exact, EffectiveInitial(&Real{Attributes: Attributes{Name: "p", Causality: Parameter, Variability: Fixed}}))
}

func TestEnums_ParseRoundTrip(t *testing.T) {
	for _, c := range allCausalities {
		got, err := ParseCausality(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	for _, v := range allVariabilities {
		got, err := ParseVariability(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseCausality("Input")
	assert.Error(t, err, "spellings are case sensitive")

	ver, err := ParseVersion("3.0")
	require.NoError(t, err)
	assert.Equal(t, FMI3, ver)
	_, err = ParseVersion("1.0")
	assert.Error(t, err)
}

func TestStatus_Recoverable(t *testing.T) {
	assert.True(t, StatusOK.Recoverable())
	assert.True(t, StatusWarning.Recoverable())
	assert.True(t, StatusDiscard.Recoverable())
	assert.False(t, StatusError.Recoverable())
	assert.False(t, StatusFatal.Recoverable())
	assert.Equal(t, "discard", StatusDiscard.String())
}
