// Package modelfile loads declarative model definitions from YAML and turns
// them into registry declarations.
package modelfile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/gofmu/gofmu/fmi"
	"gopkg.in/yaml.v3"
)

// ModelFile is the top-level model definition.
// Loaded from YAML via Load(path).
type ModelFile struct {
	Name              string            `yaml:"name"`
	Description       string            `yaml:"description,omitempty"`
	Author            string            `yaml:"author,omitempty"`
	ModelVersion      string            `yaml:"model_version,omitempty"`
	FMIVersion        string            `yaml:"fmi_version"`
	DefaultExperiment *ExperimentSpec   `yaml:"default_experiment,omitempty"`
	Enumerations      []EnumerationSpec `yaml:"enumerations,omitempty"`
	Variables         []VariableSpec    `yaml:"variables"`
}

// ExperimentSpec mirrors fmi.DefaultExperiment.
type ExperimentSpec struct {
	StartTime *float64 `yaml:"start_time,omitempty"`
	StopTime  *float64 `yaml:"stop_time,omitempty"`
	StepSize  *float64 `yaml:"step_size,omitempty"`
	Tolerance *float64 `yaml:"tolerance,omitempty"`
}

// EnumerationSpec declares a named enumeration type.
type EnumerationSpec struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Items       []ItemSpec `yaml:"items"`
}

// ItemSpec is one enumeration item.
type ItemSpec struct {
	Name        string `yaml:"name"`
	Value       int64  `yaml:"value"`
	Description string `yaml:"description,omitempty"`
}

// VariableSpec declares one variable. Links to other variables use names;
// they are resolved to value references by Declarations.
type VariableSpec struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Causality   string `yaml:"causality,omitempty"`
	Variability string `yaml:"variability,omitempty"`
	Initial     string `yaml:"initial,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Start is decoded according to Type once the whole file is read: a
	// scalar, or a sequence for arrays. A zero Kind means no start.
	Start       yaml.Node       `yaml:"start,omitempty"`
	Derivative  string          `yaml:"derivative,omitempty"`
	Dimensions  []DimensionSpec `yaml:"dimensions,omitempty"`
	Unit        string          `yaml:"unit,omitempty"`
	Kind        string          `yaml:"kind,omitempty"`
	Enumeration string          `yaml:"enumeration,omitempty"`
}

// HasStart reports whether the file gave the variable a start value.
func (v *VariableSpec) HasStart() bool { return v.Start.Kind != 0 }

// DimensionSpec is a fixed extent or the name of the variable holding it.
type DimensionSpec struct {
	Start *uint64 `yaml:"start,omitempty"`
	Ref   string  `yaml:"ref,omitempty"`
}

var validTypes = map[string]fmi.ValueType{
	"Real":        fmi.TypeReal,
	"Integer":     fmi.TypeInteger,
	"Boolean":     fmi.TypeBoolean,
	"String":      fmi.TypeString,
	"Enumeration": fmi.TypeEnumeration,
}

// Load reads and parses a YAML model file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func Load(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes and validates a model file.
func Parse(r io.Reader) (*ModelFile, error) {
	var f ModelFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Version is the FMI version the file targets.
func (f *ModelFile) Version() (fmi.Version, error) {
	return fmi.ParseVersion(f.FMIVersion)
}

// Validate checks the file on its own, without registering anything. Attribute
// combinations are checked later by the registry against the target version.
func (f *ModelFile) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if _, err := f.Version(); err != nil {
		return fmt.Errorf("fmi_version: %w", err)
	}
	if e := f.DefaultExperiment; e != nil {
		for name, val := range map[string]*float64{"start_time": e.StartTime, "stop_time": e.StopTime, "step_size": e.StepSize, "tolerance": e.Tolerance} {
			if val != nil && (math.IsNaN(*val) || math.IsInf(*val, 0)) {
				return fmt.Errorf("default_experiment.%s must be a finite number, got %f", name, *val)
			}
		}
	}
	enums := make(map[string]bool, len(f.Enumerations))
	for i, e := range f.Enumerations {
		if e.Name == "" {
			return fmt.Errorf("enumeration[%d]: name must not be empty", i)
		}
		if enums[e.Name] {
			return fmt.Errorf("enumeration[%d]: duplicate name %q", i, e.Name)
		}
		if len(e.Items) == 0 {
			return fmt.Errorf("enumeration[%d] (%s): at least one item required", i, e.Name)
		}
		enums[e.Name] = true
	}
	if len(f.Variables) == 0 {
		return fmt.Errorf("at least one variable required")
	}
	names := make(map[string]bool, len(f.Variables))
	for i, v := range f.Variables {
		if names[v.Name] {
			return fmt.Errorf("variable[%d]: duplicate name %q", i, v.Name)
		}
		names[v.Name] = true
	}
	for i := range f.Variables {
		if err := validateVariable(&f.Variables[i], i, names, enums); err != nil {
			return err
		}
	}
	return nil
}

func validateVariable(v *VariableSpec, idx int, names, enums map[string]bool) error {
	prefix := fmt.Sprintf("variable[%d]", idx)
	if v.Name != "" {
		prefix = fmt.Sprintf("variable[%d] (%s)", idx, v.Name)
	}
	typ, ok := validTypes[v.Type]
	if !ok {
		return fmt.Errorf("%s: unknown type %q; valid: Real, Integer, Boolean, String, Enumeration", prefix, v.Type)
	}
	if _, err := fmi.ParseCausality(v.Causality); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if _, err := fmi.ParseVariability(v.Variability); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if _, err := fmi.ParseInitial(v.Initial); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if v.Derivative != "" {
		if typ != fmi.TypeReal {
			return fmt.Errorf("%s: derivative is only allowed on Real variables", prefix)
		}
		if !names[v.Derivative] {
			return fmt.Errorf("%s: derivative refers to unknown variable %q", prefix, v.Derivative)
		}
	}
	if len(v.Dimensions) > 0 && typ != fmi.TypeReal && typ != fmi.TypeInteger {
		return fmt.Errorf("%s: dimensions are only allowed on Real and Integer variables", prefix)
	}
	for i, d := range v.Dimensions {
		if (d.Start == nil) == (d.Ref == "") {
			return fmt.Errorf("%s.dimensions[%d]: exactly one of start or ref required", prefix, i)
		}
		if d.Ref != "" && !names[d.Ref] {
			return fmt.Errorf("%s.dimensions[%d]: ref to unknown variable %q", prefix, i, d.Ref)
		}
	}
	if v.Kind != "" {
		if typ != fmi.TypeInteger {
			return fmt.Errorf("%s: kind is only allowed on Integer variables", prefix)
		}
		if _, err := fmi.ParseIntegerKind(v.Kind); err != nil {
			return fmt.Errorf("%s: %w", prefix, err)
		}
	}
	if typ == fmi.TypeEnumeration && !enums[v.Enumeration] {
		return fmt.Errorf("%s: unknown enumeration %q", prefix, v.Enumeration)
	}
	if typ != fmi.TypeEnumeration && v.Enumeration != "" {
		return fmt.Errorf("%s: enumeration is only allowed on Enumeration variables", prefix)
	}
	if v.HasStart() {
		if _, err := decodeStart(&v.Start, typ, len(v.Dimensions) > 0); err != nil {
			return fmt.Errorf("%s: start: %w", prefix, err)
		}
	}
	return nil
}

// decodeStart converts the raw start node into the Go value of the variable's type.
func decodeStart(n *yaml.Node, typ fmi.ValueType, array bool) (any, error) {
	switch {
	case typ == fmi.TypeReal && array:
		var v []float64
		err := n.Decode(&v)
		return v, err
	case typ == fmi.TypeReal:
		var v float64
		err := n.Decode(&v)
		return v, err
	case typ == fmi.TypeInteger && array:
		var v []int64
		err := n.Decode(&v)
		return v, err
	case typ == fmi.TypeInteger:
		var v int64
		err := n.Decode(&v)
		return v, err
	case typ == fmi.TypeBoolean:
		var v bool
		err := n.Decode(&v)
		return v, err
	default:
		if n.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: expected a scalar", n.Line)
		}
		return n.Value, nil
	}
}

// ModelInfo returns the descriptor attributes declared in the file.
func (f *ModelFile) ModelInfo() fmi.ModelInfo {
	info := fmi.ModelInfo{
		Name:        f.Name,
		Description: f.Description,
		Author:      f.Author,
		Version:     f.ModelVersion,
	}
	if e := f.DefaultExperiment; e != nil {
		info.DefaultExperiment = &fmi.DefaultExperiment{
			StartTime: e.StartTime,
			StopTime:  e.StopTime,
			StepSize:  e.StepSize,
			Tolerance: e.Tolerance,
		}
	}
	return info
}
