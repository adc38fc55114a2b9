package modelfile

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"
)

// hclModelFile is the HCL form of ModelFile. Enumerations and variables are
// labelled blocks and keep their source order.
type hclModelFile struct {
	Name              string            `hcl:"name"`
	Description       string            `hcl:"description,optional"`
	Author            string            `hcl:"author,optional"`
	ModelVersion      string            `hcl:"model_version,optional"`
	FMIVersion        string            `hcl:"fmi_version"`
	DefaultExperiment *hclExperiment    `hcl:"default_experiment,block"`
	Enumerations      []*hclEnumeration `hcl:"enumeration,block"`
	Variables         []*hclVariable    `hcl:"variable,block"`
}

type hclExperiment struct {
	StartTime *float64 `hcl:"start_time,optional"`
	StopTime  *float64 `hcl:"stop_time,optional"`
	StepSize  *float64 `hcl:"step_size,optional"`
	Tolerance *float64 `hcl:"tolerance,optional"`
}

type hclEnumeration struct {
	Name        string     `hcl:"name,label"`
	Description string     `hcl:"description,optional"`
	Items       []*hclItem `hcl:"item,block"`
}

type hclItem struct {
	Name        string `hcl:"name,label"`
	Value       int64  `hcl:"value"`
	Description string `hcl:"description,optional"`
}

type hclVariable struct {
	Name        string          `hcl:"name,label"`
	Type        string          `hcl:"type"`
	Causality   string          `hcl:"causality,optional"`
	Variability string          `hcl:"variability,optional"`
	Initial     string          `hcl:"initial,optional"`
	Description string          `hcl:"description,optional"`
	Start       *cty.Value      `hcl:"start,optional"`
	Derivative  string          `hcl:"derivative,optional"`
	Dimensions  []*hclDimension `hcl:"dimension,block"`
	Unit        string          `hcl:"unit,optional"`
	Kind        string          `hcl:"kind,optional"`
	Enumeration string          `hcl:"enumeration,optional"`
}

type hclDimension struct {
	Start *uint64 `hcl:"start,optional"`
	Ref   string  `hcl:"ref,optional"`
}

// Open loads a model file, choosing HCL for a .hcl extension and YAML otherwise.
func Open(path string) (*ModelFile, error) {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return LoadHCL(path)
	}
	return Load(path)
}

// LoadHCL reads and parses an HCL model file.
func LoadHCL(path string) (*ModelFile, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("reading model file: %w", diags)
	}
	return decodeHCL(file)
}

// ParseHCL decodes and validates an HCL model file held in memory. filename
// only appears in diagnostics.
func ParseHCL(src []byte, filename string) (*ModelFile, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing model file: %w", diags)
	}
	return decodeHCL(file)
}

func decodeHCL(file *hcl.File) (*ModelFile, error) {
	var raw hclModelFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("parsing model file: %w", diags)
	}
	f, err := raw.modelFile()
	if err != nil {
		return nil, fmt.Errorf("parsing model file: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func (h *hclModelFile) modelFile() (*ModelFile, error) {
	f := &ModelFile{
		Name:         h.Name,
		Description:  h.Description,
		Author:       h.Author,
		ModelVersion: h.ModelVersion,
		FMIVersion:   h.FMIVersion,
	}
	if e := h.DefaultExperiment; e != nil {
		f.DefaultExperiment = &ExperimentSpec{StartTime: e.StartTime, StopTime: e.StopTime, StepSize: e.StepSize, Tolerance: e.Tolerance}
	}
	for _, e := range h.Enumerations {
		spec := EnumerationSpec{Name: e.Name, Description: e.Description}
		for _, it := range e.Items {
			spec.Items = append(spec.Items, ItemSpec{Name: it.Name, Value: it.Value, Description: it.Description})
		}
		f.Enumerations = append(f.Enumerations, spec)
	}
	for _, v := range h.Variables {
		spec := VariableSpec{
			Name:        v.Name,
			Type:        v.Type,
			Causality:   v.Causality,
			Variability: v.Variability,
			Initial:     v.Initial,
			Description: v.Description,
			Derivative:  v.Derivative,
			Unit:        v.Unit,
			Kind:        v.Kind,
			Enumeration: v.Enumeration,
		}
		for _, d := range v.Dimensions {
			spec.Dimensions = append(spec.Dimensions, DimensionSpec{Start: d.Start, Ref: d.Ref})
		}
		if v.Start != nil && !v.Start.IsNull() {
			n, err := startNode(*v.Start)
			if err != nil {
				return nil, fmt.Errorf("variable %q: start: %w", v.Name, err)
			}
			spec.Start = *n
		}
		f.Variables = append(f.Variables, spec)
	}
	return f, nil
}

// startNode re-encodes an HCL start value as the YAML node the rest of the
// package decodes by type.
func startNode(val cty.Value) (*yaml.Node, error) {
	goVal, err := fromCty(val)
	if err != nil {
		return nil, err
	}
	n := &yaml.Node{}
	if err := n.Encode(goVal); err != nil {
		return nil, err
	}
	return n, nil
}

func fromCty(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, fmt.Errorf("value must be known and not null")
	}
	ty := val.Type()
	switch {
	case ty == cty.Number:
		return fromNumber(val.AsBigFloat()), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.String:
		return val.AsString(), nil
	case ty.IsTupleType() || ty.IsListType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			v, err := fromCty(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}

func fromNumber(bf *big.Float) any {
	if bf.IsInt() {
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
	}
	f, _ := bf.Float64()
	return f
}
