package fmi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
)

// VariableRecord is one variable as read back from a descriptor, in
// version-neutral form. Links are expressed as value references.
type VariableRecord struct {
	Name        string
	Reference   ValueReference
	Element     string
	Description string
	Causality   string
	Variability string
	Initial     string
	Start       *string
	Derivative  *ValueReference
	// Dimensions holds "start" extents or "#ref" markers in declaration order.
	Dimensions []string
}

// Description is a parsed model description.
type Description struct {
	FMIVersion            string
	ModelName             string
	Token                 string
	GenerationTool        string
	GenerationDateAndTime string
	ModelIdentifier       string
	DefaultExperiment     *DefaultExperiment
	Variables             []VariableRecord
	Outputs               []ValueReference
	Derivatives           []ValueReference
	InitialUnknowns       []ValueReference
}

// ParseDescriptor reads an FMI 2 or FMI 3 model description.
func ParseDescriptor(r io.Reader) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading model description: %w", err)
	}
	var probe struct {
		FMIVersion string `xml:"fmiVersion,attr"`
	}
	if err := xml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing model description: %w", err)
	}
	version, err := ParseVersion(probe.FMIVersion)
	if err != nil {
		return nil, fmt.Errorf("parsing model description: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	switch version {
	case FMI2:
		var doc fmi2ModelDescription
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing model description: %w", err)
		}
		return fromFMI2(&doc)
	default:
		var doc fmi3ModelDescription
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parsing model description: %w", err)
		}
		return fromFMI3(&doc)
	}
}

func fromFMI2(doc *fmi2ModelDescription) (*Description, error) {
	d := &Description{
		FMIVersion:            doc.FMIVersion,
		ModelName:             doc.ModelName,
		Token:                 doc.GUID,
		GenerationTool:        doc.GenerationTool,
		GenerationDateAndTime: doc.GenerationDateAndTime,
	}
	if doc.CoSimulation != nil {
		d.ModelIdentifier = doc.CoSimulation.ModelIdentifier
	}
	exp, err := fromXMLExperiment(doc.DefaultExperiment)
	if err != nil {
		return nil, err
	}
	d.DefaultExperiment = exp

	vars := doc.ModelVariables.Variables
	refAt := func(index int) (ValueReference, error) {
		if index < 1 || index > len(vars) {
			return 0, fmt.Errorf("index %d out of range [1, %d]", index, len(vars))
		}
		return vars[index-1].ValueReference, nil
	}
	for _, sv := range vars {
		element, attrs := sv.typed()
		if attrs == nil {
			return nil, fmt.Errorf("variable %q has no type element", sv.Name)
		}
		rec := VariableRecord{
			Name:        sv.Name,
			Reference:   sv.ValueReference,
			Element:     element,
			Description: sv.Description,
			Causality:   sv.Causality,
			Variability: sv.Variability,
			Initial:     sv.Initial,
			Start:       attrs.Start,
		}
		if attrs.Derivative != nil {
			ref, err := refAt(*attrs.Derivative)
			if err != nil {
				return nil, fmt.Errorf("variable %q derivative: %w", sv.Name, err)
			}
			rec.Derivative = &ref
		}
		d.Variables = append(d.Variables, rec)
	}

	unknowns := func(u *fmi2Unknowns) ([]ValueReference, error) {
		if u == nil {
			return nil, nil
		}
		out := make([]ValueReference, 0, len(u.Unknowns))
		for _, x := range u.Unknowns {
			ref, err := refAt(x.Index)
			if err != nil {
				return nil, fmt.Errorf("model structure: %w", err)
			}
			out = append(out, ref)
		}
		return out, nil
	}
	if d.Outputs, err = unknowns(doc.ModelStructure.Outputs); err != nil {
		return nil, err
	}
	if d.Derivatives, err = unknowns(doc.ModelStructure.Derivatives); err != nil {
		return nil, err
	}
	if d.InitialUnknowns, err = unknowns(doc.ModelStructure.InitialUnknowns); err != nil {
		return nil, err
	}
	return d, nil
}

func fromFMI3(doc *fmi3ModelDescription) (*Description, error) {
	d := &Description{
		FMIVersion:            doc.FMIVersion,
		ModelName:             doc.ModelName,
		Token:                 doc.InstantiationToken,
		GenerationTool:        doc.GenerationTool,
		GenerationDateAndTime: doc.GenerationDateAndTime,
	}
	if doc.CoSimulation != nil {
		d.ModelIdentifier = doc.CoSimulation.ModelIdentifier
	}
	exp, err := fromXMLExperiment(doc.DefaultExperiment)
	if err != nil {
		return nil, err
	}
	d.DefaultExperiment = exp

	for _, v := range doc.ModelVariables.Variables {
		rec := VariableRecord{
			Name:        v.Name,
			Reference:   v.ValueReference,
			Element:     v.XMLName.Local,
			Description: v.Description,
			Causality:   v.Causality,
			Variability: v.Variability,
			Initial:     v.Initial,
			Start:       v.Start,
			Derivative:  v.Derivative,
		}
		if len(v.Starts) > 0 {
			s := v.Starts[0].Value
			rec.Start = &s
		}
		for _, dim := range v.Dimensions {
			switch {
			case dim.Start != nil:
				rec.Dimensions = append(rec.Dimensions, strconv.FormatUint(*dim.Start, 10))
			case dim.ValueReference != nil:
				rec.Dimensions = append(rec.Dimensions, "#"+strconv.FormatUint(uint64(*dim.ValueReference), 10))
			}
		}
		d.Variables = append(d.Variables, rec)
	}
	refs := func(us []fmi3Unknown) []ValueReference {
		if len(us) == 0 {
			return nil
		}
		out := make([]ValueReference, len(us))
		for i, u := range us {
			out[i] = u.ValueReference
		}
		return out
	}
	d.Outputs = refs(doc.ModelStructure.Outputs)
	d.Derivatives = refs(doc.ModelStructure.Derivatives)
	d.InitialUnknowns = refs(doc.ModelStructure.InitialUnknowns)
	return d, nil
}

func fromXMLExperiment(x *xmlDefaultExperiment) (*DefaultExperiment, error) {
	if x == nil {
		return nil, nil
	}
	f := func(name string, s *string) (*float64, error) {
		if s == nil {
			return nil, nil
		}
		v, err := strconv.ParseFloat(*s, 64)
		if err != nil {
			return nil, fmt.Errorf("default experiment %s: %w", name, err)
		}
		return &v, nil
	}
	var (
		e   DefaultExperiment
		err error
	)
	if e.StartTime, err = f("startTime", x.StartTime); err != nil {
		return nil, err
	}
	if e.StopTime, err = f("stopTime", x.StopTime); err != nil {
		return nil, err
	}
	if e.StepSize, err = f("stepSize", x.StepSize); err != nil {
		return nil, err
	}
	if e.Tolerance, err = f("tolerance", x.Tolerance); err != nil {
		return nil, err
	}
	return &e, nil
}

// Records returns the descriptor view of every registered variable, as
// ParseDescriptor reads it back, in registration order.
func (r *Registry) Records() []VariableRecord {
	out := make([]VariableRecord, 0, len(r.vars))
	for _, v := range r.vars {
		out = append(out, r.record(v))
	}
	return out
}

func (r *Registry) record(v *Registered) VariableRecord {
	a := v.Attrs()
	rec := VariableRecord{
		Name:        a.Name,
		Reference:   v.ref,
		Element:     elementName(r.version, v.Variable),
		Description: a.Description,
		Causality:   a.Causality.String(),
		Variability: a.Variability.String(),
		Initial:     a.Initial.String(),
		Start:       startText(v.Variable),
	}
	if rv, ok := v.Variable.(*Real); ok {
		rec.Derivative = rv.Derivative
	}
	for _, dim := range dimensionsOf(v.Variable) {
		switch {
		case dim.Start != nil:
			rec.Dimensions = append(rec.Dimensions, strconv.FormatUint(*dim.Start, 10))
		case dim.Ref != nil:
			rec.Dimensions = append(rec.Dimensions, "#"+strconv.FormatUint(uint64(*dim.Ref), 10))
		}
	}
	return rec
}

// elementName is the descriptor element carrying the variable's type.
func elementName(version Version, v Variable) string {
	if version == FMI2 {
		return v.Type().String()
	}
	switch t := v.(type) {
	case *Real:
		return "Float64"
	case *Integer:
		return t.Kind.String()
	}
	return v.Type().String()
}
