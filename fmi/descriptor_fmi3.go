package fmi

import "encoding/xml"

type fmi3ModelDescription struct {
	XMLName                  xml.Name              `xml:"fmiModelDescription"`
	FMIVersion               string                `xml:"fmiVersion,attr"`
	ModelName                string                `xml:"modelName,attr"`
	InstantiationToken       string                `xml:"instantiationToken,attr"`
	Description              string                `xml:"description,attr,omitempty"`
	Author                   string                `xml:"author,attr,omitempty"`
	Version                  string                `xml:"version,attr,omitempty"`
	Copyright                string                `xml:"copyright,attr,omitempty"`
	License                  string                `xml:"license,attr,omitempty"`
	GenerationTool           string                `xml:"generationTool,attr,omitempty"`
	GenerationDateAndTime    string                `xml:"generationDateAndTime,attr,omitempty"`
	VariableNamingConvention string                `xml:"variableNamingConvention,attr,omitempty"`
	CoSimulation             *fmi3CoSimulation     `xml:"CoSimulation"`
	TypeDefinitions          *fmi3TypeDefinitions  `xml:"TypeDefinitions,omitempty"`
	DefaultExperiment        *xmlDefaultExperiment `xml:"DefaultExperiment,omitempty"`
	ModelVariables           fmi3ModelVariables    `xml:"ModelVariables"`
	ModelStructure           fmi3ModelStructure    `xml:"ModelStructure"`
}

func (d *fmi3ModelDescription) stamp(token, generatedAt string) {
	d.InstantiationToken = token
	d.GenerationDateAndTime = generatedAt
}

type fmi3CoSimulation struct {
	ModelIdentifier                        string `xml:"modelIdentifier,attr"`
	NeedsExecutionTool                     bool   `xml:"needsExecutionTool,attr,omitempty"`
	CanHandleVariableCommunicationStepSize bool   `xml:"canHandleVariableCommunicationStepSize,attr,omitempty"`
}

type fmi3TypeDefinitions struct {
	EnumerationTypes []fmi3EnumerationType `xml:"EnumerationType"`
}

type fmi3EnumerationType struct {
	Name        string        `xml:"name,attr"`
	Description string        `xml:"description,attr,omitempty"`
	Items       []xmlEnumItem `xml:"Item"`
}

// fmi3ModelVariables holds heterogeneous elements; each carries its own tag in XMLName.
type fmi3ModelVariables struct {
	Variables []fmi3Variable `xml:",any"`
}

type fmi3Variable struct {
	XMLName        xml.Name
	Name           string          `xml:"name,attr"`
	ValueReference ValueReference  `xml:"valueReference,attr"`
	Description    string          `xml:"description,attr,omitempty"`
	Causality      string          `xml:"causality,attr,omitempty"`
	Variability    string          `xml:"variability,attr,omitempty"`
	Initial        string          `xml:"initial,attr,omitempty"`
	DeclaredType   string          `xml:"declaredType,attr,omitempty"`
	Unit           string          `xml:"unit,attr,omitempty"`
	Start          *string         `xml:"start,attr,omitempty"`
	Derivative     *ValueReference `xml:"derivative,attr,omitempty"`
	Dimensions     []fmi3Dimension `xml:"Dimension"`
	Starts         []fmi3Start     `xml:"Start"`
}

type fmi3Dimension struct {
	Start          *uint64         `xml:"start,attr,omitempty"`
	ValueReference *ValueReference `xml:"valueReference,attr,omitempty"`
}

// fmi3Start is the child element String variables use for their start value.
type fmi3Start struct {
	Value string `xml:"value,attr"`
}

type fmi3ModelStructure struct {
	Outputs         []fmi3Unknown `xml:"Output"`
	Derivatives     []fmi3Unknown `xml:"ContinuousStateDerivative"`
	InitialUnknowns []fmi3Unknown `xml:"InitialUnknown"`
}

type fmi3Unknown struct {
	ValueReference ValueReference `xml:"valueReference,attr"`
}

func buildFMI3(info ModelInfo, reg *Registry) *fmi3ModelDescription {
	doc := &fmi3ModelDescription{
		FMIVersion:               FMI3.String(),
		ModelName:                info.Name,
		Description:              info.Description,
		Author:                   info.Author,
		Version:                  info.Version,
		Copyright:                info.Copyright,
		License:                  info.License,
		GenerationTool:           info.tool(),
		VariableNamingConvention: "structured",
		CoSimulation: &fmi3CoSimulation{
			ModelIdentifier:                        info.identifier(),
			NeedsExecutionTool:                     info.NeedsExecutionTool,
			CanHandleVariableCommunicationStepSize: info.CanHandleVariableStepSize,
		},
		DefaultExperiment: toXMLExperiment(info.DefaultExperiment),
	}

	if enums := reg.EnumerationTypes(); len(enums) > 0 {
		defs := &fmi3TypeDefinitions{}
		for _, e := range enums {
			defs.EnumerationTypes = append(defs.EnumerationTypes, fmi3EnumerationType{
				Name:        e.Name,
				Description: e.Description,
				Items:       xmlItems(e.Items),
			})
		}
		doc.TypeDefinitions = defs
	}

	for _, v := range reg.vars {
		doc.ModelVariables.Variables = append(doc.ModelVariables.Variables, fmi3VariableOf(v))
	}

	s := computeStructure(reg)
	doc.ModelStructure = fmi3ModelStructure{
		Outputs:         fmi3UnknownList(s.outputs),
		Derivatives:     fmi3UnknownList(s.derivatives),
		InitialUnknowns: fmi3UnknownList(s.initialUnknowns),
	}
	return doc
}

// fmi3VariableOf is the FMI 3 serialization of one registered variable: a
// single element named after its type with every attribute inline.
func fmi3VariableOf(v *Registered) fmi3Variable {
	a := v.Attrs()
	out := fmi3Variable{
		Name:           a.Name,
		ValueReference: v.ref,
		Description:    a.Description,
		Causality:      a.Causality.String(),
		Variability:    a.Variability.String(),
		Initial:        a.Initial.String(),
	}
	start := startText(v.Variable)
	switch t := v.Variable.(type) {
	case *Real:
		out.XMLName.Local = "Float64"
		out.Unit = t.Unit
		out.Derivative = t.Derivative
		out.Start = start
		out.Dimensions = fmi3Dims(t.Dimensions)
	case *Integer:
		out.XMLName.Local = t.Kind.String()
		out.Start = start
		out.Dimensions = fmi3Dims(t.Dimensions)
	case *Boolean:
		out.XMLName.Local = "Boolean"
		out.Start = start
	case *String:
		out.XMLName.Local = "String"
		if start != nil {
			out.Starts = []fmi3Start{{Value: *start}}
		}
	case *Enumeration:
		out.XMLName.Local = "Enumeration"
		out.DeclaredType = t.EnumType.Name
		out.Start = start
	}
	return out
}

func fmi3Dims(dims []Dimension) []fmi3Dimension {
	if len(dims) == 0 {
		return nil
	}
	out := make([]fmi3Dimension, len(dims))
	for i, d := range dims {
		out[i] = fmi3Dimension{Start: d.Start, ValueReference: d.Ref}
	}
	return out
}

func fmi3UnknownList(vs []*Registered) []fmi3Unknown {
	out := make([]fmi3Unknown, 0, len(vs))
	for _, v := range vs {
		out = append(out, fmi3Unknown{ValueReference: v.ref})
	}
	return out
}
