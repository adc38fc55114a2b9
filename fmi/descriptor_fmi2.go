package fmi

import "encoding/xml"

type fmi2ModelDescription struct {
	XMLName                  xml.Name              `xml:"fmiModelDescription"`
	FMIVersion               string                `xml:"fmiVersion,attr"`
	ModelName                string                `xml:"modelName,attr"`
	GUID                     string                `xml:"guid,attr"`
	Description              string                `xml:"description,attr,omitempty"`
	Author                   string                `xml:"author,attr,omitempty"`
	Version                  string                `xml:"version,attr,omitempty"`
	Copyright                string                `xml:"copyright,attr,omitempty"`
	License                  string                `xml:"license,attr,omitempty"`
	GenerationTool           string                `xml:"generationTool,attr,omitempty"`
	GenerationDateAndTime    string                `xml:"generationDateAndTime,attr,omitempty"`
	VariableNamingConvention string                `xml:"variableNamingConvention,attr,omitempty"`
	CoSimulation             *fmi2CoSimulation     `xml:"CoSimulation"`
	TypeDefinitions          *fmi2TypeDefinitions  `xml:"TypeDefinitions,omitempty"`
	DefaultExperiment        *xmlDefaultExperiment `xml:"DefaultExperiment,omitempty"`
	ModelVariables           fmi2ModelVariables    `xml:"ModelVariables"`
	ModelStructure           fmi2ModelStructure    `xml:"ModelStructure"`
}

func (d *fmi2ModelDescription) stamp(token, generatedAt string) {
	d.GUID = token
	d.GenerationDateAndTime = generatedAt
}

type fmi2CoSimulation struct {
	ModelIdentifier                        string `xml:"modelIdentifier,attr"`
	NeedsExecutionTool                     bool   `xml:"needsExecutionTool,attr,omitempty"`
	CanHandleVariableCommunicationStepSize bool   `xml:"canHandleVariableCommunicationStepSize,attr,omitempty"`
	CanNotUseMemoryManagementFunctions     bool   `xml:"canNotUseMemoryManagementFunctions,attr,omitempty"`
}

type fmi2TypeDefinitions struct {
	SimpleTypes []fmi2SimpleType `xml:"SimpleType"`
}

type fmi2SimpleType struct {
	Name        string          `xml:"name,attr"`
	Description string          `xml:"description,attr,omitempty"`
	Enumeration fmi2EnumTypeDef `xml:"Enumeration"`
}

type fmi2EnumTypeDef struct {
	Items []xmlEnumItem `xml:"Item"`
}

type xmlEnumItem struct {
	Name        string `xml:"name,attr"`
	Value       int64  `xml:"value,attr"`
	Description string `xml:"description,attr,omitempty"`
}

type fmi2ModelVariables struct {
	Variables []fmi2ScalarVariable `xml:"ScalarVariable"`
}

type fmi2ScalarVariable struct {
	Name           string         `xml:"name,attr"`
	ValueReference ValueReference `xml:"valueReference,attr"`
	Description    string         `xml:"description,attr,omitempty"`
	Causality      string         `xml:"causality,attr,omitempty"`
	Variability    string         `xml:"variability,attr,omitempty"`
	Initial        string         `xml:"initial,attr,omitempty"`
	Real           *fmi2TypeAttrs `xml:"Real"`
	Integer        *fmi2TypeAttrs `xml:"Integer"`
	Boolean        *fmi2TypeAttrs `xml:"Boolean"`
	String         *fmi2TypeAttrs `xml:"String"`
	Enumeration    *fmi2TypeAttrs `xml:"Enumeration"`
}

// typed returns the element name and attributes of the single type child.
func (v *fmi2ScalarVariable) typed() (string, *fmi2TypeAttrs) {
	switch {
	case v.Real != nil:
		return "Real", v.Real
	case v.Integer != nil:
		return "Integer", v.Integer
	case v.Boolean != nil:
		return "Boolean", v.Boolean
	case v.String != nil:
		return "String", v.String
	case v.Enumeration != nil:
		return "Enumeration", v.Enumeration
	}
	return "", nil
}

type fmi2TypeAttrs struct {
	DeclaredType string  `xml:"declaredType,attr,omitempty"`
	Unit         string  `xml:"unit,attr,omitempty"`
	Start        *string `xml:"start,attr,omitempty"`
	Derivative   *int    `xml:"derivative,attr,omitempty"`
}

type fmi2ModelStructure struct {
	Outputs         *fmi2Unknowns `xml:"Outputs,omitempty"`
	Derivatives     *fmi2Unknowns `xml:"Derivatives,omitempty"`
	InitialUnknowns *fmi2Unknowns `xml:"InitialUnknowns,omitempty"`
}

type fmi2Unknowns struct {
	Unknowns []fmi2Unknown `xml:"Unknown"`
}

// fmi2Unknown addresses a variable by its 1-based position in ModelVariables.
type fmi2Unknown struct {
	Index int `xml:"index,attr"`
}

func buildFMI2(info ModelInfo, reg *Registry) *fmi2ModelDescription {
	doc := &fmi2ModelDescription{
		FMIVersion:               FMI2.String(),
		ModelName:                info.Name,
		Description:              info.Description,
		Author:                   info.Author,
		Version:                  info.Version,
		Copyright:                info.Copyright,
		License:                  info.License,
		GenerationTool:           info.tool(),
		VariableNamingConvention: "structured",
		CoSimulation: &fmi2CoSimulation{
			ModelIdentifier:                        info.identifier(),
			NeedsExecutionTool:                     info.NeedsExecutionTool,
			CanHandleVariableCommunicationStepSize: info.CanHandleVariableStepSize,
			CanNotUseMemoryManagementFunctions:     true,
		},
		DefaultExperiment: toXMLExperiment(info.DefaultExperiment),
	}

	if enums := reg.EnumerationTypes(); len(enums) > 0 {
		defs := &fmi2TypeDefinitions{}
		for _, e := range enums {
			defs.SimpleTypes = append(defs.SimpleTypes, fmi2SimpleType{
				Name:        e.Name,
				Description: e.Description,
				Enumeration: fmi2EnumTypeDef{Items: xmlItems(e.Items)},
			})
		}
		doc.TypeDefinitions = defs
	}

	for _, v := range reg.vars {
		doc.ModelVariables.Variables = append(doc.ModelVariables.Variables, fmi2Variable(reg, v))
	}

	s := computeStructure(reg)
	doc.ModelStructure = fmi2ModelStructure{
		Outputs:         fmi2UnknownList(s.outputs),
		Derivatives:     fmi2UnknownList(s.derivatives),
		InitialUnknowns: fmi2UnknownList(s.initialUnknowns),
	}
	return doc
}

// fmi2Variable is the FMI 2 serialization of one registered variable: the
// shared attributes on ScalarVariable, the typed ones on its child element.
func fmi2Variable(reg *Registry, v *Registered) fmi2ScalarVariable {
	a := v.Attrs()
	sv := fmi2ScalarVariable{
		Name:           a.Name,
		ValueReference: v.ref,
		Description:    a.Description,
		Causality:      a.Causality.String(),
		Variability:    a.Variability.String(),
		Initial:        a.Initial.String(),
	}
	attrs := &fmi2TypeAttrs{Start: startText(v.Variable)}
	switch t := v.Variable.(type) {
	case *Real:
		attrs.Unit = t.Unit
		if t.Derivative != nil {
			// FMI 2 links derivatives by 1-based position.
			idx := reg.byRef[*t.Derivative].index + 1
			attrs.Derivative = &idx
		}
		sv.Real = attrs
	case *Integer:
		sv.Integer = attrs
	case *Boolean:
		sv.Boolean = attrs
	case *String:
		sv.String = attrs
	case *Enumeration:
		attrs.DeclaredType = t.EnumType.Name
		sv.Enumeration = attrs
	}
	return sv
}

func fmi2UnknownList(vs []*Registered) *fmi2Unknowns {
	if len(vs) == 0 {
		return nil
	}
	out := &fmi2Unknowns{}
	for _, v := range vs {
		out.Unknowns = append(out.Unknowns, fmi2Unknown{Index: v.index + 1})
	}
	return out
}

func xmlItems(items []EnumItem) []xmlEnumItem {
	out := make([]xmlEnumItem, len(items))
	for i, it := range items {
		out[i] = xmlEnumItem{Name: it.Name, Value: it.Value, Description: it.Description}
	}
	return out
}
