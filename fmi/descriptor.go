package fmi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// GenerationTool is written to the descriptor when ModelInfo leaves it empty.
const GenerationTool = "gofmu"

// tokenNamespace seeds name-based instantiation tokens.
var tokenNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/gofmu/gofmu/instantiation-token"))

var identifierUnsafe = regexp.MustCompile(`[^A-Za-z0-9_]`)

// DefaultExperiment is the experiment window suggested to the host.
type DefaultExperiment struct {
	StartTime *float64
	StopTime  *float64
	StepSize  *float64
	Tolerance *float64
}

// Validate checks that the set fields describe a usable window.
func (e *DefaultExperiment) Validate() error {
	if e == nil {
		return nil
	}
	if e.StartTime != nil && e.StopTime != nil && *e.StopTime <= *e.StartTime {
		return fmt.Errorf("default experiment: stop time %s must be after start time %s", FormatFloat(*e.StopTime), FormatFloat(*e.StartTime))
	}
	if e.StepSize != nil && *e.StepSize <= 0 {
		return fmt.Errorf("default experiment: step size must be positive, got %s", FormatFloat(*e.StepSize))
	}
	if e.Tolerance != nil && *e.Tolerance <= 0 {
		return fmt.Errorf("default experiment: tolerance must be positive, got %s", FormatFloat(*e.Tolerance))
	}
	return nil
}

// ModelInfo carries the model-level attributes of the descriptor.
type ModelInfo struct {
	Name string
	// ModelIdentifier defaults to Name with every character outside [A-Za-z0-9_] replaced by '_'.
	ModelIdentifier   string
	Description       string
	Author            string
	Version           string
	Copyright         string
	License           string
	GenerationTool    string
	DefaultExperiment *DefaultExperiment

	CanHandleVariableStepSize bool
	NeedsExecutionTool        bool
}

func (m ModelInfo) identifier() string {
	if m.ModelIdentifier != "" {
		return m.ModelIdentifier
	}
	return identifierUnsafe.ReplaceAllString(m.Name, "_")
}

func (m ModelInfo) tool() string {
	if m.GenerationTool != "" {
		return m.GenerationTool
	}
	return GenerationTool
}

// DescriptorOptions holds the inputs of a descriptor that do not come from the registry.
type DescriptorOptions struct {
	// Token is the FMI 2 guid or FMI 3 instantiationToken. When empty a
	// name-based UUID is derived from the rest of the document.
	Token string
	// GeneratedAt is written as generationDateAndTime; omitted when zero.
	GeneratedAt time.Time
}

// document is the root element of a version-specific descriptor.
type document interface {
	stamp(token, generatedAt string)
}

// MarshalDescriptor serializes the registry into a model description.
// It is a pure function of its inputs: the same registry, info and options
// always produce the same bytes.
func MarshalDescriptor(info ModelInfo, reg *Registry, opts DescriptorOptions) ([]byte, error) {
	if info.Name == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}
	if err := info.DefaultExperiment.Validate(); err != nil {
		return nil, err
	}
	if err := reg.ValidateLinks(); err != nil {
		return nil, err
	}

	var doc document
	switch reg.Version() {
	case FMI2:
		doc = buildFMI2(info, reg)
	case FMI3:
		doc = buildFMI3(info, reg)
	default:
		return nil, fmt.Errorf("unsupported FMI version %s", reg.Version())
	}

	token := opts.Token
	if token == "" {
		body, err := encodeDocument(doc)
		if err != nil {
			return nil, err
		}
		token = "{" + uuid.NewSHA1(tokenNamespace, body).String() + "}"
	}
	var generatedAt string
	if !opts.GeneratedAt.IsZero() {
		generatedAt = opts.GeneratedAt.UTC().Format(time.RFC3339)
	}
	doc.stamp(token, generatedAt)
	return encodeDocument(doc)
}

// WriteDescriptor writes the model description of reg to w.
func WriteDescriptor(w io.Writer, info ModelInfo, reg *Registry, opts DescriptorOptions) error {
	data, err := MarshalDescriptor(info, reg, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func encodeDocument(doc document) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding model description: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// structure is the computed model structure: it is derived from the variable
// tags on every call and never stored.
type structure struct {
	outputs         []*Registered
	derivatives     []*Registered
	initialUnknowns []*Registered
}

func computeStructure(reg *Registry) structure {
	states := make(map[ValueReference]bool)
	for _, v := range reg.vars {
		if rv, ok := v.Variable.(*Real); ok && rv.Derivative != nil {
			states[*rv.Derivative] = true
		}
	}
	var s structure
	for _, v := range reg.vars {
		c := EffectiveCausality(v)
		init := EffectiveInitial(v)
		rv, isReal := v.Variable.(*Real)
		isDerivative := isReal && rv.Derivative != nil
		if c == Output {
			s.outputs = append(s.outputs, v)
		}
		if isDerivative {
			s.derivatives = append(s.derivatives, v)
		}
		notExact := init == Approx || init == Calculated
		switch {
		case c == Output && notExact,
			c == CalculatedParameter,
			(states[v.ref] || isDerivative) && notExact:
			s.initialUnknowns = append(s.initialUnknowns, v)
		}
	}
	return s
}

// xmlDefaultExperiment is shared by both versions.
type xmlDefaultExperiment struct {
	StartTime *string `xml:"startTime,attr,omitempty"`
	StopTime  *string `xml:"stopTime,attr,omitempty"`
	Tolerance *string `xml:"tolerance,attr,omitempty"`
	StepSize  *string `xml:"stepSize,attr,omitempty"`
}

func toXMLExperiment(e *DefaultExperiment) *xmlDefaultExperiment {
	if e == nil {
		return nil
	}
	f := func(p *float64) *string {
		if p == nil {
			return nil
		}
		s := FormatFloat(*p)
		return &s
	}
	return &xmlDefaultExperiment{
		StartTime: f(e.StartTime),
		StopTime:  f(e.StopTime),
		Tolerance: f(e.Tolerance),
		StepSize:  f(e.StepSize),
	}
}
