// Package trace records the per-step results of a model instance for
// post-run analysis. It stores plain values read through the dispatch table
// and never touches the instance itself.
package trace

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
)

// Level controls which steps are kept.
type Level string

const (
	// LevelNone disables recording.
	LevelNone Level = "none"
	// LevelSteps keeps every communication point.
	LevelSteps Level = "steps"
	// LevelFinal keeps only the most recent communication point.
	LevelFinal Level = "final"
)

var validLevels = map[Level]bool{
	LevelNone:  true,
	LevelSteps: true,
	LevelFinal: true,
	"":         true, // empty defaults to steps
}

// IsValidLevel returns true if the given level string is a recognized trace level.
func IsValidLevel(level string) bool {
	return validLevels[Level(level)]
}

// Column is one recorded variable.
type Column struct {
	Ref  fmi.ValueReference
	Name string
}

// StepRecord captures the values of every column at one communication point.
// Values are in column order.
type StepRecord struct {
	Time   float64
	Status fmi.Status
	Values []any
}

// Config controls trace collection.
type Config struct {
	Level   Level
	Columns []Column
}

// Trace collects step records of a single instance.
type Trace struct {
	Instance string
	Config   Config
	Steps    []StepRecord
}

// New creates a Trace ready for recording.
func New(instance string, config Config) *Trace {
	if config.Level == "" {
		config.Level = LevelSteps
	}
	return &Trace{
		Instance: instance,
		Config:   config,
		Steps:    make([]StepRecord, 0),
	}
}

// Record appends a step according to the configured level.
func (t *Trace) Record(rec StepRecord) {
	switch t.Config.Level {
	case LevelNone:
		return
	case LevelFinal:
		t.Steps = append(t.Steps[:0], rec)
	default:
		t.Steps = append(t.Steps, rec)
	}
}

// Columns resolves variable names to columns. With no names, every output of
// the registry is selected in registration order.
func Columns(reg *fmi.Registry, names ...string) ([]Column, error) {
	var cols []Column
	if len(names) == 0 {
		for _, v := range reg.Variables() {
			if fmi.EffectiveCausality(v) == fmi.Output {
				cols = append(cols, Column{Ref: v.Ref(), Name: v.Name()})
			}
		}
		return cols, nil
	}
	for _, name := range names {
		v, err := reg.ByName(name)
		if err != nil {
			return nil, fmt.Errorf("trace column: %w", err)
		}
		cols = append(cols, Column{Ref: v.Ref(), Name: v.Name()})
	}
	return cols, nil
}

// Getter reads a variable by reference; *fmi.Instance and *fmi.DispatchTable implement it.
type Getter interface {
	Get(ref fmi.ValueReference) (any, error)
}

// Capture reads every column from g and records the result.
func (t *Trace) Capture(g Getter, time float64, status fmi.Status) error {
	if t.Config.Level == LevelNone {
		return nil
	}
	rec := StepRecord{Time: time, Status: status, Values: make([]any, len(t.Config.Columns))}
	for i, c := range t.Config.Columns {
		v, err := g.Get(c.Ref)
		if err != nil {
			return fmt.Errorf("trace %s: reading %s: %w", t.Instance, c.Name, err)
		}
		rec.Values[i] = v
	}
	t.Record(rec)
	return nil
}
