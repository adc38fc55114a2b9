package trace

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofmu/gofmu/fmi"
)

// ColumnSummary aggregates one column over the recorded steps. Min and Max
// cover every element of numeric scalars and arrays; Numeric is false for
// Boolean and String columns.
type ColumnSummary struct {
	Name    string
	Numeric bool
	Min     float64
	Max     float64
	Final   string
}

// Summary aggregates statistics from a Trace.
type Summary struct {
	Instance     string
	Steps        int
	FinalTime    float64
	StatusCounts map[fmi.Status]int
	Columns      []ColumnSummary
}

// Summarize computes aggregate statistics from a Trace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(t *Trace) *Summary {
	summary := &Summary{
		StatusCounts: make(map[fmi.Status]int),
	}
	if t == nil {
		return summary
	}
	summary.Instance = t.Instance
	summary.Steps = len(t.Steps)
	summary.Columns = make([]ColumnSummary, len(t.Config.Columns))
	for i, c := range t.Config.Columns {
		summary.Columns[i] = ColumnSummary{Name: c.Name, Min: math.Inf(1), Max: math.Inf(-1)}
	}

	for _, step := range t.Steps {
		summary.StatusCounts[step.Status]++
		summary.FinalTime = step.Time
		for i, v := range step.Values {
			if i >= len(summary.Columns) {
				break
			}
			cs := &summary.Columns[i]
			for _, x := range numbers(v) {
				cs.Numeric = true
				cs.Min = math.Min(cs.Min, x)
				cs.Max = math.Max(cs.Max, x)
			}
			cs.Final = FormatValue(v)
		}
	}
	for i := range summary.Columns {
		if !summary.Columns[i].Numeric {
			summary.Columns[i].Min, summary.Columns[i].Max = 0, 0
		}
	}
	return summary
}

func numbers(v any) []float64 {
	switch x := v.(type) {
	case float64:
		return []float64{x}
	case int64:
		return []float64{float64(x)}
	case []float64:
		return x
	case []int64:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out
	}
	return nil
}

// FormatValue renders a dispatch value the way the descriptor renders start values.
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return fmi.FormatFloat(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = fmi.FormatFloat(f)
		}
		return strings.Join(parts, " ")
	case []int64:
		parts := make([]string, len(x))
		for i, n := range x {
			parts[i] = strconv.FormatInt(n, 10)
		}
		return strings.Join(parts, " ")
	case nil:
		return ""
	}
	return ""
}
