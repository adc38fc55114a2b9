package fmi

import (
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders v with 16 significant digits, widening to 17 when 16
// would not parse back to the same value. Infinities use the xsd:double spelling.
func FormatFloat(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "INF"
	case math.IsInf(v, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(v, 'g', 16, 64)
	if back, err := strconv.ParseFloat(s, 64); err == nil && back == v {
		return s
	}
	return strconv.FormatFloat(v, 'g', 17, 64)
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = FormatFloat(v)
	}
	return strings.Join(parts, " ")
}

func formatInts(vs []int64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}

// startText renders the start value of v, or nil when it has none.
func startText(v Variable) *string {
	var s string
	switch t := v.(type) {
	case *Real:
		switch {
		case t.Start != nil:
			s = FormatFloat(*t.Start)
		case len(t.ArrayStart) > 0:
			s = formatFloats(t.ArrayStart)
		default:
			return nil
		}
	case *Integer:
		switch {
		case t.Start != nil:
			s = strconv.FormatInt(*t.Start, 10)
		case len(t.ArrayStart) > 0:
			s = formatInts(t.ArrayStart)
		default:
			return nil
		}
	case *Boolean:
		if t.Start == nil {
			return nil
		}
		s = strconv.FormatBool(*t.Start)
	case *String:
		if t.Start == nil {
			return nil
		}
		s = *t.Start
	case *Enumeration:
		if t.Start == nil {
			return nil
		}
		s = *t.Start
	case *Registered:
		return startText(t.Variable)
	default:
		return nil
	}
	return &s
}
