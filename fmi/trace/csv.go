package trace

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/gofmu/gofmu/fmi"
)

// WriteCSV writes the steps of one or more traces as a single table with
// columns instance, time, status and one column per recorded variable.
// All traces must record the same columns.
func WriteCSV(w io.Writer, traces ...*Trace) error {
	if len(traces) == 0 {
		return nil
	}
	names := columnNames(traces[0])
	for _, t := range traces[1:] {
		if !slices.Equal(names, columnNames(t)) {
			return fmt.Errorf("trace %s: columns %v differ from %v", t.Instance, columnNames(t), names)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"instance", "time", "status"}, names...)); err != nil {
		return err
	}
	row := make([]string, 0, len(names)+3)
	for _, t := range traces {
		for _, step := range t.Steps {
			row = append(row[:0], t.Instance, fmi.FormatFloat(step.Time), step.Status.String())
			for _, v := range step.Values {
				row = append(row, FormatValue(v))
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnNames(t *Trace) []string {
	names := make([]string, len(t.Config.Columns))
	for i, c := range t.Config.Columns {
		names[i] = c.Name
	}
	return names
}
