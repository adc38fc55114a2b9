package trace

import (
	"bytes"
	"testing"

	"github.com/gofmu/gofmu/fmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_MultipleInstances(t *testing.T) {
	// GIVEN two traces over the same columns
	cols := []Column{{Ref: 1, Name: "h"}, {Ref: 2, Name: "y"}}
	a := New("i_0", Config{Columns: cols})
	a.Record(StepRecord{Time: 0.1, Status: fmi.StatusOK, Values: []any{1.0, []float64{1, 2}}})
	b := New("i_1", Config{Columns: cols})
	b.Record(StepRecord{Time: 0.1, Status: fmi.StatusWarning, Values: []any{0.25, []float64{3, 4}}})

	// WHEN written as CSV
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, a, b))

	// THEN one header and one row per step
	want := "instance,time,status,h,y\n" +
		"i_0,0.1,ok,1,1 2\n" +
		"i_1,0.1,warning,0.25,3 4\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_ColumnMismatch(t *testing.T) {
	a := New("i_0", Config{Columns: []Column{{Ref: 1, Name: "h"}}})
	b := New("i_1", Config{Columns: []Column{{Ref: 1, Name: "v"}}})

	var buf bytes.Buffer
	err := WriteCSV(&buf, a, b)
	assert.ErrorContains(t, err, "i_1")
	assert.Empty(t, buf.String())
}

func TestWriteCSV_NoTraces(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf))
	assert.Empty(t, buf.String())
}
