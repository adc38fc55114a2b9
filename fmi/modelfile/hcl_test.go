package modelfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofmu/gofmu/fmi"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pumpHCL = `
name        = "pump"
fmi_version = "3.0"

variable "time" {
  type      = "Real"
  causality = "independent"
}

variable "speed" {
  type      = "Real"
  causality = "input"
  start     = 2
}

variable "on" {
  type      = "Boolean"
  causality = "input"
  start     = true
}

variable "stages" {
  type        = "Integer"
  causality   = "parameter"
  variability = "fixed"
  start       = [1, 2]

  dimension { start = 2 }
}
`

func describeFile(t *testing.T, f *ModelFile) string {
	t.Helper()
	inst, err := fmi.Instantiate("tank_0", NewStatic(f), fmi.FMI3)
	require.NoError(t, err)
	out, err := inst.Descriptor(fmi.DescriptorOptions{Token: "{token}"})
	require.NoError(t, err)
	return string(out)
}

func TestOpen_HCLAndYAMLDescribeTheSameModel(t *testing.T) {
	// GIVEN the same model written in both formats
	fromYAML, err := Open("../../examples/tank.yaml")
	require.NoError(t, err)
	fromHCL, err := Open("../../examples/tank.hcl")
	require.NoError(t, err)

	// WHEN each is described
	a, b := describeFile(t, fromYAML), describeFile(t, fromHCL)

	// THEN the descriptors are byte-identical
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("descriptor mismatch (-yaml +hcl):\n%s", diff)
	}
	assert.Equal(t, fromYAML.ModelInfo(), fromHCL.ModelInfo())
}

func TestParseHCL_StartValuesFollowType(t *testing.T) {
	f, err := ParseHCL([]byte(pumpHCL), "pump.hcl")
	require.NoError(t, err)
	m := NewStatic(f)
	_, err = fmi.Instantiate("pump_0", m, fmi.FMI3)
	require.NoError(t, err)

	speed, _ := m.Value("speed")
	assert.Equal(t, 2.0, speed, "integer literal widens to Real")
	on, _ := m.Value("on")
	assert.Equal(t, true, on)
	stages, _ := m.Value("stages")
	assert.Equal(t, []int64{1, 2}, stages)
}

func TestParseHCL_UnknownAttribute_ReturnsError(t *testing.T) {
	// GIVEN a typo'd attribute
	src := strings.Replace(pumpHCL, `causality = "input"`, `casuality = "input"`, 1)

	// WHEN parsed
	_, err := ParseHCL([]byte(src), "pump.hcl")

	// THEN the decoder rejects it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing model file")
	assert.Contains(t, err.Error(), "casuality")
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"syntax", `name        = "pump"`, `name = `, "parsing model file"},
		{"missing type", `type      = "Real"` + "\n  causality = \"input\"", `causality = "input"`, "type"},
		{"bad start", "start     = true", "start     = 1.5", "variable[2] (on): start"},
		{"object start", "start     = 2", "start     = { a = 1 }", `variable "speed": start`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			src := strings.Replace(pumpHCL, tc.from, tc.to, 1)
			require.NotEqual(t, pumpHCL, src, "replacement must apply")
			_, err := ParseHCL([]byte(src), "pump.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestOpen_PicksFormatByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pump.HCL")
	require.NoError(t, os.WriteFile(path, []byte(pumpHCL), 0644))

	f, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "pump", f.Name)

	_, err = Open(filepath.Join(t.TempDir(), "absent.hcl"))
	assert.ErrorContains(t, err, "reading model file")
}
