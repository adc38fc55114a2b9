package bouncingball

import (
	"strings"
	"testing"

	"github.com/gofmu/gofmu/fmi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instantiate(t *testing.T, version fmi.Version) (*Ball, *fmi.Instance) {
	t.Helper()
	b := New()
	inst, err := fmi.Instantiate("ball", b, version)
	require.NoError(t, err)
	return b, inst
}

func TestBall_StartValuesApplied(t *testing.T) {
	b, _ := instantiate(t, fmi.FMI2)

	assert.Equal(t, 1.0, b.H)
	assert.Equal(t, 0.0, b.V)
	assert.Equal(t, -9.81, b.G)
	assert.Equal(t, 0.7, b.E)
	assert.Equal(t, 0.1, b.VMin)
}

func TestBall_FMI2Descriptor_DerivativeIndices(t *testing.T) {
	// GIVEN the ball in FMI 2 (references start at 1, so index == reference)
	_, inst := instantiate(t, fmi.FMI2)

	// WHEN described
	out, err := inst.Descriptor(fmi.DescriptorOptions{})
	require.NoError(t, err)
	doc := string(out)

	// THEN derh points at h (index 2) and derv at v (index 4)
	assert.Contains(t, doc, `<Real derivative="2"></Real>`)
	assert.Contains(t, doc, `<Real derivative="4"></Real>`)
	assert.Contains(t, doc, `name="v_min" valueReference="8" variability="constant"`)
	assert.True(t, strings.Contains(doc, `<Unknown index="2"></Unknown>`))
}

func TestBall_FallsThenBounces(t *testing.T) {
	// GIVEN a ball released from 1 m
	b, inst := instantiate(t, fmi.FMI2)
	require.NoError(t, inst.Initialize(0))

	// WHEN stepped until just past the first ground contact (~0.45 s)
	tm, dt := 0.0, 0.01
	var firstBounce float64
	for i := 0; i < 60; i++ {
		_, err := inst.DoStep(tm, dt)
		require.NoError(t, err)
		tm = inst.Time()
		if b.Bounces() == 1 && firstBounce == 0 {
			firstBounce = tm
		}
	}

	// THEN the ball bounced once and is moving up with reduced speed
	assert.Equal(t, 1, b.Bounces())
	assert.InDelta(t, 0.45, firstBounce, 0.02)
	assert.Greater(t, b.H, 0.0)
	assert.InDelta(t, 0.6, tm, 1e-9)
	assert.Equal(t, b.G, b.DerV)
}

func TestBall_ComesToRest(t *testing.T) {
	b, inst := instantiate(t, fmi.FMI3)
	require.NoError(t, inst.Initialize(0))

	tm := 0.0
	for i := 0; i < 1000 && !b.Resting(); i++ {
		_, err := inst.DoStep(tm, 0.01)
		require.NoError(t, err)
		tm = inst.Time()
	}

	require.True(t, b.Resting())
	assert.Equal(t, 0.0, b.V)
	assert.Equal(t, -9.81, b.G, "gravity keeps its declared value")
	h := b.H
	_, err := inst.DoStep(tm, 0.01)
	require.NoError(t, err)
	assert.Equal(t, h, b.H)
}

func TestBall_TunableRestitution(t *testing.T) {
	b, inst := instantiate(t, fmi.FMI2)
	require.NoError(t, inst.Initialize(0))
	e, err := inst.Registry().ByName("e")
	require.NoError(t, err)
	g, err := inst.Registry().ByName("g")
	require.NoError(t, err)

	require.NoError(t, inst.Set(e.Ref(), 0.5))
	assert.Equal(t, 0.5, b.E)

	var notSettable *fmi.NotSettableError
	assert.ErrorAs(t, inst.Set(g.Ref(), -1.0), &notSettable, "fixed parameter after initialization")
}

func TestBall_ResetRestoresFlight(t *testing.T) {
	b, inst := instantiate(t, fmi.FMI2)
	require.NoError(t, inst.Initialize(0))
	tm := 0.0
	for i := 0; i < 1000 && !b.Resting(); i++ {
		_, err := inst.DoStep(tm, 0.01)
		require.NoError(t, err)
		tm = inst.Time()
	}
	require.True(t, b.Resting())

	require.NoError(t, inst.Reset())

	assert.False(t, b.Resting())
	assert.Equal(t, 0, b.Bounces())
	assert.Equal(t, 1.0, b.H)
}

func TestBall_ReboundSpeedsDecayByRestitution(t *testing.T) {
	// GIVEN a ball released from 1 m
	b, inst := instantiate(t, fmi.FMI3)
	require.NoError(t, inst.Initialize(0))

	// WHEN stepped until it rests, recording the speed after each bounce
	var rebounds []float64
	tm := 0.0
	for i := 0; i < 1000 && !b.Resting(); i++ {
		n := b.Bounces()
		_, err := inst.DoStep(tm, 0.01)
		require.NoError(t, err)
		tm = inst.Time()
		if b.Bounces() > n && !b.Resting() {
			rebounds = append(rebounds, b.V)
		}
	}

	// THEN each rebound keeps e of the previous one and the ball rests within the default experiment
	require.True(t, b.Resting())
	assert.Less(t, tm, 3.0)
	require.Greater(t, len(rebounds), 5)
	assert.InDelta(t, 0.7*4.429, rebounds[0], 0.01)
	for i := 1; i < len(rebounds); i++ {
		assert.InDelta(t, 0.7, rebounds[i]/rebounds[i-1], 1e-6)
	}
}
