// Package bouncingball is a ball dropped from a height, bouncing with a
// coefficient of restitution until it comes to rest.
package bouncingball

import (
	"math"

	"github.com/gofmu/gofmu/fmi"
	"github.com/sirupsen/logrus"
)

// restHeight is where the ball is placed after a bounce so the next step
// starts above the ground.
const restHeight = 1e-12

// Ball follows the exact ballistic path over each step, so bounce speeds
// decay geometrically with E.
type Ball struct {
	Time float64 `fmi:"time"`
	H    float64 `fmi:"h"`
	DerH float64 `fmi:"derh"`
	V    float64 `fmi:"v"`
	DerV float64 `fmi:"derv"`
	G    float64 `fmi:"g"`
	E    float64 `fmi:"e"`
	VMin float64 `fmi:"v_min"`

	// resting is set once a bounce leaves less than VMin of speed. The
	// ball then stays on the ground; gravity keeps its declared value.
	resting bool
	bounces int
}

// New returns a ball ready to be instantiated.
func New() *Ball { return &Ball{} }

func (b *Ball) Define(reg *fmi.Registry) error {
	if _, err := reg.Register(&fmi.Real{Attributes: fmi.Attributes{Name: "time", Causality: fmi.Independent, Variability: fmi.Continuous}}); err != nil {
		return err
	}
	h, err := reg.Register(&fmi.Real{
		Attributes: fmi.Attributes{Name: "h", Causality: fmi.Output, Variability: fmi.Continuous, Initial: fmi.Exact, Description: "height"},
		Start:      fmi.Ptr(1.0),
		Unit:       "m",
	})
	if err != nil {
		return err
	}
	if _, err := reg.Register(&fmi.Real{Attributes: fmi.Attributes{Name: "derh", Causality: fmi.Local, Variability: fmi.Continuous}, Derivative: &h}); err != nil {
		return err
	}
	v, err := reg.Register(&fmi.Real{
		Attributes: fmi.Attributes{Name: "v", Causality: fmi.Output, Variability: fmi.Continuous, Initial: fmi.Exact, Description: "velocity"},
		Start:      fmi.Ptr(0.0),
		Unit:       "m/s",
	})
	if err != nil {
		return err
	}
	rest := []fmi.Variable{
		&fmi.Real{Attributes: fmi.Attributes{Name: "derv", Causality: fmi.Local, Variability: fmi.Continuous}, Derivative: &v},
		&fmi.Real{Attributes: fmi.Attributes{Name: "g", Causality: fmi.Parameter, Variability: fmi.Fixed, Description: "gravity"}, Start: fmi.Ptr(-9.81), Unit: "m/s2"},
		&fmi.Real{Attributes: fmi.Attributes{Name: "e", Causality: fmi.Parameter, Variability: fmi.Tunable, Description: "coefficient of restitution"}, Start: fmi.Ptr(0.7)},
		&fmi.Real{Attributes: fmi.Attributes{Name: "v_min", Variability: fmi.Constant}, Start: fmi.Ptr(0.1), Unit: "m/s"},
	}
	for _, d := range rest {
		if _, err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func (b *Ball) ModelInfo() fmi.ModelInfo {
	return fmi.ModelInfo{
		Name:        "BouncingBall",
		Description: "Bouncing Ball",
		Author:      "gofmu",
		Version:     "1.0",
		DefaultExperiment: &fmi.DefaultExperiment{
			StartTime: fmi.Ptr(0.0),
			StopTime:  fmi.Ptr(3.0),
			StepSize:  fmi.Ptr(0.01),
		},
	}
}

func (b *Ball) EnterInitialization(startTime float64) error {
	b.Time = startTime
	return nil
}

func (b *Ball) ExitInitialization() error {
	b.DerH = b.V
	b.DerV = b.G
	return nil
}

func (b *Ball) DoStep(currentTime, stepSize float64) fmi.Status {
	b.Time = currentTime + stepSize
	if b.resting {
		b.DerH, b.DerV = 0, 0
		return fmi.StatusOK
	}
	b.DerV = b.G
	b.DerH = b.V
	h0, v0 := b.H, b.V
	b.H += v0*stepSize + 0.5*b.G*stepSize*stepSize
	b.V += b.G * stepSize

	if b.H <= 0 && b.V < 0 {
		// speed at the ground crossing, so each bounce keeps exactly E of it
		impact := math.Sqrt(v0*v0 - 2*b.G*h0)
		b.H = restHeight
		b.V = impact * b.E
		b.bounces++
		if b.V < b.VMin {
			b.V = 0
			b.resting = true
			logrus.Debugf("ball at rest after %d bounces, t=%s", b.bounces, fmi.FormatFloat(b.Time))
		}
	}
	return fmi.StatusOK
}

func (b *Ball) Reset() error {
	b.resting = false
	b.bounces = 0
	return nil
}

// Resting reports whether the ball has stopped bouncing.
func (b *Ball) Resting() bool { return b.resting }

// Bounces is the number of ground contacts so far.
func (b *Ball) Bounces() int { return b.bounces }
