// Package lineartransform computes y = scalar·A·u + offset each step. It is an
// FMI 3 model with array variables whose input and output extents follow the
// structural parameter m.
package lineartransform

import (
	"fmt"

	"github.com/gofmu/gofmu/fmi"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

const (
	rows = 2
	cols = 2
)

// Transform holds A in row-major order.
type Transform struct {
	Time   float64   `fmi:"time"`
	M      int64     `fmi:"m"`
	Scalar float64   `fmi:"scalar"`
	U      []float64 `fmi:"u"`
	Offset []float64 `fmi:"offset"`
	A      []float64 `fmi:"A"`
	Y      []float64 `fmi:"y"`
}

// New returns a transform ready to be instantiated.
func New() *Transform { return &Transform{} }

func (t *Transform) Define(reg *fmi.Registry) error {
	if _, err := reg.Register(&fmi.Real{Attributes: fmi.Attributes{Name: "time", Causality: fmi.Independent, Variability: fmi.Continuous}}); err != nil {
		return err
	}
	m, err := reg.Register(&fmi.Integer{
		Attributes: fmi.Attributes{Name: "m", Causality: fmi.StructuralParameter, Variability: fmi.Tunable},
		Kind:       fmi.UInt64,
		Start:      fmi.Ptr[int64](cols),
	})
	if err != nil {
		return err
	}
	decls := []fmi.Variable{
		&fmi.Real{Attributes: fmi.Attributes{Name: "scalar", Causality: fmi.Input}, Start: fmi.Ptr(2.0)},
		&fmi.Real{Attributes: fmi.Attributes{Name: "u", Causality: fmi.Input}, ArrayStart: []float64{1, 2}, Dimensions: []fmi.Dimension{fmi.RefDim(m)}},
		&fmi.Real{Attributes: fmi.Attributes{Name: "offset", Causality: fmi.Input}, ArrayStart: []float64{1, 2}, Dimensions: []fmi.Dimension{fmi.FixedDim(rows)}},
		&fmi.Real{
			Attributes: fmi.Attributes{Name: "A", Causality: fmi.Parameter, Variability: fmi.Tunable},
			ArrayStart: []float64{1, 1, 2, 1},
			Dimensions: []fmi.Dimension{fmi.FixedDim(rows), fmi.FixedDim(cols)},
		},
		&fmi.Real{Attributes: fmi.Attributes{Name: "y", Causality: fmi.Output}, Dimensions: []fmi.Dimension{fmi.RefDim(m)}},
	}
	for _, d := range decls {
		if _, err := reg.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transform) ModelInfo() fmi.ModelInfo {
	return fmi.ModelInfo{
		Name:        "LinearTransform",
		Description: "LinearTransform",
		Author:      "gofmu",
		Version:     "1.0",
	}
}

func (t *Transform) EnterInitialization(startTime float64) error {
	t.Time = startTime
	return nil
}

// ExitInitialization computes the outputs so they are valid before the first step.
func (t *Transform) ExitInitialization() error {
	return t.compute()
}

func (t *Transform) DoStep(currentTime, stepSize float64) fmi.Status {
	t.Time = currentTime + stepSize
	if err := t.compute(); err != nil {
		logrus.Errorf("linear transform at t=%s: %v", fmi.FormatFloat(currentTime), err)
		return fmi.StatusError
	}
	return fmi.StatusOK
}

func (t *Transform) compute() error {
	if len(t.A) != rows*cols {
		return fmt.Errorf("A has %d elements, want %d", len(t.A), rows*cols)
	}
	if len(t.U) != cols || len(t.Offset) != rows {
		return fmt.Errorf("u has %d elements and offset %d, want %d and %d", len(t.U), len(t.Offset), cols, rows)
	}
	a := mat.NewDense(rows, cols, t.A)
	u := mat.NewVecDense(cols, t.U)
	var y mat.VecDense
	y.MulVec(a, u)
	y.ScaleVec(t.Scalar, &y)
	y.AddVec(&y, mat.NewVecDense(rows, t.Offset))
	t.Y = append(t.Y[:0], y.RawVector().Data...)
	return nil
}
