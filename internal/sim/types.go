package sim

import (
	"fmt"
	"math"
)

// Field is a flattened, row-major copy of one model variable.
type Field []float64

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

// IsValid reports whether every value is finite.
func (f Field) IsValid() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (f Field) Norm() float64 {
	var sum float64
	for _, v := range f {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (f Field) Sub(o Field) Field {
	d := make(Field, len(f))
	for i := range f {
		d[i] = f[i] - o[i]
	}
	return d
}

type Metric interface {
	Name() string
	Observe(x Field, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x Field, t float64)
}

type Config struct {
	// Until is the model time the run stops at.
	Until float64
	// Every records a snapshot each Every steps; zero keeps only the first
	// and the last field.
	Every int
	// Variable names the output to follow. Empty picks the first output.
	Variable string
	// ValidateState stops the run at the first non-finite field.
	ValidateState bool
}

type Result struct {
	Variable   string
	Shape      []int
	Fields     []Field
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// Final returns the last recorded field.
func (r *Result) Final() Field {
	if len(r.Fields) == 0 {
		return nil
	}
	return r.Fields[len(r.Fields)-1]
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
