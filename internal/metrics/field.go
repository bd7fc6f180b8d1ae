package metrics

import (
	"math"

	"github.com/san-kum/heatbmi/internal/sim"
)

// Mean is the mean value of the most recent field.
type Mean struct {
	value float64
}

func NewMean() *Mean { return &Mean{} }

func (m *Mean) Name() string { return "mean" }

func (m *Mean) Observe(x sim.Field, t float64) {
	if len(x) == 0 {
		return
	}
	m.value = sum(x) / float64(len(x))
}

func (m *Mean) Value() float64 { return m.value }
func (m *Mean) Reset()         { m.value = 0 }

// Max is the largest value seen over the run.
type Max struct {
	value float64
	seen  bool
}

func NewMax() *Max { return &Max{} }

func (m *Max) Name() string { return "max" }

func (m *Max) Observe(x sim.Field, t float64) {
	for _, v := range x {
		if !m.seen || v > m.value {
			m.value, m.seen = v, true
		}
	}
}

func (m *Max) Value() float64 { return m.value }
func (m *Max) Reset()         { m.value, m.seen = 0, false }

// Min is the smallest value seen over the run.
type Min struct {
	value float64
	seen  bool
}

func NewMin() *Min { return &Min{} }

func (m *Min) Name() string { return "min" }

func (m *Min) Observe(x sim.Field, t float64) {
	for _, v := range x {
		if !m.seen || v < m.value {
			m.value, m.seen = v, true
		}
	}
}

func (m *Min) Value() float64 { return m.value }
func (m *Min) Reset()         { m.value, m.seen = 0, false }

// Activity averages the RMS change between consecutive fields. It falls
// towards zero as the plate settles.
type Activity struct {
	prev    sim.Field
	sum     float64
	samples int
}

func NewActivity() *Activity { return &Activity{} }

func (a *Activity) Name() string { return "activity" }

func (a *Activity) Observe(x sim.Field, t float64) {
	if a.prev != nil && len(a.prev) == len(x) && len(x) > 0 {
		a.sum += x.Sub(a.prev).Norm() / math.Sqrt(float64(len(x)))
		a.samples++
	}
	a.prev = x.Clone()
}

func (a *Activity) Value() float64 {
	if a.samples == 0 {
		return 0
	}
	return a.sum / float64(a.samples)
}

func (a *Activity) Reset() {
	a.prev = nil
	a.sum = 0
	a.samples = 0
}

// Stability is the fraction of observations whose values all stay within
// threshold in magnitude. An overridden time step past the stable limit
// lets the field grow without bound.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.Field, t float64) {
	s.samples++
	for _, val := range x {
		if math.IsNaN(val) || math.Abs(val) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Default returns the metrics a run reports unless told otherwise.
func Default() []sim.Metric {
	return []sim.Metric{
		NewMean(),
		NewMin(),
		NewMax(),
		NewTotalHeat(),
		NewHeatDrift(),
		NewActivity(),
		NewStability(1e6),
	}
}
