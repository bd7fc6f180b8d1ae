// Package metrics holds field metrics observed by the simulator.
package metrics

import (
	"math"

	"github.com/san-kum/heatbmi/internal/sim"
)

// TotalHeat averages the sum of the field over every observation.
type TotalHeat struct {
	name    string
	samples int
	total   float64
}

func NewTotalHeat() *TotalHeat {
	return &TotalHeat{name: "total_heat"}
}

func (h *TotalHeat) Name() string { return h.name }

func (h *TotalHeat) Observe(x sim.Field, t float64) {
	h.total += sum(x)
	h.samples++
}

func (h *TotalHeat) Value() float64 {
	if h.samples == 0 {
		return 0
	}
	return h.total / float64(h.samples)
}

func (h *TotalHeat) Reset() {
	h.total = 0
	h.samples = 0
}

// HeatDrift is the largest relative change of the field sum from the first
// observation. The fixed border exchanges heat with the interior, so a
// diffusing plate drifts towards its boundary values.
type HeatDrift struct {
	name     string
	initial  float64
	current  float64
	maxDrift float64
	samples  int
}

func NewHeatDrift() *HeatDrift {
	return &HeatDrift{name: "heat_drift"}
}

func (h *HeatDrift) Name() string { return h.name }

func (h *HeatDrift) Observe(x sim.Field, t float64) {
	total := sum(x)
	if h.samples == 0 {
		h.initial = total
	}

	h.current = total
	h.samples++

	if h.initial != 0 {
		drift := math.Abs(total-h.initial) / math.Abs(h.initial)
		h.maxDrift = math.Max(h.maxDrift, drift)
	}
}

func (h *HeatDrift) Value() float64 {
	return h.maxDrift
}

func (h *HeatDrift) Reset() {
	h.initial = 0
	h.current = 0
	h.maxDrift = 0
	h.samples = 0
}

func sum(x sim.Field) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}
