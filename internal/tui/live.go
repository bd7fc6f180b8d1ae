package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/heatbmi/internal/sim"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws the field on w as the simulator steps. It is a
// sim.Observer; frames beyond frameRate per second are dropped.
type LiveRenderer struct {
	w         io.Writer
	name      string
	rows      int
	cols      int
	frameRate int
	lastFrame time.Time
	now       func() time.Time
}

func NewLiveRenderer(w io.Writer, name string, shape []int, frameRate int) (*LiveRenderer, error) {
	if len(shape) != 2 {
		return nil, fmt.Errorf("tui: can only draw rank 2 grids, got shape %v", shape)
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		w:         w,
		name:      name,
		rows:      shape[0],
		cols:      shape[1],
		frameRate: frameRate,
		now:       time.Now,
	}, nil
}

func (r *LiveRenderer) OnStep(x sim.Field, t float64) {
	now := r.now()
	if now.Sub(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = now
	r.render(x, t)
}

func (r *LiveRenderer) render(x sim.Field, t float64) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  %s  t=%.2fs\n", title.Render(r.name), t))

	for _, line := range strings.Split(Heatmap(x, r.rows, r.cols, 40, 60), "\n") {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	lo, hi := 0.0, 0.0
	if len(x) > 0 {
		lo, hi = x[0], x[0]
		for _, v := range x {
			lo, hi = min(lo, v), max(hi, v)
		}
	}
	b.WriteString(dim.Render(fmt.Sprintf("  min=%.4f max=%.4f", lo, hi)) + "\n")

	fmt.Fprint(r.w, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.w, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.w, showCursor) }
