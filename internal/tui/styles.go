package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/heatbmi/internal/export"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff"))
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)
)

const cell = "██"

// Heatmap renders a row-major field as colored blocks, two columns per node.
// Grids wider than maxCols nodes or taller than maxRows are sampled with a
// fixed stride; a non-positive limit disables sampling on that axis.
func Heatmap(field []float64, rows, cols, maxRows, maxCols int) string {
	if rows <= 0 || cols <= 0 || len(field) != rows*cols {
		return ""
	}
	rowStride, colStride := stride(rows, maxRows), stride(cols, maxCols)
	lo, hi := export.Bounds(field)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for i := 0; i < rows; i += rowStride {
		for j := 0; j < cols; j += colStride {
			v := field[i*cols+j]
			color := lipgloss.Color(export.HeatColor((v - lo) / span))
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render(cell))
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func stride(n, limit int) int {
	if limit <= 0 || n <= limit {
		return 1
	}
	return (n + limit - 1) / limit
}

// Sparkline renders values as a run of block characters, sampled to width.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := export.Bounds(values)
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var result strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		idx := int((values[i*step] - lo) / rng * float64(len(chars)-1))
		if idx >= len(chars) {
			idx = len(chars) - 1
		}
		if idx < 0 {
			idx = 0
		}
		result.WriteRune(chars[idx])
	}
	return result.String()
}
