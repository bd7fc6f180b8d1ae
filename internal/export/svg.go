// Package export renders fields and series as standalone SVG documents.
package export

import (
	"fmt"
	"math"
	"strings"
)

type Point struct{ X, Y float64 }

// ramp runs from cold blue through white to hot red.
var ramp = [...][3]float64{
	{0x21, 0x66, 0xac},
	{0x67, 0xa9, 0xcf},
	{0xf7, 0xf7, 0xf7},
	{0xef, 0x8a, 0x62},
	{0xb2, 0x18, 0x2b},
}

// HeatColor maps t in [0, 1] onto the color ramp as a #rrggbb string.
// Values outside the range are clamped; NaN renders black.
func HeatColor(t float64) string {
	if math.IsNaN(t) {
		return "#000000"
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(ramp)-1)
	i := int(pos)
	if i >= len(ramp)-1 {
		i = len(ramp) - 2
	}
	f := pos - float64(i)

	var rgb [3]int
	for c := range rgb {
		rgb[c] = int(math.Round(ramp[i][c] + f*(ramp[i+1][c]-ramp[i][c])))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

// Bounds returns the smallest and largest finite values of field. An empty or
// non-finite field gives [0, 1].
func Bounds(field []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range field {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	return lo, hi
}

// FieldToSVG draws a row-major field of the given rows and columns as a grid
// of cells, scale pixels on a side. Row 0 is drawn at the top.
func FieldToSVG(field []float64, rows, cols int, scale float64) (string, error) {
	if rows <= 0 || cols <= 0 || len(field) != rows*cols {
		return "", fmt.Errorf("export: %d values do not fill a %dx%d grid", len(field), rows, cols)
	}
	if scale <= 0 {
		return "", fmt.Errorf("export: scale must be positive, got %g", scale)
	}

	width := float64(cols) * scale
	height := float64(rows) * scale
	lo, hi := Bounds(field)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g shape-rendering="crispEdges">
`, width, height, width, height))

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := field[i*cols+j]
			sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"><title>%g</title></rect>
`, float64(j)*scale, float64(i)*scale, scale, scale, HeatColor((v-lo)/span), v))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String(), nil
}

// SeriesToSVG plots points as a polyline, such as a temperature profile
// along one row or a metric over time.
func SeriesToSVG(points []Point, width, height int, strokeColor string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
