// Package stencil advances a 2D temperature field by one explicit
// finite-difference step of the heat equation.
//
// The update is a convolution with a 3x3 five-point kernel. Nodes on the
// outermost rows and columns are held fixed (homogeneous Dirichlet boundary
// on the change), so only interior nodes evolve. A field with fewer than
// three rows or columns has no interior and is returned unchanged.
package stencil

import "math"

// Kernel holds the 3x3 stencil weights, indexed [row][col] with the centre
// at [1][1]. Corners are always zero.
type Kernel [3][3]float64

// NewKernel builds the stencil for row/column spacing, diffusivity alpha
// and time step dt:
//
//	vertical   = alpha*dt*dc² / (2*dr²*dc²)
//	horizontal = alpha*dt*dr² / (2*dr²*dc²)
//	centre     = -2*(dr²+dc²)*alpha*dt / (2*dr²*dc²)
//
// The weights sum to zero, so a uniform interior stays uniform.
func NewKernel(spacing [2]float64, alpha, dt float64) Kernel {
	dr2, dc2 := spacing[0]*spacing[0], spacing[1]*spacing[1]
	scale := alpha * dt / (2 * dr2 * dc2)

	var k Kernel
	k[0][1], k[2][1] = dc2*scale, dc2*scale
	k[1][0], k[1][2] = dr2*scale, dr2*scale
	k[1][1] = -2 * (dr2 + dc2) * scale
	return k
}

// StableStep returns the default time step min(spacing)²/(4*alpha), the
// largest step for which the explicit scheme stays stable.
func StableStep(spacing [2]float64, alpha float64) float64 {
	h := math.Min(spacing[0], spacing[1])
	return h * h / (4 * alpha)
}

// Solve writes src plus one stencil step into dst and returns dst. If dst
// is nil or too short a new slice is allocated. src and dst must not overlap.
func Solve(src []float64, shape [2]int, k Kernel, dst []float64) []float64 {
	rows, cols := shape[0], shape[1]
	n := rows * cols
	if len(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	copy(dst, src[:n])

	if rows < 3 || cols < 3 {
		return dst
	}

	for i := 1; i < rows-1; i++ {
		for j := 1; j < cols-1; j++ {
			c := i*cols + j
			delta := k[0][1]*src[c-cols] + k[2][1]*src[c+cols] +
				k[1][0]*src[c-1] + k[1][2]*src[c+1] +
				k[1][1]*src[c]
			dst[c] = src[c] + delta
		}
	}
	return dst
}

// Solve2D is the one-shot form of Solve: it builds the kernel from spacing,
// alpha and dt and returns a newly allocated next field.
func Solve2D(src []float64, shape [2]int, spacing [2]float64, alpha, dt float64) []float64 {
	return Solve(src, shape, NewKernel(spacing, alpha, dt), nil)
}

// Solver advances a field in place using an owned scratch buffer, so the
// caller's slice keeps its identity across steps.
type Solver struct {
	next []float64
}

func NewSolver(size int) *Solver {
	return &Solver{next: make([]float64, size)}
}

// Advance replaces field with its next step.
func (s *Solver) Advance(field []float64, shape [2]int, spacing [2]float64, alpha, dt float64) {
	s.next = Solve(field, shape, NewKernel(spacing, alpha, dt), s.next)
	copy(field, s.next)
}
