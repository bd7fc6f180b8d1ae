package heat_test

import (
	"bytes"
	"math"
	"strings"

	"github.com/hashicorp/go-hclog"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"

	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/config"
	"github.com/san-kum/heatbmi/internal/heat"
)

const temperature = heat.TemperatureName

func initialized(opts ...heat.Option) *heat.Model {
	m := heat.New(append([]heat.Option{heat.WithSeed(42)}, opts...)...)
	Expect(m.Initialize("")).To(Succeed())
	return m
}

func withConfig(cfg config.Config) *heat.Model {
	m := heat.New(heat.WithSeed(42))
	Expect(m.InitializeConfig(cfg)).To(Succeed())
	return m
}

func gridSize(m *heat.Model) int {
	n, err := m.GetGridSize(heat.PlateGrid)
	Expect(err).NotTo(HaveOccurred())
	return n
}

func values(m *heat.Model) []float64 {
	v, err := m.GetValue(temperature, make([]float64, gridSize(m)))
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Model information", func() {
	It("has a stable component name in every phase", func() {
		m := heat.New()
		name := m.GetComponentName()
		Expect(name).To(Equal("The 2D Heat Equation"))

		Expect(m.Initialize("")).To(Succeed())
		Expect(m.GetComponentName()).To(Equal(name))
		Expect(m.Finalize()).To(Succeed())
		Expect(m.GetComponentName()).To(Equal(name))
	})

	It("exposes temperature as both input and output", func() {
		m := initialized()

		inputs, err := m.GetInputVarNames()
		Expect(err).NotTo(HaveOccurred())
		Expect(inputs).To(Equal([]string{temperature}))

		outputs, err := m.GetOutputVarNames()
		Expect(err).NotTo(HaveOccurred())
		Expect(outputs).To(Equal([]string{temperature}))

		Expect(m.GetInputItemCount()).To(Equal(1))
		Expect(m.GetOutputItemCount()).To(Equal(1))
	})
})

var _ = Describe("Initialize", func() {
	It("uses the defaults without a config file", func() {
		m := initialized()

		Expect(m.GetCurrentTime()).To(Equal(0.0))
		Expect(m.GetStartTime()).To(Equal(0.0))
		Expect(m.GetEndTime()).To(Equal(math.MaxFloat64))
		Expect(m.GetTimeUnits()).To(Equal("s"))
		Expect(m.GetTimeStep()).To(Equal(0.25))

		shape, err := m.GetGridShape(heat.PlateGrid, make([]int, 2))
		Expect(err).NotTo(HaveOccurred())
		Expect(shape).To(Equal([]int{10, 20}))
	})

	It("seeds the field in [0, 1)", func() {
		m := initialized()
		for _, v := range values(m) {
			Expect(v).To(BeNumerically(">=", 0))
			Expect(v).To(BeNumerically("<", 1))
		}
	})

	It("is reproducible with the same seed", func() {
		Expect(values(initialized())).To(Equal(values(initialized())))
	})

	It("reads a YAML document", func() {
		m := heat.New(heat.WithSeed(1))
		Expect(m.InitializeReader(strings.NewReader("shape: [7, 5]\n"))).To(Succeed())

		Expect(m.GetGridShape(heat.PlateGrid, make([]int, 2))).To(Equal([]int{7, 5}))
	})

	It("reads a config file through the filesystem", func() {
		fs := afero.NewMemMapFs()
		Expect(afero.WriteFile(fs, "/plate.yaml", []byte("shape: [7, 5]\nalpha: 0.5\nspacing: [2, 3]\n"), 0644)).To(Succeed())

		m := heat.New(heat.WithSeed(1), heat.WithFS(fs))
		Expect(m.Initialize("/plate.yaml")).To(Succeed())

		Expect(m.GetGridShape(heat.PlateGrid, make([]int, 2))).To(Equal([]int{7, 5}))
		Expect(m.GetTimeStep()).To(Equal(2.0))
	})

	It("rejects unknown keys without leaving a usable model", func() {
		m := heat.New()
		err := m.InitializeReader(strings.NewReader("shape: [3, 3]\nwidth: 4\n"))
		Expect(err).To(MatchError(bmi.ErrUnknownConfigKey))

		_, err = m.GetValuePtr(temperature)
		Expect(err).To(MatchError(bmi.ErrNotInitialized))
	})

	It("rejects malformed values", func() {
		m := heat.New()
		Expect(m.InitializeReader(strings.NewReader("alpha: -1\n"))).To(MatchError(bmi.ErrMalformedValue))
		Expect(m.InitializeReader(strings.NewReader("shape: [3]\n"))).To(MatchError(bmi.ErrMalformedValue))
	})

	It("rejects a shape whose node count overflows", func() {
		m := heat.New(heat.WithSeed(1))
		Expect(m.InitializeReader(strings.NewReader("shape: [4000000000, 4000000000]\n"))).To(MatchError(bmi.ErrMalformedValue))
		Expect(m.InitializeReader(strings.NewReader("shape: [65536, 65536]\n"))).To(MatchError(bmi.ErrMalformedValue))

		cfg := config.DefaultConfig()
		cfg.Shape = [2]int{math.MaxInt / 2, 3}
		Expect(m.InitializeConfig(*cfg)).To(MatchError(bmi.ErrMalformedValue))

		_, err := m.GetValuePtr(temperature)
		Expect(err).To(MatchError(bmi.ErrNotInitialized))
	})

	It("fails on a missing config file", func() {
		m := heat.New(heat.WithFS(afero.NewMemMapFs()))
		Expect(m.Initialize("/nope.yaml")).NotTo(Succeed())
	})

	It("derives the time step from spacing and alpha", func() {
		cases := []struct {
			spacing [2]float64
			alpha   float64
			step    float64
		}{
			{[2]float64{1, 1}, 1, 0.25},
			{[2]float64{1, 1}, 0.5, 0.5},
			{[2]float64{2, 3}, 0.5, 2},
		}
		for _, c := range cases {
			cfg := *config.DefaultConfig()
			cfg.Spacing, cfg.Alpha = c.spacing, c.alpha
			Expect(withConfig(cfg).GetTimeStep()).To(Equal(c.step))
		}
	})
})

var _ = Describe("Update", func() {
	It("advances time by one step per call", func() {
		m := initialized()
		dt, _ := m.GetTimeStep()
		for i := 1; i <= 10; i++ {
			Expect(m.Update()).To(Succeed())
			Expect(m.GetCurrentTime()).To(BeNumerically("~", float64(i)*dt, 1e-12))
		}
	})

	It("never changes the shape", func() {
		m := initialized()
		for i := 0; i < 50; i++ {
			Expect(m.Update()).To(Succeed())
		}
		Expect(m.GetGridShape(heat.PlateGrid, make([]int, 2))).To(Equal([]int{10, 20}))
		ptr, _ := m.GetValuePtr(temperature)
		Expect(ptr).To(HaveLen(200))
	})

	It("holds the border fixed", func() {
		m := initialized()
		before := values(m)
		for i := 0; i < 20; i++ {
			Expect(m.Update()).To(Succeed())
		}
		after := values(m)

		rows, cols := 10, 20
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if i == 0 || i == rows-1 || j == 0 || j == cols-1 {
					Expect(after[i*cols+j]).To(Equal(before[i*cols+j]), "node (%d,%d)", i, j)
				}
			}
		}
	})

	It("diffuses a point source exactly", func() {
		m := withConfig(config.Config{Shape: [2]int{3, 3}, Spacing: [2]float64{1, 1}, Alpha: 0.25})
		Expect(m.GetTimeStep()).To(Equal(1.0))
		Expect(m.SetValue(temperature, []float64{0, 0, 0, 0, 1, 0, 0, 0, 0})).To(Succeed())

		Expect(m.Update()).To(Succeed())

		Expect(values(m)).To(Equal([]float64{0, 0, 0, 0, 0.5, 0, 0, 0, 0}))
	})

	It("advances by a fraction of a step", func() {
		m := initialized()
		Expect(m.UpdateFrac(0.5)).To(Succeed())
		Expect(m.GetCurrentTime()).To(Equal(0.125))
		Expect(m.GetTimeStep()).To(Equal(0.25))
	})

	It("rejects fractions outside [0, 1]", func() {
		m := initialized()
		Expect(m.UpdateFrac(-0.5)).To(MatchError(bmi.ErrInvalidArgument))
		Expect(m.UpdateFrac(2)).To(MatchError(bmi.ErrInvalidArgument))
		Expect(m.GetCurrentTime()).To(Equal(0.0))
	})

	It("lands on the requested time", func() {
		for _, then := range []float64{10.1, 0.1, 3, 123.456} {
			m := initialized()
			Expect(m.UpdateUntil(then)).To(Succeed())
			Expect(m.GetCurrentTime()).To(BeNumerically("~", then, 1e-9))
		}
	})

	It("rejects a time in the past", func() {
		m := initialized()
		Expect(m.UpdateUntil(1)).To(Succeed())
		Expect(m.UpdateUntil(0.5)).To(MatchError(bmi.ErrInvalidArgument))
	})

	It("honours an overridden time step", func() {
		m := initialized()
		Expect(m.SetTimeStep(0.1)).To(Succeed())
		Expect(m.Update()).To(Succeed())
		Expect(m.GetCurrentTime()).To(BeNumerically("~", 0.1, 1e-15))
		Expect(m.SetTimeStep(-1)).To(MatchError(bmi.ErrInvalidArgument))
	})

	It("warns about a time step above the stability limit", func() {
		var buf bytes.Buffer
		logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Warn})
		m := initialized(heat.WithLogger(logger))

		Expect(m.SetTimeStep(0.25)).To(Succeed())
		Expect(buf.String()).To(BeEmpty())

		Expect(m.SetTimeStep(0.5)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("time step exceeds the stability limit"))
		Expect(m.GetTimeStep()).To(Equal(0.5))
	})
})

var _ = Describe("Variable information", func() {
	It("describes the temperature variable", func() {
		m := initialized()

		Expect(m.GetVarGrid(temperature)).To(Equal(0))
		Expect(m.GetVarType(temperature)).To(Equal("float64"))
		Expect(m.GetVarUnits(temperature)).To(Equal("K"))
		Expect(m.GetVarItemSize(temperature)).To(Equal(8))
		Expect(m.GetVarNBytes(temperature)).To(Equal(8 * 200))
		Expect(m.GetVarLocation(temperature)).To(Equal(bmi.LocationNode))
	})

	It("reports unknown names as lookup misses", func() {
		m := initialized()

		_, err := m.GetVarUnits("not_a_variable")
		Expect(err).To(MatchError(bmi.ErrUnknownVariable))
		Expect(bmi.IsLookupMiss(err)).To(BeTrue())

		_, err = m.GetVarGrid("not_a_variable")
		Expect(err).To(MatchError(bmi.ErrUnknownVariable))
	})
})

var _ = Describe("Getters and setters", func() {
	var m *heat.Model

	BeforeEach(func() {
		m = initialized()
	})

	It("copies on GetValue", func() {
		dest := make([]float64, 200)
		got, err := m.GetValue(temperature, dest)
		Expect(err).NotTo(HaveOccurred())
		Expect(&got[0]).To(BeIdenticalTo(&dest[0]))

		ptr, _ := m.GetValuePtr(temperature)
		Expect(&got[0]).NotTo(BeIdenticalTo(&ptr[0]))
		Expect(got).To(Equal(ptr))

		got[0] = -99
		again, _ := m.GetValuePtr(temperature)
		Expect(again[0]).NotTo(Equal(-99.0))
	})

	It("keeps GetValuePtr identity across updates", func() {
		ref, err := m.GetValuePtr(temperature)
		Expect(err).NotTo(HaveOccurred())
		snapshot := append([]float64(nil), ref...)

		for i := 0; i < 10; i++ {
			Expect(m.Update()).To(Succeed())
		}

		again, _ := m.GetValuePtr(temperature)
		Expect(&again[0]).To(BeIdenticalTo(&ref[0]))
		Expect(ref).NotTo(Equal(snapshot))
	})

	It("does not let a copy see later updates", func() {
		copied := values(m)
		Expect(m.Update()).To(Succeed())
		ptr, _ := m.GetValuePtr(temperature)
		Expect(copied).NotTo(Equal(ptr))
	})

	It("fails GetValue on a wrong-sized buffer without touching the field", func() {
		before := values(m)
		_, err := m.GetValue(temperature, make([]float64, 3))
		Expect(err).To(MatchError(bmi.ErrSizeMismatch))
		Expect(values(m)).To(Equal(before))
	})

	It("fails on unknown variables", func() {
		_, err := m.GetValue("not_a_variable", make([]float64, 200))
		Expect(err).To(MatchError(bmi.ErrUnknownVariable))
		_, err = m.GetValuePtr("not_a_variable")
		Expect(err).To(MatchError(bmi.ErrUnknownVariable))
		Expect(m.SetValue("not_a_variable", make([]float64, 200))).To(MatchError(bmi.ErrUnknownVariable))
	})

	It("round trips SetValue", func() {
		src := make([]float64, 200)
		for i := range src {
			src[i] = float64(i) * 0.5
		}
		ptr, _ := m.GetValuePtr(temperature)

		Expect(m.SetValue(temperature, src)).To(Succeed())
		Expect(values(m)).To(Equal(src))
		Expect(ptr).To(Equal(src))

		src[0] = 1000
		Expect(ptr[0]).To(Equal(0.0))
	})

	It("rejects SetValue of the wrong size", func() {
		before := values(m)
		Expect(m.SetValue(temperature, make([]float64, 199))).To(MatchError(bmi.ErrSizeMismatch))
		Expect(values(m)).To(Equal(before))
	})

	It("round trips indexed access", func() {
		inds := []int{0, 2, 4}
		Expect(m.SetValueAtIndices(temperature, inds, []float64{9, 9, 9})).To(Succeed())

		got, err := m.GetValueAtIndices(temperature, make([]float64, 3), inds)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]float64{9, 9, 9}))
	})

	It("gathers the same values as the reference", func() {
		ptr, _ := m.GetValuePtr(temperature)
		got, err := m.GetValueAtIndices(temperature, make([]float64, 3), []int{1, 21, 199})
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal([]float64{ptr[1], ptr[21], ptr[199]}))
	})

	It("rejects out of range indices without writing anything", func() {
		before := values(m)

		Expect(m.SetValueAtIndices(temperature, []int{0, 200}, []float64{5, 5})).To(MatchError(bmi.ErrIndexOutOfRange))
		Expect(m.SetValueAtIndices(temperature, []int{-1}, []float64{5})).To(MatchError(bmi.ErrIndexOutOfRange))
		Expect(values(m)).To(Equal(before))

		_, err := m.GetValueAtIndices(temperature, make([]float64, 1), []int{200})
		Expect(err).To(MatchError(bmi.ErrIndexOutOfRange))
	})

	It("rejects mismatched index and value lengths", func() {
		Expect(m.SetValueAtIndices(temperature, []int{0, 1}, []float64{5})).To(MatchError(bmi.ErrSizeMismatch))
		_, err := m.GetValueAtIndices(temperature, make([]float64, 1), []int{0, 1})
		Expect(err).To(MatchError(bmi.ErrSizeMismatch))
	})
})

var _ = Describe("Grid information", func() {
	var m *heat.Model

	BeforeEach(func() {
		m = withConfig(config.Config{
			Shape:   [2]int{4, 6},
			Spacing: [2]float64{2, 0.5},
			Origin:  [2]float64{-1, 3},
			Alpha:   1,
		})
	})

	It("describes the uniform plate grid", func() {
		Expect(m.GetGridType(0)).To(Equal("uniform_rectilinear"))
		Expect(m.GetGridRank(0)).To(Equal(2))
		Expect(m.GetGridSize(0)).To(Equal(24))
		Expect(m.GetGridNodeCount(0)).To(Equal(24))
		Expect(m.GetGridShape(0, make([]int, 2))).To(Equal([]int{4, 6}))
		Expect(m.GetGridSpacing(0, make([]float64, 2))).To(Equal([]float64{2, 0.5}))
		Expect(m.GetGridOrigin(0, make([]float64, 2))).To(Equal([]float64{-1, 3}))
	})

	It("fails on unknown grid ids", func() {
		_, err := m.GetGridType(1)
		Expect(err).To(MatchError(bmi.ErrUnknownGrid))
		Expect(bmi.IsLookupMiss(err)).To(BeTrue())

		_, err = m.GetGridShape(-1, make([]int, 2))
		Expect(err).To(MatchError(bmi.ErrUnknownGrid))
		_, err = m.GetGridSize(3)
		Expect(err).To(MatchError(bmi.ErrUnknownGrid))
		_, err = m.GetGridX(3, nil)
		Expect(err).To(MatchError(bmi.ErrUnknownGrid))
	})

	It("rejects wrong-sized shape buffers", func() {
		_, err := m.GetGridShape(0, make([]int, 3))
		Expect(err).To(MatchError(bmi.ErrSizeMismatch))
	})

	It("reports kind-specific accessors as unsupported", func() {
		_, err := m.GetGridX(0, make([]float64, 6))
		Expect(err).To(MatchError(bmi.ErrUnsupported))
		_, err = m.GetGridEdgeCount(0)
		Expect(err).To(MatchError(bmi.ErrUnsupported))
		_, err = m.GetGridFaceNodes(0, nil)
		Expect(err).To(MatchError(bmi.ErrUnsupported))
	})
})

var _ = Describe("Lifecycle", func() {
	It("fails before Initialize", func() {
		m := heat.New()
		Expect(m.Update()).To(MatchError(bmi.ErrNotInitialized))
		_, err := m.GetCurrentTime()
		Expect(err).To(MatchError(bmi.ErrNotInitialized))
		Expect(m.Finalize()).To(MatchError(bmi.ErrNotInitialized))
	})

	It("fails every call after Finalize", func() {
		m := initialized()
		Expect(m.Update()).To(Succeed())
		Expect(m.Finalize()).To(Succeed())

		Expect(m.Finalize()).To(MatchError(bmi.ErrUseAfterFinalize))
		Expect(m.Update()).To(MatchError(bmi.ErrUseAfterFinalize))
		Expect(m.UpdateUntil(5)).To(MatchError(bmi.ErrUseAfterFinalize))
		Expect(m.Initialize("")).To(MatchError(bmi.ErrUseAfterFinalize))

		_, err := m.GetValuePtr(temperature)
		Expect(err).To(MatchError(bmi.ErrUseAfterFinalize))
		_, err = m.GetGridShape(0, make([]int, 2))
		Expect(err).To(MatchError(bmi.ErrUseAfterFinalize))
		Expect(bmi.KindOf(err)).To(Equal(bmi.KindUseAfterFinalize))
	})

	It("can be reinitialized before Finalize", func() {
		m := initialized()
		Expect(m.UpdateUntil(2)).To(Succeed())
		Expect(m.InitializeReader(strings.NewReader("shape: [3, 4]\n"))).To(Succeed())

		Expect(m.GetCurrentTime()).To(Equal(0.0))
		Expect(m.GetGridSize(0)).To(Equal(12))
	})
})

var _ = Describe("Geo", func() {
	var (
		m   *heat.Model
		geo *heat.Geo
	)

	BeforeEach(func() {
		m = withConfig(config.Config{
			Shape:   [2]int{2, 3},
			Spacing: [2]float64{2, 0.5},
			Origin:  [2]float64{10, -1},
			Alpha:   1,
		})
		geo = heat.NewGeo(m)
	})

	It("names and units the coordinates", func() {
		Expect(geo.CoordinateNames(0)).To(Equal([]string{"y", "x"}))
		Expect(geo.CoordinateUnits(0)).To(Equal([]string{"m", "m"}))
		Expect(geo.CRS(0)).To(Equal("none"))
	})

	It("computes node coordinates row-major", func() {
		y, err := geo.Coordinate(0, "y", make([]float64, 6))
		Expect(err).NotTo(HaveOccurred())
		Expect(y).To(Equal([]float64{10, 10, 10, 12, 12, 12}))

		x, err := geo.Coordinate(0, "x", make([]float64, 6))
		Expect(err).NotTo(HaveOccurred())
		Expect(x).To(Equal([]float64{-1, -0.5, 0, -1, -0.5, 0}))
	})

	It("rejects unknown coordinates and grids", func() {
		_, err := geo.Coordinate(0, "z", make([]float64, 6))
		Expect(err).To(MatchError(bmi.ErrInvalidArgument))
		_, err = geo.Coordinate(0, "x", make([]float64, 5))
		Expect(err).To(MatchError(bmi.ErrSizeMismatch))
		_, err = geo.CRS(4)
		Expect(err).To(MatchError(bmi.ErrUnknownGrid))
	})
})
