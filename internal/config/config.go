package config

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/san-kum/heatbmi/internal/bmi"
	"github.com/san-kum/heatbmi/internal/grid"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRows    = 10
	DefaultCols    = 20
	DefaultSpacing = 1.0
	DefaultOrigin  = 0.0
	DefaultAlpha   = 1.0
)

// Keys lists every recognized configuration key.
var Keys = []string{"shape", "spacing", "origin", "alpha"}

type Config struct {
	Shape   [2]int     `yaml:"shape,flow" json:"shape"`
	Spacing [2]float64 `yaml:"spacing,flow" json:"spacing"`
	Origin  [2]float64 `yaml:"origin,flow" json:"origin"`
	Alpha   float64    `yaml:"alpha" json:"alpha"`
}

// rawConfig is the loosely typed decode target; lengths and integrality are
// checked afterwards so every problem gets its own error.
type rawConfig struct {
	Shape   []float64 `mapstructure:"shape"`
	Spacing []float64 `mapstructure:"spacing"`
	Origin  []float64 `mapstructure:"origin"`
	Alpha   *float64  `mapstructure:"alpha"`
}

func DefaultConfig() *Config {
	return &Config{
		Shape:   [2]int{DefaultRows, DefaultCols},
		Spacing: [2]float64{DefaultSpacing, DefaultSpacing},
		Origin:  [2]float64{DefaultOrigin, DefaultOrigin},
		Alpha:   DefaultAlpha,
	}
}

// Geometry returns the grid geometry described by c.
func (c *Config) Geometry() grid.Geometry {
	return grid.Geometry{Shape: c.Shape, Spacing: c.Spacing, Origin: c.Origin}
}

// Validate checks ranges on an already typed config.
func (c *Config) Validate() error {
	var errs *multierror.Error
	if c.Shape[0] <= 0 || c.Shape[1] <= 0 {
		errs = multierror.Append(errs, malformed("shape", "must be positive, got %v", c.Shape))
	} else if c.Shape[0] > grid.MaxNodes/c.Shape[1] {
		errs = multierror.Append(errs, malformed("shape", "%v exceeds %d nodes", c.Shape, grid.MaxNodes))
	}
	if !positive(c.Spacing[0]) || !positive(c.Spacing[1]) {
		errs = multierror.Append(errs, malformed("spacing", "must be positive, got %v", c.Spacing))
	}
	if !finite(c.Origin[0]) || !finite(c.Origin[1]) {
		errs = multierror.Append(errs, malformed("origin", "must be finite, got %v", c.Origin))
	}
	if !positive(c.Alpha) {
		errs = multierror.Append(errs, malformed("alpha", "must be positive, got %g", c.Alpha))
	}
	return errs.ErrorOrNil()
}

// FromMap builds a config from a flat key/value mapping. Omitted keys keep
// their defaults; unknown keys and malformed values are reported together.
func FromMap(raw map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	var errs *multierror.Error

	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if !known(k) {
			errs = multierror.Append(errs, bmi.Errorf("config", k, bmi.ErrUnknownConfigKey,
				"recognized keys are %s", strings.Join(Keys, ", ")))
		}
	}

	var rc rawConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &rc})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		errs = multierror.Append(errs, malformed("", "%v", err))
		return nil, errs.ErrorOrNil()
	}

	if rc.Shape != nil {
		if shape, err := toShape(rc.Shape); err != nil {
			errs = multierror.Append(errs, err)
		} else {
			cfg.Shape = shape
		}
	}
	if rc.Spacing != nil {
		if pair, err := toPair("spacing", rc.Spacing); err != nil {
			errs = multierror.Append(errs, err)
		} else {
			cfg.Spacing = pair
		}
	}
	if rc.Origin != nil {
		if pair, err := toPair("origin", rc.Origin); err != nil {
			errs = multierror.Append(errs, err)
		} else {
			cfg.Origin = pair
		}
	}
	if rc.Alpha != nil {
		cfg.Alpha = *rc.Alpha
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Map returns c as a flat mapping that FromMap accepts.
func (c *Config) Map() map[string]any {
	return map[string]any{
		"shape":   []float64{float64(c.Shape[0]), float64(c.Shape[1])},
		"spacing": []float64{c.Spacing[0], c.Spacing[1]},
		"origin":  []float64{c.Origin[0], c.Origin[1]},
		"alpha":   c.Alpha,
	}
}

// Overlay returns c with the keys of overrides replaced. The result is
// checked like any other mapping.
func (c *Config) Overlay(overrides map[string]any) (*Config, error) {
	merged := c.Map()
	for k, v := range overrides {
		merged[k] = v
	}
	return FromMap(merged)
}

// Decode reads a YAML mapping from r. An empty document yields the defaults.
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, malformed("", "%v", err)
	}
	return FromMap(raw)
}

// LoadFS reads the YAML file at path from fs. The file is closed before
// LoadFS returns.
func LoadFS(fs afero.Fs, path string) (*Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

func Load(path string) (*Config, error) {
	return LoadFS(afero.NewOsFs(), path)
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func SaveFS(fs afero.Fs, path string, cfg *Config) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}
	return afero.WriteFile(fs, path, buf.Bytes(), 0644)
}

func Save(path string, cfg *Config) error {
	return SaveFS(afero.NewOsFs(), path, cfg)
}

func known(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

func toShape(v []float64) ([2]int, error) {
	if len(v) != 2 {
		return [2]int{}, malformed("shape", "want 2 values, got %d", len(v))
	}
	var shape [2]int
	for i, x := range v {
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return [2]int{}, malformed("shape", "want integers, got %v", v)
		}
		if math.Abs(x) > grid.MaxNodes {
			return [2]int{}, malformed("shape", "%v exceeds %d nodes", v, grid.MaxNodes)
		}
		shape[i] = int(x)
	}
	return shape, nil
}

func toPair(key string, v []float64) ([2]float64, error) {
	if len(v) != 2 {
		return [2]float64{}, malformed(key, "want 2 values, got %d", len(v))
	}
	return [2]float64{v[0], v[1]}, nil
}

func positive(x float64) bool { return x > 0 && !math.IsInf(x, 0) }
func finite(x float64) bool   { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func malformed(key, format string, args ...any) error {
	return bmi.Errorf("config", key, bmi.ErrMalformedValue, format, args...)
}

// String renders the config on one line for logs and CLI output.
func (c *Config) String() string {
	return fmt.Sprintf("shape=%v spacing=%v origin=%v alpha=%g", c.Shape, c.Spacing, c.Origin, c.Alpha)
}
