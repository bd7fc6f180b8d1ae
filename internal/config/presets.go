package config

import "sort"

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"square": {
		Shape: [2]int{32, 32}, Spacing: [2]float64{1, 1}, Alpha: 1,
	},
	"fine": {
		Shape: [2]int{60, 120}, Spacing: [2]float64{0.25, 0.25}, Alpha: 1,
	},
	"coarse": {
		Shape: [2]int{6, 12}, Spacing: [2]float64{4, 4}, Alpha: 2,
	},
	"anisotropic": {
		Shape: [2]int{20, 20}, Spacing: [2]float64{1, 3}, Alpha: 0.5,
	},
	"insulator": {
		Shape: [2]int{16, 32}, Spacing: [2]float64{1, 1}, Alpha: 0.05,
	},
}

// GetPreset returns a copy of the named preset, or nil if none exists.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
