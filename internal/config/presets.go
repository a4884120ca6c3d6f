package config

import "sort"

var Presets = map[string]*Config{
	"cold": preset(func(c *Config) {
		c.Size, c.Temperature, c.Aligned = 64, 0.1, true
	}),
	"hot": preset(func(c *Config) {
		c.Size, c.Temperature = 64, 2.0
	}),
	"critical": preset(func(c *Config) {
		c.Size, c.Temperature, c.Kernel = 128, 0.89, "wolff"
	}),
	"wolff": preset(func(c *Config) {
		c.Size, c.Temperature, c.Kernel = 256, 0.5, "wolff"
	}),
	"sweep": preset(func(c *Config) {
		c.Size, c.Temperature, c.Aligned = 32, 0.0, true
		c.Observable = "energy"
	}),
	"vortex": preset(func(c *Config) {
		c.Size, c.Temperature = 256, 0.3
		c.Record = false
	}),
}

func preset(apply func(*Config)) *Config {
	c := DefaultConfig()
	apply(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
