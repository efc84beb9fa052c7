// Package config loads interpreter tuning knobs from YAML
// (gopkg.in/yaml.v3, this codebase's own config dependency), with defaults
// applied when no file is present. See SPEC_FULL.md Ambient Stack.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs spec.md names explicitly: the JIT hotness
// threshold (§4.2 Call opcode, "at threshold (e.g., 100)"), the
// specialization sample size and stability ratio (§4.3 step 1: "After N
// observations (e.g., 60) and >=90% same-type samples"), the default
// async task-pool size (§4.4, §6.5), and VM safety limits.
type Config struct {
	JIT struct {
		Enabled            bool `yaml:"enabled"`
		HotnessThreshold   int  `yaml:"hotness_threshold"`
		ProfileSampleSize  int  `yaml:"profile_sample_size"`
		ProfileStabilityPct int `yaml:"profile_stability_pct"`
		CodeCacheSize      int  `yaml:"code_cache_size"`
	} `yaml:"jit"`

	Async struct {
		DefaultTaskPoolSize int `yaml:"default_task_pool_size"`
	} `yaml:"async"`

	VM struct {
		MaxValueStack int `yaml:"max_value_stack"`
		MaxCallDepth  int `yaml:"max_call_depth"`
	} `yaml:"vm"`
}

// Default returns the tuning values spec.md itself names as examples.
func Default() *Config {
	c := &Config{}
	c.JIT.Enabled = true
	c.JIT.HotnessThreshold = 100
	c.JIT.ProfileSampleSize = 60
	c.JIT.ProfileStabilityPct = 90
	c.JIT.CodeCacheSize = 512
	c.Async.DefaultTaskPoolSize = 32
	c.VM.MaxValueStack = 1 << 20
	c.VM.MaxCallDepth = 4096
	return c
}

// Load reads a YAML config file, overlaying it onto Default(). A missing
// file is not an error — it yields the defaults unchanged.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
