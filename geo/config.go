package geo

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig bundles the tunable parameters of a full grid analysis
// run. Zero values are filled in by ApplyDefaults so a minimal YAML file
// is enough to get going.
type AnalysisConfig struct {
	// InvalidValues are raw cell values mapped to NaN during cleaning.
	// Satellite products commonly encode nodata as 0, -9999 or float min.
	InvalidValues []float64 `yaml:"invalidValues"`

	SmoothSigma float64 `yaml:"smoothSigma"`

	Hotspot struct {
		Method    string  `yaml:"method"` // zscore | percentile | iqr
		Threshold float64 `yaml:"threshold"`
	} `yaml:"hotspot"`

	Moran struct {
		Neighborhood string `yaml:"neighborhood"` // queen | rook
	} `yaml:"moran"`

	Cluster struct {
		K             int     `yaml:"k"`
		Eps           float64 `yaml:"eps"`
		MinSamples    int     `yaml:"minSamples"`
		IncludeCoords *bool   `yaml:"includeCoords"`
	} `yaml:"cluster"`

	Quadrants struct {
		Rows int `yaml:"rows"`
		Cols int `yaml:"cols"`
	} `yaml:"quadrants"`

	Render struct {
		Palette string `yaml:"palette"` // vegetation | diverging
		Scale   int    `yaml:"scale"`
	} `yaml:"render"`

	Transform *GeoTransform `yaml:"transform"`
}

// DefaultAnalysisConfig returns the defaults used when no config file is
// given.
func DefaultAnalysisConfig() *AnalysisConfig {
	cfg := &AnalysisConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with the standard analysis parameters.
func (c *AnalysisConfig) ApplyDefaults() {
	if c.InvalidValues == nil {
		c.InvalidValues = []float64{0, -9999, -3.40282e+38}
	}
	if c.SmoothSigma == 0 {
		c.SmoothSigma = 1.0
	}
	if c.Hotspot.Method == "" {
		c.Hotspot.Method = "zscore"
	}
	if c.Hotspot.Threshold == 0 {
		c.Hotspot.Threshold = 1.5
	}
	if c.Moran.Neighborhood == "" {
		c.Moran.Neighborhood = "queen"
	}
	if c.Cluster.K == 0 {
		c.Cluster.K = 5
	}
	if c.Cluster.Eps == 0 {
		c.Cluster.Eps = 0.5
	}
	if c.Cluster.MinSamples == 0 {
		c.Cluster.MinSamples = 10
	}
	if c.Cluster.IncludeCoords == nil {
		t := true
		c.Cluster.IncludeCoords = &t
	}
	if c.Quadrants.Rows == 0 {
		c.Quadrants.Rows = 2
	}
	if c.Quadrants.Cols == 0 {
		c.Quadrants.Cols = 2
	}
	if c.Render.Palette == "" {
		c.Render.Palette = "vegetation"
	}
	if c.Render.Scale == 0 {
		c.Render.Scale = 4
	}
}

// Validate checks that the tags and numeric ranges are usable.
func (c *AnalysisConfig) Validate() error {
	if _, err := ParseHotspotMethod(c.Hotspot.Method); err != nil {
		return fmt.Errorf("config: hotspot: %w", err)
	}
	if c.Hotspot.Threshold <= 0 {
		return fmt.Errorf("config: hotspot.threshold must be positive: %w", ErrBadParam)
	}
	if _, err := ParseNeighborhood(c.Moran.Neighborhood); err != nil {
		return fmt.Errorf("config: moran: %w", err)
	}
	if c.Cluster.K < 1 {
		return fmt.Errorf("config: cluster.k must be >= 1: %w", ErrBadParam)
	}
	if c.Cluster.Eps <= 0 {
		return fmt.Errorf("config: cluster.eps must be positive: %w", ErrBadParam)
	}
	if c.Cluster.MinSamples < 1 {
		return fmt.Errorf("config: cluster.minSamples must be >= 1: %w", ErrBadParam)
	}
	if c.SmoothSigma <= 0 {
		return fmt.Errorf("config: smoothSigma must be positive: %w", ErrBadParam)
	}
	if c.Quadrants.Rows < 1 || c.Quadrants.Cols < 1 {
		return fmt.Errorf("config: quadrant counts must be >= 1: %w", ErrBadParam)
	}
	if _, err := RampByName(c.Render.Palette); err != nil {
		return fmt.Errorf("config: render: %w", err)
	}
	return nil
}

// LoadConfig loads an analysis configuration from a YAML file, applying
// defaults for every unset field and validating the result.
func LoadConfig(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg AnalysisConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(path string, cfg *AnalysisConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
