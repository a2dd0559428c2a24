package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config carries every tunable of the two-stage pipeline. Defaults match
// the documented reference run; anything can be overridden from YAML or
// from flags in cmd/pipeline.
type Config struct {
	LabelColumn       string   `yaml:"label_column"`
	BaselineSuffix    string   `yaml:"baseline_suffix"`
	TimepointSuffixes []string `yaml:"timepoint_suffixes"`

	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	Encoder EncoderConfig `yaml:"encoder"`
	Boost   BoostConfig   `yaml:"boost"`

	TestFraction float64 `yaml:"test_fraction"`
	Seed         int64   `yaml:"seed"`
}

// EncoderConfig configures the graph convolutional encoder.
type EncoderConfig struct {
	HiddenDims   []int   `yaml:"hidden_dims"`
	OutputDim    int     `yaml:"output_dim"`
	DropoutKeep  float64 `yaml:"dropout_keep"`
	Epochs       int     `yaml:"epochs"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
}

// BoostConfig configures the gradient-boosted ensemble.
type BoostConfig struct {
	Rounds          int     `yaml:"rounds"`
	LearningRate    float64 `yaml:"learning_rate"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf"`
	Subsample       float64 `yaml:"subsample"`
	ColsampleByTree float64 `yaml:"colsample_by_tree"`
	RegAlpha        float64 `yaml:"reg_alpha"`
	RegLambda       float64 `yaml:"reg_lambda"`
	EarlyStopping   int     `yaml:"early_stopping"`
}

func Default() *Config {
	return &Config{
		LabelColumn:         "severity",
		BaselineSuffix:      "_baseline",
		TimepointSuffixes:   []string{"_week4", "_week12", "_followup"},
		SimilarityThreshold: 0.88,
		Encoder: EncoderConfig{
			HiddenDims:   []int{640, 512, 384},
			OutputDim:    256,
			DropoutKeep:  0.8,
			Epochs:       700,
			LearningRate: 0.01,
			WeightDecay:  5e-4,
		},
		Boost: BoostConfig{
			Rounds:          2000,
			LearningRate:    0.05,
			MaxDepth:        6,
			MinSamplesLeaf:  5,
			Subsample:       0.8,
			ColsampleByTree: 0.8,
			RegAlpha:        0,
			RegLambda:       1,
			EarlyStopping:   100,
		},
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Load reads a YAML file over the defaults. A missing path returns the
// defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LabelColumn == "" {
		return fmt.Errorf("config: label_column is required")
	}
	if c.SimilarityThreshold <= -1 || c.SimilarityThreshold >= 1 {
		return fmt.Errorf("config: similarity_threshold %.3f outside (-1, 1)", c.SimilarityThreshold)
	}
	if len(c.Encoder.HiddenDims) == 0 {
		return fmt.Errorf("config: encoder.hidden_dims must not be empty")
	}
	for _, d := range c.Encoder.HiddenDims {
		if d <= 0 {
			return fmt.Errorf("config: encoder hidden dim %d must be positive", d)
		}
	}
	if c.Encoder.OutputDim <= 0 {
		return fmt.Errorf("config: encoder.output_dim must be positive")
	}
	if c.Encoder.DropoutKeep <= 0 || c.Encoder.DropoutKeep > 1 {
		return fmt.Errorf("config: encoder.dropout_keep %.3f outside (0, 1]", c.Encoder.DropoutKeep)
	}
	if c.Encoder.Epochs <= 0 {
		return fmt.Errorf("config: encoder.epochs must be positive")
	}
	if c.Boost.Rounds <= 0 {
		return fmt.Errorf("config: boost.rounds must be positive")
	}
	if c.Boost.Subsample <= 0 || c.Boost.Subsample > 1 {
		return fmt.Errorf("config: boost.subsample %.3f outside (0, 1]", c.Boost.Subsample)
	}
	if c.Boost.ColsampleByTree <= 0 || c.Boost.ColsampleByTree > 1 {
		return fmt.Errorf("config: boost.colsample_by_tree %.3f outside (0, 1]", c.Boost.ColsampleByTree)
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("config: test_fraction %.3f outside (0, 1)", c.TestFraction)
	}
	return nil
}
