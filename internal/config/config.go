package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/acctree/internal/conflicts"
	"github.com/cleared-dev/acctree/internal/engine"
	"github.com/cleared-dev/acctree/internal/model"
)

// FileName is the config file at the repository root.
const FileName = "acctree.yaml"

// Config represents the top-level acctree.yaml configuration.
type Config struct {
	Business   BusinessConfig   `yaml:"business"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	Controls   ControlsConfig   `yaml:"controls"`
	Server     ServerConfig     `yaml:"server"`
	Git        GitConfig        `yaml:"git"`
}

// BusinessConfig identifies the reporting entity.
type BusinessConfig struct {
	Name string `yaml:"name"`
}

// ThresholdsConfig tunes the engine.
type ThresholdsConfig struct {
	RecommendShare      float64 `yaml:"recommend_share"`
	RecommendConfidence float64 `yaml:"recommend_confidence"`
	SummaryLeafLimit    int     `yaml:"summary_leaf_limit"`
	ReconcileEpsilon    string  `yaml:"reconcile_epsilon"` // decimal string, e.g. "0.01"
}

// ControlsConfig names the grand-total control codes.
type ControlsConfig struct {
	Ingresos string `yaml:"ingresos"`
	Egresos  string `yaml:"egresos"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads an acctree.yaml file from disk. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the production thresholds for a new project.
func Default(businessName string) *Config {
	def := engine.DefaultConfig()
	return &Config{
		Business: BusinessConfig{Name: businessName},
		Thresholds: ThresholdsConfig{
			RecommendShare:      def.RecommendThreshold,
			RecommendConfidence: def.RecommendConfidence,
			SummaryLeafLimit:    def.SummaryLeafLimit,
			ReconcileEpsilon:    def.ReconcileEpsilon.String(),
		},
		Controls: ControlsConfig{
			Ingresos: string(engine.DefaultIngresosControl),
			Egresos:  string(engine.DefaultEgresosControl),
		},
		Server: ServerConfig{
			Port:     "8080",
			LogLevel: "info",
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "acctree",
			AuthorEmail: "acctree@localhost",
		},
	}
}

// Engine derives the explicit engine configuration and validates it.
func (c *Config) Engine() (engine.Config, error) {
	eps, err := decimal.NewFromString(c.Thresholds.ReconcileEpsilon)
	if err != nil {
		return engine.Config{}, fmt.Errorf("parsing reconcile_epsilon %q: %w", c.Thresholds.ReconcileEpsilon, err)
	}
	ec := engine.Config{
		RecommendThreshold:  c.Thresholds.RecommendShare,
		RecommendConfidence: c.Thresholds.RecommendConfidence,
		SummaryLeafLimit:    c.Thresholds.SummaryLeafLimit,
		ReconcileEpsilon:    eps,
	}
	if c.Controls.Ingresos != "" {
		ec.Controls = append(ec.Controls, conflicts.Control{Tipo: model.TipoIngresos, Code: model.AccountCode(c.Controls.Ingresos)})
	}
	if c.Controls.Egresos != "" {
		ec.Controls = append(ec.Controls, conflicts.Control{Tipo: model.TipoEgresos, Code: model.AccountCode(c.Controls.Egresos)})
	}
	if err := ec.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return ec, nil
}
