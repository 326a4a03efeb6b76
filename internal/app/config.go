package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

// Config holds runtime configuration for the application.
type Config struct {
	// Output
	OutputDir  string
	DBPath     string
	EnableHTML bool
	EnablePDF  bool

	// LLM
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration

	// Agents
	EnableAgents bool
	// Kinds limits the agents that run. Empty means every kind.
	Kinds []record.Kind

	// Verification
	Units       []string
	StrictUnits bool // reject "± x" qualifiers between number and unit

	// Behavior
	Workers          int
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	LLMCacheOnly     bool
	Verbose          bool
}

// Defaults applied by the CLI before file and env layering.
const (
	DefaultOutputDir = "outputs"
	DefaultWorkers   = 2
	DefaultCacheDir  = ".matextract-cache"
)

// KindsOrAll returns the configured kinds in pipeline order, or every kind.
func (c Config) KindsOrAll() []record.Kind {
	if len(c.Kinds) == 0 {
		return record.Kinds()
	}
	want := map[record.Kind]bool{}
	for _, k := range c.Kinds {
		want[k] = true
	}
	var out []record.Kind
	for _, k := range record.Kinds() {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}

// ParseKinds parses a comma separated kind list such as
// "microstructure,processing".
func ParseKinds(s string) ([]record.Kind, error) {
	var out []record.Kind
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, ok := record.ParseKind(part)
		if !ok {
			return nil, fmt.Errorf("unknown record kind %q", strings.TrimSpace(part))
		}
		out = append(out, k)
	}
	return out, nil
}

// ValidateConfig rejects settings the pipeline cannot run with.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output directory is required")
	}
	if cfg.Workers < 0 {
		return errors.New("config: negative workers are not allowed")
	}
	if cfg.EnableAgents && !cfg.LLMCacheOnly && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required when agents are enabled (or set LLM_MODEL)")
	}
	for _, k := range cfg.Kinds {
		if _, ok := record.SchemaFor(k); !ok {
			return fmt.Errorf("config: unknown record kind %q", k)
		}
	}
	return nil
}
