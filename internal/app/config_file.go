package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

// FileConfig is the single-file configuration schema.
type FileConfig struct {
	Output string `yaml:"output" json:"output"`
	DB     string `yaml:"db" json:"db"`

	LLM struct {
		BaseURL string        `yaml:"base" json:"base"`
		Model   string        `yaml:"model" json:"model"`
		APIKey  string        `yaml:"key" json:"key"`
		Timeout time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"llm" json:"llm"`

	Agents struct {
		Enable *bool    `yaml:"enable" json:"enable"`
		Kinds  []string `yaml:"kinds" json:"kinds"`
	} `yaml:"agents" json:"agents"`

	Verify struct {
		Units       []string `yaml:"units" json:"units"`
		StrictUnits bool     `yaml:"strictUnits" json:"strictUnits"`
	} `yaml:"verify" json:"verify"`

	Workers int  `yaml:"workers" json:"workers"`
	Verbose bool `yaml:"verbose" json:"verbose"`

	Cache struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		Only        bool          `yaml:"only" json:"only"`
	} `yaml:"cache" json:"cache"`

	Report struct {
		HTML bool `yaml:"html" json:"html"`
		PDF  bool `yaml:"pdf" json:"pdf"`
	} `yaml:"report" json:"report"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays file values onto fields of cfg that are still
// unset or at their CLI default, so explicit flags keep precedence.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	if (cfg.OutputDir == "" || cfg.OutputDir == DefaultOutputDir) && fc.Output != "" {
		cfg.OutputDir = fc.Output
	}
	if cfg.DBPath == "" && fc.DB != "" {
		cfg.DBPath = fc.DB
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.LLMTimeout == 0 && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}

	if fc.Agents.Enable != nil {
		cfg.EnableAgents = *fc.Agents.Enable
	}
	if len(cfg.Kinds) == 0 && len(fc.Agents.Kinds) > 0 {
		for _, s := range fc.Agents.Kinds {
			k, ok := record.ParseKind(s)
			if !ok {
				return fmt.Errorf("config file: unknown record kind %q", s)
			}
			cfg.Kinds = append(cfg.Kinds, k)
		}
	}

	if len(cfg.Units) == 0 && len(fc.Verify.Units) > 0 {
		cfg.Units = append([]string(nil), fc.Verify.Units...)
	}
	if !cfg.StrictUnits && fc.Verify.StrictUnits {
		cfg.StrictUnits = true
	}

	if (cfg.Workers == 0 || cfg.Workers == DefaultWorkers) && fc.Workers > 0 {
		cfg.Workers = fc.Workers
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	if (cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if !cfg.LLMCacheOnly && fc.Cache.Only {
		cfg.LLMCacheOnly = true
	}

	if !cfg.EnableHTML && fc.Report.HTML {
		cfg.EnableHTML = true
	}
	if !cfg.EnablePDF && fc.Report.PDF {
		cfg.EnablePDF = true
	}
	return nil
}
