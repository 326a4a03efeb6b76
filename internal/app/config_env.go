package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig fills unset fields of cfg from environment variables.
// Values already in cfg take precedence.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = os.Getenv(key)
		}
	}
	setString(&cfg.LLMBaseURL, "LLM_BASE_URL")
	setString(&cfg.LLMModel, "LLM_MODEL")
	setString(&cfg.LLMAPIKey, "LLM_API_KEY")
	setString(&cfg.DBPath, "MATEXTRACT_DB")
	if cfg.OutputDir == "" || cfg.OutputDir == DefaultOutputDir {
		if v := os.Getenv("MATEXTRACT_OUT"); v != "" {
			cfg.OutputDir = v
		}
	}
	if cfg.CacheDir == "" || cfg.CacheDir == DefaultCacheDir {
		if v := os.Getenv("CACHE_DIR"); v != "" {
			cfg.CacheDir = v
		}
	}
	if cfg.Workers == 0 || cfg.Workers == DefaultWorkers {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("MATEXTRACT_WORKERS"))); err == nil && n > 0 {
			cfg.Workers = n
		}
	}
	if cfg.CacheMaxAge == 0 {
		if d, err := time.ParseDuration(os.Getenv("CACHE_MAX_AGE")); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "VERBOSE")
	setBool(&cfg.LLMCacheOnly, "LLM_CACHE_ONLY")
	setBool(&cfg.CacheStrictPerms, "CACHE_STRICT_PERMS")
}
