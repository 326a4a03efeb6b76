package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/app"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
)

type runOptions struct {
	cfg        app.Config
	kinds      string
	tablesPath string
	records    []string
}

func newRunCmd(g *globalOptions) *cobra.Command {
	return newRunCmdWith(g, &runOptions{})
}

func newRunCmdWith(g *globalOptions, o *runOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Run the full pipeline on papers or directories of papers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd, g)
			if err != nil {
				return err
			}
			inputs, err := o.inputs(args)
			if err != nil {
				return err
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer a.Close()

			results, err := a.RunBatch(cmd.Context(), inputs)
			for _, r := range results {
				if r.RunID != "" {
					fmt.Fprintln(cmd.OutOrStdout(), r.Dir)
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.cfg.OutputDir, "out", "o", app.DefaultOutputDir, "Output root; each paper gets <out>/<slug>/")
	f.StringVar(&o.cfg.DBPath, "db", "", "SQLite run history database (empty disables)")
	f.BoolVar(&o.cfg.EnableHTML, "html", false, "Also render report.html")
	f.BoolVar(&o.cfg.EnablePDF, "pdf", false, "Also render report.pdf")
	f.StringVar(&o.cfg.LLMBaseURL, "llm.base", "", "OpenAI-compatible base URL")
	f.StringVar(&o.cfg.LLMModel, "llm.model", "", "Model name")
	f.StringVar(&o.cfg.LLMAPIKey, "llm.key", "", "API key for the OpenAI-compatible server")
	f.DurationVar(&o.cfg.LLMTimeout, "llm.timeout", 0, "Per-request model timeout (0 uses the default)")
	f.BoolVar(&o.cfg.LLMCacheOnly, "llm.cacheOnly", false, "Serve agent replies from the cache only")
	f.BoolVar(&o.cfg.EnableAgents, "agents", false, "Ask the model for candidate records")
	f.StringVar(&o.kinds, "kinds", "", "Comma-separated record kinds to produce (default all)")
	f.StringSliceVar(&o.cfg.Units, "units", nil, "Unit tokens a number must carry to verify (default μm,MPa,%)")
	f.BoolVar(&o.cfg.StrictUnits, "strict-units", false, "Do not accept '± x' between a number and its unit")
	f.IntVarP(&o.cfg.Workers, "workers", "j", app.DefaultWorkers, "Papers processed in parallel")
	f.StringVar(&o.cfg.CacheDir, "cache.dir", app.DefaultCacheDir, "Agent reply cache directory")
	f.DurationVar(&o.cfg.CacheMaxAge, "cache.maxAge", 0, "Purge cache entries older than this (0 disables)")
	f.BoolVar(&o.cfg.CacheClear, "cache.clear", false, "Clear the cache before the run")
	f.BoolVar(&o.cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	f.StringVar(&o.tablesPath, "tables", "", "Tables JSON for a single paper (default <stem>_tables.json)")
	f.StringArrayVar(&o.records, "records", nil, "Candidate records for a single paper as kind=path (repeatable)")
	return cmd
}

// config layers flags over the config file and environment.
func (o *runOptions) config(cmd *cobra.Command, g *globalOptions) (app.Config, error) {
	cfg := o.cfg
	cfg.Verbose = g.verbose
	if o.kinds != "" {
		ks, err := app.ParseKinds(o.kinds)
		if err != nil {
			return cfg, err
		}
		cfg.Kinds = ks
	}
	if err := app.ApplyFileConfig(&cfg, g.file); err != nil {
		return cfg, err
	}
	app.ApplyEnvToConfig(&cfg)
	// Flags given on the command line win even when they repeat a default,
	// which the file and env layers cannot tell apart from an unset flag.
	explicit := map[string]func(){
		"out":       func() { cfg.OutputDir = o.cfg.OutputDir },
		"workers":   func() { cfg.Workers = o.cfg.Workers },
		"cache.dir": func() { cfg.CacheDir = o.cfg.CacheDir },
		"agents":    func() { cfg.EnableAgents = o.cfg.EnableAgents },
	}
	for name, restore := range explicit {
		if cmd.Flags().Changed(name) {
			restore()
		}
	}
	if cfg.LLMTimeout == 0 {
		cfg.LLMTimeout = 5 * time.Minute
	}
	return cfg, app.ValidateConfig(cfg)
}

func (o *runOptions) inputs(args []string) ([]app.PaperInput, error) {
	paths, err := collectPapers(args)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no papers found in %s", strings.Join(args, ", "))
	}
	if (o.tablesPath != "" || len(o.records) > 0) && len(paths) != 1 {
		return nil, fmt.Errorf("--tables and --records need exactly one paper, got %d", len(paths))
	}
	files, err := parseRecordFlags(o.records)
	if err != nil {
		return nil, err
	}
	out := make([]app.PaperInput, 0, len(paths))
	for _, p := range paths {
		out = append(out, app.PaperInput{Path: p, TablesPath: o.tablesPath, RecordFiles: files})
	}
	return out, nil
}

// parseRecordFlags parses "kind=path" pairs.
func parseRecordFlags(vals []string) (map[record.Kind]string, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	out := make(map[record.Kind]string, len(vals))
	for _, v := range vals {
		name, path, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("--records %q: want kind=path", v)
		}
		k, ok := record.ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("--records %q: unknown record kind %q", v, name)
		}
		out[k] = strings.TrimSpace(path)
	}
	return out, nil
}

var paperExts = map[string]bool{
	".txt": true, ".text": true, ".md": true,
	".html": true, ".htm": true, ".xhtml": true,
	".json": true,
}

// collectPapers expands directories one level deep into the paper files
// they hold. Side inputs such as "<stem>_tables.json" are not papers.
func collectPapers(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, ".") || !paperExts[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			if strings.HasSuffix(name, "_tables.json") || strings.HasSuffix(name, "_records.json") {
				continue
			}
			out = append(out, filepath.Join(arg, name))
		}
	}
	return out, nil
}
