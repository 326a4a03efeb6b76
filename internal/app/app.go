// Package app wires the extraction pipeline: it reads papers, segments and
// normalizes them, gathers candidate records from agents or files, grades
// them against their evidence and writes per-paper artifacts.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/agents"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/cache"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/crosscheck"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/llm"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/store"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

// App holds the long-lived collaborators of a run.
type App struct {
	cfg      Config
	client   llm.Client
	cache    *cache.Store
	db       *store.DB
	verifier *verify.Verifier
	checker  *crosscheck.Checker
	now      func() time.Time

	slugMu sync.Mutex
	slugs  map[string]bool
}

// Option customizes New.
type Option func(*App)

// WithClient replaces the model client, e.g. with a fake in tests.
func WithClient(c llm.Client) Option { return func(a *App) { a.client = c } }

// New builds an App from a validated config. The model backend is checked
// once; an unreachable backend is logged, not fatal.
func New(ctx context.Context, cfg Config, opts ...Option) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{
		cfg:     cfg,
		checker: crosscheck.New(),
		now:     time.Now,
	}
	a.verifier = verify.NewWith(cfg.Units, !cfg.StrictUnits)
	for _, o := range opts {
		o(a)
	}

	if cfg.CacheDir != "" {
		a.cache = &cache.Store{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		if cfg.CacheClear {
			if err := a.cache.Clear(); err != nil {
				log.Warn().Err(err).Msg("cache clear failed")
			}
		}
		if n, err := a.cache.PurgeByAge(cfg.CacheMaxAge); err != nil {
			log.Warn().Err(err).Msg("cache purge failed")
		} else if n > 0 {
			log.Info().Int("removed", n).Msg("purged stale cache entries")
		}
	}

	if cfg.EnableAgents && a.client == nil && !cfg.LLMCacheOnly {
		p := llm.NewOpenAI(cfg.LLMBaseURL, cfg.LLMAPIKey, newLLMHTTPClient(cfg.LLMTimeout, cfg.Workers))
		a.client = p
		listModels(ctx, p)
	}

	if cfg.DBPath != "" {
		db, err := store.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.db = db
	}
	return a, nil
}

func listModels(ctx context.Context, l llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := l.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	log.Info().Int("count", len(models.Models)).Msg("LLM models available")
}

// Close releases the database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// Verifier returns the configured evidence verifier.
func (a *App) Verifier() *verify.Verifier { return a.verifier }

// Checker returns the cross-record checker.
func (a *App) Checker() *crosscheck.Checker { return a.checker }

// DB returns the run history store, or nil when none is configured.
func (a *App) DB() *store.DB { return a.db }

func (a *App) agent(kind record.Kind) *agents.Agent {
	ag := agents.New(a.client, a.cfg.LLMModel, kind, a.cache)
	ag.CacheOnly = a.cfg.LLMCacheOnly
	return ag
}

// reserveSlug returns an output directory name derived from base that no
// other paper of this App has used, adding "-2", "-3", ... on collision.
func (a *App) reserveSlug(base string) string {
	a.slugMu.Lock()
	defer a.slugMu.Unlock()
	if a.slugs == nil {
		a.slugs = map[string]bool{}
	}
	slug := base
	for n := 2; a.slugs[slug]; n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	a.slugs[slug] = true
	return slug
}

// BatchError lists the papers that failed in a batch.
type BatchError struct {
	Failed map[string]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d paper(s) failed: %v", len(e.Failed), e.Unwrap())
}

// Unwrap joins the per-paper errors so errors.Is sees through the batch.
func (e *BatchError) Unwrap() error {
	errs := make([]error, 0, len(e.Failed))
	for path, err := range e.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", path, err))
	}
	return errors.Join(errs...)
}

// RunBatch processes inputs with at most cfg.Workers papers in flight. A
// failing paper is logged and the batch continues; failures are returned
// together as a *BatchError. Summaries are in input order, with zero values
// for failed papers.
func (a *App) RunBatch(ctx context.Context, inputs []PaperInput) ([]Result, error) {
	workers := a.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(inputs))
	var mu sync.Mutex
	failed := map[string]error{}

	// Directories are reserved in input order so papers sharing a file stem
	// get stable, distinct names whatever the scheduling.
	inputs = append([]PaperInput(nil), inputs...)
	for i := range inputs {
		inputs[i].slug = a.reserveSlug(slugify(stem(inputs[i].Path)))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := a.ProcessPaper(gctx, in)
			if err != nil {
				log.Error().Err(err).Str("paper", in.Path).Msg("paper failed")
				mu.Lock()
				failed[in.Path] = err
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	if len(failed) > 0 {
		return results, &BatchError{Failed: failed}
	}
	return results, nil
}
