package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/agents"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/evaluate"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/extract"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/report"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/store"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
)

// PaperInput names one paper and its optional side inputs.
type PaperInput struct {
	Path string
	// TablesPath is a tables JSON dump. When empty, "<stem>_tables.json"
	// next to the paper is used if present, then tables embedded in the
	// document itself.
	TablesPath string
	// RecordFiles supplies candidate records per kind instead of agents.
	RecordFiles map[record.Kind]string

	slug string
}

// Result is the outcome of one paper.
type Result struct {
	RunID   string
	Dir     string
	Summary report.Summary
}

// ProcessPaper runs the whole pipeline on one paper and writes its
// artifacts. Per-kind candidate failures are recorded in the summary and do
// not fail the paper; unreadable input does.
func (a *App) ProcessPaper(ctx context.Context, in PaperInput) (Result, error) {
	started := a.now()
	runID := uuid.NewString()
	logger := log.With().Str("paper", filepath.Base(in.Path)).Str("run", runID).Logger()

	data, err := os.ReadFile(in.Path)
	if err != nil {
		return Result{}, err
	}
	doc, err := extract.Parse(in.Path, data)
	if err != nil {
		return Result{}, err
	}
	secs := sections.SegmentDocument(doc)
	logger.Debug().Strs("sections", sectionNames(secs)).Msg("segmented")

	rawTables, tablesData, err := a.loadTables(in, data)
	if err != nil {
		return Result{}, err
	}
	tableRes, tableErr := normalizeTables(rawTables, tables.MechanicalSchema)
	if tableErr != nil {
		logger.Info().Err(tableErr).Int("tables", len(rawTables)).Msg("no table records")
	} else {
		logger.Debug().Int("records", len(tableRes.Records)).Int("skipped", tableRes.Skipped).Msg("table normalized")
	}

	slug := in.slug
	if slug == "" {
		slug = a.reserveSlug(slugify(stem(in.Path)))
	}
	w, err := newArtifactWriter(a.cfg.OutputDir, slug)
	if err != nil {
		return Result{}, err
	}
	if err := w.writeJSON(w.name("sections"), secs); err != nil {
		return Result{}, err
	}
	if err := w.writeJSON(w.name("tables"), nonNilTables(rawTables)); err != nil {
		return Result{}, err
	}
	if err := w.writeJSON(w.name("table_clean"), nonNilRecords(tableRes.Records)); err != nil {
		return Result{}, err
	}

	candidates := map[record.Kind][]record.Record{}
	failures := map[record.Kind]string{}
	for _, k := range a.cfg.KindsOrAll() {
		recs, ran, err := a.candidates(ctx, k, in, agents.Input{Sections: secs, Tables: tableRes.Records})
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			logger.Warn().Err(err).Str("kind", string(k)).Msg("candidate records failed")
			failures[k] = err.Error()
			continue
		}
		if !ran {
			continue
		}
		candidates[k] = recs
		if err := w.writeJSON(w.name(string(k)+"_records"), recs); err != nil {
			return Result{}, err
		}
	}

	evaluations := a.evaluateCandidates(candidates, failures)
	if err := w.writeJSON(w.name("evaluated"), evaluations); err != nil {
		return Result{}, err
	}

	summary := report.Summary{
		Paper:        doc.Source,
		RunID:        runID,
		Sections:     secs,
		TableRecords: len(tableRes.Records),
		SkippedRows:  tableRes.Skipped,
		Evaluations:  evaluations,
		Failures:     failures,
	}
	if tableErr != nil {
		summary.TableError = tableErr.Error()
	}
	if err := a.writeReports(w, summary); err != nil {
		return Result{}, err
	}

	finished := a.now()
	m := manifest{
		RunID:       runID,
		Paper:       doc.Source,
		InputSHA256: sha256Hex(data),
		LLMCache:    a.cache != nil,
		StartedAt:   started.UTC(),
		FinishedAt:  finished.UTC(),
		Counts: manifestCounts{
			Sections:     len(secs),
			TableRecords: len(tableRes.Records),
			SkippedRows:  tableRes.Skipped,
			Candidates:   map[string]int{},
			Confidence:   map[string]int{},
		},
		Build: CurrentBuild(),
	}
	if tablesData != nil {
		m.TablesSHA256 = sha256Hex(tablesData)
	}
	if a.cfg.EnableAgents {
		m.Model, m.LLMBaseURL = a.cfg.LLMModel, a.cfg.LLMBaseURL
	}
	for k, evs := range evaluations {
		m.Counts.Candidates[string(k)] = len(evs)
		for c, n := range evaluate.Counts(evs) {
			m.Counts.Confidence[string(c)] += n
		}
	}
	if m.Files, err = digestFiles(w); err != nil {
		return Result{}, err
	}
	if err := w.writeJSON("manifest.json", m); err != nil {
		return Result{}, err
	}

	if a.db != nil {
		run := store.Run{
			ID:           runID,
			Paper:        doc.Source,
			StartedAt:    started,
			FinishedAt:   finished,
			Sections:     secs,
			TableRecords: tableRes.Records,
			Evaluations:  map[string][]evaluate.Evaluated{},
		}
		for k, evs := range evaluations {
			run.Evaluations[string(k)] = evs
		}
		if err := a.db.SaveRun(ctx, run); err != nil {
			return Result{}, fmt.Errorf("save run: %w", err)
		}
	}

	logger.Info().Int("sections", len(secs)).Int("table_records", len(tableRes.Records)).
		Int("kinds", len(evaluations)).Int("failures", len(failures)).Str("dir", w.dir).Msg("paper done")
	return Result{RunID: runID, Dir: w.dir, Summary: summary}, nil
}

// loadTables returns the raw tables for a paper and the bytes they were read
// from, if they came from a separate file.
func (a *App) loadTables(in PaperInput, doc []byte) ([]paper.RawTable, []byte, error) {
	path := in.TablesPath
	if path == "" {
		sibling := filepath.Join(filepath.Dir(in.Path), stem(in.Path)+"_tables.json")
		if _, err := os.Stat(sibling); err == nil && sibling != in.Path {
			path = sibling
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		ts, err := extract.ParseTables(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		return ts, data, nil
	}
	ts, err := extract.EmbeddedTables(in.Path, doc)
	if err != nil {
		return nil, nil, err
	}
	return ts, nil, nil
}

// normalizeTables normalizes the first table whose header matches s.
func normalizeTables(raw []paper.RawTable, s tables.Schema) (tables.Result, error) {
	if len(raw) == 0 {
		return tables.Result{}, errors.New("no tables")
	}
	t, ok := tables.Find(raw, s)
	if !ok {
		return tables.Result{}, fmt.Errorf("%w: no table matches the %s header", tables.ErrTableShape, s.Name)
	}
	return tables.Normalize(t, s)
}

// candidates returns the records of one kind from a file or an agent. ran is
// false when neither source is configured for the kind.
func (a *App) candidates(ctx context.Context, k record.Kind, in PaperInput, ai agents.Input) ([]record.Record, bool, error) {
	if path := in.RecordFiles[k]; path != "" {
		recs, err := agents.LoadFile(path, k)
		return recs, true, err
	}
	if !a.cfg.EnableAgents {
		return nil, false, nil
	}
	recs, err := a.agent(k).Extract(ctx, ai)
	return recs, true, err
}

// evaluateCandidates grades every kind. Microstructure records are also
// checked against the processing routes of the same paper.
func (a *App) evaluateCandidates(candidates map[record.Kind][]record.Record, failures map[record.Kind]string) map[record.Kind][]evaluate.Evaluated {
	out := map[record.Kind][]evaluate.Evaluated{}
	for k, recs := range candidates {
		var evs []evaluate.Evaluated
		var err error
		if k == record.Microstructure {
			evs, err = evaluate.Evaluate(a.verifier, a.checker, recs, candidates[record.Processing])
		} else {
			evs, err = evaluate.EvaluateAll(a.verifier, recs)
		}
		if err != nil {
			failures[k] = err.Error()
			continue
		}
		out[k] = evs
	}
	return out
}

func (a *App) writeReports(w *artifactWriter, s report.Summary) error {
	md := report.Markdown(s)
	if err := w.writeFile("report.md", []byte(md)); err != nil {
		return err
	}
	if a.cfg.EnableHTML {
		html, err := report.HTML(md)
		if err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		if err := w.writeFile("report.html", html); err != nil {
			return err
		}
	}
	if a.cfg.EnablePDF {
		if err := report.WritePDF(md, w.path("report.pdf")); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
		w.files = append(w.files, "report.pdf")
	}
	return nil
}

func sectionNames(m sections.Map) []string {
	out := make([]string, 0, len(m))
	for _, n := range m.Names() {
		out = append(out, string(n))
	}
	return out
}

func nonNilTables(ts []paper.RawTable) []paper.RawTable {
	if ts == nil {
		return []paper.RawTable{}
	}
	return ts
}

func nonNilRecords(rs []tables.Record) []tables.Record {
	if rs == nil {
		return []tables.Record{}
	}
	return rs
}
