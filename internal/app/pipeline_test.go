package app

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/agents"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/verify"
)

const paperText = `Texture and twinning in extruded AZ31
A. Author

Abstract
AZ31 extruded profiles were tested in tension.

1 Introduction
Extruded profiles in O-temper with a thickness of 2 mm were supplied.

2 Materials and Methods
Grain size was measured by line intercept.

3 Results
The profiles show equi-axed grains of 15 μm and a TYS of 170 MPa.

References
[1] Someone, 2010.
`

const tablesJSON = `[
  {"table_index": 0, "page": "3", "rows": [
    ["Table 1"],
    ["Alloy", "Variant", "Av. grain size", "TYS", "CYS", "SD", "UTS", "Fracture strain"],
    ["AZ31", "ED", "15", "170", "95", "1.8", "260", "18"],
    ["", "TD", "15", "160", "", "1.7", "255", "20"],
    ["short row"]
  ]}
]`

const microJSON = `{"microstructures": [
  {"alloy": "AZ31", "material_form": "extruded profile", "grain_morphology": "equi-axed",
   "avg_grain_size_um": 15, "evidence": {"snippet": "equi-axed grains of 15 μm"}}
]}`

const routesJSON = `{"processing_routes": [
  {"alloy": "AZ31", "material_form": "extruded profile", "condition": "O-temper",
   "thickness_mm": 2, "evidence": {"snippet": "O-temper with a thickness of 2 mm"}}
]}`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func newTestApp(t *testing.T, cfg Config, opts ...Option) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestProcessPaperWithRecordFiles(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	paperPath := writeFixture(t, in, "AZ31 Extrusion.txt", paperText)
	writeFixture(t, in, "AZ31 Extrusion_tables.json", tablesJSON)
	micro := writeFixture(t, in, "micro.json", microJSON)
	routes := writeFixture(t, in, "routes.json", routesJSON)

	a := newTestApp(t, Config{
		OutputDir:  out,
		DBPath:     filepath.Join(out, "runs.db"),
		EnableHTML: true,
		Workers:    1,
		Units:      []string{"µm", "MPa", "%", "mm"},
	})
	res, err := a.ProcessPaper(context.Background(), PaperInput{
		Path: paperPath,
		RecordFiles: map[record.Kind]string{
			record.Microstructure: micro,
			record.Processing:     routes,
		},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Dir != filepath.Join(out, "az31-extrusion") {
		t.Fatalf("unexpected dir %q", res.Dir)
	}

	s := res.Summary
	if s.Paper != "AZ31 Extrusion.txt" {
		t.Fatalf("paper name %q", s.Paper)
	}
	for _, n := range []sections.Name{sections.Abstract, sections.Introduction, sections.Methods, sections.Results, sections.References} {
		if _, ok := s.Sections[n]; !ok {
			t.Fatalf("missing section %q in %v", n, s.Sections.Names())
		}
	}
	if s.TableRecords != 2 || s.SkippedRows != 1 || s.TableError != "" {
		t.Fatalf("table outcome: records=%d skipped=%d err=%q", s.TableRecords, s.SkippedRows, s.TableError)
	}
	if len(s.Failures) != 0 {
		t.Fatalf("unexpected failures: %v", s.Failures)
	}

	micros := s.Evaluations[record.Microstructure]
	if len(micros) != 1 {
		t.Fatalf("expected 1 microstructure evaluation, got %d", len(micros))
	}
	m := micros[0]
	if m.Validation.Checks["avg_grain_size_um"] != verify.Verified || m.Validation.Confidence != verify.High {
		t.Fatalf("unexpected validation: %+v", m.Validation)
	}
	if len(m.CrossAgentIssues) != 1 || m.FinalConfidence != verify.Medium {
		t.Fatalf("extruded equi-axed record should be downgraded: %+v", m)
	}
	routesEv := s.Evaluations[record.Processing]
	if len(routesEv) != 1 || routesEv[0].FinalConfidence != verify.High {
		t.Fatalf("unexpected route evaluation: %+v", routesEv)
	}
	if _, ok := s.Evaluations[record.Mechanical]; ok {
		t.Fatalf("kinds without a source must not be evaluated")
	}

	for _, name := range []string{
		"az31-extrusion_sections.json",
		"az31-extrusion_tables.json",
		"az31-extrusion_table_clean.json",
		"az31-extrusion_microstructure_records.json",
		"az31-extrusion_processing_records.json",
		"az31-extrusion_evaluated.json",
		"report.md",
		"report.html",
		"manifest.json",
	} {
		if _, err := os.Stat(filepath.Join(res.Dir, name)); err != nil {
			t.Fatalf("missing artifact %s: %v", name, err)
		}
	}

	var clean []map[string]any
	b, err := os.ReadFile(filepath.Join(res.Dir, "az31-extrusion_table_clean.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &clean); err != nil {
		t.Fatalf("table_clean json: %v", err)
	}
	if len(clean) != 2 || clean[1]["alloy"] != "AZ31" || clean[1]["variant"] != "TD" || clean[1]["CYS_MPa"] != nil {
		t.Fatalf("unexpected clean table: %v", clean)
	}

	var man manifest
	b, err = os.ReadFile(filepath.Join(res.Dir, "manifest.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(b, &man); err != nil {
		t.Fatalf("manifest json: %v", err)
	}
	if man.RunID != res.RunID || man.InputSHA256 == "" || man.TablesSHA256 == "" {
		t.Fatalf("manifest ids/digests: %+v", man)
	}
	if man.Counts.Candidates["microstructure"] != 1 || man.Counts.Confidence["medium"] != 1 || man.Counts.Confidence["high"] != 1 {
		t.Fatalf("manifest counts: %+v", man.Counts)
	}
	if len(man.Files) != 8 {
		t.Fatalf("expected 8 digested files, got %d", len(man.Files))
	}

	runs, err := a.DB().ListRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != res.RunID || runs[0].Records != 2 || runs[0].Evaluations != 2 {
		t.Fatalf("unexpected stored runs: %+v", runs)
	}
}

func TestProcessPaperRecordsPerKindFailure(t *testing.T) {
	in := t.TempDir()
	paperPath := writeFixture(t, in, "p.txt", paperText)
	bad := writeFixture(t, in, "bad.json", `[{"alloy": "AZ31", "avg_grain_size_um": 15}]`)

	a := newTestApp(t, Config{OutputDir: t.TempDir()})
	res, err := a.ProcessPaper(context.Background(), PaperInput{
		Path:        paperPath,
		RecordFiles: map[record.Kind]string{record.Microstructure: bad},
	})
	if err != nil {
		t.Fatalf("a bad record file must not fail the paper: %v", err)
	}
	if res.Summary.Failures[record.Microstructure] == "" {
		t.Fatalf("expected a recorded failure, got %v", res.Summary.Failures)
	}
	if res.Summary.TableError == "" {
		t.Fatalf("text paper without tables should report a table error")
	}
}

func TestRunBatchCollectsFailures(t *testing.T) {
	in := t.TempDir()
	good := writeFixture(t, in, "good.txt", paperText)
	missing := filepath.Join(in, "missing.txt")

	a := newTestApp(t, Config{OutputDir: t.TempDir(), Workers: 2})
	results, err := a.RunBatch(context.Background(), []PaperInput{{Path: good}, {Path: missing}})
	var be *BatchError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BatchError, got %v", err)
	}
	if len(be.Failed) != 1 || be.Failed[missing] == nil {
		t.Fatalf("unexpected failures: %v", be.Failed)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("batch error should unwrap to the cause: %v", err)
	}
	if len(results) != 2 || results[0].RunID == "" || results[1].RunID != "" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRunBatchSeparatesPapersWithSameStem(t *testing.T) {
	in := t.TempDir()
	for _, d := range []string{"a", "b"} {
		if err := os.MkdirAll(filepath.Join(in, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	first := writeFixture(t, filepath.Join(in, "a"), "paper.txt", "Abstract\nFIRST PAPER body.\n")
	second := writeFixture(t, filepath.Join(in, "b"), "paper.txt", "Abstract\nSECOND PAPER body.\n")
	out := t.TempDir()

	a := newTestApp(t, Config{OutputDir: out, Workers: 2})
	inputs := []PaperInput{{Path: first}, {Path: second}}
	results, err := a.RunBatch(context.Background(), inputs)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if results[0].Dir != filepath.Join(out, "paper") || results[1].Dir != filepath.Join(out, "paper-2") {
		t.Fatalf("unexpected dirs %q and %q", results[0].Dir, results[1].Dir)
	}
	for i, want := range []string{"FIRST PAPER body.", "SECOND PAPER body."} {
		b, err := os.ReadFile(filepath.Join(results[i].Dir, filepath.Base(results[i].Dir)+"_sections.json"))
		if err != nil {
			t.Fatal(err)
		}
		var m map[string]string
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatal(err)
		}
		if m["abstract"] != want {
			t.Fatalf("paper %d sections: %v", i, m)
		}
	}
	if inputs[0].slug != "" {
		t.Fatalf("RunBatch must not modify the caller's inputs")
	}

	// A later paper of the same App keeps clear of both.
	res, err := a.ProcessPaper(context.Background(), PaperInput{Path: first})
	if err != nil {
		t.Fatal(err)
	}
	if res.Dir != filepath.Join(out, "paper-3") {
		t.Fatalf("unexpected dir %q", res.Dir)
	}
}

type fakeClient struct {
	reply string
	calls atomic.Int32
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls.Add(1)
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}}}, nil
}

func TestProcessPaperWithAgents(t *testing.T) {
	in := t.TempDir()
	paperPath := writeFixture(t, in, "p.txt", paperText)
	writeFixture(t, in, "p_tables.json", tablesJSON)
	fc := &fakeClient{reply: "```json\n[{\"alloy\": \"AZ31\", \"evidence\": {\"snippet\": \"TYS of 170 MPa\"}}]\n```"}

	cfg := Config{
		OutputDir:    t.TempDir(),
		EnableAgents: true,
		LLMModel:     "qwen2.5:3b",
		CacheDir:     filepath.Join(t.TempDir(), "cache"),
		CacheMaxAge:  time.Hour,
	}
	a := newTestApp(t, cfg, WithClient(fc))
	res, err := a.ProcessPaper(context.Background(), PaperInput{Path: paperPath})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if got := int(fc.calls.Load()); got != len(agents.Kinds()) {
		t.Fatalf("expected one call per kind, got %d", got)
	}
	for _, k := range record.Kinds() {
		if len(res.Summary.Evaluations[k]) != 1 {
			t.Fatalf("kind %s: expected 1 evaluation, got %v (failures %v)", k, res.Summary.Evaluations[k], res.Summary.Failures)
		}
	}

	// A cache-only rerun is served from the replies cached above.
	cfg.LLMCacheOnly = true
	b := newTestApp(t, cfg)
	if _, err := b.ProcessPaper(context.Background(), PaperInput{Path: paperPath}); err != nil {
		t.Fatalf("cache-only rerun: %v", err)
	}
	if got := int(fc.calls.Load()); got != len(agents.Kinds()) {
		t.Fatalf("cache-only rerun must not call the model, calls=%d", got)
	}
}
