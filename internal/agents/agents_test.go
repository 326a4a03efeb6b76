package agents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/cache"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/paper"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
)

type fakeClient struct {
	reply string
	err   error
	calls int
	last  openai.ChatCompletionRequest
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: f.reply}}}}, nil
}

var fixture = sections.Map{
	sections.Introduction: "AZ31 sheets in O-temper with a thickness of 2 mm.",
	sections.Methods:      "Grain size was measured by line intercept.",
	sections.Results:      "The sheets show equi-axed grains of 15 μm.",
}

func TestExtractDecodesFencedReplyAndBackfills(t *testing.T) {
	fc := &fakeClient{reply: "```json\n{\"microstructures\": [{\"alloy\": \"AZ31\", \"avg_grain_size_um\": null, \"evidence\": {\"snippet\": \"equi-axed grains of 15 μm\"}}]}\n```"}
	a := New(fc, "qwen2.5:3b", record.Microstructure, nil)
	recs, err := a.Extract(context.Background(), Input{Sections: fixture})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	v, _ := recs[0].Get("avg_grain_size_um")
	if n, ok := v.Number(); !ok || n != 15 {
		t.Fatalf("expected back-filled 15, got %v", v)
	}
	if fc.last.Temperature != 0 || fc.last.ResponseFormat == nil {
		t.Fatalf("expected deterministic JSON request, got %+v", fc.last)
	}
	user := fc.last.Messages[1].Content
	if !strings.Contains(user, "15 μm") || !strings.Contains(user, "line intercept") {
		t.Fatalf("prompt should carry the methods and results sections")
	}
}

func TestExtractMechanicalIncludesTableRecords(t *testing.T) {
	raw := []byte(`[{"alloy":"AZ31","variant":"Sheet-RD","properties":{"TYS_MPa":170},"evidence":{"source":"Table 1","snippet":"TYS 170 MPa"}}]`)
	fc := &fakeClient{reply: string(raw)}
	res, err := tables.Normalize(tableFixture(), tables.MechanicalSchema)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	a := New(fc, "qwen2.5:3b", record.Mechanical, nil)
	recs, err := a.Extract(context.Background(), Input{Sections: fixture, Tables: res.Records})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if !strings.Contains(fc.last.Messages[1].Content, `"TYS_MPa": 170`) {
		t.Fatalf("table records missing from prompt:\n%s", fc.last.Messages[1].Content)
	}
}

func TestExtractUsesCache(t *testing.T) {
	store := &cache.Store{Dir: t.TempDir()}
	fc := &fakeClient{reply: `{"processing_routes": [{"material_form": "sheet", "thickness_mm": 2, "evidence": {"snippet": "2 mm"}}]}`}
	a := New(fc, "m", record.Processing, store)
	if _, err := a.Extract(context.Background(), Input{Sections: fixture}); err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if _, err := a.Extract(context.Background(), Input{Sections: fixture}); err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if fc.calls != 1 {
		t.Fatalf("expected one model call, got %d", fc.calls)
	}

	offline := &Agent{Model: "m", Kind: record.Processing, Cache: store, CacheOnly: true}
	if _, err := offline.Extract(context.Background(), Input{Sections: fixture}); err != nil {
		t.Fatalf("cache-only extract: %v", err)
	}
	other := sections.Map{sections.Introduction: "different text"}
	if _, err := offline.Extract(context.Background(), Input{Sections: other}); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestExtractSurfacesContractViolations(t *testing.T) {
	fc := &fakeClient{reply: `{"microstructures": [{"alloy": "AZ31", "avg_grain_size_um": 15}]}`}
	_, err := New(fc, "m", record.Microstructure, nil).Extract(context.Background(), Input{Sections: fixture})
	if !errors.Is(err, record.ErrMissingEvidence) {
		t.Fatalf("expected ErrMissingEvidence, got %v", err)
	}
}

func TestExtractErrors(t *testing.T) {
	if _, err := (&Agent{Kind: record.Processing}).Extract(context.Background(), Input{}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	boom := errors.New("boom")
	_, err := New(&fakeClient{err: boom}, "m", record.Processing, nil).Extract(context.Background(), Input{Sections: fixture})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped client error, got %v", err)
	}
	if _, err := New(&fakeClient{}, "m", record.Kind("thermal"), nil).Extract(context.Background(), Input{}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "micro.json")
	body := `{"microstructures": [{"alloy": "AZ31", "avg_grain_size_um": null, "evidence": {"snippet": "grains of 12 um"}}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	recs, err := LoadFile(path, record.Microstructure)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	v, _ := recs[0].Get("avg_grain_size_um")
	if n, ok := v.Number(); !ok || n != 12 {
		t.Fatalf("expected 12, got %v", v)
	}
}

func TestKindsCoverEveryTask(t *testing.T) {
	if len(Kinds()) != len(tasks) {
		t.Fatalf("kinds %v do not match tasks", Kinds())
	}
}

func tableFixture() paper.RawTable {
	return paper.RawTable{
		Index: 0,
		Page:  3,
		Rows: [][]string{
			{"Alloy", "Variant", "Grain size", "TYS", "CYS", "SD", "UTS", "Fracture strain"},
			{"AZ31", "Sheet-RD", "15", "170", "72", "2.36", "254", "22.2"},
		},
	}
}
