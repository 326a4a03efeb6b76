// Package agents asks a chat model for candidate records of one kind and
// decodes the reply under the record contract. Agents are untrusted
// producers: everything they return is verified downstream.
package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/amaljoshmaadhavj/MatExtractAI/internal/budget"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/cache"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/llm"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/record"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/sections"
	"github.com/amaljoshmaadhavj/MatExtractAI/internal/tables"
)

// ErrNotConfigured is returned when an agent has no client or model.
var ErrNotConfigured = errors.New("agent not configured")

// ErrCacheMiss is returned in cache-only mode when no reply is cached.
var ErrCacheMiss = errors.New("agent cache-only: not found")

// reservedOutputTokens is kept free in the context window for the reply.
const reservedOutputTokens = 2048

// Input is what an agent reads from one paper.
type Input struct {
	Sections sections.Map
	// Tables are normalized table records, used by the mechanical agent as
	// ground truth.
	Tables []tables.Record
}

// Agent extracts candidate records of one Kind.
type Agent struct {
	Client llm.Client
	Model  string
	Kind   record.Kind
	Cache  *cache.Store
	// CacheOnly returns cached replies and fails fast on a miss.
	CacheOnly bool
}

// New returns an agent for kind.
func New(c llm.Client, model string, kind record.Kind, store *cache.Store) *Agent {
	return &Agent{Client: c, Model: model, Kind: kind, Cache: store}
}

// Extract prompts the model and returns the decoded records. Null numeric
// fields that allow it are back-filled from each record's own snippet.
func (a *Agent) Extract(ctx context.Context, in Input) ([]record.Record, error) {
	t, ok := tasks[a.Kind]
	schema, sok := record.SchemaFor(a.Kind)
	if !ok || !sok {
		return nil, fmt.Errorf("unknown record kind %q", a.Kind)
	}
	if a.Client == nil || strings.TrimSpace(a.Model) == "" {
		if !a.CacheOnly || a.Cache == nil {
			return nil, ErrNotConfigured
		}
	}

	user, err := buildUserPrompt(t, a.Model, in)
	if err != nil {
		return nil, err
	}
	key := cache.KeyFrom(a.Model, t.system+"\n\n"+user)

	raw, cached := a.cached(ctx, key)
	if !cached {
		if a.CacheOnly {
			return nil, ErrCacheMiss
		}
		log.Debug().Str("stage", "agent").Str("kind", string(a.Kind)).Str("model", a.Model).Int("user_len", len(user)).Msg("agent prompt")
		resp, err := a.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: a.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: t.system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			Temperature:    0,
			N:              1,
			ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		})
		if err != nil {
			return nil, fmt.Errorf("%s agent call: %w", a.Kind, err)
		}
		content, err := llm.FirstContent(resp)
		if err != nil {
			return nil, fmt.Errorf("%s agent: %w", a.Kind, err)
		}
		raw = []byte(llm.StripCodeFences(content))
	}

	recs, err := record.DecodeList(raw, schema)
	if err != nil {
		return nil, fmt.Errorf("%s agent reply: %w", a.Kind, err)
	}
	for i := range recs {
		if filled := recs[i].Backfill(schema); len(filled) > 0 {
			log.Debug().Str("kind", string(a.Kind)).Int("record", i).Strs("fields", filled).Msg("back-filled from evidence")
		}
	}
	if !cached && a.Cache != nil {
		_ = a.Cache.Save(ctx, key, raw)
	}
	return recs, nil
}

func (a *Agent) cached(ctx context.Context, key string) ([]byte, bool) {
	if a.Cache == nil {
		return nil, false
	}
	raw, ok, err := a.Cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	return raw, true
}

func buildUserPrompt(t task, model string, in Input) (string, error) {
	var sb strings.Builder
	sb.WriteString(t.body)
	if t.tables {
		tb, err := json.MarshalIndent(in.Tables, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode table records: %w", err)
		}
		if in.Tables == nil {
			tb = []byte("[]")
		}
		sb.WriteString("\n\nTable records:\n")
		sb.Write(tb)
		sb.WriteString("\n\nResults text (for evidence):\n")
	} else {
		sb.WriteString("\n\nPaper text:\n")
	}
	limit := budget.SourceCharBudget(model, t.system+sb.String(), reservedOutputTokens, t.maxChars)
	sb.WriteString(budget.Truncate(in.Sections.Text(t.sections...), limit))
	return sb.String(), nil
}

// LoadFile reads candidate records of kind from a JSON file, either a bare
// array or an object wrapping it under the kind's list key. Records are
// back-filled exactly as agent replies are.
func LoadFile(path string, kind record.Kind) ([]record.Record, error) {
	schema, ok := record.SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown record kind %q", kind)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	recs, err := record.DecodeList(data, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range recs {
		recs[i].Backfill(schema)
	}
	return recs, nil
}

// Kinds returns the record kinds agents exist for, in pipeline order.
func Kinds() []record.Kind {
	out := make([]record.Kind, 0, len(tasks))
	for _, k := range record.Kinds() {
		if _, ok := tasks[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
