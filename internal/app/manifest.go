package app

import (
	"path/filepath"
	"time"
)

// manifestFile is one artifact with its digest.
type manifestFile struct {
	Name   string `json:"name"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// manifestCounts are the headline numbers of a run.
type manifestCounts struct {
	Sections     int            `json:"sections"`
	TableRecords int            `json:"table_records"`
	SkippedRows  int            `json:"skipped_rows"`
	Candidates   map[string]int `json:"candidates"`
	Confidence   map[string]int `json:"final_confidence"`
}

// manifest captures what a run read and wrote, for reproducibility.
type manifest struct {
	RunID        string         `json:"run_id"`
	Paper        string         `json:"paper"`
	InputSHA256  string         `json:"input_sha256"`
	TablesSHA256 string         `json:"tables_sha256,omitempty"`
	Model        string         `json:"model,omitempty"`
	LLMBaseURL   string         `json:"llm_base_url,omitempty"`
	LLMCache     bool           `json:"llm_cache"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
	Counts       manifestCounts `json:"counts"`
	Files        []manifestFile `json:"files"`
	Build        BuildInfo      `json:"build"`
}

// digestFiles hashes every artifact written so far.
func digestFiles(w *artifactWriter) ([]manifestFile, error) {
	out := make([]manifestFile, 0, len(w.files))
	for _, name := range w.files {
		sum, n, err := sha256File(filepath.Join(w.dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, manifestFile{Name: name, SHA256: sum, Bytes: n})
	}
	return out, nil
}
