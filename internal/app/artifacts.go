package app

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a file stem into a directory-safe name.
func slugify(s string) string {
	s = slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "paper"
	}
	return s
}

// stem is the file name without directory or extension.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// artifactWriter writes the files of one paper under dir and remembers their
// names for the manifest.
type artifactWriter struct {
	dir   string
	slug  string
	files []string
}

func newArtifactWriter(root, slug string) (*artifactWriter, error) {
	dir := filepath.Join(root, slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir artifacts dir: %w", err)
	}
	return &artifactWriter{dir: dir, slug: slug}, nil
}

// name returns "<slug>_<suffix>.json".
func (w *artifactWriter) name(suffix string) string {
	return w.slug + "_" + suffix + ".json"
}

func (w *artifactWriter) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return w.writeFile(name, append(b, '\n'))
}

func (w *artifactWriter) writeFile(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(w.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	w.files = append(w.files, name)
	return nil
}

func (w *artifactWriter) path(name string) string {
	return filepath.Join(w.dir, name)
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func sha256File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
