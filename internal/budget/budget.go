// Package budget sizes agent prompts to the model's context window.
package budget

import (
	"math"
	"strings"
	"unicode/utf8"
)

// EstimateTokensFromChars converts a character count into an estimated token
// count using ~4 characters per token, rounded up.
func EstimateTokensFromChars(charCount int) int {
	if charCount <= 0 {
		return 0
	}
	return int(math.Ceil(float64(charCount) / 4.0))
}

// EstimateTokens returns the estimated token count of a string.
func EstimateTokens(s string) int {
	return EstimateTokensFromChars(utf8.RuneCountInString(s))
}

// ModelContextTokens returns the context window of a model. Local tags such
// as "qwen2.5:7b" are matched by family. Unknown models get 8192.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return 8192
	}
	if v, ok := knownModelMax[name]; ok {
		return v
	}
	family, _, _ := strings.Cut(name, ":")
	if v, ok := knownModelMax[family]; ok {
		return v
	}
	switch {
	case strings.HasSuffix(name, "128k"):
		return 128_000
	case strings.HasSuffix(name, "32k"):
		return 32_768
	}
	return 8192
}

// HeadroomTokens is the larger of 5% of the model context and 512 tokens.
// It absorbs tokenizer and message framing overheads.
func HeadroomTokens(modelName string) int {
	dyn := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if dyn < 512 {
		return 512
	}
	return dyn
}

// RemainingContext returns the input tokens left after the prompt, the
// output reservation and headroom. It is never negative.
func RemainingContext(modelName string, reservedForOutput int, promptTokens int) int {
	if reservedForOutput < 0 {
		reservedForOutput = 0
	}
	remaining := ModelContextTokens(modelName) - reservedForOutput - HeadroomTokens(modelName) - promptTokens
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SourceCharBudget returns how many characters of paper text fit next to the
// system prompt, capped at limit when limit is positive.
func SourceCharBudget(modelName, system string, reservedForOutput, limit int) int {
	chars := RemainingContext(modelName, reservedForOutput, EstimateTokens(system)) * 4
	if limit > 0 && chars > limit {
		return limit
	}
	return chars
}

// Truncate shortens s to at most maxChars runes. It prefers to cut at the
// last paragraph or line break in the final quarter of the window.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	cut := len(s)
	n := 0
	for i := range s {
		if n == maxChars {
			cut = i
			break
		}
		n++
	}
	head := s[:cut]
	floor := len(head) * 3 / 4
	for _, sep := range []string{"\n\n", "\n"} {
		if i := strings.LastIndex(head, sep); i >= floor && i > 0 {
			return strings.TrimRight(head[:i], " \n")
		}
	}
	return head
}

var knownModelMax = map[string]int{
	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-3.5-turbo": 16_384,
	"qwen2.5":       32_768,
	"qwen2":         32_768,
	"qwen":          8192,
	"llama3":        8192,
	"llama3.1":      128_000,
	"mistral":       32_768,
	"phi3":          4096,
}
