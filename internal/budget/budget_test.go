package budget

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestEstimateTokensFromChars(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{4, 1},
		{5, 2},
		{400, 100},
	}
	for _, c := range cases {
		if got := EstimateTokensFromChars(c.in); got != c.want {
			t.Fatalf("EstimateTokensFromChars(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestModelContextTokensMatchesFamilyTags(t *testing.T) {
	if ModelContextTokens("") != 8192 {
		t.Fatal("empty model should default to 8192")
	}
	if got := ModelContextTokens("qwen2.5:7b-instruct"); got != 32_768 {
		t.Fatalf("qwen2.5 tag = %d", got)
	}
	if got := ModelContextTokens("some-model-128k"); got != 128_000 {
		t.Fatalf("suffix heuristic = %d", got)
	}
}

func TestRemainingContextNeverNegative(t *testing.T) {
	if got := RemainingContext("phi3", 10_000, 10_000); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestSourceCharBudgetCapsAtLimit(t *testing.T) {
	if got := SourceCharBudget("qwen2.5", "system prompt", 1024, 6000); got != 6000 {
		t.Fatalf("expected cap 6000, got %d", got)
	}
	small := SourceCharBudget("phi3", strings.Repeat("x", 8000), 1024, 6000)
	if small >= 6000 {
		t.Fatalf("small context should shrink the budget, got %d", small)
	}
}

func TestTruncate(t *testing.T) {
	if Truncate("short", 10) != "short" {
		t.Fatal("short input must be unchanged")
	}
	if Truncate("anything", 0) != "" {
		t.Fatal("zero budget yields empty string")
	}
	s := strings.Repeat("a", 90) + "\n\n" + strings.Repeat("b", 50)
	got := Truncate(s, 100)
	if got != strings.Repeat("a", 90) {
		t.Fatalf("expected cut at paragraph break, got %q", got)
	}
	mu := strings.Repeat("μ", 20)
	if got := Truncate(mu, 7); utf8.RuneCountInString(got) != 7 || !utf8.ValidString(got) {
		t.Fatalf("rune-safe truncation failed: %q", got)
	}
}
