package token

import (
	"net/url"
	"testing"
)

func TestIssueShapeAndUniqueness(t *testing.T) {
	const n = 2000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		tok := Issue()
		if !WellFormed(tok) {
			t.Fatalf("Issue() = %q is not well formed", tok)
		}
		if url.QueryEscape(tok) != tok {
			t.Fatalf("Issue() = %q needs URL escaping", tok)
		}
		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d issues: %q", i, tok)
		}
		seen[tok] = struct{}{}
	}
}

func TestIssueUsesWholeAlphabet(t *testing.T) {
	counts := make(map[byte]int)
	for i := 0; i < 400; i++ {
		for _, c := range []byte(Issue()) {
			counts[c]++
		}
	}
	// 10 000 draws over 62 symbols; every symbol should appear.
	if len(counts) != len(alphabet) {
		t.Fatalf("saw %d distinct characters, want %d", len(counts), len(alphabet))
	}
}

func TestWellFormed(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"abcdefghijklmnopqrstuvwxy", true},
		{"ABCDEFGHIJKLMNOPQRSTUVWX0", true},
		{"", false},
		{"short", false},
		{"abcdefghijklmnopqrstuvwxyz", false},
		{"abcdefghijklmnopqrstuvwx-", false},
		{"abcdefghijklmnopqrstuvwx ", false},
		{"abcdefghijklmnopqrstuvwxé", false},
	}
	for _, c := range cases {
		if got := WellFormed(c.in); got != c.want {
			t.Errorf("WellFormed(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
