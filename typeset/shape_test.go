package typeset

import (
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"hello world", []string{"hello", " ", "world"}},
		{"  a", []string{"  ", "a"}},
		{"a\tb", []string{"a", "\t", "b"}},
		{"one", []string{"one"}},
		{"", nil},
		// Hard newlines are span-level in this model; stray ones vanish.
		{"a\nb", []string{"ab"}},
		{"a\r\nb", []string{"ab"}},
	}
	for _, tc := range cases {
		got := tokenize(tc.in)
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Errorf("tokenize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenizeAlternatesRuns(t *testing.T) {
	got := tokenize("a  b   c")
	want := []string{"a", "  ", "b", "   ", "c"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("tokenize = %q, want %q", got, want)
	}
	// Round trip: concatenation restores the input.
	if strings.Join(got, "") != "a  b   c" {
		t.Fatal("tokenize lost characters")
	}
}
