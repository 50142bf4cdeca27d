package model

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClip(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "short", in: "abc", n: 5, want: "abc"},
		{name: "ascii cut", in: "abcdef", n: 3, want: "abc"},
		{name: "backs off split rune", in: "ab" + "é", n: 3, want: "ab"},
		{name: "keeps whole rune", in: "ab" + "é" + "c", n: 4, want: "abé"},
		{name: "four byte rune", in: "x" + "😀", n: 3, want: "x"},
		{name: "invalid bytes replaced", in: "a\xffb", n: 10, want: "a\uFFFDb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clip(tt.in, tt.n)
			if got != tt.want {
				t.Fatalf("Clip(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) || len(got) > tt.n {
				t.Fatalf("Clip result %q invalid or too long", got)
			}
		})
	}
}

func TestClip_RefererAtColumnLimit(t *testing.T) {
	ref := "https://e.com/" + strings.Repeat("a", 2033) + "é"
	got := Clip(ref, 2048)
	if !utf8.ValidString(got) || len(got) != 2047 {
		t.Fatalf("expected valid 2047 byte referer, got %d bytes valid=%v", len(got), utf8.ValidString(got))
	}
}
