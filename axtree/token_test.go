package axtree

import (
	"errors"
	"testing"
)

func TestParseRef_Valid(t *testing.T) {
	cases := []struct {
		token string
		want  ref
	}{
		{"s1e1", ref{frame: 0, gen: 1, elem: 1}},
		{"s12e340", ref{frame: 0, gen: 12, elem: 340}},
		{"f1s1e1", ref{frame: 1, gen: 1, elem: 1}},
		{"f17s3e9", ref{frame: 17, gen: 3, elem: 9}},
	}
	for _, c := range cases {
		got, err := parseRef(c.token)
		if err != nil {
			t.Errorf("parseRef(%q): %v", c.token, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseRef(%q): got %+v, want %+v", c.token, got, c.want)
		}
		if got.String() != c.token {
			t.Errorf("roundtrip %q: got %q", c.token, got.String())
		}
	}
}

func TestParseRef_Malformed(t *testing.T) {
	bad := []string{
		"", "e1", "s1", "s1e", "se1", "fs1e2", "f0s1e2",
		"s1e2x", "xs1e2", "f2e3", "s-1e2", "S1E2", "f2s3",
	}
	for _, token := range bad {
		_, err := parseRef(token)
		if !errors.Is(err, ErrMalformedToken) {
			t.Errorf("parseRef(%q): got %v, want ErrMalformedToken", token, err)
		}
	}
}
