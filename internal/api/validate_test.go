package api

import (
	"net/http/httptest"
	"testing"
)

func TestValidName(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"wallet one", true},
		{"abcde", true},
		{"abcd", false},          // too short
		{"wall-et", false},       // punctuation
		{"wall\tet", false},      // non-space whitespace
		{"", false},
	}
	for _, c := range cases {
		if got := validName(c.name); got != c.ok {
			t.Errorf("validName(%q) = %v, want %v", c.name, got, c.ok)
		}
	}
}

func TestParseID(t *testing.T) {
	w := httptest.NewRecorder()
	if id, ok := parseID(w, "42"); !ok || id != 42 {
		t.Fatalf("parseID(42) = (%d, %v), want (42, true)", id, ok)
	}

	w = httptest.NewRecorder()
	if _, ok := parseID(w, "not-a-number"); ok {
		t.Fatalf("parseID(not-a-number) unexpectedly ok")
	}
	if w.Code != 400 {
		t.Errorf("parseID bad input: status = %d, want 400", w.Code)
	}
}
