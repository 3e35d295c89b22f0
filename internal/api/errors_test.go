package api

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/hydraverse/hyvedb/internal/store"
)

func TestHttpErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{store.ErrUniqueHandle, 400},
		{store.ErrUniqueName, 400},
		{store.ErrAlreadySubscribed, 400},
		{errors.New("boom"), 500},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		httpError(w, c.err)
		if w.Code != c.code {
			t.Errorf("httpError(%v) = %d, want %d", c.err, w.Code, c.code)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	writeJSON(w, map[string]int{"a": 1})
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if w.Body.String() != "{\"a\":1}\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}
