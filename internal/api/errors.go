package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hydraverse/hyvedb/internal/store"
)

// httpError maps a store/registry error onto a 4xx/5xx response: the
// uniqueness conflicts (ErrUniqueHandle, ErrUniqueName, ErrAlreadySubscribed)
// to 400, everything else to 500 with the error text. Not-found cases are
// not errors here; handlers answer them with notFound (404). Grounded on the teacher's
// http.Error(w, err.Error(), code) idiom (cmd/xchainserver, walletserver).
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUniqueHandle), errors.Is(err, store.ErrUniqueName), errors.Is(err, store.ErrAlreadySubscribed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func notFound(w http.ResponseWriter, what string) {
	http.Error(w, what+" not found", http.StatusNotFound)
}

func badRequest(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
