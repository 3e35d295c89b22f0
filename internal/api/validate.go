package api

import (
	"strconv"
	"unicode"
	"unicode/utf8"

	"net/http"
)

// validName enforces spec §8's boundary rule: "Subscription name shorter
// than 5 characters, or containing punctuation, non-printable, or
// non-space whitespace → rejected."
func validName(name string) bool {
	if utf8.RuneCountInString(name) < 5 {
		return false
	}
	for _, r := range name {
		if unicode.IsPunct(r) {
			return false
		}
		if !unicode.IsPrint(r) {
			return false
		}
		if unicode.IsSpace(r) && r != ' ' {
			return false
		}
	}
	return true
}

func parseID(w http.ResponseWriter, s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(w, "invalid id: "+s)
		return 0, false
	}
	return id, true
}
