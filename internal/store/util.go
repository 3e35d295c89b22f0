package store

import "time"

// nullableTime turns a zero time.Time into a nil driver argument so it
// lands as SQL NULL, matching the subscription's block_t column before
// the address has ever been mined (spec §3 UserAddr).
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
