package addr

import (
	"context"
	"fmt"
	"strings"
)

// ErrBadAddressLength is returned for input that is neither the 34-char
// base-36 form nor the 40-char hex form (spec §8 boundary behaviour).
var ErrBadAddressLength = fmt.Errorf("addr: length must be 34 (base-36) or 40 (hex)")

// normalize converts any input form into the canonical (hex, hy) pair,
// memoised by (raw, heightHint). The node RPC is the source of truth for
// the conversion; gethexaddress/fromhexaddress results are pure, so the
// memo never needs to invalidate on its own — only a bumped heightHint
// forces a fresh lookup.
func (r *Registry) normalize(ctx context.Context, raw string, heightHint uint64) (hex, hy string, err error) {
	key := normKey{raw: raw, heightHint: heightHint}
	if v, ok := r.normCache.Get(key); ok {
		return v.hex, v.hy, nil
	}

	switch len(raw) {
	case 40:
		hex = strings.ToLower(strings.TrimPrefix(raw, "0x"))
		hy, err = r.node.FromHexAddress(ctx, hex)
		if err != nil {
			return "", "", err
		}
	case 34:
		hy = raw
		hex, err = r.node.GetHexAddress(ctx, hy)
		if err != nil {
			return "", "", err
		}
	default:
		return "", "", ErrBadAddressLength
	}

	r.normCache.Add(key, normResult{hex: hex, hy: hy})
	return hex, hy, nil
}
