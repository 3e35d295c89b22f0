// Package addr implements the Address Registry (spec §4.2): address
// normalisation, contract-type probing and explorer-info refresh.
package addr

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
)

// Store is the persistence contract the Registry needs. Implemented by
// internal/store.AddressStore; declared here so this package stays
// independent of the storage engine.
type Store interface {
	GetByHex(ctx context.Context, hex string) (*model.Address, bool, error)
	GetByHy(ctx context.Context, hy string) (*model.Address, bool, error)
	Create(ctx context.Context, a *model.Address) error
	UpdateInfo(ctx context.Context, id int64, newInfo model.JSON) error
}

type normKey struct {
	raw        string
	heightHint uint64
}

// Registry is the interned, type-tagged address table described in spec §3,
// fronted by two bounded LRU memoisation caches (spec §5: "implementers may
// bound the caches with LRU").
type Registry struct {
	store    Store
	node     rpcclient.Node
	explorer rpcclient.Explorer
	log      *logrus.Entry

	normCache  *lru.Cache[normKey, normResult]
	probeCache *lru.Cache[string, model.AddrType]
}

type normResult struct {
	hex string
	hy  string
}

// Config bounds the Registry's memoisation caches. A size of 0 picks a
// generous default rather than truly unbounded, since an LRU of size 0 is
// unusable.
type Config struct {
	NormCacheSize  int
	ProbeCacheSize int
}

const defaultCacheSize = 1 << 20

// NewRegistry wires a Registry against store, node and explorer clients.
func NewRegistry(store Store, node rpcclient.Node, explorer rpcclient.Explorer, cfg Config) (*Registry, error) {
	if cfg.NormCacheSize <= 0 {
		cfg.NormCacheSize = defaultCacheSize
	}
	if cfg.ProbeCacheSize <= 0 {
		cfg.ProbeCacheSize = defaultCacheSize
	}
	normCache, err := lru.New[normKey, normResult](cfg.NormCacheSize)
	if err != nil {
		return nil, fmt.Errorf("addr: new norm cache: %w", err)
	}
	probeCache, err := lru.New[string, model.AddrType](cfg.ProbeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("addr: new probe cache: %w", err)
	}
	return &Registry{
		store:      store,
		node:       node,
		explorer:   explorer,
		log:        logrus.WithField("component", "addr.registry"),
		normCache:  normCache,
		probeCache: probeCache,
	}, nil
}

// Get normalises raw (34-char base-36 or 40-hex) and returns the interned
// Address, creating it (with contract probing for hex inputs) if create is
// true and it doesn't exist yet. heightHint is folded into the normalisation
// memo key, so bumping it forces a fresh hex/base-36 lookup. It does not
// force a re-probe of the contract type: the probe memo is keyed by hex
// alone, and an address that already has a row is returned without probing.
func (r *Registry) Get(ctx context.Context, raw string, heightHint uint64, create bool) (*model.Address, error) {
	hex, hy, err := r.normalize(ctx, raw, heightHint)
	if err != nil {
		return nil, err
	}

	if a, ok, err := r.store.GetByHex(ctx, hex); err != nil {
		return nil, err
	} else if ok {
		return a, nil
	}
	if a, ok, err := r.store.GetByHy(ctx, hy); err != nil {
		return nil, err
	} else if ok {
		return a, nil
	}
	if !create {
		return nil, nil
	}

	typ, err := r.classify(ctx, hex)
	if err != nil {
		return nil, err
	}

	a := &model.Address{Type: typ, Hex: hex, Hy: hy, Info: model.NewJSON(nil)}
	if err := r.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
