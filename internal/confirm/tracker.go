// Package confirm implements the Confirmation Tracker (spec §4.4): the
// ascending sweep that detects forks, ages blocks toward maturity, and
// deletes blocks once their history has been consumed or superseded.
package confirm

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/addr"
	"github.com/hydraverse/hyvedb/internal/events"
	"github.com/hydraverse/hyvedb/internal/ingest"
	"github.com/hydraverse/hyvedb/internal/metrics"
	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
	"github.com/hydraverse/hyvedb/internal/store"
)

// Tracker walks stored blocks in ascending height order, grounded on the
// teacher's core.ChainForkManager sweep-and-rewind shape.
type Tracker struct {
	node     rpcclient.Node
	explorer rpcclient.Explorer
	registry *addr.Registry
	store    *store.Store
	events   *events.Queue
	logger   *logrus.Logger
}

// New wires a Tracker. The same Node/Explorer/Registry/Store/Events used by
// the Poller are passed through, since fork replay re-enters
// ingest.MakeBlock.
func New(node rpcclient.Node, explorer rpcclient.Explorer, registry *addr.Registry, st *store.Store, evq *events.Queue, lg *logrus.Logger) *Tracker {
	if lg == nil {
		lg = logrus.StandardLogger()
	}
	return &Tracker{node: node, explorer: explorer, registry: registry, store: st, events: evq, logger: lg}
}

// Sweep implements spec §4.4: for every stored block, in ascending height
// order, detect forks, leave immature blocks untouched, delete matured or
// history-empty blocks, and promote blocks that just reached maturity.
func (t *Tracker) Sweep(ctx context.Context) error {
	blocks, err := t.store.Block.AscendingFrom(ctx, 0)
	if err != nil {
		return err
	}
	for _, b := range blocks {
		if err := t.sweepOne(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) sweepOne(ctx context.Context, b *model.Block) error {
	chainHash, err := t.node.GetBlockHash(ctx, b.Height)
	if err != nil {
		return err
	}
	if chainHash != b.Hash {
		return t.handleFork(ctx, b, chainHash)
	}

	header, err := t.node.GetBlockHeader(ctx, b.Hash)
	if err != nil {
		return err
	}
	conf := header.Confirmations

	if conf < model.Maturity {
		return nil
	}

	histCount, err := t.store.Block.HistoryCount(ctx, b.ID)
	if err != nil {
		return err
	}

	if conf > model.Maturity || histCount == 0 {
		return store.WithSerializableTx(ctx, t.store.Pool, func(tx pgx.Tx) error {
			return store.DeleteBlockTx(ctx, tx, b.ID)
		})
	}

	return t.promote(ctx, b, conf)
}

// handleFork restores every subscription counter the block's history rows
// were about to advance, deletes the block, then replays the height against
// the chain's current hash (spec §4.4 case 1).
func (t *Tracker) handleFork(ctx context.Context, b *model.Block, newHash string) error {
	hist, err := t.store.Hist.ByBlock(ctx, b.ID)
	if err != nil {
		return err
	}

	err = store.WithSerializableTx(ctx, t.store.Pool, func(tx pgx.Tx) error {
		for _, h := range hist {
			snaps, err := t.store.Hist.UserAddrHistByAddrHist(ctx, h.ID)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if err := store.RestoreCounterTx(ctx, tx, snap.UserAddrID, snap.BlockT, snap.BlockC); err != nil {
					return err
				}
			}
		}
		return store.DeleteBlockTx(ctx, tx, b.ID)
	})
	if err != nil {
		return err
	}

	metrics.ForksDetected.Inc()
	t.logger.WithField("height", b.Height).WithField("old_hash", b.Hash).WithField("new_hash", newHash).
		Warn("confirm: fork detected, replaying height")

	return ingest.MakeBlock(ctx, t.deps(), b.Height, ingest.NoStatHeight, newHash)
}

// promote implements spec §4.4 case 5: set conf, rotate every AddrHist's
// info_old/info_new via a fresh explorer read, and post-commit enqueue a
// block/mature Event.
func (t *Tracker) promote(ctx context.Context, b *model.Block, conf int) error {
	hist, err := t.store.Hist.ByBlock(ctx, b.ID)
	if err != nil {
		return err
	}

	var rots []maturedHist

	// The explorer re-read is an RPC round-trip and must happen outside the
	// storage transaction (spec §5).
	for _, h := range hist {
		a, found, err := t.store.Addr.GetByID(ctx, h.AddrID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if _, err := t.registry.UpdateInfo(ctx, a); err != nil {
			return err
		}
		rots = append(rots, maturedHist{h: h, address: a, infoOld: h.InfoNew, infoNew: a.Info})
	}

	err = store.WithSerializableTx(ctx, t.store.Pool, func(tx pgx.Tx) error {
		if err := store.SetConfTx(ctx, tx, b.ID, conf); err != nil {
			return err
		}
		for _, r := range rots {
			if err := store.PromoteAddrHistTx(ctx, tx, r.h.ID, r.infoOld, r.infoNew); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.Conf = conf
	return t.enqueueMatureEvent(ctx, b, rots)
}

// maturedHist pairs a promoted AddrHist row with its rotated info values and
// the address it belongs to, threaded from promote's pre-transaction
// explorer reads into the post-commit mature event.
type maturedHist struct {
	h       *model.AddrHist
	address *model.Address
	infoOld model.JSON
	infoNew model.JSON
}

func (t *Tracker) enqueueMatureEvent(ctx context.Context, b *model.Block, rots []maturedHist) error {
	var histResults []model.AddrHistResult
	for _, r := range rots {
		result := model.AddrHistResult{
			Address: model.AddressView{ID: r.address.ID, Hex: r.address.Hex, Hy: r.address.Hy, Type: r.address.Type.String()},
			InfoOld: r.infoOld,
			InfoNew: r.infoNew,
			Mined:   r.h.Mined,
		}
		snaps, err := t.store.Hist.UserAddrHistByAddrHist(ctx, r.h.ID)
		if err != nil {
			return err
		}
		for _, snap := range snaps {
			ua, found, err := t.store.UserAddr.GetByID(ctx, snap.UserAddrID)
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			result.Subscribers = append(result.Subscribers, model.UserAddrHistView{
				UserAddrID: ua.ID, Name: ua.Name, BlockT: snap.BlockT.Unix(), BlockC: snap.BlockC,
			})
		}
		histResults = append(histResults, result)
	}

	return ingest.EnqueueBlockEvent(ctx, t.deps(), b.ID, model.SSEMature, b, histResults)
}

func (t *Tracker) deps() ingest.Deps {
	return ingest.Deps{
		Node:     t.node,
		Explorer: t.explorer,
		Registry: t.registry,
		Store:    t.store,
		Events:   t.events,
		Logger:   t.logger,
	}
}
