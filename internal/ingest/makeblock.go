package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hydraverse/hyvedb/internal/metrics"
	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
	"github.com/hydraverse/hyvedb/internal/store"
)

// Retry delays for MakeBlock step 2's unbounded fetch loop (spec §4.3 step 2
// / §7: 10s on not-yet-indexed, 30s on other RPC failures, 60s on
// deserialisation failures).
const (
	retryNotIndexed = 10 * time.Second
	retryRPC        = 30 * time.Second
	retryDeser      = 60 * time.Second
)

// explorerBlockPayload is the enriched block+tx shape returned by the
// explorer's block endpoint.
type explorerBlockPayload struct {
	Height        uint64           `json:"height"`
	Hash          string           `json:"hash"`
	Confirmations int              `json:"confirmations"`
	Miner         string           `json:"miner"`
	Time          int64            `json:"time"`
	Tx            []model.TxPayload `json:"tx"`
}

// NoStatHeight is the chainHeight sentinel fork replay passes to MakeBlock
// (spec §4.4 case 1: "chainHeight = −1") so the "height == chainHeight"
// stat-snapshot step never fires for a replayed height.
const NoStatHeight = ^uint64(0)

// errNoHistoryProduced signals MakeBlock's step 7 rollback rule: the block
// touched no subscribed address, so the transaction must be rolled back and
// no event enqueued (spec §4.3 step 7, §9 Open Question #2).
var errNoHistoryProduced = errors.New("ingest: block produced no history, rolling back")

type refreshedAddr struct {
	addr    *model.Address
	infoOld model.JSON
	infoNew model.JSON
}

// MakeBlock implements spec §4.3's eight-step pipeline. forceHash, when
// non-empty, is the caller-supplied hash used during fork replay
// (spec §4.4 case 1); otherwise the hash is resolved from the node.
func MakeBlock(ctx context.Context, d Deps, height uint64, chainHeight uint64, forceHash string) error {
	start := time.Now()
	defer func() { metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	blockHash, err := resolveHash(ctx, d, height, forceHash)
	if err != nil {
		return err
	}

	payload, err := fetchEnrichedBlock(ctx, d, height, blockHash)
	if err != nil {
		return err
	}

	hs := harvestAddresses(payload.Tx, d.Logger)
	hexSet := dedup(hs.hex)
	hySet := dedup(hs.hy)

	matched, err := d.Store.Addr.GetByHexSet(ctx, hexSet, hySet)
	if err != nil {
		return err
	}

	// Step 6's info refresh is an RPC round-trip; it must not run inside the
	// storage transaction (spec §5: "No operation holds a transaction
	// across an RPC to the node").
	refreshed := make([]refreshedAddr, 0, len(matched))
	for _, a := range matched {
		infoOld := a.Info
		changed, err := d.Registry.UpdateInfo(ctx, a)
		if err != nil {
			return err
		}
		if err := d.Store.Addr.UpdateLastSeen(ctx, a.ID, height); err != nil {
			return err
		}
		if !changed {
			continue
		}
		refreshed = append(refreshed, refreshedAddr{addr: a, infoOld: infoOld, infoNew: a.Info})
	}

	block := &model.Block{
		Height: payload.Height,
		Hash:   blockHash,
		Info:   mustMarshalBlockInfo(payload),
		Tx:     payload.Tx,
	}
	blockTime := time.Unix(payload.Time, 0).UTC()

	var blockID int64
	var hist []model.AddrHistResult
	err = store.WithSerializableTx(ctx, d.Store.Pool, func(tx pgx.Tx) error {
		id, err := store.InsertBlockTx(ctx, tx, block)
		if err != nil {
			return err
		}
		blockID = id

		for _, r := range refreshed {
			subIDs, err := store.SubscribersOfTx(ctx, tx, r.addr.ID)
			if err != nil {
				return err
			}
			if len(subIDs) == 0 {
				continue
			}
			mined := payload.Miner != "" && payload.Miner == r.addr.Hy
			h := &model.AddrHist{BlockID: blockID, AddrID: r.addr.ID, InfoOld: r.infoOld, InfoNew: r.infoNew, Mined: mined}
			addrHistID, err := store.InsertAddrHistTx(ctx, tx, h)
			if err != nil {
				return err
			}

			result := model.AddrHistResult{
				Address: model.AddressView{ID: r.addr.ID, Hex: r.addr.Hex, Hy: r.addr.Hy, Type: r.addr.Type.String()},
				InfoOld: r.infoOld,
				InfoNew: r.infoNew,
				Mined:   mined,
			}
			for _, uaID := range subIDs {
				snapT, snapC, err := store.SnapshotTx(ctx, tx, uaID)
				if err != nil {
					return err
				}
				uah := &model.UserAddrHist{UserAddrID: uaID, AddrHistID: addrHistID, BlockT: snapT, BlockC: snapC}
				if _, err := store.InsertUserAddrHistTx(ctx, tx, uah); err != nil {
					return err
				}
				if mined {
					if err := store.CreditMinedBlockTx(ctx, tx, uaID, blockTime); err != nil {
						return err
					}
				}
				name, err := store.NameTx(ctx, tx, uaID)
				if err != nil {
					return err
				}
				result.Subscribers = append(result.Subscribers, model.UserAddrHistView{
					UserAddrID: uaID, Name: name, BlockT: snapT.Unix(), BlockC: snapC,
				})
			}
			hist = append(hist, result)
		}

		if len(hist) == 0 {
			return errNoHistoryProduced
		}
		return nil
	})
	if errors.Is(err, errNoHistoryProduced) {
		return nil
	}
	if err != nil {
		return err
	}
	metrics.BlocksIngested.Inc()

	if height == chainHeight {
		if _, err := d.Store.Stat.Insert(ctx, height, blockHash, model.NewJSON(nil)); err != nil {
			d.Logger.WithError(err).Warn("ingest: stat snapshot write failed")
		}
	}

	return EnqueueBlockEvent(ctx, d, blockID, model.SSECreate, block, hist)
}

func resolveHash(ctx context.Context, d Deps, height uint64, forceHash string) (string, error) {
	if forceHash != "" {
		return forceHash, nil
	}
	for {
		hash, err := d.Node.GetBlockHash(ctx, height)
		if err == nil {
			return hash, nil
		}
		if waitErr := waitRetry(ctx, classifyDelay(err)); waitErr != nil {
			return "", waitErr
		}
	}
}

func fetchEnrichedBlock(ctx context.Context, d Deps, height uint64, blockHash string) (*explorerBlockPayload, error) {
	for {
		raw, err := d.Explorer.GetBlockByHash(ctx, blockHash)
		if err != nil {
			if waitErr := waitRetry(ctx, classifyDelay(err)); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		var payload explorerBlockPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			if waitErr := waitRetry(ctx, retryDeser); waitErr != nil {
				return nil, waitErr
			}
			continue
		}
		return &payload, nil
	}
}

func classifyDelay(err error) time.Duration {
	var rpcErr *rpcclient.RpcError
	if errors.As(err, &rpcErr) {
		if rpcErr.Class == rpcclient.ClassNotFound {
			return retryNotIndexed
		}
	}
	return retryRPC
}

func waitRetry(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnqueueBlockEvent builds and appends the BlockSSEResult payload
// post-commit (spec §4.3 step 8). The event id is whatever Postgres assigns
// via EventStore.Append's RETURNING id — resolving §9 Open Question #1,
// there is no separate pre-insert id peek anywhere in this path.
func EnqueueBlockEvent(ctx context.Context, d Deps, blockID int64, sseEvent model.BlockSSEEvent, block *model.Block, hist []model.AddrHistResult) error {
	result := model.BlockSSEResult{
		Event: sseEvent,
		Block: model.BlockView{ID: blockID, Height: block.Height, Hash: block.Hash, Conf: block.Conf, Info: block.Info},
		Hist:  hist,
	}
	payload, err := model.MarshalValue(result)
	if err != nil {
		return err
	}
	e, err := d.Events.Append(ctx, model.EventBlockCreate, payload)
	if err != nil {
		return err
	}

	// The payload was marshalled before the row existed, so result.ID is
	// still zero; patch in the real, server-assigned id now (spec §9 Open
	// Question #1).
	result.ID = e.ID
	finalPayload, err := model.MarshalValue(result)
	if err != nil {
		return err
	}
	return d.Events.SetPayload(ctx, e.ID, finalPayload)
}

func mustMarshalBlockInfo(p *explorerBlockPayload) model.JSON {
	j, err := model.MarshalValue(model.BlockInfo{Miner: p.Miner, Time: p.Time})
	if err != nil {
		// BlockInfo is a fixed, always-marshalable struct; this would only
		// fail on an impossible encoding bug.
		return model.NewJSON(nil)
	}
	return j
}
