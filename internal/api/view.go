package api

import (
	"context"
	"fmt"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/store"
)

// buildBlockSSEResult reconstructs a BlockSSEResult purely from persisted
// state (no RPC calls) — used by the internal trigger endpoint
// GET /sse/block/{block_pk}/{create|mature} (spec §6) to re-enqueue an
// event for an already-stored block, e.g. after a manual replay.
func buildBlockSSEResult(ctx context.Context, st *store.Store, blockID int64, sseEvent model.BlockSSEEvent) (*model.BlockSSEResult, error) {
	b, found, err := st.Block.GetByID(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("block %d not found", blockID)
	}

	hist, err := st.Hist.ByBlock(ctx, b.ID)
	if err != nil {
		return nil, err
	}

	result := &model.BlockSSEResult{
		Event: sseEvent,
		Block: model.BlockView{ID: b.ID, Height: b.Height, Hash: b.Hash, Conf: b.Conf, Info: b.Info},
	}

	for _, h := range hist {
		a, found, err := st.Addr.GetByID(ctx, h.AddrID)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		hr := model.AddrHistResult{
			Address: model.AddressView{ID: a.ID, Hex: a.Hex, Hy: a.Hy, Type: a.Type.String()},
			InfoOld: h.InfoOld,
			InfoNew: h.InfoNew,
			Mined:   h.Mined,
		}
		snaps, err := st.Hist.UserAddrHistByAddrHist(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		for _, snap := range snaps {
			ua, found, err := st.UserAddr.GetByID(ctx, snap.UserAddrID)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			hr.Subscribers = append(hr.Subscribers, model.UserAddrHistView{
				UserAddrID: ua.ID, Name: ua.Name, BlockT: snap.BlockT.Unix(), BlockC: snap.BlockC,
			})
		}
		result.Hist = append(result.Hist, hr)
	}

	return result, nil
}
