package addr

import (
	"context"
	"encoding/json"

	"github.com/hydraverse/hyvedb/internal/model"
)

// UpdateInfo refreshes a's explorer info: fetch, strip volatile balance
// sub-records, enrich retained NFT balances with per-token URIs, compare by
// deep equality against the stored value, and write back only on change
// (spec §4.2). It returns whether the stored info actually changed.
func (r *Registry) UpdateInfo(ctx context.Context, a *model.Address) (bool, error) {
	raw, err := r.explorer.GetAddress(ctx, a.Hex)
	if err != nil {
		return false, err
	}

	var info map[string]any
	if err := json.Unmarshal(raw, &info); err != nil {
		return false, err
	}

	qrc20Balances, _ := info["qrc20Balances"].([]any)
	qrc721Balances, _ := info["qrc721Balances"].([]any)
	delete(info, "qrc20Balances")
	delete(info, "qrc721Balances")

	isContractLike := a.Type == model.AddrContract || a.Type == model.AddrToken || a.Type == model.AddrNFT
	if isContractLike {
		// Static metadata we already hold from the probe walk; don't store
		// another copy of it on every refresh.
		delete(info, "qrc20")
		delete(info, "qrc721")
	}

	if len(qrc721Balances) > 0 {
		enriched, err := r.enrichNFTBalances(ctx, a.Hex, qrc721Balances)
		if err != nil {
			return false, err
		}
		info["qrc721BalancesOwned"] = enriched
	}
	_ = qrc20Balances // intentionally dropped: only NFT balances carry retained per-token state

	equal, err := a.Info.Equal(info)
	if err != nil {
		return false, err
	}
	if equal {
		return false, nil
	}

	newInfo, err := model.MarshalValue(info)
	if err != nil {
		return false, err
	}
	if err := r.store.UpdateInfo(ctx, a.ID, newInfo); err != nil {
		return false, err
	}
	a.Info = newInfo
	return true, nil
}

// enrichNFTBalances attaches a tokenURI to each retained NFT balance entry
// by walking tokenOfOwnerByIndex + tokenURI for the owning address.
func (r *Registry) enrichNFTBalances(ctx context.Context, contractHex string, balances []any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(balances))
	for i, b := range balances {
		bm, ok := b.(map[string]any)
		if !ok {
			continue
		}
		owner, _ := bm["addressHex"].(string)
		tokenID, err := r.explorer.TokenOfOwnerByIndex(ctx, contractHex, owner, uint64(i))
		if err != nil {
			return nil, err
		}
		uri, err := r.explorer.TokenURI(ctx, contractHex, tokenID)
		if err != nil {
			return nil, err
		}
		bm["tokenId"] = tokenID
		bm["tokenUri"] = uri
		out = append(out, bm)
	}
	return out, nil
}
