package addr

import (
	"context"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
)

// classify walks the four ERC-20 probe selectors in order — name(),
// symbol(), totalSupply(), decimals() — and classifies hexAddr per spec
// §4.2. Results are memoised without a height component: a contract's
// type never changes once deployed, so re-probing on a height bump would
// be wasted work (only normalisation needs the height hint).
func (r *Registry) classify(ctx context.Context, hexAddr string) (model.AddrType, error) {
	if v, ok := r.probeCache.Get(hexAddr); ok {
		return v, nil
	}

	typ, err := r.probeOnce(ctx, hexAddr)
	if err != nil {
		return 0, err
	}
	r.probeCache.Add(hexAddr, typ)
	return typ, nil
}

func (r *Registry) probeOnce(ctx context.Context, hexAddr string) (model.AddrType, error) {
	nameRes, err := r.node.CallContract(ctx, hexAddr, rpcclient.Erc20Selectors.Name[:])
	if err != nil {
		// The node RPC call itself failing is the normal outcome of calling
		// contract code against a plain wallet address with no code at all;
		// safest assumption is that this is actually a HYDRA hex address.
		return model.AddrWallet, nil
	}
	if nameRes.Excepted != "" && nameRes.Excepted != "None" {
		// name() excepts (or the address isn't a contract at all): wallet.
		return model.AddrWallet, nil
	}

	symbolRes, err := r.node.CallContract(ctx, hexAddr, rpcclient.Erc20Selectors.Symbol[:])
	if err != nil {
		return 0, err
	}
	if symbolRes.Excepted != "" && symbolRes.Excepted != "None" {
		return model.AddrContract, nil
	}

	supplyRes, err := r.node.CallContract(ctx, hexAddr, rpcclient.Erc20Selectors.TotalSupply[:])
	if err != nil {
		return 0, err
	}
	if supplyRes.Excepted != "" && supplyRes.Excepted != "None" {
		return model.AddrContract, nil
	}

	decimalsRes, err := r.node.CallContract(ctx, hexAddr, rpcclient.Erc20Selectors.Decimals[:])
	if err != nil {
		return 0, err
	}
	if decimalsRes.Excepted != "" && decimalsRes.Excepted != "None" {
		// totalSupply() succeeded but decimals() excepts: NFT (ERC-721-like).
		return model.AddrNFT, nil
	}

	return model.AddrToken, nil
}
