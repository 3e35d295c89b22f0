package ingest

import (
	"github.com/sirupsen/logrus"

	"github.com/hydraverse/hyvedb/internal/model"
)

// harvestSet is the union of addresses pulled from a block's transactions,
// split by representation length (spec §4.3 step 3).
type harvestSet struct {
	hex []string
	hy  []string
}

// harvestAddresses walks every transaction in txs applying the address
// harvesting rule verbatim: input/output script addresses in both forms,
// receipt.sender, receipt.contractAddressHex, and every from/to/addressHex
// field across qrc20TokenTransfers ∪ qrc721TokenTransfers. Addresses of any
// other length are logged and dropped, never erroring the block (spec §9
// Open Question #3: the set is frozen here, log-level addresses are never
// read).
func harvestAddresses(txs []model.TxPayload, log *logrus.Logger) harvestSet {
	var hs harvestSet
	add := func(raw string) {
		if raw == "" {
			return
		}
		switch len(raw) {
		case 40:
			hs.hex = append(hs.hex, raw)
		case 34:
			hs.hy = append(hs.hy, raw)
		default:
			if log != nil {
				log.WithField("len", len(raw)).Debug("ingest: dropping address of unsupported length")
			}
		}
	}

	for _, tx := range txs {
		for _, v := range tx.Vin {
			add(v.Address)
			add(v.AddressHex)
		}
		for _, v := range tx.Vout {
			add(v.Address)
			add(v.AddressHex)
		}
		add(tx.Sender)
		add(tx.ContractAddressHex)
		for _, t := range tx.Qrc20TokenTransfers {
			add(t.From)
			add(t.To)
			add(t.AddressHex)
		}
		for _, t := range tx.Qrc721TokenTransfers {
			add(t.From)
			add(t.To)
			add(t.AddressHex)
		}
	}
	return hs
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
