package ingest

import (
	"sort"
	"testing"

	"github.com/hydraverse/hyvedb/internal/model"
)

func TestHarvestAddressesWalksEveryField(t *testing.T) {
	txs := []model.TxPayload{
		{
			Sender:             "1111111111111111111111111111111111111111",
			ContractAddressHex: "2222222222222222222222222222222222222222",
			Vin: []model.ScriptAddr{
				{Address: "QTestHy333333333333333333333333333"},
				{AddressHex: "4444444444444444444444444444444444444444"},
			},
			Vout: []model.ScriptAddr{
				{Address: "QTestHy555555555555555555555555555"},
			},
			Qrc20TokenTransfers: []model.TokenTransfer{
				{From: "6666666666666666666666666666666666666666", To: "7777777777777777777777777777777777777777"},
			},
			Qrc721TokenTransfers: []model.TokenTransfer{
				{AddressHex: "8888888888888888888888888888888888888888"},
			},
		},
	}

	hs := harvestAddresses(txs, nil)

	wantHex := []string{
		"1111111111111111111111111111111111111111",
		"2222222222222222222222222222222222222222",
		"4444444444444444444444444444444444444444",
		"6666666666666666666666666666666666666666",
		"7777777777777777777777777777777777777777",
		"8888888888888888888888888888888888888888",
	}
	gotHex := append([]string(nil), hs.hex...)
	sort.Strings(gotHex)
	sort.Strings(wantHex)
	if len(gotHex) != len(wantHex) {
		t.Fatalf("hex set = %v, want %v", gotHex, wantHex)
	}
	for i := range wantHex {
		if gotHex[i] != wantHex[i] {
			t.Fatalf("hex set = %v, want %v", gotHex, wantHex)
		}
	}

	if len(hs.hy) != 2 {
		t.Fatalf("hy set = %v, want 2 entries", hs.hy)
	}
}

func TestHarvestAddressesDropsUnsupportedLength(t *testing.T) {
	txs := []model.TxPayload{{Sender: "tooshort"}}
	hs := harvestAddresses(txs, nil)
	if len(hs.hex) != 0 || len(hs.hy) != 0 {
		t.Fatalf("expected the malformed sender to be dropped, got %+v", hs)
	}
}

func TestHarvestAddressesSkipsEmpty(t *testing.T) {
	txs := []model.TxPayload{{Vin: []model.ScriptAddr{{}}}}
	hs := harvestAddresses(txs, nil)
	if len(hs.hex) != 0 || len(hs.hy) != 0 {
		t.Fatalf("expected empty address fields to be skipped, got %+v", hs)
	}
}

func TestDedup(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	out := dedup(in)
	if len(out) != 3 {
		t.Fatalf("dedup(%v) = %v, want 3 unique entries", in, out)
	}
	seen := map[string]bool{}
	for _, s := range out {
		if seen[s] {
			t.Fatalf("dedup produced a duplicate: %v", out)
		}
		seen[s] = true
	}
}

func TestDedupPreservesFirstOccurrenceOrder(t *testing.T) {
	in := []string{"z", "a", "z", "m"}
	out := dedup(in)
	want := []string{"z", "a", "m"}
	if len(out) != len(want) {
		t.Fatalf("dedup(%v) = %v, want %v", in, out, want)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("dedup(%v) = %v, want %v", in, out, want)
		}
	}
}
