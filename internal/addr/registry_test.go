package addr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hydraverse/hyvedb/internal/model"
	"github.com/hydraverse/hyvedb/internal/rpcclient"
)

type fakeStore struct {
	byHex map[string]*model.Address
	byHy  map[string]*model.Address
	next  int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{byHex: map[string]*model.Address{}, byHy: map[string]*model.Address{}}
}

func (s *fakeStore) GetByHex(ctx context.Context, hex string) (*model.Address, bool, error) {
	a, ok := s.byHex[hex]
	return a, ok, nil
}

func (s *fakeStore) GetByHy(ctx context.Context, hy string) (*model.Address, bool, error) {
	a, ok := s.byHy[hy]
	return a, ok, nil
}

func (s *fakeStore) Create(ctx context.Context, a *model.Address) error {
	s.next++
	a.ID = s.next
	s.byHex[a.Hex] = a
	s.byHy[a.Hy] = a
	return nil
}

func (s *fakeStore) UpdateInfo(ctx context.Context, id int64, newInfo model.JSON) error {
	for _, a := range s.byHex {
		if a.ID == id {
			a.Info = newInfo
		}
	}
	return nil
}

type fakeNode struct {
	rpcclient.Node
	hexToHy map[string]string
	hyToHex map[string]string
	excepts map[string]bool // selector hex -> excepts
	callErr map[string]bool // selector hex -> CallContract itself fails
}

func (n *fakeNode) FromHexAddress(ctx context.Context, hex string) (string, error) {
	return n.hexToHy[hex], nil
}

func (n *fakeNode) GetHexAddress(ctx context.Context, hy string) (string, error) {
	return n.hyToHex[hy], nil
}

func (n *fakeNode) CallContract(ctx context.Context, addrHex string, data []byte) (rpcclient.ExecutionResult, error) {
	sel := string(data)
	if n.callErr[sel] {
		return rpcclient.ExecutionResult{}, errors.New("fake rpc: call failed")
	}
	if n.excepts[sel] {
		return rpcclient.ExecutionResult{Excepted: "OutOfGasException"}, nil
	}
	return rpcclient.ExecutionResult{Excepted: "None"}, nil
}

type fakeExplorer struct {
	rpcclient.Explorer
}

func TestNormalizeRoundTrip(t *testing.T) {
	store := newFakeStore()
	node := &fakeNode{
		hexToHy: map[string]string{"aa00000000000000000000000000000000000000": "HY00000000000000000000000000000000"},
		hyToHex: map[string]string{"HY00000000000000000000000000000000": "aa00000000000000000000000000000000000000"},
	}
	reg, err := NewRegistry(store, node, &fakeExplorer{}, Config{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	hex1, hy1, err := reg.normalize(context.Background(), "aa00000000000000000000000000000000000000", 100)
	if err != nil {
		t.Fatalf("normalize hex: %v", err)
	}
	hex2, hy2, err := reg.normalize(context.Background(), hy1, 100)
	if err != nil {
		t.Fatalf("normalize hy: %v", err)
	}
	if hex1 != hex2 || hy1 != hy2 {
		t.Fatalf("round trip mismatch: (%s,%s) != (%s,%s)", hex1, hy1, hex2, hy2)
	}
}

func TestNormalizeBadLength(t *testing.T) {
	store := newFakeStore()
	reg, _ := NewRegistry(store, &fakeNode{}, &fakeExplorer{}, Config{})
	_, _, err := reg.normalize(context.Background(), "tooshort", 0)
	if err != ErrBadAddressLength {
		t.Fatalf("expected ErrBadAddressLength, got %v", err)
	}
}

func TestClassifyWallet(t *testing.T) {
	store := newFakeStore()
	nameSel := string(rpcclient.Erc20Selectors.Name[:])
	node := &fakeNode{excepts: map[string]bool{nameSel: true}}
	reg, _ := NewRegistry(store, node, &fakeExplorer{}, Config{})

	typ, err := reg.classify(context.Background(), "aa00000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if typ != model.AddrWallet {
		t.Fatalf("got %v, want AddrWallet", typ)
	}
}

func TestClassifyWalletOnCallContractError(t *testing.T) {
	store := newFakeStore()
	nameSel := string(rpcclient.Erc20Selectors.Name[:])
	node := &fakeNode{callErr: map[string]bool{nameSel: true}}
	reg, _ := NewRegistry(store, node, &fakeExplorer{}, Config{})

	typ, err := reg.classify(context.Background(), "aa00000000000000000000000000000000000001")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if typ != model.AddrWallet {
		t.Fatalf("got %v, want AddrWallet", typ)
	}
}

func TestClassifyToken(t *testing.T) {
	store := newFakeStore()
	node := &fakeNode{excepts: map[string]bool{}}
	reg, _ := NewRegistry(store, node, &fakeExplorer{}, Config{})

	typ, err := reg.classify(context.Background(), "bb00000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if typ != model.AddrToken {
		t.Fatalf("got %v, want AddrToken", typ)
	}
}

func TestClassifyNFT(t *testing.T) {
	store := newFakeStore()
	decSel := string(rpcclient.Erc20Selectors.Decimals[:])
	node := &fakeNode{excepts: map[string]bool{decSel: true}}
	reg, _ := NewRegistry(store, node, &fakeExplorer{}, Config{})

	typ, err := reg.classify(context.Background(), "cc00000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if typ != model.AddrNFT {
		t.Fatalf("got %v, want AddrNFT", typ)
	}
}

func TestGetCreatesAndInterns(t *testing.T) {
	store := newFakeStore()
	node := &fakeNode{
		hexToHy: map[string]string{"dd00000000000000000000000000000000000000": "HYDD0000000000000000000000000000000"[:34]},
	}
	reg, _ := NewRegistry(store, node, &fakeExplorer{}, Config{})

	a1, err := reg.Get(context.Background(), "dd00000000000000000000000000000000000000", 1, true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a1 == nil {
		t.Fatalf("expected address, got nil")
	}

	a2, err := reg.Get(context.Background(), "dd00000000000000000000000000000000000000", 1, true)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if a2.ID != a1.ID {
		t.Fatalf("expected interned address, got different id %d != %d", a2.ID, a1.ID)
	}
}

var _ = json.Marshal // used transitively via model package in other files
