package model

import "time"

// AddrType classifies an Address per the probing walk in spec §4.2.
type AddrType int

const (
	AddrWallet AddrType = iota
	AddrContract
	AddrToken
	AddrNFT
)

func (t AddrType) String() string {
	switch t {
	case AddrWallet:
		return "wallet"
	case AddrContract:
		return "contract"
	case AddrToken:
		return "token"
	case AddrNFT:
		return "nft"
	default:
		return "unknown"
	}
}

// Address is an interned, type-tagged on-chain address (spec §3).
type Address struct {
	ID          int64
	Type        AddrType
	Hex         string // 40-char hex form
	Hy          string // 34-char base-36 form
	LastSeen    uint64
	Info        JSON
	Subscribers int // not filled in when an Address is read from the store; AddressStore.SubscriberCount does the counting
}

// BlockInfo is the enriched, volatile-field-stripped explorer payload
// persisted alongside a Block (spec §4.3 step 5). Confirmations is
// deliberately absent: it is the one field MakeBlock strips before persisting
// (spec §4.3 step 5 "strip the transient confirmations field").
type BlockInfo struct {
	Miner string         `json:"miner"`
	Time  int64          `json:"time"` // unix seconds, used as the "mined" credit timestamp (spec §4.7)
	Raw   map[string]any `json:"-"`
	TxIDs []string       `json:"tx"`
}

// Block is a stored block envelope (spec §3).
type Block struct {
	ID      int64
	Height  uint64
	Hash    string
	Conf    int
	Info    JSON
	Tx      []TxPayload
	History []*AddrHist
}

// TxPayload is one transaction's enriched explorer/node payload, as fetched
// in MakeBlock step 2 and walked by the address harvesting rule.
type TxPayload struct {
	TxID                string           `json:"txid"`
	Sender              string           `json:"sender,omitempty"`
	ContractAddressHex  string           `json:"contractAddressHex,omitempty"`
	Vin                 []ScriptAddr     `json:"vin,omitempty"`
	Vout                []ScriptAddr     `json:"vout,omitempty"`
	Qrc20TokenTransfers []TokenTransfer  `json:"qrc20TokenTransfers,omitempty"`
	Qrc721TokenTransfers []TokenTransfer `json:"qrc721TokenTransfers,omitempty"`
}

// ScriptAddr is an input/output script address in either representation.
type ScriptAddr struct {
	Address    string `json:"address,omitempty"`    // base-36
	AddressHex string `json:"addressHex,omitempty"` // 40-hex
}

// TokenTransfer is a qrc20/qrc721 transfer log entry.
type TokenTransfer struct {
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	AddressHex string `json:"addressHex,omitempty"`
}

// AddrHist is a per-block, per-address transition record (spec §3).
type AddrHist struct {
	ID      int64
	BlockID int64
	AddrID  int64
	InfoOld JSON
	InfoNew JSON
	Mined   bool
}

// User is a subscription owner (spec §3).
type User struct {
	ID     int64
	Handle string
	Info   JSON
	Data   JSON
}

// UserAddr is a named address subscription (spec §3).
type UserAddr struct {
	ID            int64
	UserID        int64
	AddrID        int64
	Name          string
	BlockT        time.Time
	BlockC        int64
	Info          JSON
	Data          JSON
	WatchedTokens []string // hex addresses
}

// UserAddrHist is a per-subscription checkpoint view of an AddrHist (spec §3).
type UserAddrHist struct {
	ID        int64
	UserAddrID int64
	AddrHistID int64
	BlockT    time.Time // subscription's block_t snapshot taken before crediting this block
	BlockC    int64     // subscription's block_c snapshot taken before crediting this block
	Data      JSON
}

// EventKind enumerates the event table's kind tag (spec §3).
type EventKind string

const (
	EventBlockCreate EventKind = "block"
)

// Event is a durable, claim-based queue row (spec §3 / §4.5).
type Event struct {
	ID        int64
	CreatedAt time.Time
	ExpiresAt time.Time
	Kind      EventKind
	Payload   JSON
	Claims    []string
}

// EventTTL is the lifetime of an event row before it becomes GC-eligible.
const EventTTL = 18 * time.Hour

// Stat is a point-in-time chain snapshot keyed by (height, hash) (spec §3).
type Stat struct {
	ID     int64
	Height uint64
	Hash   string
	Info   JSON
	Taken  time.Time
}

// Maturity is the confirmation count at which a block's address states
// freeze and republish (spec glossary: Maturity).
const Maturity = 501
