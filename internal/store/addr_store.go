package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// AddressStore implements addr.Store against the addr table.
type AddressStore struct {
	pool *pgxpool.Pool
}

func (s *AddressStore) GetByHex(ctx context.Context, hex string) (*model.Address, bool, error) {
	return s.get(ctx, "addr_hx", hex)
}

func (s *AddressStore) GetByHy(ctx context.Context, hy string) (*model.Address, bool, error) {
	return s.get(ctx, "addr_hy", hy)
}

// GetByID reads an address by surrogate id — the Confirmation Tracker's
// lookup from an AddrHist row back to its address (spec §4.4 case 5).
func (s *AddressStore) GetByID(ctx context.Context, id int64) (*model.Address, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, addr_hx, addr_hy, block_last, info FROM addr WHERE id = $1`, id)
	a, err := scanAddress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func (s *AddressStore) get(ctx context.Context, col, val string) (*model.Address, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, type, addr_hx, addr_hy, block_last, info FROM addr WHERE `+col+` = $1`, val)
	a, err := scanAddress(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func (s *AddressStore) Create(ctx context.Context, a *model.Address) error {
	infoRaw := a.Info.Raw()
	if infoRaw == nil {
		infoRaw = []byte("{}")
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO addr (type, addr_hx, addr_hy, block_last, info)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		int(a.Type), a.Hex, a.Hy, a.LastSeen, infoRaw,
	).Scan(&a.ID)
}

func (s *AddressStore) UpdateInfo(ctx context.Context, id int64, newInfo model.JSON) error {
	_, err := s.pool.Exec(ctx, `UPDATE addr SET info = $1 WHERE id = $2`, newInfo.Raw(), id)
	return err
}

// UpdateLastSeen bumps the address's last-seen block height; called from
// the ingestion pipeline whenever a block touches the address.
func (s *AddressStore) UpdateLastSeen(ctx context.Context, id int64, height uint64) error {
	_, err := s.pool.Exec(ctx, `UPDATE addr SET block_last = $1 WHERE id = $2 AND block_last < $1`, int64(height), id)
	return err
}

// SubscriberCount returns the number of live UserAddr rows referencing
// addrID — the "reference-counted address" check in spec §3's ownership
// note, used to decide whether removing a subscription orphans the address.
func (s *AddressStore) SubscriberCount(ctx context.Context, addrID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM user_addr WHERE addr_id = $1`, addrID).Scan(&n)
	return n, err
}

// GetByHexSet returns every address row whose hex form is in hexSet or
// whose base-36 form is in hySet (spec §4.3 step 4).
func (s *AddressStore) GetByHexSet(ctx context.Context, hexSet, hySet []string) ([]*model.Address, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, addr_hx, addr_hy, block_last, info FROM addr
		 WHERE addr_hx = ANY($1) OR addr_hy = ANY($2)`, hexSet, hySet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAddress(row rowScanner) (*model.Address, error) {
	var a model.Address
	var typ int
	var info []byte
	if err := row.Scan(&a.ID, &typ, &a.Hex, &a.Hy, &a.LastSeen, &info); err != nil {
		return nil, err
	}
	a.Type = model.AddrType(typ)
	a.Info = model.NewJSON(info)
	return &a, nil
}
