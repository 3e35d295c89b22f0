package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// HistStore persists AddrHist and UserAddrHist rows (spec §3, §4.3 step 6,
// §4.7).
type HistStore struct {
	pool *pgxpool.Pool
}

// InsertAddrHistTx inserts one AddrHist row within tx and returns its id.
func InsertAddrHistTx(ctx context.Context, tx pgx.Tx, h *model.AddrHist) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO addr_hist (block_id, addr_id, info_old, info_new, mined)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		h.BlockID, h.AddrID, rawOrEmpty(h.InfoOld), rawOrEmpty(h.InfoNew), h.Mined,
	).Scan(&id)
	return id, err
}

// InsertUserAddrHistTx inserts one UserAddrHist checkpoint row within tx.
func InsertUserAddrHistTx(ctx context.Context, tx pgx.Tx, h *model.UserAddrHist) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`INSERT INTO user_addr_hist (user_addr_id, addr_hist_id, block_t, block_c, data)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		h.UserAddrID, h.AddrHistID, nullableTime(h.BlockT), h.BlockC, rawOrEmpty(h.Data),
	).Scan(&id)
	return id, err
}

// PromoteAddrHistTx rotates an AddrHist's info columns at maturity:
// info_old is overwritten with the row's current info_new, and info_new with
// a freshly re-read value (spec §4.4 case 5, AddrHist.OnBlockMature).
func PromoteAddrHistTx(ctx context.Context, tx pgx.Tx, addrHistID int64, infoOld, infoNew model.JSON) error {
	_, err := tx.Exec(ctx, `UPDATE addr_hist SET info_old = $1, info_new = $2 WHERE id = $3`,
		rawOrEmpty(infoOld), rawOrEmpty(infoNew), addrHistID)
	return err
}

// ByBlock returns every AddrHist row attached to a block, for fork-restore
// and maturity-sweep walks (spec §4.4).
func (s *HistStore) ByBlock(ctx context.Context, blockID int64) ([]*model.AddrHist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, block_id, addr_id, info_old, info_new, mined FROM addr_hist WHERE block_id = $1`,
		blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.AddrHist
	for rows.Next() {
		var h model.AddrHist
		var infoOld, infoNew []byte
		if err := rows.Scan(&h.ID, &h.BlockID, &h.AddrID, &infoOld, &infoNew, &h.Mined); err != nil {
			return nil, err
		}
		h.InfoOld = model.NewJSON(infoOld)
		h.InfoNew = model.NewJSON(infoNew)
		out = append(out, &h)
	}
	return out, rows.Err()
}

// UserAddrHistByAddrHist returns the per-subscriber checkpoint rows for a
// given AddrHist — used to restore subscription counters on fork rewind
// (spec §4.4 case 1, §4.7).
func (s *HistStore) UserAddrHistByAddrHist(ctx context.Context, addrHistID int64) ([]*model.UserAddrHist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_addr_id, addr_hist_id, block_t, block_c, data FROM user_addr_hist WHERE addr_hist_id = $1`,
		addrHistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.UserAddrHist
	for rows.Next() {
		var h model.UserAddrHist
		var data []byte
		var blockT *time.Time
		if err := rows.Scan(&h.ID, &h.UserAddrID, &h.AddrHistID, &blockT, &h.BlockC, &data); err != nil {
			return nil, err
		}
		if blockT != nil {
			h.BlockT = *blockT
		}
		h.Data = model.NewJSON(data)
		out = append(out, &h)
	}
	return out, rows.Err()
}

// Paginated lists UserAddrHist rows for a subscription with id > afterID,
// oldest first (ascending id) —
// backs GET /u/{pk}/a/{ua}/h (spec §4.8 expansion).
func (s *HistStore) Paginated(ctx context.Context, userAddrID int64, afterID int64, limit int) ([]*model.UserAddrHist, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_addr_id, addr_hist_id, block_t, block_c, data
		 FROM user_addr_hist
		 WHERE user_addr_id = $1 AND id > $2
		 ORDER BY id ASC LIMIT $3`, userAddrID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.UserAddrHist
	for rows.Next() {
		var h model.UserAddrHist
		var data []byte
		var blockT *time.Time
		if err := rows.Scan(&h.ID, &h.UserAddrID, &h.AddrHistID, &blockT, &h.BlockC, &data); err != nil {
			return nil, err
		}
		if blockT != nil {
			h.BlockT = *blockT
		}
		h.Data = model.NewJSON(data)
		out = append(out, &h)
	}
	return out, rows.Err()
}

func rawOrEmpty(j model.JSON) []byte {
	if raw := j.Raw(); raw != nil {
		return raw
	}
	return []byte("{}")
}
