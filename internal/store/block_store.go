package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// BlockStore persists block envelopes (spec §3 Block, §4.3 step 5).
type BlockStore struct {
	pool *pgxpool.Pool
}

// MaxHeight returns the highest stored block height, or (0, false) if the
// store is empty — the Poller's recovery path (spec §4.3).
func (s *BlockStore) MaxHeight(ctx context.Context) (uint64, bool, error) {
	var h *int64
	if err := s.pool.QueryRow(ctx, `SELECT max(height) FROM block`).Scan(&h); err != nil {
		return 0, false, err
	}
	if h == nil {
		return 0, false, nil
	}
	return uint64(*h), true, nil
}

// InsertBlockTx inserts a block row within tx and returns its surrogate id.
func InsertBlockTx(ctx context.Context, tx pgx.Tx, b *model.Block) (int64, error) {
	txJSON, err := json.Marshal(b.Tx)
	if err != nil {
		return 0, err
	}
	infoRaw := b.Info.Raw()
	if infoRaw == nil {
		infoRaw = []byte("{}")
	}
	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO block (height, hash, conf, info, tx) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		int64(b.Height), b.Hash, b.Conf, infoRaw, txJSON,
	).Scan(&id)
	return id, err
}

// DeleteBlockTx deletes a block (cascading to addr_hist/user_addr_hist rows)
// within tx.
func DeleteBlockTx(ctx context.Context, tx pgx.Tx, blockID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM block WHERE id = $1`, blockID)
	return err
}

// SetConfTx updates a block's confirmation count within tx.
func SetConfTx(ctx context.Context, tx pgx.Tx, blockID int64, conf int) error {
	_, err := tx.Exec(ctx, `UPDATE block SET conf = $1 WHERE id = $2`, conf, blockID)
	return err
}

// GetByID returns the stored block with the given surrogate id, if any —
// backs GET /sse/block/{block_pk}/{create|mature} (spec §6).
func (s *BlockStore) GetByID(ctx context.Context, id int64) (*model.Block, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, height, hash, conf, info, tx FROM block WHERE id = $1`, id)
	b, err := scanBlock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// GetByHeight returns the stored block at height, if any.
func (s *BlockStore) GetByHeight(ctx context.Context, height uint64) (*model.Block, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, height, hash, conf, info, tx FROM block WHERE height = $1`, int64(height))
	b, err := scanBlock(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// AscendingFrom returns stored blocks at or above fromHeight, ordered by
// height ascending — the walk order the Confirmation Tracker requires
// (spec §4.4).
func (s *BlockStore) AscendingFrom(ctx context.Context, fromHeight uint64) ([]*model.Block, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, height, hash, conf, info, tx FROM block WHERE height >= $1 ORDER BY height ASC`,
		int64(fromHeight))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// HistoryCount returns the number of addr_hist rows still attached to a
// block — used by the "conf >= MATURITY ∧ history = ∅" deletion rule.
func (s *BlockStore) HistoryCount(ctx context.Context, blockID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM addr_hist WHERE block_id = $1`, blockID).Scan(&n)
	return n, err
}

func scanBlock(row rowScanner) (*model.Block, error) {
	var b model.Block
	var height int64
	var info, txRaw []byte
	if err := row.Scan(&b.ID, &height, &b.Hash, &b.Conf, &info, &txRaw); err != nil {
		return nil, err
	}
	b.Height = uint64(height)
	b.Info = model.NewJSON(info)
	if err := json.Unmarshal(txRaw, &b.Tx); err != nil {
		return nil, err
	}
	return &b, nil
}
