package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// StatStore persists point-in-time chain snapshots (spec §3 Stat), off the
// ingestion path per spec.md §1's Out-of-scope framing — a leaf writer,
// so it gets only the minimal insert/read surface MakeBlock step 7 needs.
type StatStore struct {
	pool *pgxpool.Pool
}

// Insert records a snapshot keyed off (height, hash), at-most-once (spec §3
// Stat invariant): stat.block is unique on (height, hash), and when that
// block already has a stat.stat row the existing snapshot is returned.
func (s *StatStore) Insert(ctx context.Context, height uint64, hash string, info model.JSON) (*model.Stat, error) {
	stat := &model.Stat{Height: height, Hash: hash, Info: info}
	err := WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		var blockID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO stat.block (height, hash) VALUES ($1, $2)
			 ON CONFLICT (height, hash) DO UPDATE SET height = EXCLUDED.height
			 RETURNING id`, int64(height), hash).Scan(&blockID)
		if err != nil {
			return err
		}
		var existing []byte
		err = tx.QueryRow(ctx,
			`SELECT id, info, taken_at FROM stat.stat WHERE block_id = $1 ORDER BY id LIMIT 1`,
			blockID,
		).Scan(&stat.ID, &existing, &stat.Taken)
		if err == nil {
			stat.Info = model.NewJSON(existing)
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO stat.stat (block_id, info) VALUES ($1, $2) RETURNING id, taken_at`,
			blockID, rawOrEmpty(info),
		).Scan(&stat.ID, &stat.Taken)
	})
	if err != nil {
		return nil, err
	}
	return stat, nil
}

// Latest returns the most recently taken snapshot — backs GET /stats
// (spec §6).
func (s *StatStore) Latest(ctx context.Context) (*model.Stat, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT st.id, b.height, b.hash, st.info, st.taken_at
		 FROM stat.stat st JOIN stat.block b ON b.id = st.block_id
		 ORDER BY st.taken_at DESC LIMIT 1`)
	var stat model.Stat
	var height int64
	var info []byte
	err := row.Scan(&stat.ID, &height, &stat.Hash, &info, &stat.Taken)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	stat.Height = uint64(height)
	stat.Info = model.NewJSON(info)
	return &stat, true, nil
}

