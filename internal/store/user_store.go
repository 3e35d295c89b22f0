package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// ErrUniqueHandle is returned when a user handle already exists (spec §3
// User invariant: external handle unique).
var ErrUniqueHandle = errors.New("store: handle already registered")

// UserStore persists User rows and the backing user_uniq handle table
// (spec §3).
type UserStore struct {
	pool *pgxpool.Pool
}

// Create registers handle as a new user, failing with ErrUniqueHandle if
// it is already taken.
func (s *UserStore) Create(ctx context.Context, handle string) (*model.User, error) {
	var u model.User
	u.Handle = handle
	u.Info = model.NewJSON(nil)
	u.Data = model.NewJSON(nil)

	err := WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		var uniqID int64
		err := tx.QueryRow(ctx, `INSERT INTO user_uniq (handle) VALUES ($1) RETURNING id`, handle).Scan(&uniqID)
		if isUniqueViolation(err) {
			return ErrUniqueHandle
		}
		if err != nil {
			return err
		}
		return tx.QueryRow(ctx,
			`INSERT INTO "user" (uniq_id, info, data) VALUES ($1, '{}', '{}') RETURNING id`,
			uniqID,
		).Scan(&u.ID)
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID reads a user by surrogate id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (*model.User, bool, error) {
	return s.get(ctx, `SELECT u.id, uq.handle, u.info, u.data FROM "user" u
		JOIN user_uniq uq ON uq.id = u.uniq_id WHERE u.id = $1`, id)
}

// GetByHandle reads a user by their external handle.
func (s *UserStore) GetByHandle(ctx context.Context, handle string) (*model.User, bool, error) {
	return s.get(ctx, `SELECT u.id, uq.handle, u.info, u.data FROM "user" u
		JOIN user_uniq uq ON uq.id = u.uniq_id WHERE uq.handle = $1`, handle)
}

func (s *UserStore) get(ctx context.Context, query string, arg any) (*model.User, bool, error) {
	var u model.User
	var info, data []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Handle, &info, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	u.Info = model.NewJSON(info)
	u.Data = model.NewJSON(data)
	return &u, true, nil
}

// Delete removes a user (cascading to their subscriptions).
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	return err
}

// UpdateInfo writes back a user's info blob (the PUT .../info `over` flag is
// resolved by the caller before calling this — it always overwrites).
func (s *UserStore) UpdateInfo(ctx context.Context, id int64, info model.JSON) error {
	_, err := s.pool.Exec(ctx, `UPDATE "user" SET info = $1 WHERE id = $2`, rawOrEmpty(info), id)
	return err
}

// UpdateData writes back a user's opaque data blob (spec §4.8 expansion:
// PUT /u/{pk}/data).
func (s *UserStore) UpdateData(ctx context.Context, id int64, data model.JSON) error {
	_, err := s.pool.Exec(ctx, `UPDATE "user" SET data = $1 WHERE id = $2`, rawOrEmpty(data), id)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
