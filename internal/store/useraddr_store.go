package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// ErrUniqueName is returned when a subscription name collides with another
// of the same user's subscriptions (spec §3 UserAddr invariant).
var ErrUniqueName = errors.New("store: subscription name already used by this user")

// ErrAlreadySubscribed is returned on a duplicate (user, address) pair.
var ErrAlreadySubscribed = errors.New("store: user already subscribed to this address")

// UserAddrStore persists subscriptions and the UserAddrHist checkpoints
// driven by ingestion (spec §3, §4.7).
type UserAddrStore struct {
	pool *pgxpool.Pool
}

// Create adds a new (user, addr) subscription under name.
func (s *UserAddrStore) Create(ctx context.Context, userID, addrID int64, name string) (*model.UserAddr, error) {
	ua := &model.UserAddr{UserID: userID, AddrID: addrID, Name: name, Info: model.NewJSON(nil), Data: model.NewJSON(nil)}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_addr (user_id, addr_id, name, block_c, info, data)
		 VALUES ($1, $2, $3, 0, '{}', '{}') RETURNING id`,
		userID, addrID, name,
	).Scan(&ua.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "user_addr_user_id_name_key" {
		return nil, ErrUniqueName
	}
	if isUniqueViolation(err) {
		return nil, ErrAlreadySubscribed
	}
	if err != nil {
		return nil, err
	}
	return ua, nil
}

// GetByUserAndAddr reads a subscription by (user, address).
func (s *UserAddrStore) GetByUserAndAddr(ctx context.Context, userID, addrID int64) (*model.UserAddr, bool, error) {
	return s.get(ctx, `SELECT id, user_id, addr_id, name, block_t, block_c, info, data, watched_tokens
		FROM user_addr WHERE user_id = $1 AND addr_id = $2`, userID, addrID)
}

// GetByID reads a subscription by surrogate id.
func (s *UserAddrStore) GetByID(ctx context.Context, id int64) (*model.UserAddr, bool, error) {
	return s.get(ctx, `SELECT id, user_id, addr_id, name, block_t, block_c, info, data, watched_tokens
		FROM user_addr WHERE id = $1`, id)
}

// ListByUser lists a user's subscriptions with id > afterID, oldest first
// (ascending id) — backs
// GET /u/{pk}/a/ (spec §4.8 expansion).
func (s *UserAddrStore) ListByUser(ctx context.Context, userID int64, afterID int64, limit int) ([]*model.UserAddr, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, addr_id, name, block_t, block_c, info, data, watched_tokens
		 FROM user_addr WHERE user_id = $1 AND id > $2 ORDER BY id ASC LIMIT $3`,
		userID, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.UserAddr
	for rows.Next() {
		ua, err := scanUserAddr(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ua)
	}
	return out, rows.Err()
}

func (s *UserAddrStore) get(ctx context.Context, query string, args ...any) (*model.UserAddr, bool, error) {
	row := s.pool.QueryRow(ctx, query, args...)
	ua, err := scanUserAddr(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return ua, true, nil
}

func scanUserAddr(row rowScanner) (*model.UserAddr, error) {
	var ua model.UserAddr
	var info, data []byte
	var blockT *time.Time
	if err := row.Scan(&ua.ID, &ua.UserID, &ua.AddrID, &ua.Name, &blockT, &ua.BlockC, &info, &data, &ua.WatchedTokens); err != nil {
		return nil, err
	}
	if blockT != nil {
		ua.BlockT = *blockT
	}
	ua.Info = model.NewJSON(info)
	ua.Data = model.NewJSON(data)
	return &ua, nil
}

// Delete removes a subscription (cascading to its UserAddrHist rows).
func (s *UserAddrStore) Delete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_addr WHERE id = $1`, id)
	return err
}

// Update patches a subscription's name/info/data (spec §6 PATCH
// /u/{pk}/a/{ua}).
func (s *UserAddrStore) Update(ctx context.Context, id int64, name *string, info, data *model.JSON) error {
	if name != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE user_addr SET name = $1 WHERE id = $2`, *name, id); isUniqueViolation(err) {
			return ErrUniqueName
		} else if err != nil {
			return err
		}
	}
	if info != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE user_addr SET info = $1 WHERE id = $2`, rawOrEmpty(*info), id); err != nil {
			return err
		}
	}
	if data != nil {
		if _, err := s.pool.Exec(ctx, `UPDATE user_addr SET data = $1 WHERE id = $2`, rawOrEmpty(*data), id); err != nil {
			return err
		}
	}
	return nil
}

// AddWatchedToken appends a watched-token hex address (spec §6 POST
// .../t), de-duplicating.
func (s *UserAddrStore) AddWatchedToken(ctx context.Context, id int64, tokenHex string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_addr SET watched_tokens = array_append(watched_tokens, $1)
		 WHERE id = $2 AND NOT ($1 = ANY(watched_tokens))`, tokenHex, id)
	return err
}

// RemoveWatchedToken removes a watched-token hex address (spec §6 DELETE
// .../t/{addr}).
func (s *UserAddrStore) RemoveWatchedToken(ctx context.Context, id int64, tokenHex string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_addr SET watched_tokens = array_remove(watched_tokens, $1) WHERE id = $2`, tokenHex, id)
	return err
}

// CreditMinedBlockTx bumps a subscription's block_t/block_c after it mines
// a block (spec §4.7: "the subscription's block_t is set to the block's
// timestamp and block_c is incremented").
func CreditMinedBlockTx(ctx context.Context, tx pgx.Tx, userAddrID int64, blockTime time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE user_addr SET block_t = $1, block_c = block_c + 1 WHERE id = $2`, blockTime, userAddrID)
	return err
}

// RestoreCounterTx restores a subscription's block_t/block_c from a
// checkpoint about to be discarded on fork rewind (spec §4.4 case 1, §4.7).
func RestoreCounterTx(ctx context.Context, tx pgx.Tx, userAddrID int64, blockT time.Time, blockC int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE user_addr SET block_t = $1, block_c = $2 WHERE id = $3`, nullableTime(blockT), blockC, userAddrID)
	return err
}

// SnapshotTx reads a subscription's current block_t/block_c inside tx, for
// use as the UserAddrHist checkpoint taken "before crediting this block"
// (spec §4.7).
func SnapshotTx(ctx context.Context, tx pgx.Tx, userAddrID int64) (blockT time.Time, blockC int64, err error) {
	var t *time.Time
	err = tx.QueryRow(ctx, `SELECT block_t, block_c FROM user_addr WHERE id = $1`, userAddrID).Scan(&t, &blockC)
	if t != nil {
		blockT = *t
	}
	return blockT, blockC, err
}

// SubscribersOfTx returns the (UserAddr) subscriptions referencing addrID —
// the "if it has at least one subscriber" check in spec §4.3 step 6.
func SubscribersOfTx(ctx context.Context, tx pgx.Tx, addrID int64) ([]int64, error) {
	rows, err := tx.Query(ctx, `SELECT id FROM user_addr WHERE addr_id = $1`, addrID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// NameTx returns a subscription's current name, for building the
// BlockSSEResult's per-subscriber view (spec §6 UserAddrHistView).
func NameTx(ctx context.Context, tx pgx.Tx, userAddrID int64) (string, error) {
	var name string
	err := tx.QueryRow(ctx, `SELECT name FROM user_addr WHERE id = $1`, userAddrID).Scan(&name)
	return name, err
}
