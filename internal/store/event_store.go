package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hydraverse/hyvedb/internal/model"
)

// EventStore backs the durable, claim-based event queue (spec §3 Event,
// §4.5).
type EventStore struct {
	pool *pgxpool.Pool
}

// Append inserts an event row, opportunistically purging expired rows first
// with a separate DELETE in the same transaction (spec §4.5: "runs opportunistically on every
// insert"), and returns the row with its real, post-insert id — resolving
// the spec's Open Question about the racy pre-insert id computation in
// favour of the id Postgres actually assigned.
func (s *EventStore) Append(ctx context.Context, kind model.EventKind, payload model.JSON) (*model.Event, error) {
	e := &model.Event{Kind: kind, Payload: payload}
	err := WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM event WHERE expires_at < now()`); err != nil {
			return err
		}
		now := time.Now()
		e.CreatedAt = now
		e.ExpiresAt = now.Add(model.EventTTL)
		return tx.QueryRow(ctx,
			`INSERT INTO event (created_at, expires_at, kind, payload, claim)
			 VALUES ($1, $2, $3, $4, '{}') RETURNING id`,
			e.CreatedAt, e.ExpiresAt, string(e.Kind), rawOrEmpty(e.Payload),
		).Scan(&e.ID)
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SetPayload overwrites an already-inserted event's payload. Used to patch
// the real, server-assigned id into a BlockSSEResult payload once it is
// known, since the id can only be known after the initial insert.
func (s *EventStore) SetPayload(ctx context.Context, id int64, payload model.JSON) error {
	_, err := s.pool.Exec(ctx, `UPDATE event SET payload = $1 WHERE id = $2`, rawOrEmpty(payload), id)
	return err
}

// PurgeExpired deletes rows past their expiry — also invoked on a standalone
// ticker per spec §5 ("the Event table is the only unbounded writer; it
// must be purged on every insert"), in case ingestion stalls.
func (s *EventStore) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM event WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ClaimBatch returns the lowest-id unexpired rows of kind not yet claimed
// by claimant, atomically marking them claimed, in strictly increasing id
// order (spec §4.5, §8 "ClaimBatch returns events in id order").
func (s *EventStore) ClaimBatch(ctx context.Context, kind model.EventKind, claimant string, limit int) ([]*model.Event, error) {
	var out []*model.Event
	err := WithSerializableTx(ctx, s.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, created_at, expires_at, kind, payload, claim
			 FROM event
			 WHERE kind = $1 AND expires_at >= now() AND NOT ($2 = ANY(claim))
			 ORDER BY id ASC LIMIT $3 FOR UPDATE`,
			string(kind), claimant, limit)
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			e, err := scanEvent(rows)
			if err != nil {
				rows.Close()
				return err
			}
			e.Claims = append(e.Claims, claimant)
			out = append(out, e)
			ids = append(ids, e.ID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`UPDATE event SET claim = array_append(claim, $1) WHERE id = ANY($2)`, claimant, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	var kind string
	var payload []byte
	if err := row.Scan(&e.ID, &e.CreatedAt, &e.ExpiresAt, &kind, &payload, &e.Claims); err != nil {
		return nil, err
	}
	e.Kind = model.EventKind(kind)
	e.Payload = model.NewJSON(payload)
	return &e, nil
}
