package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hydraverse/hyvedb/internal/model"
)

// CascadeOrphanAddress implements spec §3's ownership note: "Removing the
// last subscriber from an address triggers cascading delete of that
// address's orphan histories and the now-empty blocks pointed to by them."
// Called after a UserAddr delete once the caller has confirmed addrID has
// no remaining subscribers. It deletes every AddrHist row for addrID, then
// deletes any block left with zero history rows that has already reached
// maturity (spec §3 Block invariant: "conf >= MATURITY and history = empty
// is a deletion pre-condition" — an immature, now-historyless block is
// still retained, per the same invariant's first clause).
func CascadeOrphanAddress(ctx context.Context, s *Store, addrID int64) error {
	return WithSerializableTx(ctx, s.Pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `SELECT DISTINCT block_id FROM addr_hist WHERE addr_id = $1`, addrID)
		if err != nil {
			return err
		}
		var blockIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			blockIDs = append(blockIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM addr_hist WHERE addr_id = $1`, addrID); err != nil {
			return err
		}

		for _, blockID := range blockIDs {
			var conf, histCount int
			err := tx.QueryRow(ctx,
				`SELECT conf, (SELECT count(*) FROM addr_hist WHERE block_id = block.id) FROM block WHERE id = $1`,
				blockID,
			).Scan(&conf, &histCount)
			if err != nil {
				return err
			}
			if histCount == 0 && conf >= model.Maturity {
				if _, err := tx.Exec(ctx, `DELETE FROM block WHERE id = $1`, blockID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
