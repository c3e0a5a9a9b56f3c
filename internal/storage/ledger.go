package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// Notified reports whether a reminder for (kind, id) already went out on day.
func (d *DB) Notified(ctx context.Context, kind, id, day string) (bool, error) {
	var c int
	err := d.GetContext(ctx, &c, `
        SELECT 1 FROM reminder_ledger WHERE kind = ? AND entity_id = ? AND day = ?`, kind, id, day)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "read reminder ledger")
	}
	return c == 1, nil
}

func (d *DB) MarkNotified(ctx context.Context, kind, id, day string, at time.Time) error {
	_, err := d.ExecContext(ctx, `
        INSERT OR IGNORE INTO reminder_ledger (kind, entity_id, day, notified_at)
        VALUES (?,?,?,?)`, kind, id, day, at.Unix())
	return errors.Wrap(err, "write reminder ledger")
}

// PruneLedger drops entries recorded before the given instant.
func (d *DB) PruneLedger(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, `DELETE FROM reminder_ledger WHERE notified_at < ?`, before.Unix())
	if err != nil {
		return 0, errors.Wrap(err, "prune reminder ledger")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
