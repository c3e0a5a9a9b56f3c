package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"telegram-customer-calendar/internal/models"
)

type stickyRow struct {
	ID           string `db:"id"`
	Color        string `db:"color"`
	Title        string `db:"title"`
	Blocks       string `db:"blocks"`
	Pinned       bool   `db:"pinned"`
	Archived     bool   `db:"archived"`
	ReminderDate string `db:"reminder_date"`
	ReminderTime string `db:"reminder_time"`
	CreatedAt    int64  `db:"created_at"`
}

const stickyCols = `id, color, title, blocks, pinned, archived, reminder_date, reminder_time, created_at`

func (r stickyRow) model() (models.StickyNote, error) {
	n := models.StickyNote{
		ID:           r.ID,
		Color:        r.Color,
		Title:        r.Title,
		Pinned:       r.Pinned,
		Archived:     r.Archived,
		ReminderDate: r.ReminderDate,
		ReminderTime: r.ReminderTime,
		CreatedAt:    time.Unix(r.CreatedAt, 0),
	}
	if err := json.Unmarshal([]byte(r.Blocks), &n.Blocks); err != nil {
		return n, errors.Wrapf(err, "decode blocks of %s", r.ID)
	}
	return n, nil
}

func encodeBlocks(blocks []models.Block) (string, error) {
	if blocks == nil {
		blocks = []models.Block{}
	}
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = newID()
		}
		if blocks[i].Type == "" {
			blocks[i].Type = models.BlockText
		}
	}
	b, err := json.Marshal(blocks)
	return string(b), errors.Wrap(err, "encode blocks")
}

func (d *DB) CreateStickyNote(ctx context.Context, n *models.StickyNote) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.clk.Now()
	}
	blocks, err := encodeBlocks(n.Blocks)
	if err != nil {
		return err
	}
	_, err = d.ExecContext(ctx, `
        INSERT INTO sticky_notes (`+stickyCols+`)
        VALUES (?,?,?,?,?,?,?,?,?)
    `, n.ID, n.Color, n.Title, blocks, n.Pinned, n.Archived, n.ReminderDate, n.ReminderTime, n.CreatedAt.Unix())
	return errors.Wrapf(err, "insert sticky note %s", n.ID)
}

func (d *DB) GetStickyNote(ctx context.Context, id string) (*models.StickyNote, error) {
	var row stickyRow
	err := d.GetContext(ctx, &row, `SELECT `+stickyCols+` FROM sticky_notes WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get sticky note %s", id)
	}
	n, err := row.model()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListStickyNotes returns pinned notes first, then by creation.
func (d *DB) ListStickyNotes(ctx context.Context) ([]models.StickyNote, error) {
	var rows []stickyRow
	if err := d.SelectContext(ctx, &rows, `SELECT `+stickyCols+` FROM sticky_notes ORDER BY pinned DESC, created_at, id`); err != nil {
		return nil, errors.Wrap(err, "list sticky notes")
	}
	res := make([]models.StickyNote, 0, len(rows))
	for _, r := range rows {
		n, err := r.model()
		if err != nil {
			return nil, err
		}
		res = append(res, n)
	}
	return res, nil
}

// UpdateStickyNote replaces every field of the stored note.
func (d *DB) UpdateStickyNote(ctx context.Context, n models.StickyNote) error {
	blocks, err := encodeBlocks(n.Blocks)
	if err != nil {
		return err
	}
	res, err := d.ExecContext(ctx, `
        UPDATE sticky_notes SET color = ?, title = ?, blocks = ?, pinned = ?, archived = ?,
            reminder_date = ?, reminder_time = ?
        WHERE id = ?
    `, n.Color, n.Title, blocks, n.Pinned, n.Archived, n.ReminderDate, n.ReminderTime, n.ID)
	if err != nil {
		return errors.Wrapf(err, "update sticky note %s", n.ID)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) DeleteStickyNote(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM sticky_notes WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete sticky note %s", id)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return ErrNotFound
	}
	return nil
}

// AddBlock appends b to the note and returns it with its id filled in.
func (d *DB) AddBlock(ctx context.Context, noteID string, b models.Block) (models.Block, error) {
	n, err := d.GetStickyNote(ctx, noteID)
	if err != nil {
		return b, err
	}
	if b.ID == "" {
		b.ID = newID()
	}
	n.Blocks = append(n.Blocks, b)
	return b, d.UpdateStickyNote(ctx, *n)
}

// DeleteBlock removes a block for good; the order of the others is kept.
func (d *DB) DeleteBlock(ctx context.Context, noteID, blockID string) error {
	n, err := d.GetStickyNote(ctx, noteID)
	if err != nil {
		return err
	}
	kept := n.Blocks[:0]
	for _, b := range n.Blocks {
		if b.ID != blockID {
			kept = append(kept, b)
		}
	}
	if len(kept) == len(n.Blocks) {
		return ErrNotFound
	}
	n.Blocks = kept
	return d.UpdateStickyNote(ctx, *n)
}
