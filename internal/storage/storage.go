package storage

import (
	"context"
	"database/sql"
	"embed"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"telegram-customer-calendar/internal/models"
)

//go:embed schema.sql
var ddl embed.FS

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// DB is the note store: appointments, sticky notes, the reminder ledger, the
// update cursor and the Telegram settings.
type DB struct {
	*sqlx.DB
	clk clock.Clock
}

func New(path string) (*DB, error) {
	return NewWithClock(path, clock.New())
}

func NewWithClock(path string, clk clock.Clock) (*DB, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// modernc sqlite serializes writers anyway; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err = migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{DB: db, clk: clk}, nil
}

func migrate(db *sqlx.DB) error {
	b, err := ddl.ReadFile("schema.sql")
	if err != nil {
		return errors.Wrap(err, "read schema")
	}
	_, err = db.Exec(string(b))
	return errors.Wrap(err, "apply schema")
}

// newID returns a time ordered identifier.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// ---------- telegram settings -----------------------------------------------

func (d *DB) TelegramConfig(ctx context.Context) (models.TelegramConfig, error) {
	var cfg models.TelegramConfig
	err := d.GetContext(ctx, &cfg, `
        SELECT bot_token, chat_ids, enabled, webhook_enabled
        FROM telegram_settings WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TelegramConfig{}, nil
	}
	return cfg, errors.Wrap(err, "load telegram settings")
}

func (d *DB) SaveTelegramConfig(ctx context.Context, cfg models.TelegramConfig) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO telegram_settings (id, bot_token, chat_ids, enabled, webhook_enabled)
        VALUES (1, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET bot_token=excluded.bot_token,
            chat_ids=excluded.chat_ids,
            enabled=excluded.enabled,
            webhook_enabled=excluded.webhook_enabled
    `, cfg.BotToken, cfg.ChatIDs, cfg.Enabled, cfg.WebhookEnabled)
	return errors.Wrap(err, "save telegram settings")
}

// SeedTelegramConfig stores cfg only when no settings exist yet.
func (d *DB) SeedTelegramConfig(ctx context.Context, cfg models.TelegramConfig) (bool, error) {
	res, err := d.ExecContext(ctx, `
        INSERT OR IGNORE INTO telegram_settings (id, bot_token, chat_ids, enabled, webhook_enabled)
        VALUES (1, ?, ?, ?, ?)
    `, cfg.BotToken, cfg.ChatIDs, cfg.Enabled, cfg.WebhookEnabled)
	if err != nil {
		return false, errors.Wrap(err, "seed telegram settings")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ---------- update cursor ---------------------------------------------------

// LastUpdateID returns the last processed update id, 0 when nothing was processed.
func (d *DB) LastUpdateID(ctx context.Context) (int, error) {
	var id int
	err := d.GetContext(ctx, &id, `SELECT last_update_id FROM bot_cursor WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, errors.Wrap(err, "load update cursor")
}

// SaveLastUpdateID moves the cursor forward; it never goes back.
func (d *DB) SaveLastUpdateID(ctx context.Context, id int) error {
	_, err := d.ExecContext(ctx, `
        INSERT INTO bot_cursor (id, last_update_id) VALUES (1, ?)
        ON CONFLICT(id) DO UPDATE SET last_update_id = MAX(last_update_id, excluded.last_update_id)
    `, id)
	return errors.Wrap(err, "save update cursor")
}
