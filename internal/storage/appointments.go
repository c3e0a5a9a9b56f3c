package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/models"
)

type appointmentRow struct {
	ID           string        `db:"id"`
	Customer     string        `db:"customer"`
	Content      string        `db:"content"`
	Date         string        `db:"date"`
	Time         string        `db:"time"`
	Completed    bool          `db:"completed"`
	CompletedAt  sql.NullInt64 `db:"completed_at"`
	CreatedAt    int64         `db:"created_at"`
	CustomValues string        `db:"custom_values"`
	RecurrenceID string        `db:"recurrence_id"`
}

const appointmentCols = `id, customer, content, date, time, completed, completed_at,
        created_at, custom_values, recurrence_id`

func (r appointmentRow) model() models.Appointment {
	a := models.Appointment{
		ID:           r.ID,
		Customer:     r.Customer,
		Content:      r.Content,
		Date:         r.Date,
		Time:         r.Time,
		Completed:    r.Completed,
		CreatedAt:    time.Unix(r.CreatedAt, 0),
		RecurrenceID: r.RecurrenceID,
	}
	if r.CompletedAt.Valid {
		t := time.Unix(r.CompletedAt.Int64, 0)
		a.CompletedAt = &t
	}
	if r.CustomValues != "" && r.CustomValues != "{}" {
		_ = json.Unmarshal([]byte(r.CustomValues), &a.CustomValues)
	}
	return a
}

func unixOrNull(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func encodeValues(v map[string]string) (string, error) {
	if len(v) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(v)
	return string(b), errors.Wrap(err, "encode custom values")
}

// ---------- create ----------------------------------------------------------

// CreateAppointment inserts a, assigning ID and CreatedAt when empty.
func (d *DB) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return insertAppointment(ctx, d.DB, a, d.clk.Now())
}

func insertAppointment(ctx context.Context, ex sqlx.ExecerContext, a *models.Appointment, now time.Time) error {
	if a.ID == "" {
		a.ID = newID()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	values, err := encodeValues(a.CustomValues)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
        INSERT INTO appointments (`+appointmentCols+`)
        VALUES (?,?,?,?,?,?,?,?,?,?)
    `, a.ID, a.Customer, a.Content, a.Date, a.Time, a.Completed, unixOrNull(a.CompletedAt),
		a.CreatedAt.Unix(), values, a.RecurrenceID)
	return errors.Wrapf(err, "insert appointment %s", a.ID)
}

// CreateSeries stores base and its recurring copies. Copies point back to
// the first occurrence through RecurrenceID.
func (d *DB) CreateSeries(ctx context.Context, base models.Appointment, r calendar.Repeat, loc *time.Location) ([]models.Appointment, error) {
	start, err := calendar.ParseKey(base.Date, loc)
	if err != nil {
		return nil, err
	}
	days, err := calendar.Expand(start, r)
	if err != nil {
		return nil, err
	}

	tx, err := d.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin series")
	}
	defer tx.Rollback()

	now := d.clk.Now()
	out := make([]models.Appointment, 0, len(days))
	for i, day := range days {
		a := base
		a.ID = ""
		a.Date = calendar.DateKey(day)
		if i > 0 {
			a.RecurrenceID = out[0].ID
		}
		if err := insertAppointment(ctx, tx, &a, now); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, errors.Wrap(tx.Commit(), "commit series")
}

// ---------- read ------------------------------------------------------------

func (d *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var row appointmentRow
	err := d.GetContext(ctx, &row, `SELECT `+appointmentCols+` FROM appointments WHERE id = ?`, strings.TrimSpace(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get appointment %s", id)
	}
	a := row.model()
	return &a, nil
}

// ListAppointments returns every appointment ordered by date, time.
func (d *DB) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	var rows []appointmentRow
	if err := d.SelectContext(ctx, &rows, `SELECT `+appointmentCols+` FROM appointments ORDER BY date, time, id`); err != nil {
		return nil, errors.Wrap(err, "list appointments")
	}
	res := make([]models.Appointment, 0, len(rows))
	for _, r := range rows {
		res = append(res, r.model())
	}
	return res, nil
}

// ---------- update / delete -------------------------------------------------

func (d *DB) UpdateAppointment(ctx context.Context, id string, p models.AppointmentPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Customer != nil {
		set("customer", *p.Customer)
	}
	if p.Content != nil {
		set("content", *p.Content)
	}
	if p.Date != nil {
		set("date", *p.Date)
	}
	if p.Time != nil {
		set("time", *p.Time)
	}
	if p.Completed != nil {
		set("completed", *p.Completed)
		set("completed_at", unixOrNull(p.CompletedAt))
	}
	if p.CustomValues != nil {
		values, err := encodeValues(p.CustomValues)
		if err != nil {
			return err
		}
		set("custom_values", values)
	}
	if len(sets) == 0 {
		return nil
	}

	res, err := d.ExecContext(ctx,
		`UPDATE appointments SET `+strings.Join(sets, ", ")+` WHERE id = ?`,
		append(args, strings.TrimSpace(id))...)
	if err != nil {
		return errors.Wrapf(err, "update appointment %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *DB) DeleteAppointment(ctx context.Context, id string) error {
	res, err := d.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return errors.Wrapf(err, "delete appointment %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
