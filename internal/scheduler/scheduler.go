package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jmhodges/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/metrics"
	"telegram-customer-calendar/internal/models"
)

type Store interface {
	TelegramConfig(ctx context.Context) (models.TelegramConfig, error)
	ListAppointments(ctx context.Context) ([]models.Appointment, error)
	ListStickyNotes(ctx context.Context) ([]models.StickyNote, error)
	Notified(ctx context.Context, kind, id, day string) (bool, error)
	MarkNotified(ctx context.Context, kind, id, day string, at time.Time) error
	PruneLedger(ctx context.Context, before time.Time) (int64, error)
}

type Sender interface {
	SendMessage(ctx context.Context, cfg models.TelegramConfig, msg gateway.Message) bool
}

// Reminders fires due appointment and sticky note reminders once per entity
// and day.
type Reminders struct {
	store     Store
	out       Sender
	loc       *time.Location
	clk       clock.Clock
	tolerance time.Duration
	retention time.Duration
	log       *zap.SugaredLogger
	metrics   *metrics.Metrics
}

func NewReminders(store Store, out Sender, loc *time.Location, clk clock.Clock, tolerance, retention time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) *Reminders {
	return &Reminders{
		store:     store,
		out:       out,
		loc:       loc,
		clk:       clk,
		tolerance: tolerance,
		retention: retention,
		log:       log,
		metrics:   m,
	}
}

// Scan runs one reminder pass. A reminder is due from its target minute until
// tolerance has passed (at least the whole minute), so a skipped tick does not
// lose it.
func (r *Reminders) Scan(ctx context.Context) {
	cfg, err := r.store.TelegramConfig(ctx)
	if err != nil {
		r.log.Warnw("read telegram settings", "err", err)
		return
	}
	if !cfg.Active() {
		return
	}
	now := r.clk.Now().In(r.loc)

	appts, err := r.store.ListAppointments(ctx)
	if err != nil {
		r.log.Warnw("list appointments", "err", err)
	}
	for _, a := range appts {
		if a.Completed {
			continue
		}
		r.fire(ctx, cfg, now, models.KindAppointment, a.ID, a.Date, a.Time, messages.AppointmentReminder(a))
	}

	notes, err := r.store.ListStickyNotes(ctx)
	if err != nil {
		r.log.Warnw("list sticky notes", "err", err)
	}
	for _, n := range notes {
		if n.Archived || n.ReminderDate == "" || n.ReminderTime == "" {
			continue
		}
		r.fire(ctx, cfg, now, models.KindSticky, n.ID, n.ReminderDate, n.ReminderTime, messages.StickyReminder(n))
	}

	if r.retention > 0 {
		if _, err := r.store.PruneLedger(ctx, now.Add(-r.retention)); err != nil {
			r.log.Warnw("prune reminder ledger", "err", err)
		}
	}
}

func (r *Reminders) fire(ctx context.Context, cfg models.TelegramConfig, now time.Time, kind, id, date, hm, text string) {
	target, err := calendar.Instant(date, hm, r.loc)
	if err != nil {
		return
	}
	// The window never shrinks below the target minute itself.
	window := max(r.tolerance, time.Minute)
	if now.Before(target) || !now.Before(target.Add(window)) {
		return
	}

	done, err := r.store.Notified(ctx, kind, id, date)
	if err != nil {
		r.log.Warnw("check reminder ledger", "kind", kind, "id", id, "err", err)
		return
	}
	if done {
		return
	}

	// Recorded only after delivery so a failed send is retried next tick.
	if !r.out.SendMessage(ctx, cfg, gateway.Message{Text: text}) {
		r.log.Warnw("reminder not delivered", "kind", kind, "id", id)
		return
	}
	r.metrics.Reminder(kind)
	if err := r.store.MarkNotified(ctx, kind, id, date, now); err != nil {
		r.log.Errorw("record reminder", "kind", kind, "id", id, "err", err)
	}
}

// Ticker is a periodic unit of work.
type Ticker interface {
	Tick(ctx context.Context)
}

// Start registers the update poll and the reminder scan on one scheduler.
// Each job skips a run while its previous one is still going.
func Start(ctx context.Context, loc *time.Location, poll Ticker, pollEvery time.Duration, rem *Reminders, remEvery time.Duration) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, errors.Wrap(err, "create scheduler")
	}

	jobs := []struct {
		name  string
		every time.Duration
		run   func()
	}{
		{"poll-updates", pollEvery, func() { poll.Tick(ctx) }},
		{"scan-reminders", remEvery, func() { rem.Scan(ctx) }},
	}
	for _, j := range jobs {
		_, err = s.NewJob(
			gocron.DurationJob(j.every),
			gocron.NewTask(j.run),
			gocron.WithName(j.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, errors.Wrapf(err, "register %s", j.name)
		}
	}

	s.Start()
	return s, nil
}
