package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmhodges/clock"
	"github.com/pkg/errors"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/models"
)

// Kind names a digest that can be pushed to the configured chats.
type Kind string

const (
	KindNotes        Kind = "notes"
	KindAppointments Kind = "appointments"
	KindCompleted    Kind = "completed"
	KindWeek         Kind = "week"
	KindBackup       Kind = "backup"
	KindCalendar     Kind = "calendar"
)

var Kinds = []Kind{KindNotes, KindAppointments, KindCompleted, KindWeek, KindBackup, KindCalendar}

var (
	ErrNothingToSend = errors.New("nothing to send")
	ErrNotDelivered  = errors.New("telegram delivery failed")
)

const (
	pendingDigestLimit   = 30
	completedDigestLimit = 20
)

type Source interface {
	ListAppointments(ctx context.Context) ([]models.Appointment, error)
	ListStickyNotes(ctx context.Context) ([]models.StickyNote, error)
}

type Sender interface {
	SendMessage(ctx context.Context, cfg models.TelegramConfig, msg gateway.Message) bool
	SendDocument(ctx context.Context, cfg models.TelegramConfig, doc gateway.Document) bool
}

// Digests renders store contents and pushes them through the gateway.
type Digests struct {
	store Source
	out   Sender
	loc   *time.Location
	clk   clock.Clock
}

func NewDigests(store Source, out Sender, loc *time.Location, clk clock.Clock) *Digests {
	return &Digests{store: store, out: out, loc: loc, clk: clk}
}

// Send delivers one digest. An empty to means every configured chat.
func (d *Digests) Send(ctx context.Context, cfg models.TelegramConfig, kind Kind, to string) error {
	if !cfg.Active() {
		return errors.New("telegram bot is disabled or has no token")
	}

	switch kind {
	case KindBackup:
		doc, err := d.backup(ctx, cfg)
		if err != nil {
			return err
		}
		doc.To = to
		return delivered(d.out.SendDocument(ctx, cfg, doc))
	case KindCalendar:
		doc, err := d.calendar(ctx)
		if err != nil {
			return err
		}
		doc.To = to
		return delivered(d.out.SendDocument(ctx, cfg, doc))
	}

	text, err := d.Render(ctx, kind)
	if err != nil {
		return err
	}
	return delivered(d.out.SendMessage(ctx, cfg, gateway.Message{Text: text, To: to}))
}

func delivered(ok bool) error {
	if !ok {
		return ErrNotDelivered
	}
	return nil
}

// Render builds the text of a message digest. ErrNothingToSend means the
// digest would be empty.
func (d *Digests) Render(ctx context.Context, kind Kind) (string, error) {
	if kind == KindNotes {
		notes, err := d.store.ListStickyNotes(ctx)
		if err != nil {
			return "", errors.Wrap(err, "list sticky notes")
		}
		text := StickyList(notes)
		if text == NoStickyNotes {
			return "", ErrNothingToSend
		}
		return text, nil
	}

	appts, err := d.store.ListAppointments(ctx)
	if err != nil {
		return "", errors.Wrap(err, "list appointments")
	}

	var b strings.Builder
	switch kind {
	case KindAppointments:
		pending := Pending(appts)
		if len(pending) == 0 {
			return "", ErrNothingToSend
		}
		b.WriteString("📅 <b>Bekleyen Randevular Listesi</b>\n\n")
		Grouped(&b, pending, pendingDigestLimit,
			func(date string) string {
				return "\n🔻 <b>" + DayHeading(date, d.loc, calendar.FormatDayMonth) + "</b>\n"
			},
			func(a models.Appointment) string {
				return "🕐 " + a.Time + " - " + Escape(a.Customer) + "\n"
			})

	case KindCompleted:
		done := Completed(appts, completedDigestLimit)
		if len(done) == 0 {
			return "", ErrNothingToSend
		}
		b.WriteString("✅ <b>Tamamlanan İşlemler</b>\n\n")
		for _, a := range done {
			fmt.Fprintf(&b, "👤 %s\n└ %s\n\n", Escape(a.Customer), Escape(a.Content))
		}

	case KindWeek:
		start, end := calendar.WeekBounds(d.clk.Now().In(d.loc))
		week := InRange(appts, calendar.DateKey(start), calendar.DateKey(end))
		if len(week) == 0 {
			return "", ErrNothingToSend
		}
		fmt.Fprintf(&b, "📅 <b>Bu Hafta (%s - %s)</b>\n\n", calendar.FormatDMY(start), calendar.FormatDMY(end))
		for _, a := range week {
			day := DayHeading(a.Date, d.loc, func(t time.Time) string {
				return fmt.Sprintf("%d %s", t.Day(), string([]rune(calendar.MonthName(t.Month()))[:3]))
			})
			fmt.Fprintf(&b, "%s | %s - %s\n", day, a.Time, Escape(a.Customer))
		}

	default:
		return "", errors.Errorf("unknown digest %q", kind)
	}
	return b.String(), nil
}

type backupFile struct {
	Notes          []models.Appointment `json:"notes"`
	StickyNotes    []models.StickyNote  `json:"stickyNotes"`
	TelegramConfig backupTelegram       `json:"telegramConfig"`
	ExportDate     time.Time            `json:"exportDate"`
}

// The token stays out of the file: backups travel through the chat itself.
type backupTelegram struct {
	ChatIDs        string `json:"chatId"`
	Enabled        bool   `json:"enabled"`
	WebhookEnabled bool   `json:"webhookEnabled"`
}

func (d *Digests) backup(ctx context.Context, cfg models.TelegramConfig) (gateway.Document, error) {
	appts, err := d.store.ListAppointments(ctx)
	if err != nil {
		return gateway.Document{}, errors.Wrap(err, "list appointments")
	}
	notes, err := d.store.ListStickyNotes(ctx)
	if err != nil {
		return gateway.Document{}, errors.Wrap(err, "list sticky notes")
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	if notes == nil {
		notes = []models.StickyNote{}
	}

	now := d.clk.Now().In(d.loc)
	body, err := json.MarshalIndent(backupFile{
		Notes:       appts,
		StickyNotes: notes,
		TelegramConfig: backupTelegram{
			ChatIDs:        cfg.ChatIDs,
			Enabled:        cfg.Enabled,
			WebhookEnabled: cfg.WebhookEnabled,
		},
		ExportDate: now.UTC(),
	}, "", "  ")
	if err != nil {
		return gateway.Document{}, errors.Wrap(err, "encode backup")
	}

	return gateway.Document{
		Name:    "yedek_" + calendar.DateKey(now) + ".json",
		Content: body,
		Caption: "📦 <b>Sistem Yedeği</b>\n📅 Tarih: " + now.Format("02.01.2006 15:04"),
	}, nil
}

func (d *Digests) calendar(ctx context.Context) (gateway.Document, error) {
	appts, err := d.store.ListAppointments(ctx)
	if err != nil {
		return gateway.Document{}, errors.Wrap(err, "list appointments")
	}
	pending := Pending(appts)
	if len(pending) == 0 {
		return gateway.Document{}, ErrNothingToSend
	}

	now := d.clk.Now().In(d.loc)
	return gateway.Document{
		Name:    "takvim_" + calendar.DateKey(now) + ".ics",
		Content: []byte(calendar.ExportICS(pending, d.loc, now)),
		Caption: fmt.Sprintf("🗓️ <b>Takvim</b>\n%d bekleyen randevu", len(pending)),
	}, nil
}
