package messages

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/models"
)

const (
	NoStickyNotes = "📭 Listenizde hiç not bulunmuyor."
	untitledNote  = "Yapışkan Not"
)

// Escape makes user text safe inside an HTML parse-mode message.
func Escape(s string) string {
	return html.EscapeString(s)
}

// ---------- sticky notes ----------

func blockLines(b *strings.Builder, blocks []models.Block) {
	for _, bl := range blocks {
		if bl.Type == models.BlockTodo {
			mark := "⬜"
			if bl.Done {
				mark = "✅"
			}
			b.WriteString(mark + " ")
		}
		b.WriteString(Escape(bl.Content) + "\n")
	}
}

// StickyList renders every non-archived note. Untitled notes are numbered
// by their position in the list.
func StickyList(notes []models.StickyNote) string {
	var b strings.Builder
	b.WriteString("📝 <b>Yapışkan Notlarınız:</b>\n\n")
	n := 0
	for _, note := range notes {
		if note.Archived {
			continue
		}
		n++
		title := note.Title
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Not %d", n)
		}
		fmt.Fprintf(&b, "📌 <b>%s</b>\n", Escape(title))
		blockLines(&b, note.Blocks)
		b.WriteString("\n")
	}
	if n == 0 {
		return NoStickyNotes
	}
	return b.String()
}

// StickyReminder is the text fired when a sticky note's reminder is due.
func StickyReminder(note models.StickyNote) string {
	title := note.Title
	if strings.TrimSpace(title) == "" {
		title = untitledNote
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⏰ <b>HATIRLATICI: %s</b>\n\n", Escape(title))
	blockLines(&b, note.Blocks)
	return b.String()
}

// ---------- appointments ----------

// AppointmentReminder is the text fired when an appointment is due.
func AppointmentReminder(a models.Appointment) string {
	return fmt.Sprintf("🔔 <b>BUGÜNÜN RANDEVUSU</b>\n👤 %s\n🕐 Saat: %s\n📝 %s",
		Escape(a.Customer), a.Time, Escape(a.Content))
}

// Announcement tells the chats about an appointment created outside the bot.
func Announcement(a models.Appointment, recurring bool, loc *time.Location) string {
	head := "🆕 <b>Yeni Randevu</b>"
	if recurring {
		head += " (Tekrarlı)"
	}
	date := a.Date
	if t, err := calendar.ParseKey(a.Date, loc); err == nil {
		date = calendar.FormatDMY(t)
	}
	return fmt.Sprintf("%s\n👤 %s\n📅 %s - %s\n📝 %s", head, Escape(a.Customer), date, a.Time, Escape(a.Content))
}

// Card is the search result / detail view of one appointment.
func Card(a models.Appointment) string {
	status := "⏳ Bekliyor"
	if a.Completed {
		status = "✅ Tamamlandı"
	}
	return fmt.Sprintf("👤 <b>%s</b>\n📅 %s - %s\n📝 %s\n%s",
		Escape(a.Customer), a.Date, a.Time, Escape(a.Content), status)
}

// Pending returns the not-completed appointments ordered by date then time.
func Pending(appts []models.Appointment) []models.Appointment {
	var out []models.Appointment
	for _, a := range appts {
		if !a.Completed {
			out = append(out, a)
		}
	}
	sortByDateTime(out)
	return out
}

// Completed returns completed appointments, most recent date first, capped at limit.
func Completed(appts []models.Appointment, limit int) []models.Appointment {
	var out []models.Appointment
	for _, a := range appts {
		if a.Completed {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// InRange keeps appointments whose date key falls in [from, to].
func InRange(appts []models.Appointment, from, to string) []models.Appointment {
	var out []models.Appointment
	for _, a := range appts {
		if a.Date >= from && a.Date <= to {
			out = append(out, a)
		}
	}
	sortByDateTime(out)
	return out
}

func sortByDateTime(appts []models.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}

// DayHeading formats a date key with format, falling back to the raw key.
func DayHeading(key string, loc *time.Location, format func(time.Time) string) string {
	t, err := calendar.ParseKey(key, loc)
	if err != nil {
		return key
	}
	return format(t)
}

// Grouped writes at most limit appointments, emitting header whenever the day
// changes. It returns how many were left out.
func Grouped(b *strings.Builder, appts []models.Appointment, limit int, header func(date string) string, line func(a models.Appointment) string) int {
	day := ""
	for i, a := range appts {
		if i == limit {
			return len(appts) - limit
		}
		if a.Date != day {
			b.WriteString(header(a.Date))
			day = a.Date
		}
		b.WriteString(line(a))
	}
	return 0
}
