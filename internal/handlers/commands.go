package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/models"
)

var addRx = regexp.MustCompile(`^/ekle\s+(.+?)\s+(\d{1,2}[./-]\d{1,2}[./-]\d{4})$`)

const (
	searchLimit = 5
	allLimit    = 50
	doneLimit   = 10
	taskLimit   = 10
)

// fold lowercases with Turkish rules so "İ" matches "i" and "I" matches "ı".
func fold(s string) string {
	return cases.Lower(language.Turkish).String(s)
}

// containsFold also tries plain lowercasing, which maps "I" to "i" for names
// typed without Turkish letters.
func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle)) ||
		strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// commandArg returns the argument of "/cmd arg". ok is false when text is
// some other command.
func commandArg(text, cmd string) (string, bool) {
	if text == cmd {
		return "", true
	}
	if rest, found := strings.CutPrefix(text, cmd); found && rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// handleCommand answers the stateless commands and menu synonyms, in priority
// order. It reports whether text was one of them.
func (h *Handler) handleCommand(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) bool {
	l := h.Labels

	if _, ok := commandArg(text, "/ekle"); ok {
		h.cmdAdd(ctx, cfg, chatID, text)
		return true
	}
	if arg, ok := commandArg(text, "/tamamla"); ok {
		h.cmdComplete(ctx, cfg, chatID, arg)
		return true
	}
	for _, cmd := range []string{"/bul", "/ara"} {
		if arg, ok := commandArg(text, cmd); ok && arg != "" {
			h.cmdSearch(ctx, cfg, chatID, arg)
			return true
		}
	}

	switch {
	case oneOf(text, append([]string{"/notlarım", "/notlarim"}, l.StickyNotes...)...):
		h.cmdStickyNotes(ctx, cfg, chatID)
	case oneOf(text, append([]string{"/randevular"}, l.AllAppointments...)...):
		h.cmdAllPending(ctx, cfg, chatID)
	case oneOf(text, "/buhafta", l.ThisWeek):
		h.cmdThisWeek(ctx, cfg, chatID)
	case oneOf(text, "/tamamlananlar", l.Completed):
		h.cmdCompleted(ctx, cfg, chatID)
	case oneOf(text, "/rapor", l.Report):
		h.cmdReport(ctx, cfg, chatID)
	case text == "/takvim":
		h.cmdDocument(ctx, cfg, chatID, messages.KindCalendar)
	case text == "/yedek":
		h.cmdDocument(ctx, cfg, chatID, messages.KindBackup)
	case oneOf(text, "/ara", "/bul", l.Search):
		if err := s.fire(ctx, evSearch); err != nil {
			h.Log.Warnw("enter search", "chat", chatID, "err", err)
		}
		h.sendKeyboard(ctx, cfg, chatID, txtAskSearch, h.cancelKeyboard())
	default:
		return false
	}
	return true
}

// ---------- /ekle ----------
func (h *Handler) cmdAdd(ctx context.Context, cfg models.TelegramConfig, chatID, text string) {
	m := addRx.FindStringSubmatch(text)
	if m == nil {
		h.send(ctx, cfg, chatID, txtAddUsage)
		return
	}
	day, ok := calendar.ParseDMY(m[2], h.Loc)
	if !ok {
		h.send(ctx, cfg, chatID, txtAddUsage)
		return
	}

	name := strings.TrimSpace(m[1])
	a := &models.Appointment{
		Customer: name,
		Content:  contentViaBot,
		Date:     calendar.DateKey(day),
		Time:     defaultTime,
	}
	if err := h.Store.CreateAppointment(ctx, a); err != nil {
		h.Log.Errorw("create appointment", "chat", chatID, "customer", name, "err", err)
	}

	dateRaw := strings.NewReplacer("/", ".", "-", ".").Replace(m[2])
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtAdded, messages.Escape(name), dateRaw, calendar.WeekdayName(day)))
}

// ---------- /tamamla ----------
func (h *Handler) cmdComplete(ctx context.Context, cfg models.TelegramConfig, chatID, query string) {
	if query == "" {
		h.send(ctx, cfg, chatID, txtDoneUsage)
		return
	}
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return
	}

	for _, a := range messages.Pending(appts) {
		if !containsFold(a.Customer, query) {
			continue
		}
		done, now := true, h.Clock.Now()
		if err := h.Store.UpdateAppointment(ctx, a.ID, models.AppointmentPatch{Completed: &done, CompletedAt: &now}); err != nil {
			h.Log.Errorw("complete appointment", "id", a.ID, "err", err)
		}
		h.send(ctx, cfg, chatID, fmt.Sprintf(txtCompleted, messages.Escape(a.Customer)))
		return
	}
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtNotFound, messages.Escape(fold(query))))
}

// ---------- /bul, /ara ----------
func (h *Handler) cmdSearch(ctx context.Context, cfg models.TelegramConfig, chatID, query string) {
	results, ok := h.search(ctx, chatID, query)
	if !ok {
		return
	}
	if len(results) == 0 {
		h.send(ctx, cfg, chatID, fmt.Sprintf(txtSearchNone, messages.Escape(fold(query))))
		return
	}
	h.send(ctx, cfg, chatID, txtSearchHead)
	h.sendCards(ctx, cfg, chatID, results)
}

func (h *Handler) search(ctx context.Context, chatID, query string) ([]models.Appointment, bool) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return nil, false
	}
	var out []models.Appointment
	for _, a := range appts {
		if containsFold(a.Customer, query) || containsFold(a.Content, query) {
			out = append(out, a)
			if len(out) == searchLimit {
				break
			}
		}
	}
	return out, true
}

func (h *Handler) sendCards(ctx context.Context, cfg models.TelegramConfig, chatID string, appts []models.Appointment) {
	for _, a := range appts {
		h.sendInline(ctx, cfg, chatID, messages.Card(a), h.cardButtons(a.ID, false))
	}
}

// ---------- lists ----------
func (h *Handler) cmdStickyNotes(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	notes, err := h.Store.ListStickyNotes(ctx)
	if err != nil {
		h.Log.Errorw("list sticky notes", "chat", chatID, "err", err)
		return
	}
	h.send(ctx, cfg, chatID, messages.StickyList(notes))
}

func (h *Handler) cmdAllPending(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return
	}
	pending := messages.Pending(appts)
	if len(pending) == 0 {
		h.send(ctx, cfg, chatID, txtAllNone)
		return
	}

	var b strings.Builder
	b.WriteString(txtAllHead)
	rest := messages.Grouped(&b, pending, allLimit,
		func(date string) string {
			return "\n🔻 <b>" + messages.DayHeading(date, h.Loc, calendar.FormatLong) + "</b>\n"
		},
		func(a models.Appointment) string {
			return "   🕐 " + a.Time + " - " + messages.Escape(a.Customer) + "\n"
		})
	if rest > 0 {
		fmt.Fprintf(&b, txtMore, rest)
	}
	h.send(ctx, cfg, chatID, b.String())
}

func (h *Handler) cmdThisWeek(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return
	}
	start, end := calendar.WeekBounds(h.now())
	from, to := calendar.DateKey(start), calendar.DateKey(end)
	week := messages.InRange(messages.Pending(appts), from, to)
	if len(week) == 0 {
		h.send(ctx, cfg, chatID, txtWeekNone)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, txtWeekHead, from, to)
	messages.Grouped(&b, week, len(week),
		func(date string) string {
			return "<b>" + messages.DayHeading(date, h.Loc, calendar.FormatShort) + "</b>\n"
		},
		func(a models.Appointment) string {
			return "   🕐 " + a.Time + " - " + messages.Escape(a.Customer) + "\n"
		})
	h.send(ctx, cfg, chatID, b.String())
}

func (h *Handler) cmdCompleted(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return
	}
	done := messages.Completed(appts, doneLimit)
	if len(done) == 0 {
		h.send(ctx, cfg, chatID, txtDoneNone)
		return
	}

	var b strings.Builder
	b.WriteString(txtDoneHead)
	for _, a := range done {
		fmt.Fprintf(&b, "👤 %s\n   📅 %s - %s\n\n", messages.Escape(a.Customer), a.Date, messages.Escape(a.Content))
	}
	h.send(ctx, cfg, chatID, b.String())
}

func (h *Handler) cmdReport(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return
	}
	today := calendar.DateKey(h.now())
	n := 0
	for _, a := range appts {
		if a.Date == today {
			n++
		}
	}
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtReport, n, len(appts)))
}

// ---------- documents ----------
func (h *Handler) cmdDocument(ctx context.Context, cfg models.TelegramConfig, chatID string, kind messages.Kind) {
	err := h.Digests.Send(ctx, cfg, kind, chatID)
	switch {
	case err == nil:
	case errors.Is(err, messages.ErrNothingToSend):
		h.send(ctx, cfg, chatID, txtAllNone)
	default:
		h.Log.Warnw("send document", "kind", kind, "chat", chatID, "err", err)
		h.send(ctx, cfg, chatID, txtSendFailed)
	}
}

// appointments loads the store, logging failures. The caller stays silent
// when ok is false.
func (h *Handler) appointments(ctx context.Context, chatID string) ([]models.Appointment, bool) {
	appts, err := h.Store.ListAppointments(ctx)
	if err != nil {
		h.Log.Errorw("list appointments", "chat", chatID, "err", err)
		return nil, false
	}
	return appts, true
}
