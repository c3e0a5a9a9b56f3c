package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"telegram-customer-calendar/internal/calendar"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/models"
)

const taskPrefix = "🔹 "

var taskRx = regexp.MustCompile(`^🔹 (.*) \((\d{4}-\d{2}-\d{2})\)$`)

func taskLabel(a models.Appointment) string {
	return fmt.Sprintf("%s%s (%s)", taskPrefix, a.Customer, a.Date)
}

func (h *Handler) advance(ctx context.Context, chatID string, s *session, event string) {
	if err := s.fire(ctx, event); err != nil {
		h.Log.Warnw("conversation step", "chat", chatID, "err", err)
	}
}

// ---------- IDLE ----------
func (h *Handler) handleIdle(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	switch {
	case text == h.Labels.AddAppointment:
		h.advance(ctx, chatID, s, evAdd)
		h.sendKeyboard(ctx, cfg, chatID, txtAskName, h.cancelKeyboard())

	case oneOf(text, h.Labels.PendingList...):
		appts, ok := h.appointments(ctx, chatID)
		if !ok {
			return
		}
		pending := messages.Pending(appts)
		if len(pending) == 0 {
			h.send(ctx, cfg, chatID, txtNoPendingWork)
			return
		}
		if len(pending) > taskLimit {
			pending = pending[:taskLimit]
		}
		h.advance(ctx, chatID, s, evList)
		h.sendKeyboard(ctx, cfg, chatID, txtSelectTask, h.taskKeyboard(pending))

	default:
		h.showMenu(ctx, cfg, chatID)
	}
}

// ---------- add appointment flow ----------
func (h *Handler) handleName(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	s.draft.customer = text
	h.advance(ctx, chatID, s, evName)
	h.sendKeyboard(ctx, cfg, chatID, fmt.Sprintf(txtAskDesc, messages.Escape(text)), h.descKeyboard())
}

func (h *Handler) handleDesc(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	s.draft.content = text
	h.advance(ctx, chatID, s, evDesc)
	h.sendKeyboard(ctx, cfg, chatID, txtAskDate, h.dateKeyboard())
}

// resolveDate maps the date answer to a day. ok is false when the text is
// neither a quick choice nor a valid D.M.YYYY date.
func (h *Handler) resolveDate(text string) (time.Time, bool) {
	today := calendar.StartOfDay(h.now())
	switch text {
	case h.Labels.Today:
		return today, true
	case h.Labels.Tomorrow:
		return today.AddDate(0, 0, 1), true
	}
	return calendar.ParseDMY(text, h.Loc)
}

func (h *Handler) handleDate(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	day, ok := h.resolveDate(text)
	if !ok {
		if h.DateFallback == FallbackReject {
			h.sendKeyboard(ctx, cfg, chatID, txtDateHint, h.dateKeyboard())
			return
		}
		day = calendar.StartOfDay(h.now())
		h.Log.Infow("unparsed date, using today", "chat", chatID, "text", text)
	}

	a := &models.Appointment{
		Customer: s.draft.customer,
		Content:  s.draft.content,
		Date:     calendar.DateKey(day),
		Time:     defaultTime,
	}
	if err := h.Store.CreateAppointment(ctx, a); err != nil {
		h.Log.Errorw("create appointment", "chat", chatID, "customer", a.Customer, "err", err)
	}

	h.advance(ctx, chatID, s, evSave)
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtSaved, messages.Escape(a.Customer), calendar.FormatDMY(day), calendar.WeekdayName(day)))
	h.showMenu(ctx, cfg, chatID)
}

// ---------- search flow ----------
func (h *Handler) handleSearch(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	h.advance(ctx, chatID, s, evFound)

	results, ok := h.search(ctx, chatID, text)
	if !ok {
		h.showMenu(ctx, cfg, chatID)
		return
	}
	if len(results) == 0 {
		h.send(ctx, cfg, chatID, fmt.Sprintf(txtFlowNone, messages.Escape(text)))
	} else {
		h.send(ctx, cfg, chatID, fmt.Sprintf(txtFlowHead, messages.Escape(text)))
		h.sendCards(ctx, cfg, chatID, results)
	}
	h.showMenu(ctx, cfg, chatID)
}

// ---------- pending list selection ----------
func (h *Handler) handleSelect(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	h.advance(ctx, chatID, s, evSelect)

	if a, ok := h.selected(ctx, chatID, text); ok {
		card := fmt.Sprintf("👤 <b>%s</b>\n📅 %s %s\n📝 %s%s",
			messages.Escape(a.Customer), a.Date, a.Time, messages.Escape(a.Content), txtDetailFooter)
		h.sendInline(ctx, cfg, chatID, card, h.cardButtons(a.ID, true))
	}
	h.showMenu(ctx, cfg, chatID)
}

// selected resolves a task button back to its appointment: by the name and
// date inside the label, then by name alone, then by any customer name the
// text contains. Pending appointments are preferred.
func (h *Handler) selected(ctx context.Context, chatID, text string) (models.Appointment, bool) {
	appts, ok := h.appointments(ctx, chatID)
	if !ok {
		return models.Appointment{}, false
	}
	name, date := strings.TrimPrefix(text, taskPrefix), ""
	if m := taskRx.FindStringSubmatch(text); m != nil {
		name, date = m[1], m[2]
	}

	candidates := append(messages.Pending(appts), appts...)
	for _, a := range candidates {
		if a.Customer == name && a.Date == date {
			return a, true
		}
	}
	for _, a := range candidates {
		if a.Customer == name {
			return a, true
		}
	}
	for _, a := range candidates {
		if a.Customer != "" && strings.Contains(text, a.Customer) {
			return a, true
		}
	}
	return models.Appointment{}, false
}
