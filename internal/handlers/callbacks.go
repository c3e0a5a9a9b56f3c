package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/models"
	"telegram-customer-calendar/internal/storage"
)

// callback_data is "<action>_<appointment id>"
const (
	actionComplete = "complete"
	actionDelete   = "delete"
)

// HandleCallback resolves an inline button press. Every press is answered,
// even unknown ones, so the client stops its spinner.
func (h *Handler) HandleCallback(ctx context.Context, cfg models.TelegramConfig, chatID string, cq *tgbotapi.CallbackQuery) {
	action, id, _ := strings.Cut(cq.Data, "_")
	id = strings.TrimSpace(id)

	var toast string
	switch action {
	case actionComplete:
		toast = h.toggleComplete(ctx, cfg, chatID, id)
	case actionDelete:
		toast = h.deleteAppointment(ctx, cfg, chatID, id)
	default:
		h.Log.Debugw("unknown callback", "chat", chatID, "data", cq.Data)
	}
	h.Out.AnswerCallbackQuery(ctx, cfg.BotToken, cq.ID, toast)
}

// lookup loads the appointment behind a button. It returns nil when the
// record is gone or the store failed.
func (h *Handler) lookup(ctx context.Context, id string) *models.Appointment {
	a, err := h.Store.GetAppointment(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.Log.Errorw("get appointment", "id", id, "err", err)
		}
		return nil
	}
	return a
}

func (h *Handler) toggleComplete(ctx context.Context, cfg models.TelegramConfig, chatID, id string) string {
	a := h.lookup(ctx, id)
	if a == nil {
		return toastMissing
	}

	completing := !a.Completed
	patch := models.AppointmentPatch{Completed: &completing}
	if completing {
		now := h.Clock.Now()
		patch.CompletedAt = &now
	}
	if err := h.Store.UpdateAppointment(ctx, a.ID, patch); err != nil {
		h.Log.Errorw("toggle appointment", "id", a.ID, "err", err)
	}

	icon, status, toast := "↩️", "Bekliyor", toastReopened
	if completing {
		icon, status, toast = "✅", "Tamamlandı", toastCompleted
	}
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtStatus, icon, messages.Escape(a.Customer), status))
	return toast
}

func (h *Handler) deleteAppointment(ctx context.Context, cfg models.TelegramConfig, chatID, id string) string {
	a := h.lookup(ctx, id)
	if a == nil {
		return toastMissing
	}
	if err := h.Store.DeleteAppointment(ctx, a.ID); err != nil {
		h.Log.Errorw("delete appointment", "id", a.ID, "err", err)
	}
	h.send(ctx, cfg, chatID, fmt.Sprintf(txtDeleted, messages.Escape(a.Customer)))
	return toastDeleted
}
