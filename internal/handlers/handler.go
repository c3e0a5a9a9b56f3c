package handlers

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/messages"
	"telegram-customer-calendar/internal/models"
)

// DATE_FALLBACK values.
const (
	FallbackToday  = "today"
	FallbackReject = "reject"
)

// NoteStore is the slice of the store the bot mutates.
type NoteStore interface {
	CreateAppointment(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	ListAppointments(ctx context.Context) ([]models.Appointment, error)
	UpdateAppointment(ctx context.Context, id string, p models.AppointmentPatch) error
	DeleteAppointment(ctx context.Context, id string) error
	ListStickyNotes(ctx context.Context) ([]models.StickyNote, error)
}

type Notifier interface {
	SendMessage(ctx context.Context, cfg models.TelegramConfig, msg gateway.Message) bool
	AnswerCallbackQuery(ctx context.Context, token, callbackID, text string)
}

type DigestSender interface {
	Send(ctx context.Context, cfg models.TelegramConfig, kind messages.Kind, to string) error
}

type Handler struct {
	Store   NoteStore
	Out     Notifier
	Digests DigestSender
	Conv    *Conversations

	Labels       Labels
	Loc          *time.Location
	Clock        clock.Clock
	DateFallback string

	Log *zap.SugaredLogger
}

func (h *Handler) now() time.Time {
	return h.Clock.Now().In(h.Loc)
}

// ---------- replies ----------

func (h *Handler) send(ctx context.Context, cfg models.TelegramConfig, chatID, text string) {
	h.Out.SendMessage(ctx, cfg, gateway.Message{Text: text, To: chatID})
}

func (h *Handler) sendKeyboard(ctx context.Context, cfg models.TelegramConfig, chatID, text string, kb tgbotapi.ReplyKeyboardMarkup) {
	h.Out.SendMessage(ctx, cfg, gateway.Message{Text: text, To: chatID, Keyboard: &kb})
}

func (h *Handler) sendInline(ctx context.Context, cfg models.TelegramConfig, chatID, text string, kb tgbotapi.InlineKeyboardMarkup) {
	h.Out.SendMessage(ctx, cfg, gateway.Message{Text: text, To: chatID, Inline: &kb})
}

func (h *Handler) showMenu(ctx context.Context, cfg models.TelegramConfig, chatID string) {
	h.sendKeyboard(ctx, cfg, chatID, txtMainMenu, h.mainMenu())
}

// ---------- keyboards ----------

func row(labels ...string) []tgbotapi.KeyboardButton {
	var btns []tgbotapi.KeyboardButton
	for _, l := range labels {
		if l != "" {
			btns = append(btns, tgbotapi.NewKeyboardButton(l))
		}
	}
	return tgbotapi.NewKeyboardButtonRow(btns...)
}

func (h *Handler) mainMenu() tgbotapi.ReplyKeyboardMarkup {
	l := h.Labels
	return tgbotapi.NewReplyKeyboard(
		row(l.AddAppointment, l.Search),
		row(first(l.AllAppointments), l.ThisWeek),
		row(l.Completed, first(l.StickyNotes)),
		row(l.Report, first(l.PendingList)),
		row(l.Cancel),
	)
}

func (h *Handler) cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(row(h.Labels.Cancel))
}

// descKeyboard lays the quick choices out two per row.
func (h *Handler) descKeyboard() tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	choices := h.Labels.DescChoices
	for i := 0; i < len(choices); i += 2 {
		end := i + 2
		if end > len(choices) {
			end = len(choices)
		}
		rows = append(rows, row(choices[i:end]...))
	}
	rows = append(rows, row(h.Labels.Cancel))
	return tgbotapi.NewReplyKeyboard(rows...)
}

func (h *Handler) dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		row(h.Labels.Today, h.Labels.Tomorrow),
		row(h.Labels.Cancel),
	)
}

func (h *Handler) taskKeyboard(appts []models.Appointment) tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(appts)+1)
	for _, a := range appts {
		rows = append(rows, row(taskLabel(a)))
	}
	rows = append(rows, row(h.Labels.Cancel))
	return tgbotapi.NewReplyKeyboard(rows...)
}

// cardButtons puts complete and delete side by side, or stacked for the
// detail view.
func (h *Handler) cardButtons(id string, stacked bool) tgbotapi.InlineKeyboardMarkup {
	complete := tgbotapi.NewInlineKeyboardButtonData(h.Labels.CompleteButton, actionComplete+"_"+id)
	del := tgbotapi.NewInlineKeyboardButtonData(h.Labels.DeleteButton, actionDelete+"_"+id)
	if stacked {
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(complete),
			tgbotapi.NewInlineKeyboardRow(del),
		)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(complete, del))
}
