package handlers

import (
	"context"
	"strings"

	"telegram-customer-calendar/internal/models"
)

// HandleMessage routes one text from an allow-listed chat. Stateless
// commands win over whatever the sender's conversation expects next.
func (h *Handler) HandleMessage(ctx context.Context, cfg models.TelegramConfig, chatID, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	s := h.Conv.session(chatID)

	if h.isCancel(text) {
		s.reset(ctx)
		h.showMenu(ctx, cfg, chatID)
		return
	}
	if h.handleCommand(ctx, cfg, chatID, text, s) {
		return
	}
	h.handleText(ctx, cfg, chatID, text, s)
}

func (h *Handler) isCancel(text string) bool {
	return oneOf(text, "/start", "/menu", "menü", "menu", h.Labels.Cancel)
}

// handleText advances the sender's conversation.
func (h *Handler) handleText(ctx context.Context, cfg models.TelegramConfig, chatID, text string, s *session) {
	switch s.state() {
	case models.StateIdle:
		h.handleIdle(ctx, cfg, chatID, text, s)
	case models.StateWaitingName:
		h.handleName(ctx, cfg, chatID, text, s)
	case models.StateWaitingDesc:
		h.handleDesc(ctx, cfg, chatID, text, s)
	case models.StateWaitingDate:
		h.handleDate(ctx, cfg, chatID, text, s)
	case models.StateWaitingSearch:
		h.handleSearch(ctx, cfg, chatID, text, s)
	case models.StateWaitingSelectTask:
		h.handleSelect(ctx, cfg, chatID, text, s)
	}
}
