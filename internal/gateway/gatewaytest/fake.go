// Package gatewaytest provides an in-memory Telegram client.
package gatewaytest

import (
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"telegram-customer-calendar/internal/gateway"
)

// Sent is one captured outbound call.
type Sent struct {
	Chat     string
	Text     string
	Markup   any
	Document string
	Callback string
}

// Client records every call. Chats listed in Fail are rejected.
type Client struct {
	mu      sync.Mutex
	Fail    map[string]bool
	Updates [][]tgbotapi.Update
	Offsets []int
	sent    []Sent
}

func NewClient() *Client {
	return &Client{Fail: map[string]bool{}}
}

// Factory returns a gateway factory that always hands out c.
func (c *Client) Factory() gateway.Factory {
	return func(string) (gateway.Client, error) { return c, nil }
}

func chatOf(b tgbotapi.BaseChat) string {
	if b.ChannelUsername != "" {
		return b.ChannelUsername
	}
	return strconv.FormatInt(b.ChatID, 10)
}

func (c *Client) Send(ch tgbotapi.Chattable) (tgbotapi.Message, error) {
	var s Sent
	switch m := ch.(type) {
	case tgbotapi.MessageConfig:
		s = Sent{Chat: chatOf(m.BaseChat), Text: m.Text, Markup: m.ReplyMarkup}
	case tgbotapi.DocumentConfig:
		s = Sent{Chat: chatOf(m.BaseChat), Text: m.Caption, Document: fileName(m.File)}
	default:
		return tgbotapi.Message{}, errors.Errorf("unexpected chattable %T", ch)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail[s.Chat] {
		return tgbotapi.Message{}, errors.Errorf("chat %s unreachable", s.Chat)
	}
	c.sent = append(c.sent, s)
	return tgbotapi.Message{MessageID: len(c.sent)}, nil
}

func fileName(f tgbotapi.RequestFileData) string {
	if fb, ok := f.(tgbotapi.FileBytes); ok {
		return fb.Name
	}
	return ""
}

func (c *Client) Request(ch tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	cb, ok := ch.(tgbotapi.CallbackConfig)
	if !ok {
		return nil, errors.Errorf("unexpected request %T", ch)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, Sent{Callback: cb.CallbackQueryID, Text: cb.Text})
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// GetUpdates pops the next queued batch.
func (c *Client) GetUpdates(cfg tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Offsets = append(c.Offsets, cfg.Offset)
	if len(c.Updates) == 0 {
		return nil, nil
	}
	batch := c.Updates[0]
	c.Updates = c.Updates[1:]
	return batch, nil
}

// Sent returns a copy of everything captured so far.
func (c *Client) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Messages returns only text messages.
func (c *Client) Messages() []Sent {
	var out []Sent
	for _, s := range c.Sent() {
		if s.Callback == "" && s.Document == "" {
			out = append(out, s)
		}
	}
	return out
}
