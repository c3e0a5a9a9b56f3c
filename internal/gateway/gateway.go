package gateway

import (
	"context"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"telegram-customer-calendar/internal/metrics"
	"telegram-customer-calendar/internal/models"
)

// Client is the part of *tgbotapi.BotAPI the bot uses.
type Client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Factory opens a client for a bot token.
type Factory func(token string) (Client, error)

// BotAPIFactory talks to the real Telegram API.
func BotAPIFactory(token string) (Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot init")
	}
	return bot, nil
}

// Message is one outbound text. Keyboard is a persistent reply keyboard,
// Inline carries callback buttons; when both are set only Inline is attached.
// To overrides the configured recipients with a single chat.
type Message struct {
	Text     string
	To       string
	Keyboard *tgbotapi.ReplyKeyboardMarkup
	Inline   *tgbotapi.InlineKeyboardMarkup
}

// Document is an in-memory file attachment.
type Document struct {
	Name    string
	Content []byte
	Caption string
	To      string
}

// Gateway fans messages out to the configured chats. It keeps no state besides
// a client per token.
type Gateway struct {
	factory Factory
	limiter *rate.Limiter
	log     *zap.SugaredLogger
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[string]Client
}

// New creates a gateway. perSecond <= 0 disables throttling.
func New(factory Factory, perSecond float64, log *zap.SugaredLogger, m *metrics.Metrics) *Gateway {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Gateway{
		factory: factory,
		limiter: rate.NewLimiter(limit, 1),
		log:     log,
		metrics: m,
		clients: make(map[string]Client),
	}
}

// Client returns the cached client for token, opening it on first use.
func (g *Gateway) Client(token string) (Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("bot token is empty")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[token]; ok {
		return c, nil
	}
	c, err := g.factory(token)
	if err != nil {
		return nil, err
	}
	g.clients[token] = c
	return c, nil
}

func recipients(cfg models.TelegramConfig, to string) []string {
	if to = strings.TrimSpace(to); to != "" {
		return []string{to}
	}
	return cfg.Recipients()
}

// chat splits a configured chat id into a numeric id or a @channel username.
func chat(id string) (int64, string) {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n, ""
	}
	return 0, id
}

// SendMessage delivers msg to every recipient in turn. A failed delivery is
// logged and does not stop the rest. It reports whether at least one
// delivery succeeded.
func (g *Gateway) SendMessage(ctx context.Context, cfg models.TelegramConfig, msg Message) bool {
	c, err := g.Client(cfg.BotToken)
	if err != nil {
		g.log.Debugw("send skipped", "err", err)
		return false
	}

	delivered := false
	for _, to := range recipients(cfg, msg.To) {
		if err := g.limiter.Wait(ctx); err != nil {
			return delivered
		}

		id, channel := chat(to)
		out := tgbotapi.NewMessage(id, msg.Text)
		out.ChannelUsername = channel
		out.ParseMode = tgbotapi.ModeHTML
		switch {
		case msg.Inline != nil:
			out.ReplyMarkup = *msg.Inline
		case msg.Keyboard != nil:
			out.ReplyMarkup = *msg.Keyboard
		}

		_, err := c.Send(out)
		g.metrics.Sent("sendMessage", err == nil)
		if err != nil {
			g.log.Warnw("telegram send failed", "chat", to, "err", err)
			continue
		}
		delivered = true
	}
	return delivered
}

// SendDocument uploads doc to every recipient. Same delivery rules as SendMessage.
func (g *Gateway) SendDocument(ctx context.Context, cfg models.TelegramConfig, doc Document) bool {
	c, err := g.Client(cfg.BotToken)
	if err != nil {
		g.log.Debugw("document skipped", "err", err)
		return false
	}

	delivered := false
	for _, to := range recipients(cfg, doc.To) {
		if err := g.limiter.Wait(ctx); err != nil {
			return delivered
		}

		id, channel := chat(to)
		out := tgbotapi.NewDocument(id, tgbotapi.FileBytes{Name: doc.Name, Bytes: doc.Content})
		out.ChannelUsername = channel
		out.Caption = doc.Caption
		out.ParseMode = tgbotapi.ModeHTML

		_, err := c.Send(out)
		g.metrics.Sent("sendDocument", err == nil)
		if err != nil {
			g.log.Warnw("telegram document failed", "chat", to, "file", doc.Name, "err", err)
			continue
		}
		delivered = true
	}
	return delivered
}

// AnswerCallbackQuery shows text as a toast for an inline button press.
// Failures are only logged.
func (g *Gateway) AnswerCallbackQuery(ctx context.Context, token, callbackID, text string) {
	c, err := g.Client(token)
	if err != nil {
		return
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return
	}
	// Request, not Send: the API answers with a bool, not a Message.
	_, err = c.Request(tgbotapi.NewCallback(callbackID, text))
	g.metrics.Sent("answerCallbackQuery", err == nil)
	if err != nil {
		g.log.Debugw("callback answer failed", "callback", callbackID, "err", err)
	}
}
