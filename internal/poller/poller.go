package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/metrics"
	"telegram-customer-calendar/internal/models"
	"telegram-customer-calendar/internal/utils"
)

// Store is where the poller reads settings and keeps its update cursor.
type Store interface {
	TelegramConfig(ctx context.Context) (models.TelegramConfig, error)
	LastUpdateID(ctx context.Context) (int, error)
	SaveLastUpdateID(ctx context.Context, id int) error
}

// Transport opens Bot API clients and sends replies.
type Transport interface {
	Client(token string) (gateway.Client, error)
	SendMessage(ctx context.Context, cfg models.TelegramConfig, msg gateway.Message) bool
}

// Dispatcher receives updates from allow-listed chats.
type Dispatcher interface {
	HandleCallback(ctx context.Context, cfg models.TelegramConfig, chatID string, q *tgbotapi.CallbackQuery)
	HandleMessage(ctx context.Context, cfg models.TelegramConfig, chatID, text string)
}

type Poller struct {
	store      Store
	transport  Transport
	dispatcher Dispatcher
	timeout    time.Duration
	log        *zap.SugaredLogger
	metrics    *metrics.Metrics

	mu     sync.Mutex
	loaded bool
	last   int
}

func New(store Store, transport Transport, dispatcher Dispatcher, timeout time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) *Poller {
	return &Poller{
		store:      store,
		transport:  transport,
		dispatcher: dispatcher,
		timeout:    timeout,
		log:        log,
		metrics:    m,
	}
}

// Tick fetches one batch of updates and dispatches them in order.
// The cursor is saved before each update is handled, so a crashing handler
// never causes the same update to be fetched again.
func (p *Poller) Tick(ctx context.Context) {
	cfg, err := p.store.TelegramConfig(ctx)
	if err != nil {
		p.log.Warnw("read telegram settings", "err", err)
		return
	}
	if !cfg.Active() || cfg.WebhookEnabled {
		return
	}

	client, err := p.transport.Client(cfg.BotToken)
	if err != nil {
		p.log.Warnw("telegram client", "err", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loaded {
		last, err := p.store.LastUpdateID(ctx)
		if err != nil {
			p.log.Warnw("load update cursor", "err", err)
			return
		}
		p.last, p.loaded = last, true
	}

	u := tgbotapi.NewUpdate(p.last + 1)
	u.Timeout = int(p.timeout / time.Second)
	u.Limit = 100
	updates, err := client.GetUpdates(u)
	if err != nil {
		p.metrics.PollError()
		p.log.Debugw("getUpdates failed", "offset", u.Offset, "err", err)
		return
	}

	for _, upd := range updates {
		if upd.UpdateID > p.last {
			p.last = upd.UpdateID
			if err := p.store.SaveLastUpdateID(ctx, p.last); err != nil {
				p.log.Warnw("save update cursor", "update_id", upd.UpdateID, "err", err)
			}
		}
		p.Dispatch(ctx, cfg, upd)
	}
}

// Dispatch routes a single update. Panics in handlers are logged and dropped.
func (p *Poller) Dispatch(ctx context.Context, cfg models.TelegramConfig, upd tgbotapi.Update) {
	defer utils.Recover(p.log, "update", "update_id", upd.UpdateID)

	if q := upd.CallbackQuery; q != nil {
		p.metrics.Update("callback")
		var chatID string
		if q.Message != nil && q.Message.Chat != nil {
			chatID = strconv.FormatInt(q.Message.Chat.ID, 10)
		}
		if !cfg.Allows(chatID) {
			p.metrics.Rejected()
			return
		}
		p.dispatcher.HandleCallback(ctx, cfg, chatID, q)
		return
	}

	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
		p.metrics.Update("other")
		return
	}
	p.metrics.Update("message")

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	text := strings.TrimSpace(msg.Text)

	if isIDCommand(text) {
		p.transport.SendMessage(ctx, cfg, gateway.Message{
			Text: fmt.Sprintf("İd numaranız: <code>%s</code>", chatID),
			To:   chatID,
		})
		return
	}
	if !cfg.Allows(chatID) {
		p.metrics.Rejected()
		p.log.Debugw("message from unknown chat dropped", "chat", chatID)
		return
	}
	p.dispatcher.HandleMessage(ctx, cfg, chatID, text)
}

func isIDCommand(text string) bool {
	return text == "/id" || strings.HasPrefix(text, "/id@")
}

// WebhookHandler accepts updates pushed by Telegram when webhook mode is on.
func (p *Poller) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var upd tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}

		cfg, err := p.store.TelegramConfig(r.Context())
		if err != nil {
			p.log.Warnw("read telegram settings", "err", err)
			http.Error(w, "settings unavailable", http.StatusInternalServerError)
			return
		}
		if cfg.Active() && cfg.WebhookEnabled {
			// Requests arrive concurrently; conversations expect one update at a time.
			p.mu.Lock()
			p.Dispatch(r.Context(), cfg, upd)
			p.mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	})
}
