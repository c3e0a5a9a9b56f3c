package gateway_test

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/gateway"
	"telegram-customer-calendar/internal/gateway/gatewaytest"
	"telegram-customer-calendar/internal/models"
)

func newGateway(c *gatewaytest.Client) *gateway.Gateway {
	return gateway.New(c.Factory(), 0, zap.NewNop().Sugar(), nil)
}

func TestSendMessageContinuesAfterFailure(t *testing.T) {
	c := gatewaytest.NewClient()
	c.Fail["111"] = true
	g := newGateway(c)

	ok := g.SendMessage(context.Background(), models.TelegramConfig{BotToken: "t", ChatIDs: "111,222"}, gateway.Message{Text: "hi"})
	assert.True(t, ok)

	sent := c.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "222", sent[0].Chat)
	assert.Equal(t, "hi", sent[0].Text)
}

func TestSendMessageReportsTotalFailure(t *testing.T) {
	c := gatewaytest.NewClient()
	c.Fail["111"] = true
	g := newGateway(c)

	assert.False(t, g.SendMessage(context.Background(), models.TelegramConfig{BotToken: "t", ChatIDs: "111"}, gateway.Message{Text: "x"}))
	assert.False(t, g.SendMessage(context.Background(), models.TelegramConfig{BotToken: "t"}, gateway.Message{Text: "x"}))
	assert.False(t, g.SendMessage(context.Background(), models.TelegramConfig{ChatIDs: "222"}, gateway.Message{Text: "x"}))
	assert.Empty(t, c.Sent())
}

func TestSendMessageMarkup(t *testing.T) {
	c := gatewaytest.NewClient()
	g := newGateway(c)
	cfg := models.TelegramConfig{BotToken: "t", ChatIDs: "1"}

	reply := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("a")))
	inline := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("b", "complete_1")))

	g.SendMessage(context.Background(), cfg, gateway.Message{Text: "1", Keyboard: &reply})
	g.SendMessage(context.Background(), cfg, gateway.Message{Text: "2", Keyboard: &reply, Inline: &inline})
	g.SendMessage(context.Background(), cfg, gateway.Message{Text: "3"})

	sent := c.Messages()
	require.Len(t, sent, 3)
	assert.IsType(t, tgbotapi.ReplyKeyboardMarkup{}, sent[0].Markup)
	assert.IsType(t, tgbotapi.InlineKeyboardMarkup{}, sent[1].Markup)
	assert.Nil(t, sent[2].Markup)
}

func TestSendMessageOverrideAndChannel(t *testing.T) {
	c := gatewaytest.NewClient()
	g := newGateway(c)
	cfg := models.TelegramConfig{BotToken: "t", ChatIDs: "1,2"}

	require.True(t, g.SendMessage(context.Background(), cfg, gateway.Message{Text: "x", To: "@shop"}))
	sent := c.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "@shop", sent[0].Chat)
}

func TestSendDocument(t *testing.T) {
	c := gatewaytest.NewClient()
	g := newGateway(c)

	ok := g.SendDocument(context.Background(), models.TelegramConfig{BotToken: "t", ChatIDs: "5"},
		gateway.Document{Name: "yedek.json", Content: []byte("{}"), Caption: "cap"})
	require.True(t, ok)

	sent := c.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "yedek.json", sent[0].Document)
	assert.Equal(t, "cap", sent[0].Text)
	assert.Equal(t, "5", sent[0].Chat)
}

func TestAnswerCallbackQuery(t *testing.T) {
	c := gatewaytest.NewClient()
	g := newGateway(c)

	g.AnswerCallbackQuery(context.Background(), "t", "cb1", "İş Tamamlandı!")
	g.AnswerCallbackQuery(context.Background(), "", "cb2", "ignored")

	sent := c.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "cb1", sent[0].Callback)
	assert.Equal(t, "İş Tamamlandı!", sent[0].Text)
}

func TestClientIsCachedPerToken(t *testing.T) {
	calls := 0
	g := gateway.New(func(string) (gateway.Client, error) {
		calls++
		return gatewaytest.NewClient(), nil
	}, 0, zap.NewNop().Sugar(), nil)

	a, err := g.Client("t1")
	require.NoError(t, err)
	b, err := g.Client(" t1 ")
	require.NoError(t, err)
	_, err = g.Client("t2")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 2, calls)

	_, err = g.Client("")
	assert.Error(t, err)
}
