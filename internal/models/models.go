package models

import (
	"strings"
	"time"
)

// Appointment is a customer record shown on the calendar.
type Appointment struct {
	ID           string            `db:"id"            json:"id"`
	Customer     string            `db:"customer"      json:"customer"`
	Content      string            `db:"content"       json:"content"`
	Date         string            `db:"date"          json:"date"` // YYYY-MM-DD
	Time         string            `db:"time"          json:"time"` // HH:MM
	Completed    bool              `db:"completed"     json:"completed"`
	CompletedAt  *time.Time        `db:"-"             json:"completedAt,omitempty"`
	CreatedAt    time.Time         `db:"-"             json:"createdAt"`
	CustomValues map[string]string `db:"-"             json:"customValues,omitempty"` // field id -> value
	RecurrenceID string            `db:"recurrence_id" json:"recurrenceId,omitempty"`
}

// AppointmentPatch carries the fields of a partial update. Nil fields are left
// untouched. When Completed is set, CompletedAt is written as well (nil clears it).
type AppointmentPatch struct {
	Customer     *string
	Content      *string
	Date         *string
	Time         *string
	Completed    *bool
	CompletedAt  *time.Time
	CustomValues map[string]string
}

type BlockType string

const (
	BlockText BlockType = "text"
	BlockTodo BlockType = "todo"
)

// Block is one line of a sticky note.
type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type"`
	Content string    `json:"content"`
	Done    bool      `json:"done"`
}

// StickyNote is a free-form card with ordered blocks.
type StickyNote struct {
	ID           string    `db:"id"            json:"id"`
	Color        string    `db:"color"         json:"color"`
	Title        string    `db:"title"         json:"title"`
	Blocks       []Block   `db:"-"             json:"blocks"`
	Pinned       bool      `db:"pinned"        json:"pinned"`
	Archived     bool      `db:"archived"      json:"archived"`
	ReminderDate string    `db:"reminder_date" json:"reminderDate,omitempty"` // YYYY-MM-DD
	ReminderTime string    `db:"reminder_time" json:"reminderTime,omitempty"` // HH:MM
	CreatedAt    time.Time `db:"-"             json:"createdAt"`
}

// TelegramConfig is the bot connection as edited in settings.
type TelegramConfig struct {
	BotToken       string `db:"bot_token"       json:"botToken"`
	ChatIDs        string `db:"chat_ids"        json:"chatId"` // comma separated
	Enabled        bool   `db:"enabled"         json:"enabled"`
	WebhookEnabled bool   `db:"webhook_enabled" json:"webhookEnabled"`
}

// Recipients splits the configured chat ids, dropping empty entries.
func (c TelegramConfig) Recipients() []string {
	var ids []string
	for _, id := range strings.Split(c.ChatIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Allows reports whether chatID is on the allow-list.
func (c TelegramConfig) Allows(chatID string) bool {
	chatID = strings.TrimSpace(chatID)
	for _, id := range c.Recipients() {
		if id == chatID {
			return true
		}
	}
	return false
}

// Active reports whether the bot should talk to Telegram at all.
func (c TelegramConfig) Active() bool {
	return c.Enabled && strings.TrimSpace(c.BotToken) != ""
}

// Reminder ledger kinds.
const (
	KindAppointment = "appointment"
	KindSticky      = "sticky"
)
