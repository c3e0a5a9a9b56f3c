package handlers

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/looplab/fsm"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"telegram-customer-calendar/internal/metrics"
	"telegram-customer-calendar/internal/models"
)

// conversation events
const (
	evAdd    = "add"
	evName   = "name"
	evDesc   = "desc"
	evSave   = "save"
	evSearch = "search"
	evFound  = "found"
	evList   = "list"
	evSelect = "select"
	evReset  = "reset"
)

var allStates = []string{
	models.StateIdle.String(),
	models.StateWaitingName.String(),
	models.StateWaitingDesc.String(),
	models.StateWaitingDate.String(),
	models.StateWaitingSearch.String(),
	models.StateWaitingSelectTask.String(),
}

// draft collects the answers of the add-appointment flow.
type draft struct {
	customer string
	content  string
}

type session struct {
	machine *fsm.FSM
	draft   draft
}

func newSession() *session {
	s := &session{}
	s.machine = fsm.NewFSM(
		models.StateIdle.String(),
		fsm.Events{
			{Name: evAdd, Src: []string{models.StateIdle.String()}, Dst: models.StateWaitingName.String()},
			{Name: evName, Src: []string{models.StateWaitingName.String()}, Dst: models.StateWaitingDesc.String()},
			{Name: evDesc, Src: []string{models.StateWaitingDesc.String()}, Dst: models.StateWaitingDate.String()},
			{Name: evSave, Src: []string{models.StateWaitingDate.String()}, Dst: models.StateIdle.String()},
			{Name: evSearch, Src: allStates, Dst: models.StateWaitingSearch.String()},
			{Name: evFound, Src: []string{models.StateWaitingSearch.String()}, Dst: models.StateIdle.String()},
			{Name: evList, Src: []string{models.StateIdle.String()}, Dst: models.StateWaitingSelectTask.String()},
			{Name: evSelect, Src: []string{models.StateWaitingSelectTask.String()}, Dst: models.StateIdle.String()},
			{Name: evReset, Src: allStates, Dst: models.StateIdle.String()},
		},
		fsm.Callbacks{
			"enter_" + models.StateIdle.String(): func(_ context.Context, _ *fsm.Event) {
				s.draft = draft{}
			},
		},
	)
	return s
}

func (s *session) state() models.State {
	return models.State(s.machine.Current())
}

// fire moves the session along. Re-entering the current state is not an error.
func (s *session) fire(ctx context.Context, event string) error {
	err := s.machine.Event(ctx, event)
	var same fsm.NoTransitionError
	if err != nil && !errors.As(err, &same) {
		return errors.Wrapf(err, "conversation %s in %s", event, s.machine.Current())
	}
	return nil
}

func (s *session) reset(ctx context.Context) {
	s.draft = draft{}
	_ = s.fire(ctx, evReset)
}

// Conversations keeps one session per sender. Senders idle for longer than
// the TTL, or pushed out by newer ones once the size limit is hit, start
// over at IDLE.
type Conversations struct {
	sessions *expirable.LRU[string, *session]
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
}

func NewConversations(maxSenders int, idleTTL time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) *Conversations {
	c := &Conversations{metrics: m, log: log}
	c.sessions = expirable.NewLRU[string, *session](maxSenders, func(chatID string, _ *session) {
		c.log.Debugw("conversation evicted", "chat", chatID)
	}, idleTTL)
	return c
}

// session returns the sender's session, creating it on first contact, and
// restarts its idle timer.
func (c *Conversations) session(chatID string) *session {
	s, ok := c.sessions.Get(chatID)
	if !ok {
		s = newSession()
	}
	c.sessions.Add(chatID, s)
	c.metrics.Conversations(c.sessions.Len())
	return s
}

// State reports where a sender is in the conversation. Unknown senders are IDLE.
func (c *Conversations) State(chatID string) models.State {
	if s, ok := c.sessions.Peek(chatID); ok {
		return s.state()
	}
	return models.StateIdle
}

func (c *Conversations) Len() int {
	return c.sessions.Len()
}
