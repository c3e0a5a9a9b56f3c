package models

// State is a step of the per-sender conversation.
type State string

const (
	StateIdle              State = "IDLE"
	StateWaitingName       State = "WAITING_NAME"
	StateWaitingDesc       State = "WAITING_DESC"
	StateWaitingDate       State = "WAITING_DATE"
	StateWaitingSearch     State = "WAITING_SEARCH"
	StateWaitingSelectTask State = "WAITING_SELECT_TASK"
)

func (s State) String() string { return string(s) }
