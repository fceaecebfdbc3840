package model

import "time"

// EventType names a workflow notification.
type EventType string

// Workflow notifications.
const (
	EventSubmitted   EventType = "entry.submitted"
	EventApproved    EventType = "entry.approved"
	EventReturned    EventType = "entry.returned"
	EventMentorScore EventType = "entry.mentor_scored"
)

// TransitionEvent describes a committed change to an entry's workflow state.
type TransitionEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	EntryID    string    `json:"entry_id"`
	EmployeeID string    `json:"employee_id"`
	ClientID   string    `json:"client_id"`
	Month      string    `json:"month"`
	Status     Status    `json:"status"`
	MonthScore *float64  `json:"month_score,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Comment    string    `json:"comment,omitempty"`
	At         time.Time `json:"at"`
}
