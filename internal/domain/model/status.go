package model

// Status is the review state of a monthly entry.
type Status string

// Entry states. Approved and returned are terminal inside the workflow.
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusReturned  Status = "returned"
)

var transitions = map[Status][]Status{ //nolint:gochecknoglobals // static state table
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusReturned},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusReturned:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal forward step.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}
