package cafe

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an update request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Action is an admin's decision on a pending request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction accepts exactly "approve" or "reject".
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionApprove, ActionReject:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q, want %q or %q", s, ActionApprove, ActionReject)
}

// Outcome is the status a request moves to when this action is taken.
func (a Action) Outcome() Status {
	if a == ActionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// UpdateRequest is a visitor's proposed edit to a cafe, held until an admin
// resolves it.
type UpdateRequest struct {
	ID        int64     `json:"id"`
	CafeID    int64     `json:"cafe_id"`
	Proposal  Proposal  `json:"-"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type transition struct {
	From Status
	To   Status
}

// pending is the only resting state; both terminal states are reached at the
// moment the request is removed.
var validTransitions = map[transition]bool{
	{From: StatusPending, To: StatusApproved}: true,
	{From: StatusPending, To: StatusRejected}: true,
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to Status) bool {
	return validTransitions[transition{From: from, To: to}]
}
