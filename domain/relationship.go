package domain

import "time"

type RelationshipStatus string

const (
	StatusPending  RelationshipStatus = "pending"
	StatusAccepted RelationshipStatus = "accepted"
	StatusRejected RelationshipStatus = "rejected"
)

// Relationship is the pairwise chat-request record. At most one record
// exists per unordered identity pair; once accepted or rejected the
// status is terminal.
type Relationship struct {
	ID           string
	FromIdentity string
	ToIdentity   string
	Status       RelationshipStatus
	CreatedAt    time.Time
}

// Counterpart returns the other party of the relationship as seen
// from meID.
func (r Relationship) Counterpart(meID string) string {
	if r.FromIdentity == meID {
		return r.ToIdentity
	}
	return r.FromIdentity
}

// Involves reports whether meID is one of the two parties.
func (r Relationship) Involves(meID string) bool {
	return r.FromIdentity == meID || r.ToIdentity == meID
}

// CanTransition is the guard re-checked at transition time: only the
// receiving party may accept or decline, and only while still pending.
func (r Relationship) CanTransition(callerID string) bool {
	return r.Status == StatusPending && r.ToIdentity == callerID
}

// PerspectiveState is a relationship as seen from one side.
type PerspectiveState string

const (
	PerspectiveNone            PerspectiveState = "none"
	PerspectivePendingOutgoing PerspectiveState = "pending_outgoing"
	PerspectivePendingIncoming PerspectiveState = "pending_incoming"
	PerspectiveAccepted        PerspectiveState = "accepted"
	PerspectiveRejected        PerspectiveState = "rejected"
)

// Perspective classifies the record from meID's point of view.
func (r Relationship) Perspective(meID string) PerspectiveState {
	switch r.Status {
	case StatusAccepted:
		return PerspectiveAccepted
	case StatusRejected:
		return PerspectiveRejected
	case StatusPending:
		if r.ToIdentity == meID {
			return PerspectivePendingIncoming
		}
		return PerspectivePendingOutgoing
	}
	return PerspectiveNone
}
