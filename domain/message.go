// Package domain contains core concepts of the chat client.
// This file defines Message records and their in-flight stand-ins.
// Messages are immutable once appended, except for their reactions.
package domain

import "time"

type MessageKind string

const (
	KindText  MessageKind = "text"
	KindImage MessageKind = "image"
	KindVideo MessageKind = "video"
)

// Message is a durably appended chat event. The store assigns ID and
// Timestamp; Content holds either the text or the media retrieval
// address.
type Message struct {
	ID        string
	SenderID  string
	Content   string
	Kind      MessageKind
	Timestamp time.Time
	Reactions Reactions
}

// OptimisticEntry is the transient, local-only stand-in for a message
// between "send requested" and "durable append acknowledged or
// failed". It is never persisted or transmitted, and it is removed by
// TempID only, never by content comparison.
type OptimisticEntry struct {
	TempID    string
	SenderID  string
	Content   string
	Kind      MessageKind
	CreatedAt time.Time
}
