// Package domain contains core concepts of the chat client.
// This file defines registered participants and their presence.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

type PresenceStatus string

const (
	Online  PresenceStatus = "online"
	Offline PresenceStatus = "offline"
)

// Identity is a registered chat participant. Presence fields are only
// ever written for the local identity; Verified is flipped by the
// external approval process.
type Identity struct {
	ID          string
	DisplayName string
	Handle      string
	Phone       string
	Verified    bool
	Status      PresenceStatus
	LastSeenAt  time.Time
}
