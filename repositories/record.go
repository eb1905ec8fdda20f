package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"kaichat/domain"
	"kaichat/errors"
)

// Store-boundary records. Remote documents are JSON; decoding fails
// fast with ErrSchemaViolation instead of passing unknown shapes
// through to the domain.

type identityRecord struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Handle      string    `json:"handle"`
	Phone       string    `json:"phone"`
	Verified    bool      `json:"verified"`
	Status      string    `json:"status"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

func fromIdentity(identity domain.Identity) identityRecord {
	return identityRecord{
		ID:          identity.ID,
		DisplayName: identity.DisplayName,
		Handle:      identity.Handle,
		Phone:       identity.Phone,
		Verified:    identity.Verified,
		Status:      string(identity.Status),
		LastSeenAt:  identity.LastSeenAt,
	}
}

func decodeIdentity(raw []byte) (domain.Identity, error) {
	var rec identityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: identity: %v", errors.ErrSchemaViolation, err)
	}
	if rec.ID == "" || rec.Handle == "" || rec.Phone == "" {
		return domain.Identity{}, fmt.Errorf("%w: identity record misses required fields", errors.ErrSchemaViolation)
	}
	status := domain.PresenceStatus(rec.Status)
	if status != domain.Online && status != domain.Offline {
		return domain.Identity{}, fmt.Errorf("%w: unknown presence status %q", errors.ErrSchemaViolation, rec.Status)
	}
	return domain.Identity{
		ID:          rec.ID,
		DisplayName: rec.DisplayName,
		Handle:      rec.Handle,
		Phone:       rec.Phone,
		Verified:    rec.Verified,
		Status:      status,
		LastSeenAt:  rec.LastSeenAt,
	}, nil
}

type relationshipRecord struct {
	ID           string    `json:"id"`
	FromIdentity string    `json:"from_identity"`
	ToIdentity   string    `json:"to_identity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

func fromRelationship(rel domain.Relationship) relationshipRecord {
	return relationshipRecord{
		ID:           rel.ID,
		FromIdentity: rel.FromIdentity,
		ToIdentity:   rel.ToIdentity,
		Status:       string(rel.Status),
		CreatedAt:    rel.CreatedAt,
	}
}

func decodeRelationship(raw []byte) (domain.Relationship, error) {
	var rec relationshipRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Relationship{}, fmt.Errorf("%w: relationship: %v", errors.ErrSchemaViolation, err)
	}
	if rec.ID == "" || rec.FromIdentity == "" || rec.ToIdentity == "" {
		return domain.Relationship{}, fmt.Errorf("%w: relationship record misses required fields", errors.ErrSchemaViolation)
	}
	status := domain.RelationshipStatus(rec.Status)
	switch status {
	case domain.StatusPending, domain.StatusAccepted, domain.StatusRejected:
	default:
		return domain.Relationship{}, fmt.Errorf("%w: unknown relationship status %q", errors.ErrSchemaViolation, rec.Status)
	}
	return domain.Relationship{
		ID:           rec.ID,
		FromIdentity: rec.FromIdentity,
		ToIdentity:   rec.ToIdentity,
		Status:       status,
		CreatedAt:    rec.CreatedAt,
	}, nil
}

type messageRecord struct {
	ID        string              `json:"id"`
	SenderID  string              `json:"sender_id"`
	Content   string              `json:"content"`
	Kind      string              `json:"kind"`
	Timestamp time.Time           `json:"timestamp"`
	Reactions map[string][]string `json:"reactions,omitempty"`
}

func fromMessage(message domain.Message) messageRecord {
	return messageRecord{
		ID:        message.ID,
		SenderID:  message.SenderID,
		Content:   message.Content,
		Kind:      string(message.Kind),
		Timestamp: message.Timestamp,
		Reactions: message.Reactions,
	}
}

func decodeMessage(raw []byte) (domain.Message, error) {
	var rec messageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.Message{}, fmt.Errorf("%w: message: %v", errors.ErrSchemaViolation, err)
	}
	if rec.ID == "" || rec.SenderID == "" {
		return domain.Message{}, fmt.Errorf("%w: message record misses required fields", errors.ErrSchemaViolation)
	}
	kind := domain.MessageKind(rec.Kind)
	switch kind {
	case domain.KindText, domain.KindImage, domain.KindVideo:
	default:
		return domain.Message{}, fmt.Errorf("%w: unknown message kind %q", errors.ErrSchemaViolation, rec.Kind)
	}
	return domain.Message{
		ID:        rec.ID,
		SenderID:  rec.SenderID,
		Content:   rec.Content,
		Kind:      kind,
		Timestamp: rec.Timestamp,
		Reactions: rec.Reactions,
	}, nil
}
