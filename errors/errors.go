// Package errors holds the sentinel errors of the synchronization core.
// Callers match them with errors.Is; components wrap them with %w when
// adding context.
package errors

import "fmt"

// Authentication and registration.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid handle or phone number")
	ErrPendingApproval    = fmt.Errorf("account is pending admin approval")
	ErrHandleTaken        = fmt.Errorf("handle already registered")
)

// Relationships.
var (
	ErrUnauthorized       = fmt.Errorf("not allowed to transition this relationship")
	ErrRelationshipExists = fmt.Errorf("a relationship already exists for this pair")
	// ErrRelationshipMissing is the store's ErrNotFound specialized for
	// relationship lookups, so callers can match either.
	ErrRelationshipMissing = fmt.Errorf("%w: relationship does not exist", ErrNotFound)
)

// Message sending.
var (
	// ErrNotContacts gates conversations: one only exists between two
	// identities whose relationship is accepted.
	ErrNotContacts          = fmt.Errorf("conversation requires an accepted relationship")
	ErrNoConversation       = fmt.Errorf("no conversation is open")
	ErrEmptyMessage         = fmt.Errorf("message content is empty")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrCompressionFailed    = fmt.Errorf("image compression failed")
	ErrUploadFailed         = fmt.Errorf("media upload failed")
	ErrDurableWriteFailed   = fmt.Errorf("durable append failed")
)

// Reactions.
var (
	// ErrConflict signals a lost optimistic-concurrency race inside a
	// repository. It never reaches the UI; bounded retry wraps it.
	ErrConflict         = fmt.Errorf("concurrent write conflict")
	ErrConflictExceeded = fmt.Errorf("gave up after repeated write conflicts")
)

// Store boundary.
var (
	ErrNotFound        = fmt.Errorf("record not found")
	ErrSchemaViolation = fmt.Errorf("stored record does not match schema")
)

// Voice input. NoSpeech and ListeningAborted are ignored by callers,
// only the permission error is ever surfaced.
var (
	ErrMicPermissionDenied = fmt.Errorf("microphone access denied")
	ErrNoSpeech            = fmt.Errorf("no speech detected")
	ErrListeningAborted    = fmt.Errorf("listening aborted")
)
