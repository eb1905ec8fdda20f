//go:generate go run go.uber.org/mock/mockgen -source=identity.go -destination=../mocks/mock_identity_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// TopicIdentities signals any change to the identity collection.
const TopicIdentities runtime.Topic = "identities"

type IIdentityRepository interface {
	CreateIdentity(displayName, handle, phone string) (domain.Identity, error)
	GetByID(id string) (domain.Identity, error)
	GetByHandleAndPhone(handle, phone string) (domain.Identity, error)
	SetPresence(id string, status domain.PresenceStatus, lastSeen time.Time) error
	SetVerified(id string) error
	ListVerifiedExcept(meID string) ([]domain.Identity, error)
	WatchVerified(meID string) (<-chan []domain.Identity, runtime.CancelFunc)
}

type IdentityRepository struct {
	db  *badger.DB
	hub *runtime.Hub
	log *slog.Logger
}

func NewIdentityRepository(db *badger.DB, hub *runtime.Hub, log *slog.Logger) *IdentityRepository {
	return &IdentityRepository{db: db, hub: hub, log: log}
}

func identityKey(id string) []byte {
	return []byte("identity:" + id)
}

// handleKey indexes the unique handle to enforce uniqueness at
// registration and to resolve the (handle, phone) login lookup without
// a full scan.
func handleKey(handle string) []byte {
	return []byte("identity_handle:" + handle)
}

// CreateIdentity registers a participant. New identities start
// offline and unverified; the approval process flips Verified later.
func (r *IdentityRepository) CreateIdentity(displayName, handle, phone string) (domain.Identity, error) {
	identity := domain.Identity{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		Handle:      handle,
		Phone:       phone,
		Verified:    false,
		Status:      domain.Offline,
		LastSeenAt:  time.Now().UTC(),
	}
	raw, err := json.Marshal(fromIdentity(identity))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(handleKey(handle)); err == nil {
			return errors.ErrHandleTaken
		}
		if err := txn.Set(handleKey(handle), []byte(identity.ID)); err != nil {
			return err
		}
		return txn.Set(identityKey(identity.ID), raw)
	})
	if err != nil {
		return domain.Identity{}, err
	}

	r.hub.Publish(TopicIdentities)
	return identity, nil
}

func (r *IdentityRepository) GetByID(id string) (domain.Identity, error) {
	var identity domain.Identity
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			identity, err = decodeIdentity(raw)
			return err
		})
	})
	return identity, err
}

// GetByHandleAndPhone is the exact-pair login lookup. A handle match
// with a different phone is not a match.
func (r *IdentityRepository) GetByHandleAndPhone(handle, phone string) (domain.Identity, error) {
	var identity domain.Identity
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(handleKey(handle))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		var id string
		if err := item.Value(func(raw []byte) error {
			id = string(raw)
			return nil
		}); err != nil {
			return err
		}

		record, err := txn.Get(identityKey(id))
		if err != nil {
			return err
		}
		return record.Value(func(raw []byte) error {
			identity, err = decodeIdentity(raw)
			return err
		})
	})
	if err != nil {
		return domain.Identity{}, err
	}
	if identity.Phone != phone {
		return domain.Identity{}, errors.ErrNotFound
	}
	return identity, nil
}

// SetPresence updates the presence fields of one identity. Only the
// local session ever calls this for its own identity.
func (r *IdentityRepository) SetPresence(id string, status domain.PresenceStatus, lastSeen time.Time) error {
	return r.mutate(id, func(identity *domain.Identity) {
		identity.Status = status
		identity.LastSeenAt = lastSeen
	})
}

// SetVerified marks an identity approved. Exposed for the external
// admin approval process.
func (r *IdentityRepository) SetVerified(id string) error {
	return r.mutate(id, func(identity *domain.Identity) {
		identity.Verified = true
	})
}

func (r *IdentityRepository) mutate(id string, apply func(*domain.Identity)) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(identityKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		if err != nil {
			return err
		}
		var identity domain.Identity
		if err := item.Value(func(raw []byte) error {
			identity, err = decodeIdentity(raw)
			return err
		}); err != nil {
			return err
		}

		apply(&identity)

		raw, err := json.Marshal(fromIdentity(identity))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(identityKey(id), raw)
	})
	if err != nil {
		return err
	}
	r.hub.Publish(TopicIdentities)
	return nil
}

// ListVerifiedExcept returns every verified identity other than meID,
// the population of the sidebar directory.
func (r *IdentityRepository) ListVerifiedExcept(meID string) ([]domain.Identity, error) {
	var out []domain.Identity
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		prefix := []byte("identity:")
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var identity domain.Identity
			err := it.Item().Value(func(raw []byte) error {
				var err error
				identity, err = decodeIdentity(raw)
				return err
			})
			if err != nil {
				return err
			}
			if identity.Verified && identity.ID != meID {
				out = append(out, identity)
			}
		}
		return nil
	})
	return out, err
}

// WatchVerified streams directory snapshots: one immediately, then one
// per identity change, at-least-once.
func (r *IdentityRepository) WatchVerified(meID string) (<-chan []domain.Identity, runtime.CancelFunc) {
	return runtime.Snapshots(r.hub.Subscribe(TopicIdentities), r.log, func() ([]domain.Identity, error) {
		return r.ListVerifiedExcept(meID)
	})
}
