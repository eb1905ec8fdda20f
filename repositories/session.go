//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"kaichat/domain"

	"github.com/dgraph-io/badger/v4"
)

var sessionKey = []byte("session:current")

// ISessionRepository stores the local identity between process runs,
// the session-continuity half of the presence manager. Local-only:
// nothing here is visible to the other party.
type ISessionRepository interface {
	Save(identity domain.Identity) error
	Load() (domain.Identity, bool, error)
	Clear() error
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Save(identity domain.Identity) error {
	raw, err := json.Marshal(fromIdentity(identity))
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(sessionKey, raw)
	})
}

// Load returns the stored identity, or false when no session exists.
func (r *SessionRepository) Load() (domain.Identity, bool, error) {
	var identity domain.Identity
	found := false
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey)
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			identity, err = decodeIdentity(raw)
			if err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	if err != nil {
		return domain.Identity{}, false, err
	}
	return identity, found, nil
}

func (r *SessionRepository) Clear() error {
	err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey)
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}
