//go:generate go run go.uber.org/mock/mockgen -source=relationship.go -destination=../mocks/mock_relationship_repository.go -package=mocks
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
	"github.com/samber/lo"
)

// TopicRelationships signals any change to the relationship collection.
const TopicRelationships runtime.Topic = "relationships"

type IRelationshipRepository interface {
	Create(fromID, toID string) (domain.Relationship, error)
	GetByID(id string) (domain.Relationship, error)
	GetByPair(a, b string) (domain.Relationship, error)
	Transition(id string, expect, next domain.RelationshipStatus) error
	ListFor(meID string) ([]domain.Relationship, error)
	WatchFor(meID string) (<-chan []domain.Relationship, runtime.CancelFunc)
}

type RelationshipRepository struct {
	db  *badger.DB
	hub *runtime.Hub
	log *slog.Logger
}

func NewRelationshipRepository(db *badger.DB, hub *runtime.Hub, log *slog.Logger) *RelationshipRepository {
	return &RelationshipRepository{db: db, hub: hub, log: log}
}

func relationshipKey(id string) []byte {
	return []byte("relationship:" + id)
}

// pairKey indexes the unordered identity pair, giving the
// one-record-per-pair invariant a single key to contend on.
func pairKey(a, b string) []byte {
	return []byte("relationship_pair:" + domain.ConversationID(a, b))
}

// Create inserts a new pending relationship. The pair index makes
// duplicate proposals lose: the first insert wins and any later one,
// from either side, fails with ErrRelationshipExists.
func (r *RelationshipRepository) Create(fromID, toID string) (domain.Relationship, error) {
	rel := domain.Relationship{
		ID:           uuid.New().String(),
		FromIdentity: fromID,
		ToIdentity:   toID,
		Status:       domain.StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	raw, err := json.Marshal(fromRelationship(rel))
	if err != nil {
		return domain.Relationship{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(pairKey(fromID, toID)); err == nil {
			return errors.ErrRelationshipExists
		}
		if err := txn.Set(pairKey(fromID, toID), []byte(rel.ID)); err != nil {
			return err
		}
		return txn.Set(relationshipKey(rel.ID), raw)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		// A concurrent proposal for the same pair committed first.
		return domain.Relationship{}, errors.ErrRelationshipExists
	}
	if err != nil {
		return domain.Relationship{}, err
	}

	r.hub.Publish(TopicRelationships)
	return rel, nil
}

func (r *RelationshipRepository) GetByID(id string) (domain.Relationship, error) {
	var rel domain.Relationship
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(relationshipKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRelationshipMissing
		}
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			rel, err = decodeRelationship(raw)
			return err
		})
	})
	return rel, err
}

// GetByPair resolves the unordered pair index to the single record
// covering both identities, in either direction.
func (r *RelationshipRepository) GetByPair(a, b string) (domain.Relationship, error) {
	var id string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(a, b))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRelationshipMissing
		}
		if err != nil {
			return err
		}
		return item.Value(func(raw []byte) error {
			id = string(raw)
			return nil
		})
	})
	if err != nil {
		return domain.Relationship{}, err
	}
	return r.GetByID(id)
}

// Transition conditionally moves the status from expect to next. The
// current status is re-read inside the transaction; if it is no longer
// expect, or a concurrent writer commits first, the transition fails
// with ErrConflict instead of silently overwriting.
func (r *RelationshipRepository) Transition(id string, expect, next domain.RelationshipStatus) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(relationshipKey(id))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrRelationshipMissing
		}
		if err != nil {
			return err
		}
		var rel domain.Relationship
		if err := item.Value(func(raw []byte) error {
			rel, err = decodeRelationship(raw)
			return err
		}); err != nil {
			return err
		}
		if rel.Status != expect {
			return errors.ErrConflict
		}
		rel.Status = next

		raw, err := json.Marshal(fromRelationship(rel))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(relationshipKey(id), raw)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		return errors.ErrConflict
	}
	if err != nil {
		return err
	}

	r.hub.Publish(TopicRelationships)
	return nil
}

// ListFor returns every relationship where meID is either party.
func (r *RelationshipRepository) ListFor(meID string) ([]domain.Relationship, error) {
	var out []domain.Relationship
	err := r.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		prefix := []byte("relationship:")
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rel domain.Relationship
			err := it.Item().Value(func(raw []byte) error {
				var err error
				rel, err = decodeRelationship(raw)
				return err
			})
			if err != nil {
				return err
			}
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lo.Filter(out, func(rel domain.Relationship, _ int) bool {
		return rel.Involves(meID)
	}), nil
}

// WatchFor streams relationship snapshots for one identity, so a
// transition made by the other party becomes visible without polling.
func (r *RelationshipRepository) WatchFor(meID string) (<-chan []domain.Relationship, runtime.CancelFunc) {
	return runtime.Snapshots(r.hub.Subscribe(TopicRelationships), r.log, func() ([]domain.Relationship, error) {
		return r.ListFor(meID)
	})
}
