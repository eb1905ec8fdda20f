package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/repositories"
	"kaichat/runtime"
)

type IRelationshipService interface {
	Propose(targetID string) (domain.Relationship, error)
	Accept(relationshipID string) error
	Decline(relationshipID string) error
	Directory() (domain.Directory, error)
	WatchDirectory() (<-chan domain.Directory, runtime.CancelFunc)
}

// RelationshipService drives the pairwise request state machine for
// one logged-in identity. The identity is an explicit constructor
// argument: there is no ambient session state.
type RelationshipService struct {
	me            domain.Identity
	identities    repositories.IIdentityRepository
	relationships repositories.IRelationshipRepository
	log           *slog.Logger
}

func NewRelationshipService(
	me domain.Identity,
	identities repositories.IIdentityRepository,
	relationships repositories.IRelationshipRepository,
	log *slog.Logger,
) *RelationshipService {
	return &RelationshipService{
		me:            me,
		identities:    identities,
		relationships: relationships,
		log:           log,
	}
}

// Propose creates a pending request towards targetID. The pair may
// hold only one record: a concurrent or earlier proposal in either
// direction wins and this call fails with ErrRelationshipExists.
func (s *RelationshipService) Propose(targetID string) (domain.Relationship, error) {
	return s.relationships.Create(s.me.ID, targetID)
}

// Accept transitions pending -> accepted. The guard is re-checked at
// transition time: only the receiving party may accept, and only while
// the record is still pending.
func (s *RelationshipService) Accept(relationshipID string) error {
	return s.transition(relationshipID, domain.StatusAccepted)
}

// Decline transitions pending -> rejected under the same guard as
// Accept.
func (s *RelationshipService) Decline(relationshipID string) error {
	return s.transition(relationshipID, domain.StatusRejected)
}

func (s *RelationshipService) transition(relationshipID string, next domain.RelationshipStatus) error {
	rel, err := s.relationships.GetByID(relationshipID)
	if err != nil {
		return err
	}
	if !rel.CanTransition(s.me.ID) {
		return errors.ErrUnauthorized
	}
	err = s.relationships.Transition(relationshipID, domain.StatusPending, next)
	if stderrors.Is(err, errors.ErrConflict) {
		// The precondition no longer holds: someone committed first.
		return fmt.Errorf("%w: relationship is no longer pending", errors.ErrUnauthorized)
	}
	return err
}

// Directory partitions every visible identity into exactly one of
// contacts, incoming requests, or others.
func (s *RelationshipService) Directory() (domain.Directory, error) {
	visible, err := s.identities.ListVerifiedExcept(s.me.ID)
	if err != nil {
		return domain.Directory{}, err
	}
	rels, err := s.relationships.ListFor(s.me.ID)
	if err != nil {
		return domain.Directory{}, err
	}
	return domain.Partition(s.me.ID, visible, rels), nil
}

// WatchDirectory merges the identity and relationship streams into
// successive directory snapshots, so a transition made by the other
// party becomes visible without polling.
func (s *RelationshipService) WatchDirectory() (<-chan domain.Directory, runtime.CancelFunc) {
	identityStream, cancelIdentities := s.identities.WatchVerified(s.me.ID)
	relStream, cancelRels := s.relationships.WatchFor(s.me.ID)

	out := make(chan domain.Directory, 1)
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			cancelIdentities()
			cancelRels()
			close(stop)
		})
	}

	go func() {
		defer close(out)
		var visible []domain.Identity
		var rels []domain.Relationship
		haveIdentities, haveRels := false, false

		emit := func() bool {
			if !haveIdentities || !haveRels {
				return true
			}
			select {
			case out <- domain.Partition(s.me.ID, visible, rels):
				return true
			case <-stop:
				return false
			}
		}

		for {
			select {
			case <-stop:
				return
			case snapshot, ok := <-identityStream:
				if !ok {
					return
				}
				visible, haveIdentities = snapshot, true
				if !emit() {
					return
				}
			case snapshot, ok := <-relStream:
				if !ok {
					return
				}
				rels, haveRels = snapshot, true
				if !emit() {
					return
				}
			}
		}
	}()
	return out, cancel
}
