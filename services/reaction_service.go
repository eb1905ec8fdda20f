package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/repositories"
)

type IReactionService interface {
	Toggle(conversationID, messageID, symbol string) error
}

// ReactionService toggles reactions under concurrent writers. Each
// attempt reads the current reaction state and applies the pure
// toggle inside one transaction; a commit conflict means another
// identity won the race, so the attempt is retried against the fresh
// state up to a bound.
type ReactionService struct {
	me         domain.Identity
	reactions  repositories.IReactionRepository
	maxRetries int
	log        *slog.Logger
}

func NewReactionService(me domain.Identity, reactions repositories.IReactionRepository, maxRetries int, log *slog.Logger) *ReactionService {
	return &ReactionService{me: me, reactions: reactions, maxRetries: maxRetries, log: log}
}

// Toggle reacts with symbol on a message, replacing any previous
// reaction this identity holds on it, or removes the reaction if
// symbol is already the one held.
func (s *ReactionService) Toggle(conversationID, messageID, symbol string) error {
	return s.retryOnConflict(func() error {
		return s.reactions.MutateReactions(conversationID, messageID, func(current domain.Reactions) domain.Reactions {
			return domain.ToggleReaction(current, s.me.ID, symbol)
		})
	})
}

func (s *ReactionService) retryOnConflict(op func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err = op(); !stderrors.Is(err, errors.ErrConflict) {
			return err
		}
		s.log.Debug("reaction write conflicted, retrying", "attempt", attempt+1)
	}
	return fmt.Errorf("%w: %v", errors.ErrConflictExceeded, err)
}
