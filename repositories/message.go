//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
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

// MessageTopic scopes change signals to one conversation log.
func MessageTopic(conversationID string) runtime.Topic {
	return runtime.Topic("messages:" + conversationID)
}

// MessageSnapshot is one full ordered view of a conversation log. It
// carries the conversation id so a consumer can discard snapshots that
// arrive after switching away.
type MessageSnapshot struct {
	ConversationID string
	Messages       []domain.Message
}

type IMessageRepository interface {
	Append(conversationID, senderID, content string, kind domain.MessageKind) (domain.Message, error)
	List(conversationID string) ([]domain.Message, error)
	Watch(conversationID string) (<-chan MessageSnapshot, runtime.CancelFunc)
	IReactionRepository
}

// IReactionRepository is the narrow commit surface the reaction ledger
// needs: a conditional read-modify-write of one reaction map.
type IReactionRepository interface {
	MutateReactions(conversationID, messageID string, apply func(domain.Reactions) domain.Reactions) error
}

type MessageRepository struct {
	db  *badger.DB
	hub *runtime.Hub
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, hub *runtime.Hub, log *slog.Logger) *MessageRepository {
	return &MessageRepository{db: db, hub: hub, log: log}
}

// messageKey is formatted as "message:{conversation}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(conversationID string, at time.Time, id string) []byte {
	return []byte(fmt.Sprintf("message:%s:%019d:%s", conversationID, at.UnixNano(), id))
}

func messagePrefix(conversationID string) []byte {
	return []byte(fmt.Sprintf("message:%s:", conversationID))
}

// Append durably stores a message. The store side assigns both the id
// and the timestamp; the caller never supplies either.
func (r *MessageRepository) Append(conversationID, senderID, content string, kind domain.MessageKind) (domain.Message, error) {
	message := domain.Message{
		ID:        uuid.New().String(),
		SenderID:  senderID,
		Content:   content,
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Reactions: nil,
	}
	raw, err := json.Marshal(fromMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(conversationID, message.Timestamp, message.ID), raw)
	})
	if err != nil {
		return domain.Message{}, err
	}

	r.hub.Publish(MessageTopic(conversationID))
	return message, nil
}

// List returns the conversation log in ascending server-timestamp
// order. The padded key makes the natural iteration order the
// chronological one.
func (r *MessageRepository) List(conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(conversationID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var message domain.Message
			err := it.Item().Value(func(raw []byte) error {
				var err error
				message, err = decodeMessage(raw)
				return err
			})
			if err != nil {
				return err
			}
			out = append(out, message)
		}
		return nil
	})
	return out, err
}

// Watch streams full ordered snapshots of one conversation log.
func (r *MessageRepository) Watch(conversationID string) (<-chan MessageSnapshot, runtime.CancelFunc) {
	return runtime.Snapshots(r.hub.Subscribe(MessageTopic(conversationID)), r.log, func() (MessageSnapshot, error) {
		messages, err := r.List(conversationID)
		if err != nil {
			return MessageSnapshot{}, err
		}
		return MessageSnapshot{ConversationID: conversationID, Messages: messages}, nil
	})
}

// MutateReactions runs apply against the current reaction map of one
// message and commits the result conditionally: when a concurrent
// writer commits first, the transaction fails with ErrConflict and the
// caller re-runs apply against the fresh state.
func (r *MessageRepository) MutateReactions(conversationID, messageID string, apply func(domain.Reactions) domain.Reactions) error {
	err := r.db.Update(func(txn *badger.Txn) error {
		key, message, err := r.find(txn, conversationID, messageID)
		if err != nil {
			return err
		}
		message.Reactions = apply(message.Reactions)
		if len(message.Reactions) == 0 {
			message.Reactions = nil
		}

		raw, err := json.Marshal(fromMessage(message))
		if err != nil {
			return fmt.Errorf("marshal failed: %w", err)
		}
		return txn.Set(key, raw)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		return errors.ErrConflict
	}
	if err != nil {
		return err
	}

	r.hub.Publish(MessageTopic(conversationID))
	return nil
}

func (r *MessageRepository) find(txn *badger.Txn, conversationID, messageID string) ([]byte, domain.Message, error) {
	prefix := messagePrefix(conversationID)
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var message domain.Message
		err := item.Value(func(raw []byte) error {
			var err error
			message, err = decodeMessage(raw)
			return err
		})
		if err != nil {
			return nil, domain.Message{}, err
		}
		if message.ID == messageID {
			return item.KeyCopy(nil), message, nil
		}
	}
	return nil, domain.Message{}, errors.ErrNotFound
}
