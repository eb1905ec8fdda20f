package services

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/media"
	"kaichat/repositories"
	"kaichat/search"
	"kaichat/storage"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IChatService interface {
	Open(conversationID string) error
	Close()
	Visible() []ViewEntry
	Updates() <-chan struct{}
	SendText(ctx context.Context, content string) error
	SendMedia(ctx context.Context, filename string, payload []byte, onProgress storage.ProgressFunc) error
	Search(ctx context.Context, terms string, limit int) ([]search.Hit, error)
}

// ViewEntry is one row of the merged conversation view: a durable
// message, or an optimistic placeholder ordered after every durable
// row.
type ViewEntry struct {
	ID         string
	SenderID   string
	Content    string
	Kind       domain.MessageKind
	Timestamp  time.Time
	Reactions  domain.Reactions
	Optimistic bool
}

// MessageIndexer feeds durable messages into a local search index.
// Optional; indexing failures never affect synchronization.
type MessageIndexer interface {
	IndexMessage(conversationID string, message domain.Message) error
	Search(ctx context.Context, conversationID, terms string, limit int) ([]search.Hit, error)
}

// ChatService keeps the visible view of one open conversation
// consistent with the live ordered snapshot stream while giving
// immediate optimistic feedback for sends.
type ChatService struct {
	me            domain.Identity
	messages      repositories.IMessageRepository
	relationships repositories.IRelationshipRepository
	objects       storage.IObjectStore
	compressor    media.Compressor
	indexer       MessageIndexer
	log           *slog.Logger

	updates chan struct{}

	mu             sync.Mutex
	conversationID string
	generation     int
	cancelWatch    func()
	durable        []domain.Message
	optimistic     []domain.OptimisticEntry
}

func NewChatService(
	me domain.Identity,
	messages repositories.IMessageRepository,
	relationships repositories.IRelationshipRepository,
	objects storage.IObjectStore,
	compressor media.Compressor,
	indexer MessageIndexer,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		me:            me,
		messages:      messages,
		relationships: relationships,
		objects:       objects,
		compressor:    compressor,
		indexer:       indexer,
		log:           log,
		updates:       make(chan struct{}, 1),
	}
}

// Open switches the service to a conversation. A conversation only
// exists between contacts: the pair's relationship must be accepted,
// otherwise Open fails with ErrNotContacts and nothing is torn down.
// The previous subscription is torn down atomically with opening the
// new one, and every snapshot is generation-tagged so a stale one
// arriving after the switch is discarded rather than applied.
func (s *ChatService) Open(conversationID string) error {
	if err := s.authorize(conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.teardownLocked()
	s.conversationID = conversationID
	generation := s.generation

	stream, cancel := s.messages.Watch(conversationID)
	s.cancelWatch = cancel
	go s.pump(generation, stream)
	return nil
}

// authorize admits only conversations that name this identity and
// whose underlying relationship is accepted.
func (s *ChatService) authorize(conversationID string) error {
	a, b, ok := domain.ConversationParties(conversationID)
	if !ok || (a != s.me.ID && b != s.me.ID) {
		return errors.ErrNotContacts
	}
	rel, err := s.relationships.GetByPair(a, b)
	if stderrors.Is(err, errors.ErrNotFound) {
		return errors.ErrNotContacts
	}
	if err != nil {
		return err
	}
	if rel.Status != domain.StatusAccepted {
		return fmt.Errorf("%w: relationship is %s", errors.ErrNotContacts, rel.Status)
	}
	return nil
}

// Close tears the current subscription down. Safe to call repeatedly.
func (s *ChatService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked()
}

// teardownLocked cancels the active watch and resets the view. The
// generation bump invalidates any snapshot still in flight.
func (s *ChatService) teardownLocked() {
	if s.cancelWatch != nil {
		s.cancelWatch()
		s.cancelWatch = nil
	}
	s.generation++
	s.conversationID = ""
	s.durable = nil
	s.optimistic = nil
}

func (s *ChatService) pump(generation int, stream <-chan repositories.MessageSnapshot) {
	for snapshot := range stream {
		s.apply(generation, snapshot)
	}
}

// apply reconciles one full snapshot: it replaces the durable portion
// of the view, leaving optimistic entries (whose appends are still in
// flight) in place after it.
func (s *ChatService) apply(generation int, snapshot repositories.MessageSnapshot) {
	s.mu.Lock()
	if generation != s.generation || snapshot.ConversationID != s.conversationID {
		s.mu.Unlock()
		s.log.Debug("discarding stale snapshot", "conversation", snapshot.ConversationID)
		return
	}
	s.durable = snapshot.Messages
	conversationID := s.conversationID
	s.mu.Unlock()

	s.index(conversationID, snapshot.Messages)
	s.notify()
}

// Visible returns the merged view: the durable set from the latest
// snapshot plus the optimistic entries strictly after it.
func (s *ChatService) Visible() []ViewEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ViewEntry, 0, len(s.durable)+len(s.optimistic))
	for _, message := range s.durable {
		out = append(out, ViewEntry{
			ID:        message.ID,
			SenderID:  message.SenderID,
			Content:   message.Content,
			Kind:      message.Kind,
			Timestamp: message.Timestamp,
			Reactions: message.Reactions,
		})
	}
	for _, entry := range s.optimistic {
		out = append(out, ViewEntry{
			ID:         entry.TempID,
			SenderID:   entry.SenderID,
			Content:    entry.Content,
			Kind:       entry.Kind,
			Timestamp:  entry.CreatedAt,
			Optimistic: true,
		})
	}
	return out
}

// Updates signals view changes, coalesced.
func (s *ChatService) Updates() <-chan struct{} {
	return s.updates
}

// SendText validates, shows the message optimistically, and issues the
// durable append. The placeholder is removed by its temporary id the
// moment the append returns, acknowledged or not; the durable copy
// arrives through the snapshot stream.
func (s *ChatService) SendText(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.ErrEmptyMessage
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conversationID, tempID, err := s.appendOptimistic(content, domain.KindText)
	if err != nil {
		return err
	}

	message, err := s.messages.Append(conversationID, s.me.ID, content, domain.KindText)
	s.removeOptimistic(tempID)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurableWriteFailed, err)
	}
	s.index(conversationID, []domain.Message{message})
	return nil
}

// SendMedia gates the payload by its sniffed MIME category, compresses
// images, uploads through the object store with live progress, then
// appends a durable message whose content is the retrieval address.
// Every failure path rolls the optimistic entry back completely: no
// partial message is ever left visible or durable.
func (s *ChatService) SendMedia(ctx context.Context, filename string, payload []byte, onProgress storage.ProgressFunc) error {
	kind, err := media.Sniff(payload)
	if err != nil {
		return err
	}

	data := payload
	if kind == domain.KindImage {
		data, err = s.compressor.Compress(payload)
		if err != nil {
			return err
		}
	}

	conversationID, tempID, err := s.appendOptimistic(filename, kind)
	if err != nil {
		return err
	}

	objectName := path.Join("chat_media", conversationID,
		fmt.Sprintf("%d_%s", time.Now().UnixNano(), filepath.Base(filename)))
	address, err := s.objects.Upload(ctx, objectName, bytes.NewReader(data), int64(len(data)), onProgress)
	if err != nil {
		s.removeOptimistic(tempID)
		return fmt.Errorf("%w: %v", errors.ErrUploadFailed, err)
	}

	message, err := s.messages.Append(conversationID, s.me.ID, address, kind)
	s.removeOptimistic(tempID)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrDurableWriteFailed, err)
	}
	s.index(conversationID, []domain.Message{message})
	return nil
}

// Search queries the local index, scoped to the open conversation.
func (s *ChatService) Search(ctx context.Context, terms string, limit int) ([]search.Hit, error) {
	s.mu.Lock()
	conversationID := s.conversationID
	s.mu.Unlock()
	if conversationID == "" {
		return nil, errors.ErrNoConversation
	}
	if s.indexer == nil {
		return nil, nil
	}
	return s.indexer.Search(ctx, conversationID, terms, limit)
}

func (s *ChatService) appendOptimistic(content string, kind domain.MessageKind) (conversationID, tempID string, err error) {
	s.mu.Lock()
	if s.conversationID == "" {
		s.mu.Unlock()
		return "", "", errors.ErrNoConversation
	}
	conversationID = s.conversationID
	entry := domain.OptimisticEntry{
		TempID:    "temp_" + uuid.New().String(),
		SenderID:  s.me.ID,
		Content:   content,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	s.optimistic = append(s.optimistic, entry)
	s.mu.Unlock()

	s.notify()
	return conversationID, entry.TempID, nil
}

// removeOptimistic drops a placeholder by identity of its temporary
// id, never by content comparison, so two identical consecutive
// messages are never collapsed.
func (s *ChatService) removeOptimistic(tempID string) {
	s.mu.Lock()
	s.optimistic = lo.Reject(s.optimistic, func(entry domain.OptimisticEntry, _ int) bool {
		return entry.TempID == tempID
	})
	s.mu.Unlock()
	s.notify()
}

func (s *ChatService) index(conversationID string, messages []domain.Message) {
	if s.indexer == nil {
		return
	}
	for _, message := range messages {
		if err := s.indexer.IndexMessage(conversationID, message); err != nil {
			s.log.Warn("indexing message failed", "message", message.ID, "error", err)
		}
	}
}

func (s *ChatService) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
