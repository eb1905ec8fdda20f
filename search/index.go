// Package search maintains a local full-text index over durably
// stored messages. It is a purely local convenience: indexing failures
// are logged, never surfaced, and the index never participates in
// synchronization.
package search

import (
	"context"
	"log/slog"

	"kaichat/domain"

	"github.com/blugelabs/bluge"
)

// Hit is one search result, newest-best ranked.
type Hit struct {
	MessageID string
	SenderID  string
	Content   string
}

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one text message. Media messages carry only a
// retrieval address and are skipped. Upserting the same id twice is a
// no-op, so reapplying a snapshot is safe.
func (i *Index) IndexMessage(conversationID string, message domain.Message) error {
	if message.Kind != domain.KindText {
		return nil
	}
	doc := bluge.NewDocument(message.ID).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("conversation", conversationID)).
		AddField(bluge.NewKeywordField("sender", message.SenderID).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search returns the best matches for terms within one conversation.
func (i *Index) Search(ctx context.Context, conversationID, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(conversationID).SetField("conversation"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for match, err := iterator.Next(); match != nil; match, err = iterator.Next() {
		if err != nil {
			return nil, err
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "sender":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
