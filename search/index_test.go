package search

import (
	"context"
	"log/slog"
	"testing"

	"kaichat/domain"

	"github.com/stretchr/testify/require"
)

func Test_Index_And_Search_Scoped_To_Conversation(t *testing.T) {
	req := require.New(t)
	index, err := Open(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	req.NoError(index.IndexMessage("alice_bob", domain.Message{
		ID: "m1", SenderID: "alice", Content: "the quarterly report is ready", Kind: domain.KindText,
	}))
	req.NoError(index.IndexMessage("alice_carol", domain.Message{
		ID: "m2", SenderID: "carol", Content: "report from the other channel", Kind: domain.KindText,
	}))

	hits, err := index.Search(context.Background(), "alice_bob", "report", 10)
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal("m1", hits[0].MessageID)
	req.Equal("alice", hits[0].SenderID)
}

func Test_Index_Skips_Media_Messages(t *testing.T) {
	req := require.New(t)
	index, err := Open(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	req.NoError(index.IndexMessage("alice_bob", domain.Message{
		ID: "m1", SenderID: "alice", Content: "/objects/pic.jpg", Kind: domain.KindImage,
	}))

	hits, err := index.Search(context.Background(), "alice_bob", "pic.jpg", 10)
	req.NoError(err)
	req.Empty(hits)
}

func Test_Reindexing_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	index, err := Open(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	message := domain.Message{ID: "m1", SenderID: "alice", Content: "hello again", Kind: domain.KindText}
	req.NoError(index.IndexMessage("alice_bob", message))
	req.NoError(index.IndexMessage("alice_bob", message))

	hits, err := index.Search(context.Background(), "alice_bob", "hello", 10)
	req.NoError(err)
	req.Len(hits, 1)
}
