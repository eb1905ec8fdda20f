package repositories

import (
	"log/slog"
	"testing"
	"time"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/runtime"

	"github.com/stretchr/testify/require"
)

func Test_Append_Assigns_Id_And_Timestamp(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), runtime.NewHub(), slog.Default())

	message, err := repo.Append("alice_bob", "alice", "hi", domain.KindText)
	req.NoError(err)
	req.NotEmpty(message.ID)
	req.False(message.Timestamp.IsZero())
}

func Test_List_Is_Chronological_And_Conversation_Scoped(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), runtime.NewHub(), slog.Default())

	contents := []string{"first", "second", "third"}
	for _, content := range contents {
		_, err := repo.Append("alice_bob", "alice", content, domain.KindText)
		req.NoError(err)
		time.Sleep(time.Millisecond)
	}
	_, err := repo.Append("alice_carol", "alice", "elsewhere", domain.KindText)
	req.NoError(err)

	messages, err := repo.List("alice_bob")
	req.NoError(err)
	req.Len(messages, len(contents))
	for i, message := range messages {
		req.Equal(contents[i], message.Content)
	}
}

func Test_MutateReactions_Commits_Toggle(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), runtime.NewHub(), slog.Default())

	message, err := repo.Append("alice_bob", "alice", "hi", domain.KindText)
	req.NoError(err)

	err = repo.MutateReactions("alice_bob", message.ID, func(current domain.Reactions) domain.Reactions {
		return domain.ToggleReaction(current, "bob", "👍")
	})
	req.NoError(err)

	messages, err := repo.List("alice_bob")
	req.NoError(err)
	req.Equal(domain.Reactions{"👍": {"bob"}}, messages[0].Reactions)

	// Un-react prunes the map back to nothing.
	err = repo.MutateReactions("alice_bob", message.ID, func(current domain.Reactions) domain.Reactions {
		return domain.ToggleReaction(current, "bob", "👍")
	})
	req.NoError(err)

	messages, err = repo.List("alice_bob")
	req.NoError(err)
	req.Empty(messages[0].Reactions)
}

func Test_MutateReactions_Unknown_Message(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), runtime.NewHub(), slog.Default())

	err := repo.MutateReactions("alice_bob", "missing", func(current domain.Reactions) domain.Reactions {
		return current
	})
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_Watch_Streams_Tagged_Snapshots(t *testing.T) {
	req := require.New(t)
	repo := NewMessageRepository(openTestDB(t), runtime.NewHub(), slog.Default())

	stream, cancel := repo.Watch("alice_bob")
	defer cancel()

	initial := <-stream
	req.Equal("alice_bob", initial.ConversationID)
	req.Empty(initial.Messages)

	_, err := repo.Append("alice_bob", "alice", "hi", domain.KindText)
	req.NoError(err)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-stream:
			req.Equal("alice_bob", snapshot.ConversationID)
			if len(snapshot.Messages) == 1 {
				req.Equal("hi", snapshot.Messages[0].Content)
				return
			}
		case <-deadline:
			t.Fatal("appended message never reached the stream")
		}
	}
}

func Test_Session_Roundtrip(t *testing.T) {
	req := require.New(t)
	repo := NewSessionRepository(openTestDB(t))

	_, found, err := repo.Load()
	req.NoError(err)
	req.False(found)

	identity := domain.Identity{
		ID: "id-1", DisplayName: "Alice", Handle: "alice", Phone: "555-0100",
		Verified: true, Status: domain.Online, LastSeenAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	req.NoError(repo.Save(identity))

	loaded, found, err := repo.Load()
	req.NoError(err)
	req.True(found)
	req.Equal(identity, loaded)

	req.NoError(repo.Clear())
	_, found, err = repo.Load()
	req.NoError(err)
	req.False(found)
}
