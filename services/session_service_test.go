package services

import (
	"log/slog"
	"testing"
	"time"

	"kaichat/domain"
	"kaichat/errors"
	"kaichat/repositories"
	"kaichat/runtime"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// inlineSpawn makes fire-and-forget writes synchronous so tests can
// observe them deterministically.
func inlineSpawn(fn func()) { fn() }

func newSessionFixture(t *testing.T) (*SessionService, repositories.IIdentityRepository) {
	t.Helper()
	db := openTestDB(t)
	identities := repositories.NewIdentityRepository(db, runtime.NewHub(), slog.Default())
	sessions := repositories.NewSessionRepository(db)
	svc := NewSessionService(identities, sessions, slog.Default(), time.Hour)
	svc.spawn = inlineSpawn
	return svc, identities
}

func registerVerified(t *testing.T, identities repositories.IIdentityRepository, name, handle, phone string) domain.Identity {
	t.Helper()
	identity, err := identities.CreateIdentity(name, handle, phone)
	require.NoError(t, err)
	require.NoError(t, identities.SetVerified(identity.ID))
	return identity
}

func TestSessionService_Login(t *testing.T) {
	t.Run("should fail with invalid credentials when the pair is unknown", func(t *testing.T) {
		req := require.New(t)
		svc, _ := newSessionFixture(t)

		token, err := svc.Login("nobody", "555-0199")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
		req.Empty(token)
		_, ok := svc.Current()
		req.False(ok)
	})

	t.Run("should fail with invalid credentials when the phone does not match the handle", func(t *testing.T) {
		req := require.New(t)
		svc, identities := newSessionFixture(t)
		registerVerified(t, identities, "Alice", "alice", "555-0100")

		_, err := svc.Login("alice", "555-0999")

		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should fail with pending approval when the identity is not verified", func(t *testing.T) {
		req := require.New(t)
		svc, identities := newSessionFixture(t)
		_, err := identities.CreateIdentity("Bob", "bob", "555-0101")
		req.NoError(err)

		token, err := svc.Login("bob", "555-0101")

		req.ErrorIs(err, errors.ErrPendingApproval)
		req.Empty(token)
	})

	t.Run("should return a token and go online on success", func(t *testing.T) {
		req := require.New(t)
		svc, identities := newSessionFixture(t)
		created := registerVerified(t, identities, "Alice", "alice", "555-0100")

		token, err := svc.Login("alice", "555-0100")

		req.NoError(err)
		req.NotEmpty(token)

		current, ok := svc.Current()
		req.True(ok)
		req.Equal(created.ID, current.ID)
		req.Equal(domain.Online, current.Status)

		stored, err := identities.GetByID(created.ID)
		req.NoError(err)
		req.Equal(domain.Online, stored.Status)
		req.False(stored.LastSeenAt.IsZero())
	})
}

func TestSessionService_Logout(t *testing.T) {
	req := require.New(t)
	svc, identities := newSessionFixture(t)
	created := registerVerified(t, identities, "Alice", "alice", "555-0100")

	_, err := svc.Login("alice", "555-0100")
	req.NoError(err)

	svc.Logout()

	_, ok := svc.Current()
	req.False(ok)

	stored, err := identities.GetByID(created.ID)
	req.NoError(err)
	req.Equal(domain.Offline, stored.Status)

	_, ok = svc.Restore()
	req.False(ok)
}

func TestSessionService_Restore_Reissues_Online_Presence(t *testing.T) {
	req := require.New(t)
	svc, identities := newSessionFixture(t)
	created := registerVerified(t, identities, "Alice", "alice", "555-0100")

	_, err := svc.Login("alice", "555-0100")
	req.NoError(err)

	// Simulate a restart: drop the presence back to offline and forget
	// the in-memory identity, then restore from the stored session.
	req.NoError(identities.SetPresence(created.ID, domain.Offline, time.Now().UTC()))
	svc.mu.Lock()
	svc.current = nil
	svc.mu.Unlock()

	restored, ok := svc.Restore()
	req.True(ok)
	req.Equal(created.ID, restored.ID)

	stored, err := identities.GetByID(created.ID)
	req.NoError(err)
	req.Equal(domain.Online, stored.Status)
}

func TestSessionService_OnSessionEnd_Goes_Offline_Best_Effort(t *testing.T) {
	req := require.New(t)
	svc, identities := newSessionFixture(t)
	created := registerVerified(t, identities, "Alice", "alice", "555-0100")

	_, err := svc.Login("alice", "555-0100")
	req.NoError(err)

	svc.OnSessionEnd()

	stored, err := identities.GetByID(created.ID)
	req.NoError(err)
	req.Equal(domain.Offline, stored.Status)
}
