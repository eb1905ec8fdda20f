package services

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kaichat/auth"
	"kaichat/domain"
	"kaichat/errors"
	"kaichat/repositories"
)

type ISessionService interface {
	Login(handle, phone string) (Token, error)
	Logout()
	Restore() (domain.Identity, bool)
	Current() (domain.Identity, bool)
	OnSessionEnd()
}

// Token is the signed confirmation returned by a successful login.
type Token string

// SessionService owns the local identity and its presence signaling.
// Presence writes are fire-and-forget: they never block the caller and
// their failures are logged, never surfaced, because teardown-time
// calls have no reliable way to wait for completion.
type SessionService struct {
	identities    repositories.IIdentityRepository
	sessions      repositories.ISessionRepository
	log           *slog.Logger
	tokenDuration time.Duration

	// spawn runs fire-and-forget work; tests replace it with an
	// inline runner to observe the write deterministically.
	spawn func(func())

	mu      sync.RWMutex
	current *domain.Identity
}

func NewSessionService(
	identities repositories.IIdentityRepository,
	sessions repositories.ISessionRepository,
	log *slog.Logger,
	tokenDuration time.Duration,
) *SessionService {
	return &SessionService{
		identities:    identities,
		sessions:      sessions,
		log:           log,
		tokenDuration: tokenDuration,
		spawn:         func(fn func()) { go fn() },
	}
}

// Login authenticates the exact (handle, phone) pair. An unknown pair
// fails with ErrInvalidCredentials, an unverified match with
// ErrPendingApproval. On success the identity goes online, the session
// is stored locally for continuity across restarts, and the signed
// success token is returned.
func (s *SessionService) Login(handle, phone string) (Token, error) {
	if err := auth.ValidateLogin(auth.LoginRequest{Handle: handle, Phone: phone}); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidCredentials, err)
	}

	identity, err := s.identities.GetByHandleAndPhone(handle, phone)
	if stderrors.Is(err, errors.ErrNotFound) {
		return "", errors.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !identity.Verified {
		return "", errors.ErrPendingApproval
	}

	identity.Status = domain.Online
	identity.LastSeenAt = time.Now().UTC()

	s.mu.Lock()
	s.current = &identity
	s.mu.Unlock()

	if err := s.sessions.Save(identity); err != nil {
		// Continuity across restarts degrades, the session itself
		// stays valid.
		s.log.Warn("storing local session failed", "error", err)
	}
	s.writePresence(identity.ID, domain.Online)

	token, err := auth.GenerateToken(identity.ID, identity.Handle, s.tokenDuration)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}

// Logout goes offline best-effort and clears the local session. It is
// synchronous from the caller's point of view but does not guarantee
// the presence write reaches the store.
func (s *SessionService) Logout() {
	s.mu.Lock()
	identity := s.current
	s.current = nil
	s.mu.Unlock()

	if identity != nil {
		s.writePresence(identity.ID, domain.Offline)
	}
	if err := s.sessions.Clear(); err != nil {
		s.log.Warn("clearing local session failed", "error", err)
	}
}

// Restore loads a previously stored session, if any, and immediately
// re-issues an online presence write.
func (s *SessionService) Restore() (domain.Identity, bool) {
	identity, found, err := s.sessions.Load()
	if err != nil {
		s.log.Warn("restoring local session failed", "error", err)
		return domain.Identity{}, false
	}
	if !found {
		return domain.Identity{}, false
	}

	identity.Status = domain.Online
	s.mu.Lock()
	s.current = &identity
	s.mu.Unlock()

	s.writePresence(identity.ID, domain.Online)
	return identity, true
}

func (s *SessionService) Current() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Identity{}, false
	}
	return *s.current, true
}

// OnSessionEnd is the explicit teardown hook the host environment is
// contractually required to invoke. Best-effort and non-blocking: the
// offline write may never reach the store.
func (s *SessionService) OnSessionEnd() {
	s.mu.RLock()
	identity := s.current
	s.mu.RUnlock()

	if identity != nil {
		s.writePresence(identity.ID, domain.Offline)
	}
}

func (s *SessionService) writePresence(identityID string, status domain.PresenceStatus) {
	s.spawn(func() {
		if err := s.identities.SetPresence(identityID, status, time.Now().UTC()); err != nil {
			s.log.Warn("presence update failed", "identity", identityID, "status", string(status), "error", err)
		}
	})
}
