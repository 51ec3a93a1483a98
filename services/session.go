package services

import (
	"context"
	"log/slog"
	"sync"

	"convo/auth"
	"convo/contract"
	"convo/domain"
	"convo/errors"
)

// SessionManager owns the authenticated-user identity and its state
// machine. Every transition into Authenticated opens the stream
// connection; the only transition out of it (logout) closes it.
type SessionManager struct {
	mu       sync.RWMutex
	api      contract.IAuthAPI
	conns    contract.IConnectionManager
	notifier contract.Notifier
	log      *slog.Logger

	user   *domain.User
	status domain.SessionStatus

	signingUp       bool
	loggingIn       bool
	updatingProfile bool
}

// NewSessionManager starts in CheckingInitial: the caller is expected
// to run CheckInitialSession before anything else.
func NewSessionManager(api contract.IAuthAPI, conns contract.IConnectionManager,
	notifier contract.Notifier, log *slog.Logger) *SessionManager {
	return &SessionManager{
		api:      api,
		conns:    conns,
		notifier: notifier,
		log:      log,
		status:   domain.StatusCheckingInitial,
	}
}

// CheckInitialSession asks the server whether a previous session is
// still valid. A rejected check is the normal anonymous start, not a
// user-facing failure, so no notification is emitted. The transient
// CheckingInitial state is left on both paths.
func (s *SessionManager) CheckInitialSession(ctx context.Context) error {
	s.mu.Lock()
	s.status = domain.StatusCheckingInitial
	s.mu.Unlock()

	user, err := s.api.CurrentSession(ctx)
	if err != nil {
		s.log.Debug("no existing session", "error", err)
		s.mu.Lock()
		s.user = nil
		s.status = domain.StatusAnonymous
		s.mu.Unlock()
		return nil
	}

	s.mu.Lock()
	s.user = &user
	s.status = domain.StatusAuthenticated
	s.mu.Unlock()
	return s.conns.Connect(ctx, user.ID)
}

// SignUp creates an account and, on success, enters Authenticated and
// opens the stream. On failure the session returns to its prior state.
func (s *SessionManager) SignUp(ctx context.Context, req auth.SignUpRequest) error {
	prev := s.beginAuthAttempt(&s.signingUp)
	defer s.clearFlag(&s.signingUp)

	user, err := s.api.SignUp(ctx, req)
	if err != nil {
		s.failAuthAttempt(prev, "sign up", err)
		return err
	}

	s.completeAuth(user)
	s.notifier.Success("Account created successfully")
	return s.conns.Connect(ctx, user.ID)
}

// LogIn authenticates existing credentials. Same transitions as SignUp.
func (s *SessionManager) LogIn(ctx context.Context, req auth.LogInRequest) error {
	prev := s.beginAuthAttempt(&s.loggingIn)
	defer s.clearFlag(&s.loggingIn)

	user, err := s.api.LogIn(ctx, req)
	if err != nil {
		s.failAuthAttempt(prev, "login", err)
		return err
	}

	s.completeAuth(user)
	s.notifier.Success("Login successful")
	return s.conns.Connect(ctx, user.ID)
}

// LogOut ends the session server-side first. If the server refuses,
// local state is left untouched: the server is the source of truth and
// guessing locally would desynchronize the two.
func (s *SessionManager) LogOut(ctx context.Context) error {
	if err := s.api.LogOut(ctx); err != nil {
		s.log.Warn("logout failed", "error", err)
		s.notifier.Failure(errors.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.user = nil
	s.status = domain.StatusAnonymous
	s.mu.Unlock()

	s.notifier.Success("Logout successful")
	return s.conns.Disconnect()
}

// UpdateProfile sends a profile patch and replaces the local identity
// with the server response, which is canonical for profile data.
func (s *SessionManager) UpdateProfile(ctx context.Context, patch auth.ProfilePatch) error {
	s.mu.Lock()
	s.updatingProfile = true
	s.mu.Unlock()
	defer s.clearFlag(&s.updatingProfile)

	user, err := s.api.UpdateProfile(ctx, patch)
	if err != nil {
		s.log.Warn("profile update failed", "error", err)
		s.notifier.Failure(errors.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.notifier.Success("Profile updated successfully")
	return nil
}

// CurrentUser returns the authenticated identity, if any.
func (s *SessionManager) CurrentUser() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *SessionManager) Status() domain.SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *SessionManager) IsSigningUp() bool       { return s.flag(&s.signingUp) }
func (s *SessionManager) IsLoggingIn() bool       { return s.flag(&s.loggingIn) }
func (s *SessionManager) IsUpdatingProfile() bool { return s.flag(&s.updatingProfile) }

// beginAuthAttempt marks the pending flag, moves to Authenticating and
// returns the state to restore if the attempt fails.
func (s *SessionManager) beginAuthAttempt(flag *bool) domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.status
	*flag = true
	s.status = domain.StatusAuthenticating
	return prev
}

func (s *SessionManager) failAuthAttempt(prev domain.SessionStatus, op string, err error) {
	s.mu.Lock()
	s.status = prev
	s.mu.Unlock()

	s.log.Warn(op+" failed", "error", err)
	s.notifier.Failure(errors.UserMessage(err))
}

func (s *SessionManager) completeAuth(user domain.User) {
	s.mu.Lock()
	s.user = &user
	s.status = domain.StatusAuthenticated
	s.mu.Unlock()
}

func (s *SessionManager) clearFlag(flag *bool) {
	s.mu.Lock()
	*flag = false
	s.mu.Unlock()
}

func (s *SessionManager) flag(flag *bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *flag
}
