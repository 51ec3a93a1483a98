package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"convo/auth"
	"convo/domain"
	"convo/errors"
	"convo/mocks"
	"convo/transport"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sessionFixture struct {
	api      *mocks.MockIAuthAPI
	conns    *mocks.MockIConnectionManager
	notifier *mocks.MockNotifier
	session  *SessionManager
}

func newSessionFixture(t *testing.T) sessionFixture {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockIAuthAPI(ctrl)
	conns := mocks.NewMockIConnectionManager(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return sessionFixture{
		api:      api,
		conns:    conns,
		notifier: notifier,
		session:  NewSessionManager(api, conns, notifier, log),
	}
}

func TestSessionManager_CheckInitialSession(t *testing.T) {
	ctx := context.Background()

	t.Run("should authenticate and connect when a session survives", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)
		user := domain.User{ID: "u1", Email: "a@x.com", FullName: "Ada"}

		f.api.EXPECT().CurrentSession(ctx).Return(user, nil)
		f.conns.EXPECT().Connect(ctx, "u1").Return(nil)

		req.Equal(domain.StatusCheckingInitial, f.session.Status())
		req.NoError(f.session.CheckInitialSession(ctx))

		req.Equal(domain.StatusAuthenticated, f.session.Status())
		current, ok := f.session.CurrentUser()
		req.True(ok)
		req.Equal(user, current)
	})

	t.Run("should fall back to anonymous without notifying", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		f.api.EXPECT().CurrentSession(ctx).
			Return(domain.User{}, &transport.APIError{Status: 401, Message: "no session"})

		req.NoError(f.session.CheckInitialSession(ctx))

		req.Equal(domain.StatusAnonymous, f.session.Status())
		_, ok := f.session.CurrentUser()
		req.False(ok)
	})
}

func TestSessionManager_SignUp(t *testing.T) {
	ctx := context.Background()
	form := auth.SignUpRequest{FullName: "Ada", Email: "a@x.com", Password: "Secret123"}

	t.Run("should authenticate, connect and notify on success", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)
		user := domain.User{ID: "u1", Email: form.Email, FullName: form.FullName}

		f.api.EXPECT().SignUp(ctx, form).Return(user, nil)
		f.conns.EXPECT().Connect(ctx, "u1").Return(nil)
		f.notifier.EXPECT().Success("Account created successfully")

		req.NoError(f.session.SignUp(ctx, form))
		req.Equal(domain.StatusAuthenticated, f.session.Status())
		req.False(f.session.IsSigningUp())
	})

	t.Run("should surface the server message and restore the prior state on failure", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		f.api.EXPECT().CurrentSession(ctx).Return(domain.User{}, fmt.Errorf("expired"))
		req.NoError(f.session.CheckInitialSession(ctx))

		f.api.EXPECT().SignUp(ctx, form).
			Return(domain.User{}, &transport.APIError{Status: 409, Message: "Email already in use"})
		f.notifier.EXPECT().Failure("Email already in use")

		req.Error(f.session.SignUp(ctx, form))
		req.Equal(domain.StatusAnonymous, f.session.Status())
		req.False(f.session.IsSigningUp())
		_, ok := f.session.CurrentUser()
		req.False(ok)
	})

	t.Run("should fall back to a generic message when the payload lacks one", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		f.api.EXPECT().SignUp(ctx, form).Return(domain.User{}, fmt.Errorf("connection refused"))
		f.notifier.EXPECT().Failure(errors.FallbackMessage)

		req.Error(f.session.SignUp(ctx, form))
	})
}

func TestSessionManager_LogIn(t *testing.T) {
	ctx := context.Background()
	form := auth.LogInRequest{Email: "a@x.com", Password: "Secret123"}

	t.Run("should authenticate and connect on success", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)
		user := domain.User{ID: "u1", Email: form.Email}

		f.api.EXPECT().LogIn(ctx, form).Return(user, nil)
		f.conns.EXPECT().Connect(ctx, "u1").Return(nil)
		f.notifier.EXPECT().Success("Login successful")

		req.NoError(f.session.LogIn(ctx, form))
		req.Equal(domain.StatusAuthenticated, f.session.Status())
		req.False(f.session.IsLoggingIn())
	})

	t.Run("should keep the session out of Authenticated on failure", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		f.api.EXPECT().LogIn(ctx, form).
			Return(domain.User{}, &transport.APIError{Status: 401, Message: "Invalid credentials"})
		f.notifier.EXPECT().Failure("Invalid credentials")

		req.Error(f.session.LogIn(ctx, form))
		req.NotEqual(domain.StatusAuthenticated, f.session.Status())
		req.False(f.session.IsLoggingIn())
	})
}

func TestSessionManager_LogOut(t *testing.T) {
	ctx := context.Background()

	authenticate := func(t *testing.T, f sessionFixture) {
		t.Helper()
		user := domain.User{ID: "u1", Email: "a@x.com"}
		f.api.EXPECT().CurrentSession(ctx).Return(user, nil)
		f.conns.EXPECT().Connect(ctx, "u1").Return(nil)
		require.NoError(t, f.session.CheckInitialSession(ctx))
	}

	t.Run("should clear identity and disconnect on success", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)
		authenticate(t, f)

		f.api.EXPECT().LogOut(ctx).Return(nil)
		f.conns.EXPECT().Disconnect().Return(nil)
		f.notifier.EXPECT().Success("Logout successful")

		req.NoError(f.session.LogOut(ctx))
		req.Equal(domain.StatusAnonymous, f.session.Status())
		_, ok := f.session.CurrentUser()
		req.False(ok)
	})

	t.Run("should leave local state untouched when the server refuses", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)
		authenticate(t, f)

		f.api.EXPECT().LogOut(ctx).
			Return(&transport.APIError{Status: 500, Message: "Try again later"})
		f.notifier.EXPECT().Failure("Try again later")

		req.Error(f.session.LogOut(ctx))
		// Server is the source of truth: no local guessing.
		req.Equal(domain.StatusAuthenticated, f.session.Status())
		_, ok := f.session.CurrentUser()
		req.True(ok)
	})
}

func TestSessionManager_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	patch := auth.ProfilePatch{FullName: "Ada Lovelace"}

	t.Run("should replace the identity with the server response", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		user := domain.User{ID: "u1", Email: "a@x.com", FullName: "Ada"}
		f.api.EXPECT().CurrentSession(ctx).Return(user, nil)
		f.conns.EXPECT().Connect(ctx, "u1").Return(nil)
		req.NoError(f.session.CheckInitialSession(ctx))

		updated := user
		updated.FullName = "Ada Lovelace"
		f.api.EXPECT().UpdateProfile(ctx, patch).Return(updated, nil)
		f.notifier.EXPECT().Success("Profile updated successfully")

		req.NoError(f.session.UpdateProfile(ctx, patch))
		current, ok := f.session.CurrentUser()
		req.True(ok)
		req.Equal("Ada Lovelace", current.FullName)
		req.False(f.session.IsUpdatingProfile())
	})

	t.Run("should only notify on failure", func(t *testing.T) {
		req := require.New(t)
		f := newSessionFixture(t)

		f.api.EXPECT().UpdateProfile(ctx, patch).
			Return(domain.User{}, &transport.APIError{Status: 400, Message: "Name too short"})
		f.notifier.EXPECT().Failure("Name too short")

		req.Error(f.session.UpdateProfile(ctx, patch))
		req.False(f.session.IsUpdatingProfile())
	})
}
