package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"convo/contract"
	"convo/domain"
	"convo/domain/event"
	"convo/errors"
	"convo/mocks"
	"convo/moderation"
	"convo/transport"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type chatFixture struct {
	api      *mocks.MockIChatAPI
	conns    *mocks.MockIConnectionManager
	notifier *mocks.MockNotifier
	chat     *ChatSynchronizer
}

func newChatFixture(t *testing.T, moderator *moderation.Moderator) chatFixture {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockIChatAPI(ctrl)
	conns := mocks.NewMockIConnectionManager(ctrl)
	notifier := mocks.NewMockNotifier(ctrl)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	return chatFixture{
		api:      api,
		conns:    conns,
		notifier: notifier,
		chat:     NewChatSynchronizer(api, conns, notifier, moderator, log),
	}
}

func newMessage(sender, recipient, content string) domain.Message {
	return domain.Message{
		ID:          uuid.New(),
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestChatSynchronizer_LoadContacts(t *testing.T) {
	ctx := context.Background()

	t.Run("should replace the roster wholesale on success", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		roster := []domain.User{{ID: "u2", FullName: "Bob"}, {ID: "u3", FullName: "Eve"}}

		f.api.EXPECT().ListContacts(ctx).Return(roster, nil)

		req.NoError(f.chat.LoadContacts(ctx))
		req.Equal(roster, f.chat.Contacts())
		req.False(f.chat.IsLoadingContacts())
	})

	t.Run("should keep the prior roster and notify on failure", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		roster := []domain.User{{ID: "u2"}}

		f.api.EXPECT().ListContacts(ctx).Return(roster, nil)
		req.NoError(f.chat.LoadContacts(ctx))

		f.api.EXPECT().ListContacts(ctx).
			Return(nil, &transport.APIError{Status: 500, Message: "Roster unavailable"})
		f.notifier.EXPECT().Failure("Roster unavailable")

		req.Error(f.chat.LoadContacts(ctx))
		req.Equal(roster, f.chat.Contacts())
		req.False(f.chat.IsLoadingContacts())
	})
}

func TestChatSynchronizer_LoadHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("should replace history wholesale, last fetch wins", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		first := []domain.Message{newMessage("u2", "u1", "hi")}
		second := []domain.Message{newMessage("u3", "u1", "yo"), newMessage("u1", "u3", "hey")}

		f.api.EXPECT().GetHistory(ctx, "u2").Return(first, nil)
		f.api.EXPECT().GetHistory(ctx, "u3").Return(second, nil)

		req.NoError(f.chat.LoadHistory(ctx, "u2"))
		req.Equal(first, f.chat.Messages())

		req.NoError(f.chat.LoadHistory(ctx, "u3"))
		req.Equal(second, f.chat.Messages())
	})

	t.Run("should notify and keep history on failure", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		history := []domain.Message{newMessage("u2", "u1", "hi")}

		f.api.EXPECT().GetHistory(ctx, "u2").Return(history, nil)
		req.NoError(f.chat.LoadHistory(ctx, "u2"))

		f.api.EXPECT().GetHistory(ctx, "u2").
			Return(nil, &transport.APIError{Status: 500, Message: "History unavailable"})
		f.notifier.EXPECT().Failure("History unavailable")

		req.Error(f.chat.LoadHistory(ctx, "u2"))
		req.Equal(history, f.chat.Messages())
		req.False(f.chat.IsLoadingMessages())
	})
}

func TestChatSynchronizer_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("should fail without a selection and leave everything unchanged", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)

		err := f.chat.Send(ctx, "hello")

		req.ErrorIs(err, errors.ErrNoSelection)
		req.Empty(f.chat.Messages())
		req.False(f.chat.IsLoadingMessages())
	})

	t.Run("should append exactly the server-confirmed message", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		f.chat.Select("u2")

		confirmed := newMessage("u1", "u2", "hello")
		f.api.EXPECT().SendMessage(ctx, "u2", "hello").Return(confirmed, nil)

		req.NoError(f.chat.Send(ctx, "hello"))
		req.Equal([]domain.Message{confirmed}, f.chat.Messages())
	})

	t.Run("should never mutate history on failure", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		f.chat.Select("u2")

		f.api.EXPECT().SendMessage(ctx, "u2", "hello").
			Return(domain.Message{}, &transport.APIError{Status: 500, Message: "Delivery failed"})
		f.notifier.EXPECT().Failure("Delivery failed")

		req.Error(f.chat.Send(ctx, "hello"))
		req.Empty(f.chat.Messages())
	})

	t.Run("should censor outgoing content when a moderator is wired", func(t *testing.T) {
		req := require.New(t)
		moderator, err := moderation.NewModerator([]string{"ugly"}, '*')
		req.NoError(err)
		f := newChatFixture(t, &moderator)
		f.chat.Select("u2")

		confirmed := newMessage("u1", "u2", "you **** duck")
		f.api.EXPECT().SendMessage(ctx, "u2", "you **** duck").Return(confirmed, nil)

		req.NoError(f.chat.Send(ctx, "you ugly duck"))
	})
}

func TestChatSynchronizer_Subscription(t *testing.T) {
	t.Run("should no-op without a selection", func(t *testing.T) {
		f := newChatFixture(t, nil)
		// Neither Handle nor On may be called.
		f.chat.SubscribeToMessages()
	})

	t.Run("should no-op without an open connection", func(t *testing.T) {
		f := newChatFixture(t, nil)
		f.chat.Select("u2")
		f.conns.EXPECT().Handle().Return(nil)

		f.chat.SubscribeToMessages()
	})

	t.Run("should append live messages from the selected sender exactly once", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		f.chat.Select("u2")

		ctrl := gomock.NewController(t)
		handle := mocks.NewMockEventRegistrar(ctrl)
		f.conns.EXPECT().Handle().Return(handle)

		var incoming contract.EventHandler
		handle.EXPECT().On(event.Message, gomock.Any()).
			Do(func(_ string, handler contract.EventHandler) { incoming = handler })

		f.chat.SubscribeToMessages()
		req.NotNil(incoming)

		incoming([]byte(`{"id":"` + uuid.NewString() + `","senderId":"u2","recipientId":"u1","content":"m3","createdAt":"2026-09-01T10:00:00Z"}`))
		messages := f.chat.Messages()
		req.Len(messages, 1)
		req.Equal("m3", messages[0].Content)
	})

	t.Run("should drop live messages from other senders", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		f.chat.Select("u2")

		ctrl := gomock.NewController(t)
		handle := mocks.NewMockEventRegistrar(ctrl)
		f.conns.EXPECT().Handle().Return(handle)

		var incoming contract.EventHandler
		handle.EXPECT().On(event.Message, gomock.Any()).
			Do(func(_ string, handler contract.EventHandler) { incoming = handler })

		f.chat.SubscribeToMessages()
		incoming([]byte(`{"id":"` + uuid.NewString() + `","senderId":"u5","recipientId":"u1","content":"wrong thread","createdAt":"2026-09-01T10:00:00Z"}`))

		req.Empty(f.chat.Messages())
	})

	t.Run("should filter against the selection at delivery time", func(t *testing.T) {
		req := require.New(t)
		f := newChatFixture(t, nil)
		f.chat.Select("u2")

		ctrl := gomock.NewController(t)
		handle := mocks.NewMockEventRegistrar(ctrl)
		f.conns.EXPECT().Handle().Return(handle)

		var incoming contract.EventHandler
		handle.EXPECT().On(event.Message, gomock.Any()).
			Do(func(_ string, handler contract.EventHandler) { incoming = handler })

		f.chat.SubscribeToMessages()

		// Selection moved after subscribing: events from the old
		// selection must not land in the new thread.
		f.chat.Select("u3")
		incoming([]byte(`{"id":"` + uuid.NewString() + `","senderId":"u2","recipientId":"u1","content":"late","createdAt":"2026-09-01T10:00:00Z"}`))

		req.Empty(f.chat.Messages())
	})

	t.Run("should unsubscribe through the connection handle", func(t *testing.T) {
		f := newChatFixture(t, nil)

		ctrl := gomock.NewController(t)
		handle := mocks.NewMockEventRegistrar(ctrl)
		f.conns.EXPECT().Handle().Return(handle)
		handle.EXPECT().Off(event.Message)

		f.chat.UnsubscribeFromMessages()
	})

	t.Run("should tolerate unsubscribing without a connection", func(t *testing.T) {
		f := newChatFixture(t, nil)
		f.conns.EXPECT().Handle().Return(nil)

		f.chat.UnsubscribeFromMessages()
	})
}
