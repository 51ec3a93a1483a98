package services

import (
	"context"
	"log/slog"
	"sync"

	"convo/contract"
	"convo/domain"
	"convo/domain/event"
	"convo/errors"
	"convo/moderation"

	"github.com/samber/lo"
)

// ChatSynchronizer owns the selected conversation, its message history
// and the contact roster. History is built from a REST fetch and live
// stream events appended in arrival order; it reconciles the two
// sources by filtering live events against the selection at delivery
// time rather than sequencing them.
type ChatSynchronizer struct {
	mu        sync.RWMutex
	api       contract.IChatAPI
	conns     contract.IConnectionManager
	notifier  contract.Notifier
	moderator *moderation.Moderator // optional, nil disables censoring
	log       *slog.Logger

	contacts []domain.User
	selected string // user ID, empty when no conversation is focused
	messages []domain.Message

	contactsLoading bool
	messagesLoading bool
}

func NewChatSynchronizer(api contract.IChatAPI, conns contract.IConnectionManager,
	notifier contract.Notifier, moderator *moderation.Moderator, log *slog.Logger) *ChatSynchronizer {
	return &ChatSynchronizer{
		api:       api,
		conns:     conns,
		notifier:  notifier,
		moderator: moderator,
		log:       log,
	}
}

// LoadContacts fetches the roster of conversable users, replacing it
// wholesale on success and leaving the prior roster intact on failure.
func (c *ChatSynchronizer) LoadContacts(ctx context.Context) error {
	c.setFlag(&c.contactsLoading, true)
	defer c.setFlag(&c.contactsLoading, false)

	contacts, err := c.api.ListContacts(ctx)
	if err != nil {
		c.log.Warn("loading contacts failed", "error", err)
		c.notifier.Failure(errors.UserMessage(err))
		return err
	}

	c.mu.Lock()
	c.contacts = contacts
	c.mu.Unlock()
	return nil
}

// Select focuses the conversation with userID. Pure state mutation:
// history for the new selection is fetched separately and nothing else
// is cleared. Re-selecting the current conversation is a no-op.
func (c *ChatSynchronizer) Select(userID string) {
	c.mu.Lock()
	c.selected = userID
	c.mu.Unlock()
}

// LoadHistory fetches the message history for userID and replaces the
// current history wholesale. Overlapping fetches are not sequenced:
// whichever response lands last wins.
func (c *ChatSynchronizer) LoadHistory(ctx context.Context, userID string) error {
	c.setFlag(&c.messagesLoading, true)
	defer c.setFlag(&c.messagesLoading, false)

	history, err := c.api.GetHistory(ctx, userID)
	if err != nil {
		c.log.Warn("loading history failed", "user", userID, "error", err)
		c.notifier.Failure(errors.UserMessage(err))
		return err
	}

	c.mu.Lock()
	c.messages = history
	c.mu.Unlock()
	return nil
}

// Send delivers content to the selected conversation. There is no
// optimistic insert: the message appears once, server-confirmed, or
// not at all.
func (c *ChatSynchronizer) Send(ctx context.Context, content string) error {
	c.mu.RLock()
	recipient := c.selected
	c.mu.RUnlock()

	if recipient == "" {
		return errors.ErrNoSelection
	}
	if c.moderator != nil {
		content = c.moderator.Censor(content)
	}

	msg, err := c.api.SendMessage(ctx, recipient, content)
	if err != nil {
		c.log.Warn("sending message failed", "recipient", recipient, "error", err)
		c.notifier.Failure(errors.UserMessage(err))
		return err
	}

	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	return nil
}

// SubscribeToMessages attaches the live message handler to the open
// stream. Without a selection or an open connection it does nothing:
// both are UI-guarded preconditions, re-validated here.
func (c *ChatSynchronizer) SubscribeToMessages() {
	c.mu.RLock()
	selected := c.selected
	c.mu.RUnlock()

	if selected == "" {
		return
	}
	handle := c.conns.Handle()
	if handle == nil {
		return
	}
	handle.On(event.Message, c.handleIncoming)
}

// UnsubscribeFromMessages detaches the live message handler. Callers
// pair it with SubscribeToMessages around every selection change so
// duplicate handlers never accumulate on the shared stream.
func (c *ChatSynchronizer) UnsubscribeFromMessages() {
	handle := c.conns.Handle()
	if handle == nil {
		return
	}
	handle.Off(event.Message)
}

// Contacts returns the current roster.
func (c *ChatSynchronizer) Contacts() []domain.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.User(nil), c.contacts...)
}

// SelectedUser resolves the focused conversation to its roster entry.
func (c *ChatSynchronizer) SelectedUser() (domain.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.selected == "" {
		return domain.User{}, false
	}
	return lo.Find(c.contacts, func(u domain.User) bool { return u.ID == c.selected })
}

// SelectedID returns the focused conversation's user ID, empty when
// none is selected.
func (c *ChatSynchronizer) SelectedID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Messages returns the history for the selected conversation in
// arrival order.
func (c *ChatSynchronizer) Messages() []domain.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Message(nil), c.messages...)
}

func (c *ChatSynchronizer) IsLoadingContacts() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.contactsLoading
}

func (c *ChatSynchronizer) IsLoadingMessages() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messagesLoading
}

// handleIncoming appends a live message if its sender matches the
// selection at the moment the event arrives. Checking at delivery time
// rather than subscription time keeps a message from landing in the
// wrong thread when the selection changed in between.
func (c *ChatSynchronizer) handleIncoming(payload []byte) {
	msg, err := event.DecodeMessage(payload)
	if err != nil {
		c.log.Warn("dropping malformed message event", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.SenderID != c.selected {
		return
	}
	c.messages = append(c.messages, msg)
}

func (c *ChatSynchronizer) setFlag(flag *bool, value bool) {
	c.mu.Lock()
	*flag = value
	c.mu.Unlock()
}
