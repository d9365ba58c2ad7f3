package realtime

import (
	"context"
	"sync"

	"taskmate/internal/domain/entity"
	"taskmate/pkg/errors"
	"taskmate/pkg/logger"
)

// MessageEvent is one delivered change: the single message that changed,
// enriched with the sender's profile when it could be fetched.
type MessageEvent struct {
	Message *entity.Message
	Sender  *entity.User
}

type MessageHandler func(event MessageEvent)

// PresenceHandler receives the boolean online flag for a participant.
type PresenceHandler func(userID string, online bool)

// FeedSource opens the store's raw change feed for one chat. The returned
// channel carries the ids of inserted or updated messages and is closed when
// the feed ends, whether by cancellation or by a listener failure.
type FeedSource interface {
	Open(ctx context.Context, chatID string) (<-chan string, error)
}

type MessageGetter interface {
	GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// SubscriptionManager owns the per-chat feeds of one client session. It
// guarantees at most one live feed per chat id: a re-subscribe tears down the
// existing feed before opening the new one. Subscribe and Unsubscribe must be
// driven by a single goroutine, the session's read pump; the mutex protects
// the registry against the pumps and Subscribed/NotifyPresence readers, not
// against two writers racing the same chat id. Teardown on session end may
// come from another goroutine once the read pump has stopped.
//
// The manager adds no retry layer of its own. Firestore listeners reconnect
// internally; if a feed still terminates, the subscription is dropped from
// the registry and the owner re-subscribes.
type SubscriptionManager struct {
	source   FeedSource
	messages MessageGetter
	users    UserGetter

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	cancel     context.CancelFunc
	done       chan struct{}
	onPresence PresenceHandler
}

func NewSubscriptionManager(source FeedSource, messages MessageGetter, users UserGetter) *SubscriptionManager {
	return &SubscriptionManager{
		source:   source,
		messages: messages,
		users:    users,
		feeds:    make(map[string]*feed),
	}
}

// Subscribe opens a change feed for chatID. onPresence may be nil.
func (m *SubscriptionManager) Subscribe(ctx context.Context, chatID string, onMessage MessageHandler, onPresence PresenceHandler) error {
	if chatID == "" {
		return errors.Validation("Chat id is required", nil)
	}
	if onMessage == nil {
		return errors.Validation("Message handler is required", nil)
	}

	// Tear down any existing feed for this chat before opening a new one.
	m.mu.Lock()
	existing, ok := m.feeds[chatID]
	if ok {
		delete(m.feeds, chatID)
	}
	m.mu.Unlock()
	if ok {
		existing.cancel()
		<-existing.done
	}

	feedCtx, cancel := context.WithCancel(ctx)
	events, err := m.source.Open(feedCtx, chatID)
	if err != nil {
		cancel()
		return err
	}

	f := &feed{
		cancel:     cancel,
		done:       make(chan struct{}),
		onPresence: onPresence,
	}

	m.mu.Lock()
	m.feeds[chatID] = f
	m.mu.Unlock()

	go m.pump(feedCtx, chatID, events, onMessage, f)

	logger.Debug("Subscribed to chat %s", chatID)
	return nil
}

// pump drains the raw feed, fetching the one row that changed per event
// rather than re-reading the history, and enriches it with the sender
// profile before handing it to the subscriber.
func (m *SubscriptionManager) pump(ctx context.Context, chatID string, events <-chan string, onMessage MessageHandler, f *feed) {
	defer close(f.done)

	for messageID := range events {
		message, err := m.messages.GetByID(ctx, chatID, messageID)
		if err != nil {
			logger.Warn("Dropping change event for chat %s: fetch of message %s failed: %v", chatID, messageID, err)
			continue
		}

		event := MessageEvent{Message: message}
		if sender, err := m.users.GetByID(ctx, message.SenderID); err == nil {
			event.Sender = sender
		}

		onMessage(event)
	}

	// The feed ended on its own; drop the registration so a later subscribe
	// starts clean instead of tearing down a dead feed.
	m.mu.Lock()
	if current, ok := m.feeds[chatID]; ok && current == f {
		delete(m.feeds, chatID)
	}
	m.mu.Unlock()
}

// Unsubscribe tears down the feed for chatID synchronously. Calling it when
// no feed exists is a no-op.
func (m *SubscriptionManager) Unsubscribe(chatID string) {
	m.mu.Lock()
	f, ok := m.feeds[chatID]
	if ok {
		delete(m.feeds, chatID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	f.cancel()
	<-f.done
	logger.Debug("Unsubscribed from chat %s", chatID)
}

// UnsubscribeAll tears down every tracked feed; used on session teardown.
func (m *SubscriptionManager) UnsubscribeAll() {
	m.mu.Lock()
	feeds := m.feeds
	m.feeds = make(map[string]*feed)
	m.mu.Unlock()

	for chatID, f := range feeds {
		f.cancel()
		<-f.done
		logger.Debug("Unsubscribed from chat %s", chatID)
	}
}

// Subscribed reports whether a live feed exists for chatID.
func (m *SubscriptionManager) Subscribed(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.feeds[chatID]
	return ok
}

// NotifyPresence fans the online flag out to every subscription that
// registered a presence handler.
func (m *SubscriptionManager) NotifyPresence(userID string, online bool) {
	m.mu.Lock()
	handlers := make([]PresenceHandler, 0, len(m.feeds))
	for _, f := range m.feeds {
		if f.onPresence != nil {
			handlers = append(handlers, f.onPresence)
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(userID, online)
	}
}
