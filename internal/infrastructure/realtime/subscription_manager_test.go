package realtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/internal/domain/entity"
	"taskmate/pkg/errors"
)

type fakeSource struct {
	mu     sync.Mutex
	opens  map[string]int
	chans  map[string]chan string
	closed map[string]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		opens:  make(map[string]int),
		chans:  make(map[string]chan string),
		closed: make(map[string]bool),
	}
}

func (s *fakeSource) Open(ctx context.Context, chatID string) (<-chan string, error) {
	ch := make(chan string, 8)

	s.mu.Lock()
	s.opens[chatID]++
	s.chans[chatID] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.chans[chatID] == ch {
			s.closed[chatID] = true
		}
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (s *fakeSource) emit(chatID, messageID string) {
	s.mu.Lock()
	ch := s.chans[chatID]
	s.mu.Unlock()
	ch <- messageID
}

func (s *fakeSource) openCount(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[chatID]
}

type fakeMessages struct {
	failFor string
}

func (f *fakeMessages) GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	if messageID == f.failFor {
		return nil, errors.NotFound("Message", nil)
	}
	return &entity.Message{
		ID:       messageID,
		ChatID:   chatID,
		SenderID: "bob",
		Body:     "body of " + messageID,
		Type:     entity.MessageTypeText,
	}, nil
}

type fakeUsers struct{}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return &entity.User{ID: id, DisplayName: "Bob"}, nil
}

func newManagerForTest(source FeedSource) *SubscriptionManager {
	return NewSubscriptionManager(source, &fakeMessages{}, &fakeUsers{})
}

func collectEvents() (MessageHandler, chan MessageEvent) {
	events := make(chan MessageEvent, 16)
	return func(event MessageEvent) {
		events <- event
	}, events
}

func waitForEvent(t *testing.T, events chan MessageEvent) MessageEvent {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return MessageEvent{}
	}
}

func TestSubscribe_DeliversEnrichedEvents(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, events := collectEvents()

	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, nil))
	defer m.UnsubscribeAll()

	source.emit("chat-1", "msg-1")

	event := waitForEvent(t, events)
	require.NotNil(t, event.Message)
	assert.Equal(t, "msg-1", event.Message.ID)
	assert.Equal(t, "body of msg-1", event.Message.Body)
	require.NotNil(t, event.Sender)
	assert.Equal(t, "Bob", event.Sender.DisplayName)
}

func TestSubscribe_RejectsMissingArguments(t *testing.T) {
	m := newManagerForTest(newFakeSource())
	onMessage, _ := collectEvents()

	err := m.Subscribe(context.Background(), "", onMessage, nil)
	assert.True(t, errors.Is(err, "VALIDATION_ERROR"))

	err = m.Subscribe(context.Background(), "chat-1", nil, nil)
	assert.True(t, errors.Is(err, "VALIDATION_ERROR"))
}

func TestSubscribe_ResubscribeReplacesFeed(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, events := collectEvents()

	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, nil))
	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, nil))
	defer m.UnsubscribeAll()

	assert.Equal(t, 2, source.openCount("chat-1"))
	assert.True(t, m.Subscribed("chat-1"))

	// Only the second feed is live; an event on it still arrives.
	source.emit("chat-1", "msg-after-resubscribe")
	event := waitForEvent(t, events)
	assert.Equal(t, "msg-after-resubscribe", event.Message.ID)
}

func TestSubscribe_FetchFailureDropsEventOnly(t *testing.T) {
	source := newFakeSource()
	m := NewSubscriptionManager(source, &fakeMessages{failFor: "gone"}, &fakeUsers{})
	onMessage, events := collectEvents()

	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, nil))
	defer m.UnsubscribeAll()

	source.emit("chat-1", "gone")
	source.emit("chat-1", "kept")

	event := waitForEvent(t, events)
	assert.Equal(t, "kept", event.Message.ID)
}

func TestUnsubscribe_IsSynchronousAndIdempotent(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, _ := collectEvents()

	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, nil))
	require.True(t, m.Subscribed("chat-1"))

	m.Unsubscribe("chat-1")
	assert.False(t, m.Subscribed("chat-1"))

	// No feed registered: both of these are harmless no-ops.
	m.Unsubscribe("chat-1")
	m.Unsubscribe("never-subscribed")
}

func TestUnsubscribeAll_TearsDownEveryFeed(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, _ := collectEvents()

	for _, chatID := range []string{"chat-1", "chat-2", "chat-3"} {
		require.NoError(t, m.Subscribe(context.Background(), chatID, onMessage, nil))
	}

	m.UnsubscribeAll()

	for _, chatID := range []string{"chat-1", "chat-2", "chat-3"} {
		assert.False(t, m.Subscribed(chatID))
	}
}

func TestFeedEndingRemovesRegistration(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, _ := collectEvents()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, m.Subscribe(ctx, "chat-1", onMessage, nil))

	// Killing the owner context ends the feed without an Unsubscribe call.
	cancel()

	require.Eventually(t, func() bool {
		return !m.Subscribed("chat-1")
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyPresence_ReachesOnlyRegisteredHandlers(t *testing.T) {
	source := newFakeSource()
	m := newManagerForTest(source)
	onMessage, _ := collectEvents()

	var mu sync.Mutex
	var seen []string
	onPresence := func(userID string, online bool) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, userID)
	}

	require.NoError(t, m.Subscribe(context.Background(), "chat-1", onMessage, onPresence))
	require.NoError(t, m.Subscribe(context.Background(), "chat-2", onMessage, nil))
	defer m.UnsubscribeAll()

	m.NotifyPresence("bob", true)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, "bob", seen[0])
}
