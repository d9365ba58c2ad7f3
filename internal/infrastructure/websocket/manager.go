package websocket

import (
	"context"
	"sync"

	"taskmate/internal/domain/repository"
	"taskmate/internal/usecase"
	"taskmate/pkg/logger"
)

// Manager tracks all connected client sessions and their chat-room
// membership. It is the process-wide realtime transport; the per-chat store
// feeds live on each session's SubscriptionManager, not here.
type Manager struct {
	clients map[string]*Client
	rooms   map[string]map[string]bool

	Register   chan *Client
	Unregister chan *Client

	users repository.UserRepository
	chats *usecase.ChatUseCase
	mutex sync.RWMutex
}

func NewManager(users repository.UserRepository) *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		users:      users,
	}
}

// Start runs the registration loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if previous, ok := m.clients[client.UserID]; ok {
					// A reconnect replaces the old session.
					previous.teardown()
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()

				m.setOnline(ctx, client.UserID, true)
				logger.Info("Client connected: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				current, ok := m.clients[client.UserID]
				if ok && current == client {
					delete(m.clients, client.UserID)
					for _, members := range m.rooms {
						delete(members, client.UserID)
					}
				}
				m.mutex.Unlock()

				if ok && current == client {
					client.teardown()
					m.setOnline(ctx, client.UserID, false)
					logger.Info("Client disconnected: %s", client.UserID)
				}

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) setOnline(ctx context.Context, userID string, online bool) {
	if err := m.users.SetOnline(ctx, userID, online); err != nil {
		logger.Warn("Failed to persist online flag for %s: %v", userID, err)
	}

	// Fan the boolean flag out to every session's subscriptions.
	m.mutex.RLock()
	sessions := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		sessions = append(sessions, client)
	}
	m.mutex.RUnlock()

	for _, client := range sessions {
		client.Subs.NotifyPresence(userID, online)
	}
}

// PublishToUser delivers a payload to one connected user, if present.
func (m *Manager) PublishToUser(userID string, payload []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if ok {
		client.enqueue(payload)
	}
}

// PublishToChat delivers a payload to every member of a chat room except
// excludeUserID.
func (m *Manager) PublishToChat(chatID string, payload []byte, excludeUserID string) {
	m.mutex.RLock()
	var targets []*Client
	for userID := range m.rooms[chatID] {
		if userID == excludeUserID {
			continue
		}
		if client, ok := m.clients[userID]; ok {
			targets = append(targets, client)
		}
	}
	m.mutex.RUnlock()

	for _, client := range targets {
		client.enqueue(payload)
	}
}

func (m *Manager) joinRoom(chatID, userID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	members, ok := m.rooms[chatID]
	if !ok {
		members = make(map[string]bool)
		m.rooms[chatID] = members
	}
	members[userID] = true
}

func (m *Manager) leaveRoom(chatID, userID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if members, ok := m.rooms[chatID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.rooms, chatID)
		}
	}
}
