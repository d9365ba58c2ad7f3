package usecase

import "sync"

// clearedSet is the optimistic unread override: chat ids a viewer has opened
// whose unread count may be shown as zero ahead of the mark-read round trip.
// It is a short-lived display device, never a second source of truth:
//   - a new incoming message invalidates the override for its chat, so it
//     cannot mask a message that arrived after it was set;
//   - ListChats discards a viewer's whole set before computing, so nothing
//     here survives an authoritative refresh.
type clearedSet struct {
	mu     sync.Mutex
	byUser map[string]map[string]struct{}
}

func newClearedSet() *clearedSet {
	return &clearedSet{
		byUser: make(map[string]map[string]struct{}),
	}
}

func (s *clearedSet) set(userID, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chats, ok := s.byUser[userID]
	if !ok {
		chats = make(map[string]struct{})
		s.byUser[userID] = chats
	}
	chats[chatID] = struct{}{}
}

func (s *clearedSet) has(userID, chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUser[userID][chatID]
	return ok
}

func (s *clearedSet) invalidate(userID, chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser[userID], chatID)
}

func (s *clearedSet) discard(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userID)
}
