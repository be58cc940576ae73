package annotations

import (
	"sync"
)

// Store is the in-memory annotation store: session → order → marked item
// set. Marks live only as long as the process and the session; orders
// that drop out of the active snapshot leave orphaned entries behind,
// which is fine because EndSession discards the whole session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]map[string]map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]map[string]map[string]struct{}),
	}
}

func (s *Store) Toggle(sessionID, orderID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, ok := s.sessions[sessionID]
	if !ok {
		orders = make(map[string]map[string]struct{})
		s.sessions[sessionID] = orders
	}
	items, ok := orders[orderID]
	if !ok {
		items = make(map[string]struct{})
		orders[orderID] = items
	}

	if _, marked := items[itemID]; marked {
		delete(items, itemID)
		return false, nil
	}
	items[itemID] = struct{}{}
	return true, nil
}

func (s *Store) IsMarked(sessionID, orderID, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.sessions[sessionID][orderID]
	if !ok {
		return false, nil
	}
	_, marked := items[itemID]
	return marked, nil
}

func (s *Store) Marked(sessionID, orderID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.sessions[sessionID][orderID]
	if !ok {
		return nil, nil
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) EndSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *Store) Close() error {
	return nil
}
