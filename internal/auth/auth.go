package auth

import "sync"

// Service is the Telegram allowlist. Users not on the list are denied; the admin is
// always admitted.
type Service struct {
	mu      sync.RWMutex
	allowed map[int64]bool
	adminID int64
}

func New(initial []int64, adminID int64) *Service {
	s := &Service{allowed: make(map[int64]bool), adminID: adminID}
	for _, id := range initial {
		s.allowed[id] = true
	}
	return s
}

func (s *Service) IsAllowed(userID int64) bool {
	if userID == s.adminID && s.adminID != 0 {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allowed[userID]
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminID != 0 && userID == s.adminID
}

func (s *Service) AdminID() int64 { return s.adminID }

// Allow adds userID to the allowlist.
func (s *Service) Allow(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowed[userID] = true
}

// Remove drops userID from the allowlist. The admin cannot be removed.
func (s *Service) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.allowed, userID)
}
