// Package privilege decides which chat users may run administrative
// commands.
//
// The set is held in memory and seeded from bot.admins; grants and revokes
// made at runtime are lost on restart.
package privilege

import (
	"slices"
	"sync"
)

// Store is the capability handed to command handlers.
type Store interface {
	IsPrivileged(userID int64) bool
	Grant(userID int64) bool
	Revoke(userID int64) bool
	List() []int64
}

// Memory is a mutex-protected in-process Store.
type Memory struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewMemory returns a store seeded with ids.
func NewMemory(ids ...int64) *Memory {
	m := &Memory{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		m.ids[id] = struct{}{}
	}
	return m
}

// IsPrivileged reports whether userID may run admin commands.
func (m *Memory) IsPrivileged(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.ids[userID]
	return ok
}

// Grant adds userID and reports whether it was absent before.
func (m *Memory) Grant(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; ok {
		return false
	}
	m.ids[userID] = struct{}{}
	return true
}

// Revoke removes userID and reports whether it was present.
func (m *Memory) Revoke(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ids[userID]; !ok {
		return false
	}
	delete(m.ids, userID)
	return true
}

// List returns the privileged ids in ascending order.
func (m *Memory) List() []int64 {
	m.mu.RLock()
	ids := make([]int64, 0, len(m.ids))
	for id := range m.ids {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	slices.Sort(ids)
	return ids
}
