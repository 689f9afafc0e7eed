package concurrency

import (
	"go.uber.org/atomic"
)

// Manager tracks the largest timestamp observed by transactional reads and status checks on this store.
//
// Any timestamp handed out afterwards for a new transaction must be larger than MaxTS, otherwise it could read a
// snapshot older than a decision already taken about a lock at that version. There should be one Manager per store,
// shared between all commands.
type Manager struct {
	maxTS *atomic.Uint64
}

// NewManager creates a Manager whose watermark starts at latestTS.
func NewManager(latestTS uint64) *Manager {
	return &Manager{maxTS: atomic.NewUint64(latestTS)}
}

// UpdateMaxTS raises the watermark to ts. The watermark never decreases; racing updates resolve to the largest ts.
func (m *Manager) UpdateMaxTS(ts uint64) {
	for {
		old := m.maxTS.Load()
		if old >= ts {
			return
		}
		if m.maxTS.CAS(old, ts) {
			return
		}
	}
}

// MaxTS returns the current watermark.
func (m *Manager) MaxTS() uint64 {
	return m.maxTS.Load()
}
