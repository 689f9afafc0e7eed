package lockwaiter

import (
	"sync"
	"time"

	"github.com/ngaut/log"
)

// Position is the order in which a waiter was woken among the waiters of one release.
type Position int

// WaitTimeout is the position reported when the lock was not released in time.
const WaitTimeout Position = -1

type WaitResult struct {
	Position Position
	// CommitTS is zero when the lock was rolled back.
	CommitTS uint64
}

// Waiter is a transaction blocked on the lock of LockTS at the key with hash KeyHash.
type Waiter struct {
	StartTS uint64
	LockTS  uint64
	KeyHash uint64

	timeout time.Duration
	ch      chan WaitResult
}

// Wait blocks until the lock is released or the timeout passes. A timed out waiter stays registered until CleanUp.
func (w *Waiter) Wait() WaitResult {
	timer := time.NewTimer(w.timeout)
	defer timer.Stop()
	select {
	case result := <-w.ch:
		return result
	case <-timer.C:
		return WaitResult{Position: WaitTimeout}
	}
}

// Manager parks transactions blocked on a lock until the lock's owner releases it or the wait times out.
// It implements mvcc.WakeNotifier.
type Manager struct {
	mu      sync.Mutex
	timeout time.Duration
	// waiters groups the blocked transactions by the start ts of the lock owner.
	waiters map[uint64][]*Waiter
}

func NewManager(timeout time.Duration) *Manager {
	return &Manager{
		timeout: timeout,
		waiters: make(map[uint64][]*Waiter),
	}
}

// NewWaiter registers startTS as waiting for the lock of lockTS on the key with hash keyHash.
// A timeout of zero uses the manager's default.
func (lw *Manager) NewWaiter(startTS, lockTS, keyHash uint64, timeout time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = lw.timeout
	}
	w := &Waiter{
		StartTS: startTS,
		LockTS:  lockTS,
		KeyHash: keyHash,
		timeout: timeout,
		ch:      make(chan WaitResult, 1),
	}
	lw.mu.Lock()
	lw.waiters[lockTS] = append(lw.waiters[lockTS], w)
	lw.mu.Unlock()
	return w
}

// WakeUp releases the waiters of txn blocked on any of keyHashes. Waiters are woken in registration order.
func (lw *Manager) WakeUp(txn, commitTS uint64, keyHashes []uint64) {
	released := make(map[uint64]struct{}, len(keyHashes))
	for _, h := range keyHashes {
		released[h] = struct{}{}
	}

	var ready []*Waiter
	lw.mu.Lock()
	if blocked, ok := lw.waiters[txn]; ok {
		remain := blocked[:0]
		for _, w := range blocked {
			if _, hit := released[w.KeyHash]; hit {
				ready = append(ready, w)
			} else {
				remain = append(remain, w)
			}
		}
		lw.setWaiters(txn, remain)
	}
	lw.mu.Unlock()

	for i, w := range ready {
		w.ch <- WaitResult{Position: Position(i), CommitTS: commitTS}
	}
	if len(ready) > 0 {
		log.Infof("txn %d released %d keys, woke %d waiters", txn, len(keyHashes), len(ready))
	}
}

// CleanUp unregisters w, usually after its wait timed out.
func (lw *Manager) CleanUp(w *Waiter) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	blocked := lw.waiters[w.LockTS]
	for i, other := range blocked {
		if other == w {
			lw.setWaiters(w.LockTS, append(blocked[:i], blocked[i+1:]...))
			return
		}
	}
}

// WaiterCount returns the number of waiters parked on lockTS.
func (lw *Manager) WaiterCount(lockTS uint64) int {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return len(lw.waiters[lockTS])
}

// setWaiters must be called with mu held.
func (lw *Manager) setWaiters(lockTS uint64, blocked []*Waiter) {
	if len(blocked) == 0 {
		delete(lw.waiters, lockTS)
		return
	}
	lw.waiters[lockTS] = blocked
}
