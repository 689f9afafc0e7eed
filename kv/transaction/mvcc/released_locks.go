package mvcc

import (
	farm "github.com/dgryski/go-farm"
)

// WakeNotifier resumes transactions waiting on locks of txn.
type WakeNotifier interface {
	WakeUp(txn, commitTS uint64, keyHashes []uint64)
}

// KeyHash is the hash waiters register under for a user key.
func KeyHash(key []byte) uint64 {
	return farm.Fingerprint64(key)
}

type ReleasedLock struct {
	Hash        uint64
	Pessimistic bool
}

func NewReleasedLock(key []byte, pessimistic bool) *ReleasedLock {
	return &ReleasedLock{Hash: KeyHash(key), Pessimistic: pessimistic}
}

// ReleasedLocks collects the locks a command released so their waiters can be woken once it is applied.
type ReleasedLocks struct {
	StartTS     uint64
	CommitTS    uint64
	Hashes      []uint64
	Pessimistic bool
}

func NewReleasedLocks(startTS, commitTS uint64) *ReleasedLocks {
	return &ReleasedLocks{StartTS: startTS, CommitTS: commitTS}
}

func (rl *ReleasedLocks) Push(lock *ReleasedLock) {
	if lock == nil {
		return
	}
	rl.Hashes = append(rl.Hashes, lock.Hash)
	if !rl.Pessimistic {
		rl.Pessimistic = lock.Pessimistic
	}
}

func (rl *ReleasedLocks) IsEmpty() bool {
	return len(rl.Hashes) == 0
}

// WakeUp hands the released locks to notifier. It does nothing if no lock was released.
func (rl *ReleasedLocks) WakeUp(notifier WakeNotifier) {
	if rl == nil || rl.IsEmpty() || notifier == nil {
		return
	}
	notifier.WakeUp(rl.StartTS, rl.CommitTS, rl.Hashes)
}
