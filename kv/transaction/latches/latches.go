package latches

import (
	"sort"
	"sync"

	farm "github.com/dgryski/go-farm"

	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
)

// Latching provides atomicity of TinyKV commands. This should not be confused with SQL transactions which provide atomicity
// for multiple TinyKV commands. For example, two check-txn-status commands on the same primary key both write to
// the lock and write CFs, so if they race, inconsistent data could be written. By latching the keys each command might
// write, we ensure that the two commands will not race to write the same keys.
//
// A latch guards a slot of the key space. Keys are mapped to slots by their farm fingerprint, so there is one latch per
// user key (not one per CF or per encoded key), and two unrelated keys may share a slot. Latches are only needed for
// writing. All keys that a command might write must be latched at once.

const defaultSlots = 2048

type Latches struct {
	// Before modifying any property of a key, the thread must have the latch for that key's slot. `latchMap` maps each
	// latched slot to a WaitGroup. Threads who find a slot latched should wait on that WaitGroup.
	latchMap map[uint64]*sync.WaitGroup
	// Mutex to guard latchMap. A thread must hold this mutex while it makes any change to latchMap.
	latchGuard sync.Mutex
	mask       uint64
	// An optional validation function, only used for testing.
	Validation func(txn *mvcc.MvccTxn, keys [][]byte)
}

// NewLatches creates a new Latches object for managing a databases latches. There should only be one such object, shared
// between all threads.
func NewLatches() *Latches {
	return NewLatchesWithSlots(defaultSlots)
}

// NewLatchesWithSlots creates latches with size slots, rounded up to a power of two.
func NewLatchesWithSlots(size int) *Latches {
	slots := uint64(1)
	for slots < uint64(size) {
		slots <<= 1
	}
	return &Latches{
		latchMap: make(map[uint64]*sync.WaitGroup),
		mask:     slots - 1,
	}
}

// slots returns the sorted, deduplicated slots of keys.
func (l *Latches) slots(keys [][]byte) []uint64 {
	slots := make([]uint64, 0, len(keys))
	for _, key := range keys {
		slots = append(slots, farm.Fingerprint64(key)&l.mask)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
	uniq := slots[:0]
	for i, s := range slots {
		if i == 0 || s != slots[i-1] {
			uniq = append(uniq, s)
		}
	}
	return uniq
}

// AcquireLatches tries lock all Latches specified by keys. If this succeeds, nil is returned. If any of the keys are
// locked, then AcquireLatches requires a WaitGroup which the thread can use to be woken when the lock is free.
func (l *Latches) AcquireLatches(keysToLatch [][]byte) *sync.WaitGroup {
	slots := l.slots(keysToLatch)
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	for _, slot := range slots {
		if latchWg, ok := l.latchMap[slot]; ok {
			return latchWg
		}
	}

	// All Latches are available, lock them all with a new wait group.
	wg := new(sync.WaitGroup)
	wg.Add(1)
	for _, slot := range slots {
		l.latchMap[slot] = wg
	}
	return nil
}

// ReleaseLatches releases the latches for all keys in keysToUnlatch. It will wakeup any threads blocked on one of the
// latches. All keys in keysToUnlatch must have been locked together in one call to AcquireLatches.
func (l *Latches) ReleaseLatches(keysToUnlatch [][]byte) {
	slots := l.slots(keysToUnlatch)
	l.latchGuard.Lock()
	defer l.latchGuard.Unlock()

	var wg *sync.WaitGroup
	for _, slot := range slots {
		if wg == nil {
			wg = l.latchMap[slot]
		}
		delete(l.latchMap, slot)
	}
	if wg != nil {
		wg.Done()
	}
}

// WaitForLatches attempts to lock all keys in keysToLatch using AcquireLatches. If a latch is already locked, then
// WaitForLatches will wait for it to become unlocked then try again. Therefore WaitForLatches may block for an unbounded
// length of time.
func (l *Latches) WaitForLatches(keysToLatch [][]byte) {
	for {
		wg := l.AcquireLatches(keysToLatch)
		if wg == nil {
			return
		}
		wg.Wait()
	}
}

// Validate calls the function in Validation, if it exists.
func (l *Latches) Validate(txn *mvcc.MvccTxn, latched [][]byte) {
	if l.Validation != nil {
		l.Validation(txn, latched)
	}
}
