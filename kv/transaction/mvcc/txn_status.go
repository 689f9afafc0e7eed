package mvcc

import (
	"bytes"
	"fmt"
)

// TxnStatus is the outcome of resolving a transaction. The concrete types are RolledBack, TtlExpire, Committed,
// Uncommitted and LockNotExist.
type TxnStatus interface {
	isTxnStatus()
	String() string
}

// RolledBack means a rollback record of the transaction exists.
type RolledBack struct{}

// TtlExpire means the lock was alive until this check, which found its TTL expired and rolled it back.
type TtlExpire struct{}

// Committed means the transaction committed at CommitTS.
type Committed struct {
	CommitTS uint64
}

// Uncommitted means the lock is alive. Lock carries the pushed MinCommitTS if a push happened.
type Uncommitted struct {
	Lock              *Lock
	MinCommitTSPushed bool
}

// LockNotExist means there was no trace of the transaction and a rollback record was written for it.
type LockNotExist struct{}

func (RolledBack) isTxnStatus()   {}
func (TtlExpire) isTxnStatus()    {}
func (Committed) isTxnStatus()    {}
func (Uncommitted) isTxnStatus()  {}
func (LockNotExist) isTxnStatus() {}

func (RolledBack) String() string   { return "RolledBack" }
func (TtlExpire) String() string    { return "TtlExpire" }
func (LockNotExist) String() string { return "LockNotExist" }

func (s Committed) String() string {
	return fmt.Sprintf("Committed{commit_ts: %d}", s.CommitTS)
}

func (s Uncommitted) String() string {
	return fmt.Sprintf("Uncommitted{min_commit_ts: %d, ttl: %d, pushed: %v}", s.Lock.MinCommitTS, s.Lock.Ttl, s.MinCommitTSPushed)
}

// MissingLockAction decides what CheckTxnStatusMissingLock does when it finds no trace of the transaction.
type MissingLockAction int

const (
	// MissingLockProtectedRollback writes a protected rollback record.
	MissingLockProtectedRollback MissingLockAction = iota
	// MissingLockReturnError fails with ErrTxnNotFound.
	MissingLockReturnError
)

// makeRollback builds the record that rolls back startTS, or returns nil when nothing should be written.
// overlapped is another transaction's record already stored at commit ts == startTS.
func makeRollback(startTS uint64, protected bool, overlapped *Write) *Write {
	if overlapped != nil {
		if !protected {
			return nil
		}
		w := *overlapped
		w.HasOverlappedRollback = true
		return &w
	}
	return &Write{StartTS: startTS, Kind: WriteKindRollback, Protected: protected}
}

// CheckTxnStatusMissingLock resolves the transaction txn.StartTS whose primary lock is missing.
func (txn *MvccTxn) CheckTxnStatusMissingLock(primary []byte, action MissingLockAction) (TxnStatus, error) {
	record, err := txn.TxnCommitRecord(primary)
	if err != nil {
		return nil, err
	}
	switch {
	case record.Write != nil:
		if record.Write.Kind == WriteKindRollback {
			return RolledBack{}, nil
		}
		return Committed{CommitTS: record.CommitTS}, nil
	case record.OverlappedRollback:
		return RolledBack{}, nil
	}

	if action == MissingLockReturnError {
		return nil, &ErrTxnNotFound{StartTS: txn.StartTS, PrimaryKey: primary}
	}
	if write := makeRollback(txn.StartTS, action == MissingLockProtectedRollback, record.Overlapped); write != nil {
		txn.PutWrite(primary, txn.StartTS, write)
	}
	return LockNotExist{}, nil
}

// CheckWriteAndRollbackLock rolls back lock, which is held by txn.StartTS on key, and returns the released lock.
func (txn *MvccTxn) CheckWriteAndRollbackLock(key []byte, lock *Lock, isPessimisticTxn bool) (*ReleasedLock, error) {
	record, err := txn.TxnCommitRecord(key)
	if err != nil {
		return nil, err
	}
	if record.Write != nil && record.Write.Kind != WriteKindRollback {
		return nil, &ErrInvariantViolation{
			Reason:  fmt.Sprintf("lock exists but %s record found at %d", record.Write.Kind, record.CommitTS),
			Key:     key,
			StartTS: txn.StartTS,
		}
	}
	if record.Write == nil && !record.OverlappedRollback {
		if lock.Kind == WriteKindPut && len(lock.ShortValue) == 0 {
			txn.DeleteValue(key)
		}
		protected := isPessimisticTxn && bytes.Equal(key, lock.Primary)
		if write := makeRollback(txn.StartTS, protected, record.Overlapped); write != nil {
			txn.PutWrite(key, txn.StartTS, write)
		}
	}
	txn.DeleteLock(key)
	return NewReleasedLock(key, isPessimisticTxn), nil
}
