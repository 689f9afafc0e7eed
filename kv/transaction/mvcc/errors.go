package mvcc

import (
	"fmt"
)

// ErrTxnNotFound is returned when neither a lock nor a commit record of a transaction exists and the caller
// asked not to roll it back.
type ErrTxnNotFound struct {
	StartTS    uint64
	PrimaryKey []byte
}

func (e *ErrTxnNotFound) Error() string {
	return fmt.Sprintf("txn %d not found, primary key %q", e.StartTS, e.PrimaryKey)
}

// ErrInvariantViolation reports a state that correct clients can never produce. It fails the operation only.
type ErrInvariantViolation struct {
	Reason  string
	Key     []byte
	StartTS uint64
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("invariant violated on key %q of txn %d: %s", e.Key, e.StartTS, e.Reason)
}
