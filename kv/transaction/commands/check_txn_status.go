package commands

import (
	"github.com/pingcap/errors"
	"github.com/pingcap/failpoint"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/ldeng-ustc/tikv/kv/transaction/concurrency"
	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
	"github.com/ldeng-ustc/tikv/kv/util/logutil"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

// CheckTxnStatusRequest asks for the status of the transaction LockTs, whose primary key is PrimaryKey.
type CheckTxnStatusRequest struct {
	PrimaryKey []byte
	LockTs     uint64
	// CallerStartTs is the start ts of the reader that met the lock. Zero or TsMax means the caller does not want
	// the lock's min commit ts pushed.
	CallerStartTs uint64
	// CurrentTs approximates the current time and decides TTL expiry. Zero never expires a lock.
	CurrentTs uint64
	// RollbackIfNotExist writes a protected rollback when the transaction left no trace instead of failing.
	RollbackIfNotExist bool
}

// CheckTxnStatus resolves the status of a transaction from its primary lock and write records. It rolls back an
// expired primary lock, pushes the min commit ts of a live one, and optionally rolls back a transaction that left
// no trace.
type CheckTxnStatus struct {
	CommandBase
	request  *CheckTxnStatusRequest
	cm       *concurrency.Manager
	released *mvcc.ReleasedLocks
}

func NewCheckTxnStatus(request *CheckTxnStatusRequest, cm *concurrency.Manager) *CheckTxnStatus {
	return &CheckTxnStatus{
		CommandBase: CommandBase{
			startTs: request.LockTs,
		},
		request:  request,
		cm:       cm,
		released: mvcc.NewReleasedLocks(request.LockTs, 0),
	}
}

func (c *CheckTxnStatus) WillWrite() [][]byte {
	return [][]byte{c.request.PrimaryKey}
}

// ReleasedLocks is non-empty only after the primary lock was rolled back because its TTL expired.
func (c *CheckTxnStatus) ReleasedLocks() *mvcc.ReleasedLocks {
	return c.released
}

func (c *CheckTxnStatus) PrepareWrites(txn *mvcc.MvccTxn) (interface{}, error) {
	failpoint.Inject("checkTxnStatusError", func(val failpoint.Value) {
		failpoint.Return(nil, errors.Errorf("injected check txn status error: %v", val))
	})

	req := c.request
	status, released, err := checkTxnStatus(txn, c.cm, req)
	if err != nil {
		if _, ok := errors.Cause(err).(*mvcc.ErrInvariantViolation); ok {
			log.Error("check txn status failed", logutil.Key("primary_key", req.PrimaryKey),
				zap.Uint64("lock_ts", req.LockTs), zap.Error(err))
		}
		return nil, err
	}
	c.released.Push(released)
	observeCheckTxnStatus(status)

	log.Debug("check txn status",
		logutil.Key("primary_key", req.PrimaryKey),
		zap.Uint64("lock_ts", req.LockTs),
		zap.Uint64("caller_start_ts", req.CallerStartTs),
		zap.Uint64("current_ts", req.CurrentTs),
		zap.Stringer("status", status))
	return NewCheckTxnStatusResponse(status), nil
}

func checkTxnStatus(txn *mvcc.MvccTxn, cm *concurrency.Manager, req *CheckTxnStatusRequest) (mvcc.TxnStatus, *mvcc.ReleasedLock, error) {
	// Raise the watermark before looking at the lock, so no transaction can later start below a ts this check saw.
	newMaxTS := req.LockTs
	if !tsoutil.IsMax(req.CallerStartTs) && req.CallerStartTs > newMaxTS {
		newMaxTS = req.CallerStartTs
	}
	if !tsoutil.IsMax(req.CurrentTs) && req.CurrentTs > newMaxTS {
		newMaxTS = req.CurrentTs
	}
	cm.UpdateMaxTS(newMaxTS)

	lock, err := txn.GetLock(req.PrimaryKey)
	if err != nil {
		return nil, nil, err
	}
	if lock != nil && lock.Ts == req.LockTs {
		return checkTxnStatusLockExists(txn, req.PrimaryKey, lock, req.CallerStartTs, req.CurrentTs)
	}

	action := mvcc.MissingLockReturnError
	if req.RollbackIfNotExist {
		action = mvcc.MissingLockProtectedRollback
	}
	status, err := txn.CheckTxnStatusMissingLock(req.PrimaryKey, action)
	return status, nil, err
}

func checkTxnStatusLockExists(txn *mvcc.MvccTxn, primaryKey []byte, lock *mvcc.Lock, callerStartTs, currentTs uint64) (mvcc.TxnStatus, *mvcc.ReleasedLock, error) {
	if lock.UseAsyncCommit && (callerStartTs != 0 || currentTs != 0) {
		log.Warn("check_txn_status with caller_start_ts or current_ts on an async commit lock, ignoring them",
			logutil.Key("primary_key", primaryKey),
			zap.Uint64("lock_ts", lock.Ts),
			zap.Uint64("caller_start_ts", callerStartTs),
			zap.Uint64("current_ts", currentTs))
		callerStartTs, currentTs = 0, 0
	}

	if lockExpired(lock, currentTs) {
		released, err := txn.CheckWriteAndRollbackLock(primaryKey, lock, lock.IsPessimistic())
		if err != nil {
			return nil, nil, err
		}
		return mvcc.TtlExpire{}, released, nil
	}

	// A zero MinCommitTS comes from a client that does not expect it to move. A TsMax caller is a point get
	// that will skip this lock anyway.
	pushed := false
	if lock.MinCommitTS != 0 && !tsoutil.IsMax(callerStartTs) && callerStartTs >= lock.MinCommitTS {
		if lock.UseAsyncCommit {
			return nil, nil, &mvcc.ErrInvariantViolation{
				Reason:  "min_commit_ts of an async commit lock must not be pushed",
				Key:     primaryKey,
				StartTS: lock.Ts,
			}
		}
		newLock := *lock
		newLock.MinCommitTS = tsoutil.Next(callerStartTs)
		if currentTs > newLock.MinCommitTS {
			newLock.MinCommitTS = currentTs
		}
		txn.PutLock(primaryKey, &newLock)
		lock = &newLock
		pushed = true
		checkTxnStatusUpdateTs.Inc()
	}
	// TsMax callers always expect the pushed flag.
	if tsoutil.IsMax(callerStartTs) {
		pushed = true
	}
	return mvcc.Uncommitted{Lock: lock, MinCommitTSPushed: pushed}, nil, nil
}

// lockExpired compares physical times only, without computing start + ttl, which can overflow.
func lockExpired(lock *mvcc.Lock, currentTs uint64) bool {
	start, current := tsoutil.ExtractPhysical(lock.Ts), tsoutil.ExtractPhysical(currentTs)
	return current > start && current-start > lock.Ttl
}

func observeCheckTxnStatus(status mvcc.TxnStatus) {
	switch status.(type) {
	case mvcc.TtlExpire, mvcc.LockNotExist:
		checkTxnStatusRollback.Inc()
	case mvcc.Committed:
		checkTxnStatusGetCommitInfo.Inc()
	case mvcc.Uncommitted, mvcc.RolledBack:
	}
}
