package commands

import (
	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
)

// Action tells the caller what a check txn status did to the primary lock.
type Action int

const (
	NoAction Action = iota
	TTLExpireRollback
	LockNotExistRollback
	MinCommitTSPushed
)

func (a Action) String() string {
	switch a {
	case NoAction:
		return "NoAction"
	case TTLExpireRollback:
		return "TTLExpireRollback"
	case LockNotExistRollback:
		return "LockNotExistRollback"
	case MinCommitTSPushed:
		return "MinCommitTSPushed"
	}
	return "Unknown"
}

// CheckTxnStatusResponse is the caller-facing form of a TxnStatus.
type CheckTxnStatusResponse struct {
	Action Action
	// CommitVersion is non-zero only for committed transactions.
	CommitVersion uint64
	// LockTtl is non-zero only while the lock is alive.
	LockTtl  uint64
	LockInfo *mvcc.Lock
	Status   mvcc.TxnStatus
}

func NewCheckTxnStatusResponse(status mvcc.TxnStatus) *CheckTxnStatusResponse {
	resp := &CheckTxnStatusResponse{Status: status}
	switch s := status.(type) {
	case mvcc.RolledBack:
	case mvcc.TtlExpire:
		resp.Action = TTLExpireRollback
	case mvcc.LockNotExist:
		resp.Action = LockNotExistRollback
	case mvcc.Committed:
		resp.CommitVersion = s.CommitTS
	case mvcc.Uncommitted:
		resp.LockTtl = s.Lock.Ttl
		resp.LockInfo = s.Lock
		if s.MinCommitTSPushed {
			resp.Action = MinCommitTSPushed
		}
	}
	return resp
}
