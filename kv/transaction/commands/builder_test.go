package commands

// This file contains utility code for testing commands.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/transaction/concurrency"
	"github.com/ldeng-ustc/tikv/kv/transaction/latches"
	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

func ts(physical, logical int64) uint64 {
	return tsoutil.ComposeTS(physical, logical)
}

// testBuilder is a helper type for running command tests.
type testBuilder struct {
	t       *testing.T
	mem     *storage.MemStorage
	latches *latches.Latches
	cm      *concurrency.Manager
	waker   *recordingWaker
}

type wakeUp struct {
	txn, commitTS uint64
	keyHashes     []uint64
}

type recordingWaker struct {
	calls []wakeUp
}

func (w *recordingWaker) WakeUp(txn, commitTS uint64, keyHashes []uint64) {
	w.calls = append(w.calls, wakeUp{txn, commitTS, keyHashes})
}

func newBuilder(t *testing.T) *testBuilder {
	l := latches.NewLatches()
	l.Validation = func(txn *mvcc.MvccTxn, keys [][]byte) {
		keyMap := make(map[string]struct{})
		for _, k := range keys {
			keyMap[string(k)] = struct{}{}
		}
		for _, wr := range txn.Writes() {
			key := wr.Key()
			if wr.Cf() != engine_util.CfLock {
				key = mvcc.DecodeUserKey(key)
			}
			if _, ok := keyMap[string(key)]; !ok {
				t.Errorf("Failed latching validation: tried to write a key which was not latched in %v", wr.Data)
			}
		}
	}
	return &testBuilder{
		t:       t,
		mem:     storage.NewMemStorage(),
		latches: l,
		cm:      concurrency.NewManager(0),
		waker:   new(recordingWaker),
	}
}

// putLock seeds a lock, and its value in the default CF for put locks without a short value.
func (b *testBuilder) putLock(key []byte, lock *mvcc.Lock) {
	b.mem.Set(engine_util.CfLock, key, lock.ToBytes())
	if lock.Kind == mvcc.WriteKindPut && len(lock.ShortValue) == 0 {
		b.mem.Set(engine_util.CfDefault, mvcc.EncodeKey(key, lock.Ts), []byte("value"))
	}
}

// largeTxnLock is a lock whose min commit ts starts at start ts + 1.
func largeTxnLock(primary []byte, startTs, ttl uint64) *mvcc.Lock {
	return &mvcc.Lock{
		Primary:     primary,
		Ts:          startTs,
		Ttl:         ttl,
		Kind:        mvcc.WriteKindPut,
		MinCommitTS: startTs + 1,
	}
}

// commit turns the lock of startTs on key into a commit record at commitTs.
func (b *testBuilder) commit(key []byte, startTs, commitTs uint64) {
	write := &mvcc.Write{StartTS: startTs, Kind: mvcc.WriteKindPut}
	require.Nil(b.t, b.mem.Write([]storage.Modify{
		{Data: storage.Put{Key: mvcc.EncodeKey(key, commitTs), Value: write.ToBytes(), Cf: engine_util.CfWrite}},
		{Data: storage.Delete{Key: key, Cf: engine_util.CfLock}},
	}))
}

func (b *testBuilder) run(pk []byte, lockTs, callerStartTs, currentTs uint64, rollbackIfNotExist bool) (*CheckTxnStatusResponse, error) {
	cmd := NewCheckTxnStatus(&CheckTxnStatusRequest{
		PrimaryKey:         pk,
		LockTs:             lockTs,
		CallerStartTs:      callerStartTs,
		CurrentTs:          currentTs,
		RollbackIfNotExist: rollbackIfNotExist,
	}, b.cm)
	resp, err := RunCommand(cmd, b.mem, b.latches, b.waker)
	if err != nil {
		return nil, err
	}
	return resp.(*CheckTxnStatusResponse), nil
}

func (b *testBuilder) mustRun(pk []byte, lockTs, callerStartTs, currentTs uint64, rollbackIfNotExist bool) *CheckTxnStatusResponse {
	resp, err := b.run(pk, lockTs, callerStartTs, currentTs, rollbackIfNotExist)
	require.Nil(b.t, err)
	return resp
}

// mustUncommitted checks that the lock is alive with the expected min commit ts, and that the stored lock agrees.
func (b *testBuilder) mustUncommitted(pk []byte, lockTs, callerStartTs, currentTs uint64, minCommitTs uint64, pushed bool) {
	resp := b.mustRun(pk, lockTs, callerStartTs, currentTs, true)
	status, ok := resp.Status.(mvcc.Uncommitted)
	require.True(b.t, ok, "expected Uncommitted, got %v", resp.Status)
	assert.Equal(b.t, minCommitTs, status.Lock.MinCommitTS)
	assert.Equal(b.t, pushed, status.MinCommitTSPushed)
	assert.Equal(b.t, minCommitTs, b.lock(pk).MinCommitTS)
}

func (b *testBuilder) mustStatus(pk []byte, lockTs, callerStartTs, currentTs uint64, rollbackIfNotExist bool, expected mvcc.TxnStatus) {
	resp := b.mustRun(pk, lockTs, callerStartTs, currentTs, rollbackIfNotExist)
	assert.Equal(b.t, expected, resp.Status)
}

func (b *testBuilder) lock(key []byte) *mvcc.Lock {
	val := b.mem.Get(engine_util.CfLock, key)
	if val == nil {
		return nil
	}
	lock, err := mvcc.ParseLock(val)
	require.Nil(b.t, err)
	return lock
}

func (b *testBuilder) write(key []byte, commitTs uint64) *mvcc.Write {
	write, err := mvcc.ParseWrite(b.mem.Get(engine_util.CfWrite, mvcc.EncodeKey(key, commitTs)))
	require.Nil(b.t, err)
	return write
}

// assertLens asserts the size of each column family.
func (b *testBuilder) assertLens(def int, lock int, write int) {
	assert.Equal(b.t, def, b.mem.Len(engine_util.CfDefault))
	assert.Equal(b.t, lock, b.mem.Len(engine_util.CfLock))
	assert.Equal(b.t, write, b.mem.Len(engine_util.CfWrite))
}
