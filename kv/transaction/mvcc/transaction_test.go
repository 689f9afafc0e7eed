package mvcc

import (
	"bytes"
	"testing"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
)

func TestEncodeKey(t *testing.T) {
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 247, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, EncodeKey([]byte{}, 0))
	assert.Equal(t, []byte{42, 0, 0, 0, 0, 0, 0, 0, 248, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, EncodeKey([]byte{42}, 0))
	assert.Equal(t, []byte{42, 0, 5, 0, 0, 0, 0, 0, 250, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, EncodeKey([]byte{42, 0, 5}, 0))

	// Newer versions of a key sort first, and all versions of a key sort before the next key.
	assert.True(t, bytes.Compare(EncodeKey([]byte{42}, 238), EncodeKey([]byte{42}, 237)) < 0)
	assert.True(t, bytes.Compare(EncodeKey([]byte{42}, 238), EncodeKey([]byte{200}, 0)) < 0)
	assert.True(t, bytes.Compare(EncodeKey([]byte{42}, 0), EncodeKey([]byte{42, 0}, TsMax)) < 0)
}

func TestDecodeUserKey(t *testing.T) {
	assert.Equal(t, []byte{}, DecodeUserKey(EncodeKey([]byte{}, 0)))
	assert.Equal(t, []byte{42}, DecodeUserKey(EncodeKey([]byte{42}, 0)))
	assert.Equal(t, []byte{42, 0, 5}, DecodeUserKey(EncodeKey([]byte{42, 0, 5}, 234234)))
}

func testTxn(startTs uint64, f func(m *storage.MemStorage)) MvccTxn {
	mem := storage.NewMemStorage()
	if f != nil {
		f(mem)
	}
	reader, _ := mem.Reader()
	return NewTxn(reader, startTs)
}

func seedWrite(mem *storage.MemStorage, key []byte, commitTs uint64, w *Write) {
	mem.Set(engine_util.CfWrite, EncodeKey(key, commitTs), w.ToBytes())
}

func assertPutInTxn(t *testing.T, txn *MvccTxn, key []byte, value []byte, cf string) {
	writes := txn.Writes()
	assert.Equal(t, 1, len(writes))
	expected := storage.Put{Cf: cf, Key: key, Value: value}
	assert.Equal(t, expected, writes[0].Data.(storage.Put))
}

func assertDeleteInTxn(t *testing.T, txn *MvccTxn, key []byte, cf string) {
	writes := txn.Writes()
	assert.Equal(t, 1, len(writes))
	expected := storage.Delete{Cf: cf, Key: key}
	assert.Equal(t, expected, writes[0].Data.(storage.Delete))
}

func TestPutLock(t *testing.T) {
	txn := testTxn(42, nil)
	lock := Lock{
		Primary: []byte{16},
		Ts:      100,
		Ttl:     100000,
		Kind:    WriteKindPut,
	}

	txn.PutLock([]byte{1}, &lock)
	assertPutInTxn(t, &txn, []byte{1}, lock.ToBytes(), engine_util.CfLock)
}

func TestPutWrite(t *testing.T) {
	txn := testTxn(42, nil)
	write := Write{
		StartTS: 100,
		Kind:    WriteKindDelete,
	}

	txn.PutWrite([]byte{1}, 42, &write)
	assertPutInTxn(t, &txn, EncodeKey([]byte{1}, 42), write.ToBytes(), engine_util.CfWrite)
}

func TestPutValue(t *testing.T) {
	txn := testTxn(42, nil)
	value := []byte{1, 1, 2, 3, 5, 8, 13}

	txn.PutValue([]byte{1}, value)
	assertPutInTxn(t, &txn, EncodeKey([]byte{1}, 42), value, engine_util.CfDefault)
}

func TestDeleteLockAndValue(t *testing.T) {
	txn := testTxn(42, nil)
	txn.DeleteLock([]byte{1})
	assertDeleteInTxn(t, &txn, []byte{1}, engine_util.CfLock)

	txn = testTxn(42, nil)
	txn.DeleteValue([]byte{1})
	assertDeleteInTxn(t, &txn, EncodeKey([]byte{1}, 42), engine_util.CfDefault)
}

func TestGetLock(t *testing.T) {
	lock := &Lock{Primary: []byte{16}, Ts: 100, Ttl: 100000, Kind: WriteKindPut, MinCommitTS: 101}
	txn := testTxn(42, func(m *storage.MemStorage) {
		m.Set(engine_util.CfLock, []byte{1}, lock.ToBytes())
		m.Set(engine_util.CfLock, []byte{2}, []byte{0xff})
	})

	got, err := txn.GetLock([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, lock, got)

	got, err = txn.GetLock([]byte{3})
	assert.Nil(t, err)
	assert.Nil(t, got)

	_, err = txn.GetLock([]byte{2})
	assert.NotNil(t, err)
}

func TestGetValue(t *testing.T) {
	txn := testTxn(50, func(m *storage.MemStorage) {
		m.Set(engine_util.CfDefault, EncodeKey([]byte{1}, 10), []byte{10})
		seedWrite(m, []byte{1}, 11, &Write{StartTS: 10, Kind: WriteKindPut})
		seedWrite(m, []byte{1}, 20, &Write{StartTS: 20, Kind: WriteKindRollback})
		seedWrite(m, []byte{1}, 31, &Write{StartTS: 30, Kind: WriteKindLock})
		seedWrite(m, []byte{1}, 61, &Write{StartTS: 60, Kind: WriteKindDelete})
		seedWrite(m, []byte{2}, 41, &Write{StartTS: 40, Kind: WriteKindDelete})
	})

	value, err := txn.GetValue([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, []byte{10}, value)

	value, err = txn.GetValue([]byte{2})
	require.Nil(t, err)
	assert.Nil(t, value)

	value, err = txn.GetValue([]byte{3})
	require.Nil(t, err)
	assert.Nil(t, value)
}

func TestMostRecentWriteAndAllWrites(t *testing.T) {
	txn := testTxn(0, func(m *storage.MemStorage) {
		seedWrite(m, []byte{1}, 11, &Write{StartTS: 10, Kind: WriteKindPut})
		seedWrite(m, []byte{1}, 21, &Write{StartTS: 20, Kind: WriteKindDelete})
		seedWrite(m, []byte{2}, 5, &Write{StartTS: 5, Kind: WriteKindRollback})
	})

	w, commitTs, err := txn.MostRecentWrite([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, uint64(21), commitTs)
	assert.Equal(t, &Write{StartTS: 20, Kind: WriteKindDelete}, w)

	w, _, err = txn.MostRecentWrite([]byte{3})
	require.Nil(t, err)
	assert.Nil(t, w)

	writes, commitTss, err := txn.AllWrites([]byte{1})
	require.Nil(t, err)
	assert.Equal(t, []uint64{21, 11}, commitTss)
	assert.Equal(t, uint64(10), writes[1].StartTS)
}

func TestTxnCommitRecord(t *testing.T) {
	key := []byte("k")
	seed := func(m *storage.MemStorage) {
		seedWrite(m, key, 6, &Write{StartTS: 5, Kind: WriteKindPut})
		seedWrite(m, key, 10, &Write{StartTS: 8, Kind: WriteKindPut})
		seedWrite(m, key, 12, &Write{StartTS: 11, Kind: WriteKindPut, HasOverlappedRollback: true})
		seedWrite(m, key, 20, &Write{StartTS: 20, Kind: WriteKindRollback, Protected: true})
		seedWrite(m, []byte("l"), 31, &Write{StartTS: 30, Kind: WriteKindPut})
	}

	cases := []struct {
		startTS uint64
		expect  CommitRecord
	}{
		{5, CommitRecord{Write: &Write{StartTS: 5, Kind: WriteKindPut}, CommitTS: 6}},
		{20, CommitRecord{Write: &Write{StartTS: 20, Kind: WriteKindRollback, Protected: true}, CommitTS: 20}},
		{10, CommitRecord{Overlapped: &Write{StartTS: 8, Kind: WriteKindPut}}},
		{12, CommitRecord{OverlappedRollback: true}},
		{7, CommitRecord{}},
		// Records of another key are never considered.
		{30, CommitRecord{}},
	}
	for _, c := range cases {
		txn := testTxn(c.startTS, seed)
		record, err := txn.TxnCommitRecord(key)
		require.Nil(t, err)
		assert.Equal(t, c.expect, *record, "start ts %d", c.startTS)
	}
}

func TestCheckTxnStatusMissingLock(t *testing.T) {
	key := []byte("pk")
	seed := func(m *storage.MemStorage) {
		seedWrite(m, key, 15, &Write{StartTS: 5, Kind: WriteKindPut})
		seedWrite(m, key, 7, &Write{StartTS: 7, Kind: WriteKindRollback})
		seedWrite(m, key, 30, &Write{StartTS: 25, Kind: WriteKindPut})
	}

	txn := testTxn(5, seed)
	status, err := txn.CheckTxnStatusMissingLock(key, MissingLockReturnError)
	require.Nil(t, err)
	assert.Equal(t, Committed{CommitTS: 15}, status)
	assert.Empty(t, txn.Writes())

	txn = testTxn(7, seed)
	status, err = txn.CheckTxnStatusMissingLock(key, MissingLockReturnError)
	require.Nil(t, err)
	assert.Equal(t, RolledBack{}, status)

	txn = testTxn(9, seed)
	_, err = txn.CheckTxnStatusMissingLock(key, MissingLockReturnError)
	notFound, ok := errors.Cause(err).(*ErrTxnNotFound)
	require.True(t, ok)
	assert.Equal(t, uint64(9), notFound.StartTS)
	assert.Equal(t, key, notFound.PrimaryKey)
	assert.Empty(t, txn.Writes())

	txn = testTxn(9, seed)
	status, err = txn.CheckTxnStatusMissingLock(key, MissingLockProtectedRollback)
	require.Nil(t, err)
	assert.Equal(t, LockNotExist{}, status)
	assertPutInTxn(t, &txn, EncodeKey(key, 9), (&Write{StartTS: 9, Kind: WriteKindRollback, Protected: true}).ToBytes(), engine_util.CfWrite)
}

func TestMissingLockOverlappedWrite(t *testing.T) {
	key := []byte("pk")
	committed := &Write{StartTS: 25, Kind: WriteKindPut}
	seed := func(m *storage.MemStorage) {
		seedWrite(m, key, 30, committed)
	}

	// A protected rollback at 30 must not replace the commit record of txn 25.
	txn := testTxn(30, seed)
	status, err := txn.CheckTxnStatusMissingLock(key, MissingLockProtectedRollback)
	require.Nil(t, err)
	assert.Equal(t, LockNotExist{}, status)
	flagged := &Write{StartTS: 25, Kind: WriteKindPut, HasOverlappedRollback: true}
	assertPutInTxn(t, &txn, EncodeKey(key, 30), flagged.ToBytes(), engine_util.CfWrite)

	// Once flagged, txn 30 resolves as rolled back.
	txn = testTxn(30, func(m *storage.MemStorage) {
		seedWrite(m, key, 30, flagged)
	})
	status, err = txn.CheckTxnStatusMissingLock(key, MissingLockReturnError)
	require.Nil(t, err)
	assert.Equal(t, RolledBack{}, status)
}

func TestCheckWriteAndRollbackLock(t *testing.T) {
	key := []byte("pk")
	lock := &Lock{Primary: key, Ts: 10, Ttl: 100, Kind: WriteKindPut}
	txn := testTxn(10, nil)
	released, err := txn.CheckWriteAndRollbackLock(key, lock, false)
	require.Nil(t, err)
	assert.Equal(t, NewReleasedLock(key, false), released)
	writes := txn.Writes()
	require.Len(t, writes, 3)
	assert.Equal(t, storage.Delete{Key: EncodeKey(key, 10), Cf: engine_util.CfDefault}, writes[0].Data)
	assert.Equal(t, storage.Put{
		Key:   EncodeKey(key, 10),
		Value: (&Write{StartTS: 10, Kind: WriteKindRollback}).ToBytes(),
		Cf:    engine_util.CfWrite,
	}, writes[1].Data)
	assert.Equal(t, storage.Delete{Key: key, Cf: engine_util.CfLock}, writes[2].Data)

	// A short value lives in the lock, a pessimistic primary gets a protected rollback.
	lock = &Lock{Primary: key, Ts: 10, Ttl: 100, Kind: WriteKindPut, ShortValue: []byte("v"), ForUpdateTS: 11}
	txn = testTxn(10, nil)
	released, err = txn.CheckWriteAndRollbackLock(key, lock, true)
	require.Nil(t, err)
	assert.True(t, released.Pessimistic)
	writes = txn.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, storage.Put{
		Key:   EncodeKey(key, 10),
		Value: (&Write{StartTS: 10, Kind: WriteKindRollback, Protected: true}).ToBytes(),
		Cf:    engine_util.CfWrite,
	}, writes[0].Data)

	// A secondary of a pessimistic transaction is not protected.
	lock = &Lock{Primary: []byte("other"), Ts: 10, Ttl: 100, Kind: WriteKindLock, ForUpdateTS: 11}
	txn = testTxn(10, nil)
	_, err = txn.CheckWriteAndRollbackLock(key, lock, true)
	require.Nil(t, err)
	writes = txn.Writes()
	require.Len(t, writes, 2)
	assert.Equal(t, (&Write{StartTS: 10, Kind: WriteKindRollback}).ToBytes(), writes[0].Value())
}

func TestCheckWriteAndRollbackLockWithRecord(t *testing.T) {
	key := []byte("pk")
	lock := &Lock{Primary: key, Ts: 10, Ttl: 100, Kind: WriteKindLock}

	// Already rolled back: only the lock is removed.
	txn := testTxn(10, func(m *storage.MemStorage) {
		seedWrite(m, key, 10, &Write{StartTS: 10, Kind: WriteKindRollback})
	})
	_, err := txn.CheckWriteAndRollbackLock(key, lock, false)
	require.Nil(t, err)
	assertDeleteInTxn(t, &txn, key, engine_util.CfLock)

	// A commit record next to a live lock of the same transaction is corrupt state.
	txn = testTxn(10, func(m *storage.MemStorage) {
		seedWrite(m, key, 12, &Write{StartTS: 10, Kind: WriteKindPut})
	})
	_, err = txn.CheckWriteAndRollbackLock(key, lock, false)
	_, ok := errors.Cause(err).(*ErrInvariantViolation)
	assert.True(t, ok)
	assert.Empty(t, txn.Writes())

	// Another transaction committed at ts 10: an unprotected rollback leaves its record alone.
	txn = testTxn(10, func(m *storage.MemStorage) {
		seedWrite(m, key, 10, &Write{StartTS: 8, Kind: WriteKindPut})
	})
	_, err = txn.CheckWriteAndRollbackLock(key, lock, false)
	require.Nil(t, err)
	require.Len(t, txn.Writes(), 1)
	assertDeleteInTxn(t, &txn, key, engine_util.CfLock)
}
