package mvcc

import (
	"bytes"

	"github.com/pingcap/errors"

	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/util/codec"
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

// TsMax is the "no upper bound" timestamp.
const TsMax uint64 = tsoutil.TsMax

// MvccTxn represents an mvcc transaction (see transaction/doc.go for a definition). It permits reading from a
// snapshot and stores writes in a buffer for atomic writing.
type MvccTxn struct {
	RoTxn
	writes []storage.Modify
}

// A 'transaction' which will only read from the DB.
type RoTxn struct {
	Reader  storage.StorageReader
	StartTS uint64
}

func NewTxn(reader storage.StorageReader, startTs uint64) MvccTxn {
	return MvccTxn{
		RoTxn: RoTxn{Reader: reader, StartTS: startTs},
	}
}

// Writes returns all changes added to this transaction.
func (txn *MvccTxn) Writes() []storage.Modify {
	return txn.writes
}

// CommitRecord is what TxnCommitRecord found for a transaction on one key.
type CommitRecord struct {
	// Write is the transaction's own record, nil if there is none.
	Write    *Write
	CommitTS uint64
	// OverlappedRollback is true when the transaction's rollback was folded into another transaction's record.
	OverlappedRollback bool
	// Overlapped is another transaction's record committed at the transaction's start ts, if any.
	Overlapped *Write
}

// TxnCommitRecord scans the write records of key from the newest down to txn.StartTS looking for the record of
// the transaction.
func (txn *RoTxn) TxnCommitRecord(key []byte) (*CommitRecord, error) {
	record := new(CommitRecord)
	iter := txn.Reader.IterCF(engine_util.CfWrite)
	defer iter.Close()
	for iter.Seek(EncodeKey(key, TsMax)); iter.Valid(); iter.Next() {
		item := iter.Item()
		userKey, commitTs, err := codec.DecodeKey(item.Key())
		if err != nil {
			return nil, err
		}
		if !bytes.Equal(userKey, key) || commitTs < txn.StartTS {
			break
		}
		write, err := txn.parseWriteItem(item)
		if err != nil {
			return nil, err
		}
		if write.StartTS == txn.StartTS {
			record.Write = write
			record.CommitTS = commitTs
			return record, nil
		}
		if commitTs == txn.StartTS {
			if write.HasOverlappedRollback {
				record.OverlappedRollback = true
				return record, nil
			}
			record.Overlapped = write
		}
	}
	return record, nil
}

// MostRecentWrite finds the most recent write with the given key. It returns a Write from the DB and that
// write's commit timestamp, or an error.
func (txn *RoTxn) MostRecentWrite(key []byte) (*Write, uint64, error) {
	iter := txn.Reader.IterCF(engine_util.CfWrite)
	defer iter.Close()
	iter.Seek(EncodeKey(key, TsMax))
	if !iter.Valid() {
		return nil, 0, nil
	}
	item := iter.Item()
	userKey, commitTs, err := codec.DecodeKey(item.Key())
	if err != nil {
		return nil, 0, err
	}
	if !bytes.Equal(userKey, key) {
		return nil, 0, nil
	}
	write, err := txn.parseWriteItem(item)
	if err != nil {
		return nil, 0, err
	}
	return write, commitTs, nil
}

// AllWrites returns every write record of key, newest first, with their commit timestamps.
func (txn *RoTxn) AllWrites(key []byte) ([]*Write, []uint64, error) {
	var (
		writes    []*Write
		commitTss []uint64
	)
	iter := txn.Reader.IterCF(engine_util.CfWrite)
	defer iter.Close()
	for iter.Seek(EncodeKey(key, TsMax)); iter.Valid(); iter.Next() {
		item := iter.Item()
		userKey, commitTs, err := codec.DecodeKey(item.Key())
		if err != nil {
			return nil, nil, err
		}
		if !bytes.Equal(userKey, key) {
			break
		}
		write, err := txn.parseWriteItem(item)
		if err != nil {
			return nil, nil, err
		}
		writes = append(writes, write)
		commitTss = append(commitTss, commitTs)
	}
	return writes, commitTss, nil
}

func (txn *RoTxn) parseWriteItem(item engine_util.DBItem) (*Write, error) {
	value, err := item.Value()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return ParseWrite(value)
}

// GetValue finds the value for key, valid at the start timestamp of this transaction.
// I.e., the most recent value committed before the start of this transaction.
func (txn *RoTxn) GetValue(key []byte) ([]byte, error) {
	iter := txn.Reader.IterCF(engine_util.CfWrite)
	defer iter.Close()
	for iter.Seek(EncodeKey(key, txn.StartTS)); iter.Valid(); iter.Next() {
		item := iter.Item()
		userKey, _, err := codec.DecodeKey(item.Key())
		if err != nil {
			return nil, err
		}
		// If the user key part of the combined key has changed, then we've got to the next key without finding a put write.
		if !bytes.Equal(userKey, key) {
			return nil, nil
		}
		write, err := txn.parseWriteItem(item)
		if err != nil {
			return nil, err
		}
		switch write.Kind {
		case WriteKindPut:
			return txn.Reader.GetCF(engine_util.CfDefault, EncodeKey(key, write.StartTS))
		case WriteKindDelete:
			return nil, nil
		case WriteKindRollback, WriteKindLock:
		}
	}

	// Iterated to the end of the DB
	return nil, nil
}

// GetLock returns a lock if key is locked. It will return (nil, nil) if there is no lock on key, and (nil, err)
// if an error occurs during lookup.
func (txn *RoTxn) GetLock(key []byte) (*Lock, error) {
	bytes, err := txn.Reader.GetCF(engine_util.CfLock, key)
	if err != nil {
		return nil, err
	}
	if bytes == nil {
		return nil, nil
	}
	return ParseLock(bytes)
}

// PutWrite records write at key and ts.
func (txn *MvccTxn) PutWrite(key []byte, ts uint64, write *Write) {
	txn.writes = append(txn.writes, storage.Modify{
		Data: storage.Put{
			Key:   EncodeKey(key, ts),
			Value: write.ToBytes(),
			Cf:    engine_util.CfWrite,
		},
	})
}

// PutLock adds a key/lock to this transaction.
func (txn *MvccTxn) PutLock(key []byte, lock *Lock) {
	txn.writes = append(txn.writes, storage.Modify{
		Data: storage.Put{
			Key:   key,
			Value: lock.ToBytes(),
			Cf:    engine_util.CfLock,
		},
	})
}

// DeleteLock adds a delete lock to this transaction.
func (txn *MvccTxn) DeleteLock(key []byte) {
	txn.writes = append(txn.writes, storage.Modify{
		Data: storage.Delete{
			Key: key,
			Cf:  engine_util.CfLock,
		},
	})
}

// PutValue adds a key/value write to this transaction.
func (txn *MvccTxn) PutValue(key []byte, value []byte) {
	txn.writes = append(txn.writes, storage.Modify{
		Data: storage.Put{
			Key:   EncodeKey(key, txn.StartTS),
			Value: value,
			Cf:    engine_util.CfDefault,
		},
	})
}

// DeleteValue removes a key/value pair in this transaction.
func (txn *MvccTxn) DeleteValue(key []byte) {
	txn.writes = append(txn.writes, storage.Modify{
		Data: storage.Delete{
			Key: EncodeKey(key, txn.StartTS),
			Cf:  engine_util.CfDefault,
		},
	})
}

// EncodeKey encodes a user key and appends an encoded timestamp to a key. Keys and timestamps are encoded so that
// timestamped keys are sorted first by key (ascending), then by timestamp (descending).
func EncodeKey(key []byte, ts uint64) []byte {
	return codec.EncodeKey(key, ts)
}

// DecodeUserKey takes a key + timestamp and returns the key part.
func DecodeUserKey(key []byte) []byte {
	userKey, _, err := codec.DecodeKey(key)
	if err != nil {
		panic(err)
	}
	return userKey
}
