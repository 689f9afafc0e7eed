package engine_util

import (
	"github.com/coocood/badger"
	"github.com/pingcap/errors"
)

const (
	CfDefault string = "default"
	CfWrite   string = "write"
	CfLock    string = "lock"
)

var CFs [3]string = [3]string{CfDefault, CfWrite, CfLock}

type batchEntry struct {
	key    []byte
	value  []byte
	delete bool
}

// WriteBatch collects puts and deletes that are applied to badger in a single transaction.
type WriteBatch struct {
	entries []batchEntry
	size    int
}

func (wb *WriteBatch) Len() int {
	return len(wb.entries)
}

// Size is the number of key and value bytes in the batch.
func (wb *WriteBatch) Size() int {
	return wb.size
}

func (wb *WriteBatch) SetCF(cf string, key, val []byte) {
	wb.entries = append(wb.entries, batchEntry{
		key:   KeyWithCF(cf, key),
		value: val,
	})
	wb.size += len(key) + len(val)
}

func (wb *WriteBatch) DeleteCF(cf string, key []byte) {
	wb.entries = append(wb.entries, batchEntry{
		key:    KeyWithCF(cf, key),
		delete: true,
	})
	wb.size += len(key)
}

// WriteToDB applies all entries atomically. Deleting a missing key is not an error.
func (wb *WriteBatch) WriteToDB(db *badger.DB) error {
	if len(wb.entries) == 0 {
		return nil
	}
	err := db.Update(func(txn *badger.Txn) error {
		for _, entry := range wb.entries {
			var err1 error
			if entry.delete {
				err1 = txn.Delete(entry.key)
			} else {
				err1 = txn.Set(entry.key, entry.value)
			}
			if err1 != nil {
				return err1
			}
		}
		return nil
	})
	return errors.WithStack(err)
}
