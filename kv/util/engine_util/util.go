package engine_util

import (
	"github.com/coocood/badger"
	"github.com/pingcap/errors"
)

// KeyWithCF prefixes key with its column family.
func KeyWithCF(cf string, key []byte) []byte {
	return append([]byte(cf+"_"), key...)
}

// GetCFFromTxn reads key from cf inside txn. It returns badger.ErrKeyNotFound if the key does not exist.
func GetCFFromTxn(txn *badger.Txn, cf string, key []byte) (val []byte, err error) {
	item, err := txn.Get(KeyWithCF(cf, key))
	if err != nil {
		return nil, err
	}
	val, err = item.ValueCopy(val)
	return
}

// IsNotFound reports whether err means a missing key.
func IsNotFound(err error) bool {
	return errors.Cause(err) == badger.ErrKeyNotFound
}
