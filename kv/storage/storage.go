package storage

import (
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
)

// Storage represents the internal-facing part of TinyKV that reads and writes data to disk (or semi-permanent memory).
type Storage interface {
	Start() error
	Stop() error
	// Write applies batch atomically: either every Modify is visible to later readers or none is.
	Write(batch []Modify) error
	Reader() (StorageReader, error)
}

// StorageReader is a consistent snapshot of a Storage. GetCF returns (nil, nil) for a missing key.
type StorageReader interface {
	GetCF(cf string, key []byte) ([]byte, error)
	IterCF(cf string) engine_util.DBIterator
	Close()
}
