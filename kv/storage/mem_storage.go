package storage

import (
	"bytes"
	"sync"

	"github.com/coocood/badger/y"
	"github.com/google/btree"
	"github.com/pingcap/errors"

	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
)

const memBTreeDegree = 32

// MemStorage is a simple storage engine backed by memory. Data is not written to disk, nor sent to other
// nodes. It is intended for testing and for the mem engine of the ctl tool.
type MemStorage struct {
	mu        sync.RWMutex
	CfDefault *btree.BTree
	CfLock    *btree.BTree
	CfWrite   *btree.BTree
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		CfDefault: btree.New(memBTreeDegree),
		CfLock:    btree.New(memBTreeDegree),
		CfWrite:   btree.New(memBTreeDegree),
	}
}

func (s *MemStorage) Start() error {
	return nil
}

func (s *MemStorage) Stop() error {
	return nil
}

// Reader returns a snapshot; later writes are not visible through it.
func (s *MemStorage) Reader() (StorageReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memReader{
		cfDefault: s.CfDefault.Clone(),
		cfLock:    s.CfLock.Clone(),
		cfWrite:   s.CfWrite.Clone(),
	}, nil
}

func (s *MemStorage) Write(batch []Modify) error {
	for _, m := range batch {
		if s.tree(m.Cf()) == nil {
			return errors.Errorf("mem-storage: bad CF %s", m.Cf())
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range batch {
		switch data := m.Data.(type) {
		case Put:
			s.tree(data.Cf).ReplaceOrInsert(memItem{data.Key, data.Value, false})
		case Delete:
			s.tree(data.Cf).Delete(memItem{key: data.Key})
		}
	}
	return nil
}

func (s *MemStorage) tree(cf string) *btree.BTree {
	switch cf {
	case engine_util.CfDefault:
		return s.CfDefault
	case engine_util.CfLock:
		return s.CfLock
	case engine_util.CfWrite:
		return s.CfWrite
	}
	return nil
}

func (s *MemStorage) Get(cf string, key []byte) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.tree(cf).Get(memItem{key: key})
	if result == nil {
		return nil
	}
	return result.(memItem).value
}

// Set inserts a value bypassing Write. Values set this way are "fresh" until overwritten or deleted,
// see HasChanged.
func (s *MemStorage) Set(cf string, key []byte, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree(cf).ReplaceOrInsert(memItem{key, value, true})
}

func (s *MemStorage) HasChanged(cf string, key []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.tree(cf).Get(memItem{key: key})
	if result == nil {
		return true
	}
	return !result.(memItem).fresh
}

func (s *MemStorage) Len(cf string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t := s.tree(cf); t != nil {
		return t.Len()
	}
	return -1
}

// memReader is a StorageReader over cloned trees.
type memReader struct {
	cfDefault *btree.BTree
	cfLock    *btree.BTree
	cfWrite   *btree.BTree
}

func (mr *memReader) tree(cf string) *btree.BTree {
	switch cf {
	case engine_util.CfDefault:
		return mr.cfDefault
	case engine_util.CfLock:
		return mr.cfLock
	case engine_util.CfWrite:
		return mr.cfWrite
	}
	return nil
}

func (mr *memReader) GetCF(cf string, key []byte) ([]byte, error) {
	data := mr.tree(cf)
	if data == nil {
		return nil, errors.Errorf("mem-storage: bad CF %s", cf)
	}
	result := data.Get(memItem{key: key})
	if result == nil {
		return nil, nil
	}
	return result.(memItem).value, nil
}

func (mr *memReader) IterCF(cf string) engine_util.DBIterator {
	data := mr.tree(cf)
	if data == nil {
		return nil
	}
	min := data.Min()
	if min == nil {
		return &memIter{data, memItem{}}
	}
	return &memIter{data, min.(memItem)}
}

func (mr *memReader) Close() {}

type memIter struct {
	data *btree.BTree
	item memItem
}

func (it *memIter) Item() engine_util.DBItem {
	return it.item
}

func (it *memIter) Valid() bool {
	return it.item.key != nil
}

func (it *memIter) Next() {
	first := true
	oldItem := it.item
	it.item = memItem{}
	it.data.AscendGreaterOrEqual(oldItem, func(item btree.Item) bool {
		// Skip the first item, which will be it.item
		if first {
			first = false
			return true
		}

		it.item = item.(memItem)
		return false
	})
}

func (it *memIter) Seek(key []byte) {
	it.item = memItem{}
	it.data.AscendGreaterOrEqual(memItem{key: key}, func(item btree.Item) bool {
		it.item = item.(memItem)
		return false
	})
}

func (it *memIter) Close() {}

type memItem struct {
	key   []byte
	value []byte
	fresh bool
}

func (it memItem) Key() []byte {
	return it.key
}

func (it memItem) KeyCopy(dst []byte) []byte {
	return y.SafeCopy(dst, it.key)
}

func (it memItem) Value() ([]byte, error) {
	return it.value, nil
}

func (it memItem) ValueSize() int {
	return len(it.value)
}

func (it memItem) ValueCopy(dst []byte) ([]byte, error) {
	return y.SafeCopy(dst, it.value), nil
}

func (it memItem) Less(than btree.Item) bool {
	return bytes.Compare(it.key, than.(memItem).key) < 0
}
