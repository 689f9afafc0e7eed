package mvcc

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

const (
	writeFlagProtected          byte = 1 << 0
	writeFlagOverlappedRollback byte = 1 << 1

	legacyWriteLen = 9
	writeLen       = 10
)

// Write is a representation of a committed write to backing storage.
// A serialized version is stored in the "write" CF of our engine when a write is committed. That allows MvccTxn to find
// the status of a key at a given timestamp.
type Write struct {
	StartTS uint64
	Kind    WriteKind
	// Protected rollbacks must never be collapsed or overwritten.
	Protected bool
	// HasOverlappedRollback is set when a rollback of the transaction whose start ts equals this record's commit
	// ts was folded into this record.
	HasOverlappedRollback bool
}

func (wr *Write) ToBytes() []byte {
	buf := make([]byte, writeLen)
	buf[0] = byte(wr.Kind)
	binary.BigEndian.PutUint64(buf[1:], wr.StartTS)
	if wr.Protected {
		buf[9] |= writeFlagProtected
	}
	if wr.HasOverlappedRollback {
		buf[9] |= writeFlagOverlappedRollback
	}
	return buf
}

func ParseWrite(value []byte) (*Write, error) {
	if value == nil {
		return nil, nil
	}
	if len(value) != writeLen && len(value) != legacyWriteLen {
		return nil, errors.Errorf("mvcc/write/ParseWrite: value is incorrect length, expected %d, found %d", writeLen, len(value))
	}
	write := &Write{
		Kind:    WriteKind(value[0]),
		StartTS: binary.BigEndian.Uint64(value[1:]),
	}
	if !write.Kind.valid() {
		return nil, errors.Errorf("mvcc/write/ParseWrite: unknown write kind %d", value[0])
	}
	if len(value) == writeLen {
		write.Protected = value[9]&writeFlagProtected != 0
		write.HasOverlappedRollback = value[9]&writeFlagOverlappedRollback != 0
	}
	return write, nil
}

type WriteKind int

const (
	WriteKindPut      WriteKind = 1
	WriteKindDelete   WriteKind = 2
	WriteKindRollback WriteKind = 3
	WriteKindLock     WriteKind = 4
)

func (wk WriteKind) valid() bool {
	return wk >= WriteKindPut && wk <= WriteKindLock
}

func (wk WriteKind) String() string {
	switch wk {
	case WriteKindPut:
		return "Put"
	case WriteKindDelete:
		return "Delete"
	case WriteKindRollback:
		return "Rollback"
	case WriteKindLock:
		return "Lock"
	}
	return "Unknown"
}
