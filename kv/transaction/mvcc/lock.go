package mvcc

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

const (
	lockFlagAsyncCommit byte = 1 << 0
)

// Lock is the lock a transaction holds on a key. It is stored in the lock CF under the raw user key.
type Lock struct {
	Primary []byte
	Ts      uint64
	// Ttl is in milliseconds of physical time, counted from the physical part of Ts.
	Ttl  uint64
	Kind WriteKind
	// ForUpdateTS is non-zero for pessimistic locks.
	ForUpdateTS uint64
	// MinCommitTS is the lower bound of the commit ts the transaction promises. Zero means no promise.
	MinCommitTS    uint64
	UseAsyncCommit bool
	// ShortValue holds small values inline; a Put lock with a short value has nothing in the default CF.
	ShortValue []byte
}

// IsPessimistic reports whether the lock was acquired by a pessimistic transaction.
func (lock *Lock) IsPessimistic() bool {
	return lock.ForUpdateTS != 0
}

// ToBytes encodes a lock into bytes.
func (lock *Lock) ToBytes() []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64*2+len(lock.Primary)+len(lock.ShortValue)+34)
	buf = appendUvarint(buf, uint64(len(lock.Primary)))
	buf = append(buf, lock.Primary...)
	buf = append(buf, byte(lock.Kind))
	buf = appendUint64(buf, lock.Ts)
	buf = appendUint64(buf, lock.Ttl)
	buf = appendUint64(buf, lock.ForUpdateTS)
	buf = appendUint64(buf, lock.MinCommitTS)
	var flags byte
	if lock.UseAsyncCommit {
		flags |= lockFlagAsyncCommit
	}
	buf = append(buf, flags)
	buf = appendUvarint(buf, uint64(len(lock.ShortValue)))
	buf = append(buf, lock.ShortValue...)
	return buf
}

// ParseLock attempts to parse a byte string into a Lock object.
func ParseLock(input []byte) (*Lock, error) {
	r := lockReader{buf: input}
	lock := new(Lock)
	lock.Primary = r.bytes()
	lock.Kind = WriteKind(r.byte())
	lock.Ts = r.uint64()
	lock.Ttl = r.uint64()
	lock.ForUpdateTS = r.uint64()
	lock.MinCommitTS = r.uint64()
	lock.UseAsyncCommit = r.byte()&lockFlagAsyncCommit != 0
	lock.ShortValue = r.bytes()
	if r.err != nil {
		return nil, errors.Annotatef(r.err, "mvcc: parse lock %x", input)
	}
	if len(r.buf) != 0 {
		return nil, errors.Errorf("mvcc: parse lock %x: %d trailing bytes", input, len(r.buf))
	}
	return lock, nil
}

var errTruncated = errors.New("truncated input")

type lockReader struct {
	buf []byte
	err error
}

func (r *lockReader) byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 1 {
		r.err = errTruncated
		return 0
	}
	b := r.buf[0]
	r.buf = r.buf[1:]
	return b
}

func (r *lockReader) uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.buf) < 8 {
		r.err = errTruncated
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *lockReader) bytes() []byte {
	if r.err != nil {
		return nil
	}
	l, n := binary.Uvarint(r.buf)
	if n <= 0 || uint64(len(r.buf)-n) < l {
		r.err = errTruncated
		return nil
	}
	r.buf = r.buf[n:]
	if l == 0 {
		return nil
	}
	b := append([]byte(nil), r.buf[:l]...)
	r.buf = r.buf[l:]
	return b
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	return append(buf, b[:n]...)
}
