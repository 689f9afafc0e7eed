package tsoutil

import (
	"time"
)

const (
	// PhysicalShiftBits is the number of low bits holding the logical counter of a timestamp.
	PhysicalShiftBits = 18
	logicalMask       = (1 << PhysicalShiftBits) - 1

	// TsMax is used as "no upper bound", e.g. by point gets in autocommit transactions. It is not a real clock
	// value and must not be compared or incremented as one.
	TsMax uint64 = ^uint64(0)
)

// ComposeTS builds a timestamp from a physical time in milliseconds and a logical counter.
func ComposeTS(physical, logical int64) uint64 {
	return uint64((physical << PhysicalShiftBits) + logical)
}

// ParseTS splits a timestamp into its physical time and logical counter.
func ParseTS(ts uint64) (time.Time, uint64) {
	logical := ts & logicalMask
	physicalTime := time.Unix(0, int64(ExtractPhysical(ts))*int64(time.Millisecond))
	return physicalTime, logical
}

// ExtractPhysical returns the physical part of ts, in milliseconds.
func ExtractPhysical(ts uint64) uint64 {
	return ts >> PhysicalShiftBits
}

// ExtractLogical returns the logical counter of ts.
func ExtractLogical(ts uint64) uint64 {
	return ts & logicalMask
}

// IsMax reports whether ts is the TsMax sentinel.
func IsMax(ts uint64) bool {
	return ts == TsMax
}

// Next returns the smallest timestamp greater than ts. ts must not be TsMax.
func Next(ts uint64) uint64 {
	if ts == TsMax {
		panic("tsoutil: Next called on TsMax")
	}
	return ts + 1
}

// GoTimeToTS converts a wall clock time to a timestamp with a zero logical part.
func GoTimeToTS(t time.Time) uint64 {
	return ComposeTS(t.UnixNano()/int64(time.Millisecond), 0)
}
