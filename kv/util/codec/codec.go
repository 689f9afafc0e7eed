package codec

import (
	"encoding/binary"

	"github.com/pingcap/errors"
)

const (
	encGroupSize = 8
	encMarker    = byte(0xFF)
	encPad       = byte(0x0)

	tsLen = 8
)

var pads = make([]byte, encGroupSize)

// EncodeKey encodes a user key and appends an encoded timestamp to it. Versioned keys sort first by user key
// (ascending), then by timestamp (descending), so a forward seek to EncodeKey(key, ts) lands on the newest version
// at or below ts.
func EncodeKey(key []byte, ts uint64) []byte {
	return AppendTs(EncodeBytes(key), ts)
}

// EncodeBytes guarantees the encoded value is in ascending order for comparison,
// encoding with the following rule:
//  [group1][marker1]...[groupN][markerN]
//  group is 8 bytes slice which is padding with 0.
//  marker is `0xFF - padding 0 count`
// For example:
//   [] -> [0, 0, 0, 0, 0, 0, 0, 0, 247]
//   [1, 2, 3] -> [1, 2, 3, 0, 0, 0, 0, 0, 250]
//   [1, 2, 3, 0] -> [1, 2, 3, 0, 0, 0, 0, 0, 251]
//   [1, 2, 3, 4, 5, 6, 7, 8] -> [1, 2, 3, 4, 5, 6, 7, 8, 255, 0, 0, 0, 0, 0, 0, 0, 0, 247]
// Refer: https://github.com/facebook/mysql-5.6/wiki/MyRocks-record-format#memcomparable-format
func EncodeBytes(data []byte) []byte {
	dLen := len(data)
	// Room for every group plus the timestamp usually appended afterwards.
	result := make([]byte, 0, (dLen/encGroupSize+1)*(encGroupSize+1)+tsLen)
	for idx := 0; idx <= dLen; idx += encGroupSize {
		remain := dLen - idx
		padCount := 0
		if remain >= encGroupSize {
			result = append(result, data[idx:idx+encGroupSize]...)
		} else {
			padCount = encGroupSize - remain
			result = append(result, data[idx:]...)
			result = append(result, pads[:padCount]...)
		}
		result = append(result, encMarker-byte(padCount))
	}
	return result
}

// AppendTs appends ts to an encoded key. The timestamp is inverted so that newer versions sort first.
func AppendTs(encodedKey []byte, ts uint64) []byte {
	var buf [tsLen]byte
	binary.BigEndian.PutUint64(buf[:], ^ts)
	return append(encodedKey, buf[:]...)
}

// DecodeKey splits a versioned key produced by EncodeKey into its user key and timestamp.
func DecodeKey(key []byte) ([]byte, uint64, error) {
	left, userKey, err := DecodeBytes(key)
	if err != nil {
		return nil, 0, err
	}
	if len(left) != tsLen {
		return nil, 0, errors.Errorf("invalid versioned key %q: %d bytes left after user key", key, len(left))
	}
	return userKey, ^binary.BigEndian.Uint64(left), nil
}

// DecodeBytes decodes bytes which is encoded by EncodeBytes before,
// returns the leftover bytes and decoded value if no error.
func DecodeBytes(b []byte) ([]byte, []byte, error) {
	data := make([]byte, 0, len(b))
	for {
		if len(b) < encGroupSize+1 {
			return nil, nil, errors.New("insufficient bytes to decode value")
		}

		groupBytes := b[:encGroupSize+1]
		group := groupBytes[:encGroupSize]
		marker := groupBytes[encGroupSize]

		padCount := encMarker - marker
		if padCount > encGroupSize {
			return nil, nil, errors.Errorf("invalid marker byte, group bytes %q", groupBytes)
		}

		realGroupSize := encGroupSize - padCount
		data = append(data, group[:realGroupSize]...)
		b = b[encGroupSize+1:]

		if padCount != 0 {
			for _, v := range group[realGroupSize:] {
				if v != encPad {
					return nil, nil, errors.Errorf("invalid padding byte, group bytes %q", groupBytes)
				}
			}
			break
		}
	}
	return b, data, nil
}
