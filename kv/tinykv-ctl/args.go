package main

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/pingcap/errors"
	"github.com/spf13/pflag"

	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

func parseKey(s string) ([]byte, error) {
	if !hexKeys {
		return []byte(s), nil
	}
	key, err := hex.DecodeString(s)
	return key, errors.Annotatef(err, "invalid hex key %q", s)
}

func formatKey(key []byte) string {
	if hexKeys {
		return strings.ToUpper(hex.EncodeToString(key))
	}
	return strconv.Quote(string(key))
}

// parseTS accepts a raw uint64, "physical/logical", or "max".
func parseTS(s string) (uint64, error) {
	if s == "max" {
		return tsoutil.TsMax, nil
	}
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		physical, err := strconv.ParseInt(s[:idx], 10, 64)
		if err != nil {
			return 0, errors.Annotatef(err, "invalid physical time in %q", s)
		}
		logical, err := strconv.ParseInt(s[idx+1:], 10, 64)
		if err != nil {
			return 0, errors.Annotatef(err, "invalid logical time in %q", s)
		}
		return tsoutil.ComposeTS(physical, logical), nil
	}
	ts, err := strconv.ParseUint(s, 10, 64)
	return ts, errors.Annotatef(err, "invalid timestamp %q", s)
}

func formatTS(ts uint64) string {
	if tsoutil.IsMax(ts) {
		return "max"
	}
	return strconv.FormatUint(tsoutil.ExtractPhysical(ts), 10) + "/" + strconv.FormatUint(tsoutil.ExtractLogical(ts), 10)
}

// tsValue is a timestamp flag in any form parseTS accepts.
type tsValue uint64

var _ pflag.Value = (*tsValue)(nil)

func (v *tsValue) Set(s string) error {
	ts, err := parseTS(s)
	if err != nil {
		return err
	}
	*v = tsValue(ts)
	return nil
}

func (v *tsValue) String() string {
	return formatTS(uint64(*v))
}

func (v *tsValue) Type() string {
	return "ts"
}
