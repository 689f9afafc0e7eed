package engine_util

import (
	"os"

	"github.com/coocood/badger"
	"github.com/pingcap/errors"

	"github.com/ldeng-ustc/tikv/kv/config"
)

// CreateDB opens (creating if needed) the badger database described by conf.
func CreateDB(conf *config.Engine) (*badger.DB, error) {
	vlogSize, err := conf.ValueLogFileSizeBytes()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(conf.DBPath, os.ModePerm); err != nil {
		return nil, errors.WithStack(err)
	}
	opts := badger.DefaultOptions
	opts.Dir = conf.DBPath
	opts.ValueDir = conf.DBPath
	opts.ValueLogFileSize = vlogSize
	if conf.NumCompactors > 0 {
		opts.NumCompactors = conf.NumCompactors
	}
	opts.SyncWrites = conf.SyncWrite
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Annotatef(err, "open badger at %s", conf.DBPath)
	}
	return db, nil
}
