package logutil

import (
	ngaut "github.com/ngaut/log"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"go.uber.org/zap"

	"github.com/ldeng-ustc/tikv/kv/config"
)

const defaultLogMaxSize = 300 // MB

// InitLogger replaces the global pingcap/log logger with one built from conf, and aligns the level of the
// printf-style logger used by the lock waiter.
func InitLogger(conf *config.Config) error {
	cfg := &log.Config{
		Level:  conf.LogLevel,
		Format: conf.LogFormat,
	}
	if conf.LogFile != "" {
		cfg.File = log.FileLogConfig{
			Filename: conf.LogFile,
			MaxSize:  defaultLogMaxSize,
		}
	}
	logger, props, err := log.InitLogger(cfg)
	if err != nil {
		return errors.Trace(err)
	}
	log.ReplaceGlobals(logger, props)
	ngaut.SetLevelByString(conf.LogLevel)
	return nil
}

// Key formats a user key for log fields.
func Key(name string, key []byte) zap.Field {
	return zap.String(name, keyString(key))
}

func keyString(key []byte) string {
	const hex = "0123456789ABCDEF"
	buf := make([]byte, 0, len(key)*2)
	for _, b := range key {
		buf = append(buf, hex[b>>4], hex[b&0xF])
	}
	return string(buf)
}
