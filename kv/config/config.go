package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/pingcap/errors"
)

const (
	// EngineMem keeps all data in memory, it is only suitable for tests and tools.
	EngineMem = "mem"
	// EngineBadger stores data in a badger database under Engine.DBPath.
	EngineBadger = "badger"
)

type Config struct {
	LogLevel   string `toml:"log-level"`
	LogFormat  string `toml:"log-format"`
	LogFile    string `toml:"log-file"`    // Empty means stderr.
	StatusAddr string `toml:"status-addr"` // Serves /metrics when not empty.

	Engine Engine `toml:"engine"`
	Txn    Txn    `toml:"txn"`
}

type Engine struct {
	Kind   string `toml:"engine"`
	DBPath string `toml:"db-path"` // Directory to store the data in. Should exist and be writable.
	// Human readable size, e.g. "256MB".
	ValueLogFileSize string `toml:"value-log-file-size"`
	NumCompactors    int    `toml:"num-compactors"`
	// Sync all writes to disk. Setting this to true would slow down data loading significantly.
	SyncWrite bool `toml:"sync-write"`
}

type Txn struct {
	// How long a blocked transaction waits on a lock before giving up.
	LockWaitTimeout Duration `toml:"lock-wait-timeout"`
}

// Duration is a time.Duration that can be decoded from a toml string such as "3s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return errors.WithStack(err)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ValueLogFileSizeBytes parses Engine.ValueLogFileSize.
func (e *Engine) ValueLogFileSizeBytes() (int64, error) {
	size, err := units.RAMInBytes(e.ValueLogFileSize)
	if err != nil {
		return 0, errors.Annotatef(err, "invalid value-log-file-size %q", e.ValueLogFileSize)
	}
	return size, nil
}

func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineMem:
	case EngineBadger:
		if c.Engine.DBPath == "" {
			return fmt.Errorf("db-path must be set for the %s engine", EngineBadger)
		}
		size, err := c.Engine.ValueLogFileSizeBytes()
		if err != nil {
			return err
		}
		if size <= 0 {
			return fmt.Errorf("value-log-file-size must be positive")
		}
	default:
		return fmt.Errorf("unknown engine %q", c.Engine.Kind)
	}
	if c.Txn.LockWaitTimeout.Duration <= 0 {
		return fmt.Errorf("lock-wait-timeout must be greater than 0")
	}
	return nil
}

func getLogLevel() (logLevel string) {
	logLevel = "info"
	if l := os.Getenv("LOG_LEVEL"); len(l) != 0 {
		logLevel = l
	}
	return
}

func NewDefaultConfig() *Config {
	return &Config{
		LogLevel:  getLogLevel(),
		LogFormat: "text",
		Engine: Engine{
			Kind:             EngineBadger,
			DBPath:           "/tmp/badger",
			ValueLogFileSize: "256MB",
			NumCompactors:    1,
			SyncWrite:        true,
		},
		Txn: Txn{
			LockWaitTimeout: Duration{3 * time.Second},
		},
	}
}

func NewTestConfig() *Config {
	return &Config{
		LogLevel:  getLogLevel(),
		LogFormat: "text",
		Engine: Engine{
			Kind:             EngineMem,
			DBPath:           "/tmp/badger",
			ValueLogFileSize: "64MB",
			NumCompactors:    1,
		},
		Txn: Txn{
			LockWaitTimeout: Duration{100 * time.Millisecond},
		},
	}
}

// LoadFile overlays the toml file at path on top of the default config.
func LoadFile(path string) (*Config, error) {
	conf := NewDefaultConfig()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, errors.Annotatef(err, "load config %s", path)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}
