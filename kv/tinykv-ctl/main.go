package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ldeng-ustc/tikv/kv/config"
	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/storage/standalone_storage"
	"github.com/ldeng-ustc/tikv/kv/util/logutil"
)

var (
	configPath string
	dbPath     string
	logLevel   string
	hexKeys    bool

	conf *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "tinykv-ctl",
		Short:             "Inspect and resolve transactions in a TinyKV data directory",
		PersistentPreRunE: initGlobal,
		SilenceUsage:      true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "override engine.db-path of the config")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "L", "", "override log-level of the config")
	rootCmd.PersistentFlags().BoolVar(&hexKeys, "hex", false, "keys are given and printed in hex")

	rootCmd.AddCommand(
		newCheckTxnStatusCommand(),
		newShowCommand(),
		newPutLockCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initGlobal(cmd *cobra.Command, args []string) error {
	var err error
	if configPath != "" {
		conf, err = config.LoadFile(configPath)
		if err != nil {
			return err
		}
	} else {
		conf = config.NewDefaultConfig()
	}
	if dbPath != "" {
		conf.Engine.DBPath = dbPath
	}
	if logLevel != "" {
		conf.LogLevel = logLevel
	}
	if err = conf.Validate(); err != nil {
		return err
	}
	if err = logutil.InitLogger(conf); err != nil {
		return err
	}

	if conf.StatusAddr != "" {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(conf.StatusAddr, nil); err != nil {
				log.Error("status server stopped", zap.String("addr", conf.StatusAddr), zap.Error(err))
			}
		}()
	}
	return nil
}

// openStorage starts the storage engine named by the config. The caller must Stop it.
func openStorage() (storage.Storage, error) {
	var s storage.Storage
	switch conf.Engine.Kind {
	case config.EngineMem:
		s = storage.NewMemStorage()
	case config.EngineBadger:
		s = standalone_storage.NewStandAloneStorage(conf)
	default:
		return nil, errors.Errorf("unknown engine %q", conf.Engine.Kind)
	}
	if err := s.Start(); err != nil {
		return nil, err
	}
	return s, nil
}
