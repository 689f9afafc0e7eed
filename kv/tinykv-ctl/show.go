package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
	"github.com/ldeng-ustc/tikv/kv/util/engine_util"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

func newShowCommand() *cobra.Command {
	readTs := tsValue(tsoutil.TsMax)
	m := &cobra.Command{
		Use:   "show <key>",
		Short: "Print the lock, the write records and the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			s, err := openStorage()
			if err != nil {
				return err
			}
			defer s.Stop()
			reader, err := s.Reader()
			if err != nil {
				return err
			}
			defer reader.Close()
			return showKey(cmd, reader, key, uint64(readTs))
		},
	}
	m.Flags().Var(&readTs, "ts", "read the value visible at this ts")
	return m
}

// showKey prints everything stored for key, and the value a reader at readTs sees.
func showKey(cmd *cobra.Command, reader storage.StorageReader, key []byte, readTs uint64) error {
	out := cmd.OutOrStdout()
	txn := mvcc.RoTxn{Reader: reader, StartTS: readTs}
	lock, err := txn.GetLock(key)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "key: %s\n", formatKey(key))
	if lock == nil {
		fmt.Fprintln(out, "lock: none")
	} else {
		printLock(cmd, lock)
	}

	writes, commitTss, err := txn.AllWrites(key)
	if err != nil {
		return err
	}
	for i, w := range writes {
		fmt.Fprintf(out, "write: commit_ts=%s start_ts=%s kind=%s protected=%v overlapped_rollback=%v",
			formatTS(commitTss[i]), formatTS(w.StartTS), w.Kind, w.Protected, w.HasOverlappedRollback)
		if w.Kind == mvcc.WriteKindPut {
			val, err := reader.GetCF(engine_util.CfDefault, mvcc.EncodeKey(key, w.StartTS))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, " value=%s", formatKey(val))
		}
		fmt.Fprintln(out)
	}

	latest, commitTs, err := txn.MostRecentWrite(key)
	if err != nil {
		return err
	}
	if latest != nil {
		fmt.Fprintf(out, "latest: commit_ts=%s kind=%s time=%s\n", formatTS(commitTs), latest.Kind, formatTSTime(commitTs))
	}

	val, err := txn.GetValue(key)
	if err != nil {
		return err
	}
	if val == nil {
		fmt.Fprintf(out, "value@%s: none\n", formatTS(readTs))
	} else {
		fmt.Fprintf(out, "value@%s: %s\n", formatTS(readTs), formatKey(val))
	}
	return nil
}

// formatTSTime prints the wall clock time of the physical part of ts.
func formatTSTime(ts uint64) string {
	t, logical := tsoutil.ParseTS(ts)
	return fmt.Sprintf("%s+%d", t.UTC().Format(time.RFC3339Nano), logical)
}
