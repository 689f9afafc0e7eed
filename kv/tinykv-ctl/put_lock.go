package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

// newPutLockCommand writes a lock directly, for reproducing stuck transactions.
func newPutLockCommand() *cobra.Command {
	var (
		primary     string
		ttl         uint64
		forUpdateTs tsValue
		minCommitTs tsValue
		asyncCommit bool
		value       string
	)
	m := &cobra.Command{
		Use:   "put-lock <key> <start-ts>",
		Short: "Write a put lock on a key, bypassing prewrite",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := parseKey(args[0])
			if err != nil {
				return err
			}
			lock := &mvcc.Lock{
				Primary:        key,
				Ttl:            ttl,
				Kind:           mvcc.WriteKindPut,
				ForUpdateTS:    uint64(forUpdateTs),
				MinCommitTS:    uint64(minCommitTs),
				UseAsyncCommit: asyncCommit,
			}
			if lock.Ts, err = parseTS(args[1]); err != nil {
				return err
			}
			if primary != "" {
				if lock.Primary, err = parseKey(primary); err != nil {
					return err
				}
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

			txn := mvcc.NewTxn(reader, lock.Ts)
			if existing, err := txn.GetLock(key); err != nil {
				return err
			} else if existing != nil {
				return fmt.Errorf("key %s is already locked by txn %s", formatKey(key), formatTS(existing.Ts))
			}
			txn.PutLock(key, lock)
			txn.PutValue(key, []byte(value))
			if err := s.Write(txn.Writes()); err != nil {
				return err
			}
			after, err := s.Reader()
			if err != nil {
				return err
			}
			defer after.Close()
			return showKey(cmd, after, key, tsoutil.TsMax)
		},
	}
	m.Flags().StringVar(&primary, "primary", "", "primary key of the transaction (default: the key itself)")
	m.Flags().Uint64Var(&ttl, "ttl", 3000, "lock ttl in milliseconds")
	m.Flags().Var(&forUpdateTs, "for-update-ts", "for update ts, non-zero makes the lock pessimistic")
	m.Flags().Var(&minCommitTs, "min-commit-ts", "min commit ts")
	m.Flags().BoolVar(&asyncCommit, "async-commit", false, "mark the lock as an async commit lock")
	m.Flags().StringVar(&value, "value", "", "value written by the lock")
	return m
}
