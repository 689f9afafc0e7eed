package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ldeng-ustc/tikv/kv/server"
	"github.com/ldeng-ustc/tikv/kv/transaction/commands"
	"github.com/ldeng-ustc/tikv/kv/transaction/mvcc"
	"github.com/ldeng-ustc/tikv/kv/util/tsoutil"
)

func newCheckTxnStatusCommand() *cobra.Command {
	var (
		callerStartTs      tsValue
		currentTs          tsValue
		rollbackIfNotExist bool
	)
	m := &cobra.Command{
		Use:   "check-txn-status <primary-key> <lock-ts>",
		Short: "Resolve the status of the transaction lock-ts through its primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := parseKey(args[0])
			if err != nil {
				return err
			}
			req := &commands.CheckTxnStatusRequest{
				PrimaryKey:         pk,
				CallerStartTs:      uint64(callerStartTs),
				CurrentTs:          uint64(currentTs),
				RollbackIfNotExist: rollbackIfNotExist,
			}
			if req.LockTs, err = parseTS(args[1]); err != nil {
				return err
			}
			if !cmd.Flags().Changed("current-ts") {
				req.CurrentTs = tsoutil.GoTimeToTS(time.Now())
			}

			s, err := openStorage()
			if err != nil {
				return err
			}
			defer s.Stop()

			resp, err := server.NewServer(s, conf).KvCheckTxnStatus(context.Background(), req)
			if err != nil {
				return err
			}
			printCheckTxnStatusResponse(cmd, resp)
			return nil
		},
	}
	m.Flags().Var(&callerStartTs, "caller-start-ts", "start ts of the reader which met the lock")
	m.Flags().Var(&currentTs, "current-ts", "current ts used for TTL expiry (default: now)")
	m.Flags().BoolVar(&rollbackIfNotExist, "rollback-if-not-exist", false, "write a protected rollback if the transaction left no trace")
	return m
}

func printCheckTxnStatusResponse(cmd *cobra.Command, resp *commands.CheckTxnStatusResponse) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "status: %s\n", resp.Status)
	fmt.Fprintf(out, "action: %s\n", resp.Action)
	switch s := resp.Status.(type) {
	case mvcc.Committed:
		fmt.Fprintf(out, "commit_ts: %s\n", formatTS(s.CommitTS))
	case mvcc.Uncommitted:
		printLock(cmd, s.Lock)
	case mvcc.RolledBack, mvcc.TtlExpire, mvcc.LockNotExist:
	}
}

func printLock(cmd *cobra.Command, lock *mvcc.Lock) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "lock: primary=%s start_ts=%s ttl=%d kind=%s for_update_ts=%s min_commit_ts=%s async_commit=%v\n",
		formatKey(lock.Primary), formatTS(lock.Ts), lock.Ttl, lock.Kind, formatTS(lock.ForUpdateTS),
		formatTS(lock.MinCommitTS), lock.UseAsyncCommit)
}
