package server

import (
	"context"

	"github.com/pingcap/errors"

	"github.com/ldeng-ustc/tikv/kv/config"
	"github.com/ldeng-ustc/tikv/kv/storage"
	"github.com/ldeng-ustc/tikv/kv/transaction/commands"
	"github.com/ldeng-ustc/tikv/kv/transaction/concurrency"
	"github.com/ldeng-ustc/tikv/kv/transaction/latches"
	"github.com/ldeng-ustc/tikv/kv/util/lockwaiter"
)

// Server is the transactional front of a storage engine. It serializes commands on the keys they write,
// tracks the max-ts watermark and wakes transactions waiting on released locks.
type Server struct {
	storage storage.Storage

	Latches *latches.Latches

	cm         *concurrency.Manager
	lockWaiter *lockwaiter.Manager
}

func NewServer(storage storage.Storage, conf *config.Config) *Server {
	return &Server{
		storage:    storage,
		Latches:    latches.NewLatches(),
		cm:         concurrency.NewManager(0),
		lockWaiter: lockwaiter.NewManager(conf.Txn.LockWaitTimeout.Duration),
	}
}

// ConcurrencyManager returns the max-ts watermark shared by all commands of this server.
func (server *Server) ConcurrencyManager() *concurrency.Manager {
	return server.cm
}

// LockWaiter returns the manager of transactions blocked on locks.
func (server *Server) LockWaiter() *lockwaiter.Manager {
	return server.lockWaiter
}

// KvCheckTxnStatus reports the status of the transaction identified by req.LockTs, rolling it back or pushing its
// min_commit_ts when needed.
func (server *Server) KvCheckTxnStatus(ctx context.Context, req *commands.CheckTxnStatusRequest) (*commands.CheckTxnStatusResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	if len(req.PrimaryKey) == 0 {
		return nil, errors.New("check txn status: empty primary key")
	}
	cmd := commands.NewCheckTxnStatus(req, server.cm)
	resp, err := commands.RunCommand(cmd, server.storage, server.Latches, server.lockWaiter)
	if err != nil {
		return nil, err
	}
	return resp.(*commands.CheckTxnStatusResponse), nil
}

// RawGet reads the value of key in cf without going through mvcc. A missing key returns nil.
func (server *Server) RawGet(_ context.Context, cf string, key []byte) ([]byte, error) {
	reader, err := server.storage.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return reader.GetCF(cf, key)
}
