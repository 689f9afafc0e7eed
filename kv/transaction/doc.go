package transaction

// The transaction package implements the part of TinyKV's 'transaction' layer which decides what happened to a
// transaction whose lock another transaction ran into. Requests are turned into reads and writes of the underlying
// key/value store (defined by Storage in kv/storage/storage.go).
//
// Note that there are two kinds of transactions in play: client transactions are collaborative between TinyKV and its
// client. They are implemented using multiple TinyKV commands and ensure that multiple SQL commands can be executed
// atomically. There are also mvcc transactions which are an implementation detail of this layer in TinyKV (represented
// by MvccTxn in kv/transaction/mvcc/transaction.go). These ensure that a *single* TinyKV command is executed atomically.
//
// *Locks* are used to implement client transactions. Setting or checking a lock in a client transaction is lowered to
// writing or reading a key and value in the store.
//
// *Latches* are used to implement mvcc transactions and are not visible to the client. They are stored outside the
// underlying storage. See the latches package for details.
//
// Within this package, `commands` contains code to lower requests to mvcc transactions, `mvcc` contains code for
// interacting with the underlying storage, and `concurrency` tracks the largest timestamp the store has observed.
//
// Each transactional command is represented by a type which implements the `Command` interface and is defined in
// `commands`. See the `Command` docs for details on how a command is executed. We execute the command to completion on
// its own thread, relying on latches for thread safety. Commands which release locks implement `LockReleaser`; their
// waiters are woken only after the writes are applied.
//
// ## Encoding user key/values
//
// The mvcc strategy is essentially to store all data (committed and uncommitted) at every point in time. So for example,
// if we store a value for a key, then store another value (a logical overwrite) at a later time, both values are
// preserved in the underlying storage.
//
// This is implemented by encoding user keys with their timestamps (the starting timestamp of the transaction in which
// they are written) to make an encoded key (see kv/util/codec). The `default` CF is a mapping from encoded keys to their
// values.
//
// Locking a key means writing into the `lock` CF. In this CF, we use the user key (i.e., not the encoded key so that a key
// is locked for all timestamps). The value in the `lock` CF consists of the 'primary key' for the transaction, the kind of
// lock, the start timestamp of the transaction, the lock's ttl (time to live), the for-update ts of pessimistic locks, the
// min commit ts the transaction promises and a few flags. See lock.go for the implementation.
//
// The status of values is stored in the `write` CF. Here we map keys encoded with their commit timestamps (i.e., the time
// at which a transaction is committed) to a value containing the transaction's starting timestamp, and the kind of write
// ('put', 'delete', 'lock' or 'rollback'). Note that for transactions which are rolled back, the start timestamp is used
// for the commit timestamp in the encoded key. When that slot already holds the commit record of another transaction,
// the rollback is recorded by flagging that record instead of overwriting it.
//
// ## Checking a transaction's status
//
// A reader which meets a lock asks for the status of the lock's transaction through its primary key. The lock is either
// still alive (its min commit ts may be pushed past the reader's start ts so the reader can ignore it), expired (it is
// rolled back and blocked transactions are woken), or gone, in which case the write CF tells whether the transaction
// committed or was rolled back. A transaction which left no trace at all gets a protected rollback record, so it can
// never commit later.
