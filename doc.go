package tinykv

/*
This module is the transaction status checker of a TiKV-style key/value store. Given the primary key and start ts of a
transaction, it decides from the primary lock and the write records whether the transaction committed, rolled back or
is still running. On the way it rolls back primary locks whose TTL expired, pushes the min_commit_ts of live locks past
the readers that met them, and keeps a max-ts watermark so later commits cannot land below a timestamp a reader saw.

The module is organized into the following packages:

* `kv/transaction/mvcc`: the lock and write record model over the default, lock and write column families, and the
  missing-lock resolver.
* `kv/transaction/commands`: the CheckTxnStatus command and the runner that executes commands under latches.
* `kv/transaction/concurrency`: the max-ts watermark.
* `kv/transaction/latches`: per-key latches serializing commands that write the same keys.
* `kv/server`: the transactional front owning the storage, latches, watermark and lock waiters.
* `kv/storage`: the storage interface with an in-memory engine and a badger engine.
* `kv/util`: encoding, timestamps, logging and lock waiting helpers.
* `kv/tinykv-ctl`: a command line tool to write locks, inspect keys and check transaction status.
*/
