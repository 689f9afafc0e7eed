package engine_util

/*
An engine is a low-level system for storing key/value pairs locally (without distribution or any transaction support,
etc.). This package contains code for interacting with such engines.

CF means 'column family'. A column family is a key namespace; writes can be made atomic across column families.
Badger has no native column families, so every key is stored with a `<cf>_` prefix.

The transaction layer uses three CFs:

* `default`: user values, keyed by the user key encoded with the transaction's start timestamp.
* `lock`: at most one lock per user key, keyed by the raw user key.
* `write`: commit and rollback records, keyed by the user key encoded with the commit timestamp.

engine_util includes the following files:

* engines: opening a badger database from config.
* write_batch: code to batch writes into a single, atomic badger transaction.
* cf_iterator: code to iterate over a whole column family in badger.
*/
