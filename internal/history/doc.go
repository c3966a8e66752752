// Package history records listener runs and per-batch stage summaries in a
// small SQLite database under the state directory.
//
// The database is a reporting aid for the `history` command. It is never
// consulted for dedup decisions; the ledger files remain the only source of
// truth for which replays are complete. Write failures are therefore logged
// by callers and never stop the listener.
package history
