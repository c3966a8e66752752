// Package listenrun wires configuration, logging, the ledger, the replay API
// client and the history store into a single listener run.
//
// Run owns process-level concerns: signal handling, the per-run log file and
// its replaylistener.log pointer, log retention, the single-instance lock on
// the download root, and recording the run in the history database. The loop
// itself lives in package listener.
package listenrun
