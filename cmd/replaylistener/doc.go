// Package main hosts the replaylistener CLI entrypoint and command graph.
//
// The Cobra-based command tree starts the listener loop, scaffolds and
// inspects configuration, summarizes the on-disk ledger, lists recorded batch
// history, and runs preflight checks. It centralizes configuration resolution
// and dotenv loading so subcommands only deal with presentation.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it here through a command or flag.
package main
