// Package listener drives the crawl loop: search a page, filter out seen
// replays, fetch metadata, download files, report, back off, repeat.
//
// The loop is a small state machine (running, backoff, stopped). Pages that
// yield no records, or no records that survive the seen-set filter, count
// toward the consecutive empty page threshold; any page with new records
// resets it. Outside endless mode the loop stops once the threshold is
// reached. A failure or panic inside one iteration is logged and treated as
// a backoff cycle. Cancelling the context is the only other way out: the
// active stage returns immediately and Run reports the interruption without
// an error.
package listener
