// Package ledger persists the set of replay ids whose files are confirmed on
// disk.
//
// Each date folder under the download root (L<YYYY-MM-DD>Replays) carries an
// append-only downloaded.jsonl file with one {"gameId": id} object per line.
// Load rebuilds the in-memory SeenSet from every such file at startup; Append
// adds one line after a confirmed download. Lines are never rewritten or
// removed, so the reconstructed set only ever grows.
//
// Neither operation fails the caller: unreadable files and malformed lines are
// logged and skipped, and a lost append only costs one redundant download on a
// later run.
package ledger
