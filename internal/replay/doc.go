// Package replay defines the records exchanged between the crawler, the
// metadata fetch stage, and the download stage.
//
// Records are ephemeral: a search page produces Record values, the fetch
// stage turns the survivors into FetchResult values, and the download stage
// reports one DownloadOutcome per result. None of these types are persisted
// directly; the ledger and metadata files own durability.
package replay
