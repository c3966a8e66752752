package pipeline

import (
	"replaylistener/internal/ledger"
	"replaylistener/internal/replay"
)

// Filter drops records whose id is already in seen unless force is set, and
// adds every kept id to seen before returning. Records without an id are
// dropped without being counted as skipped.
func Filter(records []replay.Record, seen ledger.SeenSet, force bool) ([]replay.Record, int) {
	kept := make([]replay.Record, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if rec.ID.Empty() {
			continue
		}
		if seen.Has(rec.ID) && !force {
			skipped++
			continue
		}
		seen.Add(rec.ID)
		kept = append(kept, rec)
	}
	return kept, skipped
}
