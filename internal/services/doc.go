// Package services defines shared utilities consumed by the pipeline stages
// and the BAR API client.
//
// Key responsibilities:
//   - Context helpers that stamp the run identifier, stage name, and search
//     page for logging.
//   - Structured error markers plus the Wrap helper so per-item failures can
//     be classified (not found, timeout, validation, storage) without string
//     matching.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
