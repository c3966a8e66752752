// Package staging inspects and prunes the sandbox output roots.
//
// Sandbox mode writes into <root>_staging siblings of the configured download
// and metadata roots. These helpers only ever touch directories carrying that
// suffix, so a misconfigured path cannot reach production data.
package staging
