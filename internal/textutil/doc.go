// Package textutil provides small text helpers shared by the pipeline and the
// CLI: filename sanitization for replay files written to disk and title-cased
// labels for summaries and tables.
package textutil
