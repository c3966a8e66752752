// Package config loads, normalizes, and validates replaylistener configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BAR_API_BASE_URL. The Config type centralizes every knob the listener and
// CLI need: output roots, the search date window, pacing, and pool sizing.
//
// Sandbox mode never rewrites the stored paths. Callers ask DownloadRoot and
// MetasRoot for the effective locations, which point at the sibling
// "_staging" trees when sandbox is enabled.
package config
