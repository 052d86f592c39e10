// Package registry replays append-only topic logs into versioned local
// state. A Registry owns one topic and one protocol tag; syncing reads
// messages past the last consumed timestamp, decodes the ones it owns, and
// folds them into an id-keyed cache in log order. Clearing the cache and
// re-syncing replays the full log through the same fold, so incremental and
// full materialization always converge.
package registry
