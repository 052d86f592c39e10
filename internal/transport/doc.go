// Package transport defines the append-only ordered log boundary the
// registries replay from, plus two implementations: Local (embedded,
// pebble-backed) and Memory (in-process, for tests and detached use).
//
// The contract mirrors what a consensus log service provides: durable ordered
// append returning a sequence number and consensus timestamp, paginated
// ascending reads from a timestamp cursor, and descending tail reads for
// latest-entry lookups. The lower bound of ReadSince is inclusive, so callers
// resuming from their last consumed timestamp must deduplicate by sequence
// number.
package transport
