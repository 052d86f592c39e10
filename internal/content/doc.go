// Package content provides content-addressed blob storage and the block
// loader built on it.
//
// Blob ids are sha256 digests of the stored bytes, so a fetch can always be
// verified against its id. The BlockLoader resolves a block topic reference
// into its registration, definition, and template, memoizing successful
// loads per reference for the process lifetime.
package content
