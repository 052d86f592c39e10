// Package protocol defines the wire shapes of hashlink messages and the
// discriminated-union decoder that turns opaque transport bodies into typed
// operations.
//
// Every message body is a protocol-tagged JSON object carrying "p" (protocol
// tag) and "op" (operation name). Decode rejects anything that does not match
// a known tag/operation pair before it can reach fold logic; unknown protocol
// tags surface as ErrUnknownProtocol so registries sharing a transport with
// unrelated protocols can skip them silently.
package protocol
