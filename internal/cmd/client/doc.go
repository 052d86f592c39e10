// Package client provides the `hashlink` command-line client.
//
// The CLI talks to the hashlink HTTP API to perform registry and
// assembly operations from a terminal. It is primarily intended for
// developers and operators.
//
// Installation
//
//	go install github.com/rzbill/hashlink/cmd/hashlink@latest
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it is
// read from the HL_HTTP environment variable and defaults to
// http://127.0.0.1:8090.
//
// Usage
//
//	hashlink topic create --memo "my assembly"
//	hashlink topic messages --topic t.3 --limit 10
//
//	hashlink action register --wasm ./counter.wasm --info ./counter.json
//	hashlink action get --hash <sha256-hex>
//	hashlink action list --filter 'json.hash != ""'
//
//	hashlink assembly register --topic t.3 --name counter-app --version 1.0.0
//	hashlink assembly add-action --topic t.3 --ref t.5 --alias counter
//	hashlink assembly add-block --topic t.3 --ref t.6 --actions '{"increment":"counter"}'
//	hashlink assembly state --topic t.3
//	hashlink assembly resolve --topic t.3
//	hashlink assembly validate --topic t.3
//
// Notes
//
//   - resolve reports partial results: broken references appear in the
//     "errors" array while the rest of the assembly still resolves.
//   - list accepts a CEL --filter evaluated server-side per entry.
package client
