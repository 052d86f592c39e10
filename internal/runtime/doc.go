// Package runtime wires storage, transport, registries, and the resolver
// into a single-node hashlink instance. It exposes Open/Close, basic health
// checks, and accessors used by the HTTP server and CLI.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	res, _ := rt.Resolver().LoadAndResolveAssembly(context.Background(), "t.5")
package runtime
