// Package httpserver provides the JSON REST gateway over the hashlink
// runtime: topics, action and assembly registries, block publishing, and
// assembly resolution.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{Config: config.Default()})
//	s := httpserver.New(rt)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8090")
package httpserver
