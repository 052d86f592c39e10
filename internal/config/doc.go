// Package config provides loading and environment overlay for the hashlink
// server configuration. It exposes a Default() baseline, file loading for
// JSON and YAML, and an HL_* environment overlay.
//
// Example:
//
//	cfg, err := config.Load("/etc/hashlink.yaml")
//	if err != nil {
//	    return err
//	}
//	config.FromEnv(&cfg)
//	rt, _ := runtime.Open(runtime.Options{Config: cfg})
//	defer rt.Close()
package config
