package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/hashlink/internal/cmd/client"
	serverrun "github.com/rzbill/hashlink/internal/cmd/server"
	cfgpkg "github.com/rzbill/hashlink/internal/config"
	logpkg "github.com/rzbill/hashlink/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect HL_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("HL_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "hashlink",
		Short: "Hashlink registry CLI",
		Long:  "Hashlink is a single-binary registry and assembly resolution engine. This CLI manages the server and basic operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start hashlink server (HTTP API)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			operator, _ := cmd.Flags().GetString("operator")
			actionTopic, _ := cmd.Flags().GetString("action-topic")
			assemblyTopic, _ := cmd.Flags().GetString("assembly-topic")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg := cfgpkg.Default()
			if configPath != "" {
				loaded, err := cfgpkg.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			cfgpkg.FromEnv(&cfg)
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("http") {
				cfg.HTTPAddr = httpAddr
			}
			if operator != "" {
				cfg.Operator = operator
			}
			if actionTopic != "" {
				cfg.ActionTopic = actionTopic
			}
			if assemblyTopic != "" {
				cfg.AssemblyTopic = assemblyTopic
			}
			if cmd.Flags().Changed("fsync") {
				cfg.Fsync = fsyncMode
			}
			if _, err := cfg.FsyncMode(); err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8090", "HTTP listen address")
	serverStartCmd.Flags().String("operator", "", "Operator account id used for submitted messages")
	serverStartCmd.Flags().String("action-topic", os.Getenv("HL_ACTION_TOPIC"), "Action registry topic (created on first start if empty)")
	serverStartCmd.Flags().String("assembly-topic", os.Getenv("HL_ASSEMBLY_TOPIC"), "Assembly topic owned by this server (optional)")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().String("log-level", os.Getenv("HL_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("HL_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client commands
	rootCmd.AddCommand(clientcmd.NewTopicCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewActionCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewAssemblyCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("HL_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8090"
}
