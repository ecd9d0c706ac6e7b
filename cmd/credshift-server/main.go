// credshift-server exposes the credshift engine to local clients over
// gRPC with JSON-RPC dispatch. It serves on a unix socket or loopback
// TCP and can watch file-backed configuration surfaces for drift.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/credshift/credshift/internal/config"
	"github.com/credshift/credshift/internal/drift"
	"github.com/credshift/credshift/internal/engine"
	"github.com/credshift/credshift/internal/logging"
	"github.com/credshift/credshift/internal/rpcapi"
)

var version = "0.1.0-dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "credshift-server",
		Short:   "credshift RPC server for local clients",
		Version: version,
	}

	rootCmd.AddCommand(newServeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the RPC server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			// Flags override the config file and environment.
			if cmd.Flags().Changed("listen") {
				cfg.Listen, _ = cmd.Flags().GetString("listen")
			}
			if cmd.Flags().Changed("socket") {
				cfg.Socket, _ = cmd.Flags().GetString("socket")
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("watch") {
				cfg.Watch, _ = cmd.Flags().GetBool("watch")
			}

			logger, redactor := logging.NewLogger(cfg.LogLevel)

			fmt.Printf("Opening data directory: %s\n", cfg.DataDir)

			eng, err := engine.Open(engine.Options{
				DataDir:  cfg.DataDir,
				Logger:   logger,
				Redactor: redactor,
			})
			if err != nil {
				return fmt.Errorf("opening engine: %w", err)
			}
			defer eng.Close()

			var (
				server *rpcapi.Server
				addr   string
			)
			if cfg.Socket != "" {
				addr = "unix://" + cfg.Socket
				server, err = rpcapi.NewServer(cfg.Socket, eng)
			} else {
				addr = cfg.Listen
				server, err = rpcapi.NewTCPServer(cfg.Listen, eng)
			}
			if err != nil {
				return fmt.Errorf("starting server: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			if cfg.Watch {
				watcher, werr := drift.NewWatcher(eng.Store, eng.Backends, logger)
				if werr != nil {
					return fmt.Errorf("starting surface watcher: %w", werr)
				}
				defer watcher.Close()
				go func() { _ = watcher.Run(ctx) }()
				fmt.Println("Surface watcher running.")
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				<-sigCh
				fmt.Println("\nShutting down...")
				cancel()
				server.Stop()
			}()

			fmt.Printf("credshift server ready on %s\n", addr)
			return server.Serve()
		},
	}

	cmd.Flags().String("listen", "", "TCP listen address (default from config)")
	cmd.Flags().String("socket", "", "Unix socket path (preferred over TCP when set)")
	cmd.Flags().String("data-dir", "", "Data directory override")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn or error")
	cmd.Flags().Bool("watch", false, "Watch file-backed surfaces for drift")

	return cmd
}
