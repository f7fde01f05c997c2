// Command meshgatewayd runs one node of the mesh gateway overlay. The
// entry point, flag parsing, and logging setup are out of the core's
// scope (SPEC_FULL.md §1); this file only wires the config loader, trust
// store, and node lifecycle together, the way the teacher's main.go
// wires up a flag.Parse'd Discovery+Counter+Server, generalized to a
// cobra CLI per SPEC_FULL.md §6.3 (cobra is already in the pack's stack:
// aldrin-isaac-newtron, encodeous-nylon, zjkmxy-ndnd all use it).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solitude-labs/meshgatewayd/internal/config"
	"github.com/solitude-labs/meshgatewayd/internal/meshlog"
	"github.com/solitude-labs/meshgatewayd/internal/meshnode"
	"github.com/solitude-labs/meshgatewayd/internal/trust"
)

// buildVersion is printed by `meshgatewayd version`. GET /peer/info
// reports the separate api.Version constant.
const buildVersion = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "meshgatewayd",
		Short:         "Zero-trust link-state mesh gateway node",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return meshlog.SetLevel(logLevel)
	}

	root.AddCommand(runCmd(), versionCmd())
	return root
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <config-file>",
		Short: "Run this node using the given configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(args[0])
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(buildVersion)
			return nil
		},
	}
}

func runNode(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		meshlog.Errorf("configuration error: %v", err)
		return err
	}

	store, err := trust.Load(cfg.CertPath, cfg.KeyPath, cfg.CAPath)
	if err != nil {
		meshlog.Errorf("failed to load certificates: %v", err)
		return err
	}

	node := meshnode.New(cfg, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	meshlog.WithNode(cfg.NodeID).Infof("starting on %s with %d configured peers", cfg.ListenAddress, len(cfg.Peers))
	if err := node.Run(ctx); err != nil {
		meshlog.Errorf("node exited with error: %v", err)
		return err
	}

	meshlog.WithNode(cfg.NodeID).Info("exited cleanly")
	return nil
}
