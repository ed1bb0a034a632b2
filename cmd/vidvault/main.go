// Command vidvault administers a VidVault deployment: schema migrations, the
// block flag and catalogue search. It also runs the binaries and tests from a
// source checkout.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "vidvault: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vidvault",
		Short: "VidVault administration and development CLI",
		Long: `vidvault manages the asset database (migrations, block flag, search) and
runs the server, the worker and the test suite from a source checkout.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the TOML config file (default vidvault.toml)")
	cmd.AddCommand(
		newMigrateCmd(),
		newBlockCmd(true),
		newBlockCmd(false),
		newSearchCmd(),
		newTestCmd(),
		newRunCmd(),
	)
	return cmd
}
