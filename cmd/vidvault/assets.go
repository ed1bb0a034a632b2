package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dharsanguruparan/VidVault/internal/app"
	"github.com/dharsanguruparan/VidVault/internal/config"
	"github.com/dharsanguruparan/VidVault/internal/database"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/search"
)

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format), nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the asset database schema",
	}
	for _, sub := range []struct{ name, short string }{
		{"up", "Apply all pending migrations"},
		{"down", "Roll back all migrations"},
		{"version", "Print the current schema version"},
	} {
		command := sub.name
		cmd.AddCommand(&cobra.Command{
			Use:   command,
			Short: sub.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				dialect, target, err := app.DialectFor(cfg.Database)
				if err != nil {
					return err
				}
				return database.Migrate(log, dialect, target, command)
			},
		})
	}
	return cmd
}

func newBlockCmd(blocked bool) *cobra.Command {
	use, short := "block <id>", "Reject downloads of an asset"
	if !blocked {
		use, short = "unblock <id>", "Allow downloads of an asset again"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The flag is written to the database directly. A running server picks it up
once its cached entry expires or is evicted; use the admin listener for an
immediate change.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, closeStore, err := app.OpenStore(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.SetBlocked(ctx, id, blocked); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "video %d blocked=%t\n", id, blocked)
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var name string
	var size int64
	cmd := &cobra.Command{
		Use:   "search",
		Short: "List assets matching a name fragment and/or exact size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, closeStore, err := app.OpenStore(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer closeStore()

			var q search.Query
			if cmd.Flags().Changed("name") {
				q.Name = &name
			}
			if cmd.Flags().Changed("size") {
				q.Size = &size
			}
			assets, err := search.NewService(store).Search(ctx, q)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(assets)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Case-insensitive name fragment")
	cmd.Flags().Int64Var(&size, "size", 0, "Exact recorded size in bytes")
	return cmd
}
