package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/DaanHessen/glass-bridge/internal/store"
	"github.com/DaanHessen/glass-bridge/internal/util"
)

// newMigrateCmd creates "glassbridge migrate up|down|version".
func newMigrateCmd(load func() (util.Config, error)) *cobra.Command {
	run := func(action string) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			migrator, err := store.NewMigrator(cfg.DSN)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch action {
			case "up":
				if err := migrator.Up(ctx); err != nil && err != store.ErrNoChange {
					return err
				}
				fmt.Fprintln(out, "Migrations applied")
			case "down":
				if err := migrator.Down(ctx); err != nil && err != store.ErrNoChange {
					return err
				}
				fmt.Fprintln(out, "Migrations rolled back")
			case "version":
				v, dirty, err := migrator.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "schema version %d (dirty: %v)\n", v, dirty)
			}
			return nil
		}
	}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the audio cache schema",
	}
	for _, action := range []string{"up", "down", "version"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: "Run migrate " + action,
			Args:  cobra.NoArgs,
			RunE:  run(action),
		})
	}
	return cmd
}

// newCacheCmd creates "glassbridge cache prune".
func newCacheCmd(load func() (util.Config, error)) *cobra.Command {
	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete cached narration audio not used recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := store.Open(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			n, err := store.NewAudioCacheRepo(db).Prune(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d clips\n", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the last use to prune")
	cmd := &cobra.Command{Use: "cache", Short: "Manage the narration audio cache"}
	cmd.AddCommand(prune)
	return cmd
}
