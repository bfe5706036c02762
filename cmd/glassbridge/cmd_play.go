package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DaanHessen/glass-bridge/internal/ui"
	"github.com/DaanHessen/glass-bridge/internal/util"
)

// newPlayCmd creates the "glassbridge play" subcommand.
func newPlayCmd(load func() (util.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play or replay in the terminal",
		Long:  "Opens the terminal UI. Logs are discarded unless --log-file is set,\nsince the UI owns the terminal.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ignoreCancel(a.loop.Run(ctx)) })
			g.Go(func() error { return a.watchSteps(ctx) })
			g.Go(func() error {
				defer cancel()
				return ui.Run(ctx, a.host(), a.seed.Text, version)
			})
			return g.Wait()
		},
	}
}

func ignoreCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
