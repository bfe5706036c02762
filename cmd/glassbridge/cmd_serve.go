package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DaanHessen/glass-bridge/internal/transport/ws"
	"github.com/DaanHessen/glass-bridge/internal/util"
)

// newServeCmd creates the "glassbridge serve" subcommand.
func newServeCmd(load func() (util.Config, error)) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots and commands over HTTP and websocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           ws.NewServer(a.host(), a.log.With("component", "ws")).Routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ignoreCancel(a.loop.Run(ctx)) })
			g.Go(func() error { return a.watchSteps(ctx) })
			g.Go(func() error {
				a.log.Info("listening", "addr", cfg.ListenAddr, "seed", a.seed.Text)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides GLASSBRIDGE_LISTEN)")
	return cmd
}
