package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/server"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over HTTP",
		Long: `Serve sessions over HTTP. Every session gets its own conversation and
last-action memory. There is nobody to confirm code execution over HTTP, so
code only runs with --allow-code-execution or a policy that allows it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, opts, appDeps{})
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.cfg.Server
			if addr != "" {
				cfg.Addr = addr
			}
			factory := func(id string, history []agent.Message) *agent.Session {
				return a.newSession(id, history)
			}
			srv, err := server.New(cfg, factory, a.store, a.logger)
			if err != nil {
				return err
			}

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}
