package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/pdfimport/internal/api"
)

func newServeCommand() *cobra.Command {
	var repoDir, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), repoDir, addr)
		},
	}

	cmd.Flags().StringVar(&repoDir, "repo", ".", "workspace directory")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(ctx context.Context, repoDir, addr string) error {
	ws, err := openWorkspace(repoDir)
	if err != nil {
		return err
	}
	names := ws.catalogs(nil)
	engine, err := ws.engine(names)
	if err != nil {
		return err
	}
	infos, err := ws.registry.Describe(names)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = ws.cfg.Server.Addr
	}

	app := api.NewApp(&api.Handler{Engine: engine, Catalogs: infos, Log: ws.log}, ws.cfg.Server.BodyLimitMB)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			ws.log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	ws.log.Info().Str("addr", addr).Strs("catalogs", names).Msg("serving")
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return ws.saveSecurities()
}
