package main

import (
	"context"
	"fmt"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/openapi"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/brizzai/searchkit/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the search tools over MCP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	app := newApp(cfg)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build app: %w", err)
	}

	ctx := commandContext(cmd)
	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	sig := <-app.Wait()
	logger.Info("Stopping", zap.String("signal", sig.String()))

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if sig.ExitCode != 0 {
		return fmt.Errorf("server exited with code %d", sig.ExitCode)
	}
	return nil
}

func newApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Supply(cfg, &cfg.Endpoint),
		fx.Provide(func() *zap.Logger { return logger.Named("searchkit") }),
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		requester.Module,
		openapi.Module,
		server.Module,
		fx.Invoke(registerServer),
	)
}

// registerServer runs the MCP server for the lifetime of the app. The app
// shuts down when the server returns, e.g. when stdin closes in stdio mode.
func registerServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *server.Server) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				exitCode := 0
				if err := srv.Start(ctx); err != nil {
					logger.Error("Server stopped with error", zap.Error(err))
					exitCode = 1
				}
				_ = shutdowner.Shutdown(fx.ExitCode(exitCode))
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
