package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/open-beagle/gst-element/internal/config"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the element manager with its HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("host") {
				cfg.WebServer.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.WebServer.Port = port
			}

			validator := config.NewConfigValidator(nil)
			if err := validator.ValidateConfig(cfg); err != nil {
				return err
			}

			app, err := NewApp(cfg, *ctx.configFlag)
			if err != nil {
				return err
			}
			if err := app.Start(); err != nil {
				return fmt.Errorf("application failed to start: %w", err)
			}

			if cfg.WebServer.Enabled {
				fmt.Fprintf(cmd.OutOrStdout(), "%s v%s listening on http://%s\n", AppName, AppVersion, cfg.WebServer.Addr())
			}
			if cfg.Metrics.Enabled {
				fmt.Fprintf(cmd.OutOrStdout(), "Metrics: http://%s%s\n", cfg.Metrics.Addr(), cfg.Metrics.Path)
			}

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			var runErr error
			select {
			case sig := <-sigChan:
				app.logger.Infof("Received signal: %v, initiating graceful shutdown", sig)
			case runErr = <-app.ServerErrors():
			case <-cmd.Context().Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Lifecycle.ShutdownTimeout.Std())
			defer cancel()

			if err := app.Stop(shutdownCtx); err != nil {
				app.logger.Errorf("Application shutdown error: %v", err)
				if runErr == nil {
					runErr = err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Web server host")
	cmd.Flags().IntVar(&port, "port", 8080, "Web server port")
	return cmd
}
