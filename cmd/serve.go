package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yklcs/areum/internal/engine"
	"github.com/yklcs/areum/internal/env"
	"github.com/yklcs/areum/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the site with hot reload",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		factory := func() (env.Engine, error) {
			eng, err := engine.New(cfg.Root)
			if err != nil {
				return nil, err
			}
			return eng, nil
		}
		manager, err := env.NewManager(factory, log)
		if err != nil {
			return err
		}
		defer manager.Stop()

		srv, err := server.New(cfg.Root, manager, server.Options{
			Host:     cfg.Server.Host,
			Port:     cfg.Server.Port,
			Debounce: cfg.Watch.Debounce,
			Ignore:   cfg.Watch.Ignore,
		}, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return srv.Serve(ctx)
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8000, "port to listen on")
	serveCmd.Flags().String("host", "localhost", "host to bind")
	rootCmd.AddCommand(serveCmd)
}
