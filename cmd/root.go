// Package cmd provides the areum command-line interface. Configuration
// is layered: command-line flags override AREUM_ environment variables,
// which override .areum.yml in the site root.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yklcs/areum/internal/config"
	"github.com/yklcs/areum/internal/logging"
)

var rootFlag string

var rootCmd = &cobra.Command{
	Use:   "areum",
	Short: "A programmable static site generator",
	Long: `Areum builds sites from pages written as scripts: each page exports
a component tree that renders to HTML with scoped styles and a client
bundle.

Quick start:
  areum build                 Build the site in the current directory
  areum serve                 Serve with hot reload during development`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlag, "root", "r", ".", "site source directory")
}

// loadConfig loads layered configuration for the chosen site root.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootFlag)
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("port"); f != nil && f.Changed {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return nil, err
		}
		cfg.Server.Port = port
	}
	if f := cmd.Flags().Lookup("host"); f != nil && f.Changed {
		host, err := cmd.Flags().GetString("host")
		if err != nil {
			return nil, err
		}
		cfg.Server.Host = host
	}
	if f := cmd.Flags().Lookup("out"); f != nil && f.Changed {
		out, err := cmd.Flags().GetString("out")
		if err != nil {
			return nil, err
		}
		cfg.Build.Out = out
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  cfg.Log.SlogLevel(),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
