package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yklcs/areum/internal/builder"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Build the site into the output directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := newLogger(cfg)

		b, err := builder.New(cfg.Root, cfg.Build.Out, log)
		if err != nil {
			return err
		}
		defer b.Close()

		_, err = b.Build(cmd.Context())
		return err
	},
}

func init() {
	buildCmd.Flags().StringP("out", "o", "dist", "output directory")
	rootCmd.AddCommand(buildCmd)
}
