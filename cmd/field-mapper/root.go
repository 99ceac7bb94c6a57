package main

import (
	"github.com/spf13/cobra"

	"field-mapper/internal/config"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "field-mapper",
		Short:         "Resolve source data onto manufacturer enrollment forms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default .env)")

	cmd.AddCommand(
		newResolveCmd(opts),
		newScoreCmd(),
		newRulesCmd(opts),
		newAuditCmd(opts),
	)

	return cmd
}

func (o *rootOptions) config() (config.Config, error) {
	return config.Load(o.envFiles...)
}
