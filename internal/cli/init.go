package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/depprop/internal/paths"
	"github.com/mesh-intelligence/depprop/pkg/snapshot"
)

func (a *app) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and snapshot directories",
		Long:  "Write a default config.yaml when none exists and initialize the snapshot store.",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.storeConfig()
			if err != nil {
				return err
			}
			if err := a.withStore(func(snapshot.Store) error { return nil }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config: %s\ndata:   %s\n",
				filepath.Join(a.configDir, paths.ConfigFileName), cfg.DataDir)
			return nil
		},
	}
}
