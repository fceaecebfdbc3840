package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/seoscore/internal/adapters/repository"
)

var errNoDatabase = errors.New("database_path is not set")

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to database_path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.DatabasePath == "" {
				return errNoDatabase
			}
			store, err := repository.NewSQLiteStore(cmd.Context(), cfg.DatabasePath)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return fmt.Errorf("close database: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", cfg.DatabasePath)
			return nil
		},
	}
}
