package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vbonduro/vlogadmin/internal/db"
)

// newMigrateCmd brings the SQL schema up to date. Opening the database already
// applies pending migrations, so the command reports the resulting version.
func newMigrateCmd(flags *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(flags)
			logger, cleanup, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			d, dialect, err := openSQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeWithLog(d, "database", logger)

			version, dirty, err := db.Version(d, dialect)
			if err != nil {
				return err
			}
			logger.Info("schema up to date", "dialect", string(dialect), "version", version, "dirty", dirty)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s schema at version %d\n", dialect, version)
			return err
		},
	}
}
