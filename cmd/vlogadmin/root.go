package main

import (
	"github.com/spf13/cobra"

	"github.com/vbonduro/vlogadmin/internal/config"
)

// flagOverrides holds persistent flags that win over the environment.
type flagOverrides struct {
	listen   string
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	var flags flagOverrides

	rootCmd := &cobra.Command{
		Use:   "vlogadmin",
		Short: "Admin console for the travel vlog site",
		Long: `vlogadmin serves the admin console used to manage categories, gallery
albums, vlogs and admin users of the travel vlog site.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&flags.listen, "listen", "l", "", "listen address (overrides LISTEN_ADDR)")
	rootCmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "sqlite database path (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newServeCmd(&flags))
	rootCmd.AddCommand(newMigrateCmd(&flags))
	rootCmd.AddCommand(newCreateUserCmd(&flags))

	return rootCmd
}

// loadConfig reads the environment and applies any flags that were set.
func loadConfig(flags *flagOverrides) *config.Config {
	cfg := config.Load()
	if flags.listen != "" {
		cfg.ListenAddr = flags.listen
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	return cfg
}
