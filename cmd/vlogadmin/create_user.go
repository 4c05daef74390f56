package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/auth"
	"github.com/vbonduro/vlogadmin/internal/session"
)

// newCreateUserCmd registers an admin account. The console has no sign-up
// screen, so this is how the first admin gets in.
func newCreateUserCmd(flags *flagOverrides) *cobra.Command {
	var reg auth.Registration

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register an admin user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(flags)
			logger, cleanup, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			set, closeStore, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if reg.ConfirmPassword == "" {
				reg.ConfirmPassword = reg.Password
			}
			// registering never opens a session
			authSvc := auth.NewService(set.Users, set.Credentials, session.NewMemoryStore(cfg.SessionTTL), cfg.SessionTTL, logger)
			user, err := authSvc.Register(cmd.Context(), reg)
			if err != nil {
				fields := apperr.FieldErrors(err)
				for _, k := range slices.Sorted(maps.Keys(fields)) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", k, fields[k])
				}
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.ID, user.Email)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&reg.Name, "name", "", "display name")
	f.StringVar(&reg.NIC, "nic", "", "national identity card number")
	f.StringVar(&reg.ContactNumber, "contact", "", "contact number")
	f.StringVar(&reg.Email, "email", "", "sign-in email address")
	f.StringVar(&reg.Password, "password", "", "sign-in password, at least 6 characters")
	f.StringVar(&reg.ConfirmPassword, "confirm-password", "", "repeat of --password (defaults to --password)")
	f.StringVar(&reg.ProfileImageURL, "image", "", "profile image URL")
	f.StringVar(&reg.Role, "role", "", "role label shown in the console")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
