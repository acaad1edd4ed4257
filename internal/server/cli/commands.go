package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/logging"
	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/services"
	"github.com/dmitrijs2005/logingate/internal/server/session"
	"github.com/spf13/cobra"
)

const commandTimeout = 30 * time.Second

func migrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := newRepoManager().RunMigrations(cmd.Context(), db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(opts.out, "migrations applied")
			return nil
		},
	}
}

func provisionTeacherCmd(opts *options) *cobra.Command {
	var (
		name         string
		email        string
		withPassword bool
	)

	cmd := &cobra.Command{
		Use:   "provision-teacher",
		Short: "Create a teacher account ahead of their first login",
		Long: `Create a teacher row. Without --with-password the teacher can only
sign in through Google or Facebook, which link to this row by email.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if withPassword {
				fmt.Fprint(opts.out, "Enter password: ")
				pw, err := readPassword(int(os.Stdin.Fd()))
				fmt.Fprintln(opts.out)
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = string(pw)
				common.WipeByteArray(pw)
				if password == "" {
					return fmt.Errorf("empty password")
				}
			}

			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			cfg := &config.Config{QueryTimeout: commandTimeout}
			svc := services.NewIdentityService(db, newRepoManager(), cfg, logging.Nop{}, nil)

			p, err := svc.Provision(cmd.Context(), models.Teachers, name, email, password)
			if err != nil {
				return fmt.Errorf("provision teacher: %w", err)
			}
			fmt.Fprintf(opts.out, "teacher %d created for %s\n", p.ID, p.EmailOrEmpty())
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email used for OAuth linking")
	cmd.Flags().BoolVar(&withPassword, "with-password", false, "prompt for a local password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func purgeSessionsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired sessions from the Postgres session table",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.open()
			if err != nil {
				return err
			}
			defer db.Close()

			store := session.NewSQLStore(newRepoManager().Sessions(db), commandTimeout)
			n, err := store.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge sessions: %w", err)
			}
			fmt.Fprintf(opts.out, "%d expired sessions removed\n", n)
			return nil
		},
	}
}
