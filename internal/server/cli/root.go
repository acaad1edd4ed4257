// Package cli implements gatectl, the operator CLI: schema migrations,
// out-of-band teacher provisioning and session cleanup.
package cli

import (
	"database/sql"
	"io"
	"os"

	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/repomanager"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Seams for tests.
var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepoManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
	readPassword = term.ReadPassword
)

type options struct {
	dsn string
	out io.Writer
}

// NewRootCmd builds the gatectl command tree writing to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	defaults := &config.Config{}
	defaults.LoadDefaults()

	opts := &options{dsn: defaults.DatabaseDSN, out: out}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		opts.dsn = dsn
	}

	root := &cobra.Command{
		Use:           "gatectl",
		Short:         "Operate a logingate deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&opts.dsn, "dsn", "d", opts.dsn, "PostgreSQL DSN")

	root.AddCommand(
		migrateCmd(opts),
		provisionTeacherCmd(opts),
		purgeSessionsCmd(opts),
	)
	return root
}

func (o *options) open() (*sql.DB, error) {
	return openDB(o.dsn)
}
