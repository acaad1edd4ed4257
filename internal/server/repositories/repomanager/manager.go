package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/logingate/internal/dbx"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/principals"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Principals(db dbx.DBTX, rc models.RoleConfig) principals.Repository
	Sessions(db dbx.DBTX) sessions.Repository
}
