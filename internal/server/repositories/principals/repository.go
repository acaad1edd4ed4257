// Package principals provides the PostgreSQL-backed repository for student
// and teacher rows. One implementation serves both tables; the table is
// fixed at construction.
package principals

import (
	"context"

	"github.com/dmitrijs2005/logingate/internal/server/models"
)

type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.Principal, error)
	GetByEmail(ctx context.Context, email string) (*models.Principal, error)
	GetByEmailForUpdate(ctx context.Context, email string) (*models.Principal, error)
	GetByProviderID(ctx context.Context, provider models.Provider, externalID string) (*models.Principal, error)
	Create(ctx context.Context, p *models.Principal) (*models.Principal, error)
	CreateWithProvider(ctx context.Context, p *models.Principal, provider models.Provider) (*models.Principal, error)
	LinkProvider(ctx context.Context, id int64, provider models.Provider, externalID string) error
}
