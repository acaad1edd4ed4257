package principals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/dbx"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	columns         = "id, name, email, password, google_id, facebook_id, created_at"
	uniqueViolation = "23505"
)

// PostgresRepository reads and writes one principal table over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db    dbx.DBTX
	table string
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository binds a repository to db and the table named by rc.
// Table names are never taken from user input.
func NewPostgresRepository(db dbx.DBTX, rc models.RoleConfig) *PostgresRepository {
	return &PostgresRepository{db: db, table: rc.Table}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row scanner) (*models.Principal, error) {
	p := &models.Principal{}
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.GoogleID, &p.FacebookID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s`, columns, r.table, where)
	return scanPrincipal(r.db.QueryRowContext(ctx, query, arg))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Principal, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	return r.getOne(ctx, "email = $1", email)
}

// GetByEmailForUpdate locks the matched row until the surrounding
// transaction ends. Only meaningful when the repository is bound to a *sql.Tx.
func (r *PostgresRepository) GetByEmailForUpdate(ctx context.Context, email string) (*models.Principal, error) {
	return r.getOne(ctx, "email = $1 FOR UPDATE", email)
}

func (r *PostgresRepository) GetByProviderID(ctx context.Context, provider models.Provider, externalID string) (*models.Principal, error) {
	return r.getOne(ctx, provider.Column()+" = $1", externalID)
}

// Create inserts a password-backed principal.
func (r *PostgresRepository) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	query := fmt.Sprintf(`INSERT INTO %s (name, email, password) VALUES ($1, $2, $3) RETURNING %s`, r.table, columns)

	created, err := scanPrincipal(r.db.QueryRowContext(ctx, query, p.Name, p.Email, p.PasswordHash))
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return created, nil
}

// CreateWithProvider inserts a principal carrying an external provider id.
// When another request inserted the same external id first, the insert is
// a no-op and common.ErrorAlreadyExists is returned so the caller can
// re-read the winner's row.
func (r *PostgresRepository) CreateWithProvider(ctx context.Context, p *models.Principal, provider models.Provider) (*models.Principal, error) {
	externalID := p.ProviderID(provider)
	if externalID == nil {
		return nil, fmt.Errorf("principal has no %s id", provider)
	}

	col := provider.Column()
	query := fmt.Sprintf(`INSERT INTO %s (name, email, %s) VALUES ($1, $2, $3)
		ON CONFLICT (%s) DO NOTHING
		RETURNING %s`, r.table, col, col, columns)

	created, err := scanPrincipal(r.db.QueryRowContext(ctx, query, p.Name, p.Email, *externalID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, mapUniqueViolation(err)
	}
	return created, nil
}

// LinkProvider stores externalID on an existing row.
func (r *PostgresRepository) LinkProvider(ctx context.Context, id int64, provider models.Provider, externalID string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $1 WHERE id = $2`, r.table, provider.Column())

	res, err := r.db.ExecContext(ctx, query, externalID, id)
	if err != nil {
		return mapUniqueViolation(fmt.Errorf("db error: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, pgErr.ConstraintName)
	}
	return err
}
