// Package services contains server-side business logic. This file implements
// IdentityService: local signup and login, OAuth identity resolution and the
// session codec for both principal types.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/dbx"
	"github.com/dmitrijs2005/logingate/internal/logging"
	"github.com/dmitrijs2005/logingate/internal/server/auth"
	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/metrics"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/repomanager"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dmitrijs2005/logingate/internal/server/services"

// Resolution outcomes, as reported to metrics and logs.
const (
	ResolvedExisting = "existing"
	ResolvedLinked   = "linked"
	ResolvedCreated  = "created"
)

// IdentityService resolves credentials to principals. Every store call is
// bounded by the configured query timeout.
type IdentityService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	queryTimeout time.Duration
	logger       logging.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
}

// NewIdentityService constructs an IdentityService. mx may be nil.
func NewIdentityService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger, mx *metrics.Metrics) *IdentityService {
	return &IdentityService{
		db:           db,
		repomanager:  m,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.With("module", "identity"),
		metrics:      mx,
		tracer:       otel.Tracer(tracerName),
	}
}

// SignupLocal creates a password-backed principal in rc's table. Name, email
// and password are all required.
func (s *IdentityService) SignupLocal(ctx context.Context, rc models.RoleConfig, name, email, password string) (*models.Principal, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, common.ErrMissingSignupField
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, common.ErrPasswordTooLong
	}

	p, err := s.create(ctx, rc, name, email, password)
	if err != nil {
		s.metrics.Signup(string(rc.Role), "failure")
		return nil, err
	}

	s.metrics.Signup(string(rc.Role), "success")
	s.logger.Info(ctx, "principal signed up", "role", rc.Role, "principal_id", p.ID)
	return p, nil
}

// Provision creates a principal out-of-band. The password is optional: a
// row without one can only be reached through OAuth email linking.
func (s *IdentityService) Provision(ctx context.Context, rc models.RoleConfig, name, email, password string) (*models.Principal, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, common.ErrMissingSignupField
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, common.ErrPasswordTooLong
	}
	return s.create(ctx, rc, name, email, password)
}

func (s *IdentityService) create(ctx context.Context, rc models.RoleConfig, name, email, password string) (*models.Principal, error) {
	p := &models.Principal{Name: name, Email: &email}
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("error hashing password: %w", err)
		}
		p.PasswordHash = &hash
	}

	ctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	created, err := s.repomanager.Principals(s.db, rc).Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("error creating %s: %w", rc.Role, err)
	}
	created.Role = rc.Role
	return created, nil
}

// AuthenticateLocal checks email and password against rc's table with a
// single lookup. Unknown emails yield common.ErrNoSuchPrincipal and wrong
// passwords common.ErrBadCredentials; both cost one bcrypt comparison.
func (s *IdentityService) AuthenticateLocal(ctx context.Context, rc models.RoleConfig, email, password string) (*models.Principal, error) {
	qctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	p, err := s.repomanager.Principals(s.db, rc).GetByEmail(qctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, common.ErrNoSuchPrincipal
		}
		return nil, fmt.Errorf("error looking up %s: %w", rc.Role, err)
	}

	if p.PasswordHash == nil {
		auth.BurnPasswordCheck(password)
		return nil, common.ErrBadCredentials
	}
	if !auth.VerifyPassword(password, *p.PasswordHash) {
		return nil, common.ErrBadCredentials
	}

	p.Role = rc.Role
	return p, nil
}

// ResolveOAuth finds or creates the principal for a provider assertion.
//
// Students: lookup by external id, else insert.
// Teachers: lookup by external id, else link the row sharing the asserted
// email, else insert.
//
// Concurrent first logins with the same external id converge on one row.
func (s *IdentityService) ResolveOAuth(ctx context.Context, rc models.RoleConfig, a *models.Assertion) (p *models.Principal, err error) {
	if a == nil || a.ExternalID == "" {
		return nil, errors.New("assertion has no external id")
	}

	ctx, span := s.tracer.Start(ctx, "identity.ResolveOAuth", trace.WithAttributes(
		attribute.String("auth.provider", string(a.Provider)),
		attribute.String("auth.role", string(rc.Role)),
	))
	defer span.End()

	outcome := ResolvedExisting
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.metrics.Resolution(string(a.Provider), string(rc.Role), "failure")
			return
		}
		span.SetAttributes(attribute.String("auth.outcome", outcome), attribute.Int64("auth.principal_id", p.ID))
		s.metrics.Resolution(string(a.Provider), string(rc.Role), outcome)
		s.logger.Info(ctx, "oauth identity resolved",
			"provider", a.Provider, "role", rc.Role, "outcome", outcome, "principal_id", p.ID)
	}()

	p, err = s.getByProviderID(ctx, rc, a)
	if err == nil {
		p.Role = rc.Role
		return p, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	if rc.LinkByEmail && a.Email != nil && *a.Email != "" {
		p, err = s.linkByEmail(ctx, rc, a)
		if err == nil {
			outcome = ResolvedLinked
			p.Role = rc.Role
			return p, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}

	p, outcome, err = s.createFromAssertion(ctx, rc, a)
	if err != nil {
		return nil, err
	}
	p.Role = rc.Role
	return p, nil
}

func (s *IdentityService) getByProviderID(ctx context.Context, rc models.RoleConfig, a *models.Assertion) (*models.Principal, error) {
	ctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	p, err := s.repomanager.Principals(s.db, rc).GetByProviderID(ctx, a.Provider, a.ExternalID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error looking up %s by %s id: %w", rc.Role, a.Provider, err)
	}
	return p, err
}

// linkByEmail stores the external id on the row matching the asserted email
// and returns that row. The row is locked for the duration of the update.
// Only a missing provider id is backfilled; a row linked to a different
// external id yields common.ErrProviderAlreadyLinked.
func (s *IdentityService) linkByEmail(ctx context.Context, rc models.RoleConfig, a *models.Assertion) (*models.Principal, error) {
	ctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	var linked *models.Principal
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Principals(tx, rc)

		existing, err := repo.GetByEmailForUpdate(ctx, *a.Email)
		if err != nil {
			return err
		}

		if existing.ProviderID(a.Provider) != nil {
			s.logger.Warn(ctx, "email already linked to another provider id",
				"provider", a.Provider, "role", rc.Role, "principal_id", existing.ID)
			return common.ErrProviderAlreadyLinked
		}

		if err := repo.LinkProvider(ctx, existing.ID, a.Provider, a.ExternalID); err != nil {
			return err
		}
		existing.SetProviderID(a.Provider, a.ExternalID)
		linked = existing
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error linking %s %s id: %w", rc.Role, a.Provider, err)
	}
	return linked, nil
}

func (s *IdentityService) createFromAssertion(ctx context.Context, rc models.RoleConfig, a *models.Assertion) (*models.Principal, string, error) {
	p := &models.Principal{Name: a.Name}
	if a.Email != nil && *a.Email != "" {
		email := *a.Email
		p.Email = &email
	}
	p.SetProviderID(a.Provider, a.ExternalID)

	qctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	repo := s.repomanager.Principals(s.db, rc)
	created, err := repo.CreateWithProvider(qctx, p, a.Provider)
	if err == nil {
		return created, ResolvedCreated, nil
	}
	if !errors.Is(err, common.ErrorAlreadyExists) {
		return nil, "", fmt.Errorf("error creating %s: %w", rc.Role, err)
	}

	// Someone else inserted first; their row is the answer.
	winner, rerr := s.getByProviderID(ctx, rc, a)
	if rerr != nil {
		return nil, "", fmt.Errorf("error creating %s: %w", rc.Role, err)
	}
	return winner, ResolvedExisting, nil
}

// Serialize reduces p to what the session remembers. An unset role is
// recorded as student.
func (s *IdentityService) Serialize(p *models.Principal) models.SessionToken {
	role := p.Role
	if role == "" {
		role = models.RoleStudent
	}
	return models.SessionToken{ID: p.ID, Role: role}
}

// Deserialize loads the principal a session token refers to. A missing row
// yields common.ErrSessionInvalid.
func (s *IdentityService) Deserialize(ctx context.Context, tok models.SessionToken) (*models.Principal, error) {
	rc := models.ConfigFor(tok.Role)

	ctx, cancel := dbx.Bound(ctx, s.queryTimeout)
	defer cancel()

	p, err := s.repomanager.Principals(s.db, rc).GetByID(ctx, tok.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrSessionInvalid
		}
		return nil, fmt.Errorf("error loading %s %d: %w", rc.Role, tok.ID, err)
	}
	p.Role = rc.Role
	return p, nil
}
