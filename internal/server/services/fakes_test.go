package services

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/dbx"
	"github.com/dmitrijs2005/logingate/internal/logging"
	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/principals"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/sessions"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func newIdentityService(t *testing.T, db *sql.DB, rm *fakeRepoManager) *IdentityService {
	t.Helper()
	cfg := &config.Config{QueryTimeout: time.Second}
	return NewIdentityService(db, rm, cfg, logging.Nop{}, nil)
}

func strPtr(s string) *string { return &s }

// memTable is an in-memory principal table enforcing the same uniqueness
// rules as the Postgres schema.
type memTable struct {
	mu     sync.Mutex
	rows   []models.Principal
	nextID int64

	err          error
	calls        int
	sawDeadline  bool
	createHook   func()
	forUpdateHit bool
}

func newMemTable() *memTable { return &memTable{nextID: 1} }

func (m *memTable) enter(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if _, ok := ctx.Deadline(); ok {
		m.sawDeadline = true
	}
	return m.err
}

func (m *memTable) find(match func(p *models.Principal) bool) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if match(&m.rows[i]) {
			cp := m.rows[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func eq(a *string, b string) bool { return a != nil && *a == b }

func (m *memTable) GetByID(ctx context.Context, id int64) (*models.Principal, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	return m.find(func(p *models.Principal) bool { return p.ID == id })
}

func (m *memTable) GetByEmail(ctx context.Context, email string) (*models.Principal, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	return m.find(func(p *models.Principal) bool { return eq(p.Email, email) })
}

func (m *memTable) GetByEmailForUpdate(ctx context.Context, email string) (*models.Principal, error) {
	m.mu.Lock()
	m.forUpdateHit = true
	m.mu.Unlock()
	return m.GetByEmail(ctx, email)
}

func (m *memTable) GetByProviderID(ctx context.Context, provider models.Provider, externalID string) (*models.Principal, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	return m.find(func(p *models.Principal) bool { return eq(p.ProviderID(provider), externalID) })
}

func (m *memTable) insert(p *models.Principal) (*models.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if p.Email != nil && eq(r.Email, *p.Email) {
			return nil, common.ErrorAlreadyExists
		}
		for _, prov := range []models.Provider{models.ProviderGoogle, models.ProviderFacebook} {
			if id := p.ProviderID(prov); id != nil && eq(r.ProviderID(prov), *id) {
				return nil, common.ErrorAlreadyExists
			}
		}
	}
	cp := *p
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	cp.Role = ""
	m.nextID++
	m.rows = append(m.rows, cp)
	out := cp
	return &out, nil
}

func (m *memTable) Create(ctx context.Context, p *models.Principal) (*models.Principal, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	return m.insert(p)
}

func (m *memTable) CreateWithProvider(ctx context.Context, p *models.Principal, provider models.Provider) (*models.Principal, error) {
	if err := m.enter(ctx); err != nil {
		return nil, err
	}
	if m.createHook != nil {
		m.createHook()
	}
	return m.insert(p)
}

func (m *memTable) LinkProvider(ctx context.Context, id int64, provider models.Provider, externalID string) error {
	if err := m.enter(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].SetProviderID(provider, externalID)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (m *memTable) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakeRepoManager struct {
	students *memTable
	teachers *memTable
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{students: newMemTable(), teachers: newMemTable()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *fakeRepoManager) Principals(db dbx.DBTX, rc models.RoleConfig) principals.Repository {
	if rc.Role == models.RoleTeacher {
		return m.teachers
	}
	return m.students
}

func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository { return nil }
