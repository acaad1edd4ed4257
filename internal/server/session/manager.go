package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/logging"
)

const idBytes = 32

// Manager ties sessions to the request cookie.
type Manager struct {
	store      Store
	ttl        time.Duration
	secure     bool
	cookieName string
	logger     logging.Logger
	now        func() time.Time
}

func NewManager(store Store, ttl time.Duration, secure bool, logger logging.Logger) *Manager {
	return &Manager{
		store:      store,
		ttl:        ttl,
		secure:     secure,
		cookieName: common.SessionCookieName,
		logger:     logger.With("module", "session"),
		now:        time.Now,
	}
}

// Load returns the session named by the request cookie. A missing cookie,
// an unknown id or an undecodable payload yields a fresh, empty session.
// Only store failures are returned as errors.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return m.fresh()
	}

	raw, err := m.store.Load(r.Context(), c.Value)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return m.fresh()
		}
		return nil, fmt.Errorf("error loading session: %w", err)
	}

	data, err := decode(raw)
	if err != nil {
		m.logger.Warn(r.Context(), "discarding undecodable session", "error", err)
		return m.fresh()
	}
	return &Session{id: c.Value, data: data, stored: true}, nil
}

func (m *Manager) fresh() (*Session, error) {
	id, err := common.MakeRandHexString(idBytes)
	if err != nil {
		return nil, err
	}
	return &Session{id: id}, nil
}

// Save persists s and refreshes the cookie. A stored session is written on
// every request, so it expires ttl after the last request, not the last
// change. A fresh session is only written once modified. Save must run
// before the response headers are written.
func (m *Manager) Save(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s.stale != "" {
		if err := m.store.Delete(ctx, s.stale); err != nil {
			return fmt.Errorf("error deleting session: %w", err)
		}
		s.stale = ""
	}
	if !s.dirty && !s.stored {
		return nil
	}

	raw, err := s.encode()
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, s.id, raw, m.now().Add(m.ttl)); err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}
	s.dirty = false
	s.stored = true

	http.SetCookie(w, m.cookie(s.id, int(m.ttl.Seconds())))
	return nil
}

// Renew moves s to a new id, keeping its data. Called on privilege change.
func (m *Manager) Renew(s *Session) error {
	id, err := common.MakeRandHexString(idBytes)
	if err != nil {
		return err
	}
	if s.stale == "" {
		s.stale = s.id
	}
	s.id = id
	s.dirty = true
	return nil
}

// Destroy deletes s from the store and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if err := m.store.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	s.data = Data{}
	s.dirty = false
	s.stored = false
	http.SetCookie(w, m.cookie("", -1))
	return nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
