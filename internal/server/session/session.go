package session

import (
	"context"
	"encoding/json"

	"github.com/dmitrijs2005/logingate/internal/server/models"
)

// Data is the persisted part of a session.
type Data struct {
	Token   *models.SessionToken `json:"token,omitempty"`
	Flashes map[string][]string  `json:"flashes,omitempty"`
	Values  map[string]string    `json:"values,omitempty"`
}

// Session is one browser's server-side state for the current request.
// It is not safe for concurrent use.
type Session struct {
	id    string
	data  Data
	dirty bool
	// stored is set once the session exists in the store.
	stored bool
	// stale holds an id that must be deleted from the store on the next save.
	stale string
}

func (s *Session) ID() string { return s.id }

// Token returns the logged-in principal reference, if any.
func (s *Session) Token() (models.SessionToken, bool) {
	if s.data.Token == nil {
		return models.SessionToken{}, false
	}
	return *s.data.Token, true
}

func (s *Session) SetToken(tok models.SessionToken) {
	s.data.Token = &tok
	s.dirty = true
}

func (s *Session) ClearToken() {
	if s.data.Token != nil {
		s.data.Token = nil
		s.dirty = true
	}
}

// AddFlash queues msg under key until the next Flashes call for that key.
func (s *Session) AddFlash(key, msg string) {
	if s.data.Flashes == nil {
		s.data.Flashes = make(map[string][]string)
	}
	s.data.Flashes[key] = append(s.data.Flashes[key], msg)
	s.dirty = true
}

// Flashes pops all messages queued under key.
func (s *Session) Flashes(key string) []string {
	msgs, ok := s.data.Flashes[key]
	if !ok {
		return nil
	}
	delete(s.data.Flashes, key)
	s.dirty = true
	return msgs
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.data.Values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	if s.data.Values == nil {
		s.data.Values = make(map[string]string)
	}
	s.data.Values[key] = value
	s.dirty = true
}

// Pop returns and removes key.
func (s *Session) Pop(key string) (string, bool) {
	v, ok := s.data.Values[key]
	if ok {
		delete(s.data.Values, key)
		s.dirty = true
	}
	return v, ok
}

func (s *Session) encode() ([]byte, error) {
	return json.Marshal(s.data)
}

func decode(raw []byte) (Data, error) {
	var d Data
	err := json.Unmarshal(raw, &d)
	return d, err
}

type ctxKey struct{}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session attached by the session middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}
