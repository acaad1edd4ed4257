// Package http is the browser-facing surface of the gateway: login cards,
// signup and login forms, OAuth redirects and the role dashboards.
package http

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/dmitrijs2005/logingate/internal/logging"
	"github.com/dmitrijs2005/logingate/internal/server/auth"
	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/metrics"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/session"
	"github.com/dmitrijs2005/logingate/internal/server/strategies"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Identity is the slice of services.IdentityService the handlers need.
type Identity interface {
	SignupLocal(ctx context.Context, rc models.RoleConfig, name, email, password string) (*models.Principal, error)
	AuthenticateLocal(ctx context.Context, rc models.RoleConfig, email, password string) (*models.Principal, error)
	ResolveOAuth(ctx context.Context, rc models.RoleConfig, a *models.Assertion) (*models.Principal, error)
	Serialize(p *models.Principal) models.SessionToken
	Deserialize(ctx context.Context, tok models.SessionToken) (*models.Principal, error)
}

type Server struct {
	identity   Identity
	sessions   *session.Manager
	strategies *strategies.Registry
	metrics    *metrics.Metrics
	logger     logging.Logger
	tracer     trace.Tracer
	pages      *template.Template
	limiter    *ipLimiter
	trustProxy bool

	baseURL       string
	stateSecret   []byte
	stateValidity time.Duration
}

func NewServer(cfg *config.Config, identity Identity, sessions *session.Manager, reg *strategies.Registry, mx *metrics.Metrics, logger logging.Logger) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{
		identity:      identity,
		sessions:      sessions,
		strategies:    reg,
		metrics:       mx,
		logger:        logger.With("module", "http"),
		tracer:        otel.Tracer("github.com/dmitrijs2005/logingate/internal/server/http"),
		pages:         pages,
		limiter:       newIPLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst),
		trustProxy:    cfg.TrustProxy,
		baseURL:       cfg.BaseURL,
		stateSecret:   []byte(cfg.SessionSecret),
		stateValidity: auth.StateTTL,
	}, nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.tracing)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.loadSession)

		r.Get("/", s.handleIndex)
		r.Get("/logout", s.handleLogout)

		for _, rc := range models.Roles() {
			r.Get(rc.LoginPath, s.handleLoginCard(rc))
			r.With(s.rateLimit).Post(rc.SignupPath, s.handleSignup(rc))
			r.With(s.rateLimit).Post(rc.LoginPostPath, s.handleLogin(rc))
			r.With(s.requireRole(rc)).Get(rc.DashboardPath, s.handleDashboard(rc))
		}

		r.Get("/auth/{provider}/{role}", s.handleOAuthStart)
		r.Get("/auth/{provider}/{role}/callback", s.handleOAuthCallback)
	})

	return r
}

// StartLimiterJanitor evicts idle per-IP limiters until ctx is done.
func (s *Server) StartLimiterJanitor(ctx context.Context, every time.Duration) {
	s.limiter.run(ctx, every)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
