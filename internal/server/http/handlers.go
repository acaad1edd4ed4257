package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/logingate/internal/common"
	"github.com/dmitrijs2005/logingate/internal/server/auth"
	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/session"
	"github.com/dmitrijs2005/logingate/internal/server/strategies"
	"github.com/go-chi/chi/v5"
)

const (
	oauthStateKey = "oauth_state"

	signupSuccessMessage = "Account created, please log in"
	missingFieldsMessage = "All fields are required"
	passwordLongMessage  = "Password must be at most 72 bytes"
	signupFailedPrefix   = "Signup failed: "
)

func sessionFrom(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// commit persists the request's session. It must run before anything is
// written to w.
func (s *Server) commit(w http.ResponseWriter, r *http.Request) error {
	sess := sessionFrom(r)
	if sess == nil {
		return nil
	}
	return s.sessions.Save(r.Context(), w, sess)
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.logger.Error(r.Context(), msg, "error", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (s *Server) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if err := s.commit(w, r); err != nil {
		s.internalError(w, r, "session save failed", err)
		return
	}
	http.Redirect(w, r, to, http.StatusFound)
}

func (s *Server) flashAndRedirect(w http.ResponseWriter, r *http.Request, key, msg, to string) {
	if sess := sessionFrom(r); sess != nil {
		sess.AddFlash(key, msg)
	}
	s.redirect(w, r, to)
}

// logIn binds p to the session under a fresh session id.
func (s *Server) logIn(w http.ResponseWriter, r *http.Request, p *models.Principal, to string) {
	sess := sessionFrom(r)
	if err := s.sessions.Renew(sess); err != nil {
		s.internalError(w, r, "session renew failed", err)
		return
	}
	sess.SetToken(s.identity.Serialize(p))
	s.redirect(w, r, to)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", indexPage{
		Principal: principalFrom(r.Context()),
		Roles:     models.Roles(),
	})
}

func (s *Server) handleLoginCard(rc models.RoleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r)
		page := loginPage{
			Role:      rc,
			Errors:    sess.Flashes(rc.ErrorFlash),
			Successes: sess.Flashes(rc.SuccessFlash),
		}
		for _, p := range []models.Provider{models.ProviderGoogle, models.ProviderFacebook} {
			if s.strategies.Enabled(p) {
				page.Providers = append(page.Providers, providerLink{Title: p.Title(), Path: rc.StartPath(p)})
			}
		}
		s.render(w, r, "login.html", page)
	}
}

func (s *Server) handleSignup(rc models.RoleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, missingFieldsMessage, http.StatusBadRequest)
			return
		}

		_, err := s.identity.SignupLocal(r.Context(), rc, r.PostForm.Get("name"), r.PostForm.Get("email"), r.PostForm.Get("password"))
		switch {
		case errors.Is(err, common.ErrMissingSignupField):
			http.Error(w, missingFieldsMessage, http.StatusBadRequest)
		case errors.Is(err, common.ErrPasswordTooLong):
			http.Error(w, passwordLongMessage, http.StatusBadRequest)
		case err != nil:
			s.logger.Warn(r.Context(), "signup failed", "role", rc.Role, "error", err)
			http.Error(w, signupFailedPrefix+err.Error(), http.StatusInternalServerError)
		default:
			s.flashAndRedirect(w, r, rc.SuccessFlash, signupSuccessMessage, rc.LoginPath)
		}
	}
}

func (s *Server) handleLogin(rc models.RoleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strategy := strategies.LocalName(rc.Role)
		if err := r.ParseForm(); err != nil {
			s.metrics.LoginAttempt(strategy, "failure")
			s.flashAndRedirect(w, r, rc.ErrorFlash, common.InvalidCredentialsMessage, rc.LoginPath)
			return
		}

		p, err := s.identity.AuthenticateLocal(r.Context(), rc, r.PostForm.Get("email"), r.PostForm.Get("password"))
		switch {
		case errors.Is(err, common.ErrNoSuchPrincipal), errors.Is(err, common.ErrBadCredentials):
			s.metrics.LoginAttempt(strategy, "failure")
			s.logger.Info(r.Context(), "login rejected", "strategy", strategy)
			s.flashAndRedirect(w, r, rc.ErrorFlash, common.InvalidCredentialsMessage, rc.LoginPath)
		case err != nil:
			s.metrics.LoginAttempt(strategy, "error")
			s.internalError(w, r, "login failed", err)
		default:
			s.metrics.LoginAttempt(strategy, "success")
			s.logger.Info(r.Context(), "login succeeded", "strategy", strategy, "principal_id", p.ID)
			s.logIn(w, r, p, rc.DashboardPath)
		}
	}
}

func (s *Server) oauthStrategy(r *http.Request) (*strategies.OAuth, bool) {
	provider, err := models.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		return nil, false
	}
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		return nil, false
	}
	return s.strategies.OAuth(provider, role)
}

func (s *Server) callbackURL(st *strategies.OAuth) string {
	return s.baseURL + st.Role.CallbackPath(st.Provider.Name())
}

func (s *Server) handleOAuthStart(w http.ResponseWriter, r *http.Request) {
	st, ok := s.oauthStrategy(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	state, err := auth.GenerateState(st.Name, s.stateSecret, s.stateValidity)
	if err != nil {
		s.internalError(w, r, "oauth state generation failed", err)
		return
	}
	sessionFrom(r).Set(oauthStateKey, state)

	s.redirect(w, r, st.Provider.AuthCodeURL(state, s.callbackURL(st)))
}

func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	st, ok := s.oauthStrategy(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	rc := st.Role
	failed := st.Provider.Name().Title() + " login failed"
	ctx := r.Context()

	fail := func(reason string, err error) {
		s.metrics.LoginAttempt(st.Name, "failure")
		s.logger.Warn(ctx, "oauth login failed", "strategy", st.Name, "reason", reason, "error", err)
		s.flashAndRedirect(w, r, rc.ErrorFlash, failed, rc.LoginPath)
	}

	q := r.URL.Query()
	expected, _ := sessionFrom(r).Pop(oauthStateKey)
	state := q.Get("state")
	if state == "" || state != expected {
		fail("state mismatch", nil)
		return
	}
	if err := auth.VerifyState(state, st.Name, s.stateSecret); err != nil {
		fail("state invalid", err)
		return
	}
	if e := q.Get("error"); e != "" {
		fail("provider error", errors.New(e))
		return
	}

	a, err := st.Provider.Exchange(ctx, q.Get("code"), s.callbackURL(st))
	if err != nil {
		fail("exchange", err)
		return
	}

	p, err := s.identity.ResolveOAuth(ctx, rc, a)
	if err != nil {
		fail("resolve", err)
		return
	}

	s.metrics.LoginAttempt(st.Name, "success")
	s.logger.Info(ctx, "login succeeded", "strategy", st.Name, "principal_id", p.ID)
	s.logIn(w, r, p, rc.DashboardPath)
}

func (s *Server) handleDashboard(rc models.RoleConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, "dashboard.html", dashboardPage{
			Role:      rc,
			Principal: principalFrom(r.Context()),
		})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context(), w, sessionFrom(r)); err != nil {
		s.internalError(w, r, "session destroy failed", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
