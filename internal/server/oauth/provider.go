// Package oauth wraps the authorization-code flow for the supported
// identity providers and turns their profile responses into assertions.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/logingate/internal/server/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	googleProfileURL   = "https://www.googleapis.com/oauth2/v3/userinfo"
	facebookProfileURL = "https://graph.facebook.com/me?fields=id,name,email"

	maxProfileBytes = 1 << 20
)

// Provider is one external identity provider.
type Provider interface {
	Name() models.Provider
	// AuthCodeURL is where the browser is sent to consent.
	AuthCodeURL(state, redirectURL string) string
	// Exchange trades the callback code for a token and fetches the profile.
	Exchange(ctx context.Context, code, redirectURL string) (*models.Assertion, error)
}

type profileParser func(raw []byte) (*models.Assertion, error)

// OAuth2Provider implements Provider on top of golang.org/x/oauth2.
type OAuth2Provider struct {
	name       models.Provider
	config     oauth2.Config
	profileURL string
	client     *http.Client
	parse      profileParser
}

type Option func(*OAuth2Provider)

// WithEndpoint overrides the provider's authorization and token URLs.
func WithEndpoint(e oauth2.Endpoint) Option {
	return func(p *OAuth2Provider) { p.config.Endpoint = e }
}

func WithProfileURL(u string) Option {
	return func(p *OAuth2Provider) { p.profileURL = u }
}

// WithHTTPClient sets the client used for the token exchange and the
// profile fetch.
func WithHTTPClient(c *http.Client) Option {
	return func(p *OAuth2Provider) { p.client = c }
}

func NewGoogle(clientID, clientSecret string, opts ...Option) *OAuth2Provider {
	return newProvider(models.ProviderGoogle, oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "profile", "email"},
	}, googleProfileURL, parseGoogleProfile, opts)
}

func NewFacebook(appID, appSecret string, opts ...Option) *OAuth2Provider {
	return newProvider(models.ProviderFacebook, oauth2.Config{
		ClientID:     appID,
		ClientSecret: appSecret,
		Endpoint:     endpoints.Facebook,
		Scopes:       []string{"email", "public_profile"},
	}, facebookProfileURL, parseFacebookProfile, opts)
}

func newProvider(name models.Provider, cfg oauth2.Config, profileURL string, parse profileParser, opts []Option) *OAuth2Provider {
	p := &OAuth2Provider{
		name:       name,
		config:     cfg,
		profileURL: profileURL,
		client:     http.DefaultClient,
		parse:      parse,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OAuth2Provider) Name() models.Provider { return p.name }

func (p *OAuth2Provider) withRedirect(redirectURL string) *oauth2.Config {
	cfg := p.config
	cfg.RedirectURL = redirectURL
	return &cfg
}

func (p *OAuth2Provider) AuthCodeURL(state, redirectURL string) string {
	return p.withRedirect(redirectURL).AuthCodeURL(state)
}

func (p *OAuth2Provider) Exchange(ctx context.Context, code, redirectURL string) (*models.Assertion, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	cfg := p.withRedirect(redirectURL)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s profile fetch: %w", p.name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileBytes))
	if err != nil {
		return nil, fmt.Errorf("%s profile read: %w", p.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s profile fetch: unexpected status %d", p.name, resp.StatusCode)
	}

	a, err := p.parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s profile decode: %w", p.name, err)
	}
	a.Provider = p.name
	return a, nil
}

func optionalEmail(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}

type googleProfile struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
}

// Unverified Google emails are dropped so they never drive teacher linking.
func parseGoogleProfile(raw []byte) (*models.Assertion, error) {
	var gp googleProfile
	if err := json.Unmarshal(raw, &gp); err != nil {
		return nil, err
	}
	if gp.Sub == "" {
		return nil, fmt.Errorf("profile has no subject")
	}

	a := &models.Assertion{ExternalID: gp.Sub, Name: gp.Name}
	if gp.EmailVerified == nil || *gp.EmailVerified {
		a.Email = optionalEmail(gp.Email)
	}
	return a, nil
}

type facebookProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func parseFacebookProfile(raw []byte) (*models.Assertion, error) {
	var fp facebookProfile
	if err := json.Unmarshal(raw, &fp); err != nil {
		return nil, err
	}
	if fp.ID == "" {
		return nil, fmt.Errorf("profile has no id")
	}
	return &models.Assertion{ExternalID: fp.ID, Name: fp.Name, Email: optionalEmail(fp.Email)}, nil
}
