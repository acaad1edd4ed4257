// Package strategies names the authentication strategies the gateway
// exposes: one local strategy per role and one OAuth strategy per
// configured provider and role.
package strategies

import (
	"sort"

	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/oauth"
)

const local = "local"

// LocalName is e.g. "local-teacher".
func LocalName(role models.Role) string {
	return local + "-" + string(role)
}

// OAuthName is e.g. "google-student".
func OAuthName(provider models.Provider, role models.Role) string {
	return string(provider) + "-" + string(role)
}

// OAuth binds a provider to the role its callbacks resolve into.
type OAuth struct {
	Name     string
	Role     models.RoleConfig
	Provider oauth.Provider
}

type Registry struct {
	oauth map[string]*OAuth
}

// NewRegistry registers every provider for both roles.
func NewRegistry(providers ...oauth.Provider) *Registry {
	r := &Registry{oauth: make(map[string]*OAuth)}
	for _, p := range providers {
		for _, rc := range models.Roles() {
			name := OAuthName(p.Name(), rc.Role)
			r.oauth[name] = &OAuth{Name: name, Role: rc, Provider: p}
		}
	}
	return r
}

// OAuth looks up the strategy for provider and role. Unconfigured
// providers are not found.
func (r *Registry) OAuth(provider models.Provider, role models.Role) (*OAuth, bool) {
	s, ok := r.oauth[OAuthName(provider, role)]
	return s, ok
}

// Enabled reports whether provider has been registered.
func (r *Registry) Enabled(provider models.Provider) bool {
	_, ok := r.OAuth(provider, models.RoleStudent)
	return ok
}

// Names lists all strategies, local ones included, in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.oauth)+2)
	for _, rc := range models.Roles() {
		names = append(names, LocalName(rc.Role))
	}
	for name := range r.oauth {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
