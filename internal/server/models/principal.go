// Package models holds the domain types shared by repositories, services
// and transports.
package models

import "time"

// Principal is a row from either principal table. Role is not a column: it
// is attached by whoever resolved the row.
type Principal struct {
	ID           int64
	Name         string
	Email        *string
	PasswordHash *string
	GoogleID     *string
	FacebookID   *string
	CreatedAt    time.Time
	Role         Role
}

// EmailOrEmpty is for templates and logs.
func (p *Principal) EmailOrEmpty() string {
	if p == nil || p.Email == nil {
		return ""
	}
	return *p.Email
}

// ProviderID returns the stored external id for provider, if any.
func (p *Principal) ProviderID(provider Provider) *string {
	switch provider {
	case ProviderGoogle:
		return p.GoogleID
	case ProviderFacebook:
		return p.FacebookID
	default:
		return nil
	}
}

// SetProviderID stores id in the column matching provider.
func (p *Principal) SetProviderID(provider Provider, id string) {
	switch provider {
	case ProviderGoogle:
		p.GoogleID = &id
	case ProviderFacebook:
		p.FacebookID = &id
	}
}

// SessionToken is everything a session remembers about who is logged in.
type SessionToken struct {
	ID   int64 `json:"id"`
	Role Role  `json:"role"`
}

// Assertion is what an OAuth provider tells us about a user after the
// authorization-code exchange.
type Assertion struct {
	Provider   Provider
	ExternalID string
	Name       string
	Email      *string
}
