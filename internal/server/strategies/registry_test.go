package strategies

import (
	"testing"

	"github.com/dmitrijs2005/logingate/internal/server/models"
	"github.com/dmitrijs2005/logingate/internal/server/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames_AllProviders(t *testing.T) {
	r := NewRegistry(oauth.NewGoogle("a", "b"), oauth.NewFacebook("c", "d"))

	assert.Equal(t, []string{
		"facebook-student", "facebook-teacher",
		"google-student", "google-teacher",
		"local-student", "local-teacher",
	}, r.Names())
}

func TestOAuth_Lookup(t *testing.T) {
	r := NewRegistry(oauth.NewGoogle("a", "b"))

	s, ok := r.OAuth(models.ProviderGoogle, models.RoleTeacher)
	require.True(t, ok)
	assert.Equal(t, "google-teacher", s.Name)
	assert.Equal(t, models.Teachers.Table, s.Role.Table)
	assert.Equal(t, models.ProviderGoogle, s.Provider.Name())

	_, ok = r.OAuth(models.ProviderFacebook, models.RoleStudent)
	assert.False(t, ok)
	assert.True(t, r.Enabled(models.ProviderGoogle))
	assert.False(t, r.Enabled(models.ProviderFacebook))
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "local-student", LocalName(models.RoleStudent))
	assert.Equal(t, "local-teacher", LocalName(models.RoleTeacher))
}
