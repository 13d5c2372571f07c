package theme

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/storage"
)

func TestDefaultsToLight(t *testing.T) {
	c := NewContext()
	assert.Equal(t, Light, c.Name())

	doc := c.Document()
	assert.Equal(t, "data-theme", doc.Attribute)
	assert.Equal(t, "light", doc.Value)
	assert.Equal(t, "--primary-color: #1976d2;", doc.Style())
}

func TestSetThemeName(t *testing.T) {
	c := NewContext()

	require.NoError(t, c.SetThemeName("Purplelish"))
	assert.Equal(t, Purplelish, c.Name())
	assert.Equal(t, "#6a1b9a", c.Document().Color)

	err := c.SetThemeName("neon")
	assert.ErrorIs(t, err, ErrUnknownTheme)
	assert.Equal(t, Purplelish, c.Name(), "a rejected name changes nothing")
}

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 5)
	assert.Equal(t, Light, all[0])
	assert.ElementsMatch(t, []Name{Light, Dark, Redish, Purplelish, Brownish}, all)
}

func TestThemeSurvivesLogout(t *testing.T) {
	ctx := context.Background()
	themes := NewContext()
	m := auth.NewManager(storage.NewMemoryStore(), auth.Options{})

	require.NoError(t, m.SetAuth(ctx, "abc", role.Admin, nil))
	require.NoError(t, themes.SetThemeName("dark"))
	require.NoError(t, m.Logout(ctx))

	assert.Equal(t, auth.Unauthenticated, m.State())
	assert.Equal(t, Dark, themes.Name())
}
