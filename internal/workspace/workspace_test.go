package workspace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pace-platform/pace-admin/internal/theme"
)

func TestGetIsStablePerVisitor(t *testing.T) {
	r := NewRegistry(time.Hour, "")

	a := r.Get("a")
	require.NotNil(t, a.Theme)
	require.NotNil(t, a.Jar)
	assert.Equal(t, theme.Light, a.Theme.Name())

	require.NoError(t, a.Theme.SetThemeName("dark"))
	assert.Same(t, a, r.Get("a"))
	assert.Equal(t, theme.Dark, r.Get("a").Theme.Name())

	b := r.Get("b")
	assert.NotSame(t, a, b)
	assert.Equal(t, theme.Light, b.Theme.Name())
}

func TestDefaultTheme(t *testing.T) {
	r := NewRegistry(time.Hour, theme.Brownish)
	assert.Equal(t, theme.Brownish, r.Get("a").Theme.Name())
}

func TestSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRegistry(time.Hour, "")
	r.now = func() time.Time { return now }

	r.Get("old")
	now = now.Add(2 * time.Hour)
	r.Get("fresh")

	assert.Equal(t, 1, r.Sweep())
	assert.Equal(t, 1, r.Len())

	// A forgotten visitor starts over on the default theme
	assert.Equal(t, theme.Light, r.Get("old").Theme.Name())
}

func TestSweepDisabled(t *testing.T) {
	r := NewRegistry(0, "")
	r.Get("a")
	assert.Equal(t, 0, r.Sweep())
	assert.Equal(t, 1, r.Len())
}

func TestForget(t *testing.T) {
	r := NewRegistry(time.Hour, "")
	require.NoError(t, r.Get("a").Theme.SetThemeName("dark"))
	r.Get("b")

	r.Forget("a")
	r.Forget("missing")
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, theme.Light, r.Get("a").Theme.Name())
}
