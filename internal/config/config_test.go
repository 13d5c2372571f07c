package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
port = 9000
base_url = "https://admin.pace.example/console/"

[api]
base_url = "https://api.pace.example/"
timeout = 10
headers = { "X-Client" = "pace-admin" }

[session]
lifetime = 3600

[session.cookie]
secret = "0123456789abcdef0123"
secure = false

[storage]
type = "redis"

[storage.redis]
addr = "redis:6379"

[auth]
logout_on_unauthorized = true

[guard]
forbidden_redirect = "/forbidden"

[theme]
default = "dark"
`

func TestLoad(t *testing.T) {
	conf, err := Load([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, 9000, conf.ListenPort)
	assert.Equal(t, "https://admin.pace.example/console", conf.BaseURL)
	assert.Equal(t, "https://api.pace.example", conf.API.BaseURL)
	assert.Equal(t, 10, conf.API.Timeout)
	assert.Equal(t, "pace-admin", conf.API.Headers["X-Client"])
	assert.Equal(t, 3600, conf.Session.Lifetime)
	assert.False(t, conf.Session.Cookie.Secure)
	assert.Equal(t, "redis", conf.Storage.Method)
	assert.Equal(t, "redis:6379", conf.Storage.Redis.Addr)
	assert.True(t, conf.Auth.LogoutOnUnauthorized)
	assert.False(t, conf.Auth.CheckTokenExpiry)
	assert.Equal(t, "/forbidden", conf.Guard.ForbiddenRedirect)
	assert.Equal(t, "dark", conf.Theme.Default)

	// untouched defaults
	assert.Equal(t, "_pace_visitor", conf.Session.Cookie.Name)
	assert.Equal(t, "XSRF-TOKEN", conf.API.CSRFCookie)
	assert.Equal(t, "X-XSRF-TOKEN", conf.API.CSRFHeader)
	assert.Equal(t, []string{"/api/auth/*", "/api/public/*"}, conf.API.PublicPaths)
	assert.True(t, conf.API.WithCredentials)
	assert.Equal(t, "pace:storage:", conf.Storage.Redis.KeyPrefix)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PACE_API_BASE_URL", "http://localhost:5000")
	t.Setenv("PACE_LISTEN_PORT", "18080")
	t.Setenv("PACE_SESSION_SECRET", "env-secret-env-secret")
	t.Setenv("PACE_REDIS_ADDR", "10.0.0.1:6379")

	conf, err := Load([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", conf.API.BaseURL)
	assert.Equal(t, 18080, conf.ListenPort)
	assert.Equal(t, "env-secret-env-secret", conf.Session.Cookie.Secret)
	assert.Equal(t, "10.0.0.1:6379", conf.Storage.Redis.Addr)
}

func TestBadPortEnv(t *testing.T) {
	t.Setenv("PACE_LISTEN_PORT", "eighty")
	_, err := Load([]byte(sample))
	assert.Error(t, err)
}

func TestGeneratesSecret(t *testing.T) {
	conf, err := Load([]byte(`
[api]
base_url = "https://api.pace.example"
`))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(conf.Session.Cookie.Secret), 16)
	assert.Equal(t, "memory", conf.Storage.Method)
	assert.Equal(t, "light", conf.Theme.Default)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"missing api url", ``},
		{"relative api url", "[api]\nbase_url = \"/api\""},
		{"short secret", "[api]\nbase_url = \"https://a.example\"\n[session.cookie]\nsecret = \"short\""},
		{"unknown session type", "[api]\nbase_url = \"https://a.example\"\n[session]\ntype = \"server\""},
		{"unknown storage", "[api]\nbase_url = \"https://a.example\"\n[storage]\ntype = \"sqlite\""},
		{"unknown theme", "[api]\nbase_url = \"https://a.example\"\n[theme]\ndefault = \"neon\""},
		{"remote forbidden redirect", "[api]\nbase_url = \"https://a.example\"\n[guard]\nforbidden_redirect = \"https://evil.example\""},
		{"protocol relative forbidden redirect", "[api]\nbase_url = \"https://a.example\"\n[guard]\nforbidden_redirect = \"//evil.example\""},
		{"zero timeout", "[api]\nbase_url = \"https://a.example\"\ntimeout = 0"},
		{"bad toml", "port = "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.toml))
			assert.Error(t, err)
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	conf, err := LoadFromTomlFileAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, conf.ListenPort)

	t.Setenv("PACE_API_BASE_URL", "https://api.pace.example")
	conf, err = LoadFromTomlFileAndValidate(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, conf.ListenPort)
}
