package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/theme"
	"github.com/pace-platform/pace-admin/internal/utils"
)

type Config struct {
	ListenPort int    `toml:"port"`
	BaseURL    string `toml:"base_url"`

	API struct {
		// Where the PACE backend lives. PACE_API_BASE_URL overrides it
		BaseURL     string            `toml:"base_url"`
		Timeout     int               `toml:"timeout"`
		PublicPaths []string          `toml:"public_paths"`
		CSRFCookie  string            `toml:"csrf_cookie"`
		CSRFHeader  string            `toml:"csrf_header"`
		Headers     map[string]string `toml:"headers"`

		// Keep the backend's cookies per browser and send them back
		WithCredentials bool `toml:"with_credentials"`
	} `toml:"api"`

	Session struct {
		Method   string `toml:"type"`
		Lifetime int    `toml:"lifetime"`

		Cookie struct {
			Secret string `toml:"secret"`
			Domain string `toml:"domain"`
			Name   string `toml:"name"`
			Secure bool   `toml:"secure"`
		} `toml:"cookie"`
	} `toml:"session"`

	Storage struct {
		Method string `toml:"type"`

		Redis struct {
			Addr      string `toml:"addr"`
			Password  string `toml:"password"`
			DB        int    `toml:"db"`
			KeyPrefix string `toml:"key_prefix"`
		} `toml:"redis"`
	} `toml:"storage"`

	Auth struct {
		// Drop the session as soon as the backend answers 401
		LogoutOnUnauthorized bool `toml:"logout_on_unauthorized"`
		// Treat a stored token whose exp claim has passed as logged out
		CheckTokenExpiry bool `toml:"check_token_expiry"`
	} `toml:"auth"`

	Guard struct {
		// Where a logged in user lands when their role doesn't fit the route. Blank = the login page
		ForbiddenRedirect string `toml:"forbidden_redirect"`
	} `toml:"guard"`

	Theme struct {
		Default string `toml:"default"`
	} `toml:"theme"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// TOML marshaller doesn't override fields that weren't set in the TOML, so we can apply defaults here
func (c *Config) setDefaults() {
	c.ListenPort = 8080

	c.API.Timeout = 30
	c.API.PublicPaths = append([]string(nil), apiclient.DefaultPublicPaths...)
	c.API.CSRFCookie = apiclient.DefaultCSRFCookie
	c.API.CSRFHeader = apiclient.DefaultCSRFHeader
	c.API.WithCredentials = true

	c.Session.Method = "jwt-cookie"
	c.Session.Lifetime = 60 * 60 * 24 * 30 // 30 days

	c.Session.Cookie.Name = "_pace_visitor"
	c.Session.Cookie.Secure = true

	c.Storage.Method = "memory"
	c.Storage.Redis.Addr = "127.0.0.1:6379"
	c.Storage.Redis.KeyPrefix = "pace:storage:"

	c.Theme.Default = string(theme.Default)
	c.Log.Level = "info"
}

// Environment wins over the file
func (c *Config) applyEnv() error {
	if v := os.Getenv("PACE_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("PACE_LISTEN_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PACE_LISTEN_PORT: %w", err)
		}
		c.ListenPort = port
	}
	if v := os.Getenv("PACE_SESSION_SECRET"); v != "" {
		c.Session.Cookie.Secret = v
	}
	if v := os.Getenv("PACE_REDIS_ADDR"); v != "" {
		c.Storage.Redis.Addr = v
	}
	if v := os.Getenv("PACE_REDIS_PASSWORD"); v != "" {
		c.Storage.Redis.Password = v
	}
	return nil
}

func (c *Config) validate() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.API.BaseURL == "" {
		return errors.New("please supply api.base_url (or PACE_API_BASE_URL)")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url (%s) must be an absolute http(s) URL", c.API.BaseURL)
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %d", c.API.Timeout)
	}

	if c.Session.Method != "jwt-cookie" {
		return fmt.Errorf("invalid session type supplied (%s), only valid type is \"jwt-cookie\"", c.Session.Method)
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session.lifetime must be positive, got %d", c.Session.Lifetime)
	}

	if len(c.Session.Cookie.Secret) == 0 {
		log.Printf("No cookie secret was provided, randomly generating one...")
		buff := make([]byte, 16)
		if _, err := rand.Read(buff); err != nil {
			return fmt.Errorf("failed to generate random cookie secret: %w", err)
		}

		c.Session.Cookie.Secret = base64.RawStdEncoding.EncodeToString(buff)
		log.Printf("Note: because your cookie secret was randomly generated, if pace-admin restarts, or you are trying to load balance across multiple instances, browsers will be treated as new visitors.")
	} else if len(c.Session.Cookie.Secret) < 16 {
		return errors.New("your session.cookie.secret was less than 16 characters. Please supply a long, random secret")
	}

	switch c.Storage.Method {
	case "memory":
	case "redis":
		if c.Storage.Redis.Addr == "" {
			return errors.New("storage type is redis but storage.redis.addr is empty")
		}
	default:
		return fmt.Errorf("invalid storage type supplied (%s), valid types are \"memory\" and \"redis\"", c.Storage.Method)
	}

	if _, err := theme.Parse(c.Theme.Default); err != nil {
		return fmt.Errorf("theme.default: %w", err)
	}

	if c.Guard.ForbiddenRedirect != "" && !utils.IsLocalPath(c.Guard.ForbiddenRedirect) {
		return fmt.Errorf("guard.forbidden_redirect (%s) must be a local path", c.Guard.ForbiddenRedirect)
	}

	return nil
}

func Load(data []byte) (*Config, error) {
	conf := new(Config)
	conf.setDefaults()

	if err := toml.Unmarshal(data, conf); err != nil {
		return nil, err
	}
	if err := conf.applyEnv(); err != nil {
		return nil, err
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadFromTomlFileAndValidate reads path; a missing file is fine as long as
// the environment supplies what's required
func LoadFromTomlFileAndValidate(filepath string) (*Config, error) {
	file, err := os.ReadFile(filepath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return Load(file)
}
