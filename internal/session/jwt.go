package session

import (
	"fmt"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const visitorIssuer = "pace-admin"

var jwtSigningMethod = jwt.SigningMethodHS256

// JWTSessionHandler keeps the visitor ID in an HMAC signed cookie. The
// visitor ID travels as the token subject.
type JWTSessionHandler struct {
	Secret       []byte
	CookieName   string
	CookieDomain string
	CookieSecure bool
	Lifetime     time.Duration
}

func (s *JWTSessionHandler) cookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.CookieName,
		Value:    value,
		Domain:   s.CookieDomain,
		Path:     "/",
		Secure:   s.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	}
}

func (s *JWTSessionHandler) sign(data SessionData, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwtSigningMethod, jwt.RegisteredClaims{
		Issuer:    visitorIssuer,
		Subject:   data.VisitorID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.Lifetime)),
	})
	return token.SignedString(s.Secret)
}

func (s *JWTSessionHandler) Start(c echo.Context, data SessionData) error {
	now := time.Now()

	signed, err := s.sign(data, now)
	if err != nil {
		return fmt.Errorf("couldn't sign visitor cookie: %w", err)
	}
	c.SetCookie(s.cookie(signed, now.Add(s.Lifetime)))

	// Later reads within this same request see the new visitor
	req := c.Request()
	cookies := req.Cookies()
	req.Header.Del("Cookie")
	for _, existing := range cookies {
		if existing.Name != s.CookieName {
			req.AddCookie(existing)
		}
	}
	req.AddCookie(&http.Cookie{Name: s.CookieName, Value: signed})

	return nil
}

func (s *JWTSessionHandler) Destroy(c echo.Context) error {
	expired := s.cookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	c.SetCookie(expired)
	return nil
}

func (s *JWTSessionHandler) GetSessionData(c echo.Context) (*SessionData, error) {
	visitorCookie, err := c.Cookie(s.CookieName)
	if err != nil || visitorCookie.Value == "" {
		return nil, ErrInvalidSession
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}))

	claims := new(jwt.RegisteredClaims)
	token, err := parser.ParseWithClaims(visitorCookie.Value, claims, func(*jwt.Token) (interface{}, error) {
		return s.Secret, nil
	})
	if err != nil || !token.Valid || !claims.VerifyIssuer(visitorIssuer, true) || claims.Subject == "" {
		return nil, ErrInvalidSession
	}

	return &SessionData{VisitorID: claims.Subject}, nil
}

func (s *JWTSessionHandler) Ensure(c echo.Context) (*SessionData, error) {
	if data, err := s.GetSessionData(c); err == nil {
		return data, nil
	}

	data := &SessionData{VisitorID: uuid.NewString()}
	if err := s.Start(c, *data); err != nil {
		return nil, err
	}
	return data, nil
}
