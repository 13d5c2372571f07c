package session

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// SessionData identifies a browser. The visitor ID names the browser's
// storage namespace and outlives any login made from it.
type SessionData struct {
	VisitorID string
}

type SessionHandler interface {
	Start(echo.Context, SessionData) error
	Destroy(echo.Context) error
	GetSessionData(echo.Context) (*SessionData, error)
	// Ensure returns the current browser's data, starting a new visitor when
	// the cookie is missing or invalid
	Ensure(echo.Context) (*SessionData, error)
}

var ErrInvalidSession = errors.New("session token was invalid")
