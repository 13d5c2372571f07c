package webserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pace-platform/pace-admin/internal/api"
	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/workspace"
)

const visitContextKey = "pace.visit"

// visit is everything a handler needs about the browser it is serving
type visit struct {
	visitorID string
	workspace *workspace.Workspace
	auth      *auth.Manager
	api       *api.Client
}

func currentVisit(c echo.Context) *visit {
	v, _ := c.Get(visitContextKey).(*visit)
	return v
}

// visitorMiddleware identifies the browser, hydrates its auth state from
// storage and binds an API client to it
func (w *Webserver) visitorMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		logger := c.Logger()
		ctx := c.Request().Context()

		data, err := w.sessionHandler.Ensure(c)
		if err != nil {
			logger.Errorf("Couldn't start visitor session: %v", err)
			return c.String(http.StatusInternalServerError, "Something went wrong")
		}

		ws := w.workspaces.Get(data.VisitorID)

		manager := auth.NewManager(w.storage.Scope(data.VisitorID), auth.Options{
			CheckTokenExpiry: w.conf.Auth.CheckTokenExpiry,
		})
		if err := manager.Hydrate(ctx); err != nil {
			logger.Errorf("Couldn't load session for visitor %s: %v", data.VisitorID, err)
			return c.String(http.StatusInternalServerError, "Couldn't load your session")
		}

		opts := []apiclient.Option{apiclient.WithTokenSource(manager)}
		if w.conf.API.WithCredentials {
			opts = append(opts, apiclient.WithCookieJar(ws.Jar))
		}
		if w.conf.Auth.LogoutOnUnauthorized {
			opts = append(opts, apiclient.WithUnauthorizedHandler(func(ctx context.Context) {
				logger.Infof("Backend rejected the token of visitor %s, logging out", data.VisitorID)
				if err := manager.Logout(context.WithoutCancel(ctx)); err != nil {
					logger.Warnf("Couldn't clear session of visitor %s: %v", data.VisitorID, err)
				}
			}))
		}

		c.Set(visitContextKey, &visit{
			visitorID: data.VisitorID,
			workspace: ws,
			auth:      manager,
			api:       api.New(w.apiClient.With(opts...), logger),
		})

		return next(c)
	}
}

// guard re-evaluates access on every request into a role's subtree
func (w *Webserver) guard(allowed role.Set) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := currentVisit(c)

			decision := w.policy.Evaluate(v.auth.Session(), allowed, c.Request().URL.RequestURI())
			w.metrics.ObserveGuardDecision(allowed.String(), decision.Result.String())

			if !decision.Allowed() {
				return c.Redirect(http.StatusFound, w.conf.BaseURL+decision.Location)
			}
			return next(c)
		}
	}
}
