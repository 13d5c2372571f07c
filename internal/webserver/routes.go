package webserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pace-platform/pace-admin/internal/accesscontrol"
	"github.com/pace-platform/pace-admin/internal/api"
	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/auth"
	"github.com/pace-platform/pace-admin/internal/utils"
)

type loginView struct {
	Email    string
	Redirect string
}

func (w *Webserver) loginPageHandler(c echo.Context) error {
	v := currentVisit(c)
	redir := c.QueryParam(accesscontrol.RedirectParam)

	if sess := v.auth.Session(); sess.Authenticated() {
		return c.Redirect(http.StatusFound, w.conf.BaseURL+accesscontrol.PostLoginLocation(sess.Role, redir))
	}

	return w.render(c, http.StatusOK, "login", &pageView{
		Title: "Sign in",
		Data:  loginView{Redirect: redir},
	})
}

// loginStatus maps a failed login onto the status of the re-rendered form
func loginStatus(err error) int {
	var validationErr *api.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		if apiErr.Status == http.StatusOK {
			return http.StatusForbidden
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (w *Webserver) loginSubmitHandler(c echo.Context) error {
	logger := c.Logger()
	v := currentVisit(c)

	creds := auth.Credentials{
		Email:    strings.TrimSpace(c.FormValue("email")),
		Password: c.FormValue("password"),
	}
	redir := c.FormValue(accesscontrol.RedirectParam)

	sess, err := v.auth.Login(c.Request().Context(), v.api, creds)
	if err != nil {
		if requestCanceled(c) {
			w.metrics.ObserveLogin("canceled")
			return nil
		}

		w.metrics.ObserveLogin("failure")

		var apiErr *apiclient.Error
		var validationErr *api.ValidationError
		if !errors.As(err, &apiErr) && !errors.As(err, &validationErr) {
			logger.Errorf("Couldn't store session for %s: %v", creds.Email, err)
		}

		p := &pageView{
			Title: "Sign in",
			Data:  loginView{Email: creds.Email, Redirect: redir},
		}
		p.fail(err)
		return w.render(c, loginStatus(err), "login", p)
	}

	w.metrics.ObserveLogin("success")
	logger.Infof("%s signed in as %s", sess.Username(), sess.Role)

	return c.Redirect(http.StatusSeeOther, w.conf.BaseURL+accesscontrol.PostLoginLocation(sess.Role, redir))
}

// The visitor cookie stays: the theme belongs to the browser, not the login
func (w *Webserver) logoutRouteHandler(c echo.Context) error {
	v := currentVisit(c)

	if err := v.auth.Logout(c.Request().Context()); err != nil {
		c.Logger().Warnf("Couldn't fully clear session of visitor %s: %v", v.visitorID, err)
	}

	return c.Redirect(http.StatusSeeOther, w.conf.BaseURL+loginPath)
}

// forgetRouteHandler signs out and drops everything kept for this browser,
// theme included, then retires its visitor cookie
func (w *Webserver) forgetRouteHandler(c echo.Context) error {
	logger := c.Logger()
	v := currentVisit(c)
	ctx := c.Request().Context()

	if err := v.auth.Logout(ctx); err != nil {
		logger.Warnf("Couldn't fully clear session of visitor %s: %v", v.visitorID, err)
	}
	if err := v.auth.Store().Clear(ctx); err != nil {
		logger.Warnf("Couldn't clear storage of visitor %s: %v", v.visitorID, err)
	}
	w.workspaces.Forget(v.visitorID)

	if err := w.sessionHandler.Destroy(c); err != nil {
		logger.Errorf("Couldn't drop visitor cookie: %v", err)
		return c.String(http.StatusInternalServerError, "Something went wrong")
	}

	logger.Infof("Forgot visitor %s", v.visitorID)
	return c.Redirect(http.StatusSeeOther, w.conf.BaseURL+loginPath)
}

func (w *Webserver) themeRouteHandler(c echo.Context) error {
	v := currentVisit(c)

	if err := v.workspace.Theme.SetThemeName(c.FormValue("theme")); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	back := c.FormValue("return")
	if !utils.IsLocalPath(back) {
		back = loginPath
	}
	return c.Redirect(http.StatusSeeOther, w.conf.BaseURL+back)
}
