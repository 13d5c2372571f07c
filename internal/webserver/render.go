package webserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/pace-platform/pace-admin/internal/api"
	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/storage"
	"github.com/pace-platform/pace-admin/internal/theme"
)

//go:embed templates
var templateFS embed.FS

const layoutTemplate = "templates/layout.html"

// renderer parses the layout once per page so each page can define its own
// "content" block
type renderer struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"percent": func(d decimal.Decimal) string { return d.StringFixed(1) + "%" },
	"score":   func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	},
}

func newRenderer() (*renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &renderer{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if file == layoutTemplate {
			continue
		}
		t, err := template.New("layout").Funcs(templateFuncs).ParseFS(templateFS, layoutTemplate, file)
		if err != nil {
			return nil, err
		}
		r.pages[strings.TrimSuffix(path.Base(file), ".html")] = t
	}
	return r, nil
}

func (r *renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("no template named %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

type navItem struct {
	Label  string
	Href   string
	Active bool
}

var sidebars = map[role.Role][]navItem{
	role.Admin: {
		{Label: "Dashboard", Href: "/admin/dashboard"},
		{Label: "Courses", Href: "/admin/courses"},
		{Label: "User Approval", Href: "/admin/user-approval"},
		{Label: "Reports", Href: "/admin/reports"},
		{Label: "Analytics", Href: "/admin/analytics"},
		{Label: "Customization", Href: "/admin/customization"},
	},
	role.SuperAdmin: {
		{Label: "Dashboard", Href: "/superadmin/dashboard"},
		{Label: "University", Href: "/superadmin/university"},
		{Label: "Accounts", Href: "/superadmin/accounts"},
		{Label: "Questions", Href: "/superadmin/questions"},
		{Label: "Records", Href: "/superadmin/records"},
		{Label: "Analytics", Href: "/superadmin/analytics"},
		{Label: "Customization", Href: "/superadmin/customization"},
	},
}

func sidebarFor(r role.Role, current string) []navItem {
	items := make([]navItem, 0, len(sidebars[r]))
	for _, item := range sidebars[r] {
		item.Active = item.Href == current
		items = append(items, item)
	}
	return items
}

type flash struct {
	Kind    string
	Message string
}

// pageView is handed to a page template as .Page's surroundings
type pageView struct {
	Title   string
	Flashes []flash
	Data    any
}

func (p *pageView) ok(msg string) {
	p.Flashes = append(p.Flashes, flash{Kind: "success", Message: msg})
}

func (p *pageView) fail(err error) {
	p.Flashes = append(p.Flashes, flash{Kind: "error", Message: errorMessage(err)})
}

// errorMessage is what the user sees for a failure
func errorMessage(err error) string {
	var validationErr *api.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Something went wrong"
}

type layoutView struct {
	Title      string
	Base       string
	Theme      theme.Document
	ThemeStyle template.CSS
	Themes     []theme.Name
	Path       string
	Username   string
	Role       string
	LoggedIn   bool
	Sidebar    []navItem
	CustomLogo string
	Flashes    []flash
	Data       any
}

func requestCanceled(c echo.Context) bool {
	return errors.Is(c.Request().Context().Err(), context.Canceled)
}

// render draws a page inside the layout. Nothing is written once the browser
// has gone away.
func (w *Webserver) render(c echo.Context, status int, name string, p *pageView) error {
	if requestCanceled(c) {
		c.Logger().Debugf("Not rendering %s, request was canceled", c.Request().URL.Path)
		return nil
	}

	v := currentVisit(c)
	sess := v.auth.Session()

	logo, _, err := storage.Lookup(c.Request().Context(), v.auth.Store(), storage.KeyCustomLogo)
	if err != nil {
		c.Logger().Warnf("Couldn't read custom logo: %v", err)
	}

	doc := v.workspace.Theme.Document()
	view := layoutView{
		Title:      p.Title,
		Base:       w.conf.BaseURL,
		Theme:      doc,
		ThemeStyle: template.CSS(doc.Style()),
		Themes:     theme.All(),
		Path:       c.Request().URL.Path,
		Username:   sess.Username(),
		Role:       sess.Role.String(),
		LoggedIn:   sess.Authenticated(),
		Sidebar:    sidebarFor(sess.Role, c.Request().URL.Path),
		CustomLogo: logo,
		Flashes:    p.Flashes,
		Data:       p.Data,
	}
	return c.Render(status, name, view)
}
