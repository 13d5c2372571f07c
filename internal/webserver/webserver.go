package webserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pace-platform/pace-admin/internal/accesscontrol"
	"github.com/pace-platform/pace-admin/internal/apiclient"
	"github.com/pace-platform/pace-admin/internal/config"
	"github.com/pace-platform/pace-admin/internal/metrics"
	"github.com/pace-platform/pace-admin/internal/role"
	"github.com/pace-platform/pace-admin/internal/session"
	"github.com/pace-platform/pace-admin/internal/storage"
	"github.com/pace-platform/pace-admin/internal/theme"
	"github.com/pace-platform/pace-admin/internal/workspace"
)

const (
	loginPath = "/"

	workspaceIdle  = 12 * time.Hour
	workspaceSweep = 10 * time.Minute
)

type Webserver struct {
	echo           *echo.Echo
	conf           *config.Config
	sessionHandler session.SessionHandler
	storage        storage.Provider
	workspaces     *workspace.Registry
	apiClient      *apiclient.Client
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	policy         accesscontrol.Policy
	templates      *renderer
}

func New() *Webserver {
	e := echo.New()
	e.HideBanner = true

	return &Webserver{
		echo: e,
	}
}

func (w *Webserver) Logger() echo.Logger {
	return w.echo.Logger
}

func parseLogLevel(level string) log.Lvl {
	switch level {
	case "debug":
		return log.DEBUG
	case "warn":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	}
	return log.INFO
}

// Setup wires every component against conf and store and registers the
// routes. It does not start listening.
func (w *Webserver) Setup(conf *config.Config, store storage.Provider) error {
	w.conf = conf
	w.storage = store
	w.echo.Logger.SetLevel(parseLogLevel(conf.Log.Level))

	w.registry = prometheus.NewRegistry()
	w.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	w.metrics = metrics.New(w.registry)

	w.sessionHandler = &session.JWTSessionHandler{
		Secret:       []byte(conf.Session.Cookie.Secret),
		CookieName:   conf.Session.Cookie.Name,
		CookieDomain: conf.Session.Cookie.Domain,
		CookieSecure: conf.Session.Cookie.Secure,
		Lifetime:     time.Duration(conf.Session.Lifetime) * time.Second,
	}

	defaultTheme, err := theme.Parse(conf.Theme.Default)
	if err != nil {
		return err
	}
	w.workspaces = workspace.NewRegistry(workspaceIdle, defaultTheme)

	opts := []apiclient.Option{
		apiclient.WithTimeout(time.Duration(conf.API.Timeout) * time.Second),
		apiclient.WithPublicPaths(conf.API.PublicPaths...),
		apiclient.WithCSRF(conf.API.CSRFCookie, conf.API.CSRFHeader),
		apiclient.WithMetrics(w.metrics),
	}
	for k, v := range conf.API.Headers {
		opts = append(opts, apiclient.WithHeader(k, v))
	}
	w.apiClient, err = apiclient.New(conf.API.BaseURL, opts...)
	if err != nil {
		return err
	}

	w.policy = accesscontrol.Policy{
		LoginPath:     loginPath,
		ForbiddenPath: conf.Guard.ForbiddenRedirect,
	}

	w.templates, err = newRenderer()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	w.echo.Renderer = w.templates

	w.echo.Use(middleware.Logger())
	w.echo.Use(middleware.Recover())

	w.registerRoutes()
	return nil
}

func (w *Webserver) registerRoutes() {
	e := w.echo

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(w.registry, promhttp.HandlerOpts{})))

	site := e.Group("", w.visitorMiddleware)

	site.GET(loginPath, w.loginPageHandler)
	site.POST(loginPath, w.loginSubmitHandler)
	site.POST("/logout", w.logoutRouteHandler)
	site.POST("/theme", w.themeRouteHandler)
	site.POST("/forget", w.forgetRouteHandler)

	admin := site.Group(role.Admin.Subtree(), w.guard(role.NewSet(role.Admin)))
	admin.GET("/dashboard", w.adminDashboardHandler)
	admin.GET("/courses", w.adminCoursesHandler)
	admin.POST("/courses", w.adminSaveCourseHandler)
	admin.POST("/courses/:id/delete", w.adminDeleteCourseHandler)
	admin.GET("/user-approval", w.userApprovalHandler)
	admin.POST("/user-approval/:id/:decision", w.userDecisionHandler)
	admin.GET("/reports", w.adminReportsHandler)
	admin.GET("/analytics", w.analyticsHandler)
	admin.GET("/customization", w.customizationHandler)
	admin.POST("/customization", w.saveCustomizationHandler)
	admin.POST("/customization/logo", w.uploadLogoHandler)

	super := site.Group(role.SuperAdmin.Subtree(), w.guard(role.NewSet(role.SuperAdmin)))
	super.GET("/dashboard", w.superDashboardHandler)
	super.GET("/university", w.universitiesHandler)
	super.POST("/university", w.saveUniversityHandler)
	super.POST("/university/select", w.selectUniversityHandler)
	super.POST("/university/:id/delete", w.deleteUniversityHandler)
	super.GET("/accounts", w.accountsHandler)
	super.POST("/accounts", w.createAccountHandler)
	super.POST("/accounts/:id/status", w.accountStatusHandler)
	super.POST("/accounts/:id/delete", w.deleteAccountHandler)
	super.GET("/questions", w.questionsHandler)
	super.POST("/questions", w.saveQuestionHandler)
	super.POST("/questions/:id/delete", w.deleteQuestionHandler)
	super.POST("/questions/careers", w.saveCareerHandler)
	super.POST("/questions/careers/:id/delete", w.deleteCareerHandler)
	super.GET("/records", w.superRecordsHandler)
	super.GET("/analytics", w.analyticsHandler)
	super.GET("/customization", w.customizationHandler)
	super.POST("/customization", w.saveCustomizationHandler)
	super.POST("/customization/logo", w.uploadLogoHandler)
}

func openStorage(ctx context.Context, conf *config.Config) (storage.Provider, error) {
	if conf.Storage.Method == "redis" {
		return storage.NewRedisProvider(ctx, storage.RedisOptions{
			Addr:      conf.Storage.Redis.Addr,
			Password:  conf.Storage.Redis.Password,
			DB:        conf.Storage.Redis.DB,
			KeyPrefix: conf.Storage.Redis.KeyPrefix,
			IdleTTL:   time.Duration(conf.Session.Lifetime) * time.Second,
		})
	}
	return storage.NewMemoryProvider(), nil
}

func (w *Webserver) Run(conf *config.Config) {
	logger := w.echo.Logger

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := openStorage(ctx, conf)
	if err != nil {
		logger.Fatalf("Couldn't open %s storage: %v", conf.Storage.Method, err)
		return
	}
	defer store.Close()

	if err := w.Setup(conf, store); err != nil {
		logger.Fatalf("Couldn't set up webserver: %v", err)
		return
	}

	go w.workspaces.Run(ctx, workspaceSweep)

	logger.Infof("Proxying PACE API at %s", conf.API.BaseURL)
	err = w.echo.Start(fmt.Sprintf(":%d", conf.ListenPort))
	logger.Fatal(err)
}
