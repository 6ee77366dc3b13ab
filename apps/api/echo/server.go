package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/darasalearn/darasa/core"
	"github.com/darasalearn/darasa/core/card"
	"github.com/darasalearn/darasa/core/course"
	"github.com/darasalearn/darasa/core/user"
	"github.com/darasalearn/darasa/core/violation"
)

type (
	// ServerDeps carries everything the API server needs.
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DisableReqLogs bool

		UserSvc      *user.Service
		Resolver     *user.AdminResolver
		CourseSvc    *course.Service
		CardSvc      card.CardService
		ViolationSvc *violation.Service
		BillingSvc   core.BillingService

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	configureAuth(deps.Conf)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	admin := adminResolveMiddleware(s.deps.UserSvc, s.deps.Resolver, s.deps.ViolationSvc)

	registerUserAPI(v1, jwt, admin, s.deps.UserSvc, s.deps.Validate, s.deps.Translator)
	registerAdminAccessAPI(v1, jwt, s.deps.UserSvc, s.deps.Resolver, s.deps.ViolationSvc, s.deps.Validate)
	registerCourseAPI(v1, jwt, admin, s.deps)
	registerCardAPI(v1, jwt, admin, s.deps.CardSvc, s.deps.Validate)
	registerViolationAPI(v1, jwt, admin, s.deps.ViolationSvc)
	registerBillingAPI(v1, jwt, s.deps.UserSvc, s.deps.BillingSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.ServerAddress()); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error { return s.errs }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
