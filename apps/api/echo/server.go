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

	"github.com/hallpass-app/hallpass/core"
	"github.com/hallpass-app/hallpass/core/classroom"
	"github.com/hallpass-app/hallpass/core/messaging"
	"github.com/hallpass-app/hallpass/core/report"
	"github.com/hallpass-app/hallpass/core/story"
	"github.com/hallpass-app/hallpass/core/user"
	"github.com/hallpass-app/hallpass/realtime"
)

type (
	ServerDeps struct {
		Conf         *core.Config
		Logger       core.Logger
		Validate     *validator.Validate
		Translator   ut.Translator
		UserSvc      *user.Service
		ClassroomSvc *classroom.Service
		MessagingSvc *messaging.Service
		StorySvc     *story.Service
		ReportSvc    *report.Service
		Hub          *realtime.Hub
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo

		serverErrors chan error
		shutdown     chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:         deps,
		app:          echo.New(),
		serverErrors: make(chan error, 1),
		shutdown:     make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.Recover())
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.Server.ReadTimeout = conf.Server.ReadTimeout
	s.app.Server.WriteTimeout = conf.Server.WriteTimeout

	s.app.GET("/", home)

	jwt := middleware.JWTWithConfig(appJWTConfig(conf))

	// the /api/... paths are fixed by the mobile and web clients
	s.app.POST("/api/auth/signout", signout(conf))
	s.app.POST("/api/admin/seed", seedHandler(s.deps.ReportSvc), jwt, adminMiddleware(user.AdminLevelSuper))

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwt, s.deps)
	registerClassroomAPI(v1, jwt, s.deps)
	registerMessagingAPI(v1, jwt, s.deps)
	registerStoryAPI(v1, jwt, s.deps)
	registerReportAPI(v1, jwt, s.deps)
	registerStreamAPI(v1, s.deps)
}

func (s *Server) Start() {
	s.serverErrors <- s.app.Start(s.deps.Conf.Server.Addr)
}

// Errors reports fatal server errors.
func (s *Server) Errors() <-chan error { return s.serverErrors }

// ShutdownSignal delivers OS termination signals and internal shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown requests a graceful shutdown without an OS signal.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Hall Pass API!")
}
