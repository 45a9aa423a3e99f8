package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/talkincode/topolive/internal/app"
	"go.uber.org/zap"
)

// AppContextKey is the echo context key holding the app.AppContext
const AppContextKey = "appctx"

var server *AdminServer

// AdminServer serves the inventory API, the topology endpoints and /metrics
type AdminServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

// Init creates the global admin server
func Init(appCtx app.AppContext) {
	server = NewAdminServer(appCtx)
}

// NewAdminServer builds the echo instance with the shared middleware chain.
// The prometheus middleware registers collectors globally, so only one
// server may be built per process.
func NewAdminServer(appCtx app.AppContext) *AdminServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(echoprometheus.NewMiddleware("topolive"))
	e.Use(accessLog())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(AppContextKey, appCtx)
			return next(c)
		}
	})

	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"subscribers": appCtx.Hub().Len(),
		})
	})

	return &AdminServer{
		root:   e,
		api:    e.Group("/api/v1"),
		appCtx: appCtx,
	}
}

// Root returns the echo instance, mainly for tests
func (s *AdminServer) Root() *echo.Echo {
	return s.root
}

// Start listens until Shutdown is called
func (s *AdminServer) Start() error {
	cfg := s.appCtx.Config().Web
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	zap.S().Infof("Prepare to start admin server %s", addr)
	err := s.root.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *AdminServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// Listen starts the global admin server
func Listen() error {
	return server.Start()
}

// Shutdown stops the global admin server
func Shutdown(ctx context.Context) error {
	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func ApiGET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.GET(path, h, m...)
}

func ApiPOST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.POST(path, h, m...)
}

func ApiPUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.PUT(path, h, m...)
}

func ApiDELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) {
	server.api.DELETE(path, h, m...)
}

func accessLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			zap.L().Debug("http request",
				zap.String("namespace", "web"),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", c.RealIP()),
			)
			return nil
		}
	}
}
