package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog" // request log sink
	"strconv"  // media body limit in plain bytes
	"strings"  // CORS origin list

	"github.com/labstack/echo/v4"                   // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // Echo built-in middleware

	"github.com/iliyamo/backend-scaffold/internal/config"     // CORS origins
	"github.com/iliyamo/backend-scaffold/internal/handler"    // handlers that implement each endpoint
	"github.com/iliyamo/backend-scaffold/internal/middleware" // token verification and role enforcement
	"github.com/iliyamo/backend-scaffold/internal/model"      // role names
)

// multipartSlack covers boundaries and part headers around the file itself.
const multipartSlack = 64 << 10

// Use installs the middleware every route shares.  Body limits are not
// global: JSON routes and the upload route each get their own.
func Use(e *echo.Echo, cfg config.Config, limiter echo.MiddlewareFunc, log *slog.Logger) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "ip", v.RemoteIP}
			if v.Error != nil {
				attrs = append(attrs, "err", v.Error)
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	if limiter != nil {
		e.Use(limiter)
	}
	if cfg.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     strings.Split(cfg.CORSOrigin, ","),
			AllowCredentials: true,
		}))
	}
	e.Use(echomw.Secure())
}

// RegisterRoutes registers routes that do not require authentication.
// /healthz is liveness only; /readyz also pings the identity store.
func RegisterRoutes(e *echo.Echo, store handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if store != nil {
		e.GET("/readyz", handler.Ready(store))
	}
}

// RegisterAuth registers the user routes under /api/v1/users and the admin
// lookup under /api/v1/admin.  Register, login and refresh are public; every
// other route runs VerifyAccessToken first and, where a role is required,
// RequireRole after it.  Both groups cap bodies at a.Cfg.BodyLimit.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, tokens middleware.AccessVerifier, users middleware.UserFinder) {
	var limit []echo.MiddlewareFunc
	if a.Cfg.BodyLimit != "" {
		limit = append(limit, echomw.BodyLimit(a.Cfg.BodyLimit))
	}
	verify := middleware.VerifyAccessToken(tokens, users)
	// role sets are built once here, never per request
	anyRole := middleware.RequireRole(middleware.NewRoleSet(model.RoleUser, model.RoleAdmin))
	adminOnly := middleware.RequireRole(middleware.NewRoleSet(model.RoleAdmin))

	g := e.Group("/api/v1/users", limit...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh-token", a.Refresh)

	g.POST("/logout", a.Logout, verify)
	g.GET("/me", a.Me, verify, anyRole)
	g.POST("/change-password", a.ChangePassword, verify)

	admin := e.Group("/api/v1/admin", append(limit, verify, adminOnly)...)
	admin.GET("/users/:id", a.GetUser)
}

// RegisterMedia exposes the upload endpoint.  Only authenticated users may
// upload; the body may be as large as the local store accepts.
func RegisterMedia(e *echo.Echo, m *handler.MediaHandler, tokens middleware.AccessVerifier, users middleware.UserFinder) {
	mw := []echo.MiddlewareFunc{middleware.VerifyAccessToken(tokens, users)}
	if m.Local != nil && m.Local.MaxSize > 0 {
		mw = append(mw, echomw.BodyLimit(strconv.FormatInt(m.Local.MaxSize+multipartSlack, 10)))
	}
	e.POST("/api/v1/media", m.Upload, mw...)
}
