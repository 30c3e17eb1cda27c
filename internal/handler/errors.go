package handler

import (
    "errors"
    "log/slog"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/backend-scaffold/internal/apperr"
)

// ErrorHandler is installed as echo's HTTPErrorHandler.  It is the only
// place where errors returned by middleware and handlers become responses.
// Internal causes are logged and never rendered.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
    return func(err error, c echo.Context) {
        if c.Response().Committed {
            return
        }
        ctx := c.Request().Context()
        resp := Response{StatusCode: http.StatusInternalServerError, Message: apperr.MsgInternal, Data: nil}

        var he *echo.HTTPError
        if e, ok := apperr.As(err); ok {
            resp.StatusCode, resp.Message, resp.Errors = e.Status, e.Message, e.Details
            if e.Kind == apperr.KindInternal {
                log.ErrorContext(ctx, "request failed", "method", c.Request().Method, "path", c.Path(), "err", e.Err)
            } else {
                log.DebugContext(ctx, "request rejected", "status", e.Status, "err", err)
            }
        } else if errors.As(err, &he) {
            resp.StatusCode = he.Code
            if msg, ok := he.Message.(string); ok && he.Code < 500 {
                resp.Message = msg
            } else if he.Code < 500 {
                resp.Message = http.StatusText(he.Code)
            }
            if he.Internal != nil || he.Code >= 500 {
                log.ErrorContext(ctx, "request failed", "method", c.Request().Method, "path", c.Path(), "err", err)
            }
        } else {
            log.ErrorContext(ctx, "unhandled error", "method", c.Request().Method, "path", c.Path(), "err", err)
        }

        if c.Request().Method == http.MethodHead {
            err = c.NoContent(resp.StatusCode)
        } else {
            err = c.JSON(resp.StatusCode, resp)
        }
        if err != nil {
            log.ErrorContext(ctx, "write error response", "err", err)
        }
    }
}
