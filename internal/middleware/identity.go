package middleware

// identity.go holds the helpers that attach the resolved user to a request
// and read it back.  The user is stored both on the echo.Context and on the
// request's context.Context so code below the HTTP layer can reach it.

import (
    "context"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/backend-scaffold/internal/model"
)

// ContextKeyUser is the echo.Context key under which the user is stored.
const ContextKeyUser = "user"

type ctxKey int

const userCtxKey ctxKey = 1

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u *model.User) context.Context {
    return context.WithValue(ctx, userCtxKey, u)
}

// UserFromContext returns the user attached to ctx, if any.
func UserFromContext(ctx context.Context) (*model.User, bool) {
    u, ok := ctx.Value(userCtxKey).(*model.User)
    return u, ok && u != nil
}

// SetUser attaches u to the echo context and to the request context.
func SetUser(c echo.Context, u *model.User) {
    c.Set(ContextKeyUser, u)
    r := c.Request()
    c.SetRequest(r.WithContext(WithUser(r.Context(), u)))
}

// CurrentUser returns the user attached by VerifyAccessToken.
func CurrentUser(c echo.Context) (*model.User, bool) {
    u, ok := c.Get(ContextKeyUser).(*model.User)
    return u, ok && u != nil
}

// userID returns the id of the authenticated user or "guest".
func userID(c echo.Context) string {
    if u, ok := CurrentUser(c); ok && u.ID != "" {
        return u.ID
    }
    return "guest"
}
