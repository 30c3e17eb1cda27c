package middleware // middleware provides shared request processing for handlers

import (
    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/backend-scaffold/internal/apperr"
    "github.com/iliyamo/backend-scaffold/internal/model"
)

// RoleSet is the fixed set of roles allowed on a route.  Build it once at
// route registration and never modify it afterwards.
type RoleSet map[string]struct{}

// NewRoleSet returns a RoleSet containing roles.
func NewRoleSet(roles ...string) RoleSet {
    s := make(RoleSet, len(roles))
    for _, r := range roles {
        s[r] = struct{}{}
    }
    return s
}

// Has reports whether role is in the set.  The empty role is never allowed.
func (s RoleSet) Has(role string) bool {
    if role == "" {
        return false
    }
    _, ok := s[role]
    return ok
}

// Authorize checks u against allowed.  A nil user, an empty role or a role
// outside the set is Forbidden.
func Authorize(u *model.User, allowed RoleSet) error {
    if u == nil || !allowed.Has(u.Role) {
        return apperr.Forbidden()
    }
    return nil
}

// RequireRole returns a middleware that enforces that the authenticated
// user has one of the allowed roles.  It must be mounted after
// VerifyAccessToken; it reads the attached user and never resolves one
// itself, so a route without resolution always gets 403.
func RequireRole(allowed RoleSet) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, _ := CurrentUser(c)
            if err := Authorize(u, allowed); err != nil {
                return err
            }
            return next(c)
        }
    }
}
