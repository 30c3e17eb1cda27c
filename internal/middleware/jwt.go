package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "context" // context for the identity-store lookup
    "errors"  // errors.Is for store sentinel values
    "strings" // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/backend-scaffold/internal/apperr"     // error taxonomy returned to the central handler
    "github.com/iliyamo/backend-scaffold/internal/model"      // identity record
    "github.com/iliyamo/backend-scaffold/internal/repository" // ErrNotFound sentinel
    "github.com/iliyamo/backend-scaffold/internal/utils"      // token verification
)

// Token transport names shared by issuance (login/refresh) and verification.
const (
    AccessTokenCookie  = "accessToken"
    RefreshTokenCookie = "refreshToken"
    bearerPrefix       = "Bearer "
)

// AccessVerifier verifies access tokens.  *utils.TokenService implements it.
type AccessVerifier interface {
    VerifyAccess(raw string) (*utils.Claims, error)
}

// UserFinder resolves an identity by id.  Every repository.UserStore
// implements it.
type UserFinder interface {
    FindByID(ctx context.Context, id string) (*model.User, error)
}

// ExtractToken returns the access token from the accessToken cookie, falling
// back to an Authorization header that starts with exactly "Bearer ".  Any
// other header value is treated as no token.
func ExtractToken(c echo.Context) string {
    if ck, err := c.Cookie(AccessTokenCookie); err == nil && ck.Value != "" {
        return ck.Value
    }
    auth := c.Request().Header.Get(echo.HeaderAuthorization)
    if raw, ok := strings.CutPrefix(auth, bearerPrefix); ok {
        return raw
    }
    return ""
}

// VerifyAccessToken returns an Echo middleware that authenticates the
// request.  It extracts the access token, verifies it, loads the owning user
// and attaches it with SetUser.  Every failure is returned as an
// *apperr.Error for the central error handler; the token error stays
// wrapped so errors.Is(err, utils.ErrTokenExpired) tells expiry apart.
func VerifyAccessToken(tokens AccessVerifier, users UserFinder) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := ExtractToken(c)
            if raw == "" {
                return apperr.Unauthorized(apperr.MsgTokenMissing, nil)
            }

            claims, err := tokens.VerifyAccess(raw)
            if err != nil {
                return apperr.Unauthorized(apperr.MsgTokenInvalid, err)
            }

            // a valid signature does not mean the account still exists
            u, err := users.FindByID(c.Request().Context(), claims.UserID)
            if err != nil {
                if errors.Is(err, repository.ErrNotFound) {
                    return apperr.Unauthorized(apperr.MsgUserNotFound, err)
                }
                return apperr.Internal(err)
            }

            SetUser(c, u)
            return next(c)
        }
    }
}
