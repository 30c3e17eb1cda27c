package handler

import (
    "context"  // provides context with cancellation for store calls
    "errors"   // errors.Is for store and token sentinels
    "log/slog" // structured logging
    "net/http" // HTTP status codes and cookies
    "net/mail" // email syntax check
    "strings"  // string manipulation utilities
    "time"     // timeouts for store calls

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/iliyamo/backend-scaffold/internal/apperr"     // error taxonomy
    "github.com/iliyamo/backend-scaffold/internal/config"     // app configuration
    "github.com/iliyamo/backend-scaffold/internal/middleware" // cookie names and current user
    "github.com/iliyamo/backend-scaffold/internal/model"      // identity record
    "github.com/iliyamo/backend-scaffold/internal/queue"      // audit event payloads
    "github.com/iliyamo/backend-scaffold/internal/repository" // identity store
    "github.com/iliyamo/backend-scaffold/internal/service"    // audit publisher
    "github.com/iliyamo/backend-scaffold/internal/utils"      // hashing, token issuing
)

const storeTimeout = 5 * time.Second

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Cfg    config.Config
    Users  repository.UserStore
    Tokens *utils.TokenService
    Events service.EventPublisher
    Log    *slog.Logger
}

func NewAuthHandler(cfg config.Config, users repository.UserStore, tokens *utils.TokenService, events service.EventPublisher, log *slog.Logger) *AuthHandler {
    if events == nil {
        events = service.NopPublisher{}
    }
    return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Events: events, Log: log}
}

// ----- DTOs -----

type registerReq struct {
    Username string `json:"username"`
    Email    string `json:"email"`
    FullName string `json:"fullName"`
    Password string `json:"password"`
}
type loginReq struct {
    Username string `json:"username"`
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}
type changePasswordReq struct {
    OldPassword string `json:"oldPassword"`
    NewPassword string `json:"newPassword"`
}
type authResp struct {
    User    *model.User       `json:"user"`
    Access  utils.IssuedToken `json:"accessToken"`
    Refresh utils.IssuedToken `json:"refreshToken"`
}

// Register: create the user.  Tokens are issued by Login.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := c.Bind(&req); err != nil {
        return apperr.BadRequest("invalid body")
    }
    var missing []string
    for field, v := range map[string]string{"username": req.Username, "email": req.Email, "fullName": req.FullName, "password": req.Password} {
        if strings.TrimSpace(v) == "" {
            missing = append(missing, field+" is required")
        }
    }
    if len(missing) > 0 {
        return apperr.BadRequest("all fields are required", missing...)
    }
    if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
        return apperr.BadRequest("invalid email")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    u := &model.User{Username: req.Username, Email: req.Email, FullName: req.FullName, Role: model.RoleUser}
    u.SetPassword(req.Password)
    if err := h.Users.Create(ctx, u); err != nil {
        if errors.Is(err, repository.ErrDuplicate) {
            return apperr.Conflict("user with email or username already exists")
        }
        return apperr.Internal(err)
    }

    h.emit(c, queue.EventUserRegistered, u, "")
    return respond(c, http.StatusCreated, "user registered successfully", u)
}

// Login: verify credentials, issue a token pair and set both cookies.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := c.Bind(&req); err != nil {
        return apperr.BadRequest("invalid body")
    }
    if strings.TrimSpace(req.Username) == "" && strings.TrimSpace(req.Email) == "" {
        return apperr.BadRequest("username or email is required")
    }
    if req.Password == "" {
        return apperr.BadRequest("password is required")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    u, err := h.Users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return apperr.Unauthorized("invalid credentials", nil)
        }
        return apperr.Internal(err)
    }
    if !utils.VerifyPassword(u.PasswordHash, req.Password) {
        return apperr.Unauthorized("invalid credentials", nil)
    }

    resp, err := h.issuePair(ctx, c, u)
    if err != nil {
        return err
    }
    h.emit(c, queue.EventUserLoggedIn, u, "")
    return respond(c, http.StatusOK, "user logged in successfully", resp)
}

// Refresh: exchange a refresh token (cookie or body) for a new pair.
// Verification is stateless; the stored copy is overwritten, not compared.
func (h *AuthHandler) Refresh(c echo.Context) error {
    raw := ""
    if ck, err := c.Cookie(middleware.RefreshTokenCookie); err == nil {
        raw = ck.Value
    }
    if raw == "" {
        var req refreshReq
        if err := c.Bind(&req); err != nil {
            return apperr.BadRequest("invalid body")
        }
        raw = strings.TrimSpace(req.RefreshToken)
    }
    if raw == "" {
        return apperr.Unauthorized("refresh token missing", nil)
    }

    claims, err := h.Tokens.VerifyRefresh(raw)
    if err != nil {
        if errors.Is(err, utils.ErrTokenExpired) {
            return apperr.Unauthorized("refresh token expired", err)
        }
        return apperr.Unauthorized("invalid refresh token", err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    u, err := h.Users.FindByID(ctx, claims.UserID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return apperr.Unauthorized(apperr.MsgUserNotFound, err)
        }
        return apperr.Internal(err)
    }

    resp, err := h.issuePair(ctx, c, u)
    if err != nil {
        return err
    }
    return respond(c, http.StatusOK, "access token refreshed", resp)
}

// Logout: clear the stored refresh token and both cookies (protected).
func (h *AuthHandler) Logout(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return apperr.Unauthorized(apperr.MsgTokenMissing, nil)
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    if err := h.Users.SetRefreshToken(ctx, u.ID, ""); err != nil && !errors.Is(err, repository.ErrNotFound) {
        return apperr.Internal(err)
    }
    h.clearCookie(c, middleware.AccessTokenCookie)
    h.clearCookie(c, middleware.RefreshTokenCookie)
    h.emit(c, queue.EventUserLoggedOut, u, "")
    return respond(c, http.StatusOK, "user logged out", nil)
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return apperr.Unauthorized(apperr.MsgTokenMissing, nil)
    }
    return respond(c, http.StatusOK, "current user", u)
}

// ChangePassword re-hashes the password after checking the old one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
    u, ok := middleware.CurrentUser(c)
    if !ok {
        return apperr.Unauthorized(apperr.MsgTokenMissing, nil)
    }
    var req changePasswordReq
    if err := c.Bind(&req); err != nil {
        return apperr.BadRequest("invalid body")
    }
    if req.OldPassword == "" || req.NewPassword == "" {
        return apperr.BadRequest("oldPassword and newPassword are required")
    }
    if !utils.VerifyPassword(u.PasswordHash, req.OldPassword) {
        return apperr.BadRequest("invalid old password")
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    // work on a copy; the attached record stays as loaded
    updated := *u
    updated.SetPassword(req.NewPassword)
    if err := h.Users.Save(ctx, &updated); err != nil {
        return apperr.Internal(err)
    }
    h.emit(c, queue.EventPasswordChange, u, "")
    return respond(c, http.StatusOK, "password changed successfully", nil)
}

// GetUser returns any user by id (admin only).
func (h *AuthHandler) GetUser(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), storeTimeout)
    defer cancel()

    u, err := h.Users.FindByID(ctx, c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return apperr.NotFound("user not found")
        }
        return apperr.Internal(err)
    }
    return respond(c, http.StatusOK, "user fetched", u)
}

// issuePair signs both tokens, mirrors the refresh token into the record
// and sets the cookies.
func (h *AuthHandler) issuePair(ctx context.Context, c echo.Context, u *model.User) (authResp, error) {
    access, err := h.Tokens.IssueAccessToken(u)
    if err != nil {
        return authResp{}, apperr.Internal(err)
    }
    refresh, err := h.Tokens.IssueRefreshToken(u)
    if err != nil {
        return authResp{}, apperr.Internal(err)
    }
    if err := h.Users.SetRefreshToken(ctx, u.ID, refresh.Token); err != nil {
        return authResp{}, apperr.Internal(err)
    }
    u.RefreshToken = refresh.Token

    h.setCookie(c, middleware.AccessTokenCookie, access)
    h.setCookie(c, middleware.RefreshTokenCookie, refresh)
    return authResp{User: u, Access: access, Refresh: refresh}, nil
}

func (h *AuthHandler) setCookie(c echo.Context, name string, tok utils.IssuedToken) {
    c.SetCookie(&http.Cookie{
        Name:     name,
        Value:    tok.Token,
        Path:     "/",
        Expires:  tok.ExpiresAt,
        HttpOnly: true,
        Secure:   h.Cfg.SecureCookies,
        SameSite: http.SameSiteLaxMode,
    })
}

func (h *AuthHandler) clearCookie(c echo.Context, name string) {
    c.SetCookie(&http.Cookie{
        Name:     name,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        Expires:  time.Unix(0, 0),
        HttpOnly: true,
        Secure:   h.Cfg.SecureCookies,
        SameSite: http.SameSiteLaxMode,
    })
}

// emit publishes an audit event; failures are logged by the publisher and
// never affect the response.
func (h *AuthHandler) emit(c echo.Context, typ string, u *model.User, detail string) {
    emit(c, h.Events, typ, u, detail)
}

func emit(c echo.Context, events service.EventPublisher, typ string, u *model.User, detail string) {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
    defer cancel()
    _ = events.Publish(ctx, queue.AuthEvent{
        Type:     typ,
        UserID:   u.ID,
        Username: u.Username,
        IP:       c.RealIP(),
        Detail:   detail,
        At:       time.Now().UTC(),
    })
}
