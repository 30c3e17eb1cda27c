package utils // package utils provides helper functions for token creation and password hashing

import (
    "errors" // sentinel errors for token verification
    "fmt"    // error wrapping
    "time"   // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

    "github.com/iliyamo/backend-scaffold/internal/model" // identity record embedded into tokens
)

// Verification failures.  Callers branch on ErrTokenExpired to start a
// refresh flow; everything else is ErrTokenInvalid.
var (
    ErrTokenExpired = errors.New("token expired")
    ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload of both token classes.  Refresh tokens only carry
// UserID; Username and Email are left empty and omitted from the JSON.
type Claims struct {
    UserID   string `json:"_id"`
    Username string `json:"username,omitempty"`
    Email    string `json:"email,omitempty"`
    jwt.RegisteredClaims
}

// IssuedToken is a signed token string together with its expiry.
type IssuedToken struct {
    Token     string    `json:"token"`
    ExpiresAt time.Time `json:"expiresAt"`
}

// TokenConfig holds the two independent signing contexts.  Access and
// refresh tokens never share a secret.
type TokenConfig struct {
    AccessSecret  string
    AccessTTL     time.Duration
    RefreshSecret string
    RefreshTTL    time.Duration
}

// TokenService issues and verifies access and refresh tokens.  It holds only
// read-only configuration and is safe for concurrent use.
type TokenService struct {
    cfg TokenConfig
    now func() time.Time
}

// TokenOption customizes a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces the wall clock used for iat, exp and validation.
func WithClock(now func() time.Time) TokenOption {
    return func(s *TokenService) { s.now = now }
}

// NewTokenService builds a TokenService from cfg.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) *TokenService {
    s := &TokenService{cfg: cfg, now: time.Now}
    for _, o := range opts {
        o(s)
    }
    return s
}

// IssueAccessToken signs a short-lived token carrying the user's id,
// username and email.
func (s *TokenService) IssueAccessToken(u *model.User) (IssuedToken, error) {
    return s.sign(Claims{UserID: u.ID, Username: u.Username, Email: u.Email}, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

// IssueRefreshToken signs a long-lived token carrying only the user's id.
func (s *TokenService) IssueRefreshToken(u *model.User) (IssuedToken, error) {
    return s.sign(Claims{UserID: u.ID}, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *TokenService) sign(claims Claims, secret string, ttl time.Duration) (IssuedToken, error) {
    if claims.UserID == "" {
        return IssuedToken{}, errors.New("sign token: empty user id")
    }
    now := s.now().UTC()
    exp := now.Add(ttl)
    claims.IssuedAt = jwt.NewNumericDate(now)
    claims.ExpiresAt = jwt.NewNumericDate(exp)

    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return IssuedToken{}, fmt.Errorf("sign token: %w", err)
    }
    return IssuedToken{Token: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// VerifyAccess verifies raw with the access-token secret.
func (s *TokenService) VerifyAccess(raw string) (*Claims, error) {
    return s.Verify(raw, s.cfg.AccessSecret)
}

// VerifyRefresh verifies raw with the refresh-token secret.
func (s *TokenService) VerifyRefresh(raw string) (*Claims, error) {
    return s.Verify(raw, s.cfg.RefreshSecret)
}

// Verify checks the signature and expiry of raw against secret.  Only HMAC
// signed tokens with an exp claim are accepted.  The returned error wraps
// ErrTokenExpired or ErrTokenInvalid.
func (s *TokenService) Verify(raw, secret string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        // Reject tokens using any other algorithm.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
        }
        return []byte(secret), nil
    },
        jwt.WithTimeFunc(s.now),
        jwt.WithExpirationRequired(),
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
    )
    if err != nil {
        if errors.Is(err, jwt.ErrTokenExpired) {
            return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
        }
        return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
    }
    if !tok.Valid || claims.UserID == "" {
        return nil, ErrTokenInvalid
    }
    return claims, nil
}
