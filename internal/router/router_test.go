package router

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/backend-scaffold/internal/config"
	"github.com/iliyamo/backend-scaffold/internal/handler"
	"github.com/iliyamo/backend-scaffold/internal/model"
	"github.com/iliyamo/backend-scaffold/internal/repository"
	"github.com/iliyamo/backend-scaffold/internal/storage"
	"github.com/iliyamo/backend-scaffold/internal/utils"
)

var alice = model.User{ID: "1", Username: "alice", Email: "alice@example.com", Role: model.RoleUser}

// oneUserStore knows only alice and refuses writes.
type oneUserStore struct{}

func (oneUserStore) FindByID(_ context.Context, id string) (*model.User, error) {
	if id != alice.ID {
		return nil, repository.ErrNotFound
	}
	u := alice
	return &u, nil
}
func (oneUserStore) FindByUsernameOrEmail(context.Context, string, string) (*model.User, error) {
	return nil, repository.ErrNotFound
}
func (oneUserStore) Create(context.Context, *model.User) error { return errors.New("read only") }
func (oneUserStore) Save(context.Context, *model.User) error { return repository.ErrNotFound }
func (oneUserStore) SetRefreshToken(context.Context, string, string) error { return repository.ErrNotFound }

// dropUploader discards the local file and reports its size.
type dropUploader struct{}

func (dropUploader) Upload(_ context.Context, path string) (*storage.UploadResult, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	return &storage.UploadResult{URL: "https://cdn.example.com/media/x", Key: "media/x", Size: fi.Size()}, nil
}

type server struct {
	e      *echo.Echo
	tokens *utils.TokenService
	dir    string
}

// newServer wires the same chain main does, minus Redis.
func newServer(t *testing.T, mediaMax int64) *server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := utils.NewTokenService(utils.TokenConfig{
		AccessSecret: "a", AccessTTL: time.Minute, RefreshSecret: "r", RefreshTTL: time.Hour,
	})
	cfg := config.Config{CORSOrigin: "http://localhost:3000", BodyLimit: "16K", MediaMaxSize: mediaMax}
	var users oneUserStore
	dir := t.TempDir()

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	Use(e, cfg, nil, log)
	RegisterRoutes(e, handler.PingFunc(func(context.Context) error { return nil }))
	RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, nil, log), tokens, users)
	RegisterMedia(e, handler.NewMediaHandler(storage.NewLocalStore(dir, cfg.MediaMaxSize), dropUploader{}, nil), tokens, users)
	return &server{e: e, tokens: tokens, dir: dir}
}

func (s *server) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *server) upload(t *testing.T, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "big.bin")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tok, err := s.tokens.IssueAccessToken(&alice)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/media", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	return req
}

func TestRoutes(t *testing.T) {
	s := newServer(t, 10_000_000)
	cases := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/api/v1/users/me", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/users/logout", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/users/change-password", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/admin/users/1", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/media", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/users/refresh-token", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/users/login", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/nothing", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := s.serve(httptest.NewRequest(tc.method, tc.path, nil))
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestMediaUpload_LargerThanJSONLimit(t *testing.T) {
	s := newServer(t, 10_000_000)

	rec := s.serve(s.upload(t, 100<<10))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"size":102400`)
	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMediaUpload_OverMediaLimit(t *testing.T) {
	s := newServer(t, 1000)

	// the body limit stops it before the form is parsed
	rec := s.serve(s.upload(t, 100<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	// within the body slack, the store still enforces the file cap
	rec = s.serve(s.upload(t, 2000))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestJSONRoutes_BodyLimit(t *testing.T) {
	s := newServer(t, 10_000_000)
	body := `{"username":"alice","password":"` + strings.Repeat("p", 20<<10) + `"}`

	for _, path := range []string{"/api/v1/users/login", "/api/v1/users/register"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := s.serve(req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, path)
	}
}
