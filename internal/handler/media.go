package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/backend-scaffold/internal/apperr"
    "github.com/iliyamo/backend-scaffold/internal/middleware"
    "github.com/iliyamo/backend-scaffold/internal/model"
    "github.com/iliyamo/backend-scaffold/internal/queue"
    "github.com/iliyamo/backend-scaffold/internal/service"
    "github.com/iliyamo/backend-scaffold/internal/storage"
)

// MediaHandler accepts a multipart upload, parks it in the temp dir and
// hands it to the media store.
type MediaHandler struct {
    Local    *storage.LocalStore
    Uploader storage.MediaUploader // nil when no media store is configured
    Events   service.EventPublisher
}

func NewMediaHandler(local *storage.LocalStore, up storage.MediaUploader, events service.EventPublisher) *MediaHandler {
    if events == nil {
        events = service.NopPublisher{}
    }
    return &MediaHandler{Local: local, Uploader: up, Events: events}
}

type uploadResp struct {
    URL  string `json:"url"`
    Key  string `json:"key"`
    Size int64  `json:"size"`
}

// Upload handles POST /api/v1/media with form field "file".
func (h *MediaHandler) Upload(c echo.Context) error {
    if h.Uploader == nil {
        return &apperr.Error{Kind: apperr.KindInternal, Status: http.StatusServiceUnavailable, Message: "media storage is not configured", Err: storage.ErrUploaderDisabled}
    }
    fh, err := c.FormFile("file")
    if err != nil {
        // body limit hit while parsing the form
        var he *echo.HTTPError
        if errors.As(err, &he) {
            return he
        }
        return apperr.BadRequest("file is required")
    }

    path, _, err := h.Local.SaveMultipart(fh)
    if err != nil {
        if errors.Is(err, storage.ErrTooLarge) {
            return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
        }
        return apperr.Internal(err)
    }

    // S3Uploader already removes path; this covers other uploaders
    defer func() { _ = h.Local.Remove(path) }()

    res, err := h.Uploader.Upload(c.Request().Context(), path)
    if err != nil {
        return apperr.Internal(err)
    }
    if res == nil {
        return apperr.Internal(errors.New("media store returned no result"))
    }

    u, ok := middleware.CurrentUser(c)
    if !ok {
        u = &model.User{ID: "guest"}
    }
    emit(c, h.Events, queue.EventMediaUploaded, u, res.Key)
    return respond(c, http.StatusCreated, "file uploaded", uploadResp{URL: res.URL, Key: res.Key, Size: res.Size})
}
