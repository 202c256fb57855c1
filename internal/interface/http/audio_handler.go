package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lysnhq/lysn-backend/internal/application"
	"github.com/lysnhq/lysn-backend/internal/interface/middleware"
	"github.com/lysnhq/lysn-backend/pkg/response"
)

type AudioHandler struct {
	Svc    *application.AudioService
	Logger *logrus.Logger
}

func NewAudioHandler(svc *application.AudioService, logger *logrus.Logger) *AudioHandler {
	return &AudioHandler{Svc: svc, Logger: logger}
}

// Upload POST /api/pdf/upload (auth required, multipart field "file")
func (h *AudioHandler) Upload(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)

	fh, err := c.FormFile("file")
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "missing file", nil)
		c.JSON(resp.Status, resp)
		return
	}
	f, err := fh.Open()
	if err != nil {
		resp := response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		c.JSON(resp.Status, resp)
		return
	}
	defer func() { _ = f.Close() }()

	a, err := h.Svc.Convert(c.Request.Context(), email, fh.Filename, f, fh.Size)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrNotPDF):
			resp := response.Error[any](c, http.StatusBadRequest, "only PDF allowed", nil)
			c.JSON(resp.Status, resp)
		case errors.Is(err, application.ErrNoReadableText):
			resp := response.Error[any](c, http.StatusBadRequest, "PDF has no readable text", nil)
			c.JSON(resp.Status, resp)
		default:
			if h.Logger != nil {
				h.Logger.WithError(err).WithField("filename", fh.Filename).Error("conversion failed")
			}
			resp := response.Error[any](c, http.StatusInternalServerError, "conversion failed", nil)
			c.JSON(resp.Status, resp)
		}
		return
	}

	resp := response.Success(c, http.StatusOK, gin.H{
		"id":         a.ID,
		"audio_file": a.URL,
		"filename":   a.Filename,
	}, "converted", nil)
	c.JSON(resp.Status, resp)
}

// List GET /api/audio/list (auth required)
func (h *AudioHandler) List(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)
	files, err := h.Svc.List(c.Request.Context(), email)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Error("audio list failed")
		}
		resp := response.Error[any](c, http.StatusInternalServerError, "could not list audio", nil)
		c.JSON(resp.Status, resp)
		return
	}
	out := make([]gin.H, 0, len(files))
	for _, a := range files {
		out = append(out, gin.H{
			"id":         a.ID,
			"audio_file": a.URL,
			"filename":   a.Filename,
			"created_at": a.CreatedAt,
		})
	}
	resp := response.Success(c, http.StatusOK, gin.H{"audios": out}, "audio files", nil)
	c.JSON(resp.Status, resp)
}

// Search GET /api/audio/search?q=...&size=10 (auth required)
func (h *AudioHandler) Search(c *gin.Context) {
	email := c.GetString(middleware.CtxUserEmailKey)
	q := c.Query("q")
	if q == "" {
		resp := response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		c.JSON(resp.Status, resp)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.Search(c.Request.Context(), email, q, size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Error("audio search failed")
		}
		resp := response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		c.JSON(resp.Status, resp)
		return
	}
	resp := response.Success(c, http.StatusOK, gin.H{"hits": hits}, "search results", nil)
	c.JSON(resp.Status, resp)
}
