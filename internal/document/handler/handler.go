package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/debatearchive/catalog/internal/document"
	"github.com/debatearchive/catalog/internal/storage"
	"github.com/debatearchive/catalog/pkg/logger"
)

// Service is the subset of the document service the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, p document.Payload) (string, error)
	Get(ctx context.Context, id string) (*document.Hit, error)
	Update(ctx context.Context, id string, p document.Payload) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, searchType, text string) (*document.SearchResult, error)
	List(ctx context.Context, limit int) (*document.SearchResult, error)
	Snapshot(ctx context.Context) ([]document.Document, error)
}

type Exporter interface {
	Export(ctx context.Context, docs []document.Document) (*storage.Export, error)
}

type Handler struct {
	svc      Service
	exporter Exporter
	log      *slog.Logger
}

// New returns the document handler. exporter may be nil, in which case
// the export route is not registered.
func New(svc Service, exporter Exporter) *Handler {
	return &Handler{svc: svc, exporter: exporter, log: logger.Component("http.documents")}
}

// Register mounts the catalog API on r. write guards (auth, rate limits)
// run in front of the mutating routes only.
func (h *Handler) Register(r gin.IRouter, write ...gin.HandlerFunc) {
	api := r.Group("/api")
	api.GET("/document/:id", h.get)
	api.POST("/search/:type", h.search)
	api.GET("/documents", h.list)

	w := api.Group("", write...)
	w.POST("/create", h.create)
	w.PUT("/document/:id", h.update)
	w.DELETE("/document/:id", h.delete)
	if h.exporter != nil {
		w.POST("/export", h.export)
	}
}

func (h *Handler) create(c *gin.Context) {
	var p document.Payload
	if err := c.ShouldBind(&p); err != nil {
		h.respondError(c, fmt.Errorf("%w: %w", document.ErrInvalidDocument, err), "Invalid document", "Error creating document")
		return
	}
	id, err := h.svc.Create(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "Invalid document", "Error creating document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document created successfully", "code": http.StatusOK, "id": id})
}

func (h *Handler) get(c *gin.Context) {
	hit, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, "", "Error fetching document")
		return
	}
	c.JSON(http.StatusOK, hit)
}

func (h *Handler) update(c *gin.Context) {
	var p document.Payload
	if err := c.ShouldBind(&p); err != nil {
		h.respondError(c, fmt.Errorf("%w: %w", document.ErrInvalidDocument, err), "Invalid document data", "Error updating document")
		return
	}
	if err := h.svc.Update(c.Request.Context(), c.Param("id"), p); err != nil {
		h.respondError(c, err, "Invalid document data", "Error updating document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document updated successfully", "code": http.StatusOK})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "", "Error deleting document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully", "code": http.StatusOK})
}

// search reads the query text from the body field named after the search
// type, e.g. {"title": "democracy"} for /api/search/title.
func (h *Handler) search(c *gin.Context) {
	typ := c.Param("type")
	text, err := searchText(c, typ)
	if err != nil {
		h.log.Debug("unreadable search body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid search request", "code": http.StatusBadRequest})
		return
	}
	res, err := h.svc.Search(c.Request.Context(), typ, text)
	if err != nil {
		h.respondError(c, err, "Invalid search type", "Error performing search")
		return
	}
	if c.Query("view") == "display" {
		c.JSON(http.StatusOK, gin.H{"hits": document.NormalizeAll(res)})
		return
	}
	c.JSON(http.StatusOK, res)
}

func searchText(c *gin.Context, field string) (string, error) {
	if c.ContentType() == binding.MIMEJSON {
		var body map[string]interface{}
		if err := c.ShouldBindJSON(&body); err != nil {
			return "", err
		}
		switch v := body[field].(type) {
		case nil:
			return "", nil
		case string:
			return v, nil
		default:
			return fmt.Sprint(v), nil
		}
	}
	return c.PostForm(field), nil
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid limit", "code": http.StatusBadRequest})
			return
		}
		limit = n
	}
	res, err := h.svc.List(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err, "", "Error listing documents")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) export(c *gin.Context) {
	docs, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "", "Error exporting documents")
		return
	}
	out, err := h.exporter.Export(c.Request.Context(), docs)
	if err != nil {
		h.respondError(c, err, "", "Error exporting documents")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Export created successfully",
		"code":    http.StatusOK,
		"key":     out.Key,
		"url":     out.URL,
		"count":   out.Count,
	})
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, document.ErrInvalidDocument), errors.Is(err, document.ErrInvalidSearchType):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes the {message, code} envelope. Internal causes are
// logged and never returned to the client.
func (h *Handler) respondError(c *gin.Context, err error, invalidMsg, internalMsg string) {
	status := statusFor(err)
	msg := internalMsg
	switch status {
	case http.StatusBadRequest:
		msg = invalidMsg
		h.log.Debug("rejected request", "path", c.FullPath(), "error", err)
	case http.StatusNotFound:
		msg = "Document not found"
	default:
		h.log.Error(internalMsg, "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"message": msg, "code": status})
}
