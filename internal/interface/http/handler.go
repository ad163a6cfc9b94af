package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/epg-server/internal/domain/artifact"
	"github.com/yanqian/epg-server/internal/domain/epg"
	"github.com/yanqian/epg-server/internal/infra/config"
	apperrors "github.com/yanqian/epg-server/pkg/errors"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	epgSvc        epg.Service
	artifactSvc   artifact.Service
	publicBaseURL string
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, epgSvc epg.Service, artifactSvc artifact.Service, logger *slog.Logger) *Handler {
	return &Handler{
		epgSvc:        epgSvc,
		artifactSvc:   artifactSvc,
		publicBaseURL: strings.TrimRight(cfg.HTTP.PublicBaseURL, "/"),
		logger:        logger.With("component", "http.handler"),
	}
}

// Fetch serves guide documents, playlists and XMLTV exports from one
// query driven endpoint.
func (h *Handler) Fetch(c *gin.Context) {
	q := queryFrom(c)
	kind := artifact.Kind(q.get("type"))

	if kind.IsPlaylist() {
		h.servePlaylist(c, kind, q.get("url"))
		return
	}

	var (
		name   string
		schema epg.Schema
	)
	switch {
	case q.has("ch"):
		name, schema = q.get("ch"), epg.SchemaDIYP
	case q.has("channel"):
		name, schema = q.get("channel"), epg.SchemaLoveTV
	default:
		h.serveXMLTV(c, kind)
		return
	}

	doc, err := h.epgSvc.Lookup(c.Request.Context(), epg.Request{
		OriginalName: name,
		RawDate:      q.get("date"),
		Schema:       schema,
		BaseURL:      h.baseURL(c),
	})
	if apperrors.IsCode(err, apperrors.CodeNoChannel) {
		h.serveXMLTV(c, kind)
		return
	}
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	h.logger.Debug("guide served", "channel", doc.Channel, "date", doc.Date, "schema", string(schema), "matched", doc.Matched, "cached", doc.Cached)
	c.Data(http.StatusOK, "application/json", doc.Body)
}

func (h *Handler) serveXMLTV(c *gin.Context, kind artifact.Kind) {
	art, err := h.artifactSvc.XMLTV(c.Request.Context(), kind)
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	if art.Attachment {
		c.Header("Content-Disposition", `attachment; filename="`+art.Name+`"`)
	}
	c.Data(http.StatusOK, art.ContentType, art.Body)
}

func (h *Handler) servePlaylist(c *gin.Context, kind artifact.Kind, sourceURL string) {
	art, err := h.artifactSvc.Playlist(c.Request.Context(), kind, sourceURL, h.baseURL(c))
	if err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.Data(http.StatusOK, art.ContentType, art.Body)
}

// FlushCache drops every cached guide document.
func (h *Handler) FlushCache(c *gin.Context) {
	if err := h.epgSvc.Flush(c.Request.Context()); err != nil {
		abortWithError(c, toHTTPError(err))
		return
	}
	c.String(http.StatusOK, "cache flushed")
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// baseURL is the configured public origin, or the one the request came in on.
func (h *Handler) baseURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme, _, _ = strings.Cut(proto, ",")
		scheme = strings.TrimSpace(scheme)
	}
	host := c.Request.Host
	if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
		host, _, _ = strings.Cut(fwd, ",")
		host = strings.TrimSpace(host)
	}
	return scheme + "://" + host
}
