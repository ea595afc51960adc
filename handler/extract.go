package handler

import (
	"net/http"

	"github.com/fieldline/fieldline/middleware"
	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/pkg/logger"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ExtractHandler struct {
	extraction *service.ExtractionService
	archive    *service.ArchiveService
	store      *service.DocumentStore
}

// NewExtractHandler creates the extraction endpoint handler. archive may be
// nil when object storage is not configured; snapshots are then skipped.
func NewExtractHandler(extraction *service.ExtractionService, archive *service.ArchiveService) *ExtractHandler {
	return &ExtractHandler{
		extraction: extraction,
		archive:    archive,
		store:      service.GetDocumentStore(),
	}
}

// AnnotationEvent is the typed event streamed to the client for each field
// occurrence, consumed live to update the editor's annotation set
type AnnotationEvent struct {
	Type    string            `json:"type"`
	Content AnnotationContent `json:"content"`
}

type AnnotationContent struct {
	Type string                   `json:"type"`
	Data service.ExtractionUpdate `json:"data"`
}

// Extract runs field extraction for a document, streaming one annotation
// event per occurrence over SSE, followed by a summary event. The client
// renders annotations as they arrive, before the pipeline completes.
func (h *ExtractHandler) Extract(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}
	if doc.Content == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Document has no content"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
		return
	}

	ctx := c.Request.Context()

	summary, err := h.extraction.Extract(ctx, id, func(update service.ExtractionUpdate) {
		c.SSEvent("annotation", AnnotationEvent{
			Type: "annotation",
			Content: AnnotationContent{
				Type: "contractField",
				Data: update,
			},
		})
		flusher.Flush()
	})
	if err != nil {
		// Events already sent remain valid partial results on the client.
		c.SSEvent("error", gin.H{"error": err.Error()})
		flusher.Flush()
		return
	}

	snapshotURL := h.archiveSnapshot(c, doc)

	c.SSEvent("summary", gin.H{
		"summary":      summary,
		"snapshot_url": snapshotURL,
	})
	flusher.Flush()
}

// archiveSnapshot freezes the annotated content in object storage for the
// signing workflow. Best-effort: failures are logged, never surfaced.
func (h *ExtractHandler) archiveSnapshot(c *gin.Context, doc *model.Document) string {
	if h.archive == nil {
		return ""
	}

	ctx := c.Request.Context()
	snapshotID := uuid.New().String()
	objectName, err := h.archive.ArchiveSnapshot(ctx, doc.Tenant, doc.ID, snapshotID, doc.Content)
	if err != nil {
		logger.Warn(ctx, "snapshot archive failed", "document_id", doc.ID, "error", err)
		return ""
	}

	url, err := h.archive.GetPresignedURL(ctx, objectName)
	if err != nil {
		logger.Warn(ctx, "snapshot presign failed", "document_id", doc.ID, "error", err)
		return ""
	}

	h.store.UpdateSnapshotURL(doc.ID, url)
	return url
}
