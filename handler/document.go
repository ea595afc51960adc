package handler

import (
	"net/http"
	"time"

	"github.com/fieldline/fieldline/middleware"
	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DocumentHandler struct {
	store    *service.DocumentStore
	fields   *service.FieldStore
	sessions *service.SessionManager
}

func NewDocumentHandler() *DocumentHandler {
	return &DocumentHandler{
		store:    service.GetDocumentStore(),
		fields:   service.GetFieldStore(),
		sessions: service.GetSessionManager(),
	}
}

type CreateDocumentRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
	Kind    string `json:"kind"`
}

type UpdateContentRequest struct {
	Content string `json:"content" binding:"required"`
}

// Create stores a new document
func (h *DocumentHandler) Create(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	kind := req.Kind
	if kind == "" {
		kind = model.KindText
	}

	doc := &model.Document{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Tenant:    tenant,
		Kind:      kind,
		Content:   req.Content,
		Status:    model.StatusDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.store.Save(doc)

	c.JSON(http.StatusOK, gin.H{
		"id":     doc.ID,
		"title":  doc.Title,
		"kind":   doc.Kind,
		"status": doc.Status,
	})
}

// List returns all documents for the current tenant, without content
func (h *DocumentHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	docs := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(docs))
	for i, doc := range docs {
		result[i] = gin.H{
			"id":         doc.ID,
			"title":      doc.Title,
			"kind":       doc.Kind,
			"status":     doc.Status,
			"created_at": doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": doc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"documents": result})
}

// Get returns a single document with its content
func (h *DocumentHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

// UpdateContent replaces a document's content
func (h *DocumentHandler) UpdateContent(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	var req UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	h.store.UpdateContent(id, req.Content)

	c.JSON(http.StatusOK, gin.H{"message": "Content updated"})
}

// Delete removes a document, its fields, and its editing session
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	h.fields.DeleteByDocument(id)
	h.sessions.Drop(id)
	h.store.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
