package handler

import (
	"net/http"

	"github.com/fieldline/fieldline/middleware"
	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/pkg/annotate"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
)

// AnnotationHandler hosts the editor-facing annotation session: it holds one
// decoration set per document and drives its three transitions (replace
// annotation set, document edited, click) from HTTP callbacks.
type AnnotationHandler struct {
	store    *service.DocumentStore
	sessions *service.SessionManager
}

func NewAnnotationHandler() *AnnotationHandler {
	return &AnnotationHandler{
		store:    service.GetDocumentStore(),
		sessions: service.GetSessionManager(),
	}
}

type SetAnnotationsRequest struct {
	Tree        *annotate.Node        `json:"tree"`
	Annotations []annotate.Annotation `json:"annotations"`
}

type ClickRequest struct {
	Position int `json:"position"`
}

type EditsRequest struct {
	Edits []annotate.Replace `json:"edits" binding:"required"`
}

// SetAnnotations replaces the session's annotation set, re-projecting it
// against the document tree (when supplied) and content
func (h *AnnotationHandler) SetAnnotations(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}

	var req SetAnnotationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session := h.sessions.Session(doc.ID)
	session.SetAnnotations(req.Tree, doc.Content, req.Annotations)

	h.respondState(c, session)
}

// Click reports a click at a document position and returns the resulting
// selection state
func (h *AnnotationHandler) Click(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}

	var req ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session := h.sessions.Session(doc.ID)
	selected := session.Click(req.Position)

	c.JSON(http.StatusOK, gin.H{
		"selected":    selected,
		"selected_id": session.SelectedID(),
	})
}

// Edits remaps the session's annotation spans through a batch of document
// edits, dropping annotations whose text was deleted
func (h *AnnotationHandler) Edits(c *gin.Context) {
	doc, ok := h.document(c)
	if !ok {
		return
	}

	var req EditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	session := h.sessions.Session(doc.ID)
	session.DocumentEdited(annotate.NewReplaceMapper(req.Edits))

	h.respondState(c, session)
}

func (h *AnnotationHandler) document(c *gin.Context) (*model.Document, bool) {
	tenant := middleware.GetTenant(c)
	doc := h.store.Get(c.Param("id"))
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return nil, false
	}
	return doc, true
}

func (h *AnnotationHandler) respondState(c *gin.Context, session *annotate.DecorationSet) {
	annotations := session.Annotations()

	// Stable per-contact styling for rendering.
	styles := make(map[string]annotate.Style)
	for _, ann := range annotations {
		if contactID, ok := ann.Data["contact_id"].(string); ok && contactID != "" {
			if _, seen := styles[contactID]; !seen {
				styles[contactID] = annotate.ContactStyle(contactID)
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"annotations": annotations,
		"selected_id": session.SelectedID(),
		"styles":      styles,
	})
}
