package handler

import (
	"net/http"

	"github.com/fieldline/fieldline/middleware"
	"github.com/fieldline/fieldline/pkg/annotate"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
)

type FieldHandler struct {
	store    *service.DocumentStore
	fields   *service.FieldStore
	contacts *service.ContactStore
}

func NewFieldHandler() *FieldHandler {
	return &FieldHandler{
		store:    service.GetDocumentStore(),
		fields:   service.GetFieldStore(),
		contacts: service.GetContactStore(),
	}
}

type FillValueRequest struct {
	Value string `json:"value" binding:"required"`
}

// ListByDocument returns all field definitions for a document, each with its
// occurrences and the owning contact's rendering style
func (h *FieldHandler) ListByDocument(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	doc := h.store.Get(id)
	if doc == nil || doc.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	defs := h.fields.GetDefinitionsByDocument(id)
	result := make([]gin.H, len(defs))
	for i, def := range defs {
		result[i] = gin.H{
			"definition":  def,
			"occurrences": h.fields.GetOccurrencesByDefinition(def.ID),
			"contact":     h.contacts.Get(def.ContactID),
			"style":       annotate.ContactStyle(def.ContactID),
		}
	}

	c.JSON(http.StatusOK, gin.H{"fields": result})
}

// ListByContact returns all field definitions owned by one contact
func (h *FieldHandler) ListByContact(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	contact := h.contacts.Get(id)
	if contact == nil || contact.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contact": contact,
		"fields":  h.fields.GetDefinitionsByContact(id),
	})
}

// FillValue records a human-entered value for a field definition and flips
// its filled flag
func (h *FieldHandler) FillValue(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	def := h.fields.GetDefinition(id)
	if def == nil || def.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Field not found"})
		return
	}

	var req FillValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.fields.UpdateValue(id, req.Value) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Field not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Field filled"})
}
