package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/pkg/logger"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
)

// SigningHandler receives webhooks from the digital-signing provider. Each
// callback carries values the signers entered for contract fields.
type SigningHandler struct {
	config *config.SigningConfig
	store  *service.DocumentStore
	fields *service.FieldStore
}

func NewSigningHandler(cfg *config.SigningConfig) *SigningHandler {
	return &SigningHandler{
		config: cfg,
		store:  service.GetDocumentStore(),
		fields: service.GetFieldStore(),
	}
}

type SigningCallbackRequest struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

type SigningCallbackContent struct {
	DocumentID string `json:"document_id"`
	State      string `json:"state"` // partial, completed, declined
	Fields     []struct {
		FieldID string `json:"field_id"`
		Value   string `json:"value"`
	} `json:"fields"`
	ErrorMsg string `json:"err_msg"`
}

// VerifyChecksum checks that the callback was produced with our shared seed.
// Checksum = SHA256(document_id + seed + content)
func (h *SigningHandler) VerifyChecksum(checksum, content, documentID string) bool {
	data := documentID + h.config.Seed + content
	hash := sha256.Sum256([]byte(data))
	expected := hex.EncodeToString(hash[:])
	return checksum == expected
}

// HandleCallback processes a signing-provider webhook: verified field values
// are written through to their definitions, flipping the filled flag
func (h *SigningHandler) HandleCallback(c *gin.Context) {
	var req SigningCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var content SigningCallbackContent
	if err := json.Unmarshal([]byte(req.Content), &content); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid content format"})
		return
	}

	doc := h.store.Get(content.DocumentID)
	if doc == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	if !h.VerifyChecksum(req.Checksum, req.Content, content.DocumentID) {
		logger.Warn(c.Request.Context(), "signing callback checksum mismatch",
			"document_id", content.DocumentID,
		)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Checksum verification failed"})
		return
	}

	filled := 0
	for _, field := range content.Fields {
		def := h.fields.GetDefinition(field.FieldID)
		if def == nil || def.DocumentID != content.DocumentID {
			logger.Warn(c.Request.Context(), "signing callback references unknown field",
				"field_id", field.FieldID,
				"document_id", content.DocumentID,
			)
			continue
		}
		if h.fields.UpdateValue(field.FieldID, field.Value) {
			filled++
		}
	}

	logger.Info(c.Request.Context(), "signing callback processed",
		"document_id", content.DocumentID,
		"state", content.State,
		"fields_filled", filled,
	)

	c.JSON(http.StatusOK, gin.H{"message": "Callback received", "fields_filled": filled})
}
