package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/service"
	"github.com/gin-gonic/gin"
)

func newTestFieldHandler() *FieldHandler {
	return &FieldHandler{
		store:    service.GetDocumentStore(),
		fields:   service.GetFieldStore(),
		contacts: service.GetContactStore(),
	}
}

func TestFieldHandlerListByDocument(t *testing.T) {
	handler := newTestFieldHandler()

	handler.store.Save(&model.Document{ID: "fields-doc", Tenant: "tenant1"})
	handler.contacts.UpsertBatch([]*model.Contact{
		{ID: "fields-contact", Tenant: "tenant1", Name: "Client"},
	})
	handler.fields.UpsertDefinitions([]*model.FieldDefinition{
		{ID: "fields-def-1", DocumentID: "fields-doc", ContactID: "fields-contact", Tenant: "tenant1", FieldName: "Client Name"},
		{ID: "fields-def-2", DocumentID: "fields-doc", ContactID: "fields-contact", Tenant: "tenant1", FieldName: "Signature"},
	})
	handler.fields.SaveOccurrences([]*model.FieldOccurrence{
		{ID: "fields-occ-1", DefinitionID: "fields-def-1"},
		{ID: "fields-occ-2", DefinitionID: "fields-def-1"},
	})
	defer func() {
		handler.store.Delete("fields-doc")
		handler.fields.DeleteByDocument("fields-doc")
	}()

	router := gin.New()
	router.GET("/documents/:id/fields", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.ListByDocument(c)
	})

	req := httptest.NewRequest("GET", "/documents/fields-doc/fields", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string][]map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	entries := response["fields"]
	if len(entries) != 2 {
		t.Fatalf("Expected 2 field entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry["contact"] == nil {
			t.Error("Expected contact attached to field entry")
		}
		if entry["style"] == nil {
			t.Error("Expected rendering style attached to field entry")
		}
	}
}

func TestFieldHandlerListByContact(t *testing.T) {
	handler := newTestFieldHandler()

	handler.contacts.UpsertBatch([]*model.Contact{
		{ID: "by-contact", Tenant: "tenant1", Name: "Vendor"},
	})
	handler.fields.UpsertDefinitions([]*model.FieldDefinition{
		{ID: "by-contact-def", DocumentID: "by-contact-doc", ContactID: "by-contact", Tenant: "tenant1", FieldName: "Signature"},
	})
	defer handler.fields.DeleteByDocument("by-contact-doc")

	tests := []struct {
		name           string
		id             string
		tenant         string
		expectedStatus int
	}{
		{name: "valid", id: "by-contact", tenant: "tenant1", expectedStatus: http.StatusOK},
		{name: "wrong tenant", id: "by-contact", tenant: "tenant2", expectedStatus: http.StatusNotFound},
		{name: "unknown contact", id: "missing", tenant: "tenant1", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/contacts/:id/fields", func(c *gin.Context) {
				c.Set("tenant", tt.tenant)
				handler.ListByContact(c)
			})

			req := httptest.NewRequest("GET", "/contacts/"+tt.id+"/fields", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestFieldHandlerFillValue(t *testing.T) {
	handler := newTestFieldHandler()

	handler.fields.UpsertDefinitions([]*model.FieldDefinition{
		{ID: "fill-def", DocumentID: "fill-doc", ContactID: "c1", Tenant: "tenant1", FieldName: "Client Name"},
	})
	defer handler.fields.DeleteByDocument("fill-doc")

	router := gin.New()
	router.PUT("/fields/:id/value", func(c *gin.Context) {
		c.Set("tenant", "tenant1")
		handler.FillValue(c)
	})

	body, _ := json.Marshal(map[string]string{"value": "Jane Doe"})
	req := httptest.NewRequest("PUT", "/fields/fill-def/value", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	def := handler.fields.GetDefinition("fill-def")
	if def.Value != "Jane Doe" || !def.Filled {
		t.Errorf("Expected value recorded with filled flag, got %+v", def)
	}

	// Missing value is a binding error
	req = httptest.NewRequest("PUT", "/fields/fill-def/value", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for missing value, got %d", w.Code)
	}

	// Unknown definition
	body, _ = json.Marshal(map[string]string{"value": "x"})
	req = httptest.NewRequest("PUT", "/fields/missing/value", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown field, got %d", w.Code)
	}
}
