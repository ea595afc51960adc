package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fieldline/fieldline/model"
)

// fakeStreamer replays a fixed element sequence, then returns err
type fakeStreamer struct {
	elements []FieldElement
	err      error
}

func (f *fakeStreamer) StreamFieldElements(_ context.Context, _ string, onElement func(FieldElement) error) error {
	for _, element := range f.elements {
		if err := onElement(element); err != nil {
			return err
		}
	}
	return f.err
}

func sequentialID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestExtraction(streamer FieldStreamer) (*ExtractionService, *DocumentStore) {
	docs := newTestDocumentStore(0)
	svc := &ExtractionService{
		llm:      streamer,
		docs:     docs,
		contacts: newContactStore(),
		fields:   newFieldStore(),
		newID:    sequentialID(),
	}
	return svc, docs
}

func element(fieldName, signer, placeholder string) FieldElement {
	return FieldElement{
		FieldName:       fieldName,
		FieldType:       "name",
		PlaceholderText: placeholder,
		SignerReference: signer,
		Prefix:          "before ",
		Suffix:          " after",
	}
}

func TestExtractDocumentNotFound(t *testing.T) {
	svc, docs := newTestExtraction(&fakeStreamer{})

	if _, err := svc.Extract(context.Background(), "missing", nil); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}

	// Empty content is treated the same as a missing document
	docs.Save(&model.Document{ID: "doc-1", Content: ""})
	if _, err := svc.Extract(context.Background(), "doc-1", nil); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound for empty content, got %v", err)
	}
}

func TestExtractDeduplicatesDefinitions(t *testing.T) {
	// The same (field name, signer) pair streams twice; the second element
	// must reuse the definition and only add an occurrence.
	streamer := &fakeStreamer{elements: []FieldElement{
		element("Client Name", "Client", "[Client Name]"),
		element("Client Name", "Client", "[Client Name]"),
		element("Signature", "Client", "[Signature]"),
	}}
	svc, docs := newTestExtraction(streamer)
	docs.Save(&model.Document{ID: "doc-1", Tenant: "acme", Content: "Dear [Client Name]"})

	var updates []ExtractionUpdate
	summary, err := svc.Extract(context.Background(), "doc-1", func(u ExtractionUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if summary.FieldDefinitionsCount != 2 {
		t.Errorf("Expected 2 definitions, got %d", summary.FieldDefinitionsCount)
	}
	if summary.OccurrencesCount != 3 {
		t.Errorf("Expected 3 occurrences, got %d", summary.OccurrencesCount)
	}

	if len(updates) != 3 {
		t.Fatalf("Expected one update per element, got %d", len(updates))
	}
	if updates[0].Definition.ID != updates[1].Definition.ID {
		t.Error("Expected duplicate element to reuse the definition")
	}
	if updates[0].Occurrence.ID == updates[1].Occurrence.ID {
		t.Error("Expected each element to create a fresh occurrence")
	}
	if updates[2].Definition.ID == updates[0].Definition.ID {
		t.Error("Expected distinct field name to create a new definition")
	}
}

func TestExtractContactIdentityStableWithinRun(t *testing.T) {
	streamer := &fakeStreamer{elements: []FieldElement{
		element("Client Name", "Client", "[Client Name]"),
		element("Signature", "Client", "[Signature]"),
		element("Signature", "Vendor", "[Signature]"),
	}}
	svc, docs := newTestExtraction(streamer)
	docs.Save(&model.Document{ID: "doc-1", Tenant: "acme", Content: "text"})

	var updates []ExtractionUpdate
	summary, err := svc.Extract(context.Background(), "doc-1", func(u ExtractionUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if updates[0].Definition.ContactID != updates[1].Definition.ContactID {
		t.Error("Expected same signer reference to reuse the contact id")
	}
	if updates[1].Definition.ContactID == updates[2].Definition.ContactID {
		t.Error("Expected distinct signers to get distinct contact ids")
	}

	// Same field name under different signers stays two definitions
	if updates[1].Definition.ID == updates[2].Definition.ID {
		t.Error("Expected per-signer definitions for the same field name")
	}

	if len(summary.Signers) != 2 {
		t.Fatalf("Expected 2 signers, got %d", len(summary.Signers))
	}
	// Signers are reported in first-seen order
	if summary.Signers[0].Reference != "Client" || summary.Signers[1].Reference != "Vendor" {
		t.Errorf("Expected signers in stream order, got %+v", summary.Signers)
	}
	if summary.Signers[0].FieldCount != 2 || summary.Signers[1].FieldCount != 1 {
		t.Errorf("Unexpected per-signer field counts: %+v", summary.Signers)
	}

	if svc.contacts.Count() != 2 {
		t.Errorf("Expected 2 contacts persisted, got %d", svc.contacts.Count())
	}
}

func TestExtractPersistsWithPrimaryPosition(t *testing.T) {
	first := element("Signature", "Client", "[Signature]")
	first.Prefix = "sign here: "
	second := element("Signature", "Client", "[Signature]")
	second.Prefix = "countersign: "

	svc, docs := newTestExtraction(&fakeStreamer{elements: []FieldElement{first, second}})
	docs.Save(&model.Document{ID: "doc-1", Tenant: "acme", Content: "text"})

	if _, err := svc.Extract(context.Background(), "doc-1", nil); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	defs := svc.fields.GetDefinitionsByDocument("doc-1")
	if len(defs) != 1 {
		t.Fatalf("Expected 1 persisted definition, got %d", len(defs))
	}
	def := defs[0]
	if def.Position == nil {
		t.Fatal("Expected position metadata on the definition")
	}
	if def.Position.Type != "definition" {
		t.Errorf("Expected position type 'definition', got '%s'", def.Position.Type)
	}
	// The first-streamed occurrence is the primary position
	if def.Position.Primary.Prefix != "sign here: " {
		t.Errorf("Expected primary position from first occurrence, got '%s'", def.Position.Primary.Prefix)
	}
	if len(def.Position.Occurrences) != 2 {
		t.Errorf("Expected 2 occurrence points, got %d", len(def.Position.Occurrences))
	}

	if occs := svc.fields.GetOccurrencesByDefinition(def.ID); len(occs) != 2 {
		t.Errorf("Expected 2 persisted occurrences, got %d", len(occs))
	}

	if got := docs.Get("doc-1"); got.Status != model.StatusAnnotated {
		t.Errorf("Expected status '%s', got '%s'", model.StatusAnnotated, got.Status)
	}
}

func TestExtractStreamFailure(t *testing.T) {
	streamErr := errors.New("model refused: policy")
	streamer := &fakeStreamer{
		elements: []FieldElement{element("Client Name", "Client", "[Client Name]")},
		err:      streamErr,
	}
	svc, docs := newTestExtraction(streamer)
	docs.Save(&model.Document{ID: "doc-1", Tenant: "acme", Content: "text"})

	updates := 0
	_, err := svc.Extract(context.Background(), "doc-1", func(ExtractionUpdate) { updates++ })
	if !errors.Is(err, streamErr) {
		t.Fatalf("Expected stream error surfaced, got %v", err)
	}

	// Updates emitted before the failure are not rolled back
	if updates != 1 {
		t.Errorf("Expected 1 update before failure, got %d", updates)
	}

	got := docs.Get("doc-1")
	if got.Status != model.StatusFailed {
		t.Errorf("Expected status '%s', got '%s'", model.StatusFailed, got.Status)
	}
	if got.ErrorMsg == "" {
		t.Error("Expected error message recorded on the document")
	}

	// Nothing was persisted for the aborted run
	if defs := svc.fields.GetDefinitionsByDocument("doc-1"); len(defs) != 0 {
		t.Errorf("Expected no persisted definitions after failure, got %d", len(defs))
	}
}
