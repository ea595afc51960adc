package service

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/fieldline/fieldline/model"
	"github.com/fieldline/fieldline/pkg/annotate"
	"github.com/fieldline/fieldline/pkg/logger"
	"github.com/google/uuid"
)

// ErrDocumentNotFound is returned when the document is missing or has no
// content; extraction aborts immediately with no partial writes
var ErrDocumentNotFound = errors.New("document not found")

// placeholderPattern detects bracketed placeholders like "[Signature]"
var placeholderPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// ExtractionUpdate pairs the (possibly reused) definition with the newly
// created occurrence for live client-side annotation rendering
type ExtractionUpdate struct {
	Definition *model.FieldDefinition `json:"definition"`
	Occurrence *model.FieldOccurrence `json:"occurrence"`
}

// SignerSummary is the per-signer slice of an extraction result
type SignerSummary struct {
	Reference  string `json:"reference"`
	ContactID  string `json:"contact_id"`
	FieldCount int    `json:"field_count"`
}

// ExtractionSummary is the final result of one extraction run
type ExtractionSummary struct {
	FieldDefinitionsCount int             `json:"field_definitions_count"`
	OccurrencesCount      int             `json:"occurrences_count"`
	Signers               []SignerSummary `json:"signers"`
}

// ExtractionService orchestrates one field extraction run: it streams
// candidate elements from the language model, deduplicates them into stable
// field definitions per (field name, contact) pair, creates one occurrence
// per element, and batch-persists the results after the stream drains.
type ExtractionService struct {
	llm      FieldStreamer
	docs     *DocumentStore
	contacts *ContactStore
	fields   *FieldStore
	newID    func() string
}

func NewExtractionService(llm FieldStreamer) *ExtractionService {
	return &ExtractionService{
		llm:      llm,
		docs:     GetDocumentStore(),
		contacts: GetContactStore(),
		fields:   GetFieldStore(),
		newID:    func() string { return uuid.New().String() },
	}
}

// runState holds the identity maps for a single extraction invocation. It is
// scoped to one call so concurrent runs for different documents cannot leak
// contact or definition identity into each other.
type runState struct {
	contactByRef   map[string]string // signer reference -> contact id
	stagedContacts []*model.Contact
	defByKey       map[string]*model.FieldDefinition // field_name|contactID -> definition
	defOrder       []*model.FieldDefinition
	points         map[string][]model.OccurrencePoint // definition id -> occurrence points
	occurrences    []*model.FieldOccurrence
	signerOrder    []string
	fieldsBySigner map[string]int
}

// Extract runs the pipeline for one document. Elements are processed
// strictly in stream arrival order: definition deduplication relies on the
// first occurrence establishing the primary position. onUpdate is invoked
// once per streamed element before the next element is read; it may be nil.
func (s *ExtractionService) Extract(ctx context.Context, documentID string, onUpdate func(ExtractionUpdate)) (*ExtractionSummary, error) {
	doc := s.docs.Get(documentID)
	if doc == nil || doc.Content == "" {
		return nil, ErrDocumentNotFound
	}

	// Whether the document already carries bracketed placeholders only
	// affects messaging; generating missing placeholders is a known product
	// gap and deliberately not performed here.
	hasPlaceholders := placeholderPattern.MatchString(doc.Content)
	logger.Info(ctx, "starting field extraction",
		"document_id", documentID,
		"has_placeholders", hasPlaceholders,
		"content_bytes", len(doc.Content),
	)

	s.docs.UpdateStatus(documentID, model.StatusExtracting, "")

	run := &runState{
		contactByRef:   make(map[string]string),
		defByKey:       make(map[string]*model.FieldDefinition),
		points:         make(map[string][]model.OccurrencePoint),
		fieldsBySigner: make(map[string]int),
	}

	err := s.llm.StreamFieldElements(ctx, doc.Content, func(element FieldElement) error {
		update := s.processElement(run, doc, element)
		if onUpdate != nil {
			onUpdate(update)
		}
		return nil
	})
	if err != nil {
		// Updates already emitted remain visible to the client; no rollback.
		s.docs.UpdateStatus(documentID, model.StatusFailed, err.Error())
		return nil, err
	}

	s.persist(ctx, run)
	s.docs.UpdateStatus(documentID, model.StatusAnnotated, "")

	summary := &ExtractionSummary{
		FieldDefinitionsCount: len(run.defOrder),
		OccurrencesCount:      len(run.occurrences),
	}
	for _, ref := range run.signerOrder {
		summary.Signers = append(summary.Signers, SignerSummary{
			Reference:  ref,
			ContactID:  run.contactByRef[ref],
			FieldCount: run.fieldsBySigner[ref],
		})
	}

	logger.Info(ctx, "field extraction finished",
		"document_id", documentID,
		"definitions", summary.FieldDefinitionsCount,
		"occurrences", summary.OccurrencesCount,
		"signers", len(summary.Signers),
	)
	return summary, nil
}

// processElement resolves contact and definition identity for one streamed
// element and creates its occurrence
func (s *ExtractionService) processElement(run *runState, doc *model.Document, element FieldElement) ExtractionUpdate {
	// Contact identity: reuse the run-local id for a seen signer reference,
	// mint and stage a new contact otherwise.
	contactID, ok := run.contactByRef[element.SignerReference]
	if !ok {
		contactID = s.newID()
		run.contactByRef[element.SignerReference] = contactID
		run.signerOrder = append(run.signerOrder, element.SignerReference)
		run.stagedContacts = append(run.stagedContacts, &model.Contact{
			ID:        contactID,
			Tenant:    doc.Tenant,
			Name:      element.SignerReference,
			CreatedAt: time.Now(),
		})
	}

	// Definition identity: one definition per (field name, contact) pair
	// within the run.
	key := element.FieldName + "|" + contactID
	def, ok := run.defByKey[key]
	if !ok {
		def = &model.FieldDefinition{
			ID:              s.newID(),
			DocumentID:      doc.ID,
			ContactID:       contactID,
			Tenant:          doc.Tenant,
			FieldName:       element.FieldName,
			FieldType:       model.ParseFieldType(element.FieldType),
			Required:        element.IsRequired,
			Filled:          false,
			PlaceholderText: element.PlaceholderText,
			CreatedAt:       time.Now(),
		}
		run.defByKey[key] = def
		run.defOrder = append(run.defOrder, def)
		run.fieldsBySigner[element.SignerReference]++
	}

	// Always a brand-new occurrence, even for a reused definition.
	occurrence := &model.FieldOccurrence{
		ID:              s.newID(),
		DefinitionID:    def.ID,
		PlaceholderText: element.PlaceholderText,
		Position: annotate.Position{
			Placeholder: element.PlaceholderText,
			Prefix:      element.Prefix,
			Suffix:      element.Suffix,
			Context:     element.Context,
		},
		CreatedAt: time.Now(),
	}
	run.occurrences = append(run.occurrences, occurrence)
	run.points[def.ID] = append(run.points[def.ID], model.OccurrencePoint{
		ID:              occurrence.ID,
		PlaceholderText: occurrence.PlaceholderText,
		Position:        occurrence.Position,
	})

	return ExtractionUpdate{Definition: def, Occurrence: occurrence}
}

// persist writes the staged records in two batches after the stream drains.
// Both batches are best-effort: the user-visible annotations were already
// streamed, so persistence problems are logged and swallowed.
func (s *ExtractionService) persist(ctx context.Context, run *runState) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "persistence failed, extraction result kept", "panic", r)
		}
	}()

	if len(run.stagedContacts) > 0 {
		s.contacts.UpsertBatch(run.stagedContacts)
	}

	// Finalize each definition: the first occurrence becomes the primary
	// position, and every occurrence is listed for independent projection.
	for _, def := range run.defOrder {
		points := run.points[def.ID]
		if len(points) > 0 {
			def.Position = &model.DefinitionPosition{
				Type:        "definition",
				Primary:     points[0].Position,
				Occurrences: points,
			}
		}
	}
	s.fields.UpsertDefinitions(run.defOrder)
	s.fields.SaveOccurrences(run.occurrences)
}
