package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fieldline/fieldline/model"
)

// FieldStore is an in-memory store for field definitions and occurrences.
// Definitions are additionally indexed by their (document_id, field_name,
// contact_id) triple so that batch upserts enforce the at-most-one-definition
// invariant at the persistence boundary.
type FieldStore struct {
	mu          sync.RWMutex
	definitions map[string]*model.FieldDefinition
	byTriple    map[string]string // (doc|field|contact) -> definition id
	occurrences map[string]*model.FieldOccurrence
}

// ContactStore is an in-memory store for signing contacts
type ContactStore struct {
	mu       sync.RWMutex
	contacts map[string]*model.Contact
}

var (
	globalFields   *FieldStore
	globalContacts *ContactStore
	fieldsOnce     sync.Once
)

// InitFieldStores initializes the global field and contact stores
func InitFieldStores() {
	fieldsOnce.Do(func() {
		globalFields = newFieldStore()
		globalContacts = newContactStore()
		slog.Info("field stores initialized")
	})
}

func newFieldStore() *FieldStore {
	return &FieldStore{
		definitions: make(map[string]*model.FieldDefinition),
		byTriple:    make(map[string]string),
		occurrences: make(map[string]*model.FieldOccurrence),
	}
}

func newContactStore() *ContactStore {
	return &ContactStore{contacts: make(map[string]*model.Contact)}
}

// GetFieldStore returns the global field store
func GetFieldStore() *FieldStore {
	if globalFields == nil {
		globalFields = newFieldStore()
	}
	return globalFields
}

// GetContactStore returns the global contact store
func GetContactStore() *ContactStore {
	if globalContacts == nil {
		globalContacts = newContactStore()
	}
	return globalContacts
}

func tripleKey(documentID, fieldName, contactID string) string {
	return documentID + "|" + fieldName + "|" + contactID
}

// UpsertDefinitions batch-upserts definitions keyed by (document_id,
// field_name, contact_id). An incoming definition that collides with an
// existing triple keeps the existing id; its mutable attributes (type,
// required flag, placeholder, position metadata) are refreshed.
func (s *FieldStore) UpsertDefinitions(defs []*model.FieldDefinition) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, def := range defs {
		key := tripleKey(def.DocumentID, def.FieldName, def.ContactID)
		if existingID, ok := s.byTriple[key]; ok {
			existing := s.definitions[existingID]
			existing.FieldType = def.FieldType
			existing.Required = def.Required
			existing.PlaceholderText = def.PlaceholderText
			existing.Position = def.Position
			existing.UpdatedAt = time.Now()
			continue
		}
		def.UpdatedAt = time.Now()
		s.definitions[def.ID] = def
		s.byTriple[key] = def.ID
	}
}

// SaveOccurrences persists a batch of field occurrences
func (s *FieldStore) SaveOccurrences(occs []*model.FieldOccurrence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, occ := range occs {
		s.occurrences[occ.ID] = occ
	}
}

// GetDefinition returns a definition by id
func (s *FieldStore) GetDefinition(id string) *model.FieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.definitions[id]
}

// GetDefinitionsByDocument returns all definitions for one document
func (s *FieldStore) GetDefinitionsByDocument(documentID string) []*model.FieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.FieldDefinition
	for _, def := range s.definitions {
		if def.DocumentID == documentID {
			result = append(result, def)
		}
	}
	return result
}

// GetDefinitionsByContact returns all definitions owned by one contact
func (s *FieldStore) GetDefinitionsByContact(contactID string) []*model.FieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.FieldDefinition
	for _, def := range s.definitions {
		if def.ContactID == contactID {
			result = append(result, def)
		}
	}
	return result
}

// GetOccurrencesByDefinition returns the occurrences owned by one definition
func (s *FieldStore) GetOccurrencesByDefinition(definitionID string) []*model.FieldOccurrence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.FieldOccurrence
	for _, occ := range s.occurrences {
		if occ.DefinitionID == definitionID {
			result = append(result, occ)
		}
	}
	return result
}

// UpdateValue records a filled-in value for a single definition, flipping
// its filled flag. Returns false when the definition does not exist.
func (s *FieldStore) UpdateValue(id, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.definitions[id]
	if !ok {
		return false
	}
	def.Value = value
	def.Filled = true
	def.UpdatedAt = time.Now()
	return true
}

// DeleteByDocument removes all definitions and occurrences for a document
// (document cascade)
func (s *FieldStore) DeleteByDocument(documentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, def := range s.definitions {
		if def.DocumentID != documentID {
			continue
		}
		delete(s.definitions, id)
		delete(s.byTriple, tripleKey(def.DocumentID, def.FieldName, def.ContactID))
		for occID, occ := range s.occurrences {
			if occ.DefinitionID == id {
				delete(s.occurrences, occID)
			}
		}
	}
}

// UpsertBatch persists a batch of contacts, keeping the earliest record for
// an id that already exists
func (s *ContactStore) UpsertBatch(contacts []*model.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, contact := range contacts {
		if _, ok := s.contacts[contact.ID]; ok {
			continue
		}
		s.contacts[contact.ID] = contact
	}
}

// Get returns a contact by id
func (s *ContactStore) Get(id string) *model.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contacts[id]
}

// Count returns the number of stored contacts
func (s *ContactStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}
