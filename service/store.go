package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fieldline/fieldline/config"
	"github.com/fieldline/fieldline/model"
)

// DocumentStore is an in-memory store for documents
// In production, this should be replaced with a database
type DocumentStore struct {
	documents    map[string]*model.Document
	mu           sync.RWMutex
	maxDocuments int // Maximum documents to keep, 0 = unlimited
}

var (
	globalDocs *DocumentStore
	docsOnce   sync.Once
)

// InitDocumentStore initializes the global document store with configuration
func InitDocumentStore(cfg *config.StoreConfig) {
	docsOnce.Do(func() {
		maxDocuments := cfg.MaxDocuments
		if maxDocuments < 0 {
			maxDocuments = 0
		}
		globalDocs = &DocumentStore{
			documents:    make(map[string]*model.Document),
			maxDocuments: maxDocuments,
		}
		slog.Info("document store initialized", "max_documents", maxDocuments)
	})
}

// GetDocumentStore returns the global document store
func GetDocumentStore() *DocumentStore {
	if globalDocs == nil {
		// Fallback initialization with default settings
		globalDocs = &DocumentStore{
			documents:    make(map[string]*model.Document),
			maxDocuments: 200,
		}
	}
	return globalDocs
}

func (s *DocumentStore) Save(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.UpdatedAt = time.Now()
	s.documents[doc.ID] = doc

	s.cleanupIfNeeded()
}

func (s *DocumentStore) Get(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documents[id]
}

func (s *DocumentStore) GetByTenant(tenant string) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, d := range s.documents {
		if d.Tenant == tenant {
			result = append(result, d)
		}
	}
	return result
}

func (s *DocumentStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
}

func (s *DocumentStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.Status = status
		d.ErrorMsg = errMsg
		d.UpdatedAt = time.Now()
	}
}

func (s *DocumentStore) UpdateContent(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.Content = content
		d.UpdatedAt = time.Now()
	}
}

func (s *DocumentStore) UpdateSnapshotURL(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.SnapshotURL = url
		d.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest documents if store exceeds maxDocuments
// Must be called with lock held
func (s *DocumentStore) cleanupIfNeeded() {
	if s.maxDocuments <= 0 {
		return // Unlimited
	}

	if len(s.documents) <= s.maxDocuments {
		return
	}

	docs := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})

	removeCount := len(docs) - s.maxDocuments
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old document",
			"document_id", docs[i].ID,
			"created_at", docs[i].CreatedAt,
		)
		delete(s.documents, docs[i].ID)
	}
}

// Count returns the number of documents in the store
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}
