package model

import (
	"time"
)

// Document represents a generated contract document whose text carries
// bracketed placeholder fields (e.g. "[Signature]")
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Tenant      string    `json:"tenant"`
	Kind        string    `json:"kind"` // text, code, sheet
	Content     string    `json:"content,omitempty"`
	Status      string    `json:"status"` // draft, extracting, annotated, failed
	SnapshotURL string    `json:"snapshot_url,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document status constants
const (
	StatusDraft      = "draft"
	StatusExtracting = "extracting"
	StatusAnnotated  = "annotated"
	StatusFailed     = "failed"
)

// Document kind constants
const (
	KindText  = "text"
	KindCode  = "code"
	KindSheet = "sheet"
)
