package chatModel

import (
	"context"
	"time"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoleFromSender maps a stored sender label to a role. Anything that is not "user" is the assistant.
func RoleFromSender(sender string) Role {
	if sender == string(RoleUser) {
		return RoleUser
	}
	return RoleAssistant
}

type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Answer struct {
	Text    string                   `json:"answer"`
	Sources []commonModels.SourceRef `json:"sources"`
	// Grounded is false for answers produced without document retrieval.
	Grounded bool `json:"grounded"`
}

type Session struct {
	Id        string    `json:"session_id"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

type DeleteResult struct {
	PdfDeleted   bool `json:"pdf_deleted"`
	IndexDeleted bool `json:"index_deleted"`
}

type IngestOutcome string

const (
	IngestIndexed IngestOutcome = "indexed"
	IngestSkipped IngestOutcome = "skipped"
	IngestEmpty   IngestOutcome = "empty"
	IngestFailed  IngestOutcome = "failed"
)

type IngestResult struct {
	Filename   string                        `json:"filename"`
	DocumentId string                        `json:"document_id"`
	Outcome    IngestOutcome                 `json:"outcome"`
	Method     commonModels.ExtractionMethod `json:"method,omitempty"`
	Chunks     int                           `json:"chunks"`
	Error      string                        `json:"error,omitempty"`
}

type DocumentInfo struct {
	Filename   string `json:"filename"`
	DocumentId string `json:"document_id"`
	HasPdf     bool   `json:"has_pdf"`
	Indexed    bool   `json:"indexed"`
}

// ConversationStore persists turns per category. Turns are append-only.
type ConversationStore interface {
	AppendTurn(ctx context.Context, category string, turn Turn) error
	// LastTurns returns at most n turns, most recent first.
	LastTurns(ctx context.Context, category string, n int) ([]Turn, error)
	// AllTurns returns the whole history oldest first.
	AllTurns(ctx context.Context, category string) ([]Turn, error)
	DeleteCategory(ctx context.Context, category string) error
}

// SessionStore maps chat session ids to categories. Get returns commonModels.ErrNotFound for unknown ids.
type SessionStore interface {
	Create(ctx context.Context, category string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
