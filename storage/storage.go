// Package storage defines persistence contracts for workflows, chat
// sessions, and document records, with in-memory and postgres
// implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/genstack/genstack/workflow"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ChatSession binds a chat connection to one workflow. The graph is
// snapshotted at session creation, so later edits to the workflow do not
// affect an open session.
type ChatSession struct {
	ID         uuid.UUID      `json:"id"`
	WorkflowID uuid.UUID      `json:"workflow_id"`
	Graph      workflow.Graph `json:"graph"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ChatMessage is one persisted message in a session. Assistant messages
// carry the run's execution summary in Metadata.
type ChatMessage struct {
	ID        uuid.UUID      `json:"id"`
	SessionID uuid.UUID      `json:"session_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Document is the record of an already-ingested document whose passages live
// in the vector store. Knowledge-base nodes reference documents by ID.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WorkflowStore persists workflow definitions.
type WorkflowStore interface {
	Create(ctx context.Context, wf *workflow.Workflow) error
	Get(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error)
	List(ctx context.Context) ([]*workflow.Workflow, error)
	Update(ctx context.Context, wf *workflow.Workflow) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ChatStore persists sessions and their message history.
type ChatStore interface {
	CreateSession(ctx context.Context, session *ChatSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*ChatSession, error)
	AppendMessage(ctx context.Context, message *ChatMessage) error
	ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*ChatMessage, error)
}

// DocumentStore persists document records.
type DocumentStore interface {
	Put(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]*Document, error)
	Delete(ctx context.Context, id string) error
}
