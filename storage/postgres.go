package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/genstack/genstack/workflow"
)

// Querier abstracts the pgx query methods the postgres stores need. Both
// *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgWorkflowStore implements WorkflowStore on PostgreSQL. The graph is stored
// as JSONB in the shape the HTTP API exchanges.
type PgWorkflowStore struct {
	db Querier
}

var _ WorkflowStore = (*PgWorkflowStore)(nil)

// NewPgWorkflowStore creates a postgres-backed workflow store.
func NewPgWorkflowStore(db Querier) *PgWorkflowStore {
	return &PgWorkflowStore{db: db}
}

func (s *PgWorkflowStore) Create(ctx context.Context, wf *workflow.Workflow) error {
	graphJSON, err := json.Marshal(wf.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO genstack_workflows (id, name, description, graph, created_at, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5, $6)`,
		wf.ID, wf.Name, wf.Description, string(graphJSON), wf.CreatedAt, wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow %s: %w", wf.ID, err)
	}
	return nil
}

func (s *PgWorkflowStore) Get(ctx context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, name, description, graph, created_at, updated_at
		 FROM genstack_workflows WHERE id = $1`, id)
	return scanWorkflow(row)
}

func (s *PgWorkflowStore) List(ctx context.Context) ([]*workflow.Workflow, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, description, graph, created_at, updated_at
		 FROM genstack_workflows ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*workflow.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

func (s *PgWorkflowStore) Update(ctx context.Context, wf *workflow.Workflow) error {
	graphJSON, err := json.Marshal(wf.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	tag, err := s.db.Exec(ctx,
		`UPDATE genstack_workflows
		 SET name = $2, description = $3, graph = $4::jsonb, updated_at = $5
		 WHERE id = $1`,
		wf.ID, wf.Name, wf.Description, string(graphJSON), wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update workflow %s: %w", wf.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgWorkflowStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM genstack_workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkflow(row pgx.Row) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	var graphJSON []byte
	err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &graphJSON, &wf.CreatedAt, &wf.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}
	if err := json.Unmarshal(graphJSON, &wf.Graph); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return &wf, nil
}

// PgChatStore implements ChatStore on PostgreSQL.
type PgChatStore struct {
	db Querier
}

var _ ChatStore = (*PgChatStore)(nil)

// NewPgChatStore creates a postgres-backed chat store.
func NewPgChatStore(db Querier) *PgChatStore {
	return &PgChatStore{db: db}
}

func (s *PgChatStore) CreateSession(ctx context.Context, session *ChatSession) error {
	graphJSON, err := json.Marshal(session.Graph)
	if err != nil {
		return fmt.Errorf("marshal session graph: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO genstack_chat_sessions (id, workflow_id, graph, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		session.ID, session.WorkflowID, string(graphJSON), session.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", session.ID, err)
	}
	return nil
}

func (s *PgChatStore) GetSession(ctx context.Context, id uuid.UUID) (*ChatSession, error) {
	var session ChatSession
	var graphJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, workflow_id, graph, created_at
		 FROM genstack_chat_sessions WHERE id = $1`, id).
		Scan(&session.ID, &session.WorkflowID, &graphJSON, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	if err := json.Unmarshal(graphJSON, &session.Graph); err != nil {
		return nil, fmt.Errorf("decode session graph: %w", err)
	}
	return &session, nil
}

func (s *PgChatStore) AppendMessage(ctx context.Context, message *ChatMessage) error {
	metaJSON, err := json.Marshal(message.Metadata)
	if err != nil {
		return fmt.Errorf("marshal message metadata: %w", err)
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO genstack_chat_messages (id, session_id, role, content, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
		message.ID, message.SessionID, string(message.Role), message.Content, string(metaJSON), message.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message %s: %w", message.ID, err)
	}
	return nil
}

func (s *PgChatStore) ListMessages(ctx context.Context, sessionID uuid.UUID) ([]*ChatMessage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, role, content, metadata, created_at
		 FROM genstack_chat_messages WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*ChatMessage
	for rows.Next() {
		var message ChatMessage
		var role string
		var metaJSON []byte
		if err := rows.Scan(&message.ID, &message.SessionID, &role, &message.Content, &metaJSON, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		message.Role = MessageRole(role)
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &message.Metadata); err != nil {
				return nil, fmt.Errorf("decode message metadata: %w", err)
			}
		}
		messages = append(messages, &message)
	}
	return messages, rows.Err()
}

// PgDocumentStore implements DocumentStore on PostgreSQL.
type PgDocumentStore struct {
	db Querier
}

var _ DocumentStore = (*PgDocumentStore)(nil)

// NewPgDocumentStore creates a postgres-backed document store.
func NewPgDocumentStore(db Querier) *PgDocumentStore {
	return &PgDocumentStore{db: db}
}

func (s *PgDocumentStore) Put(ctx context.Context, doc *Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO genstack_documents (id, name, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		doc.ID, doc.Name, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.ID, err)
	}
	return nil
}

func (s *PgDocumentStore) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM genstack_documents WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Name, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (s *PgDocumentStore) List(ctx context.Context) ([]*Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, name, created_at FROM genstack_documents ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

func (s *PgDocumentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM genstack_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
