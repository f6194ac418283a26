package storage

import (
	"context"
	"fmt"
)

// schemaStatements creates the relational tables. Vector storage has its own
// schema in providers/vectorstore.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS genstack_workflows (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		graph JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS genstack_chat_sessions (
		id UUID PRIMARY KEY,
		workflow_id UUID NOT NULL,
		graph JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS genstack_chat_messages (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS genstack_chat_messages_session_idx
		ON genstack_chat_messages (session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS genstack_documents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the storage tables if they do not exist. Statements
// are idempotent, so calling it on every startup is safe.
func EnsureSchema(ctx context.Context, db Querier) error {
	for _, statement := range schemaStatements {
		if _, err := db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
