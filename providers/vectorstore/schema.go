package vectorstore

import (
	"context"
	"fmt"
)

// embeddingDimensions matches text-embedding-3-small. Changing providers with
// a different dimensionality requires recreating the table.
const embeddingDimensions = 1536

// EnsureSchema creates the pgvector extension and the passages table if they
// do not exist. Intended for development and tests; production schemas are
// managed by migrations.
func (store *PgVectorStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, store.tableName, embeddingDimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s
			USING hnsw (embedding vector_cosine_ops)`,
			indexPrefix(store.tableName), store.tableName),
	}

	for _, statement := range statements {
		if _, err := store.db.Exec(ctx, statement); err != nil {
			return &StoreError{Store: "pgvector", Message: "ensure schema", Err: err}
		}
	}
	return nil
}

// indexPrefix strips identifier quoting so the index name stays a bare
// identifier.
func indexPrefix(tableName string) string {
	cleaned := make([]rune, 0, len(tableName))
	for _, r := range tableName {
		if r != '"' {
			cleaned = append(cleaned, r)
		}
	}
	return string(cleaned)
}
