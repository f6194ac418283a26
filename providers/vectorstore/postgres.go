package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// defaultTableName is the PostgreSQL table used when no custom name is provided.
const defaultTableName = "genstack_passages"

// Querier abstracts the pgx query methods needed by PgVectorStore. Both
// *pgxpool.Pool and pgx.Tx satisfy this interface, allowing callers to inject
// either a connection pool or a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgVectorStore implements SimilaritySearch on PostgreSQL with the pgvector
// extension. Ranking uses cosine distance (the <=> operator).
type PgVectorStore struct {
	db        Querier
	tableName string
}

var _ SimilaritySearch = (*PgVectorStore)(nil)

// PgOption configures optional PgVectorStore behavior.
type PgOption func(*PgVectorStore)

// WithTableName overrides the default table name ("genstack_passages").
// The name is sanitized via pgx.Identifier because it is interpolated into
// queries via fmt.Sprintf.
func WithTableName(name string) PgOption {
	return func(store *PgVectorStore) {
		store.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// NewPgVectorStore creates a pgvector-backed store. The db parameter must be
// a pgx-compatible query executor (typically *pgxpool.Pool).
func NewPgVectorStore(db Querier, opts ...PgOption) *PgVectorStore {
	store := &PgVectorStore{db: db, tableName: defaultTableName}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Upsert implements SimilaritySearch.
func (store *PgVectorStore) Upsert(ctx context.Context, documents []Document) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3::vector, $4::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata`, store.tableName)

	for _, document := range documents {
		metaJSON, err := json.Marshal(document.Metadata)
		if err != nil {
			return &StoreError{Store: "pgvector", Message: "marshal metadata", Err: err}
		}
		if _, err := store.db.Exec(ctx, query, document.ID, document.Text, vectorLiteral(document.Embedding), string(metaJSON)); err != nil {
			return &StoreError{Store: "pgvector", Message: fmt.Sprintf("upsert document %s", document.ID), Err: err}
		}
	}
	return nil
}

// Search implements SimilaritySearch. pgvector's <=> operator returns cosine
// distance, so score is reported as 1 - distance to keep "higher is better"
// semantics consistent with MemoryStore.
func (store *PgVectorStore) Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT content, 1 - (embedding <=> $1::vector) AS score, metadata
		FROM %s`, store.tableName)

	args := []any{vectorLiteral(queryVector)}
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, &StoreError{Store: "pgvector", Message: "marshal filter", Err: err}
		}
		query += " WHERE metadata @> $2::jsonb"
		args = append(args, string(filterJSON))
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1::vector LIMIT %d", topK)

	rows, err := store.db.Query(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Store: "pgvector", Message: "similarity query", Err: err}
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		var metaJSON []byte
		if err := rows.Scan(&match.Text, &match.Score, &metaJSON); err != nil {
			return nil, &StoreError{Store: "pgvector", Message: "scan row", Err: err}
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &match.Metadata); err != nil {
				return nil, &StoreError{Store: "pgvector", Message: "decode metadata", Err: err}
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Store: "pgvector", Message: "iterate rows", Err: err}
	}
	return matches, nil
}

// vectorLiteral renders a float32 slice in pgvector's input format,
// e.g. "[0.1,0.2,0.3]".
func vectorLiteral(vector []float32) string {
	parts := make([]string, len(vector))
	for i, component := range vector {
		parts[i] = strconv.FormatFloat(float64(component), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
