package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgWorkflowStoreGet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	wf := sampleWorkflow("stored", time.Now().UTC())
	graphJSON, err := json.Marshal(wf.Graph)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, name, description, graph, created_at, updated_at`).
		WithArgs(wf.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "graph", "created_at", "updated_at"}).
			AddRow(wf.ID, wf.Name, wf.Description, graphJSON, wf.CreatedAt, wf.UpdatedAt))

	store := NewPgWorkflowStore(mock)
	loaded, err := store.Get(context.Background(), wf.ID)
	require.NoError(t, err)

	assert.Equal(t, wf.Name, loaded.Name)
	assert.Equal(t, wf.Graph, loaded.Graph)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgWorkflowStoreGetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT id, name, description, graph, created_at, updated_at`).
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	store := NewPgWorkflowStore(mock)
	_, err = store.Get(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgWorkflowStoreDeleteNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`DELETE FROM genstack_workflows`).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewPgWorkflowStore(mock)
	err = store.Delete(context.Background(), id)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgChatStoreAppendAndListMessages(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sessionID := uuid.New()
	message := &ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   "answer",
		Metadata:  map[string]any{"execution_summary": map[string]any{"total_nodes": float64(3)}},
		CreatedAt: time.Now().UTC(),
	}
	metaJSON, err := json.Marshal(message.Metadata)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO genstack_chat_messages`).
		WithArgs(message.ID, sessionID, "assistant", "answer", string(metaJSON), message.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT id, session_id, role, content, metadata, created_at`).
		WithArgs(sessionID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "session_id", "role", "content", "metadata", "created_at"}).
			AddRow(message.ID, sessionID, "assistant", "answer", metaJSON, message.CreatedAt))

	store := NewPgChatStore(mock)
	require.NoError(t, store.AppendMessage(context.Background(), message))

	messages, err := store.ListMessages(context.Background(), sessionID)
	require.NoError(t, err)

	require.Len(t, messages, 1)
	assert.Equal(t, RoleAssistant, messages[0].Role)
	assert.Equal(t, message.Metadata, messages[0].Metadata)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgChatStoreSessionRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	session := &ChatSession{
		ID:         uuid.New(),
		WorkflowID: uuid.New(),
		Graph:      sampleWorkflow("wf", time.Now().UTC()).Graph,
		CreatedAt:  time.Now().UTC(),
	}
	graphJSON, err := json.Marshal(session.Graph)
	require.NoError(t, err)

	mock.ExpectExec(`INSERT INTO genstack_chat_sessions`).
		WithArgs(session.ID, session.WorkflowID, string(graphJSON), session.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectQuery(`SELECT id, workflow_id, graph, created_at`).
		WithArgs(session.ID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "workflow_id", "graph", "created_at"}).
			AddRow(session.ID, session.WorkflowID, graphJSON, session.CreatedAt))

	store := NewPgChatStore(mock)
	require.NoError(t, store.CreateSession(context.Background(), session))

	loaded, err := store.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Graph, loaded.Graph)
	require.NoError(t, mock.ExpectationsWereMet())
}
