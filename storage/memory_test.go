package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genstack/genstack/workflow"
)

func sampleWorkflow(name string, createdAt time.Time) *workflow.Workflow {
	return &workflow.Workflow{
		ID:   uuid.New(),
		Name: name,
		Graph: workflow.Graph{
			Nodes: []workflow.Node{
				{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
				{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
			},
			Edges: []workflow.Edge{{Source: "q", Target: "out"}},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryWorkflowStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWorkflowStore()

	first := sampleWorkflow("first", time.Now().Add(-time.Hour))
	second := sampleWorkflow("second", time.Now())
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.Create(ctx, second))

	loaded, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Name)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Name)

	first.Name = "renamed"
	require.NoError(t, store.Update(ctx, first))
	loaded, err = store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)

	require.NoError(t, store.Delete(ctx, first.ID))
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryWorkflowStoreMissingRecords(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryWorkflowStore()

	_, err := store.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, sampleWorkflow("x", time.Now())), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, uuid.New()), ErrNotFound)
}

func TestMemoryChatStoreMessages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChatStore()

	session := &ChatSession{ID: uuid.New(), WorkflowID: uuid.New(), CreatedAt: time.Now()}
	require.NoError(t, store.CreateSession(ctx, session))

	require.NoError(t, store.AppendMessage(ctx, &ChatMessage{
		ID: uuid.New(), SessionID: session.ID, Role: RoleUser, Content: "hi", CreatedAt: time.Now(),
	}))
	require.NoError(t, store.AppendMessage(ctx, &ChatMessage{
		ID: uuid.New(), SessionID: session.ID, Role: RoleAssistant, Content: "hello",
		Metadata:  map[string]any{"execution_summary": map[string]any{"total_nodes": 3}},
		CreatedAt: time.Now(),
	}))

	messages, err := store.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleUser, messages[0].Role)
	assert.Equal(t, RoleAssistant, messages[1].Role)
	assert.NotNil(t, messages[1].Metadata["execution_summary"])
}

func TestMemoryChatStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryChatStore()

	err := store.AppendMessage(ctx, &ChatMessage{ID: uuid.New(), SessionID: uuid.New()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ListMessages(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDocumentStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDocumentStore()

	require.NoError(t, store.Put(ctx, &Document{ID: "doc-1", Name: "intro.pdf", CreatedAt: time.Now()}))

	doc, err := store.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "intro.pdf", doc.Name)

	docs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	require.NoError(t, store.Delete(ctx, "doc-1"))
	_, err = store.Get(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
