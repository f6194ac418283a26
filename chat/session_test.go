package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

// scriptedExecutor runs a function per node type, defaulting to echo.
type scriptedExecutor struct {
	fn func(ctx context.Context, node workflow.Node, input string) (string, error)
}

func (s *scriptedExecutor) Execute(ctx context.Context, node workflow.Node, input string, _ *engine.RunContext) (string, error) {
	if s.fn != nil {
		return s.fn(ctx, node, input)
	}
	return fmt.Sprintf("%s(%s)", node.ID, input), nil
}

func testGraph() workflow.Graph {
	return workflow.Graph{
		Nodes: []workflow.Node{
			{ID: "q", Type: workflow.NodeUserQuery, Config: workflow.UserQueryConfig{}},
			{ID: "gen", Type: workflow.NodeLLMEngine, Config: workflow.LLMEngineConfig{Provider: "openai", Model: "gpt-4o-mini"}},
			{ID: "out", Type: workflow.NodeOutput, Config: workflow.OutputConfig{}},
		},
		Edges: []workflow.Edge{
			{Source: "q", Target: "gen"},
			{Source: "gen", Target: "out"},
		},
	}
}

func testEngine(executors engine.ExecutorMap) *engine.Engine {
	if executors == nil {
		echo := &scriptedExecutor{}
		executors = engine.ExecutorMap{
			workflow.NodeUserQuery: echo,
			workflow.NodeLLMEngine: echo,
			workflow.NodeOutput:    echo,
		}
	}
	return engine.New(executors, engine.WithLogger(slog.Default()))
}

func newTestSession(t *testing.T, executors engine.ExecutorMap) (*Session, *storage.MemoryChatStore) {
	t.Helper()
	store := storage.NewMemoryChatStore()
	record := &storage.ChatSession{
		ID:         uuid.New(),
		WorkflowID: uuid.New(),
		Graph:      testGraph(),
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateSession(context.Background(), record))
	return NewSession(record, testEngine(executors), store, slog.Default()), store
}

func collect(events *[]Event) Emitter {
	return func(event Event) { *events = append(*events, event) }
}

func TestHandleMessageHappyPath(t *testing.T) {
	session, store := newTestSession(t, nil)

	var events []Event
	require.NoError(t, session.HandleMessage(context.Background(), "hello", collect(&events)))

	require.Len(t, events, 4)
	assert.Equal(t, EventUserMessage, events[0].Type)
	assert.Equal(t, "hello", events[0].Content)
	assert.Equal(t, EventThinking, events[1].Type)
	assert.True(t, *events[1].Thinking)
	assert.Equal(t, EventAssistantMessage, events[2].Type)
	assert.Equal(t, "out(gen(q(hello)))", events[2].Content)
	assert.Equal(t, EventThinking, events[3].Type)
	assert.False(t, *events[3].Thinking)

	assert.Equal(t, StateIdle, session.State())

	messages, err := store.ListMessages(context.Background(), session.ID())
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, storage.RoleUser, messages[0].Role)
	assert.Equal(t, storage.RoleAssistant, messages[1].Role)

	summary, ok := messages[1].Metadata["execution_summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 3, summary["total_nodes"])
	assert.Equal(t, 3, summary["executed_nodes"])
}

func TestHandleMessageRunFailure(t *testing.T) {
	failing := &scriptedExecutor{fn: func(_ context.Context, node workflow.Node, _ string) (string, error) {
		return "", engine.NewNodeError(node.ID, engine.KindLLMProvider, errors.New("provider down"))
	}}
	executors := engine.ExecutorMap{
		workflow.NodeUserQuery: &scriptedExecutor{},
		workflow.NodeLLMEngine: failing,
		workflow.NodeOutput:    &scriptedExecutor{},
	}
	session, store := newTestSession(t, executors)

	var events []Event
	require.NoError(t, session.HandleMessage(context.Background(), "hello", collect(&events)))

	types := make([]EventType, len(events))
	for i, event := range events {
		types[i] = event.Type
	}
	assert.Equal(t, []EventType{EventUserMessage, EventThinking, EventError, EventThinking}, types)
	assert.Equal(t, StateIdle, session.State())

	// Only the user message is persisted; no assistant message on failure.
	messages, err := store.ListMessages(context.Background(), session.ID())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, storage.RoleUser, messages[0].Role)
}

func TestHandleMessageRejectedWhileRunning(t *testing.T) {
	release := make(chan struct{})
	blocking := &scriptedExecutor{fn: func(ctx context.Context, node workflow.Node, input string) (string, error) {
		if node.Type == workflow.NodeLLMEngine {
			<-release
		}
		return node.ID, nil
	}}
	executors := engine.ExecutorMap{
		workflow.NodeUserQuery: &scriptedExecutor{},
		workflow.NodeLLMEngine: blocking,
		workflow.NodeOutput:    &scriptedExecutor{},
	}
	session, _ := newTestSession(t, executors)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var events []Event
		_ = session.HandleMessage(context.Background(), "first", collect(&events))
	}()

	// Wait for the run to start before sending the second message.
	require.Eventually(t, func() bool {
		return session.State() != StateIdle
	}, time.Second, 5*time.Millisecond)

	var events []Event
	err := session.HandleMessage(context.Background(), "second", collect(&events))
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, events)

	close(release)
	wg.Wait()
	assert.Equal(t, StateIdle, session.State())
}

func TestClosedSessionRejectsMessages(t *testing.T) {
	session, _ := newTestSession(t, nil)
	session.Close()

	err := session.HandleMessage(context.Background(), "hello", func(Event) {})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCloseDuringRunDiscardsOutput(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := &scriptedExecutor{fn: func(_ context.Context, node workflow.Node, input string) (string, error) {
		if node.Type == workflow.NodeLLMEngine {
			close(started)
			<-release
		}
		return node.ID, nil
	}}
	executors := engine.ExecutorMap{
		workflow.NodeUserQuery: &scriptedExecutor{},
		workflow.NodeLLMEngine: blocking,
		workflow.NodeOutput:    &scriptedExecutor{},
	}
	session, store := newTestSession(t, executors)

	var events []Event
	done := make(chan error, 1)
	go func() {
		done <- session.HandleMessage(context.Background(), "hello", collect(&events))
	}()

	<-started
	session.Close()
	close(release)
	require.NoError(t, <-done)

	// The user message was persisted before the close; the run's output was
	// discarded.
	messages, err := store.ListMessages(context.Background(), session.ID())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, storage.RoleUser, messages[0].Role)

	for _, event := range events {
		assert.NotEqual(t, EventAssistantMessage, event.Type)
	}
	assert.Equal(t, StateClosed, session.State())
}

func TestSessionsRunIndependently(t *testing.T) {
	first, firstStore := newTestSession(t, nil)
	second, secondStore := newTestSession(t, nil)

	var wg sync.WaitGroup
	for _, session := range []*Session{first, second} {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			var events []Event
			assert.NoError(t, s.HandleMessage(context.Background(), "hello", collect(&events)))
		}(session)
	}
	wg.Wait()

	firstMessages, err := firstStore.ListMessages(context.Background(), first.ID())
	require.NoError(t, err)
	secondMessages, err := secondStore.ListMessages(context.Background(), second.ID())
	require.NoError(t, err)
	assert.Len(t, firstMessages, 2)
	assert.Len(t, secondMessages, 2)
}

func TestCoordinatorCreateSessionValidates(t *testing.T) {
	store := storage.NewMemoryChatStore()
	coordinator := NewCoordinator(testEngine(nil), store, workflow.NewValidationCache(), slog.Default())

	valid := &workflow.Workflow{ID: uuid.New(), Name: "ok", Graph: testGraph()}
	session, err := coordinator.CreateSession(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, valid.ID, session.WorkflowID)

	broken := &workflow.Workflow{ID: uuid.New(), Name: "broken", Graph: workflow.Graph{}}
	_, err = coordinator.CreateSession(context.Background(), broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not executable")
}

func TestCoordinatorAttachUnknownSession(t *testing.T) {
	store := storage.NewMemoryChatStore()
	coordinator := NewCoordinator(testEngine(nil), store, workflow.NewValidationCache(), slog.Default())

	_, err := coordinator.Attach(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCoordinatorAttachReturnsSameSession(t *testing.T) {
	store := storage.NewMemoryChatStore()
	coordinator := NewCoordinator(testEngine(nil), store, workflow.NewValidationCache(), slog.Default())

	record, err := coordinator.CreateSession(context.Background(), &workflow.Workflow{ID: uuid.New(), Graph: testGraph()})
	require.NoError(t, err)

	first, err := coordinator.Attach(context.Background(), record.ID)
	require.NoError(t, err)
	second, err := coordinator.Attach(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Same(t, first, second)
}
