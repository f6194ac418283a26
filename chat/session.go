package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

// State enumerates the session lifecycle.
type State string

const (
	// StateIdle accepts exactly one inbound user message at a time.
	StateIdle State = "idle"

	// StateAwaitingRun covers the window between accepting a message and the
	// first scheduler event.
	StateAwaitingRun State = "awaiting_run"

	// StateStreaming forwards scheduler progress until the run finishes.
	StateStreaming State = "streaming"

	// StateClosed is terminal. In-flight runs finish but their output is
	// discarded, not persisted.
	StateClosed State = "closed"
)

var (
	// ErrRunInProgress rejects a message that arrives while a run is active.
	ErrRunInProgress = errors.New("run in progress")

	// ErrSessionClosed rejects messages after Close.
	ErrSessionClosed = errors.New("session closed")
)

// Session drives execution runs for one chat connection. Sessions never
// share mutable state, so independent sessions run fully in parallel; within
// one session, message handling is strictly sequential.
//
// The graph is the snapshot taken at session creation. Later edits to the
// underlying workflow do not affect an open session.
type Session struct {
	id     uuid.UUID
	graph  workflow.Graph
	engine *engine.Engine
	store  storage.ChatStore
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewSession wraps a persisted session record in a live state machine.
func NewSession(record *storage.ChatSession, eng *engine.Engine, store storage.ChatStore, logger *slog.Logger) *Session {
	return &Session{
		id:     record.ID,
		graph:  record.Graph,
		engine: eng,
		store:  store,
		logger: logger.With("session_id", record.ID),
		state:  StateIdle,
	}
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close transitions the session to its terminal state. Safe to call more
// than once and concurrently with an active run.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

// HandleMessage accepts one user message, runs the workflow, and emits the
// session events produced along the way. A message arriving while a run is
// active is rejected with ErrRunInProgress; the active run is unaffected.
func (s *Session) HandleMessage(ctx context.Context, content string, emit Emitter) error {
	if err := s.transitionToRun(); err != nil {
		return err
	}

	if err := s.persistMessage(ctx, storage.RoleUser, content, nil); err != nil {
		s.settle(StateIdle)
		return fmt.Errorf("persist user message: %w", err)
	}
	emit(userMessageEvent(content))
	emit(thinkingEvent(true))

	s.setState(StateStreaming)
	output, summary, runErr := s.run(ctx, content)

	if s.State() == StateClosed {
		// Closed mid-run: the result is dropped on the floor.
		s.logger.Debug("discarding run output for closed session")
		return nil
	}

	if runErr != nil {
		s.logger.Warn("run failed", "error", runErr)
		emit(errorEvent(runErr.Message()))
		emit(thinkingEvent(false))
		s.settle(StateIdle)
		return nil
	}

	metadata := map[string]any{"execution_summary": summaryMetadata(summary)}
	if err := s.persistMessage(ctx, storage.RoleAssistant, output, metadata); err != nil {
		emit(errorEvent("failed to persist assistant message"))
		emit(thinkingEvent(false))
		s.settle(StateIdle)
		return fmt.Errorf("persist assistant message: %w", err)
	}
	emit(assistantMessageEvent(output, metadata))
	emit(thinkingEvent(false))
	s.settle(StateIdle)
	return nil
}

// run executes the graph and collapses the event stream into the terminal
// output, the run summary, and the failure if any.
func (s *Session) run(ctx context.Context, query string) (string, engine.Summary, *engine.RunError) {
	var output string
	var summary engine.Summary
	var runErr *engine.RunError

	for event := range s.engine.ExecuteStream(ctx, &s.graph, query) {
		switch event.Type {
		case engine.EventRunCompleted:
			output = event.Output
			summary = *event.Summary
		case engine.EventRunFailed:
			runErr = event.RunErr
			summary = *event.Summary
		}
	}
	return output, summary, runErr
}

func (s *Session) transitionToRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return ErrSessionClosed
	case StateIdle:
		s.state = StateAwaitingRun
		return nil
	default:
		return ErrRunInProgress
	}
}

// setState moves to next unless the session was closed in the meantime.
func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateClosed {
		s.state = next
	}
}

func (s *Session) settle(next State) { s.setState(next) }

func (s *Session) persistMessage(ctx context.Context, role storage.MessageRole, content string, metadata map[string]any) error {
	return s.store.AppendMessage(ctx, &storage.ChatMessage{
		ID:        uuid.New(),
		SessionID: s.id,
		Role:      role,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	})
}

func summaryMetadata(summary engine.Summary) map[string]any {
	return map[string]any{
		"total_nodes":    summary.TotalNodes,
		"executed_nodes": summary.ExecutedNodes,
		"errors":         summary.Errors,
	}
}
