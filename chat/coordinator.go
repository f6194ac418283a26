package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

// Coordinator owns the live sessions of a process. It creates session
// records, validates the workflow snapshot exactly once per session, and
// hands out Session state machines to transports.
type Coordinator struct {
	engine *engine.Engine
	store  storage.ChatStore
	cache  *workflow.ValidationCache
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewCoordinator creates a coordinator over the given engine and store.
func NewCoordinator(eng *engine.Engine, store storage.ChatStore, cache *workflow.ValidationCache, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		engine:   eng,
		store:    store,
		cache:    cache,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// CreateSession validates the workflow's graph and persists a new session
// bound to that snapshot. Validation happens here, once per session, never
// per message.
func (c *Coordinator) CreateSession(ctx context.Context, wf *workflow.Workflow) (*storage.ChatSession, error) {
	validation, err := c.cache.Validate(&wf.Graph)
	if err != nil {
		return nil, fmt.Errorf("validate workflow %s: %w", wf.ID, err)
	}
	if !validation.Valid {
		return nil, fmt.Errorf("workflow %s is not executable: %s", wf.ID, strings.Join(validation.Errors, "; "))
	}

	record := &storage.ChatSession{
		ID:         uuid.New(),
		WorkflowID: wf.ID,
		Graph:      wf.Graph,
		CreatedAt:  time.Now().UTC(),
	}
	if err := c.store.CreateSession(ctx, record); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	c.logger.Info("session created", "session_id", record.ID, "workflow_id", wf.ID)
	return record, nil
}

// Attach returns the live state machine for a session, creating it from the
// persisted record on first attach. A missing session surfaces
// storage.ErrNotFound so transports can map it to their own close code.
func (c *Coordinator) Attach(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	c.mu.Lock()
	if session, ok := c.sessions[sessionID]; ok {
		c.mu.Unlock()
		return session, nil
	}
	c.mu.Unlock()

	record, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if session, ok := c.sessions[sessionID]; ok {
		return session, nil
	}
	session := NewSession(record, c.engine, c.store, c.logger)
	c.sessions[sessionID] = session
	return session, nil
}

// Detach closes a session and forgets it. The persisted record and message
// history remain.
func (c *Coordinator) Detach(sessionID uuid.UUID) {
	c.mu.Lock()
	session, ok := c.sessions[sessionID]
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	if ok {
		session.Close()
		c.logger.Info("session closed", "session_id", sessionID)
	}
}

// History returns the persisted messages of a session in order.
func (c *Coordinator) History(ctx context.Context, sessionID uuid.UUID) ([]*storage.ChatMessage, error) {
	return c.store.ListMessages(ctx, sessionID)
}
