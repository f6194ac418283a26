package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/genstack/genstack/workflow"
)

// MemoryWorkflowStore is an in-process WorkflowStore, used in tests and
// single-node deployments without postgres.
type MemoryWorkflowStore struct {
	mu        sync.RWMutex
	workflows map[uuid.UUID]workflow.Workflow
}

// NewMemoryWorkflowStore creates an empty in-memory workflow store.
func NewMemoryWorkflowStore() *MemoryWorkflowStore {
	return &MemoryWorkflowStore{workflows: make(map[uuid.UUID]workflow.Workflow)}
}

func (s *MemoryWorkflowStore) Create(_ context.Context, wf *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[wf.ID] = *wf
	return nil
}

func (s *MemoryWorkflowStore) Get(_ context.Context, id uuid.UUID) (*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &wf, nil
}

func (s *MemoryWorkflowStore) List(_ context.Context) ([]*workflow.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*workflow.Workflow, 0, len(s.workflows))
	for _, wf := range s.workflows {
		copied := wf
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryWorkflowStore) Update(_ context.Context, wf *workflow.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[wf.ID]; !ok {
		return ErrNotFound
	}
	s.workflows[wf.ID] = *wf
	return nil
}

func (s *MemoryWorkflowStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[id]; !ok {
		return ErrNotFound
	}
	delete(s.workflows, id)
	return nil
}

// MemoryChatStore is an in-process ChatStore.
type MemoryChatStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]ChatSession
	messages map[uuid.UUID][]ChatMessage
}

// NewMemoryChatStore creates an empty in-memory chat store.
func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		sessions: make(map[uuid.UUID]ChatSession),
		messages: make(map[uuid.UUID][]ChatMessage),
	}
}

func (s *MemoryChatStore) CreateSession(_ context.Context, session *ChatSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryChatStore) GetSession(_ context.Context, id uuid.UUID) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &session, nil
}

func (s *MemoryChatStore) AppendMessage(_ context.Context, message *ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return ErrNotFound
	}
	s.messages[message.SessionID] = append(s.messages[message.SessionID], *message)
	return nil
}

func (s *MemoryChatStore) ListMessages(_ context.Context, sessionID uuid.UUID) ([]*ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return nil, ErrNotFound
	}
	stored := s.messages[sessionID]
	out := make([]*ChatMessage, 0, len(stored))
	for _, message := range stored {
		copied := message
		out = append(out, &copied)
	}
	return out, nil
}

// MemoryDocumentStore is an in-process DocumentStore.
type MemoryDocumentStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryDocumentStore creates an empty in-memory document store.
func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{docs: make(map[string]Document)}
}

func (s *MemoryDocumentStore) Put(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[doc.ID] = *doc
	return nil
}

func (s *MemoryDocumentStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryDocumentStore) List(_ context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		copied := doc
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryDocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return ErrNotFound
	}
	delete(s.docs, id)
	return nil
}
