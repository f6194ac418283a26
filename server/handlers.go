package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/genstack/genstack/engine"
	"github.com/genstack/genstack/storage"
	"github.com/genstack/genstack/workflow"
)

// createWorkflowRequest is the body of POST /api/workflows.
type createWorkflowRequest struct {
	Name        string         `json:"name" binding:"required"`
	Description string         `json:"description"`
	Graph       workflow.Graph `json:"graph" binding:"required"`
}

// executeRequest is the body of POST /api/workflows/:id/execute.
type executeRequest struct {
	Query string `json:"query" binding:"required"`
}

// createSessionRequest is the body of POST /api/sessions.
type createSessionRequest struct {
	WorkflowID uuid.UUID `json:"workflow_id" binding:"required"`
}

func (s *Server) handleCreateWorkflow(c *gin.Context) {
	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now().UTC()
	wf := &workflow.Workflow{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Graph:       req.Graph,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.workflows.Create(c.Request.Context(), wf); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store workflow"})
		return
	}
	c.JSON(http.StatusCreated, wf)
}

func (s *Server) handleListWorkflows(c *gin.Context) {
	workflows, err := s.workflows.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workflows"})
		return
	}
	c.JSON(http.StatusOK, workflows)
}

func (s *Server) handleGetWorkflow(c *gin.Context) {
	wf, ok := s.loadWorkflow(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (s *Server) handleUpdateWorkflow(c *gin.Context) {
	existing, ok := s.loadWorkflow(c)
	if !ok {
		return
	}

	var req createWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Graph = req.Graph
	existing.UpdatedAt = time.Now().UTC()

	if err := s.workflows.Update(c.Request.Context(), existing); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update workflow"})
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (s *Server) handleDeleteWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return
	}
	if err := s.workflows.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete workflow"})
		return
	}
	c.Status(http.StatusNoContent)
}

// handleValidate validates a graph without storing or executing it.
func (s *Server) handleValidate(c *gin.Context) {
	var graph workflow.Graph
	if err := c.ShouldBindJSON(&graph); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.cache.Validate(&graph)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleExecute runs a stored workflow once against a query, outside any
// chat session.
func (s *Server) handleExecute(c *gin.Context) {
	wf, ok := s.loadWorkflow(c)
	if !ok {
		return
	}

	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	started := time.Now()
	result, err := s.engine.Execute(c.Request.Context(), &wf.Graph, req.Query)
	s.metrics.RunDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		s.metrics.RunsTotal.WithLabelValues("failed").Inc()
		var runErr *engine.RunError
		if errors.As(err, &runErr) {
			status := http.StatusBadGateway
			if runErr.Kind == engine.RunKindInvalidGraph {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": runErr.Message(), "kind": string(runErr.Kind)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "execution failed"})
		return
	}

	s.metrics.RunsTotal.WithLabelValues("completed").Inc()
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wf, err := s.workflows.Get(c.Request.Context(), req.WorkflowID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workflow"})
		return
	}

	session, err := s.coordinator.CreateSession(c.Request.Context(), wf)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *Server) handleListMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	messages, err := s.coordinator.History(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.documents.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, docs)
}

// loadWorkflow resolves the :id path parameter to a stored workflow, writing
// the error response itself on failure.
func (s *Server) loadWorkflow(c *gin.Context) (*workflow.Workflow, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workflow id"})
		return nil, false
	}

	wf, err := s.workflows.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "workflow not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workflow"})
		return nil, false
	}
	return wf, true
}
