package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/genstack/genstack/chat"
	"github.com/genstack/genstack/storage"
)

// closeCodeNotFound mirrors the application close code the frontend expects
// when a session id does not resolve.
const closeCodeNotFound = 4004

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// inboundMessage is what the client sends over the chat socket.
type inboundMessage struct {
	Message string `json:"message"`
}

// handleChatSocket upgrades the connection and pumps one session. Messages
// are handled strictly in arrival order; a message arriving while a run is
// active gets an error event, not a second run.
func (s *Server) handleChatSocket(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	session, err := s.coordinator.Attach(c.Request.Context(), sessionID)
	if err != nil {
		reason := "session not found"
		if !errors.Is(err, storage.ErrNotFound) {
			reason = "failed to attach session"
		}
		s.closeWith(conn, closeCodeNotFound, reason)
		return
	}

	s.metrics.SessionsActive.Inc()
	defer func() {
		s.coordinator.Detach(sessionID)
		s.metrics.SessionsActive.Dec()
	}()

	// Gorilla allows one concurrent writer; events from the run goroutine
	// and control frames share this mutex.
	var writeMu sync.Mutex
	emit := func(event chat.Event) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(event); err != nil {
			s.logger.Debug("websocket write failed", "session_id", sessionID, "error", err)
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket closed unexpectedly", "session_id", sessionID, "error", err)
			}
			return
		}
		if inbound.Message == "" {
			continue
		}

		s.metrics.MessagesTotal.Inc()
		started := time.Now()
		err := session.HandleMessage(c.Request.Context(), inbound.Message, emit)
		s.metrics.RunDuration.Observe(time.Since(started).Seconds())

		switch {
		case errors.Is(err, chat.ErrRunInProgress):
			emit(chat.Event{Type: chat.EventError, Content: "run in progress", Timestamp: time.Now()})
		case errors.Is(err, chat.ErrSessionClosed):
			return
		case err != nil:
			s.logger.Error("message handling failed", "session_id", sessionID, "error", err)
			emit(chat.Event{Type: chat.EventError, Content: "internal error", Timestamp: time.Now()})
		}
	}
}

func (s *Server) closeWith(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second)); err != nil {
		s.logger.Debug("websocket close write failed", "error", err)
	}
}
