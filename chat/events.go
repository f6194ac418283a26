// Package chat coordinates interactive sessions over a workflow: an explicit
// per-session state machine drives execution runs and emits client events,
// independent of any transport.
package chat

import (
	"time"
)

// EventType identifies a client-facing session event.
type EventType string

const (
	// EventUserMessage echoes an accepted user message back to the client.
	EventUserMessage EventType = "user_message"

	// EventAssistantMessage delivers the run's final output. Metadata carries
	// the execution summary.
	EventAssistantMessage EventType = "assistant_message"

	// EventThinking toggles the client's in-progress indicator.
	EventThinking EventType = "thinking"

	// EventError reports a failed run. The session stays open.
	EventError EventType = "error"
)

// Event is one entry in a session's outbound stream.
type Event struct {
	Type      EventType      `json:"type"`
	Content   string         `json:"content,omitempty"`
	Thinking  *bool          `json:"thinking,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Emitter receives session events. Implementations must be safe to call from
// the goroutine handling the session's message.
type Emitter func(Event)

func userMessageEvent(content string) Event {
	return Event{Type: EventUserMessage, Content: content, Timestamp: time.Now()}
}

func assistantMessageEvent(content string, metadata map[string]any) Event {
	return Event{Type: EventAssistantMessage, Content: content, Metadata: metadata, Timestamp: time.Now()}
}

func thinkingEvent(active bool) Event {
	return Event{Type: EventThinking, Thinking: &active, Timestamp: time.Now()}
}

func errorEvent(message string) Event {
	return Event{Type: EventError, Content: message, Timestamp: time.Now()}
}
