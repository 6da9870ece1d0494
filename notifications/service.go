package notifications

import (
	"sync"
	"time"

	"github.com/xiaoyuanzhu-com/project-chat/metrics"
)

// EventType represents the type of notification event
type EventType string

const (
	EventConnected         EventType = "connected"
	EventChatReply         EventType = "chat-reply"
	EventChatFailed        EventType = "chat-failed"
	EventStatusInvalidated EventType = "status-invalidated"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
const subscriberBuffer = 16

// Event represents a notification event. Events with a ThreadID are only
// delivered to subscribers of that thread.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	ThreadID  string    `json:"threadId,omitempty"`
	Data      any       `json:"data,omitempty"`
}

type subscriber struct {
	threadID string
}

// Service manages SSE subscriptions and event broadcasting
type Service struct {
	mu          sync.RWMutex
	subscribers map[chan Event]subscriber
	closed      bool
	metrics     *metrics.Metrics
}

// NewService creates a new notification service
func NewService(m *metrics.Metrics) *Service {
	return &Service{
		subscribers: make(map[chan Event]subscriber),
		metrics:     m,
	}
}

// Subscribe creates a new subscription channel for a browser on threadID.
// Returns the event channel and an unsubscribe function.
func (s *Service) Subscribe(threadID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = subscriber{threadID: threadID}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		// Only close if the channel is still in subscribers map
		if _, exists := s.subscribers[ch]; exists {
			delete(s.subscribers, ch)
			close(ch)
		}
	}

	return ch, unsubscribe
}

// Notify broadcasts an event to all matching subscribers
func (s *Service) Notify(event Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ch, sub := range s.subscribers {
		if event.ThreadID != "" && event.ThreadID != sub.threadID {
			continue
		}
		select {
		case ch <- event:
		default:
			// Channel full, skip this subscriber
			s.metrics.NotificationDropped(string(event.Type))
		}
	}
}

// NotifyChatReply sends a chat-reply event to the thread's browsers
func (s *Service) NotifyChatReply(threadID, content string) {
	s.Notify(Event{
		Type:     EventChatReply,
		ThreadID: threadID,
		Data: map[string]any{
			"content": content,
		},
	})
}

// NotifyChatFailed sends a chat-failed event to the thread's browsers
func (s *Service) NotifyChatFailed(threadID, reason string) {
	s.Notify(Event{
		Type:     EventChatFailed,
		ThreadID: threadID,
		Data: map[string]any{
			"reason": reason,
		},
	})
}

// NotifyStatusInvalidated tells every browser to refetch the status panel
func (s *Service) NotifyStatusInvalidated(tag string) {
	s.Notify(Event{
		Type: EventStatusInvalidated,
		Data: map[string]any{
			"tag": tag,
		},
	})
}

// Shutdown closes all subscriber channels; later subscriptions are closed
// immediately.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = make(map[chan Event]subscriber)
}

// SubscriberCount returns the number of active subscribers
func (s *Service) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}
