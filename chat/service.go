package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xiaoyuanzhu-com/project-chat/assistant"
	"github.com/xiaoyuanzhu-com/project-chat/db"
	"github.com/xiaoyuanzhu-com/project-chat/log"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

var logger = log.GetLogger("Chat")

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrReplyPending = errors.New("a reply is still pending for this conversation")
	ErrRateLimited  = errors.New("too many messages, slow down")
	ErrNoThread     = errors.New("missing thread id")
)

// Store persists transcripts
type Store interface {
	AppendMessage(ctx context.Context, threadID, role, content string) (db.Message, error)
	ListMessages(ctx context.Context, threadID string) ([]db.Message, error)
	CountReplies(ctx context.Context, threadID string) (int, error)
	DeleteThread(ctx context.Context, threadID string) (int64, error)
}

// Assistant answers chat messages
type Assistant interface {
	SendChat(ctx context.Context, req assistant.ChatRequest) (string, error)
}

// Invalidator drops cached status snapshots by tag
type Invalidator interface {
	InvalidateTag(tag string) int
}

// Notifier publishes chat events to connected browsers
type Notifier interface {
	NotifyChatReply(threadID, content string)
	NotifyChatFailed(threadID, reason string)
	NotifyStatusInvalidated(tag string)
}

// Config configures the service
type Config struct {
	RatePerMinute int
	RateBurst     int
}

// Transcript is a thread's messages as the chat window shows them
type Transcript struct {
	Messages []Entry `json:"messages"`
	Pending  bool    `json:"pending"`
}

// Reply is the result of a completed send
type Reply struct {
	Content    string     `json:"reply"`
	Transcript Transcript `json:"transcript"`
}

// Service forwards chat messages to the assistant and keeps transcripts
type Service struct {
	store     Store
	assistant Assistant
	cache     Invalidator
	notifier  Notifier
	metrics   *metrics.Metrics

	marks    threadMarks
	limiters *threadLimiters

	// Background sends run under ctx and are cancelled on Close
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires the chat service. cache and notifier may be nil.
func NewService(cfg Config, store Store, a Assistant, cache Invalidator, notifier Notifier, m *metrics.Metrics) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		store:     store,
		assistant: a,
		cache:     cache,
		notifier:  notifier,
		metrics:   m,
		limiters:  newThreadLimiters(cfg.RatePerMinute, cfg.RateBurst),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Send delivers a message and waits for the assistant's reply
func (s *Service) Send(ctx context.Context, threadID, raw string) (Reply, error) {
	r, err := s.reserve(ctx, threadID, raw)
	if err != nil {
		return Reply{}, err
	}

	reply, err := s.complete(ctx, r)
	if err != nil {
		return Reply{}, err
	}

	transcript, err := s.Transcript(ctx, threadID)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Content: reply, Transcript: transcript}, nil
}

// SendAsync records the message and returns at once with the placeholder in
// the transcript. The reply is delivered through the notifier.
func (s *Service) SendAsync(ctx context.Context, threadID, raw string) (Transcript, error) {
	r, err := s.reserve(ctx, threadID, raw)
	if err != nil {
		return Transcript{}, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.complete(s.ctx, r); err != nil {
			logger.Warn().Err(err).Str("thread", threadID).Msg("background chat send failed")
		}
	}()

	return s.Transcript(ctx, threadID)
}

// reservation is a claimed thread whose user message has been stored
type reservation struct {
	threadID string
	content  string
	first    bool
	live     *liveThread
}

// reserve validates the message, claims the thread and stores the user's
// message. On success the thread stays claimed until complete runs.
func (s *Service) reserve(ctx context.Context, threadID, raw string) (reservation, error) {
	if threadID == "" {
		return reservation{}, ErrNoThread
	}

	content := strings.TrimSpace(raw)
	if content == "" {
		s.metrics.ChatMessage("rejected")
		return reservation{}, ErrEmptyMessage
	}

	if !s.limiters.allow(threadID) {
		s.metrics.ChatMessage("rate_limited")
		return reservation{}, ErrRateLimited
	}

	live := s.marks.mark(threadID)
	if live == nil {
		s.metrics.ChatMessage("conflict")
		return reservation{}, ErrReplyPending
	}

	// The remote conversation starts with the first message that got a reply;
	// a failed opener is retried as a first message again.
	replies, err := s.store.CountReplies(ctx, threadID)
	if err != nil {
		s.marks.unmark(threadID)
		return reservation{}, fmt.Errorf("count replies: %w", err)
	}

	msgs, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		s.marks.unmark(threadID)
		return reservation{}, fmt.Errorf("list messages: %w", err)
	}

	if _, err := s.store.AppendMessage(ctx, threadID, db.RoleUser, content); err != nil {
		s.marks.unmark(threadID)
		return reservation{}, fmt.Errorf("store message: %w", err)
	}

	conv := NewConversation(msgs)
	conv.Append(content)
	live.set(conv)

	return reservation{threadID: threadID, content: content, first: replies == 0, live: live}, nil
}

// complete calls the assistant and stores the reply, then releases the thread
func (s *Service) complete(ctx context.Context, r reservation) (string, error) {
	defer s.marks.unmark(r.threadID)

	reply, err := s.assistant.SendChat(ctx, assistant.ChatRequest{
		Content:        r.content,
		ThreadID:       r.threadID,
		IsFirstMessage: r.first,
	})
	if err != nil {
		s.fail(r)
		return "", fmt.Errorf("send chat: %w", err)
	}

	// Store with a context that survives the caller leaving, otherwise the
	// transcript would lose a reply the assistant already committed to.
	storeCtx := context.WithoutCancel(ctx)
	if _, err := s.store.AppendMessage(storeCtx, r.threadID, db.RoleAssistant, reply); err != nil {
		s.fail(r)
		return "", fmt.Errorf("store reply: %w", err)
	}
	r.live.update(func(c *Conversation) { c.Resolve(reply) })

	s.metrics.ChatMessage("ok")
	logger.Info().Str("thread", r.threadID).Bool("first", r.first).Msg("chat reply stored")

	// The assistant may have acted on projects, so every status view is stale
	if s.cache != nil {
		s.cache.InvalidateTag(status.Tag)
	}
	if s.notifier != nil {
		s.notifier.NotifyChatReply(r.threadID, reply)
		s.notifier.NotifyStatusInvalidated(status.Tag)
	}

	return reply, nil
}

// fail drops the placeholder and tells the thread's browsers to re-enable input
func (s *Service) fail(r reservation) {
	r.live.update(func(c *Conversation) { c.Fail() })
	s.metrics.ChatMessage("error")
	if s.notifier != nil {
		s.notifier.NotifyChatFailed(r.threadID, "The assistant could not answer. Please try again.")
	}
}

// Transcript returns the thread's messages. While a reply is in flight the
// claimed conversation is served, placeholder included.
func (s *Service) Transcript(ctx context.Context, threadID string) (Transcript, error) {
	if threadID == "" {
		return Transcript{Messages: []Entry{}}, nil
	}

	if live := s.marks.live(threadID); live != nil {
		if t, ok := live.transcript(); ok {
			return t, nil
		}
	}

	msgs, err := s.store.ListMessages(ctx, threadID)
	if err != nil {
		return Transcript{}, fmt.Errorf("list messages: %w", err)
	}

	conv := NewConversation(msgs)
	return Transcript{Messages: conv.Entries(), Pending: conv.Pending()}, nil
}

// Reset forgets a thread's transcript. The thread is claimed for the duration
// so no message can be stored while it is being deleted.
func (s *Service) Reset(ctx context.Context, threadID string) error {
	if s.marks.mark(threadID) == nil {
		return ErrReplyPending
	}
	defer s.marks.unmark(threadID)

	n, err := s.store.DeleteThread(ctx, threadID)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	logger.Info().Str("thread", threadID).Int64("messages", n).Msg("conversation reset")
	return nil
}

// Wait blocks until background sends have finished
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close cancels background sends and waits for them
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
