package notifications

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
)

func TestNotify_ThreadScoped(t *testing.T) {
	s := NewService(nil)
	a, unsubA := s.Subscribe("thread-a")
	defer unsubA()
	b, unsubB := s.Subscribe("thread-b")
	defer unsubB()

	s.NotifyChatReply("thread-a", "hello")

	require.Len(t, a, 1)
	assert.Empty(t, b)

	ev := <-a
	assert.Equal(t, EventChatReply, ev.Type)
	assert.Equal(t, "thread-a", ev.ThreadID)
	assert.NotZero(t, ev.Timestamp)
	assert.Equal(t, map[string]any{"content": "hello"}, ev.Data)
}

func TestNotify_BroadcastReachesEveryone(t *testing.T) {
	s := NewService(nil)
	a, unsubA := s.Subscribe("thread-a")
	defer unsubA()
	b, unsubB := s.Subscribe("")
	defer unsubB()

	s.NotifyStatusInvalidated("status")

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}

func TestNotify_DropsWhenFull(t *testing.T) {
	m := metrics.New()
	s := NewService(m)
	ch, unsub := s.Subscribe("t")
	defer unsub()

	for range subscriberBuffer + 3 {
		s.NotifyChatFailed("t", "boom")
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.NotificationsDropped(string(EventChatFailed))))
}

func TestUnsubscribe(t *testing.T) {
	s := NewService(nil)
	ch, unsub := s.Subscribe("t")
	assert.Equal(t, 1, s.SubscriberCount())

	unsub()
	unsub()

	assert.Equal(t, 0, s.SubscriberCount())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestShutdown(t *testing.T) {
	s := NewService(nil)
	ch, unsub := s.Subscribe("t")

	s.Shutdown()
	s.Shutdown()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := s.Subscribe("t")
	_, ok = <-late
	assert.False(t, ok)
}
