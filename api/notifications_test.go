package api

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/project-chat/notifications"
)

// nextEvent reads SSE lines until the next data line
func nextEvent(t *testing.T, r *bufio.Reader) notifications.Event {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		if data, ok := strings.CutPrefix(line, "data: "); ok {
			var ev notifications.Event
			require.NoError(t, json.Unmarshal([]byte(data), &ev))
			return ev
		}
	}
}

func TestNotificationStream(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	srv := httptest.NewServer(a.router)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: testThread})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := bufio.NewReader(resp.Body)

	assert.Equal(t, notifications.EventConnected, nextEvent(t, reader).Type)

	// Another thread's reply is not delivered; ours is
	a.notif.NotifyChatReply("someone-else", "not for you")
	a.notif.NotifyChatReply(testThread, "for you")

	ev := nextEvent(t, reader)
	assert.Equal(t, notifications.EventChatReply, ev.Type)
	assert.Equal(t, testThread, ev.ThreadID)
	assert.Equal(t, map[string]any{"content": "for you"}, ev.Data)
}
