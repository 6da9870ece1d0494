package api

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/db"
)

const jsonType = "application/json"

func TestPostChat(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodPost, "/api/chat", `{"content":"make a project"}`, jsonType)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeData[SendMessageResponse](t, w)
	assert.Equal(t, "What should the project be called?", resp.Reply)
	assert.Equal(t, []chat.Entry{
		{Role: db.RoleUser, Content: "make a project"},
		{Role: db.RoleAssistant, Content: "What should the project be called?"},
	}, resp.Messages)

	calls := a.remote.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, testThread, calls[0].ThreadID)
	assert.True(t, calls[0].IsFirstMessage)
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.ChatMessages("ok")))
}

func TestPostChat_SecondMessageIsNotFirst(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	a.do(http.MethodPost, "/api/chat", `{"content":"one"}`, jsonType)
	a.do(http.MethodPost, "/api/chat", `{"content":"two"}`, jsonType)

	calls := a.remote.calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[1].IsFirstMessage)
}

func TestPostChat_Empty(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodPost, "/api/chat", `{"content":"   "}`, jsonType)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeValidation, decodeError(t, w))
	assert.Empty(t, a.remote.calls())
}

func TestPostChat_MalformedBody(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodPost, "/api/chat", `{"content":`, jsonType)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, ErrCodeBadRequest, decodeError(t, w))
}

func TestPostChat_AssistantError(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	a.remote.failWith(http.StatusInternalServerError)

	w := a.do(http.MethodPost, "/api/chat", `{"content":"hello"}`, jsonType)

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, ErrCodeBadGateway, decodeError(t, w))

	// The user's message survives the failure
	w = a.do(http.MethodGet, "/api/chat/messages", "", "")
	transcript := decodeData[chat.Transcript](t, w)
	assert.Equal(t, []chat.Entry{{Role: db.RoleUser, Content: "hello"}}, transcript.Messages)
	assert.False(t, transcript.Pending)
}

func TestPostChat_Async(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	gate := a.remote.hold()

	w := a.do(http.MethodPost, "/api/chat?async=1", `{"content":"make a project"}`, jsonType)

	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	transcript := decodeData[chat.Transcript](t, w)
	assert.True(t, transcript.Pending)
	assert.Equal(t, chat.Placeholder, transcript.Messages[1].Content)

	// Only one message in flight per thread
	w = a.do(http.MethodPost, "/api/chat?async=1", `{"content":"again"}`, jsonType)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrCodeConflict, decodeError(t, w))

	close(gate)
	a.chat.Wait()

	w = a.do(http.MethodGet, "/api/chat/messages", "", "")
	transcript = decodeData[chat.Transcript](t, w)
	assert.False(t, transcript.Pending)
	assert.Equal(t, "What should the project be called?", transcript.Messages[1].Content)
}

func TestDeleteChat(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	a.do(http.MethodPost, "/api/chat", `{"content":"hello"}`, jsonType)

	w := a.do(http.MethodDelete, "/api/chat", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeData[ResetResponse](t, w)
	assert.NotEqual(t, testThread, resp.ThreadID)
	assert.True(t, validThreadID(resp.ThreadID))

	cookie := findCookie(w, testCookie)
	require.NotNil(t, cookie)
	assert.Equal(t, resp.ThreadID, cookie.Value)

	w = a.do(http.MethodGet, "/api/chat/messages", "", "")
	assert.Empty(t, decodeData[chat.Transcript](t, w).Messages)
}

func TestSubmitChatForm(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodPost, "/chat", "chat-message=make+a+project&view=timeline&project=Website", "application/x-www-form-urlencoded")

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?order=End+Date&project=Website&view=timeline", w.Header().Get("Location"))
	require.Len(t, a.remote.calls(), 1)
	assert.Equal(t, "make a project", a.remote.calls()[0].Content)
}

func TestSubmitChatForm_BlankIsIgnored(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodPost, "/chat", "chat-message=+++", "application/x-www-form-urlencoded")

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?order=End+Date&view=actions", w.Header().Get("Location"))
	assert.Empty(t, a.remote.calls())
}

func TestSubmitChatForm_FailureAddsNotice(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	a.remote.failWith(http.StatusServiceUnavailable)

	w := a.do(http.MethodPost, "/chat", "chat-message=hello", "application/x-www-form-urlencoded")

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/?notice=failed&order=End+Date&view=actions", w.Header().Get("Location"))
}
