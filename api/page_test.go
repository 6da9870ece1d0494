package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/project-chat/status"
)

func TestGetPage_ActionsView(t *testing.T) {
	a := newTestAPI(t, status.Snapshot{})

	w := a.do(http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	body := w.Body.String()
	assert.Contains(t, body, `name="chat-message"`)
	assert.Contains(t, body, status.NoActionsHint)
}

func TestGetPage_ShowsTranscript(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())
	a.do(http.MethodPost, "/api/chat", `{"content":"make a project"}`, jsonType)

	w := a.do(http.MethodGet, "/", "", "")

	body := w.Body.String()
	assert.Contains(t, body, `<li class="user">make a project</li>`)
	assert.Contains(t, body, `<li class="assistant">What should the project be called?</li>`)
	assert.Contains(t, body, "create_project")
}

func TestGetPage_Timeline(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodGet, "/?view=timeline&project=Website", "", "")

	body := w.Body.String()
	assert.Contains(t, body, "<details")
	assert.Contains(t, body, "<span>Design</span><span>2025-01-01 to 2025-01-15</span>")
	assert.Contains(t, body, `<option value="Website" selected>Website</option>`)
	assert.Contains(t, body, `<option value="End Date" selected>End Date</option>`)
}

func TestGetPage_TimelineWithoutProject(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodGet, "/?view=timeline", "", "")

	body := w.Body.String()
	assert.Contains(t, body, status.NoProjectMessage)
	assert.NotContains(t, body, "<details")
}

func TestGetPage_Notice(t *testing.T) {
	a := newTestAPI(t, sampleSnapshot())

	w := a.do(http.MethodGet, "/?notice=failed", "", "")

	assert.Contains(t, w.Body.String(), notices["failed"])
}
