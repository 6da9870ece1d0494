package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xiaoyuanzhu-com/project-chat/assistant"
	"github.com/xiaoyuanzhu-com/project-chat/chat"
	"github.com/xiaoyuanzhu-com/project-chat/db"
	"github.com/xiaoyuanzhu-com/project-chat/metrics"
	"github.com/xiaoyuanzhu-com/project-chat/notifications"
	"github.com/xiaoyuanzhu-com/project-chat/status"
	"github.com/xiaoyuanzhu-com/project-chat/web"
)

const (
	testCookie = "threadID"
	testThread = "0f8b7c5e-2c1a-4d3b-9a7e-6b5c4d3e2f1a"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeAssistantAPI stands in for the remote assistant's /chat endpoint
type fakeAssistantAPI struct {
	mu       sync.Mutex
	requests []assistant.ChatRequest
	reply    string
	status   int
	gate     chan struct{}
}

func (f *fakeAssistantAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req assistant.ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	gate, code, reply := f.gate, f.status, f.reply
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if code != 0 {
		w.WriteHeader(code)
		return
	}
	_ = json.NewEncoder(w).Encode(assistant.ChatResponse{Content: reply})
}

func (f *fakeAssistantAPI) failWith(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

// hold makes replies wait until the returned channel is closed
func (f *fakeAssistantAPI) hold() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

func (f *fakeAssistantAPI) calls() []assistant.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assistant.ChatRequest(nil), f.requests...)
}

type testAPI struct {
	router   *gin.Engine
	handlers *Handlers
	remote   *fakeAssistantAPI
	chat     *chat.Service
	cache    *status.Cache
	notif    *notifications.Service
	metrics  *metrics.Metrics
}

func sampleSnapshot() status.Snapshot {
	desc := "Mockups for the landing page"
	end := "2025-01-15"
	return status.Snapshot{
		Projects: []string{"Website"},
		Actions: []status.Action{
			{Name: "create_project", Params: map[string]any{"name": "Website"}},
		},
		Timeline: []status.Task{
			{ProjectName: "Website", TaskName: "Design", TaskDesc: &desc, Start: "2025-01-01", End: &end},
			{ProjectName: "Website", TaskName: "Launch", Start: "2025-02-01"},
		},
	}
}

func newTestAPI(t *testing.T, snap status.Snapshot) *testAPI {
	t.Helper()

	store, err := db.Open(db.Config{Path: filepath.Join(t.TempDir(), "api.sqlite")})
	require.NoError(t, err)

	remote := &fakeAssistantAPI{reply: "What should the project be called?"}
	remoteSrv := httptest.NewServer(remote)

	m := metrics.New()
	client := assistant.NewClient(assistant.Config{BaseURL: remoteSrv.URL, Timeout: 5 * time.Second}, m)

	source := status.SourceFunc(func(ctx context.Context, threadID string) (status.Snapshot, error) {
		return snap, nil
	})
	cache, err := status.NewCache(source, time.Minute, m)
	require.NoError(t, err)

	notif := notifications.NewService(m)
	chatService := chat.NewService(chat.Config{}, store, client, cache, notif, m)

	shutdownCtx, cancel := context.WithCancel(context.Background())
	h := &Handlers{
		chat:     chatService,
		status:   cache,
		notif:    notif,
		metrics:  m,
		cookie:   CookieConfig{Name: testCookie, MaxAge: time.Hour},
		shutdown: shutdownCtx,
	}

	tmpl, err := web.Templates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	SetupRoutes(r, h)

	t.Cleanup(func() {
		cancel()
		chatService.Close()
		notif.Shutdown()
		remoteSrv.Close()
		cache.Close()
		_ = store.Close()
	})

	return &testAPI{
		router:   r,
		handlers: h,
		remote:   remote,
		chat:     chatService,
		cache:    cache,
		notif:    notif,
		metrics:  m,
	}
}

// do sends a request as the visitor owning testThread
func (a *testAPI) do(method, target, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.AddCookie(&http.Cookie{Name: testCookie, Value: testThread})

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp DataResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorCode {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error.Code
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
