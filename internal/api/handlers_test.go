package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"messaging/internal/cache"
	"messaging/internal/models"
	"messaging/internal/notify"
	"messaging/internal/repository"
	"messaging/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	repo := repository.NewMemoryRepo()
	pages := cache.NewMemoryStore()
	messages := service.NewMessageService(repo, nil, log)
	users := service.NewUserService(repo, log)
	dispatcher := service.NewDispatcher(repo, notify.NewLogSender(log), pages, log, time.Hour, 10)
	t.Cleanup(func() { _ = dispatcher.Stop() })
	h := NewAPIHandler(messages, users, dispatcher, log)
	return &testServer{t: t, router: NewRouter(h, cache.Page(pages, cache.DefaultPageTTL, log))}
}

func (s *testServer) do(method, target string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createUser(name string) models.User {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/users", service.NewUser{Username: name, Password: "password123"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.User](s.t, w)
}

func (s *testServer) sendMessage(from, to models.User, content string, parent *int64) models.Message {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/v1/messages", service.NewMessage{
		SenderID: from.ID, ReceiverID: to.ID, Content: content, ParentID: parent,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.Message](s.t, w)
}

func TestMessageLifecycle(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	user1 := s.createUser("user1")
	user2 := s.createUser("user2")

	msg := s.sendMessage(user1, user2, "Original", nil)
	req.Equal("Original", msg.Content)

	w := s.do(http.MethodGet, "/api/v1/users/"+strconv.FormatInt(user2.ID, 10)+"/notifications", nil)
	req.Equal(http.StatusOK, w.Code)
	notifications := decode[map[string][]models.Notification](t, w)["notifications"]
	req.Len(notifications, 1)
	req.Equal(msg.ID, notifications[0].MessageID)

	msgPath := "/api/v1/messages/" + strconv.FormatInt(msg.ID, 10)
	w = s.do(http.MethodPatch, msgPath, EditMessageRequest{EditorID: user1.ID, Content: "Edited"})
	req.Equal(http.StatusOK, w.Code, w.Body.String())
	edited := decode[models.Message](t, w)
	req.Equal("Edited", edited.Content)
	req.True(edited.Edited)

	w = s.do(http.MethodGet, msgPath+"/history", nil)
	req.Equal(http.StatusOK, w.Code)
	history := decode[map[string][]models.MessageHistory](t, w)["history"]
	req.Len(history, 1)
	req.Equal("Original", history[0].OldContent)

	w = s.do(http.MethodPatch, msgPath, EditMessageRequest{EditorID: user2.ID, Content: "Hijacked"})
	req.Equal(http.StatusForbidden, w.Code)

	readPath := "/api/v1/users/" + strconv.FormatInt(user2.ID, 10) + "/notifications/" + strconv.FormatInt(notifications[0].ID, 10) + "/read"
	req.Equal(http.StatusNoContent, s.do(http.MethodPost, readPath, nil).Code)
	w = s.do(http.MethodGet, "/api/v1/users/"+strconv.FormatInt(user2.ID, 10)+"/notifications?unread=true", nil)
	req.Empty(decode[map[string][]models.Notification](t, w)["notifications"])

	req.Equal(http.StatusBadRequest, s.do(http.MethodDelete, msgPath, nil).Code)
	req.Equal(http.StatusForbidden, s.do(http.MethodDelete, msgPath, nil, "X-User-ID", strconv.FormatInt(user2.ID, 10)).Code)
	req.Equal(http.StatusNoContent, s.do(http.MethodDelete, msgPath, nil, "X-User-ID", strconv.FormatInt(user1.ID, 10)).Code)
	req.Equal(http.StatusNotFound, s.do(http.MethodGet, msgPath, nil).Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	user1 := s.createUser("user1")

	cases := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"malformed id", http.MethodGet, "/api/v1/messages/abc", nil, http.StatusBadRequest},
		{"unknown message", http.MethodGet, "/api/v1/messages/999", nil, http.StatusNotFound},
		{"history of unknown message", http.MethodGet, "/api/v1/messages/999/history", nil, http.StatusNotFound},
		{"missing fields", http.MethodPost, "/api/v1/messages", map[string]any{"content": "hi"}, http.StatusBadRequest},
		{"unknown receiver", http.MethodPost, "/api/v1/messages", service.NewMessage{SenderID: user1.ID, ReceiverID: 999, Content: "hi"}, http.StatusNotFound},
		{"blank content", http.MethodPost, "/api/v1/messages", service.NewMessage{SenderID: user1.ID, ReceiverID: user1.ID, Content: "  "}, http.StatusBadRequest},
		{"duplicate user", http.MethodPost, "/api/v1/users", service.NewUser{Username: "user1", Password: "password123"}, http.StatusConflict},
		{"short password", http.MethodPost, "/api/v1/users", service.NewUser{Username: "user9", Password: "x"}, http.StatusBadRequest},
		{"unknown notification", http.MethodPost, "/api/v1/users/1/notifications/999/read", nil, http.StatusNotFound},
		{"bad conversation filter", http.MethodGet, "/api/v1/conversation?user_a=zero", nil, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(tc.method, tc.target, tc.body)
			require.Equal(t, tc.want, w.Code, w.Body.String())
			require.NotEmpty(t, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestConversationView(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)
	alice := s.createUser("alice")
	bob := s.createUser("bob")

	empty := s.do(http.MethodGet, "/conversation?user_a=1&user_b=2", nil)
	req.Equal(http.StatusOK, empty.Code)
	req.Contains(empty.Body.String(), "No messages yet.")

	first := s.sendMessage(alice, bob, "Hi <bob>", nil)
	s.sendMessage(bob, alice, "Hey alice", &first.ID)

	w := s.do(http.MethodGet, "/conversation", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Equal("MISS", w.Header().Get("X-Cache"))
	req.Equal("max-age=60", w.Header().Get("Cache-Control"))
	body := w.Body.String()
	req.Contains(w.Header().Get("Content-Type"), "text/html")
	req.Contains(body, "<strong>alice</strong> to <strong>bob</strong>")
	req.Contains(body, "Hi &lt;bob&gt;")
	req.Contains(body, `class="reply"`)
	req.Equal(2, strings.Count(body, "Hey alice"), "reply is listed on its own and under its parent")

	// The cached page does not see the new message until it expires.
	s.sendMessage(alice, bob, "Later", nil)
	cached := s.do(http.MethodGet, "/conversation", nil)
	req.Equal("HIT", cached.Header().Get("X-Cache"))
	req.Equal(body, cached.Body.String())

	// The JSON view is never cached.
	w = s.do(http.MethodGet, "/api/v1/conversation", nil)
	req.Equal(http.StatusOK, w.Code)
	req.Empty(w.Header().Get("X-Cache"))
	conversation := decode[map[string][]models.ConversationMessage](t, w)["messages"]
	req.Len(conversation, 3)
	req.Equal("alice", conversation[0].Sender.Username)
	req.Len(conversation[0].Replies, 1)
}

func TestDispatcherControl(t *testing.T) {
	req := require.New(t)
	s := newTestServer(t)

	cases := []struct{ path, want string }{
		{"/api/v1/dispatcher/stop", "Dispatcher already stopped"},
		{"/api/v1/dispatcher/start", "Dispatcher started"},
		{"/api/v1/dispatcher/start", "Dispatcher already running"},
		{"/api/v1/dispatcher/stop", "Dispatcher stopped"},
	}
	for _, tc := range cases {
		w := s.do(http.MethodPost, tc.path, nil)
		req.Equal(http.StatusOK, w.Code)
		req.Equal(tc.want, decode[map[string]string](t, w)["message"])
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
