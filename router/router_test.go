package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkpad/config"
	"sparkpad/internal/ai"
	"sparkpad/socket"
	"sparkpad/store/storetest"
)

type api struct {
	t      *testing.T
	server *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	st, _ := storetest.NewStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := socket.NewHub()
	go hub.Run(ctx)

	cfg := &config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour, AllowedOrigins: []string{"*"}}
	server := httptest.NewServer(Setup(cfg, st, hub, ai.NewService(ai.NewMockProvider("Noted."))))
	t.Cleanup(server.Close)
	return &api{t: t, server: server}
}

func (a *api) do(method, path, token string, body any, out any) *http.Response {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (a *api) register(name, email string) (string, string) {
	a.t.Helper()
	var auth struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	resp := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": name, "email": email, "password": "correct horse"}, &auth)
	require.Equal(a.t, http.StatusCreated, resp.StatusCode)
	return auth.Token, auth.User.ID
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	resp := a.do(http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = a.do(http.MethodGet, "/metrics", "", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodGet, "/api/projects", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = a.do(http.MethodGet, "/api/projects", "not-a-jwt", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	a := newAPI(t)
	resp := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "Ana", "email": "nope", "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProjectWorkflow(t *testing.T) {
	a := newAPI(t)
	anaToken, _ := a.register("Ana", "ana@example.com")
	bobToken, bobID := a.register("Bob", "bob@example.com")

	var project struct {
		ID     string `json:"id"`
		MyRole string `json:"my_role"`
	}
	resp := a.do(http.MethodPost, "/api/projects", anaToken, map[string]any{"name": "Apollo", "tags": []string{"space"}}, &project)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "owner", project.MyRole)
	base := "/api/projects/" + project.ID

	resp = a.do(http.MethodGet, base, bobToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(http.MethodPost, base+"/members", anaToken, map[string]string{"email": "bob@example.com", "role": "editor"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var notes []map[string]any
	resp = a.do(http.MethodGet, "/api/notifications", bobToken, nil, &notes)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-Unread-Count"))
	require.Len(t, notes, 1)

	var doc struct {
		ID   string `json:"id"`
		Rows []struct {
			ID      string `json:"id"`
			Content string `json:"content"`
		} `json:"rows"`
	}
	resp = a.do(http.MethodPost, base+"/documents", bobToken, map[string]string{}, &doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = a.do(http.MethodPost, base+"/documents/"+doc.ID+"/rows", bobToken, map[string]string{"content": "First"}, &doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, doc.Rows, 1)
	assert.Equal(t, "First", doc.Rows[0].Content)

	var msg struct {
		ID      string `json:"id"`
		IsAI    bool   `json:"is_ai"`
		ReplyTo string `json:"reply_to"`
	}
	resp = a.do(http.MethodPost, base+"/chat/ai", anaToken, map[string]string{"prompt": "status?"}, &msg)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, msg.IsAI)
	assert.NotEmpty(t, msg.ReplyTo)

	var history []map[string]any
	resp = a.do(http.MethodGet, base+"/chat?limit=10", bobToken, nil, &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, history, 2)

	resp = a.do(http.MethodGet, base+"/chat?limit=zero", bobToken, nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var stats struct {
		Messages  int `json:"messages"`
		Documents int `json:"documents"`
	}
	resp = a.do(http.MethodGet, base+"/stats", anaToken, nil, &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, stats.Messages)
	assert.Equal(t, 1, stats.Documents)

	resp = a.do(http.MethodDelete, base+"/members/"+bobID, anaToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(http.MethodGet, base+"/documents", bobToken, nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = a.do(http.MethodDelete, base, anaToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = a.do(http.MethodGet, base, anaToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebSocketRequiresMembership(t *testing.T) {
	a := newAPI(t)
	anaToken, _ := a.register("Ana", "ana@example.com")
	bobToken, _ := a.register("Bob", "bob@example.com")

	var project struct {
		ID string `json:"id"`
	}
	resp := a.do(http.MethodPost, "/api/projects", anaToken, map[string]string{"name": "Apollo"}, &project)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	wsURL := "ws" + strings.TrimPrefix(a.server.URL, "http") + "/ws?projectId=" + project.ID

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"&token="+bobToken, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"&token="+anaToken, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg socket.WSMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, socket.PresenceUpdateType, msg.Type)
}
