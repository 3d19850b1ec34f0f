package socket

import (
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
)

type memberSet map[string]bool

func (m memberSet) IsMember(_ context.Context, projectID, userID string) (bool, error) {
	return m[projectID+"/"+userID], nil
}

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	var msg WSMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal WSMessage JSON")
	return msg
}

func presenceIDs(t *testing.T, msg WSMessage) []string {
	t.Helper()
	require.Equal(t, PresenceUpdateType, msg.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(msg.Payload, &statuses))
	ids := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ids = append(ids, s.UserID)
	}
	return ids
}

func startHub(t *testing.T, members memberSet) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub()
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, members, w, r, r.URL.Query().Get("user_id"))
	}))
	t.Cleanup(server.Close)
	return hub, "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubRoomFlow(t *testing.T) {
	members := memberSet{"p1/user1": true, "p1/user2": true}
	hub, wsURL := startHub(t, members)

	conn1 := dial(t, wsURL+"/ws?projectId=p1&user_id=user1")
	assert.Equal(t, []string{"user1"}, presenceIDs(t, readMessage(t, conn1)))

	conn2 := dial(t, wsURL+"/ws?projectId=p1&user_id=user2")
	assert.Equal(t, []string{"user1", "user2"}, presenceIDs(t, readMessage(t, conn1)))
	assert.Equal(t, []string{"user1", "user2"}, presenceIDs(t, readMessage(t, conn2)))
	assert.Equal(t, []string{"user1", "user2"}, hub.Online("p1"))

	// Typing signals are relayed with server-side identity.
	typing, _ := json.Marshal(WSMessage{Type: TypingType, UserID: "spoofed", ProjectID: "other"})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, typing))
	got := readMessage(t, conn1)
	assert.Equal(t, TypingType, got.Type)
	assert.Equal(t, "user2", got.UserID)
	assert.Equal(t, "p1", got.ProjectID)

	// Clients cannot inject REST-only events.
	forged, _ := json.Marshal(WSMessage{Type: ChatMessageType, Payload: json.RawMessage(`{"content":"fake"}`)})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, forged))

	hub.Publish(NewMessage(ChatMessageType, "p1", "user2", map[string]string{"content": "real"}))
	got = readMessage(t, conn1)
	assert.Equal(t, ChatMessageType, got.Type)
	assert.JSONEq(t, `{"content":"real"}`, string(got.Payload))

	// User 2 leaves; user 1 sees the presence update.
	conn2.Close()
	assert.Equal(t, []string{"user1"}, presenceIDs(t, readMessage(t, conn1)))
}

func TestHubRejectsNonMember(t *testing.T) {
	_, wsURL := startHub(t, memberSet{})
	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws?projectId=p1&user_id=intruder", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHubNotifyUser(t *testing.T) {
	hub, wsURL := startHub(t, memberSet{})
	conn := dial(t, wsURL+"/ws?user_id=user9")

	// Wait for registration before notifying.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.users["user9"]) == 1
	}, time.Second, 10*time.Millisecond)

	hub.NotifyUser("user9", NewMessage(NotificationType, "", "user9", map[string]string{"title": "hi"}))
	got := readMessage(t, conn)
	assert.Equal(t, NotificationType, got.Type)
	assert.JSONEq(t, `{"title":"hi"}`, string(got.Payload))
}

func TestHubCloseProject(t *testing.T) {
	hub, wsURL := startHub(t, memberSet{"p1/user1": true})
	conn := dial(t, wsURL+"/ws?projectId=p1&user_id=user1")
	_ = readMessage(t, conn)

	hub.CloseProject("p1")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection should be closed")
	assert.Empty(t, hub.Online("p1"))
}

func TestHubDeliversBeforeClosingRoom(t *testing.T) {
	hub, wsURL := startHub(t, memberSet{"p1/user1": true})
	conn := dial(t, wsURL+"/ws?projectId=p1&user_id=user1")
	_ = readMessage(t, conn)

	hub.Publish(NewMessage(ProjectDeleteType, "p1", "owner", map[string]string{"id": "p1"}))
	hub.CloseProject("p1")

	got := readMessage(t, conn)
	assert.Equal(t, ProjectDeleteType, got.Type)
	assert.JSONEq(t, `{"id":"p1"}`, string(got.Payload))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "connection should be closed after the delete event")
}
