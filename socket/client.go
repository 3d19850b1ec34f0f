package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"sparkpad/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer in front of the router.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MembershipChecker reports whether a user may join a project room.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// ServeWs upgrades the request to a websocket. With a projectId query
// parameter the client joins that project's room; without one it only
// receives personal notifications.
func ServeWs(hub *Hub, members MembershipChecker, w http.ResponseWriter, r *http.Request, userID string) {
	projectID := r.URL.Query().Get("projectId")
	if projectID != "" {
		ok, err := members.IsMember(r.Context(), projectID, userID)
		if err != nil {
			logger.Sugar.Errorf("Error checking membership for %s on %s: %v", userID, projectID, err)
			http.Error(w, "Could not verify project membership", http.StatusInternalServerError)
			return
		}
		if !ok {
			logger.Sugar.Warnf("Connection rejected: user %s is not a member of project %s", userID, projectID)
			http.Error(w, "Forbidden: not a project member", http.StatusForbidden)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:       hub,
		Conn:      conn,
		ProjectID: projectID,
		UserID:    userID,
		Send:      make(chan []byte, sendBuffer),
	}
	if !hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// Clients may only relay ephemeral signals inside their room;
		// everything else is produced by the REST API.
		if c.ProjectID == "" || (msg.Type != TypingType && msg.Type != CursorType) {
			logger.Sugar.Warnf("Dropped %q message from user %s", msg.Type, c.UserID)
			continue
		}

		// Set server-authoritative fields to prevent spoofing.
		msg.ProjectID = c.ProjectID
		msg.UserID = c.UserID
		c.Hub.Publish(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return // Connection is dead
			}
		}
	}
}
