package socket

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sparkpad/pkg/logger"
	"sparkpad/pkg/metrics"
)

const (
	ChatMessageType    = "CHAT_MESSAGE"    // New chat message, human or AI
	ChatDeleteType     = "CHAT_DELETE"     // Chat message removed
	DocumentUpdateType = "DOCUMENT_UPDATE" // Document title or rows changed
	DocumentDeleteType = "DOCUMENT_DELETE" // Document removed
	ResearchUpdateType = "RESEARCH_UPDATE" // Research item, tags or comments changed
	ResearchDeleteType = "RESEARCH_DELETE" // Research item removed
	ProjectUpdateType  = "PROJECT_UPDATE"  // Project settings or membership changed
	ProjectDeleteType  = "PROJECT_DELETE"  // Project removed
	PresenceUpdateType = "PRESENCE_UPDATE" // A user joined or left the room
	TypingType         = "TYPING"          // User is typing in chat
	CursorType         = "CURSOR"          // User moved their cursor in a document
	NotificationType   = "NOTIFICATION"    // Personal notification
)

const sendBuffer = 256

type WSMessage struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a message envelope.
func NewMessage(typ, projectID, userID string, payload any) WSMessage {
	msg := WSMessage{Type: typ, ProjectID: projectID, UserID: userID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Sugar.Errorf("Error marshalling %s payload: %v", typ, err)
		} else {
			msg.Payload = data
		}
	}
	return msg
}

type UserStatus struct {
	UserID   string    `json:"user_id"`
	LastSeen time.Time `json:"last_seen"`
}

// Publisher is what services use to push events to connected clients.
type Publisher interface {
	// Publish sends msg to everyone in the project room except msg.UserID.
	Publish(msg WSMessage)
	// NotifyUser sends msg to every socket userID has open.
	NotifyUser(userID string, msg WSMessage)
	// CloseProject disconnects everyone in the project room.
	CloseProject(projectID string)
}

type directMessage struct {
	userID string
	msg    WSMessage
}

// roomEvent is either a message for a room or, with closeRoom set, the
// order to disconnect it. Both travel on one channel so a close never
// overtakes a message published before it.
type roomEvent struct {
	msg       WSMessage
	closeRoom bool
}

type Hub struct {
	rooms      map[string]map[*Client]bool // projectID -> clients
	users      map[string]map[*Client]bool // userID -> clients
	presence   map[string]map[string]UserStatus
	register   chan *Client
	unregister chan *Client
	broadcast  chan roomEvent
	direct     chan directMessage
	done       chan struct{}
	mu         sync.Mutex
	once       sync.Once
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		users:      make(map[string]map[*Client]bool),
		presence:   make(map[string]map[string]UserStatus),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan roomEvent, 64),
		direct:     make(chan directMessage, 64),
		done:       make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is cancelled, after
// closing every client connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.addClient(client)
			if client.ProjectID != "" {
				h.broadcastPresence(client.ProjectID)
			}

		case client := <-h.unregister:
			if h.removeClient(client) && client.ProjectID != "" {
				h.broadcastPresence(client.ProjectID)
			}

		case ev := <-h.broadcast:
			if ev.closeRoom {
				h.closeProject(ev.msg.ProjectID)
				continue
			}
			msg := ev.msg
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}
			h.mu.Lock()
			targets := make([]*Client, 0, len(h.rooms[msg.ProjectID]))
			for client := range h.rooms[msg.ProjectID] {
				// Don't send the message back to the sender.
				if client.UserID != msg.UserID {
					targets = append(targets, client)
				}
			}
			h.mu.Unlock()
			h.deliver(targets, payload)

		case dm := <-h.direct:
			payload, err := json.Marshal(dm.msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling direct message: %v", err)
				continue
			}
			h.mu.Lock()
			targets := make([]*Client, 0, len(h.users[dm.userID]))
			for client := range h.users[dm.userID] {
				targets = append(targets, client)
			}
			h.mu.Unlock()
			h.deliver(targets, payload)
		}
	}
}

func (h *Hub) closeProject(projectID string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.rooms[projectID]))
	for client := range h.rooms[projectID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.removeClient(client)
	}
}

// deliver queues payload on each client. A client whose buffer is full is
// lagging and gets dropped so it cannot stall the hub.
func (h *Hub) deliver(targets []*Client, payload []byte) {
	var lagging []*Client
	for _, client := range targets {
		select {
		case client.Send <- payload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
			lagging = append(lagging, client)
		}
	}
	rooms := map[string]bool{}
	for _, client := range lagging {
		if h.removeClient(client) && client.ProjectID != "" {
			rooms[client.ProjectID] = true
		}
	}
	for projectID := range rooms {
		h.broadcastPresence(projectID)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.users[client.UserID] == nil {
		h.users[client.UserID] = make(map[*Client]bool)
	}
	h.users[client.UserID][client] = true

	if client.ProjectID != "" {
		if h.rooms[client.ProjectID] == nil {
			h.rooms[client.ProjectID] = make(map[*Client]bool)
			h.presence[client.ProjectID] = make(map[string]UserStatus)
		}
		h.rooms[client.ProjectID][client] = true
		h.presence[client.ProjectID][client.UserID] = UserStatus{UserID: client.UserID, LastSeen: time.Now()}
	}
	metrics.SocketClients.Inc()
	logger.Sugar.Debugf("Client %s joined room %q", client.UserID, client.ProjectID)
}

// removeClient reports whether the client was still registered.
func (h *Hub) removeClient(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[client.UserID][client]; !ok {
		return false
	}
	delete(h.users[client.UserID], client)
	if len(h.users[client.UserID]) == 0 {
		delete(h.users, client.UserID)
	}

	if room, ok := h.rooms[client.ProjectID]; ok {
		delete(room, client)
		stillHere := false
		for other := range room {
			if other.UserID == client.UserID {
				stillHere = true
				break
			}
		}
		if !stillHere {
			delete(h.presence[client.ProjectID], client.UserID)
		}
		if len(room) == 0 {
			delete(h.rooms, client.ProjectID)
			delete(h.presence, client.ProjectID)
			logger.Sugar.Infof("Closed and cleaned up empty room: %s", client.ProjectID)
		}
	}
	close(client.Send)
	metrics.SocketClients.Dec()
	return true
}

func (h *Hub) broadcastPresence(projectID string) {
	h.mu.Lock()
	statuses := make([]UserStatus, 0, len(h.presence[projectID]))
	for _, status := range h.presence[projectID] {
		statuses = append(statuses, status)
	}
	clients := make([]*Client, 0, len(h.rooms[projectID]))
	for client := range h.rooms[projectID] {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	if len(clients) == 0 {
		return
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].UserID < statuses[j].UserID })

	payload, err := json.Marshal(NewMessage(PresenceUpdateType, projectID, "", statuses))
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	for _, client := range clients {
		select {
		case client.Send <- payload:
		default:
			// The pumps will deal with unresponsive clients.
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}

func (h *Hub) shutdown() {
	h.once.Do(func() { close(h.done) })
	h.mu.Lock()
	var clients []*Client
	for _, set := range h.users {
		for client := range set {
			clients = append(clients, client)
		}
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.removeClient(client)
	}
}

// Online returns the user IDs connected to a project room.
func (h *Hub) Online(projectID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.presence[projectID]))
	for id := range h.presence[projectID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (h *Hub) Publish(msg WSMessage) {
	select {
	case h.broadcast <- roomEvent{msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) NotifyUser(userID string, msg WSMessage) {
	select {
	case h.direct <- directMessage{userID: userID, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) CloseProject(projectID string) {
	select {
	case h.broadcast <- roomEvent{msg: WSMessage{ProjectID: projectID}, closeRoom: true}:
	case <-h.done:
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	ProjectID string
	UserID    string
	Send      chan []byte
}
