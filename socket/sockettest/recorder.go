// Package sockettest records hub traffic for service tests.
package sockettest

import (
	"sync"

	"sparkpad/socket"
)

type Recorder struct {
	mu        sync.Mutex
	Published []socket.WSMessage
	Direct    map[string][]socket.WSMessage
	Closed    []string
}

func NewRecorder() *Recorder {
	return &Recorder{Direct: make(map[string][]socket.WSMessage)}
}

func (r *Recorder) Publish(msg socket.WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Published = append(r.Published, msg)
}

func (r *Recorder) NotifyUser(userID string, msg socket.WSMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Direct[userID] = append(r.Direct[userID], msg)
}

func (r *Recorder) CloseProject(projectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = append(r.Closed, projectID)
}

// Types returns the published message types in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Published))
	for _, m := range r.Published {
		out = append(out, m.Type)
	}
	return out
}

// DirectTo returns the messages sent to one user.
func (r *Recorder) DirectTo(userID string) []socket.WSMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]socket.WSMessage(nil), r.Direct[userID]...)
}
