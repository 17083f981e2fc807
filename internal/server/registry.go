package server

import (
	"log"
	"sort"
	"sync"

	"github.com/npezzotti/go-office/internal/types"
)

// ConnectionRegistry tracks the live connection for each authenticated user.
// A user has at most one current connection; registering a new one for the
// same user supersedes the old bookkeeping without closing the old socket,
// which is then reaped when its own close event arrives.
type ConnectionRegistry struct {
	mu     sync.Mutex
	byUser map[int]*Client
	log    *log.Logger
}

func NewConnectionRegistry(logger *log.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser: make(map[int]*Client),
		log:    logger,
	}
}

// Register makes c the current connection for its user and returns the
// connection it displaced, if any.
func (r *ConnectionRegistry) Register(c *Client) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.byUser[c.user.Id]
	r.byUser[c.user.Id] = c
	if prev != nil {
		r.log.Printf("connection %s displaces %s for user %d", c.connId, prev.connId, c.user.Id)
	}

	return prev
}

// Lookup returns the current connection for a user.
func (r *ConnectionRegistry) Lookup(userId int) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byUser[userId]
	return c, ok
}

// Unregister removes c if it is still the user's current connection.
// It reports whether c was current; an orphaned or already-removed
// connection is a no-op.
func (r *ConnectionRegistry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byUser[c.user.Id]
	if !ok || cur.connId != c.connId {
		return false
	}

	delete(r.byUser, c.user.Id)
	return true
}

// Clients returns a snapshot of all current connections.
func (r *ConnectionRegistry) Clients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := make([]*Client, 0, len(r.byUser))
	for _, c := range r.byUser {
		clients = append(clients, c)
	}

	return clients
}

// Roster returns summaries of all connected users, ordered by user id.
func (r *ConnectionRegistry) Roster() []types.UserSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	roster := make([]types.UserSummary, 0, len(r.byUser))
	for _, c := range r.byUser {
		roster = append(roster, c.user.Summary())
	}

	sort.Slice(roster, func(i, j int) bool {
		return roster[i].Id < roster[j].Id
	})

	return roster
}
