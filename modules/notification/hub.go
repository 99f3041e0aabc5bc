package notification

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is one live feed connection.
type Client struct {
	ID      string
	OwnerID string
	Conn    Conn
}

// envelope addresses a payload to one owner's connections.
type envelope struct {
	ownerID string
	payload any
}

// Hub fans task notifications out to the connections of their owner.
type Hub struct {
	clients    map[string]*Client         // clientID -> Client
	owners     map[string]map[string]bool // ownerID -> set of clientIDs
	register   chan *Client
	unregister chan *Client
	publish    chan *envelope
	done       chan struct{}
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		owners:     make(map[string]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run processes hub operations until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case env := <-h.publish:
			h.handlePublish(env)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		_ = client.Conn.Close()
	}
	h.clients = make(map[string]*Client)
	h.owners = make(map[string]map[string]bool)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client
	if h.owners[client.OwnerID] == nil {
		h.owners[client.OwnerID] = make(map[string]bool)
	}
	h.owners[client.OwnerID][client.ID] = true
	log.Printf("[hub] Client %s registered for owner %s", client.ID, client.OwnerID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}
	delete(h.clients, client.ID)
	if set := h.owners[client.OwnerID]; set != nil {
		delete(set, client.ID)
		if len(set) == 0 {
			delete(h.owners, client.OwnerID)
		}
	}
	log.Printf("[hub] Client %s unregistered", client.ID)
}

func (h *Hub) handlePublish(env *envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := h.owners[env.ownerID]
	if len(ids) == 0 {
		return
	}

	data, err := json.Marshal(env.payload)
	if err != nil {
		log.Printf("[hub] Failed to marshal notification: %v", err)
		return
	}

	for id := range ids {
		client := h.clients[id]
		if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[hub] Failed to send to client %s: %v", client.ID, err)
		}
	}
}

// Register adds a client. It is a no-op once the hub has stopped.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues payload for every connection of ownerID.
func (h *Hub) Publish(ownerID string, payload any) {
	select {
	case h.publish <- &envelope{ownerID: ownerID, payload: payload}:
	case <-h.done:
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// OwnerClientCount returns the number of connections held by one owner.
func (h *Hub) OwnerClientCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.owners[ownerID])
}
