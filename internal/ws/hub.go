package ws

import (
	"encoding/json"
	"sync"
)

// AllRoom receives every event regardless of the room it was published to.
const AllRoom = ""

// EventReceiptSubmitted is published after a kiosk order is submitted.
const EventReceiptSubmitted = "receipt.submitted"

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type roomEvent struct {
	Room  string
	Event Event
}

// Hub fans receipt events out to connected displays. Displays join a room
// named after a service mode, or AllRoom to see every receipt.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomEvent, 256),
	}
}

// Run starts the hub's main loop. Call it as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.room] == nil {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.rooms[client.room][client]; ok {
				h.drop(client)
			}
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.Event)
			if err != nil {
				continue
			}

			h.mu.Lock()
			targets := []string{ev.Room}
			if ev.Room != AllRoom {
				targets = append(targets, AllRoom)
			}
			for _, room := range targets {
				for client := range h.rooms[room] {
					select {
					case client.send <- message:
					default:
						// slow display
						h.drop(client)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop closes a client's queue and removes it. Caller holds mu.
func (h *Hub) drop(c *Client) {
	close(c.send)
	delete(h.rooms[c.room], c)
	if len(h.rooms[c.room]) == 0 {
		delete(h.rooms, c.room)
	}
}

// Broadcast queues an event for the room's displays and the AllRoom displays.
func (h *Hub) Broadcast(room string, event Event) {
	h.broadcast <- &roomEvent{Room: room, Event: event}
}

// Subscribers returns the number of displays connected to a room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
