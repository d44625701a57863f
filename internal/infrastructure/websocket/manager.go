package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"meetup/internal/domain/entity"
	"meetup/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// RoomAccess decides whether a user may receive a room's message events.
type RoomAccess interface {
	CanSubscribe(ctx context.Context, userID, roomID string) error
}

// RoomWatcher starts and stops the message subscription of a room as the
// first subscriber arrives and the last one leaves.
type RoomWatcher interface {
	WatchRoom(roomID string)
	UnwatchRoom(roomID string)
}

// Client represents a WebSocket connection client
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
	rooms  map[string]bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]bool),
	}
}

// Manager manages all active WebSocket connections. A user may hold several
// connections; each one subscribes to rooms separately.
type Manager struct {
	clients     map[string]map[*Client]bool
	roomClients map[string]map[*Client]bool
	Register    chan *Client
	Unregister  chan *Client
	access      RoomAccess
	watcher     RoomWatcher
	mutex       sync.RWMutex
}

func NewManager(access RoomAccess, watcher RoomWatcher) *Manager {
	return &Manager{
		clients:     make(map[string]map[*Client]bool),
		roomClients: make(map[string]map[*Client]bool),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		access:      access,
		watcher:     watcher,
	}
}

// SetRoomWatcher replaces the watcher; used when the watcher is built after
// the manager.
func (m *Manager) SetRoomWatcher(watcher RoomWatcher) {
	m.mutex.Lock()
	m.watcher = watcher
	m.mutex.Unlock()
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.removeClient(client)
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Manager) addClient(client *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.clients[client.UserID] == nil {
		m.clients[client.UserID] = make(map[*Client]bool)
	}
	m.clients[client.UserID][client] = true
}

func (m *Manager) removeClient(client *Client) {
	m.mutex.Lock()
	conns, ok := m.clients[client.UserID]
	if !ok || !conns[client] {
		m.mutex.Unlock()
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
	}
	var emptied []string
	for roomID := range client.rooms {
		if m.leaveRoomLocked(roomID, client) {
			emptied = append(emptied, roomID)
		}
	}
	close(client.Send)
	watcher := m.watcher
	m.mutex.Unlock()

	if watcher != nil {
		for _, roomID := range emptied {
			watcher.UnwatchRoom(roomID)
		}
	}
}

// SubscribeRoom adds the client to a room's audience after checking access.
func (m *Manager) SubscribeRoom(ctx context.Context, client *Client, roomID string) error {
	if m.access != nil {
		if err := m.access.CanSubscribe(ctx, client.UserID, roomID); err != nil {
			return err
		}
	}

	m.mutex.Lock()
	first := len(m.roomClients[roomID]) == 0
	if m.roomClients[roomID] == nil {
		m.roomClients[roomID] = make(map[*Client]bool)
	}
	m.roomClients[roomID][client] = true
	client.rooms[roomID] = true
	watcher := m.watcher
	m.mutex.Unlock()

	if first && watcher != nil {
		watcher.WatchRoom(roomID)
	}
	return nil
}

func (m *Manager) UnsubscribeRoom(client *Client, roomID string) {
	m.mutex.Lock()
	emptied := m.leaveRoomLocked(roomID, client)
	watcher := m.watcher
	m.mutex.Unlock()

	if emptied && watcher != nil {
		watcher.UnwatchRoom(roomID)
	}
}

// leaveRoomLocked reports whether the room has no subscribers left.
// Callers hold m.mutex.
func (m *Manager) leaveRoomLocked(roomID string, client *Client) bool {
	delete(client.rooms, roomID)
	subs, ok := m.roomClients[roomID]
	if !ok {
		return false
	}
	delete(subs, client)
	if len(subs) == 0 {
		delete(m.roomClients, roomID)
		return true
	}
	return false
}

// SendToUser sends a message to every connection of a user
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for client := range m.clients[userID] {
		m.trySend(client, message)
	}
}

// BroadcastToRoom sends a message to the room's subscribers
func (m *Manager) BroadcastToRoom(roomID string, message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for client := range m.roomClients[roomID] {
		m.trySend(client, message)
	}
}

// Broadcast sends a message to every connected client
func (m *Manager) Broadcast(message []byte) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	for _, conns := range m.clients {
		for client := range conns {
			m.trySend(client, message)
		}
	}
}

// trySend drops the message for a client whose buffer is full; the client
// resynchronises from the REST endpoints. Callers hold m.mutex.
func (m *Manager) trySend(client *Client, message []byte) {
	select {
	case client.Send <- message:
	default:
		logger.Warn("WebSocket: send buffer full for %s, dropping event", client.UserID)
	}
}

// Publish delivers a change event: message events reach the room's
// subscribers, everything else every connected client.
func (m *Manager) Publish(ctx context.Context, event *entity.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(WSMessage{
		Type:      MessageTypeEvent,
		Data:      event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	switch event.Type {
	case entity.EventMessageAdded, entity.EventMessageChanged, entity.EventMessageRemoved:
		m.BroadcastToRoom(event.ChatRoomID, payload)
	default:
		m.Broadcast(payload)
	}
	return nil
}

// ConnectedUsers returns the number of users with at least one connection.
func (m *Manager) ConnectedUsers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// RoomSubscribers returns the number of connections subscribed to a room.
func (m *Manager) RoomSubscribers(roomID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.roomClients[roomID])
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.UserID, err)
			}
			break
		}
		m.HandleClientMessage(ctx, c, message)
	}
}

// WritePump sends messages to the WebSocket connection
func (c *Client) WritePump() {
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
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
