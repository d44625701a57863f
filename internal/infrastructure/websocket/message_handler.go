package websocket

import (
	"context"
	"encoding/json"
	"time"

	"meetup/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing            = "ping"
	MessageTypePong            = "pong"
	MessageTypeSubscribeRoom   = "subscribe_room"
	MessageTypeUnsubscribeRoom = "unsubscribe_room"
	MessageTypeSubscribed      = "subscribed"
	MessageTypeUnsubscribed    = "unsubscribed"
	MessageTypeEvent           = "event"
	MessageTypeError           = "error"
)

// WebSocket Message Structure
type WSMessage struct {
	Type       string      `json:"type"`
	Data       interface{} `json:"data,omitempty"`
	ChatRoomID string      `json:"chatRoomId,omitempty"`
	Timestamp  string      `json:"timestamp"`
}

type ErrorData struct {
	Message string `json:"message"`
}

// HandleClientMessage processes incoming WebSocket messages
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		logger.Debug("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, WSMessage{Type: MessageTypePong})

	case MessageTypeSubscribeRoom:
		if wsMessage.ChatRoomID == "" {
			m.sendErrorToClient(client, "chatRoomId is required")
			return
		}
		if err := m.SubscribeRoom(ctx, client, wsMessage.ChatRoomID); err != nil {
			m.sendErrorToClient(client, err.Error())
			return
		}
		m.sendToClient(client, WSMessage{Type: MessageTypeSubscribed, ChatRoomID: wsMessage.ChatRoomID})

	case MessageTypeUnsubscribeRoom:
		m.UnsubscribeRoom(client, wsMessage.ChatRoomID)
		m.sendToClient(client, WSMessage{Type: MessageTypeUnsubscribed, ChatRoomID: wsMessage.ChatRoomID})

	default:
		m.sendErrorToClient(client, "Unknown message type: "+wsMessage.Type)
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	if message.Timestamp == "" {
		message.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	payload, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: Failed to marshal message for %s: %v", client.UserID, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.clients[client.UserID][client] {
		m.trySend(client, payload)
	}
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, WSMessage{
		Type: MessageTypeError,
		Data: ErrorData{Message: errorMsg},
	})
}
