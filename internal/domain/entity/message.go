package entity

type MessageType string

const (
	MessageText     MessageType = "TEXT"
	MessageSystem   MessageType = "SYSTEM"
	MessageImage    MessageType = "IMAGE"
	MessageDocument MessageType = "DOCUMENT"
)

// ChatMessage is immutable once written under messages/{chatRoomId}/{id}.
type ChatMessage struct {
	ID               string      `json:"id"`
	ChatRoomID       string      `json:"chatRoomId"`
	SenderID         string      `json:"senderId"`
	SenderName       string      `json:"senderName"`
	SenderProfileURL string      `json:"senderProfileUrl,omitempty"`
	Message          string      `json:"message"`
	MessageType      MessageType `json:"messageType"`
	Timestamp        int64       `json:"timestamp"`
	IsRead           bool        `json:"isRead"`
}

func (m *ChatMessage) IsSystem() bool {
	return m.MessageType == MessageSystem
}
