package entity

// EventType names an outbound change event delivered to observers.
type EventType string

const (
	EventActivityAdded           EventType = "activity.added"
	EventActivityChanged         EventType = "activity.changed"
	EventActivityRemoved         EventType = "activity.removed"
	EventParticipantCountChanged EventType = "activity.participant_count_changed"
	EventChatRoomAdded           EventType = "chatroom.added"
	EventChatRoomChanged         EventType = "chatroom.changed"
	EventChatRoomRemoved         EventType = "chatroom.removed"
	EventMessageAdded            EventType = "message.added"
	EventMessageChanged          EventType = "message.changed"
	EventMessageRemoved          EventType = "message.removed"
)

// Event carries the affected entity's current snapshot. Data is nil for
// removals of entities that could not be decoded.
type Event struct {
	Type       EventType   `json:"type"`
	EntityID   string      `json:"entityId"`
	ChatRoomID string      `json:"chatRoomId,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Timestamp  int64       `json:"timestamp"`
}
