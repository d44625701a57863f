package entity

// ChatMember is the per-member state of a chat room.
type ChatMember struct {
	Name        string `json:"name"`
	UnreadCount int    `json:"unreadCount"`
}

// ChatRoom is a group chat bound to an activity, or a direct chat when
// ActivityID is empty.
type ChatRoom struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	ActivityID       string                `json:"activityId,omitempty"`
	Category         string                `json:"category,omitempty"`
	LastMessage      string                `json:"lastMessage,omitempty"`
	LastMessageTime  int64                 `json:"lastMessageTime,omitempty"`
	Members          map[string]ChatMember `json:"members,omitempty"`
	CreatedTimestamp int64                 `json:"createdTimestamp"`
}

func (r *ChatRoom) IsDirect() bool {
	return r.ActivityID == ""
}

func (r *ChatRoom) HasMember(userID string) bool {
	_, ok := r.Members[userID]
	return ok
}
