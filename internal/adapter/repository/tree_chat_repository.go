package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
)

type treeChatRepository struct {
	store repository.Store
}

func NewTreeChatRepository(store repository.Store) repository.ChatRepository {
	return &treeChatRepository{
		store: store,
	}
}

func (r *treeChatRepository) Create(ctx context.Context, room *entity.ChatRoom) error {
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if room.CreatedTimestamp == 0 {
		room.CreatedTimestamp = time.Now().UnixMilli()
	}

	if err := r.store.Set(ctx, nodePath(chatRoomsRoot, room.ID), room); err != nil {
		return errors.Internal("Failed to create chat room", err)
	}
	return nil
}

func (r *treeChatRepository) GetByID(ctx context.Context, id string) (*entity.ChatRoom, error) {
	v, err := r.store.Get(ctx, nodePath(chatRoomsRoot, id))
	if err != nil {
		return nil, errors.Internal("Failed to get chat room", err)
	}
	if v == nil {
		return nil, errors.NotFound("Chat room", nil)
	}

	var room entity.ChatRoom
	if err := decode(v, &room); err != nil {
		return nil, errors.Internal("Failed to parse chat room data", err)
	}
	if room.ID == "" {
		room.ID = id
	}
	return &room, nil
}

// FindByActivityID returns every room bound to the activity, oldest first.
// More than one result means concurrent first joiners each created a room.
func (r *treeChatRepository) FindByActivityID(ctx context.Context, activityID string) ([]*entity.ChatRoom, error) {
	v, err := r.store.QueryByChild(ctx, chatRoomsRoot, "activityId", activityID)
	if err != nil {
		return nil, errors.Internal("Failed to query chat room by activity", err)
	}

	children := make(map[string]interface{}, len(v))
	for k, room := range v {
		children[k] = room
	}
	rooms := decodeChildren[entity.ChatRoom](children)
	sortRoomsOldestFirst(rooms)
	return rooms, nil
}

func sortRoomsOldestFirst(rooms []*entity.ChatRoom) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].CreatedTimestamp != rooms[j].CreatedTimestamp {
			return rooms[i].CreatedTimestamp < rooms[j].CreatedTimestamp
		}
		return rooms[i].ID < rooms[j].ID
	})
}

func (r *treeChatRepository) List(ctx context.Context) ([]*entity.ChatRoom, error) {
	v, err := r.store.Get(ctx, chatRoomsRoot)
	if err != nil {
		return nil, errors.Internal("Failed to fetch chat rooms", err)
	}
	rooms := decodeChildren[entity.ChatRoom](v)
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].LastMessageTime > rooms[j].LastMessageTime
	})
	return rooms, nil
}

func (r *treeChatRepository) Delete(ctx context.Context, id string) error {
	err := r.store.Update(ctx, map[string]interface{}{
		nodePath(chatRoomsRoot, id): nil,
		nodePath(messagesRoot, id):  nil,
	})
	if err != nil {
		return errors.Internal("Failed to delete chat room", err)
	}
	return nil
}

func (r *treeChatRepository) SetMember(ctx context.Context, roomID, userID string, member entity.ChatMember) error {
	if err := r.store.Set(ctx, nodePath(chatRoomsRoot, roomID, "members", userID), member); err != nil {
		return errors.Internal("Failed to add chat member", err)
	}
	return nil
}

func (r *treeChatRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	if err := r.store.Remove(ctx, nodePath(chatRoomsRoot, roomID, "members", userID)); err != nil {
		return errors.Internal("Failed to remove chat member", err)
	}
	return nil
}

func (r *treeChatRepository) GetMembers(ctx context.Context, roomID string) (map[string]entity.ChatMember, error) {
	v, err := r.store.Get(ctx, nodePath(chatRoomsRoot, roomID, "members"))
	if err != nil {
		return nil, errors.Internal("Failed to get chat members", err)
	}
	members := make(map[string]entity.ChatMember)
	if v == nil {
		return members, nil
	}
	if err := decode(v, &members); err != nil {
		return nil, errors.Internal("Failed to parse chat members", err)
	}
	return members, nil
}

func (r *treeChatRepository) SetUnreadCounts(ctx context.Context, roomID string, counts map[string]int) error {
	if len(counts) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(counts))
	for userID, count := range counts {
		values[nodePath(chatRoomsRoot, roomID, "members", userID, "unreadCount")] = count
	}
	if err := r.store.Update(ctx, values); err != nil {
		return errors.Internal("Failed to update unread counts", err)
	}
	return nil
}

func (r *treeChatRepository) CreateMessage(ctx context.Context, message *entity.ChatMessage) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	if err := r.store.Set(ctx, nodePath(messagesRoot, message.ChatRoomID, message.ID), message); err != nil {
		return errors.Internal("Failed to create message", err)
	}
	return nil
}

// GetMessages returns the room's messages ordered by timestamp.
func (r *treeChatRepository) GetMessages(ctx context.Context, roomID string) ([]*entity.ChatMessage, error) {
	v, err := r.store.Get(ctx, nodePath(messagesRoot, roomID))
	if err != nil {
		return nil, errors.Internal("Failed to fetch messages", err)
	}
	messages := decodeChildren[entity.ChatMessage](v)
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].Timestamp != messages[j].Timestamp {
			return messages[i].Timestamp < messages[j].Timestamp
		}
		return messages[i].ID < messages[j].ID
	})
	return messages, nil
}

func (r *treeChatRepository) UpdateLastMessage(ctx context.Context, roomID, text string, timestamp int64) error {
	err := r.store.Update(ctx, map[string]interface{}{
		nodePath(chatRoomsRoot, roomID, "lastMessage"):     text,
		nodePath(chatRoomsRoot, roomID, "lastMessageTime"): timestamp,
	})
	if err != nil {
		return errors.Internal("Failed to update last message", err)
	}
	return nil
}
