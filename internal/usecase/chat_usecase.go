package usecase

import (
	"context"
	"sort"
	"time"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

type ChatUseCase struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
}

func NewChatUseCase(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *ChatUseCase {
	return &ChatUseCase{
		chatRepo: chatRepo,
		userRepo: userRepo,
	}
}

// CreateOrGet returns the activity's chat room, creating an empty one when
// none exists. Concurrent first joiners may each create a room; when more
// than one is found they are merged into the oldest.
func (uc *ChatUseCase) CreateOrGet(ctx context.Context, activityID, title, category string) (*entity.ChatRoom, error) {
	rooms, err := uc.chatRepo.FindByActivityID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	switch len(rooms) {
	case 0:
		room := &entity.ChatRoom{
			Name:       title,
			ActivityID: activityID,
			Category:   category,
			Members:    map[string]entity.ChatMember{},
		}
		if err := uc.chatRepo.Create(ctx, room); err != nil {
			return nil, err
		}
		return room, nil
	case 1:
		return rooms[0], nil
	default:
		return uc.mergeRooms(ctx, rooms[0], rooms[1:])
	}
}

// FindActivityRooms returns every room bound to the activity.
func (uc *ChatUseCase) FindActivityRooms(ctx context.Context, activityID string) ([]*entity.ChatRoom, error) {
	return uc.chatRepo.FindByActivityID(ctx, activityID)
}

// mergeRooms folds duplicates into survivor: members are unioned keeping
// the larger unread count, messages are copied under the survivor and the
// duplicates are deleted. Every step is idempotent so two readers merging
// at once converge on the same survivor.
func (uc *ChatUseCase) mergeRooms(ctx context.Context, survivor *entity.ChatRoom, duplicates []*entity.ChatRoom) (*entity.ChatRoom, error) {
	if survivor.Members == nil {
		survivor.Members = make(map[string]entity.ChatMember)
	}

	for _, dup := range duplicates {
		fields := logger.Fields{"chatRoomId": dup.ID, "survivorId": survivor.ID, "activityId": survivor.ActivityID}
		logger.WithFields(fields).Info("merging duplicate chat room")

		for userID, member := range dup.Members {
			existing, ok := survivor.Members[userID]
			if ok && existing.UnreadCount >= member.UnreadCount {
				continue
			}
			if err := uc.chatRepo.SetMember(ctx, survivor.ID, userID, member); err != nil {
				logger.LogStepError("merge chat member", fields, err)
				continue
			}
			survivor.Members[userID] = member
		}

		messages, err := uc.chatRepo.GetMessages(ctx, dup.ID)
		if err != nil {
			logger.LogStepError("read duplicate messages", fields, err)
			continue
		}
		copied := true
		for _, msg := range messages {
			msg.ChatRoomID = survivor.ID
			if err := uc.chatRepo.CreateMessage(ctx, msg); err != nil {
				logger.LogStepError("copy duplicate message", fields, err)
				copied = false
			}
		}
		if !copied {
			// keep the duplicate so a later read can retry the copy
			continue
		}
		if dup.LastMessageTime > survivor.LastMessageTime {
			if err := uc.chatRepo.UpdateLastMessage(ctx, survivor.ID, dup.LastMessage, dup.LastMessageTime); err != nil {
				logger.LogStepError("merge last message", fields, err)
			} else {
				survivor.LastMessage, survivor.LastMessageTime = dup.LastMessage, dup.LastMessageTime
			}
		}
		if err := uc.chatRepo.Delete(ctx, dup.ID); err != nil {
			logger.LogStepError("delete duplicate chat room", fields, err)
		}
	}
	return survivor, nil
}

func (uc *ChatUseCase) AddMember(ctx context.Context, roomID, userID, userName string) error {
	return uc.chatRepo.SetMember(ctx, roomID, userID, entity.ChatMember{Name: userName})
}

// RemoveMember drops the member and deletes the room with its messages once
// no member is left. It reports whether the room was deleted.
func (uc *ChatUseCase) RemoveMember(ctx context.Context, roomID, userID string) (bool, error) {
	if err := uc.chatRepo.RemoveMember(ctx, roomID, userID); err != nil {
		return false, err
	}

	members, err := uc.chatRepo.GetMembers(ctx, roomID)
	if err != nil {
		return false, err
	}
	if len(members) > 0 {
		return false, nil
	}

	if err := uc.chatRepo.Delete(ctx, roomID); err != nil {
		return false, err
	}
	logger.WithFields(logger.Fields{"chatRoomId": roomID}).Info("deleted empty chat room")
	return true, nil
}

// DeleteRoom removes a room and its messages.
func (uc *ChatUseCase) DeleteRoom(ctx context.Context, roomID string) error {
	return uc.chatRepo.Delete(ctx, roomID)
}

// SendMessage writes the message, updates the room summary and, unless it
// is a system message, adds one unread message for every member except the
// sender in a single batched write.
func (uc *ChatUseCase) SendMessage(ctx context.Context, message *entity.ChatMessage) (*entity.ChatMessage, error) {
	if message.ChatRoomID == "" {
		return nil, errors.BadRequest("chatRoomId is required", nil)
	}
	if message.MessageType == "" {
		message.MessageType = entity.MessageText
	}
	if message.Timestamp == 0 {
		message.Timestamp = time.Now().UnixMilli()
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	fields := logger.Fields{"chatRoomId": message.ChatRoomID, "messageId": message.ID}

	if err := uc.chatRepo.UpdateLastMessage(ctx, message.ChatRoomID, message.Message, message.Timestamp); err != nil {
		logger.LogStepError("update last message", fields, err)
	}

	if message.IsSystem() {
		return message, nil
	}

	members, err := uc.chatRepo.GetMembers(ctx, message.ChatRoomID)
	if err != nil {
		logger.LogStepError("read members for unread fan-out", fields, err)
		return message, nil
	}
	counts := make(map[string]int, len(members))
	for userID, member := range members {
		if userID == message.SenderID {
			continue
		}
		counts[userID] = member.UnreadCount + 1
	}
	if err := uc.chatRepo.SetUnreadCounts(ctx, message.ChatRoomID, counts); err != nil {
		logger.LogStepError("unread fan-out", fields, err)
	}
	return message, nil
}

type SendMessageInput struct {
	Message     string
	MessageType entity.MessageType
}

// SendUserMessage sends a message on behalf of a room member.
func (uc *ChatUseCase) SendUserMessage(ctx context.Context, roomID, senderID string, input SendMessageInput) (*entity.ChatMessage, error) {
	if input.MessageType == entity.MessageSystem {
		return nil, errors.BadRequest("System messages cannot be sent by users", nil)
	}
	room, err := uc.requireMember(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	message := &entity.ChatMessage{
		ChatRoomID:  room.ID,
		SenderID:    senderID,
		SenderName:  room.Members[senderID].Name,
		Message:     input.Message,
		MessageType: input.MessageType,
	}
	if sender, err := uc.userRepo.GetByID(ctx, senderID); err == nil {
		message.SenderName = sender.DisplayName()
		message.SenderProfileURL = sender.ProfileURL
	}
	if message.SenderName == "" {
		message.SenderName = senderID
	}
	return uc.SendMessage(ctx, message)
}

// SendSystemMessage posts an announcement that does not count as unread.
func (uc *ChatUseCase) SendSystemMessage(ctx context.Context, roomID, text string) (*entity.ChatMessage, error) {
	return uc.SendMessage(ctx, &entity.ChatMessage{
		ChatRoomID:  roomID,
		SenderID:    "system",
		SenderName:  "system",
		Message:     text,
		MessageType: entity.MessageSystem,
	})
}

// MarkRead resets the member's unread counter.
func (uc *ChatUseCase) MarkRead(ctx context.Context, roomID, userID string) error {
	if _, err := uc.requireMember(ctx, roomID, userID); err != nil {
		return err
	}
	return uc.chatRepo.SetUnreadCounts(ctx, roomID, map[string]int{userID: 0})
}

func (uc *ChatUseCase) GetMessages(ctx context.Context, roomID, userID string) ([]*entity.ChatMessage, error) {
	if _, err := uc.requireMember(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return uc.chatRepo.GetMessages(ctx, roomID)
}

// ListRooms returns the rooms the user is a member of, most recent first.
func (uc *ChatUseCase) ListRooms(ctx context.Context, userID string) ([]*entity.ChatRoom, error) {
	rooms, err := uc.chatRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.ChatRoom, 0)
	for _, room := range rooms {
		if room.HasMember(userID) {
			out = append(out, room)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastActivity(out[i]) > lastActivity(out[j])
	})
	return out, nil
}

func lastActivity(room *entity.ChatRoom) int64 {
	if room.LastMessageTime > 0 {
		return room.LastMessageTime
	}
	return room.CreatedTimestamp
}

// CreateDirectChat returns the existing one-to-one room of the two users or
// creates it.
func (uc *ChatUseCase) CreateDirectChat(ctx context.Context, userID, otherID string) (*entity.ChatRoom, error) {
	if userID == otherID {
		return nil, errors.BadRequest("Cannot start a chat with yourself", nil)
	}
	other, err := requireUser(ctx, uc.userRepo, otherID)
	if err != nil {
		return nil, err
	}

	rooms, err := uc.chatRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, room := range rooms {
		if room.IsDirect() && len(room.Members) == 2 && room.HasMember(userID) && room.HasMember(otherID) {
			return room, nil
		}
	}

	myName := displayName(ctx, uc.userRepo, userID)
	room := &entity.ChatRoom{
		Name: myName + ", " + other.DisplayName(),
		Members: map[string]entity.ChatMember{
			userID:  {Name: myName},
			otherID: {Name: other.DisplayName()},
		},
	}
	if err := uc.chatRepo.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// CanSubscribe allows room event streams to members only.
func (uc *ChatUseCase) CanSubscribe(ctx context.Context, userID, roomID string) error {
	_, err := uc.requireMember(ctx, roomID, userID)
	return err
}

func (uc *ChatUseCase) requireMember(ctx context.Context, roomID, userID string) (*entity.ChatRoom, error) {
	room, err := uc.chatRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return nil, errors.Forbidden("You are not a member of this chat room", nil)
	}
	return room, nil
}
