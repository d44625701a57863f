package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/logger"
)

const (
	activitiesPath = "activities"
	chatRoomsPath  = "chatRooms"
	messagesPath   = "messages"
)

// EventRelay turns store subscriptions into outbound change events and
// hands them to every publisher.
type EventRelay struct {
	store      repository.Store
	publishers []EventPublisher

	mu      sync.Mutex
	counts  map[string]int
	baseCtx context.Context
	watches map[string]context.CancelFunc
}

func NewEventRelay(store repository.Store, publishers ...EventPublisher) *EventRelay {
	return &EventRelay{
		store:      store,
		publishers: publishers,
		counts:     make(map[string]int),
		watches:    make(map[string]context.CancelFunc),
	}
}

// AddPublisher registers another publisher; call before Run.
func (r *EventRelay) AddPublisher(p EventPublisher) {
	r.publishers = append(r.publishers, p)
}

// Run relays activity and chat room changes until ctx is cancelled.
func (r *EventRelay) Run(ctx context.Context) error {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	activities, err := r.store.Subscribe(ctx, activitiesPath, repository.ModeChildren)
	if err != nil {
		return err
	}
	rooms, err := r.store.Subscribe(ctx, chatRoomsPath, repository.ModeChildren)
	if err != nil {
		return err
	}

	for activities != nil || rooms != nil {
		select {
		case ev, ok := <-activities:
			if !ok {
				activities = nil
				continue
			}
			r.handleActivity(ctx, ev)
		case ev, ok := <-rooms:
			if !ok {
				rooms = nil
				continue
			}
			r.handleChatRoom(ctx, ev)
		case <-ctx.Done():
			r.stopWatches()
			return ctx.Err()
		}
	}
	r.stopWatches()
	return ctx.Err()
}

func (r *EventRelay) handleActivity(ctx context.Context, ev repository.ChangeEvent) {
	var activity entity.Activity
	data := decodeSnapshot(ev.Value, &activity)
	if data != nil && activity.ID == "" {
		activity.ID = ev.Key
	}

	r.mu.Lock()
	last, seen := r.counts[ev.Key]
	switch ev.Kind {
	case repository.ChildRemoved:
		delete(r.counts, ev.Key)
	default:
		r.counts[ev.Key] = activity.CurrentParticipants
	}
	r.mu.Unlock()

	switch ev.Kind {
	case repository.ChildAdded:
		r.publish(ctx, &entity.Event{Type: entity.EventActivityAdded, EntityID: ev.Key, Data: data})
	case repository.ChildChanged:
		r.publish(ctx, &entity.Event{Type: entity.EventActivityChanged, EntityID: ev.Key, Data: data})
		if seen && last != activity.CurrentParticipants {
			r.publish(ctx, &entity.Event{Type: entity.EventParticipantCountChanged, EntityID: ev.Key, Data: data})
		}
	case repository.ChildRemoved:
		r.publish(ctx, &entity.Event{Type: entity.EventActivityRemoved, EntityID: ev.Key, Data: data})
	}
}

func (r *EventRelay) handleChatRoom(ctx context.Context, ev repository.ChangeEvent) {
	var room entity.ChatRoom
	data := decodeSnapshot(ev.Value, &room)
	if data != nil && room.ID == "" {
		room.ID = ev.Key
	}

	event := &entity.Event{EntityID: ev.Key, ChatRoomID: ev.Key, Data: data}
	switch ev.Kind {
	case repository.ChildAdded:
		event.Type = entity.EventChatRoomAdded
	case repository.ChildChanged:
		event.Type = entity.EventChatRoomChanged
	case repository.ChildRemoved:
		event.Type = entity.EventChatRoomRemoved
	default:
		return
	}
	r.publish(ctx, event)
}

// WatchMessages relays message changes of one room until ctx is cancelled.
func (r *EventRelay) WatchMessages(ctx context.Context, roomID string) error {
	events, err := r.store.Subscribe(ctx, messagesPath+"/"+roomID, repository.ModeChildren)
	if err != nil {
		return err
	}
	go func() {
		for ev := range events {
			var message entity.ChatMessage
			data := decodeSnapshot(ev.Value, &message)

			event := &entity.Event{EntityID: ev.Key, ChatRoomID: roomID, Data: data}
			switch ev.Kind {
			case repository.ChildAdded:
				event.Type = entity.EventMessageAdded
			case repository.ChildChanged:
				event.Type = entity.EventMessageChanged
			case repository.ChildRemoved:
				event.Type = entity.EventMessageRemoved
			default:
				continue
			}
			r.publish(ctx, event)
		}
	}()
	return nil
}

// WatchRoom starts relaying a room's messages if it is not watched yet.
func (r *EventRelay) WatchRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watches[roomID]; ok {
		return
	}
	base := r.baseCtx
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)
	if err := r.WatchMessages(ctx, roomID); err != nil {
		cancel()
		logger.WithFields(logger.Fields{"chatRoomId": roomID}).WithError(err).Warn("failed to watch chat room")
		return
	}
	r.watches[roomID] = cancel
}

func (r *EventRelay) UnwatchRoom(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.watches[roomID]; ok {
		cancel()
		delete(r.watches, roomID)
	}
}

func (r *EventRelay) stopWatches() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID, cancel := range r.watches {
		cancel()
		delete(r.watches, roomID)
	}
}

func (r *EventRelay) publish(ctx context.Context, event *entity.Event) {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	for _, p := range r.publishers {
		if err := p.Publish(ctx, event); err != nil && ctx.Err() == nil {
			logger.WithFields(logger.Fields{"type": string(event.Type), "entityId": event.EntityID}).WithError(err).Warn("event publish failed")
		}
	}
}

// decodeSnapshot decodes a store value into out and returns it, or nil
// when the value is absent or malformed.
func decodeSnapshot(value interface{}, out interface{}) interface{} {
	if value == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil
	}
	return out
}
