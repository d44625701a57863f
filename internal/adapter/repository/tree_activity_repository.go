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

type treeActivityRepository struct {
	store repository.Store
}

func NewTreeActivityRepository(store repository.Store) repository.ActivityRepository {
	return &treeActivityRepository{
		store: store,
	}
}

func (r *treeActivityRepository) Create(ctx context.Context, activity *entity.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedTimestamp == 0 {
		activity.CreatedTimestamp = time.Now().UnixMilli()
	}

	if err := r.store.Set(ctx, nodePath(activitiesRoot, activity.ID), activity); err != nil {
		return errors.Internal("Failed to create activity", err)
	}
	return nil
}

func (r *treeActivityRepository) GetByID(ctx context.Context, id string) (*entity.Activity, error) {
	v, err := r.store.Get(ctx, nodePath(activitiesRoot, id))
	if err != nil {
		return nil, errors.Internal("Failed to get activity", err)
	}
	if v == nil {
		return nil, errors.NotFound("Activity", nil)
	}

	var activity entity.Activity
	if err := decode(v, &activity); err != nil {
		return nil, errors.Internal("Failed to parse activity data", err)
	}
	if activity.ID == "" {
		activity.ID = id
	}
	return &activity, nil
}

func (r *treeActivityRepository) List(ctx context.Context) ([]*entity.Activity, error) {
	v, err := r.store.Get(ctx, activitiesRoot)
	if err != nil {
		return nil, errors.Internal("Failed to fetch activities", err)
	}

	activities := decodeChildren[entity.Activity](v)
	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].CreatedTimestamp > activities[j].CreatedTimestamp
	})
	return activities, nil
}

func (r *treeActivityRepository) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for field, value := range fields {
		values[nodePath(activitiesRoot, id, field)] = value
	}
	if err := r.store.Update(ctx, values); err != nil {
		return errors.Internal("Failed to update activity", err)
	}
	return nil
}

func (r *treeActivityRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Remove(ctx, nodePath(activitiesRoot, id)); err != nil {
		return errors.Internal("Failed to delete activity", err)
	}
	return nil
}

// AddParticipant inserts the participant entry and bumps currentParticipants
// in one transaction on the activity node. It reports false when the user
// was already a participant. A missing node, or one left without its id,
// is NotFound and nothing is written.
func (r *treeActivityRepository) AddParticipant(ctx context.Context, activityID, userID, userName string) (bool, error) {
	added, missing := false, false
	_, err := r.store.Transaction(ctx, nodePath(activitiesRoot, activityID), func(current interface{}) (interface{}, error) {
		added, missing = false, false
		node, ok := current.(map[string]interface{})
		if !ok || !hasActivityID(node) {
			missing = true
			return nil, repository.ErrAbortTransaction
		}
		participants, _ := node["participants"].(map[string]interface{})
		if participants == nil {
			participants = make(map[string]interface{})
		}
		if _, exists := participants[userID]; exists {
			return nil, repository.ErrAbortTransaction
		}
		participants[userID] = userName
		node["participants"] = participants
		node["currentParticipants"] = toInt64(node["currentParticipants"]) + 1
		added = true
		return node, nil
	})
	if err != nil {
		return false, errors.Internal("Failed to add participant", err)
	}
	if missing {
		return false, errors.NotFound("Activity", nil)
	}
	return added, nil
}

// RemoveParticipant deletes the entry and reports whether it existed.
func (r *treeActivityRepository) RemoveParticipant(ctx context.Context, activityID, userID string) (bool, error) {
	removed := false
	_, err := r.store.Transaction(ctx, nodePath(activitiesRoot, activityID, "participants", userID), func(current interface{}) (interface{}, error) {
		if current == nil {
			removed = false
			return nil, repository.ErrAbortTransaction
		}
		removed = true
		return nil, nil
	})
	if err != nil {
		return false, errors.Internal("Failed to remove participant", err)
	}
	return removed, nil
}

func (r *treeActivityRepository) GetParticipants(ctx context.Context, activityID string) (map[string]string, error) {
	v, err := r.store.Get(ctx, nodePath(activitiesRoot, activityID, "participants"))
	if err != nil {
		return nil, errors.Internal("Failed to get participants", err)
	}
	participants := make(map[string]string)
	if v == nil {
		return participants, nil
	}
	if err := decode(v, &participants); err != nil {
		return nil, errors.Internal("Failed to parse participants", err)
	}
	return participants, nil
}

// AdjustParticipantCount applies delta to currentParticipants with a floor
// of zero. The transaction runs on the activity node so that a counter
// update racing a delete writes nothing instead of resurrecting the node.
func (r *treeActivityRepository) AdjustParticipantCount(ctx context.Context, activityID string, delta int) (int, error) {
	missing := false
	committed, err := r.store.Transaction(ctx, nodePath(activitiesRoot, activityID), func(current interface{}) (interface{}, error) {
		missing = false
		node, ok := current.(map[string]interface{})
		if !ok || !hasActivityID(node) {
			missing = true
			return nil, repository.ErrAbortTransaction
		}
		next := toInt64(node["currentParticipants"]) + int64(delta)
		if next < 0 {
			next = 0
		}
		node["currentParticipants"] = next
		return node, nil
	})
	if err != nil {
		return 0, errors.Internal("Failed to update participant count", err)
	}
	if missing {
		return 0, errors.NotFound("Activity", nil)
	}
	node, _ := committed.(map[string]interface{})
	return int(toInt64(node["currentParticipants"])), nil
}

// hasActivityID reports whether node is a full activity rather than a
// fragment left behind by a child write.
func hasActivityID(node map[string]interface{}) bool {
	id, _ := node["id"].(string)
	return id != ""
}

func (r *treeActivityRepository) AddToUserIndex(ctx context.Context, userID, activityID string) error {
	if err := r.store.Set(ctx, nodePath(userActivitiesRoot, userID, activityID), true); err != nil {
		return errors.Internal("Failed to index user activity", err)
	}
	return nil
}

func (r *treeActivityRepository) RemoveFromUserIndex(ctx context.Context, userID, activityID string) error {
	if err := r.store.Remove(ctx, nodePath(userActivitiesRoot, userID, activityID)); err != nil {
		return errors.Internal("Failed to remove user activity index", err)
	}
	return nil
}

func (r *treeActivityRepository) ListUserActivityIDs(ctx context.Context, userID string) ([]string, error) {
	v, err := r.store.Get(ctx, nodePath(userActivitiesRoot, userID))
	if err != nil {
		return nil, errors.Internal("Failed to get user activities", err)
	}
	return childKeys(v), nil
}
