package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

// cascadeParallelism bounds the per-participant steps of a delete.
const cascadeParallelism = 8

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type ActivityUseCase struct {
	activityRepo  repository.ActivityRepository
	userRepo      repository.UserRepository
	membership    *MembershipUseCase
	chat          *ChatUseCase
	reviews       *ReviewUseCase
	notifications *NotificationUseCase
}

func NewActivityUseCase(
	activityRepo repository.ActivityRepository,
	userRepo repository.UserRepository,
	membership *MembershipUseCase,
	chat *ChatUseCase,
	reviews *ReviewUseCase,
	notifications *NotificationUseCase,
) *ActivityUseCase {
	return &ActivityUseCase{
		activityRepo:  activityRepo,
		userRepo:      userRepo,
		membership:    membership,
		chat:          chat,
		reviews:       reviews,
		notifications: notifications,
	}
}

type CreateActivityInput struct {
	Title           string
	Description     string
	Category        string
	Date            string
	Time            string
	Location        string
	Lat             float64
	Lon             float64
	MaxParticipants int
	Visibility      string
	Hashtags        []string
}

// CreateActivity writes the activity, joins the creator, creates the chat
// room and adds the creator to it. A failing step is returned as is; the
// steps already done are kept.
func (uc *ActivityUseCase) CreateActivity(ctx context.Context, creatorID string, input CreateActivityInput) (*entity.Activity, error) {
	if err := validateSchedule(input.Date, input.Time); err != nil {
		return nil, err
	}
	if input.MaxParticipants < 0 {
		return nil, errors.BadRequest("maxParticipants cannot be negative", nil)
	}
	visibility := input.Visibility
	if visibility == "" {
		visibility = entity.VisibilityPublic
	}

	creatorName := displayName(ctx, uc.userRepo, creatorID)
	activity := &entity.Activity{
		Title:           input.Title,
		Description:     input.Description,
		Category:        input.Category,
		Date:            input.Date,
		Time:            input.Time,
		Location:        input.Location,
		Lat:             input.Lat,
		Lon:             input.Lon,
		MaxParticipants: input.MaxParticipants,
		Visibility:      visibility,
		Hashtags:        input.Hashtags,
		CreatorID:       creatorID,
		CreatorName:     creatorName,
	}
	if err := uc.activityRepo.Create(ctx, activity); err != nil {
		return nil, err
	}

	if _, err := uc.membership.Join(ctx, activity.ID, creatorID, creatorName); err != nil {
		return nil, err
	}
	room, err := uc.chat.CreateOrGet(ctx, activity.ID, activity.Title, activity.Category)
	if err != nil {
		return nil, err
	}
	if err := uc.chat.AddMember(ctx, room.ID, creatorID, creatorName); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{"activityId": activity.ID, "chatRoomId": room.ID, "userId": creatorID}).Info("activity created")
	return uc.activityRepo.GetByID(ctx, activity.ID)
}

type UpdateActivityInput struct {
	Title           *string
	Description     *string
	Category        *string
	Date            *string
	Time            *string
	Location        *string
	Lat             *float64
	Lon             *float64
	MaxParticipants *int
	Visibility      *string
	Hashtags        *[]string
}

// fields returns the allowlisted field writes; membership fields are never
// part of an update.
func (in UpdateActivityInput) fields() map[string]interface{} {
	out := make(map[string]interface{})
	put := func(name string, set bool, value interface{}) {
		if set {
			out[name] = value
		}
	}
	put("title", in.Title != nil, deref(in.Title))
	put("description", in.Description != nil, deref(in.Description))
	put("category", in.Category != nil, deref(in.Category))
	put("date", in.Date != nil, deref(in.Date))
	put("time", in.Time != nil, deref(in.Time))
	put("location", in.Location != nil, deref(in.Location))
	if in.Lat != nil {
		out["lat"] = *in.Lat
	}
	if in.Lon != nil {
		out["lon"] = *in.Lon
	}
	if in.MaxParticipants != nil {
		out["maxParticipants"] = *in.MaxParticipants
	}
	put("visibility", in.Visibility != nil, deref(in.Visibility))
	if in.Hashtags != nil {
		out["hashtags"] = *in.Hashtags
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// UpdateActivity applies the allowlisted fields in one atomic write. Only
// the creator may edit.
func (uc *ActivityUseCase) UpdateActivity(ctx context.Context, userID, activityID string, input UpdateActivityInput) (*entity.Activity, error) {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if activity.CreatorID != userID {
		return nil, errors.Forbidden("Only the creator can edit this activity", nil)
	}

	date, clock := activity.Date, activity.Time
	if input.Date != nil {
		date = *input.Date
	}
	if input.Time != nil {
		clock = *input.Time
	}
	if err := validateSchedule(date, clock); err != nil {
		return nil, err
	}
	if input.MaxParticipants != nil && *input.MaxParticipants < 0 {
		return nil, errors.BadRequest("maxParticipants cannot be negative", nil)
	}

	if err := uc.activityRepo.Patch(ctx, activityID, input.fields()); err != nil {
		return nil, err
	}
	return uc.activityRepo.GetByID(ctx, activityID)
}

// DeleteActivity deletes on behalf of the creator.
func (uc *ActivityUseCase) DeleteActivity(ctx context.Context, userID, activityID string, mode entity.DeleteMode) error {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.CreatorID != userID {
		return errors.Forbidden("Only the creator can delete this activity", nil)
	}
	return uc.Delete(ctx, activityID, mode)
}

// Delete runs the delete cascade. With notifications every remaining
// participant is credited, notified and owed reviews first. Only the
// removal of the activity node can fail the operation; every other step is
// logged and skipped.
func (uc *ActivityUseCase) Delete(ctx context.Context, activityID string, mode entity.DeleteMode) error {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return err
	}
	participantIDs := activity.ParticipantIDs()
	sort.Strings(participantIDs)
	fields := logger.Fields{"activityId": activityID, "mode": string(mode)}

	if mode == entity.DeleteWithNotifications {
		uc.notifyActivityEnd(ctx, activity, participantIDs)
		if uc.reviews != nil {
			if _, err := uc.reviews.OnActivityEnd(ctx, activity, participantIDs); err != nil {
				logger.LogStepError("create pending reviews", fields, err)
			}
		}
	}

	rooms, err := uc.chat.FindActivityRooms(ctx, activityID)
	if err != nil {
		logger.LogStepError("find chat rooms", fields, err)
	}
	for _, room := range rooms {
		if err := uc.chat.DeleteRoom(ctx, room.ID); err != nil {
			logger.LogStepError("delete chat room", logger.Fields{"activityId": activityID, "chatRoomId": room.ID}, err)
		}
	}

	if err := uc.activityRepo.Delete(ctx, activityID); err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(cascadeParallelism)
	for _, userID := range participantIDs {
		userID := userID
		g.Go(func() error {
			if err := uc.activityRepo.RemoveFromUserIndex(ctx, userID, activityID); err != nil {
				logger.LogStepError("remove user activity index", logger.Fields{"activityId": activityID, "userId": userID}, err)
			}
			return nil
		})
	}
	g.Wait()

	logger.WithFields(fields).Info("activity deleted")
	return nil
}

// notifyActivityEnd credits every participant with one more finished
// activity and enqueues the ended and review-requested notifications, one
// millisecond apart so they keep their order.
func (uc *ActivityUseCase) notifyActivityEnd(ctx context.Context, activity *entity.Activity, participantIDs []string) {
	now := time.Now().UnixMilli()

	var g errgroup.Group
	g.SetLimit(cascadeParallelism)
	for _, userID := range participantIDs {
		userID := userID
		g.Go(func() error {
			fields := logger.Fields{"activityId": activity.ID, "userId": userID}
			if _, err := uc.userRepo.IncrementParticipationCount(ctx, userID); err != nil {
				logger.LogStepError("increment participation count", fields, err)
			}
			if uc.notifications == nil {
				return nil
			}
			ended := &entity.Notification{
				Title:      entity.TitleActivityEnded,
				Message:    fmt.Sprintf("'%s' 활동이 종료되었습니다.", activity.Title),
				ActivityID: activity.ID,
				Kind:       entity.NotificationActivityEnded,
				Timestamp:  now,
			}
			if err := uc.notifications.Enqueue(ctx, userID, ended); err != nil {
				logger.LogStepError("enqueue activity ended notification", fields, err)
			}
			review := &entity.Notification{
				Title:      entity.TitleReviewRequested,
				Message:    fmt.Sprintf("'%s' 활동의 참여자를 평가해주세요.", activity.Title),
				ActivityID: activity.ID,
				Kind:       entity.NotificationReviewRequested,
				Timestamp:  now + 1,
			}
			if err := uc.notifications.Enqueue(ctx, userID, review); err != nil {
				logger.LogStepError("enqueue review requested notification", fields, err)
			}
			return nil
		})
	}
	g.Wait()
}

// DeleteIfNoParticipants deletes the activity silently when its participant
// set is empty and reports whether it did.
func (uc *ActivityUseCase) DeleteIfNoParticipants(ctx context.Context, activityID string) (bool, error) {
	participants, err := uc.activityRepo.GetParticipants(ctx, activityID)
	if err != nil {
		return false, err
	}
	if len(participants) > 0 {
		return false, nil
	}
	if err := uc.Delete(ctx, activityID, entity.DeleteSilent); err != nil {
		return false, err
	}
	return true, nil
}

// JoinActivity adds the user to the activity and its chat room. Joining
// twice is a no-op.
func (uc *ActivityUseCase) JoinActivity(ctx context.Context, activityID, userID string) (*entity.Activity, error) {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !activity.IsParticipant(userID) {
		if err := uc.checkCanJoin(ctx, activity, userID); err != nil {
			return nil, err
		}
	}

	userName := displayName(ctx, uc.userRepo, userID)
	if _, err := uc.membership.Join(ctx, activityID, userID, userName); err != nil {
		return nil, err
	}
	room, err := uc.chat.CreateOrGet(ctx, activityID, activity.Title, activity.Category)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		if err := uc.chat.AddMember(ctx, room.ID, userID, userName); err != nil {
			return nil, err
		}
	}

	joined, err := uc.activityRepo.GetByID(ctx, activityID)
	if errors.IsNotFound(err) {
		// deleted after the join committed; the room may have been recreated
		if rmErr := uc.chat.DeleteRoom(ctx, room.ID); rmErr != nil {
			logger.LogStepError("delete orphaned chat room", logger.Fields{"activityId": activityID, "chatRoomId": room.ID}, rmErr)
		}
	}
	return joined, err
}

func (uc *ActivityUseCase) checkCanJoin(ctx context.Context, activity *entity.Activity, userID string) error {
	if activity.IsFull() {
		return errors.BadRequest("Activity is full", nil)
	}
	switch activity.Visibility {
	case entity.VisibilityPrivate:
		if activity.CreatorID != userID {
			return errors.Forbidden("This activity is private", nil)
		}
	case entity.VisibilityFriends:
		if activity.CreatorID != userID && !uc.areFriends(ctx, userID, activity.CreatorID) {
			return errors.Forbidden("This activity is open to the creator's friends only", nil)
		}
	}
	return nil
}

func (uc *ActivityUseCase) areFriends(ctx context.Context, userID, otherID string) bool {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false
	}
	return user.IsFriend(otherID)
}

// LeaveActivity removes the user from the chat room and the activity; the
// activity is deleted silently once nobody is left.
func (uc *ActivityUseCase) LeaveActivity(ctx context.Context, activityID, userID string) error {
	if _, err := uc.activityRepo.GetByID(ctx, activityID); err != nil {
		return err
	}
	return uc.leave(ctx, activityID, userID)
}

func (uc *ActivityUseCase) leave(ctx context.Context, activityID, userID string) error {
	fields := logger.Fields{"activityId": activityID, "userId": userID}

	rooms, err := uc.chat.FindActivityRooms(ctx, activityID)
	if err != nil {
		logger.LogStepError("find chat rooms", fields, err)
	}
	for _, room := range rooms {
		if !room.HasMember(userID) {
			continue
		}
		if _, err := uc.chat.RemoveMember(ctx, room.ID, userID); err != nil {
			logger.LogStepError("remove chat member", logger.Fields{"activityId": activityID, "userId": userID, "chatRoomId": room.ID}, err)
		}
	}

	remaining, err := uc.membership.Leave(ctx, activityID, userID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}

	if _, err := uc.DeleteIfNoParticipants(ctx, activityID); err != nil && !errors.IsNotFound(err) {
		return err
	}
	return nil
}

// RemoveParticipant lets the creator remove another participant. The room
// is told before the user is removed.
func (uc *ActivityUseCase) RemoveParticipant(ctx context.Context, requesterID, activityID, targetID string) error {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return err
	}
	if activity.CreatorID != requesterID {
		return errors.Forbidden("Only the creator can remove participants", nil)
	}
	if targetID == requesterID {
		return errors.BadRequest("Use leave to remove yourself", nil)
	}
	name, ok := activity.Participants[targetID]
	if !ok {
		return errors.NotFound("Participant", nil)
	}
	if name == "" {
		name = targetID
	}

	rooms, err := uc.chat.FindActivityRooms(ctx, activityID)
	if err != nil {
		logger.LogStepError("find chat rooms", logger.Fields{"activityId": activityID}, err)
	}
	for _, room := range rooms {
		if _, err := uc.chat.SendSystemMessage(ctx, room.ID, fmt.Sprintf("%s님이 활동에서 내보내졌습니다.", name)); err != nil {
			logger.LogStepError("announce removal", logger.Fields{"activityId": activityID, "chatRoomId": room.ID}, err)
		}
	}
	return uc.leave(ctx, activityID, targetID)
}

// GetActivity returns the activity when the viewer may see it. Hidden
// activities are reported as NotFound.
func (uc *ActivityUseCase) GetActivity(ctx context.Context, viewerID, activityID string) (*entity.Activity, error) {
	activity, err := uc.activityRepo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if !canView(activity, viewerID, uc.viewer(ctx, viewerID)) {
		return nil, errors.NotFound("Activity", nil)
	}
	return activity, nil
}

func (uc *ActivityUseCase) viewer(ctx context.Context, viewerID string) *entity.User {
	user, err := uc.userRepo.GetByID(ctx, viewerID)
	if err != nil {
		return nil
	}
	return user
}

// canView applies the visibility rules: public for everyone, friends for
// the creator's friends, private for the creator. Participants always see
// the activities they are in.
func canView(a *entity.Activity, viewerID string, viewer *entity.User) bool {
	if a.CreatorID == viewerID || a.IsParticipant(viewerID) {
		return true
	}
	switch a.Visibility {
	case entity.VisibilityPrivate:
		return false
	case entity.VisibilityFriends:
		return viewer != nil && viewer.IsFriend(a.CreatorID)
	default:
		return true
	}
}

// ListActivities returns the activities the viewer may see: public ones,
// friends-only ones of friends and any the viewer created or joined.
func (uc *ActivityUseCase) ListActivities(ctx context.Context, viewerID string) ([]*entity.Activity, error) {
	activities, err := uc.activityRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	viewer := uc.viewer(ctx, viewerID)

	out := make([]*entity.Activity, 0, len(activities))
	for _, a := range activities {
		if canView(a, viewerID, viewer) {
			out = append(out, a)
		}
	}
	return out, nil
}

// ListUserActivities resolves the user's activity index, skipping entries
// whose activity no longer exists.
func (uc *ActivityUseCase) ListUserActivities(ctx context.Context, userID string) ([]*entity.Activity, error) {
	ids, err := uc.activityRepo.ListUserActivityIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Activity, 0, len(ids))
	for _, id := range ids {
		a, err := uc.activityRepo.GetByID(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedTimestamp > out[j].CreatedTimestamp
	})
	return out, nil
}

func validateSchedule(date, clock string) error {
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return errors.BadRequest("date must be YYYY-MM-DD", err)
		}
	}
	if clock != "" {
		if _, err := time.Parse(timeLayout, clock); err != nil {
			return errors.BadRequest("time must be HH:MM", err)
		}
	}
	return nil
}

// ScheduledAt returns when the activity starts in loc; ok is false when the
// activity has no parseable date.
func ScheduledAt(activity *entity.Activity, loc *time.Location) (time.Time, bool) {
	if activity.Date == "" {
		return time.Time{}, false
	}
	clock := activity.Time
	if clock == "" {
		clock = "00:00"
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, activity.Date+" "+clock, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
