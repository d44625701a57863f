package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	adapterrepo "meetup/internal/adapter/repository"
	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/internal/infrastructure/treestore"
)

type sentPush struct {
	token string
	title string
	data  map[string]string
}

type fakePush struct {
	mu   sync.Mutex
	sent []sentPush
	err  error
}

func (p *fakePush) Send(ctx context.Context, pushToken, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentPush{token: pushToken, title: title, data: data})
	return p.err
}

func (p *fakePush) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type testEnv struct {
	store *treestore.Memory

	activityRepo     repository.ActivityRepository
	chatRepo         repository.ChatRepository
	userRepo         repository.UserRepository
	reviewRepo       repository.ReviewRepository
	notificationRepo repository.NotificationRepository

	users         *UserUseCase
	notifications *NotificationUseCase
	friends       *FriendUseCase
	membership    *MembershipUseCase
	chat          *ChatUseCase
	reviews       *ReviewUseCase
	activities    *ActivityUseCase
	push          *fakePush
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := treestore.NewMemory()
	env := &testEnv{
		store:            store,
		activityRepo:     adapterrepo.NewTreeActivityRepository(store),
		chatRepo:         adapterrepo.NewTreeChatRepository(store),
		userRepo:         adapterrepo.NewTreeUserRepository(store),
		reviewRepo:       adapterrepo.NewTreeReviewRepository(store),
		notificationRepo: adapterrepo.NewTreeNotificationRepository(store),
		push:             &fakePush{},
	}
	env.users = NewUserUseCase(env.userRepo)
	env.notifications = NewNotificationUseCase(env.notificationRepo, env.userRepo, env.push)
	env.friends = NewFriendUseCase(env.userRepo, env.notifications)
	env.membership = NewMembershipUseCase(env.activityRepo)
	env.chat = NewChatUseCase(env.chatRepo, env.userRepo)
	env.reviews = NewReviewUseCase(env.reviewRepo, env.userRepo, env.notifications)
	env.activities = NewActivityUseCase(env.activityRepo, env.userRepo, env.membership, env.chat, env.reviews, env.notifications)
	return env
}

func (env *testEnv) profile(t *testing.T, userID, name string) {
	t.Helper()
	_, err := env.users.UpsertProfile(context.Background(), userID, UpdateProfileInput{Name: name})
	require.NoError(t, err)
}

func (env *testEnv) createActivity(t *testing.T, creatorID string, input CreateActivityInput) *entity.Activity {
	t.Helper()
	if input.Title == "" {
		input.Title = "Board game night"
	}
	if input.Category == "" {
		input.Category = "game"
	}
	if input.Date == "" {
		input.Date = "2099-05-01"
	}
	if input.Time == "" {
		input.Time = "19:00"
	}
	activity, err := env.activities.CreateActivity(context.Background(), creatorID, input)
	require.NoError(t, err)
	return activity
}

func (env *testEnv) activityRoom(t *testing.T, activityID string) *entity.ChatRoom {
	t.Helper()
	rooms, err := env.chatRepo.FindByActivityID(context.Background(), activityID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	return rooms[0]
}

func (env *testEnv) pendingTotal(t *testing.T, userIDs ...string) int {
	t.Helper()
	total := 0
	for _, id := range userIDs {
		items, err := env.reviewRepo.ListPending(context.Background(), id)
		require.NoError(t, err)
		total += len(items)
	}
	return total
}

// assertConsistent checks that the counter matches the participant set.
func (env *testEnv) assertConsistent(t *testing.T, activityID string) *entity.Activity {
	t.Helper()
	activity, err := env.activityRepo.GetByID(context.Background(), activityID)
	require.NoError(t, err)
	require.Equal(t, len(activity.Participants), activity.CurrentParticipants)
	return activity
}

var errPushUnavailable = errors.New("push service unavailable")
