package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/adapter/api"
	"meetup/internal/adapter/api/handler"
	"meetup/internal/adapter/api/middleware"
	"meetup/internal/adapter/repository"
	"meetup/internal/infrastructure/firebase"
	"meetup/internal/infrastructure/ratelimit"
	"meetup/internal/infrastructure/treestore"
	"meetup/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, rules map[string]ratelimit.Rule) *echo.Echo {
	t.Helper()
	store := treestore.NewMemory()

	activityRepo := repository.NewTreeActivityRepository(store)
	chatRepo := repository.NewTreeChatRepository(store)
	userRepo := repository.NewTreeUserRepository(store)
	reviewRepo := repository.NewTreeReviewRepository(store)
	notificationRepo := repository.NewTreeNotificationRepository(store)

	userUseCase := usecase.NewUserUseCase(userRepo)
	notificationUseCase := usecase.NewNotificationUseCase(notificationRepo, userRepo, nil)
	friendUseCase := usecase.NewFriendUseCase(userRepo, notificationUseCase)
	membershipUseCase := usecase.NewMembershipUseCase(activityRepo)
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo)
	reviewUseCase := usecase.NewReviewUseCase(reviewRepo, userRepo, notificationUseCase)
	activityUseCase := usecase.NewActivityUseCase(activityRepo, userRepo, membershipUseCase, chatUseCase, reviewUseCase, notificationUseCase)

	handler.Setup(activityUseCase, chatUseCase, reviewUseCase, userUseCase, friendUseCase, notificationUseCase)
	handler.SetupHealthHandler(store, "memory", nil)

	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, middleware.NewAuthMiddleware(firebase.DevTokenVerifier{}), ratelimit.NewRateLimiter(rules))
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, uid string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set("Authorization", "Bearer dev:"+uid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func decodeData(t *testing.T, env envelope, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)

	rec, _ := call(t, e, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Server is running")

	rec, _ = call(t, e, http.MethodGet, "/store-health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory")
}

func TestAuthRequired(t *testing.T) {
	e := newTestServer(t, nil)

	rec, _ := call(t, e, http.MethodGet, "/v1/activities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
	req.Header.Set("Authorization", "Bearer not-a-dev-token")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestActivityLifecycleOverHTTP(t *testing.T) {
	e := newTestServer(t, nil)

	for uid, name := range map[string]string{"u1": "Alice", "u2": "Bob"} {
		rec, _ := call(t, e, http.MethodPost, "/v1/users/me", uid, map[string]string{"name": name})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, env := call(t, e, http.MethodPost, "/v1/activities", "u1", map[string]interface{}{
		"title":           "Hike",
		"category":        "outdoor",
		"date":            "2099-05-01",
		"time":            "09:30",
		"location":        "Bukhansan",
		"maxParticipants": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var activity struct {
		ID                  string `json:"id"`
		CurrentParticipants int    `json:"currentParticipants"`
	}
	decodeData(t, env, &activity)
	assert.Equal(t, 1, activity.CurrentParticipants)

	rec, env = call(t, e, http.MethodPost, "/v1/activities/"+activity.ID+"/join", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeData(t, env, &activity)
	assert.Equal(t, 2, activity.CurrentParticipants)

	rec, _ = call(t, e, http.MethodPost, "/v1/activities/"+activity.ID+"/join", "u3", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = call(t, e, http.MethodGet, "/v1/chats", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &rooms)
	require.Len(t, rooms, 1)

	rec, _ = call(t, e, http.MethodPost, "/v1/chats/"+rooms[0].ID+"/messages", "u2", map[string]string{"message": "see you there"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = call(t, e, http.MethodDelete, "/v1/activities/"+activity.ID+"?mode=notify", "u2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = call(t, e, http.MethodDelete, "/v1/activities/"+activity.ID+"?mode=notify", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = call(t, e, http.MethodGet, "/v1/activities/"+activity.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = call(t, e, http.MethodGet, "/v1/reviews/pending", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []struct {
		ID           string `json:"id"`
		TargetUserID string `json:"targetUserId"`
	}
	decodeData(t, env, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, "u1", pending[0].TargetUserID)

	rec, _ = call(t, e, http.MethodPost, "/v1/reviews/pending/"+pending[0].ID, "u2", map[string]interface{}{
		"targetUserId": "u1",
		"rating":       9,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = call(t, e, http.MethodPost, "/v1/reviews/pending/"+pending[0].ID, "u2", map[string]interface{}{
		"targetUserId": "u1",
		"rating":       4,
		"comment":      "well organised",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = call(t, e, http.MethodGet, "/v1/notifications", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var inbox []json.RawMessage
	decodeData(t, env, &inbox)
	assert.Empty(t, inbox)

	rec, env = call(t, e, http.MethodGet, "/v1/users/u1", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile struct {
		Rating      float64 `json:"rating"`
		ReviewCount int     `json:"reviewCount"`
	}
	decodeData(t, env, &profile)
	assert.Equal(t, 1, profile.ReviewCount)
	assert.InDelta(t, 4.0, profile.Rating, 0.0001)
}

func TestCreateActivityValidation(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := call(t, e, http.MethodPost, "/v1/activities", "u1", map[string]interface{}{
		"title":    "Hike",
		"category": "outdoor",
		"date":     "tomorrow",
		"time":     "09:30",
		"location": "Park",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = call(t, e, http.MethodDelete, "/v1/activities/a1?mode=explode", "u1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateActivityRateLimited(t *testing.T) {
	e := newTestServer(t, map[string]ratelimit.Rule{
		ratelimit.ActionCreateActivity: {PerSecond: 0.001, Burst: 1},
	})
	body := map[string]interface{}{
		"title":    "Hike",
		"category": "outdoor",
		"date":     "2099-05-01",
		"time":     "09:30",
		"location": "Park",
	}

	rec, _ := call(t, e, http.MethodPost, "/v1/activities", "u1", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := call(t, e, http.MethodPost, "/v1/activities", "u1", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)

	// another user has their own bucket
	rec, _ = call(t, e, http.MethodPost, "/v1/activities", "u2", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestFriendRoutes(t *testing.T) {
	e := newTestServer(t, nil)
	for uid, name := range map[string]string{"u1": "Alice", "u2": "Bob"} {
		rec, _ := call(t, e, http.MethodPost, "/v1/users/me", uid, map[string]string{"name": name})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, _ := call(t, e, http.MethodPost, "/v1/friends/requests/u2", "u1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = call(t, e, http.MethodPost, "/v1/friends/requests/u1/accept", "u2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := call(t, e, http.MethodGet, "/v1/friends", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var friends []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeData(t, env, &friends)
	require.Len(t, friends, 1)
	assert.Equal(t, "Bob", friends[0].Name)
}

func TestGetPrivateActivity(t *testing.T) {
	e := newTestServer(t, nil)

	rec, env := call(t, e, http.MethodPost, "/v1/activities", "u1", map[string]interface{}{
		"title":      "Study group",
		"category":   "study",
		"date":       "2099-05-01",
		"time":       "18:00",
		"location":   "Library",
		"visibility": "private",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var activity struct {
		ID string `json:"id"`
	}
	decodeData(t, env, &activity)

	rec, _ = call(t, e, http.MethodGet, "/v1/activities/"+activity.ID, "u1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = call(t, e, http.MethodGet, "/v1/activities/"+activity.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
