package handler

import (
	"strings"

	"github.com/labstack/echo/v4"

	"meetup/internal/domain/entity"
	"meetup/internal/usecase"
	"meetup/pkg/errors"
	"meetup/pkg/response"
	"meetup/pkg/utils"
)

type ActivityHandler struct {
	activityUseCase *usecase.ActivityUseCase
}

func NewActivityHandler(activityUseCase *usecase.ActivityUseCase) *ActivityHandler {
	return &ActivityHandler{
		activityUseCase: activityUseCase,
	}
}

type createActivityRequest struct {
	Title           string   `json:"title" validate:"required,max=100"`
	Description     string   `json:"description" validate:"max=2000"`
	Category        string   `json:"category" validate:"required"`
	Date            string   `json:"date" validate:"required,date"`
	Time            string   `json:"time" validate:"required,clock"`
	Location        string   `json:"location" validate:"required"`
	Lat             float64  `json:"lat" validate:"min=-90,max=90"`
	Lon             float64  `json:"lon" validate:"min=-180,max=180"`
	MaxParticipants int      `json:"maxParticipants" validate:"min=0,max=1000"`
	Visibility      string   `json:"visibility" validate:"omitempty,oneof=public private friends"`
	Hashtags        []string `json:"hashtags" validate:"max=10"`
}

func (h *ActivityHandler) CreateActivity(c echo.Context) error {
	var req createActivityRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	activity, err := h.activityUseCase.CreateActivity(c.Request().Context(), userID, usecase.CreateActivityInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		Lat:             req.Lat,
		Lon:             req.Lon,
		MaxParticipants: req.MaxParticipants,
		Visibility:      req.Visibility,
		Hashtags:        req.Hashtags,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, activity)
}

func (h *ActivityHandler) ListActivities(c echo.Context) error {
	userID := c.Get("uid").(string)

	var (
		activities []*entity.Activity
		err        error
	)
	if c.QueryParam("mine") == "true" {
		activities, err = h.activityUseCase.ListUserActivities(c.Request().Context(), userID)
	} else {
		activities, err = h.activityUseCase.ListActivities(c.Request().Context(), userID)
	}
	if err != nil {
		return response.Error(c, err)
	}

	if category := c.QueryParam("category"); category != "" {
		filtered := activities[:0]
		for _, a := range activities {
			if a.Category == category {
				filtered = append(filtered, a)
			}
		}
		activities = filtered
	}

	p := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(activities, p), int64(len(activities)), p.Page, p.PageSize)
}

func (h *ActivityHandler) GetActivity(c echo.Context) error {
	userID := c.Get("uid").(string)

	activity, err := h.activityUseCase.GetActivity(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, activity)
}

type updateActivityRequest struct {
	Title           *string   `json:"title" validate:"omitempty,min=1,max=100"`
	Description     *string   `json:"description" validate:"omitempty,max=2000"`
	Category        *string   `json:"category"`
	Date            *string   `json:"date" validate:"omitempty,date"`
	Time            *string   `json:"time" validate:"omitempty,clock"`
	Location        *string   `json:"location"`
	Lat             *float64  `json:"lat" validate:"omitempty,min=-90,max=90"`
	Lon             *float64  `json:"lon" validate:"omitempty,min=-180,max=180"`
	MaxParticipants *int      `json:"maxParticipants" validate:"omitempty,min=0,max=1000"`
	Visibility      *string   `json:"visibility" validate:"omitempty,oneof=public private friends"`
	Hashtags        *[]string `json:"hashtags"`
}

func (h *ActivityHandler) UpdateActivity(c echo.Context) error {
	var req updateActivityRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	activity, err := h.activityUseCase.UpdateActivity(c.Request().Context(), userID, c.Param("id"), usecase.UpdateActivityInput{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Date:            req.Date,
		Time:            req.Time,
		Location:        req.Location,
		Lat:             req.Lat,
		Lon:             req.Lon,
		MaxParticipants: req.MaxParticipants,
		Visibility:      req.Visibility,
		Hashtags:        req.Hashtags,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, activity)
}

// DeleteActivity accepts ?mode=silent (default) or ?mode=notify, which ends
// the activity for its participants.
func (h *ActivityHandler) DeleteActivity(c echo.Context) error {
	var mode entity.DeleteMode
	switch strings.ToLower(c.QueryParam("mode")) {
	case "", "silent":
		mode = entity.DeleteSilent
	case "notify", "with_notifications":
		mode = entity.DeleteWithNotifications
	default:
		return response.Error(c, errors.BadRequest("mode must be silent or notify", nil))
	}

	userID := c.Get("uid").(string)

	if err := h.activityUseCase.DeleteActivity(c.Request().Context(), userID, c.Param("id"), mode); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Activity deleted successfully",
	})
}

func (h *ActivityHandler) JoinActivity(c echo.Context) error {
	userID := c.Get("uid").(string)

	activity, err := h.activityUseCase.JoinActivity(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, activity)
}

func (h *ActivityHandler) LeaveActivity(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.activityUseCase.LeaveActivity(c.Request().Context(), c.Param("id"), userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Left activity",
	})
}

func (h *ActivityHandler) RemoveParticipant(c echo.Context) error {
	userID := c.Get("uid").(string)

	err := h.activityUseCase.RemoveParticipant(c.Request().Context(), userID, c.Param("id"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{
		"message": "Participant removed",
	})
}
