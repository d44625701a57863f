package handler

import (
	"github.com/labstack/echo/v4"

	"meetup/internal/usecase"
	"meetup/pkg/errors"
	"meetup/pkg/response"
	"meetup/pkg/utils"
)

type ReviewHandler struct {
	reviewUseCase *usecase.ReviewUseCase
}

func NewReviewHandler(reviewUseCase *usecase.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{
		reviewUseCase: reviewUseCase,
	}
}

func (h *ReviewHandler) ListPendingReviews(c echo.Context) error {
	userID := c.Get("uid").(string)

	items, err := h.reviewUseCase.ListPendingReviews(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, items)
}

type submitReviewRequest struct {
	TargetUserID string `json:"targetUserId" validate:"required"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"max=1000"`
}

func (h *ReviewHandler) SubmitReview(c echo.Context) error {
	pendingID := c.Param("pendingId")
	if pendingID == "" {
		return response.Error(c, errors.BadRequest("Pending review ID is required", nil))
	}

	var req submitReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	review, err := h.reviewUseCase.SubmitReview(c.Request().Context(), userID, pendingID, usecase.SubmitReviewInput{
		TargetUserID: req.TargetUserID,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, review)
}

func (h *ReviewHandler) ListUserReviews(c echo.Context) error {
	reviews, err := h.reviewUseCase.ListUserReviews(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	p := utils.GetPaginationParams(c)
	return response.Paginated(c, utils.Paginate(reviews, p), int64(len(reviews)), p.Page, p.PageSize)
}
