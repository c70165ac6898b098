package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/devreview-service/internal/api/dto"
	"github.com/spec-kit/devreview-service/internal/auth"
	"github.com/spec-kit/devreview-service/internal/service"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// ReviewHandler exposes the metered AI code-review endpoint.
type ReviewHandler struct {
	reviews *service.ReviewService
}

// NewReviewHandler constructs handler.
func NewReviewHandler(reviews *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviews: reviews}
}

// Review handles POST /ai/review.
func (h *ReviewHandler) Review(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewInvalidToken()
	}

	var req dto.ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Code == "" {
		return apperrors.NewValidationError("code is required", nil)
	}
	if req.Language == "" {
		req.Language = "plaintext"
	}

	result, err := h.reviews.Review(c.Context(), user, req.Code, req.Language)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.ReviewResponse{
			Review:   result.Review,
			Language: result.Language,
			Model:    result.Model,
		},
	})
}
