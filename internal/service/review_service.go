package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/devreview-service/internal/ai"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/events"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// ReviewService runs the metered AI code-review action.
//
// Charge policy: a review counts against the quota only when the provider
// call succeeds. The reservation taken before the call is released on
// provider failure or timeout.
type ReviewService struct {
	entitlements *EntitlementService
	reviewer     ai.Reviewer
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	timeout      time.Duration
}

// NewReviewService builds the service.
func NewReviewService(entitlements *EntitlementService, reviewer ai.Reviewer, dispatcher events.Dispatcher, logger *zap.Logger, timeout time.Duration) *ReviewService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReviewService{
		entitlements: entitlements,
		reviewer:     reviewer,
		dispatcher:   dispatcher,
		logger:       logger,
		timeout:      timeout,
	}
}

// ReviewResult is the outcome of a successful review.
type ReviewResult struct {
	Review   string
	Language string
	Model    string
}

// Review checks the user's entitlement, calls the completion provider, and
// returns the review text.
func (s *ReviewService) Review(ctx context.Context, user *domain.User, code, language string) (*ReviewResult, error) {
	if s.reviewer == nil {
		return nil, apperrors.NewUpstreamProviderError("ai", ai.ErrNotConfigured)
	}

	if err := s.entitlements.Reserve(ctx, user, domain.ActionCodeReview); err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	review, err := s.reviewer.Review(callCtx, code, language)
	if err != nil {
		s.entitlements.Release(ctx, user, domain.ActionCodeReview)
		s.logger.Warn("review provider call failed",
			zap.String("user_id", user.ID),
			zap.Error(err))
		return nil, apperrors.NewUpstreamProviderError("ai", err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventReviewCompleted,
			UserID:    user.ID,
			Timestamp: time.Now(),
			Payload: events.ReviewCompletedPayload{
				Language: language,
				Plan:     user.Plan,
				Model:    s.reviewer.Model(),
			},
		})
	}

	return &ReviewResult{
		Review:   review,
		Language: language,
		Model:    s.reviewer.Model(),
	}, nil
}
