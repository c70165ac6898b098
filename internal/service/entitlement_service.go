package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/devreview-service/internal/config"
	"github.com/spec-kit/devreview-service/internal/domain"
	"github.com/spec-kit/devreview-service/internal/repository"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// Unlimited marks a plan/action pair with no daily cap.
const Unlimited = -1

// PlanLimits maps plan tiers to per-action daily limits. It is data, not
// code: adding a plan or action is an entry, not a branch.
type PlanLimits map[domain.Plan]map[domain.Action]int

// DefaultPlanLimits builds the limit table from config.
func DefaultPlanLimits(cfg config.EntitlementsConfig) PlanLimits {
	return PlanLimits{
		domain.PlanFree: {
			domain.ActionCodeReview: cfg.FreeDailyReviews,
		},
		domain.PlanPro: {
			domain.ActionCodeReview: Unlimited,
		},
		domain.PlanEnterprise: {
			domain.ActionCodeReview: Unlimited,
		},
	}
}

// Limit returns the daily cap for the plan/action pair. Unknown pairs are
// treated as not entitled.
func (p PlanLimits) Limit(plan domain.Plan, action domain.Action) int {
	actions, ok := p[plan]
	if !ok {
		return 0
	}
	limit, ok := actions[action]
	if !ok {
		return 0
	}
	return limit
}

// EntitlementService decides whether a user may perform a metered action and
// records consumption.
type EntitlementService struct {
	usage  repository.UsageRepository
	limits PlanLimits
	logger *zap.Logger
	now    func() time.Time
}

// NewEntitlementService builds the service. The clock is injectable so tests
// can pin the day bucket.
func NewEntitlementService(usage repository.UsageRepository, limits PlanLimits, logger *zap.Logger) *EntitlementService {
	return &EntitlementService{
		usage:  usage,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source.
func (s *EntitlementService) WithClock(now func() time.Time) *EntitlementService {
	s.now = now
	return s
}

// Day returns the current UTC day bucket.
func (s *EntitlementService) Day() string {
	return s.now().UTC().Format("2006-01-02")
}

// Reserve consumes one unit of the user's daily allowance. The counter
// increment is a single atomic store operation, so two concurrent calls at
// the limit cannot both pass. Callers that fail to deliver the action should
// Release the reservation.
func (s *EntitlementService) Reserve(ctx context.Context, user *domain.User, action domain.Action) error {
	limit := s.limits.Limit(user.Plan, action)
	if limit == Unlimited {
		return nil
	}
	if limit <= 0 {
		return apperrors.NewQuotaExceeded(string(action), 0)
	}

	day := s.Day()
	count, err := s.usage.Increment(ctx, user.ID, action, day)
	if err != nil {
		return apperrors.MapError(err)
	}
	if count > int64(limit) {
		if err := s.usage.Decrement(ctx, user.ID, action, day); err != nil {
			s.logger.Warn("failed to roll back over-limit reservation",
				zap.String("user_id", user.ID),
				zap.String("action", string(action)),
				zap.Error(err))
		}
		return apperrors.NewQuotaExceeded(string(action), limit)
	}
	return nil
}

// Release returns a previously reserved unit, used when the metered action
// never produced a result.
func (s *EntitlementService) Release(ctx context.Context, user *domain.User, action domain.Action) {
	if s.limits.Limit(user.Plan, action) == Unlimited {
		return
	}
	if err := s.usage.Decrement(ctx, user.ID, action, s.Day()); err != nil {
		s.logger.Warn("failed to release reservation",
			zap.String("user_id", user.ID),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// Used reports how much of today's allowance is spent.
func (s *EntitlementService) Used(ctx context.Context, user *domain.User, action domain.Action) (int64, error) {
	return s.usage.Count(ctx, user.ID, action, s.Day())
}
