package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/devreview-service/internal/domain"
	apperrors "github.com/spec-kit/devreview-service/pkg/util"
)

// ErrCustomerMismatch is returned when a user already carries a different
// billing customer reference than the one being linked.
var ErrCustomerMismatch = errors.New("billing customer reference mismatch")

// UserRepository defines persistence access for account holders.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error)
	LinkStripeCustomer(ctx context.Context, userID, customerID string) error
	SetPlan(ctx context.Context, userID string, plan domain.Plan, subscriptionID *string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, password_hash, plan, stripe_customer_id, stripe_subscription_id, is_active, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, plan)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_active, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Plan,
	).Scan(&user.ID, &user.Active, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewDuplicateEmail()
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE stripe_customer_id=$1`
	return r.scanOne(r.pool.QueryRow(ctx, query, customerID))
}

// LinkStripeCustomer is idempotent: linking the same reference twice is a
// no-op, linking a different one fails rather than overwriting.
func (r *userRepository) LinkStripeCustomer(ctx context.Context, userID, customerID string) error {
	const query = `
        UPDATE users SET stripe_customer_id=$1, updated_at=NOW()
        WHERE id=$2 AND (stripe_customer_id IS NULL OR stripe_customer_id=$1)`

	cmd, err := r.pool.Exec(ctx, query, customerID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return ErrCustomerMismatch
	}
	return nil
}

// SetPlan is the single writer of the plan tier. A nil subscriptionID clears
// the stored subscription reference; the customer reference is never touched.
func (r *userRepository) SetPlan(ctx context.Context, userID string, plan domain.Plan, subscriptionID *string) error {
	const query = `
        UPDATE users SET plan=$1, stripe_subscription_id=$2, updated_at=NOW()
        WHERE id=$3`

	cmd, err := r.pool.Exec(ctx, query, plan, subscriptionID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Plan,
		&user.StripeCustomerID,
		&user.StripeSubscriptionID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
