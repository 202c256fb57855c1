package repository

import (
	"context"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
)

// UserRepository defines the interface for identity directory operations.
// Upsert is the single write path for account creation: it inserts the row
// if absent and applies the patch otherwise, reporting whether the row was
// created so callers can branch without a separate existence check.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Upsert(ctx context.Context, email string, patch entity.UserPatch) (*entity.User, bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}
