package repository

import (
	"context"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
)

// AudioRepository defines the interface for converted-audio metadata.
type AudioRepository interface {
	Create(ctx context.Context, a *entity.AudioFile) error
	ListByOwner(ctx context.Context, ownerEmail string) ([]entity.AudioFile, error)
}
