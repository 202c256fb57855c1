package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
	"github.com/lysnhq/lysn-backend/internal/domain/repository"
)

type AudioRepository struct {
	pool *pgxpool.Pool
}

func NewAudioRepository(pool *pgxpool.Pool) *AudioRepository {
	return &AudioRepository{pool: pool}
}

func (r *AudioRepository) Create(ctx context.Context, a *entity.AudioFile) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO audio_files (id, owner_email, filename, object_path, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, a.ID, a.OwnerEmail, a.Filename, a.ObjectPath, a.URL)

	return row.Scan(&a.CreatedAt)
}

func (r *AudioRepository) ListByOwner(ctx context.Context, ownerEmail string) ([]entity.AudioFile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_email, filename, object_path, url, created_at
		FROM audio_files
		WHERE owner_email = $1
		ORDER BY created_at DESC
	`, ownerEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.AudioFile
	for rows.Next() {
		var a entity.AudioFile
		if err := rows.Scan(&a.ID, &a.OwnerEmail, &a.Filename, &a.ObjectPath, &a.URL, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

var _ repository.AudioRepository = (*AudioRepository)(nil)
