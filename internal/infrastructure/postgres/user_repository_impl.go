package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
	"github.com/lysnhq/lysn-backend/internal/domain/repository"
)

var errNotFound = errors.New("not found")

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u := &entity.User{}

	row := r.pool.QueryRow(ctx, `
		SELECT email, name, profile_pic_url, auth_method, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)

	if err := row.Scan(&u.Email, &u.Name, &u.ProfilePicURL, &u.AuthMethod, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errNotFound
		}
		return nil, err
	}

	return u, nil
}

// Upsert inserts the user if absent, otherwise applies the patch. The single
// statement keeps the existence check and the write atomic; (xmax = 0)
// distinguishes a fresh insert from a conflict update.
func (r *UserRepository) Upsert(ctx context.Context, email string, p entity.UserPatch) (*entity.User, bool, error) {
	var authMethod *string
	if p.AuthMethod != nil {
		s := string(*p.AuthMethod)
		authMethod = &s
	}

	u := &entity.User{}
	created := false

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, name, profile_pic_url, auth_method, password_hash)
		VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name            = COALESCE(NULLIF($2, ''), users.name),
			profile_pic_url = COALESCE($3, users.profile_pic_url),
			auth_method     = COALESCE($6, users.auth_method),
			updated_at      = now()
		RETURNING email, name, profile_pic_url, auth_method, password_hash, created_at, updated_at, (xmax = 0)
	`, email, p.Name, p.ProfilePicURL, string(p.InsertAuthMethod), p.InsertPasswordHash, authMethod)

	if err := row.Scan(&u.Email, &u.Name, &u.ProfilePicURL, &u.AuthMethod, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt, &created); err != nil {
		return nil, false, err
	}

	return u, created, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email, passwordHash string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, updated_at = now()
		WHERE email = $2
	`, passwordHash, email)
	if err != nil {
		return err
	}

	if res.RowsAffected() == 0 {
		return errNotFound
	}

	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
