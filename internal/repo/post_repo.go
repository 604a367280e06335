package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ruporhq/rupor/internal/domain"
)

// PostRepo — репозиторий постов. Постами владеет внешний CRUD-слой:
// здесь только чтение.
type PostRepo struct {
	db DB
}

// NewPostRepo создаёт новый PostRepo.
func NewPostRepo(db DB) *PostRepo {
	return &PostRepo{db: db}
}

// GetByID возвращает пост по ID.
func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	var p domain.Post
	err := r.db.QueryRow(ctx, `
		SELECT id, text, media_refs, created_at FROM posts WHERE id = $1
	`, id).Scan(&p.ID, &p.Text, &p.MediaRefs, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}
