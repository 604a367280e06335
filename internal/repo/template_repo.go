package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ruporhq/rupor/internal/domain"
)

// TemplateRepo — репозиторий шаблонов и их вариантов.
// Шаблонами владеет внешний CRUD-слой: здесь только чтение.
type TemplateRepo struct {
	db DB
}

// NewTemplateRepo создаёт новый TemplateRepo.
func NewTemplateRepo(db DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

// GetByID возвращает шаблон по ID.
func (r *TemplateRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Template, error) {
	var t domain.Template
	err := r.db.QueryRow(ctx, `
		SELECT id, name, created_at FROM templates WHERE id = $1
	`, id).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan template: %w", err)
	}
	return &t, nil
}

// GetVariant возвращает вариант по ID.
func (r *TemplateRepo) GetVariant(ctx context.Context, id uuid.UUID) (*domain.Variant, error) {
	var v domain.Variant
	err := r.db.QueryRow(ctx, `
		SELECT id, template_id, text, weight, active, created_at
		FROM variants
		WHERE id = $1
	`, id).Scan(&v.ID, &v.TemplateID, &v.Text, &v.Weight, &v.Active, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan variant: %w", err)
	}
	return &v, nil
}

// ListActiveVariants возвращает активные варианты шаблона.
func (r *TemplateRepo) ListActiveVariants(ctx context.Context, templateID uuid.UUID) ([]domain.Variant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, template_id, text, weight, active, created_at
		FROM variants
		WHERE template_id = $1
		  AND active = true
		ORDER BY id
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.TemplateID, &v.Text, &v.Weight, &v.Active, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan variant: %w", err)
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}
