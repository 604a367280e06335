package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ruporhq/rupor/internal/domain"
)

// PublishedRepo — репозиторий записей о состоявшихся публикациях.
type PublishedRepo struct {
	db DB
}

// NewPublishedRepo создаёт новый PublishedRepo.
func NewPublishedRepo(db DB) *PublishedRepo {
	return &PublishedRepo{db: db}
}

// WithTx возвращает копию репозитория, выполняющую запросы внутри tx.
// Запись о публикации фиксируется в одной транзакции с переводом
// job в SUCCEEDED.
func (r *PublishedRepo) WithTx(tx pgx.Tx) *PublishedRepo {
	return &PublishedRepo{db: tx}
}

// Create записывает состоявшуюся публикацию. job_id уникален:
// повторная запись для того же job возвращает ErrAlreadyExists.
func (r *PublishedRepo) Create(ctx context.Context, rec *domain.PublishedRecord) error {
	query := `
		INSERT INTO published_records (id, job_id, schedule_id, variant_id, external_id, text, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.JobID,
		rec.ScheduleID,
		rec.VariantID,
		nullString(rec.ExternalID),
		rec.Text,
		rec.PublishedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert published record: %w", err)
	}
	return nil
}

// GetByJobID возвращает запись о публикации job.
func (r *PublishedRepo) GetByJobID(ctx context.Context, jobID uuid.UUID) (*domain.PublishedRecord, error) {
	var rec domain.PublishedRecord
	var externalID *string

	err := r.db.QueryRow(ctx, `
		SELECT id, job_id, schedule_id, variant_id, external_id, text, published_at
		FROM published_records
		WHERE job_id = $1
	`, jobID).Scan(
		&rec.ID,
		&rec.JobID,
		&rec.ScheduleID,
		&rec.VariantID,
		&externalID,
		&rec.Text,
		&rec.PublishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan published record: %w", err)
	}

	if externalID != nil {
		rec.ExternalID = *externalID
	}
	return &rec, nil
}

// RecentTexts возвращает тексты последних публикаций, новые первыми.
// Используется советующей проверкой почти-дубликатов перед публикацией.
func (r *PublishedRepo) RecentTexts(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT text
		FROM published_records
		ORDER BY published_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent texts: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan text: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}
