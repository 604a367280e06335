package publish

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DryRunPublisher никуда не отправляет и пишет текст в лог.
// Используется, когда PUBLISHER_URL не задан: локальная разработка
// и прогон пайплайна без внешнего канала.
type DryRunPublisher struct {
	logger *slog.Logger
}

func NewDryRunPublisher(logger *slog.Logger) *DryRunPublisher {
	return &DryRunPublisher{logger: logger}
}

func (p *DryRunPublisher) Publish(ctx context.Context, text string, mediaRefs []string) (string, error) {
	id := "dry-run-" + uuid.New().String()
	p.logger.Info("dry-run publish",
		"external_id", id,
		"text_len", len([]rune(text)),
		"media_refs", len(mediaRefs),
	)
	return id, nil
}
