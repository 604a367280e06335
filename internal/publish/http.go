package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// HTTPConfig — настройки HTTP-публикатора.
type HTTPConfig struct {
	// URL внешнего канала публикации. POST с JSON-телом.
	URL string
	// Token подставляется в заголовок Authorization как Bearer.
	// Пустой token — заголовок не отправляется.
	Token string
	// Timeout на весь запрос. 0 — defaultTimeout.
	Timeout time.Duration
}

// HTTPPublisher публикует текст POST-запросом во внешний канал.
type HTTPPublisher struct {
	cfg    HTTPConfig
	client *http.Client
	logger *slog.Logger
}

func NewHTTPPublisher(cfg HTTPConfig, logger *slog.Logger) *HTTPPublisher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &HTTPPublisher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type publishRequest struct {
	Text      string   `json:"text"`
	MediaRefs []string `json:"media_refs,omitempty"`
}

type publishResponse struct {
	ID string `json:"id"`
}

// Publish отправляет текст и возвращает внешний идентификатор публикации.
// Классификация сбоев: 429 и 5xx временные, остальные 4xx необратимые,
// сетевые ошибки и таймауты временные.
func (p *HTTPPublisher) Publish(ctx context.Context, text string, mediaRefs []string) (string, error) {
	body, err := json.Marshal(publishRequest{Text: text, MediaRefs: mediaRefs})
	if err != nil {
		return "", Permanent("marshal request: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", Permanent("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", Transient("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", Transient("read response: %v", err)
	}

	p.logger.Debug("publish request finished",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", Transient("rate limited: %s", truncate(string(respBody), 200))
	case resp.StatusCode >= 500:
		return "", Transient("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	case resp.StatusCode >= 400:
		return "", Permanent("status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed publishResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		// Канал принял публикацию, но идентификатор не разобрать.
		// Это успех без external_id, а не сбой.
		p.logger.Warn("publish response is not valid JSON", "body", truncate(string(respBody), 200))
		return "", nil
	}
	return parsed.ID, nil
}

// --- Helpers ---

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes total)", s[:max], len(s))
}
