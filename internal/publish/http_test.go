package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- HTTPPublisher Tests ---

func TestHTTPPublisher_Success(t *testing.T) {
	var receivedBody publishRequest
	var receivedAuth string
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")
		receivedContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"id": "post-42"})
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL, Token: "secret"}, testLogger())

	id, err := p.Publish(context.Background(), "привет, мир", []string{"media/1.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "post-42" {
		t.Errorf("expected external id post-42, got %q", id)
	}

	// Проверяем что сервер получил текст и заголовки
	if receivedBody.Text != "привет, мир" {
		t.Errorf("server should receive text, got %q", receivedBody.Text)
	}
	if len(receivedBody.MediaRefs) != 1 || receivedBody.MediaRefs[0] != "media/1.png" {
		t.Errorf("server should receive media refs, got %v", receivedBody.MediaRefs)
	}
	if receivedAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", receivedAuth)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
}

func TestHTTPPublisher_NoToken(t *testing.T) {
	var receivedAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "1"}`))
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())
	if _, err := p.Publish(context.Background(), "text", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedAuth != "" {
		t.Errorf("expected no auth header, got %q", receivedAuth)
	}
}

func TestHTTPPublisher_NonJSONResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())

	// 2xx с нечитаемым телом — успех без external_id
	id, err := p.Publish(context.Background(), "text", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "" {
		t.Errorf("expected empty external id, got %q", id)
	}
}

func TestHTTPPublisher_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "slow down"}`))
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())

	_, err := p.Publish(context.Background(), "text", nil)
	if err == nil {
		t.Fatal("expected error for 429")
	}
	if !IsTransient(err) {
		t.Errorf("429 should be transient, got %v", err)
	}
	if IsPermanent(err) {
		t.Errorf("429 should not be permanent")
	}
}

func TestHTTPPublisher_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())

	_, err := p.Publish(context.Background(), "text", nil)
	if !IsTransient(err) {
		t.Errorf("502 should be transient, got %v", err)
	}
}

func TestHTTPPublisher_ClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error": "content rejected"}`))
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())

	_, err := p.Publish(context.Background(), "text", nil)
	if err == nil {
		t.Fatal("expected error for 422")
	}
	if !IsPermanent(err) {
		t.Errorf("422 should be permanent, got %v", err)
	}

	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PermanentError, got %T", err)
	}
}

func TestHTTPPublisher_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL}, testLogger())

	_, err := p.Publish(context.Background(), "text", nil)
	if !IsPermanent(err) {
		t.Errorf("401 should be permanent, got %v", err)
	}
}

func TestHTTPPublisher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPPublisher(HTTPConfig{URL: server.URL, Timeout: 50 * time.Millisecond}, testLogger())

	_, err := p.Publish(context.Background(), "text", nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !IsTransient(err) {
		t.Errorf("timeout should be transient, got %v", err)
	}
}

// --- Error classification Tests ---

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{"transient wrapper", Transient("boom"), true, false},
		{"permanent wrapper", Permanent("boom"), false, true},
		{"plain error", errors.New("boom"), true, false},
		{"wrapped permanent", errors.Join(errors.New("ctx"), Permanent("inner")), false, true},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.transient)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 200); got != "short" {
		t.Errorf("short strings should pass through, got %q", got)
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := truncate(string(long), 200)
	if len(got) >= 300 {
		t.Errorf("expected truncated string, got %d bytes", len(got))
	}
}

func TestDryRunPublisher(t *testing.T) {
	p := NewDryRunPublisher(testLogger())
	id, err := p.Publish(context.Background(), "text", nil)
	if err != nil {
		t.Fatalf("dry-run should never fail: %v", err)
	}
	if id == "" {
		t.Error("dry-run should return a synthetic external id")
	}
}
