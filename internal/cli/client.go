package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ScheduleResponse — расписание из API.
type ScheduleResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Kind            string `json:"kind"`
	Expr            string `json:"expr"`
	Timezone        string `json:"timezone"`
	PostID          string `json:"post_id,omitempty"`
	TemplateID      string `json:"template_id,omitempty"`
	SelectionPolicy string `json:"selection_policy,omitempty"`
	NoRepeatWindow  int    `json:"no_repeat_window,omitempty"`
	NoRepeatScope   string `json:"no_repeat_scope,omitempty"`
	Enabled         bool   `json:"enabled"`
	NextRunAt       string `json:"next_run_at,omitempty"`
	LastRunAt       string `json:"last_run_at,omitempty"`
	LastJobID       string `json:"last_job_id,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// JobResponse — задание из API.
type JobResponse struct {
	ID              string `json:"id"`
	ScheduleID      string `json:"schedule_id"`
	PlannedAt       string `json:"planned_at"`
	VariantID       string `json:"variant_id,omitempty"`
	PostID          string `json:"post_id,omitempty"`
	SelectionPolicy string `json:"selection_policy,omitempty"`
	SelectionSeed   *int64 `json:"selection_seed,omitempty"`
	Status          string `json:"status"`
	Attempt         int    `json:"attempt"`
	EnqueuedAt      string `json:"enqueued_at,omitempty"`
	StartedAt       string `json:"started_at,omitempty"`
	FinishedAt      string `json:"finished_at,omitempty"`
	Error           string `json:"error,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// PublishedResponse — факт публикации из API.
type PublishedResponse struct {
	ID          string `json:"id"`
	JobID       string `json:"job_id"`
	ScheduleID  string `json:"schedule_id"`
	VariantID   string `json:"variant_id,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	Text        string `json:"text"`
	PublishedAt string `json:"published_at"`
}

// PreviewResponse — результат предпросмотра выбора варианта.
type PreviewResponse struct {
	ScheduleID string `json:"schedule_id"`
	PlannedAt  string `json:"planned_at"`
	VariantID  string `json:"variant_id"`
	Text       string `json:"text"`
	Seed       int64  `json:"seed"`
}

// OccurrencesResponse — ближайшие срабатывания расписания.
type OccurrencesResponse struct {
	ScheduleID  string   `json:"schedule_id"`
	From        string   `json:"from"`
	Occurrences []string `json:"occurrences"`
}

// JobStatsResponse — количество заданий по статусам.
type JobStatsResponse struct {
	ByStatus map[string]int `json:"by_status"`
	Total    int            `json:"total"`
}

// SchedulerHealthResponse — отчёт о здоровье планировщика.
type SchedulerHealthResponse struct {
	OverdueSchedules int    `json:"overdue_schedules"`
	StaleRunningJobs int    `json:"stale_running_jobs"`
	Healthy          bool   `json:"healthy"`
	CheckedAt        string `json:"checked_at"`
}

// --- Query options ---

// ListSchedulesOpts — параметры фильтрации расписаний.
type ListSchedulesOpts struct {
	Enabled string // "true", "false" или "" (все)
	Limit   int
}

// ListJobsOpts — параметры фильтрации заданий.
type ListJobsOpts struct {
	ScheduleID string
	Status     string
	Limit      int
}

// PreviewOpts — параметры предпросмотра выбора.
type PreviewOpts struct {
	PlannedAt string // RFC3339, пусто = next_run_at либо текущий момент
	Seed      string // переопределение seed, пусто = детерминированный
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Rupor API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// --- Schedules ---

// ListSchedules возвращает расписания с фильтрацией.
func (c *Client) ListSchedules(opts ListSchedulesOpts) ([]ScheduleResponse, error) {
	params := url.Values{}
	if opts.Enabled != "" {
		params.Set("enabled", opts.Enabled)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", params, &schedules)
	return schedules, err
}

// GetSchedule возвращает расписание по ID.
func (c *Client) GetSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	err := c.get("/api/v1/schedules/"+id, &schedule)
	return &schedule, err
}

// EnableSchedule включает расписание.
func (c *Client) EnableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": true}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// DisableSchedule выключает расписание.
func (c *Client) DisableSchedule(id string) (*ScheduleResponse, error) {
	var schedule ScheduleResponse
	body := map[string]bool{"enabled": false}
	err := c.put("/api/v1/schedules/"+id+"/enabled", body, &schedule)
	return &schedule, err
}

// PreviewSchedule показывает, какой вариант будет выбран для расписания.
func (c *Client) PreviewSchedule(id string, opts PreviewOpts) (*PreviewResponse, error) {
	params := url.Values{}
	if opts.PlannedAt != "" {
		params.Set("planned_at", opts.PlannedAt)
	}
	if opts.Seed != "" {
		params.Set("seed", opts.Seed)
	}

	path := "/api/v1/schedules/" + id + "/preview"
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	var preview PreviewResponse
	err := c.get(path, &preview)
	return &preview, err
}

// ListOccurrences возвращает ближайшие срабатывания расписания.
func (c *Client) ListOccurrences(id string, from string, limit int) (*OccurrencesResponse, error) {
	params := url.Values{}
	if from != "" {
		params.Set("from", from)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	path := "/api/v1/schedules/" + id + "/occurrences"
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	var occ OccurrencesResponse
	err := c.get(path, &occ)
	return &occ, err
}

// ListScheduleJobs возвращает задания расписания.
func (c *Client) ListScheduleJobs(id string, opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/schedules/"+id+"/jobs", params, &jobs)
	return jobs, err
}

// --- Jobs ---

// ListJobs возвращает задания с фильтрацией.
func (c *Client) ListJobs(opts ListJobsOpts) ([]JobResponse, error) {
	params := url.Values{}
	if opts.ScheduleID != "" {
		params.Set("schedule_id", opts.ScheduleID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var jobs []JobResponse
	err := c.list("/api/v1/jobs", params, &jobs)
	return jobs, err
}

// GetJob возвращает задание по ID.
func (c *Client) GetJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.get("/api/v1/jobs/"+id, &job)
	return &job, err
}

// CancelJob отменяет задание, ещё не взятое в работу.
func (c *Client) CancelJob(id string) (*JobResponse, error) {
	var job JobResponse
	err := c.post("/api/v1/jobs/"+id+"/cancel", nil, &job)
	return &job, err
}

// GetPublished возвращает факт публикации для задания.
func (c *Client) GetPublished(jobID string) (*PublishedResponse, error) {
	var rec PublishedResponse
	err := c.get("/api/v1/jobs/"+jobID+"/published", &rec)
	return &rec, err
}

// JobStats возвращает количество заданий по статусам.
func (c *Client) JobStats() (*JobStatsResponse, error) {
	var stats JobStatsResponse
	err := c.get("/api/v1/stats/jobs", &stats)
	return &stats, err
}

// SchedulerHealth возвращает отчёт о здоровье планировщика.
func (c *Client) SchedulerHealth() (*SchedulerHealthResponse, error) {
	var health SchedulerHealthResponse
	err := c.get("/api/v1/health/scheduler", &health)
	return &health, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) put(path string, body any, result any) error {
	return c.doData(http.MethodPut, path, body, result)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
