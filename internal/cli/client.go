package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// ParamResponse — параметр задачи.
type ParamResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Injected bool   `json:"injected,omitempty"`
}

// TaskResponse — задача из API воркера.
type TaskResponse struct {
	Name         string          `json:"name"`
	Lane         string          `json:"lane"`
	TakesContext bool            `json:"takes_context"`
	Params       []ParamResponse `json:"params"`
}

// KickResponse — отправленная задача.
type KickResponse struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
}

// ResultResponse — результат задачи.
type ResultResponse struct {
	TaskID        string  `json:"task_id"`
	Status        string  `json:"status"`
	IsErr         bool    `json:"is_err"`
	ReturnValue   any     `json:"return_value,omitempty"`
	Error         string  `json:"error,omitempty"`
	Log           *string `json:"log,omitempty"`
	ExecutionTime float64 `json:"execution_time"`
}

// ScheduleResponse — расписание из API планировщика.
type ScheduleResponse struct {
	Name        string `json:"name"`
	TaskName    string `json:"task_name"`
	Cron        string `json:"cron,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Disabled    bool   `json:"disabled"`
	NextDueAt   string `json:"next_due_at,omitempty"`
	LastKickAt  string `json:"last_kick_at,omitempty"`
	LastTaskID  string `json:"last_task_id,omitempty"`
}

// --- Request types ---

// KickRequest — отправка задачи.
type KickRequest struct {
	TaskID string            `json:"task_id,omitempty"`
	Args   []any             `json:"args,omitempty"`
	Kwargs map[string]any    `json:"kwargs,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
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

// APIError — ошибка, вернувшаяся из API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsNotFound проверяет, что API ответил 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// --- Client ---

// Client — HTTP-клиент для API воркера и планировщика.
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

// ListTasks возвращает зарегистрированные задачи.
func (c *Client) ListTasks() ([]TaskResponse, error) {
	var tasks []TaskResponse
	err := c.list("/api/v1/tasks", nil, &tasks)
	return tasks, err
}

// KickTask отправляет задачу.
func (c *Client) KickTask(name string, req KickRequest) (*KickResponse, error) {
	var kicked KickResponse
	err := c.post("/api/v1/tasks/"+url.PathEscape(name)+"/kick", req, &kicked)
	return &kicked, err
}

// GetResult возвращает результат задачи.
func (c *Client) GetResult(taskID string) (*ResultResponse, error) {
	var result ResultResponse
	err := c.get("/api/v1/results/"+url.PathEscape(taskID), &result)
	return &result, err
}

// ListSchedules возвращает расписания.
func (c *Client) ListSchedules() ([]ScheduleResponse, error) {
	var schedules []ScheduleResponse
	err := c.list("/api/v1/schedules", nil, &schedules)
	return schedules, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
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

	apiErr := &APIError{Status: resp.StatusCode}
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil {
		apiErr.Code = er.Error.Code
		apiErr.Message = er.Error.Message
	}
	return apiErr
}
