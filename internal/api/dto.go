package api

import (
	"time"

	"github.com/shaiso/taskrun/internal/domain"
	"github.com/shaiso/taskrun/internal/tasks"
)

// --- Tasks ---

// ParamResponse — параметр задачи.
type ParamResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Injected bool   `json:"injected,omitempty"`
}

// TaskResponse — зарегистрированная задача.
type TaskResponse struct {
	Name         string          `json:"name"`
	Lane         string          `json:"lane"`
	TakesContext bool            `json:"takes_context"`
	Params       []ParamResponse `json:"params"`
}

// TaskFromDescriptor конвертирует tasks.Descriptor в TaskResponse.
func TaskFromDescriptor(d *tasks.Descriptor) TaskResponse {
	injected := make(map[string]bool)
	if d.Graph != nil {
		for _, name := range d.Graph.Names() {
			injected[name] = true
		}
	}

	params := make([]ParamResponse, len(d.Signature.Params))
	for i, p := range d.Signature.Params {
		params[i] = ParamResponse{
			Name:     p.Name,
			Type:     p.Type.String(),
			Injected: injected[p.Name],
		}
	}

	return TaskResponse{
		Name:         d.Name,
		Lane:         d.Lane.String(),
		TakesContext: d.Signature.TakesContext,
		Params:       params,
	}
}

// KickRequest — отправка задачи.
type KickRequest struct {
	TaskID string            `json:"task_id,omitempty"`
	Args   []any             `json:"args,omitempty"`
	Kwargs map[string]any    `json:"kwargs,omitempty"`
	Labels map[string]string `json:"labels,omitempty"`
}

// KickResponse — отправленная задача.
type KickResponse struct {
	TaskID   string `json:"task_id"`
	TaskName string `json:"task_name"`
}

// --- Results ---

// ResultResponse — результат задачи.
type ResultResponse struct {
	TaskID        string  `json:"task_id"`
	Status        string  `json:"status"`
	IsErr         bool    `json:"is_err"`
	ReturnValue   any     `json:"return_value,omitempty"`
	Error         string  `json:"error,omitempty"`
	Log           *string `json:"log,omitempty"`
	ExecutionTime float64 `json:"execution_time"` // секунды
}

// ResultFromDomain конвертирует domain.Result в ResultResponse.
func ResultFromDomain(taskID string, r *domain.Result) ResultResponse {
	return ResultResponse{
		TaskID:        taskID,
		Status:        r.Status(),
		IsErr:         r.IsErr,
		ReturnValue:   r.ReturnValue,
		Error:         r.Error,
		Log:           r.Log,
		ExecutionTime: r.ExecutionTime.Seconds(),
	}
}

// --- Schedules ---

// ScheduleResponse — расписание.
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

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	resp := ScheduleResponse{
		Name:        s.Name,
		TaskName:    s.TaskName,
		Cron:        s.Cron,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Disabled:    s.Disabled,
		LastTaskID:  s.LastTaskID,
	}
	if s.NextDueAt != nil {
		resp.NextDueAt = s.NextDueAt.Format(time.RFC3339)
	}
	if s.LastKickAt != nil {
		resp.LastKickAt = s.LastKickAt.Format(time.RFC3339)
	}
	return resp
}
