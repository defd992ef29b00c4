package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/taskrun/internal/kicker"
	"github.com/shaiso/taskrun/internal/repo"
)

// ListTasks — GET /api/v1/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()
	resp := make([]TaskResponse, 0, len(names))
	for _, name := range names {
		d, _ := h.registry.Get(name)
		resp = append(resp, TaskFromDescriptor(d))
	}
	List(w, resp, len(resp))
}

// KickTask — POST /api/v1/tasks/{name}/kick
func (h *Handler) KickTask(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	// Неизвестную задачу воркер молча отбросит, поэтому проверяем заранее.
	if h.registry != nil {
		if _, ok := h.registry.Get(name); !ok {
			NotFound(w, "task not registered: "+name)
			return
		}
	}

	var req KickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(w, "invalid JSON: "+err.Error())
		return
	}

	msg, err := h.kicker.Kick(r.Context(), kicker.Request{
		TaskName: name,
		TaskID:   req.TaskID,
		Args:     req.Args,
		Kwargs:   req.Kwargs,
		Labels:   req.Labels,
	})
	if err != nil {
		Unavailable(w, h.logger, err)
		return
	}

	Accepted(w, KickResponse{TaskID: msg.TaskID, TaskName: msg.TaskName})
}

// GetResult — GET /api/v1/results/{id}
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	result, err := h.results.GetResult(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			NotFound(w, "result not ready: "+id)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ResultFromDomain(id, result))
}
