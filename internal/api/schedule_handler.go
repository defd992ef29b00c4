package api

import "net/http"

// ListSchedules — GET /api/v1/schedules
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules := h.schedules.Schedules()
	resp := make([]ScheduleResponse, len(schedules))
	for i := range schedules {
		resp[i] = ScheduleFromDomain(&schedules[i])
	}
	List(w, resp, len(resp))
}
