package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_ListTasks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/v1/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"name": "add", "lane": "blocking", "params": []map[string]any{{"name": "a", "type": "float64"}}},
			},
			"total": 1,
		})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).ListTasks()
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}

	want := []TaskResponse{{Name: "add", Lane: "blocking", Params: []ParamResponse{{Name: "a", Type: "float64"}}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tasks mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_KickTask(t *testing.T) {
	var body KickRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/tasks/add/kick" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"data": map[string]any{"task_id": "t1", "task_name": "add"},
		})
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).KickTask("add", KickRequest{Args: []any{1.0, 2.0}})
	if err != nil {
		t.Fatalf("KickTask: %v", err)
	}
	if got.TaskID != "t1" || got.TaskName != "add" {
		t.Errorf("got %+v", got)
	}
	if diff := cmp.Diff([]any{1.0, 2.0}, body.Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "NOT_FOUND", "message": "result not ready: t1"},
		})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetResult("t1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	if want := "NOT_FOUND: result not ready: t1"; err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestClient_APIErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListSchedules()
	if err == nil || err.Error() != "API error: HTTP 502" {
		t.Errorf("unexpected error: %v", err)
	}
	if IsNotFound(err) {
		t.Error("502 reported as not found")
	}
}

func TestWaitResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error": map[string]any{"code": "NOT_FOUND", "message": "result not ready"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"task_id": "t1", "status": "success", "return_value": 5.0},
		})
	}))
	defer srv.Close()

	got, err := WaitResult(NewClient(srv.URL), "t1", time.Second, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitResult: %v", err)
	}
	if got.Status != "success" || got.ReturnValue != 5.0 {
		t.Errorf("got %+v", got)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestWaitResult_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{"code": "NOT_FOUND", "message": "result not ready"},
		})
	}))
	defer srv.Close()

	_, err := WaitResult(NewClient(srv.URL), "t1", 10*time.Millisecond, time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "not ready") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"2", 2.0},
		{"true", true},
		{`"2"`, "2"},
		{"hello", "hello"},
		{`[1,"a"]`, []any{1.0, "a"}},
		{`{"x":1}`, map[string]any{"x": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseValue(tt.raw)); diff != "" {
				t.Errorf("ParseValue(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"a=1", "b=x=y"})
	if err != nil {
		t.Fatalf("parsePairs: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"a": "1", "b": "x=y"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parsePairs([]string{bad}); err == nil {
			t.Errorf("parsePairs(%q) expected error", bad)
		}
	}
}

func TestKickCmd(t *testing.T) {
	var body KickRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusAccepted, map[string]any{
			"data": map[string]any{"task_id": "my-id", "task_name": "add"},
		})
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	out := NewOutputTo(false, &stdout, &stderr)
	cmd := NewKickCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"add", "--arg", "1", "--arg", "2", "--kwarg", "c=x", "--label", "team=core", "--task-id", "my-id"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := KickRequest{
		TaskID: "my-id",
		Args:   []any{1.0, 2.0},
		Kwargs: map[string]any{"c": "x"},
		Labels: map[string]string{"team": "core"},
	}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(stderr.String(), "Task kicked: my-id") {
		t.Errorf("stderr = %q", stderr.String())
	}
	if !strings.Contains(stdout.String(), "my-id") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestOutput_JSONMode(t *testing.T) {
	var stdout bytes.Buffer
	out := NewOutputTo(true, &stdout, &bytes.Buffer{})

	out.Print([]string{"NAME"}, [][]string{{"add"}}, []TaskResponse{{Name: "add", Lane: "async"}})

	var got []TaskResponse
	if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if len(got) != 1 || got[0].Name != "add" {
		t.Errorf("got %+v", got)
	}
}

func TestResultCmd_Details(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/results/t1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"task_id": "t1", "status": "failure", "is_err": true, "error": "boom", "execution_time": 0.5},
		})
	}))
	defer srv.Close()

	var stdout bytes.Buffer
	out := NewOutputTo(false, &stdout, &bytes.Buffer{})
	cmd := NewResultCmd(func() *Client { return NewClient(srv.URL) }, func() *Output { return out })
	cmd.SetArgs([]string{"t1"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	got := stdout.String()
	for _, want := range []string{"Task ID: t1", "Status:  failure", "Error:   boom", "Time:    0.500s"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Return:") {
		t.Errorf("empty return value printed:\n%s", got)
	}
}
