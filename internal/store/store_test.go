package store

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/axonworks/axon/internal/config"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProcessExecutionLifecycle(t *testing.T) {
	s := newTestStore(t)

	id := uuid.New().String()
	e := &ProcessExecution{
		ID:             id,
		Process:        "CopyProcess",
		ProcessVersion: 1,
		Input:          json.RawMessage(`{"product":"soap"}`),
		Status:         StatusRunning,
	}
	if err := s.CreateProcessExecution(e); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetProcessExecution(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("expected execution, got nil")
	}
	if got.Status != StatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.FinishedAt != nil {
		t.Error("expected no finish timestamp while running")
	}

	snapshot := json.RawMessage(`{"input":{"product":"soap"},"results":{},"meta":{}}`)
	if err := s.FinishProcessExecution(id, StatusCompleted, snapshot, ""); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, _ = s.GetProcessExecution(id)
	if got.Status != StatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
	if got.FinishedAt == nil {
		t.Error("expected finish timestamp")
	}
	if string(got.State) != string(snapshot) {
		t.Errorf("unexpected state snapshot: %s", got.State)
	}
	if got.Error != "" {
		t.Errorf("expected empty error, got %q", got.Error)
	}
}

func TestProcessExecutionFailure(t *testing.T) {
	s := newTestStore(t)

	id := uuid.New().String()
	e := &ProcessExecution{ID: id, Process: "P", ProcessVersion: 1, Input: json.RawMessage(`{}`), Status: StatusRunning}
	if err := s.CreateProcessExecution(e); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := s.FinishProcessExecution(id, StatusFailed, json.RawMessage(`{}`), "provider unreachable"); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, _ := s.GetProcessExecution(id)
	if got.Status != StatusFailed {
		t.Errorf("expected failed, got %s", got.Status)
	}
	if got.Error != "provider unreachable" {
		t.Errorf("expected error detail, got %q", got.Error)
	}
}

func TestGetProcessExecutionMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetProcessExecution("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing execution")
	}
}

func TestTaskExecutions(t *testing.T) {
	s := newTestStore(t)

	execID := uuid.New().String()
	pe := &ProcessExecution{ID: execID, Process: "P", ProcessVersion: 1, Input: json.RawMessage(`{}`), Status: StatusRunning}
	if err := s.CreateProcessExecution(pe); err != nil {
		t.Fatalf("create execution: %v", err)
	}

	t1 := &TaskExecution{
		ID:          uuid.New().String(),
		ExecutionID: execID,
		Task:        "generate_copy",
		Input:       json.RawMessage(`{"product":"soap"}`),
		Status:      StatusRunning,
	}
	if err := s.CreateTaskExecution(t1); err != nil {
		t.Fatalf("create task execution: %v", err)
	}

	out := json.RawMessage(`{"text":"Buy soap.","confidence":0.9}`)
	if err := s.FinishTaskExecution(t1.ID, StatusCompleted, out, ""); err != nil {
		t.Fatalf("finish task execution: %v", err)
	}

	t2 := &TaskExecution{
		ID:          uuid.New().String(),
		ExecutionID: execID,
		Task:        "publish_copy",
		Input:       json.RawMessage(`{}`),
		Status:      StatusRunning,
	}
	if err := s.CreateTaskExecution(t2); err != nil {
		t.Fatalf("create second task execution: %v", err)
	}
	if err := s.FinishTaskExecution(t2.ID, StatusFailed, nil, "invoke failed"); err != nil {
		t.Fatalf("fail task execution: %v", err)
	}

	list, err := s.ListTaskExecutions(execID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 task executions, got %d", len(list))
	}

	byTask := map[string]TaskExecution{}
	for _, te := range list {
		byTask[te.Task] = te
	}
	if string(byTask["generate_copy"].Output) != string(out) {
		t.Errorf("unexpected output: %s", byTask["generate_copy"].Output)
	}
	if byTask["publish_copy"].Output != nil {
		t.Errorf("expected nil output for errored task, got %s", byTask["publish_copy"].Output)
	}
	if byTask["publish_copy"].Error != "invoke failed" {
		t.Errorf("expected error detail, got %q", byTask["publish_copy"].Error)
	}
}

func TestListProcessExecutions(t *testing.T) {
	s := newTestStore(t)

	for range 3 {
		e := &ProcessExecution{
			ID: uuid.New().String(), Process: "P", ProcessVersion: 1,
			Input: json.RawMessage(`{}`), Status: StatusRunning,
		}
		if err := s.CreateProcessExecution(e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListProcessExecutions(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("expected limit of 2, got %d", len(list))
	}
}

func TestCredentials(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveCredential("openai", []byte("sealed-blob")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetCredential("openai")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "sealed-blob" {
		t.Errorf("unexpected value: %s", got)
	}

	// Upsert
	if err := s.SaveCredential("openai", []byte("rotated")); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	got, _ = s.GetCredential("openai")
	if string(got) != "rotated" {
		t.Errorf("expected rotated value, got %s", got)
	}

	list, err := s.ListCredentials()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Provider != "openai" {
		t.Errorf("unexpected list: %+v", list)
	}

	if err := s.DeleteCredential("openai"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.GetCredential("openai")
	if got != nil {
		t.Error("expected nil after delete")
	}
}
