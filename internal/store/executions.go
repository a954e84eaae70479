package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Execution statuses. running is the only non-terminal state.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProcessExecution is one end-to-end run of a process.
type ProcessExecution struct {
	ID             string          `json:"id"`
	Process        string          `json:"process"`
	ProcessVersion int             `json:"process_version"`
	Input          json.RawMessage `json:"input"`
	State          json.RawMessage `json:"state,omitempty"`
	Status         string          `json:"status"`
	Error          string          `json:"error,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty"`
}

// TaskExecution is one task attempt within a run. A revisited task node
// produces a fresh record per attempt.
type TaskExecution struct {
	ID          string          `json:"id"`
	ExecutionID string          `json:"execution_id"`
	Task        string          `json:"task"`
	Input       json.RawMessage `json:"input"`
	Output      json.RawMessage `json:"output,omitempty"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

func (s *Store) CreateProcessExecution(e *ProcessExecution) error {
	_, err := s.db.Exec(`
		INSERT INTO process_executions (id, process, process_version, input, status)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.Process, e.ProcessVersion, string(e.Input), e.Status)
	if err != nil {
		return fmt.Errorf("create process execution: %w", err)
	}
	return nil
}

// FinishProcessExecution performs the single terminal update: status,
// final state snapshot, optional error detail, finish timestamp.
func (s *Store) FinishProcessExecution(id, status string, state json.RawMessage, errMsg string) error {
	_, err := s.db.Exec(`
		UPDATE process_executions
		SET status = ?, state = ?, error = NULLIF(?, ''), finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, string(state), errMsg, id)
	if err != nil {
		return fmt.Errorf("finish process execution: %w", err)
	}
	return nil
}

func (s *Store) GetProcessExecution(id string) (*ProcessExecution, error) {
	row := s.db.QueryRow(`
		SELECT id, process, process_version, input, state, status, error, started_at, finished_at
		FROM process_executions WHERE id = ?`, id)
	e, err := scanProcessExecution(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get process execution: %w", err)
	}
	return e, nil
}

func (s *Store) ListProcessExecutions(limit int) ([]ProcessExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT id, process, process_version, input, state, status, error, started_at, finished_at
		FROM process_executions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list process executions: %w", err)
	}
	defer rows.Close()

	var out []ProcessExecution
	for rows.Next() {
		e, err := scanProcessExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan process execution: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (s *Store) CreateTaskExecution(e *TaskExecution) error {
	_, err := s.db.Exec(`
		INSERT INTO task_executions (id, execution_id, task, input, status)
		VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.ExecutionID, e.Task, string(e.Input), e.Status)
	if err != nil {
		return fmt.Errorf("create task execution: %w", err)
	}
	return nil
}

func (s *Store) FinishTaskExecution(id, status string, output json.RawMessage, errMsg string) error {
	var out any
	if output != nil {
		out = string(output)
	}
	_, err := s.db.Exec(`
		UPDATE task_executions
		SET status = ?, output = ?, error = NULLIF(?, ''), finished_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, out, errMsg, id)
	if err != nil {
		return fmt.Errorf("finish task execution: %w", err)
	}
	return nil
}

func (s *Store) ListTaskExecutions(executionID string) ([]TaskExecution, error) {
	rows, err := s.db.Query(`
		SELECT id, execution_id, task, input, output, status, error, started_at, finished_at
		FROM task_executions WHERE execution_id = ? ORDER BY started_at`, executionID)
	if err != nil {
		return nil, fmt.Errorf("list task executions: %w", err)
	}
	defer rows.Close()

	var out []TaskExecution
	for rows.Next() {
		e, err := scanTaskExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task execution: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanProcessExecution(sc scanner) (*ProcessExecution, error) {
	e := &ProcessExecution{}
	var inputStr string
	var stateStr, errStr sql.NullString
	err := sc.Scan(&e.ID, &e.Process, &e.ProcessVersion, &inputStr, &stateStr,
		&e.Status, &errStr, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		return nil, err
	}
	e.Input = json.RawMessage(inputStr)
	if stateStr.Valid {
		e.State = json.RawMessage(stateStr.String)
	}
	e.Error = errStr.String
	return e, nil
}

func scanTaskExecution(sc scanner) (*TaskExecution, error) {
	e := &TaskExecution{}
	var inputStr string
	var outStr, errStr sql.NullString
	err := sc.Scan(&e.ID, &e.ExecutionID, &e.Task, &inputStr, &outStr,
		&e.Status, &errStr, &e.StartedAt, &e.FinishedAt)
	if err != nil {
		return nil, err
	}
	e.Input = json.RawMessage(inputStr)
	if outStr.Valid {
		e.Output = json.RawMessage(outStr.String)
	}
	e.Error = errStr.String
	return e, nil
}
