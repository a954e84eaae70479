// Package engine walks a process's task graph: it resolves each task's
// input from execution state, invokes the task's agent, merges the
// mapped output back, selects the next task by evaluating ordered
// transition conditions, and durably records the run and every task
// attempt along the way.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/axonworks/axon/internal/agent"
	"github.com/axonworks/axon/internal/condition"
	"github.com/axonworks/axon/internal/definition"
	"github.com/axonworks/axon/internal/events"
	"github.com/axonworks/axon/internal/mapping"
	"github.com/axonworks/axon/internal/provider"
	"github.com/axonworks/axon/internal/state"
	"github.com/axonworks/axon/internal/store"
)

var (
	// ErrProcessNotFound marks a missing or inactive process. Fatal.
	ErrProcessNotFound = errors.New("process not found")

	// ErrTaskNotFound marks a dangling task reference in a process
	// graph. Fatal: the definitions are misconfigured.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAgentNotFound marks a dangling agent reference on a task.
	ErrAgentNotFound = errors.New("agent not found")
)

// DefinitionSource is the read-only view of definitions the engine
// consumes from its storage collaborator.
type DefinitionSource interface {
	ActiveProcess(name string) (*definition.Process, bool)
	Task(name string) (*definition.Task, bool)
	Agent(name string) (*definition.Agent, bool)
}

// ExecutionStore receives the engine's execution records. Records are
// created at start and updated exactly once on terminal transition.
type ExecutionStore interface {
	CreateProcessExecution(*store.ProcessExecution) error
	FinishProcessExecution(id, status string, state json.RawMessage, errMsg string) error
	CreateTaskExecution(*store.TaskExecution) error
	FinishTaskExecution(id, status string, output json.RawMessage, errMsg string) error
}

// EventPublisher receives best-effort lifecycle events.
type EventPublisher interface {
	Publish(events.Event)
}

// Engine executes processes. One Execute call owns its state
// exclusively; concurrent runs share nothing and need no locking.
type Engine struct {
	defs      DefinitionSource
	store     ExecutionStore
	providers *provider.Factory
	events    EventPublisher
}

func New(defs DefinitionSource, st ExecutionStore, providers *provider.Factory, pub EventPublisher) *Engine {
	if pub == nil {
		pub = (*events.Publisher)(nil) // nil publisher drops events
	}
	return &Engine{defs: defs, store: st, providers: providers, events: pub}
}

// Result is the outcome of a completed run.
type Result struct {
	ExecutionID string
	State       *state.State
}

// Execute runs the named process end-to-end, synchronously, and returns
// the final execution state. The run blocks at each agent invocation;
// ctx is the only cancellation seam. Any fatal error marks the
// execution failed before propagating.
func (e *Engine) Execute(ctx context.Context, processName string, input map[string]any) (*Result, error) {
	proc, ok := e.defs.ActiveProcess(processName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProcessNotFound, processName)
	}

	st := state.New(input)
	execID := uuid.New().String()

	inputJSON, err := json.Marshal(st.Input)
	if err != nil {
		return nil, fmt.Errorf("marshal input payload: %w", err)
	}

	if err := e.store.CreateProcessExecution(&store.ProcessExecution{
		ID:             execID,
		Process:        proc.Name,
		ProcessVersion: proc.Version,
		Input:          inputJSON,
		Status:         store.StatusRunning,
	}); err != nil {
		return nil, fmt.Errorf("record execution start: %w", err)
	}

	e.events.Publish(events.Event{
		Type:        events.ExecutionStarted,
		ExecutionID: execID,
		Process:     proc.Name,
	})
	slog.Info("execution started", "execution", execID, "process", proc.Name, "version", proc.Version)

	if err := e.run(ctx, execID, proc, st); err != nil {
		e.finish(execID, proc.Name, store.StatusFailed, st, err)
		return nil, err
	}

	e.finish(execID, proc.Name, store.StatusCompleted, st, nil)
	return &Result{ExecutionID: execID, State: st}, nil
}

func (e *Engine) run(ctx context.Context, execID string, proc *definition.Process, st *state.State) error {
	current := proc.EntryTask

	for current != "" {
		output, err := e.executeTask(ctx, execID, proc, current, st)
		if err != nil {
			return err
		}

		// The merge is unconditional: an output carrying an _error tag
		// is data, and downstream conditions may branch on it.
		st.SetResult(current, output)

		next, err := e.nextTask(proc, current, st)
		if err != nil {
			return err
		}
		current = next
	}

	return nil
}

func (e *Engine) executeTask(ctx context.Context, execID string, proc *definition.Process, taskName string, st *state.State) (map[string]any, error) {
	task, ok := e.defs.Task(taskName)
	if !ok {
		return nil, fmt.Errorf("%w: %q in process %q", ErrTaskNotFound, taskName, proc.Name)
	}

	agentDef, ok := e.defs.Agent(task.Agent)
	if !ok {
		return nil, fmt.Errorf("%w: %q for task %q", ErrAgentNotFound, task.Agent, taskName)
	}

	backend, err := e.providers.Resolve(agentDef.LLM)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", taskName, err)
	}

	input := mapping.ResolveInput(task.InputMapping, st)
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("task %q: marshal input: %w", taskName, err)
	}

	taskExecID := uuid.New().String()
	if err := e.store.CreateTaskExecution(&store.TaskExecution{
		ID:          taskExecID,
		ExecutionID: execID,
		Task:        taskName,
		Input:       inputJSON,
		Status:      store.StatusRunning,
	}); err != nil {
		return nil, fmt.Errorf("record task start: %w", err)
	}

	e.events.Publish(events.Event{
		Type:        events.TaskStarted,
		ExecutionID: execID,
		Process:     proc.Name,
		Task:        taskName,
	})
	slog.Debug("task started", "execution", execID, "task", taskName, "agent", agentDef.Name)

	runtime := agent.NewRuntime(agentDef, backend)
	out, err := runtime.Run(ctx, input)
	if err != nil {
		if ferr := e.store.FinishTaskExecution(taskExecID, store.StatusFailed, nil, err.Error()); ferr != nil {
			slog.Error("record task failure", "task", taskName, "error", ferr)
		}
		return nil, fmt.Errorf("task %q: %w", taskName, err)
	}

	// A schema-invalid output still completes the task; the violation
	// is visible only in the recorded payload.
	mapped := mapping.ApplyOutput(task.OutputMapping, out.AsMap())

	outputJSON, err := json.Marshal(mapped)
	if err != nil {
		return nil, fmt.Errorf("task %q: marshal output: %w", taskName, err)
	}
	if err := e.store.FinishTaskExecution(taskExecID, store.StatusCompleted, outputJSON, ""); err != nil {
		return nil, fmt.Errorf("record task completion: %w", err)
	}

	e.events.Publish(events.Event{
		Type:        events.TaskCompleted,
		ExecutionID: execID,
		Process:     proc.Name,
		Task:        taskName,
		Detail:      map[string]any{"schema_ok": out.OK()},
	})
	slog.Debug("task completed", "execution", execID, "task", taskName, "schema_ok", out.OK())

	return mapped, nil
}

// nextTask evaluates the current task's outgoing transitions in
// ascending order against the post-update state and takes the first
// match. No matching transition means the task is an end node, not a
// dead end.
func (e *Engine) nextTask(proc *definition.Process, current string, st *state.State) (string, error) {
	root := st.AsMap()

	for _, tr := range proc.TransitionsFrom(current) {
		matched, err := condition.Evaluate(tr.Condition, root)
		if err != nil {
			return "", fmt.Errorf("process %q: transition %q -> %q: %w", proc.Name, tr.From, tr.To, err)
		}
		if matched {
			return tr.To, nil
		}
	}

	return "", nil
}

// finish performs the execution record's single terminal update. The
// snapshot captures whatever state the run accumulated, including on
// failure, so no record is left stuck at running.
func (e *Engine) finish(execID, process, status string, st *state.State, runErr error) {
	snapshot, err := json.Marshal(st.Snapshot())
	if err != nil {
		slog.Error("marshal state snapshot", "execution", execID, "error", err)
		snapshot = []byte("{}")
	}

	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}

	if err := e.store.FinishProcessExecution(execID, status, snapshot, errMsg); err != nil {
		slog.Error("record execution finish", "execution", execID, "status", status, "error", err)
	}

	evType := events.ExecutionCompleted
	if status == store.StatusFailed {
		evType = events.ExecutionFailed
	}
	e.events.Publish(events.Event{
		Type:        evType,
		ExecutionID: execID,
		Process:     process,
	})

	if runErr != nil {
		slog.Error("execution failed", "execution", execID, "process", process, "error", runErr)
	} else {
		slog.Info("execution completed", "execution", execID, "process", process)
	}
}
