// Package definition holds the declarative model of the system: agents,
// tasks, and processes with their ordered conditional transitions. The
// engine consumes these as read-only views; authoring happens in YAML
// documents loaded from a definitions directory.
package definition

import (
	"github.com/axonworks/axon/internal/provider"
)

// Agent binds a role and instructions to a provider configuration and
// an optional output schema.
type Agent struct {
	Name         string            `yaml:"name" json:"name"`
	Role         string            `yaml:"role" json:"role"`
	Instructions string            `yaml:"instructions" json:"instructions"`
	LLM          provider.Config   `yaml:"llm" json:"llm"`
	OutputSchema map[string]string `yaml:"output_schema,omitempty" json:"output_schema,omitempty"`

	// Tools is parsed and carried but currently inert: no executor
	// component consumes it yet.
	Tools map[string]any `yaml:"tools,omitempty" json:"tools,omitempty"`
}

// Task is one step in a process: an agent reference plus declarative
// input/output field mappings.
type Task struct {
	Name          string            `yaml:"name" json:"name"`
	Agent         string            `yaml:"agent" json:"agent"`
	Description   string            `yaml:"description,omitempty" json:"description,omitempty"`
	InputMapping  map[string]string `yaml:"input_mapping,omitempty" json:"input_mapping,omitempty"`
	OutputMapping map[string]string `yaml:"output_mapping,omitempty" json:"output_mapping,omitempty"`
}

// Transition is an ordered, conditional edge between two tasks.
// Transitions from a task are evaluated in ascending Order; the first
// whose condition holds is taken.
type Transition struct {
	From      string `yaml:"from" json:"from"`
	To        string `yaml:"to" json:"to"`
	Condition string `yaml:"condition" json:"condition"`
	Order     int    `yaml:"order" json:"order"`
}

// Process is a named, versioned task graph with one entry task.
type Process struct {
	Name        string       `yaml:"name" json:"name"`
	Version     int          `yaml:"version" json:"version"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	EntryTask   string       `yaml:"entry_task" json:"entry_task"`
	Transitions []Transition `yaml:"transitions,omitempty" json:"transitions,omitempty"`

	// Active is a tri-state in YAML so an omitted flag defaults to
	// active; Load normalizes it.
	Active *bool `yaml:"active,omitempty" json:"active,omitempty"`
}

// IsActive reports the normalized active flag (omitted means active).
func (p *Process) IsActive() bool {
	return p.Active == nil || *p.Active
}

// Document is the shape of one YAML definitions file. A file may carry
// any mix of sections.
type Document struct {
	Agents    []Agent   `yaml:"agents,omitempty"`
	Tasks     []Task    `yaml:"tasks,omitempty"`
	Processes []Process `yaml:"processes,omitempty"`
}

// Set is the merged, validated content of a definitions directory.
type Set struct {
	Agents    map[string]*Agent
	Tasks     map[string]*Task
	Processes []*Process
}

// ActiveProcess returns the single active process with the given name.
func (s *Set) ActiveProcess(name string) (*Process, bool) {
	for _, p := range s.Processes {
		if p.Name == name && p.IsActive() {
			return p, true
		}
	}
	return nil, false
}

// Task looks up a task definition by name.
func (s *Set) Task(name string) (*Task, bool) {
	t, ok := s.Tasks[name]
	return t, ok
}

// Agent looks up an agent definition by name.
func (s *Set) Agent(name string) (*Agent, bool) {
	a, ok := s.Agents[name]
	return a, ok
}
