// Package registry loads the definitions directory and serves the
// read-only definition views the engine consumes.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/axonworks/axon/internal/definition"
)

type Registry struct {
	dir string
	set *definition.Set
}

// Open loads and validates the definitions under dir.
func Open(dir string) (*Registry, error) {
	set, err := definition.LoadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}

	slog.Info("definitions loaded",
		"dir", dir,
		"agents", len(set.Agents),
		"tasks", len(set.Tasks),
		"processes", len(set.Processes))

	return &Registry{dir: dir, set: set}, nil
}

// FromSet wraps an already-built set, for tests.
func FromSet(set *definition.Set) *Registry {
	return &Registry{set: set}
}

// Reload re-reads the definitions directory, replacing the set only if
// the new one validates.
func (r *Registry) Reload() error {
	if r.dir == "" {
		return fmt.Errorf("registry not backed by a directory")
	}
	set, err := definition.LoadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reload definitions: %w", err)
	}
	r.set = set
	return nil
}

func (r *Registry) ActiveProcess(name string) (*definition.Process, bool) {
	return r.set.ActiveProcess(name)
}

func (r *Registry) Task(name string) (*definition.Task, bool) {
	return r.set.Task(name)
}

func (r *Registry) Agent(name string) (*definition.Agent, bool) {
	return r.set.Agent(name)
}

// Set exposes the underlying definition set (for the validate command).
func (r *Registry) Set() *definition.Set {
	return r.set
}
