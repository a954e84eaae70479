package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir reads every .yaml/.yml file under dir (one level, sorted by
// name), merges the documents, and validates the result.
func LoadDir(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read definitions dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	set := &Set{
		Agents: map[string]*Agent{},
		Tasks:  map[string]*Task{},
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		if err := set.merge(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := set.Validate(); err != nil {
		return nil, err
	}

	return set, nil
}

// Parse loads a single YAML document, for tests and ad hoc validation.
func Parse(data []byte) (*Set, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	set := &Set{
		Agents: map[string]*Agent{},
		Tasks:  map[string]*Task{},
	}
	if err := set.merge(&doc); err != nil {
		return nil, err
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) merge(doc *Document) error {
	for i := range doc.Agents {
		a := doc.Agents[i]
		if a.Name == "" {
			return fmt.Errorf("agent with empty name")
		}
		if _, exists := s.Agents[a.Name]; exists {
			return fmt.Errorf("duplicate agent %q", a.Name)
		}
		s.Agents[a.Name] = &a
	}

	for i := range doc.Tasks {
		t := doc.Tasks[i]
		if t.Name == "" {
			return fmt.Errorf("task with empty name")
		}
		if _, exists := s.Tasks[t.Name]; exists {
			return fmt.Errorf("duplicate task %q", t.Name)
		}
		s.Tasks[t.Name] = &t
	}

	for i := range doc.Processes {
		p := doc.Processes[i]
		if p.Name == "" {
			return fmt.Errorf("process with empty name")
		}
		if p.Version == 0 {
			p.Version = 1
		}
		// Keep transitions in declared evaluation order.
		sort.SliceStable(p.Transitions, func(a, b int) bool {
			return p.Transitions[a].Order < p.Transitions[b].Order
		})
		s.Processes = append(s.Processes, &p)
	}

	return nil
}

// TransitionsFrom returns a process's outgoing transitions for a task,
// already sorted by ascending order.
func (p *Process) TransitionsFrom(task string) []Transition {
	var out []Transition
	for _, t := range p.Transitions {
		if t.From == task {
			out = append(out, t)
		}
	}
	return out
}

// joinNames formats a name list for error messages.
func joinNames(names []string) string {
	sort.Strings(names)
	return strings.Join(names, ", ")
}
