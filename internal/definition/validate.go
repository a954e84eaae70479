package definition

import (
	"fmt"

	"github.com/axonworks/axon/internal/condition"
)

var schemaTypeTags = map[string]bool{
	"string":  true,
	"number":  true,
	"array":   true,
	"boolean": true,
	"object":  true,
}

// Validate checks cross-references and invariants over the merged set:
// tasks point at known agents, processes at known tasks, at most one
// active process per name, unique transition orders per source task,
// parseable conditions, and known schema type tags.
func (s *Set) Validate() error {
	for name, t := range s.Tasks {
		if t.Agent == "" {
			return fmt.Errorf("task %q: missing agent reference", name)
		}
		if _, ok := s.Agents[t.Agent]; !ok {
			return fmt.Errorf("task %q: unknown agent %q", name, t.Agent)
		}
	}

	for name, a := range s.Agents {
		if a.LLM.Provider == "" {
			return fmt.Errorf("agent %q: missing llm provider", name)
		}
		for field, tag := range a.OutputSchema {
			if !schemaTypeTags[tag] {
				return fmt.Errorf("agent %q: schema field %q has unknown type tag %q", name, field, tag)
			}
		}
	}

	activeByName := map[string][]string{}
	for _, p := range s.Processes {
		if err := s.validateProcess(p); err != nil {
			return err
		}
		if p.IsActive() {
			activeByName[p.Name] = append(activeByName[p.Name], fmt.Sprintf("v%d", p.Version))
		}
	}

	for name, versions := range activeByName {
		if len(versions) > 1 {
			return fmt.Errorf("process %q: more than one active version (%s)", name, joinNames(versions))
		}
	}

	return nil
}

func (s *Set) validateProcess(p *Process) error {
	if p.EntryTask == "" {
		return fmt.Errorf("process %q: missing entry task", p.Name)
	}
	if _, ok := s.Tasks[p.EntryTask]; !ok {
		return fmt.Errorf("process %q: unknown entry task %q", p.Name, p.EntryTask)
	}

	seenOrder := map[string]map[int]bool{}
	for _, tr := range p.Transitions {
		if _, ok := s.Tasks[tr.From]; !ok {
			return fmt.Errorf("process %q: transition from unknown task %q", p.Name, tr.From)
		}
		if _, ok := s.Tasks[tr.To]; !ok {
			return fmt.Errorf("process %q: transition to unknown task %q", p.Name, tr.To)
		}

		if seenOrder[tr.From] == nil {
			seenOrder[tr.From] = map[int]bool{}
		}
		if seenOrder[tr.From][tr.Order] {
			return fmt.Errorf("process %q: duplicate transition order %d from task %q", p.Name, tr.Order, tr.From)
		}
		seenOrder[tr.From][tr.Order] = true

		if tr.Condition == "" {
			return fmt.Errorf("process %q: transition %q -> %q has no condition", p.Name, tr.From, tr.To)
		}
		if _, err := condition.Parse(tr.Condition); err != nil {
			return fmt.Errorf("process %q: transition %q -> %q: %w", p.Name, tr.From, tr.To, err)
		}
	}

	return nil
}
