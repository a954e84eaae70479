package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const defsYAML = `
agents:
  - name: Writer
    role: Copywriter
    instructions: Write copy.
    llm:
      provider: mock
      model: test-model
tasks:
  - name: generate
    agent: Writer
processes:
  - name: Flow
    entry_task: generate
`

func writeDefs(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "defs.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write defs: %v", err)
	}
	return dir
}

func TestOpenAndLookup(t *testing.T) {
	reg, err := Open(writeDefs(t, defsYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := reg.ActiveProcess("Flow"); !ok {
		t.Error("expected Flow process")
	}
	if _, ok := reg.ActiveProcess("Missing"); ok {
		t.Error("did not expect Missing process")
	}
	if _, ok := reg.Task("generate"); !ok {
		t.Error("expected generate task")
	}
	if _, ok := reg.Agent("Writer"); !ok {
		t.Error("expected Writer agent")
	}
}

func TestOpenInvalidDefinitions(t *testing.T) {
	dir := writeDefs(t, `
tasks:
  - name: orphan
    agent: NoSuchAgent
`)
	if _, err := Open(dir); err == nil {
		t.Error("expected validation error")
	}
}

func TestReload(t *testing.T) {
	dir := writeDefs(t, defsYAML)
	reg, err := Open(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := defsYAML + `
  - name: SecondFlow
    entry_task: generate
`
	if err := os.WriteFile(filepath.Join(dir, "defs.yaml"), []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := reg.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, ok := reg.ActiveProcess("SecondFlow"); !ok {
		t.Error("expected SecondFlow after reload")
	}
}
