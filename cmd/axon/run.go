package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/axonworks/axon/internal/config"
	"github.com/axonworks/axon/internal/engine"
	"github.com/axonworks/axon/internal/events"
	"github.com/axonworks/axon/internal/provider"
	"github.com/axonworks/axon/internal/registry"
	"github.com/axonworks/axon/internal/store"
	"github.com/axonworks/axon/internal/vault"
)

func runProcess(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: axon run <process> [-input <json>] [-input-file <path>] [-defs <dir>]")
	}
	processName := args[0]

	input, err := parseInputFlags(args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyDefsFlag(cfg, args[1:])

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	reg, err := registry.Open(cfg.Definitions.Dir)
	if err != nil {
		return err
	}

	var pub *events.Publisher
	if cfg.Events.Enabled {
		bus, err := events.NewBus(cfg.Events)
		if err != nil {
			return fmt.Errorf("init events: %w", err)
		}
		defer bus.Close()

		pub, err = events.NewPublisher(bus)
		if err != nil {
			return fmt.Errorf("init publisher: %w", err)
		}
		defer pub.Close()
		slog.Info("events enabled", "port", cfg.Events.Port)
	}

	factory := provider.NewFactory(cfg.Providers)
	installKeyLookup(factory, db)

	eng := engine.New(reg, db, factory, pub)

	// SIGINT/SIGTERM cancel the in-flight run; the engine records it as
	// failed before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := eng.Execute(ctx, processName, input)
	if err != nil {
		return err
	}
	pub.Flush()

	out, err := json.MarshalIndent(res.State.AsMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("render final state: %w", err)
	}
	fmt.Printf("Execution %s completed\n%s\n", res.ExecutionID, out)
	return nil
}

func parseInputFlags(args []string) (map[string]any, error) {
	var raw []byte
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-input":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for -input")
			}
			i++
			raw = []byte(args[i])
		case "-input-file":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for -input-file")
			}
			i++
			data, err := os.ReadFile(args[i])
			if err != nil {
				return nil, fmt.Errorf("read input file: %w", err)
			}
			raw = data
		}
	}

	if raw == nil {
		return map[string]any{}, nil
	}

	var input map[string]any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("parse input: %w", err)
	}
	return input, nil
}

func applyDefsFlag(cfg *config.Config, args []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-defs" {
			cfg.Definitions.Dir = args[i+1]
			return
		}
	}
}

// installKeyLookup wires the credential vault as the factory's fallback
// key source. Without a passphrase the vault stays out of the path and
// keys come from config or environment only.
func installKeyLookup(factory *provider.Factory, db *store.Store) {
	passphrase := os.Getenv("AXON_VAULT_PASSPHRASE")
	if passphrase == "" {
		return
	}

	v := vault.New(passphrase)
	factory.SetKeyLookup(func(name string) (string, bool) {
		sealed, err := db.GetCredential(name)
		if err != nil || sealed == nil {
			return "", false
		}
		plain, err := v.Open(sealed)
		if err != nil {
			slog.Warn("credential decrypt failed", "provider", name, "error", err)
			return "", false
		}
		return string(plain), true
	})
}

func runValidate(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyDefsFlag(cfg, args)

	reg, err := registry.Open(cfg.Definitions.Dir)
	if err != nil {
		return err
	}

	set := reg.Set()
	fmt.Printf("Definitions valid: %d agents, %d tasks, %d processes\n",
		len(set.Agents), len(set.Tasks), len(set.Processes))
	return nil
}

func runExecutions(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: axon executions <list|show> ...")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "list":
		return executionsList(db, args[1:])
	case "show":
		return executionsShow(db, args[1:])
	default:
		return fmt.Errorf("unknown executions command: %s", args[0])
	}
}

func executionsList(db *store.Store, args []string) error {
	limit := 0
	for i := 0; i < len(args); i++ {
		if args[i] == "-n" && i+1 < len(args) {
			i++
			fmt.Sscanf(args[i], "%d", &limit)
		}
	}

	execs, err := db.ListProcessExecutions(limit)
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		fmt.Println("No executions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROCESS\tVERSION\tSTATUS\tSTARTED\tFINISHED")
	for _, e := range execs {
		finished := ""
		if e.FinishedAt != nil {
			finished = e.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			e.ID, e.Process, e.ProcessVersion, e.Status,
			e.StartedAt.Format(time.RFC3339), finished)
	}
	return w.Flush()
}

func executionsShow(db *store.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: axon executions show <id>")
	}

	exec, err := db.GetProcessExecution(args[0])
	if err != nil {
		return err
	}
	if exec == nil {
		return fmt.Errorf("execution %q not found", args[0])
	}

	tasks, err := db.ListTaskExecutions(exec.ID)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(struct {
		*store.ProcessExecution
		Tasks []store.TaskExecution `json:"tasks"`
	}{exec, tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("render execution: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
