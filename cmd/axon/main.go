package main

import (
	"fmt"
	"log/slog"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("axon %s\n", version)
	case "run":
		err = runProcess(os.Args[2:])
	case "validate":
		err = runValidate(os.Args[2:])
	case "executions":
		err = runExecutions(os.Args[2:])
	case "vault":
		err = runVault(os.Args[2:])
	case "backup":
		err = runBackup(os.Args[2:])
	case "restore":
		err = runRestore(os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: axon <command>

Commands:
  run <process> [-input <json>] [-input-file <path>] [-defs <dir>]
                                                       Execute a process
  validate [-defs <dir>]                               Load and validate definitions
  executions list [-n <limit>]                         List recent executions
  executions show <id>                                 Show one execution with its tasks
  vault <subcommand>                                   Manage provider credentials
  backup -f <output.tar.zst>                           Archive the data directory
  restore -f <backup.tar.zst> [-overwrite]             Restore a backup archive
  version                                              Print version
`)
}
