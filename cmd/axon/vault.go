package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/axonworks/axon/internal/config"
	"github.com/axonworks/axon/internal/store"
	"github.com/axonworks/axon/internal/vault"
)

func runVault(args []string) error {
	if len(args) == 0 {
		printVaultUsage()
		return nil
	}

	passphrase := os.Getenv("AXON_VAULT_PASSPHRASE")
	if passphrase == "" {
		return fmt.Errorf("AXON_VAULT_PASSPHRASE environment variable is required")
	}

	v := vault.New(passphrase)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	switch args[0] {
	case "list":
		return vaultList(db)
	case "set":
		return vaultSet(db, v, args[1:])
	case "get":
		return vaultGet(db, v, args[1:])
	case "delete":
		return vaultDelete(db, args[1:])
	default:
		printVaultUsage()
		return fmt.Errorf("unknown vault command: %s", args[0])
	}
}

func printVaultUsage() {
	fmt.Fprintf(os.Stderr, `Usage: axon vault <command>

Commands:
  list                              List stored credentials (metadata only)
  set <provider> --value <key>      Store an API key
  set <provider> --file <path>      Store an API key read from a file
  get <provider>                    Retrieve and decrypt an API key
  delete <provider>                 Delete a credential

Environment:
  AXON_VAULT_PASSPHRASE             Required. Encryption passphrase.
`)
}

func vaultList(db *store.Store) error {
	creds, err := db.ListCredentials()
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		fmt.Println("No credentials stored.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tCREATED\tUPDATED")
	for _, c := range creds {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			c.Provider,
			c.CreatedAt.Format(time.RFC3339),
			c.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func vaultSet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: axon vault set <provider> --value <key> | --file <path>")
	}

	provider := args[0]
	var value []byte

	switch args[1] {
	case "--value":
		value = []byte(args[2])
	case "--file":
		data, err := os.ReadFile(args[2])
		if err != nil {
			return fmt.Errorf("read file: %w", err)
		}
		value = data
	default:
		return fmt.Errorf("expected --value or --file, got %s", args[1])
	}

	sealed, err := v.Seal(value)
	if err != nil {
		return fmt.Errorf("encrypt: %w", err)
	}

	if err := db.SaveCredential(provider, sealed); err != nil {
		return err
	}
	fmt.Printf("Credential for %q saved\n", provider)
	return nil
}

func vaultGet(db *store.Store, v *vault.Vault, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: axon vault get <provider>")
	}

	sealed, err := db.GetCredential(args[0])
	if err != nil {
		return err
	}
	if sealed == nil {
		return fmt.Errorf("credential for %q not found", args[0])
	}

	plaintext, err := v.Open(sealed)
	if err != nil {
		return fmt.Errorf("decrypt: %w", err)
	}

	fmt.Print(string(plaintext))
	if len(plaintext) > 0 && plaintext[len(plaintext)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func vaultDelete(db *store.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: axon vault delete <provider>")
	}
	if err := db.DeleteCredential(args[0]); err != nil {
		return err
	}
	fmt.Printf("Credential for %q deleted\n", args[0])
	return nil
}
