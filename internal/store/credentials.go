package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Credential is an encrypted provider API key. Value is a sealed blob;
// decryption happens in the vault layer.
type Credential struct {
	Provider  string    `json:"provider"`
	Value     []byte    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) SaveCredential(provider string, sealed []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials (provider, value)
		VALUES (?, ?)
		ON CONFLICT(provider) DO UPDATE SET
			value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		provider, sealed)
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (s *Store) GetCredential(provider string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE provider = ?`, provider).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return sealed, nil
}

func (s *Store) ListCredentials() ([]Credential, error) {
	rows, err := s.db.Query(`
		SELECT provider, created_at, updated_at FROM credentials ORDER BY provider`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.Provider, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCredential(provider string) error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE provider = ?`, provider)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}
