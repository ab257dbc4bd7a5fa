// Package profilestore persists behavioral profiles across sessions. Two
// backends exist: a JSON file tree for single-machine use and PostgreSQL for
// fleet deployments.
package profilestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/behavior"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotFound is returned when no profile exists for the account hash.
var ErrNotFound = errors.New("profile not found")

// ErrSentinelProfile is returned when a caller tries to persist the default
// placeholder persona.
var ErrSentinelProfile = errors.New("sentinel profile is never persisted")

// Store is the persistence contract for profile records.
type Store interface {
	Load(ctx context.Context, accountHash string) (behavior.ProfileRecord, error)
	Save(ctx context.Context, rec behavior.ProfileRecord) error
	Delete(ctx context.Context, accountHash string) error
}

// FileStore keeps one JSON file per account under a directory.
type FileStore struct {
	dir string
	log *zap.Logger
}

// DefaultDirectory resolves the per-user profile directory.
func DefaultDirectory() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".rocinante", "profiles"), nil
}

// NewFileStore creates the store, creating the directory if needed. An empty
// dir uses the per-user default.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir == "" {
		var err error
		dir, err = DefaultDirectory()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profile directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: logger.Named("profilestore")}, nil
}

// Directory returns the backing directory.
func (s *FileStore) Directory() string { return s.dir }

func (s *FileStore) path(accountHash string) (string, error) {
	if err := validateHash(accountHash); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, accountHash+".json"), nil
}

// validateHash keeps account hashes path-safe.
func validateHash(accountHash string) error {
	if accountHash == "" {
		return errors.New("empty account hash")
	}
	if strings.ContainsAny(accountHash, `/\.`) {
		return fmt.Errorf("invalid account hash %q", accountHash)
	}
	return nil
}

// Load reads and decodes the record for an account.
func (s *FileStore) Load(ctx context.Context, accountHash string) (behavior.ProfileRecord, error) {
	var rec behavior.ProfileRecord
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	path, err := s.path(accountHash)
	if err != nil {
		return rec, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, fmt.Errorf("failed to read profile %s: %w", accountHash, err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode profile %s: %w", accountHash, err)
	}
	if rec.SchemaVersion > behavior.ProfileSchemaVersion {
		return rec, fmt.Errorf("profile %s has schema version %d, newer than supported %d",
			accountHash, rec.SchemaVersion, behavior.ProfileSchemaVersion)
	}
	return rec, nil
}

// Save atomically writes the record: encode to a temp file in the same
// directory, then rename over the target.
func (s *FileStore) Save(ctx context.Context, rec behavior.ProfileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.AccountHash == behavior.DefaultAccountHash {
		return ErrSentinelProfile
	}
	path, err := s.path(rec.AccountHash)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", rec.AccountHash, err)
	}

	tmp, err := os.CreateTemp(s.dir, rec.AccountHash+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp profile file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp profile file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp profile file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp profile file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace profile %s: %w", rec.AccountHash, err)
	}

	s.log.Debug("Saved profile", zap.String("account", rec.AccountHash), zap.String("path", path))
	return nil
}

// Delete removes the record for an account. Missing records return
// ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, accountHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(accountHash)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", accountHash, err)
	}
	return nil
}

// List returns the account hashes with stored profiles.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list profile directory: %w", err)
	}
	var hashes []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		hashes = append(hashes, strings.TrimSuffix(name, ".json"))
	}
	return hashes, nil
}
