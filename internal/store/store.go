// Package store persists the pipeline's named output tables as CSV
// files. Every write is a full-table replacement committed atomically
// (write to a temp file, sync, rename) so a concurrently starting
// reader never observes a partially written table. Stages communicate
// only through these tables; the Store is the one piece of shared
// state a pipeline run threads through its stages.
package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"taxipulse/internal/errors"
)

// Store reads and replaces named tables under a single tables
// directory.
type Store struct {
	tablesDir string
	logger    *slog.Logger
}

// New creates a table store rooted at tablesDir.
func New(tablesDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{tablesDir: tablesDir, logger: logger}
}

// Dir returns the tables directory.
func (s *Store) Dir() string {
	return s.tablesDir
}

// path resolves a table name to its CSV file path. Names come from the
// fixed contract, never from user input.
func (s *Store) path(name string) string {
	return filepath.Join(s.tablesDir, name+".csv")
}

// Exists reports whether a table has been persisted.
func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Replace atomically replaces the named table with the given header and
// rows. The previous version stays readable until the rename commits.
func (s *Store) Replace(ctx context.Context, name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(s.tablesDir, 0755); err != nil {
		return errors.NewStorageError("failed to create tables directory", err)
	}

	final := s.path(name)
	tmp, err := os.CreateTemp(s.tablesDir, name+"-*.csv.tmp")
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to create temp file for table %s", name), err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return errors.NewStorageError(fmt.Sprintf("failed to write header for table %s", name), err)
	}
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return errors.NewStorageError(fmt.Sprintf("failed to write row %d of table %s", i, name), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return errors.NewStorageError(fmt.Sprintf("failed to flush table %s", name), err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.NewStorageError(fmt.Sprintf("failed to sync table %s", name), err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to close temp file for table %s", name), err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to commit table %s", name), err)
	}

	s.logger.InfoContext(ctx, "table replaced",
		slog.String("table", name),
		slog.Int("rows", len(rows)))

	return nil
}

// Read loads the named table. A missing table is a MissingDependency
// error: downstream stages must not run against absent inputs.
func (s *Store) Read(ctx context.Context, name string) ([]string, [][]string, error) {
	file, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errors.NewMissingDependencyError("table "+name, err)
		}
		return nil, nil, errors.NewStorageError(fmt.Sprintf("failed to open table %s", name), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, errors.NewParsingError(fmt.Sprintf("failed to parse table %s", name), err)
	}
	if len(records) == 0 {
		return nil, nil, errors.NewParsingError(fmt.Sprintf("table %s has no header row", name), nil)
	}

	return records[0], records[1:], nil
}

// List returns the contract tables that currently exist on disk.
func (s *Store) List() []string {
	var present []string
	for _, name := range Contract {
		if s.Exists(name) {
			present = append(present, name)
		}
	}
	return present
}
