package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for the on-disk layout:
//
//	data/
//	  ├── raw/      (downloaded per-month trip files + zone lookup)
//	  ├── tables/   (persisted pipeline output tables)
//	  ├── cache/    (weather series and other fetch-once artifacts)
//	  └── exports/  (analyst workbook exports)
//	logs/
type Paths struct {
	DataDir    string
	RawDir     string
	TablesDir  string
	CacheDir   string
	ExportsDir string
	LogsDir    string
}

// NewPaths builds the path layout rooted at the configured data and
// logs directories. Relative directories resolve against the current
// working directory.
func NewPaths(cfg PathsConfig) *Paths {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}

	return &Paths{
		DataDir:    dataDir,
		RawDir:     filepath.Join(dataDir, "raw"),
		TablesDir:  filepath.Join(dataDir, "tables"),
		CacheDir:   filepath.Join(dataDir, "cache"),
		ExportsDir: filepath.Join(dataDir, "exports"),
		LogsDir:    logsDir,
	}
}

// EnsureDirectories creates all required directories if they don't exist.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.RawDir,
		p.TablesDir,
		p.CacheDir,
		p.ExportsDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetRawPath returns the path for a downloaded source file.
func (p *Paths) GetRawPath(filename string) string {
	return filepath.Join(p.RawDir, filename)
}

// GetTablePath returns the path for a persisted output table file.
func (p *Paths) GetTablePath(filename string) string {
	return filepath.Join(p.TablesDir, filename)
}

// GetCachePath returns the path for a cache file.
func (p *Paths) GetCachePath(filename string) string {
	return filepath.Join(p.CacheDir, filename)
}

// GetExportPath returns the path for an exported workbook.
func (p *Paths) GetExportPath(filename string) string {
	return filepath.Join(p.ExportsDir, filename)
}

// GetLogPath returns the path for a log file.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// GetZoneLookupPath returns the path of the downloaded zone lookup table.
func (p *Paths) GetZoneLookupPath() string {
	return p.GetRawPath("taxi_zone_lookup.csv")
}

// GetTripFilePath returns the expected path of a per-month trip file,
// e.g. yellow_tripdata_2025-01.csv.
func (p *Paths) GetTripFilePath(fleet string, year, month int) string {
	filename := fmt.Sprintf("%s_tripdata_%04d-%02d.csv", fleet, year, month)
	return p.GetRawPath(filename)
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
