// Package files locates raw source files on disk. The pipeline treats
// raw per-month trip files as immutable inputs; this package only ever
// lists them.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery provides raw-file discovery operations rooted at the raw
// data directory.
type Discovery struct {
	rawDir string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(rawDir string) *Discovery {
	return &Discovery{rawDir: rawDir}
}

// FindTripFiles finds the per-month trip files of one fleet, sorted by
// name so month order is stable.
func (d *Discovery) FindTripFiles(fleet string) ([]FileInfo, error) {
	pattern := filepath.Join(d.rawDir, strings.ToLower(fleet)+"_tripdata_*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	return files, nil
}

// HasFileForPeriod reports whether any raw file name references the
// given year-month period (e.g. "2025-12").
func (d *Discovery) HasFileForPeriod(period string) (bool, error) {
	entries, err := os.ReadDir(d.rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read raw directory %s: %w", d.rawDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.Contains(entry.Name(), period) {
			return true, nil
		}
	}

	return false, nil
}
