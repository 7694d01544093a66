// Package source discovers harmonized cohort data files and streams their
// rows. One Source is one cohort's MeasurementObservation TSV, the unit of
// diagnostic reporting.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Default glob patterns for the harmonized output layout.
const (
	DefaultDirPattern  = "*-remapped"
	DefaultFilePattern = "*MeasurementObservation*.tsv"
)

// Source identifies one cohort data file. Identity is the file path.
type Source struct {
	Dir       string `json:"dir"`  // remapped directory name, e.g. "aric-remapped"
	File      string `json:"file"` // file name within the directory
	Path      string `json:"path"` // absolute or base-relative path to the file
	SizeBytes int64  `json:"size_bytes"`
}

// Discover scans baseDir for directories matching dirPattern and returns
// every contained file matching filePattern, ordered by directory then file
// name so that repeated runs over the same tree report sources in a stable
// order.
func Discover(baseDir, dirPattern, filePattern string) ([]Source, error) {
	if dirPattern == "" {
		dirPattern = DefaultDirPattern
	}
	if filePattern == "" {
		filePattern = DefaultFilePattern
	}

	dirs, err := filepath.Glob(filepath.Join(baseDir, dirPattern))
	if err != nil {
		return nil, fmt.Errorf("bad directory pattern %q: %w", dirPattern, err)
	}
	sort.Strings(dirs)

	var sources []Source
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}

		files, err := filepath.Glob(filepath.Join(dir, filePattern))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", filePattern, err)
		}
		sort.Strings(files)

		for _, f := range files {
			fi, err := os.Stat(f)
			if err != nil || fi.IsDir() {
				continue
			}
			sources = append(sources, Source{
				Dir:       filepath.Base(dir),
				File:      filepath.Base(f),
				Path:      f,
				SizeBytes: fi.Size(),
			})
		}
	}

	return sources, nil
}
