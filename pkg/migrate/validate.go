package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	markerUp   = "-- +goose Up"
	markerDown = "-- +goose Down"
)

var migrationName = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// List returns the migrations in dir ordered by version. It fails on a
// badly named file, a repeated version, or a missing or misordered
// Up/Down section. Non-sql files are ignored.
func List(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := make(map[int64]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := migrationName.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, _ := strconv.ParseInt(m[1], 10, 64)
		if prev, ok := byVersion[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, e.Name())
		}
		byVersion[version] = e.Name()

		path := filepath.Join(dir, e.Name())
		if err := checkSections(path); err != nil {
			return nil, err
		}
		files = append(files, File{Version: version, Name: m[2], Path: path})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir is List for callers that only need the verdict.
func ValidateDir(dir string) error {
	_, err := List(dir)
	return err
}

func checkSections(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	txt := string(b)
	up, down := strings.Index(txt, markerUp), strings.Index(txt, markerDown)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", filepath.Base(path), markerUp)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", filepath.Base(path), markerDown)
	case down < up:
		return fmt.Errorf("migration %q has its Down section before Up", filepath.Base(path))
	}
	return nil
}
