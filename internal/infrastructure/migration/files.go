package migration

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// File is one versioned migration with its up and down scripts
type File struct {
	Version uint
	Name    string
	HasUp   bool
	HasDown bool
}

// ListMigrations reads the migrations in dir ordered by version.
// File names follow golang-migrate's {version}_{name}.{up|down}.sql.
func ListMigrations(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint]*File)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, name, direction, err := parseFileName(entry.Name())
		if err != nil {
			return nil, err
		}
		f, ok := byVersion[version]
		if !ok {
			f = &File{Version: version, Name: name}
			byVersion[version] = f
		} else if f.Name != name {
			return nil, fmt.Errorf("migration %d has two names: %q and %q", version, f.Name, name)
		}
		if direction == "up" {
			f.HasUp = true
		} else {
			f.HasDown = true
		}
	}

	files := make([]File, 0, len(byVersion))
	for _, f := range byVersion {
		files = append(files, *f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDirectory checks that dir holds at least one migration and that
// every migration can be both applied and rolled back
func ValidateDirectory(dir string) error {
	files, err := ListMigrations(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	for _, f := range files {
		if !f.HasUp || !f.HasDown {
			return fmt.Errorf("migration %06d_%s is missing its up or down script", f.Version, f.Name)
		}
	}
	return nil
}

func parseFileName(fileName string) (version uint, name, direction string, err error) {
	base := strings.TrimSuffix(fileName, ".sql")
	switch {
	case strings.HasSuffix(base, ".up"):
		direction = "up"
	case strings.HasSuffix(base, ".down"):
		direction = "down"
	default:
		return 0, "", "", fmt.Errorf("migration %s has no up or down suffix", fileName)
	}
	base = strings.TrimSuffix(base, "."+direction)

	prefix, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", "", fmt.Errorf("migration %s has no name", fileName)
	}
	v, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("migration %s has an invalid version: %w", fileName, err)
	}
	return uint(v), name, direction, nil
}
