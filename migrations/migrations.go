// Package migrations embeds the SQL schema so the service, the migration
// script and integration tests apply the same files.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Files returns migration file names for the direction in execution order.
func Files(dir Direction) ([]string, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	suffix := fmt.Sprintf(".%s.sql", dir)
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			names = append(names, entry.Name())
		}
	}

	sort.Strings(names)
	if dir == Down {
		for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
			names[i], names[j] = names[j], names[i]
		}
	}

	return names, nil
}

// Apply runs every migration for the direction and returns the files applied.
func Apply(ctx context.Context, db *sql.DB, dir Direction) ([]string, error) {
	if dir != Up && dir != Down {
		return nil, fmt.Errorf("unknown migration direction %q", dir)
	}

	names, err := Files(dir)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		content, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration file %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return nil, fmt.Errorf("execute migration %s: %w", name, err)
		}
	}

	return names, nil
}
