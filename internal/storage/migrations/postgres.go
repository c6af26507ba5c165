// Package migrations applies the embedded schema files at startup, in
// lexical order, against both backends.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"subnet-nexus/internal/storage/postgres"
)

// RunPostgresMigrations connects to PostgreSQL and applies all embedded SQL
// files. Returns the pool for reuse.
func RunPostgresMigrations(ctx context.Context, dsn string) (*postgres.Pool, error) {
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	files, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read embedded postgres migrations: %w", err)
	}

	for _, file := range files {
		sql, err := fs.ReadFile(PostgresFS, "postgres/"+file)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply migration %s: %w", file, err)
		}
	}

	return pool, nil
}

// sqlFiles lists .sql entries of an embedded directory in lexical order.
func sqlFiles(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
