// Package duckdb executes generated SQL locally with DuckDB over Parquet
// datasets held in the object store.
package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/askdata/askdata/internal/query"
	"github.com/askdata/askdata/internal/storage"
)

// Backend exposes every <prefix>/<TABLE>/*.parquet group as a view named
// TABLE before running the statement.
type Backend struct {
	store  storage.ObjectStore
	prefix string
}

func NewBackend(store storage.ObjectStore, datasetPrefix string) (*Backend, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	prefix := strings.Trim(strings.TrimSpace(datasetPrefix), "/")
	if prefix == "" {
		return nil, fmt.Errorf("dataset prefix is required")
	}
	return &Backend{store: store, prefix: prefix}, nil
}

func (b *Backend) Execute(ctx context.Context, sqlText string) (json.RawMessage, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return nil, fmt.Errorf("sql is required")
	}

	objects, err := b.store.List(ctx, b.prefix)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	workDir, err := os.MkdirTemp("", "askdata-query-")
	if err != nil {
		return nil, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	groupedPaths := map[string][]string{}
	for index, object := range objects {
		tableName, ok := storage.TableFromDatasetPath(b.prefix, object.Key)
		if !ok {
			continue
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("%s_%d.parquet", sanitizeFileComponent(tableName), index))
		if err := b.download(ctx, object.Key, localPath); err != nil {
			return nil, err
		}
		groupedPaths[tableName] = append(groupedPaths[tableName], localPath)
	}
	if len(groupedPaths) == 0 {
		return nil, fmt.Errorf("no datasets found under %q", b.prefix)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	tableNames := make([]string, 0, len(groupedPaths))
	for tableName := range groupedPaths {
		tableNames = append(tableNames, tableName)
	}
	sort.Strings(tableNames)
	for _, tableName := range tableNames {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(tableName), quoteStringArray(groupedPaths[tableName]))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return nil, fmt.Errorf("create view for table %q: %w", tableName, err)
		}
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return query.EncodeRows(rows)
}

func (b *Backend) download(ctx context.Context, key, localPath string) error {
	reader, err := b.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get object %q: %w", key, err)
	}
	defer func() { _ = reader.Close() }()

	file, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local parquet file %q: %w", localPath, err)
	}
	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return fmt.Errorf("copy %q to %q: %w", key, localPath, err)
	}
	return file.Close()
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func sanitizeFileComponent(value string) string {
	value = strings.ReplaceAll(value, "/", "_")
	value = strings.ReplaceAll(value, "..", "_")
	if value == "" {
		return "table"
	}
	return value
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
