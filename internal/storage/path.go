package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildDatasetPath returns the key of one Parquet part of a table:
// <prefix>/<TABLE>/part-<seq>.parquet.
func BuildDatasetPath(prefix, tableName string, sequence int) (string, error) {
	if err := validatePathComponent(prefix, "dataset prefix"); err != nil {
		return "", err
	}
	if err := validatePathComponent(tableName, "table name"); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(prefix, tableName, fmt.Sprintf("part-%05d.parquet", sequence)), nil
}

// TableFromDatasetPath reports the table a dataset key belongs to.
func TableFromDatasetPath(prefix, key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, prefix+"/")
	if !ok {
		return "", false
	}
	tableName, file, ok := strings.Cut(rest, "/")
	if !ok || strings.Contains(file, "/") || !strings.HasSuffix(file, ".parquet") {
		return "", false
	}
	if validatePathComponent(tableName, "table name") != nil {
		return "", false
	}
	return tableName, true
}

func BuildPromptPath(prefix, name string) (string, error) {
	if err := validatePathComponent(prefix, "prompt prefix"); err != nil {
		return "", err
	}
	if err := validatePathComponent(name, "prompt name"); err != nil {
		return "", err
	}
	return path.Join(prefix, name), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
