// Package prompts loads the system prompts used for SQL generation and
// narrative writing. Prompts ship embedded in the binary and may be overridden
// from a directory or the object store.
package prompts

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/askdata/askdata/internal/config"
	"github.com/askdata/askdata/internal/storage"
)

const (
	SQLGenerationAsset    = "sql_generation.txt"
	NarrativeAsset        = "narrative.txt"
	TruncationNoticeAsset = "truncation_notice.txt"
)

//go:embed assets/*.txt
var assets embed.FS

// Set is one consistent group of prompts.
type Set struct {
	SQLGeneration    string
	Narrative        string
	TruncationNotice string
}

// AssetNames lists the prompt files in a Set.
func AssetNames() []string {
	return []string{SQLGenerationAsset, NarrativeAsset, TruncationNoticeAsset}
}

func Embedded() Set {
	set := Set{}
	for _, name := range AssetNames() {
		data, err := fs.ReadFile(assets, "assets/"+name)
		if err != nil {
			panic(fmt.Sprintf("embedded prompt %s: %v", name, err))
		}
		set.set(name, string(data))
	}
	return set
}

// Asset returns the prompt stored under name.
func (s Set) Asset(name string) (string, bool) {
	switch name {
	case SQLGenerationAsset:
		return s.SQLGeneration, true
	case NarrativeAsset:
		return s.Narrative, true
	case TruncationNoticeAsset:
		return s.TruncationNotice, true
	default:
		return "", false
	}
}

func (s *Set) set(name, text string) {
	switch name {
	case SQLGenerationAsset:
		s.SQLGeneration = text
	case NarrativeAsset:
		s.Narrative = text
	case TruncationNoticeAsset:
		s.TruncationNotice = text
	}
}

// Load resolves the prompt set for cfg. Files missing from a directory or the
// object store keep their embedded text.
func Load(ctx context.Context, cfg config.PromptsConfig, store storage.ObjectStore) (Set, error) {
	switch cfg.Source {
	case "", config.PromptSourceEmbedded:
		return Embedded(), nil
	case config.PromptSourceDir:
		return LoadDir(cfg.Dir)
	case config.PromptSourceObjectStore:
		if store == nil {
			return Set{}, fmt.Errorf("object store is required for prompt source %q", cfg.Source)
		}
		return LoadObjectStore(ctx, store, cfg.Prefix)
	default:
		return Set{}, fmt.Errorf("unsupported prompt source %q", cfg.Source)
	}
}

func LoadDir(dir string) (Set, error) {
	set := Embedded()
	for _, name := range AssetNames() {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Set{}, fmt.Errorf("read prompt %s: %w", name, err)
		}
		set.set(name, string(data))
	}
	return set, nil
}

func LoadObjectStore(ctx context.Context, store storage.ObjectStore, prefix string) (Set, error) {
	set := Embedded()
	for _, name := range AssetNames() {
		key, err := storage.BuildPromptPath(prefix, name)
		if err != nil {
			return Set{}, err
		}
		reader, err := store.Get(ctx, key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return Set{}, fmt.Errorf("get prompt %s: %w", key, err)
		}
		data, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return Set{}, fmt.Errorf("read prompt %s: %w", key, err)
		}
		set.set(name, string(data))
	}
	return set, nil
}

// Publish uploads every prompt in set under prefix so LoadObjectStore can
// read them back.
func Publish(ctx context.Context, store storage.ObjectStore, prefix string, set Set) ([]string, error) {
	keys := make([]string, 0, len(AssetNames()))
	for _, name := range AssetNames() {
		key, err := storage.BuildPromptPath(prefix, name)
		if err != nil {
			return nil, err
		}
		text, _ := set.Asset(name)
		if _, err := store.Put(ctx, key, strings.NewReader(text), int64(len(text)), storage.PutOptions{ContentType: "text/plain; charset=utf-8"}); err != nil {
			return nil, fmt.Errorf("put prompt %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
