// Package loader discovers and parses metadata documents from a directory
// tree. Parsing rejects duplicate mapping keys at any level before a document
// reaches the engine; column-identifier uniqueness in the validators depends
// on that guarantee.
package loader

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inteliome-labs/semalint/pkg/metadata"
)

// Layout of a metadata directory, mirrored from the authoring convention:
// schema documents under schema/assets, semantics under semantics/assets.
const (
	schemaAssetsDir    = "schema/assets"
	semanticsAssetsDir = "semantics/assets"
)

// Loader reads metadata documents off disk.
type Loader struct {
	logger *slog.Logger
}

// New creates a loader. A nil logger discards log output.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{logger: logger}
}

// LoadDir loads all schema and semantics documents from a metadata directory.
// Files that fail to parse are reported and skipped; an unreadable directory
// is an error.
func (l *Loader) LoadDir(dir string) (schemas, semantics []metadata.Document, err error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, fmt.Errorf("metadata directory %s: %w", dir, err)
	}

	schemas, err = l.loadAssets(filepath.Join(dir, schemaAssetsDir))
	if err != nil {
		return nil, nil, err
	}
	l.logger.Info("loaded schema documents", "count", len(schemas))

	semantics, err = l.loadAssets(filepath.Join(dir, semanticsAssetsDir))
	if err != nil {
		return nil, nil, err
	}
	l.logger.Info("loaded semantics documents", "count", len(semantics))

	return schemas, semantics, nil
}

// loadAssets reads every .yaml/.yml file in one assets directory, sorted by
// name for deterministic ordering. A missing assets directory yields no
// documents rather than an error.
func (l *Loader) loadAssets(dir string) ([]metadata.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("assets directory not found", "dir", dir)
			return nil, nil
		}
		return nil, fmt.Errorf("read assets directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var docs []metadata.Document
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		doc, err := Parse(name, data)
		if err != nil {
			l.logger.Error("skipping document", "file", name, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Parse parses one document, rejecting duplicate mapping keys at any level.
func Parse(name string, data []byte) (metadata.Document, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return metadata.Document{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := checkDuplicateKeys(&node); err != nil {
		return metadata.Document{}, fmt.Errorf("parse %s: %w", name, err)
	}

	var root map[string]any
	if err := node.Decode(&root); err != nil {
		return metadata.Document{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return metadata.Document{Name: name, Root: root}, nil
}

// DuplicateKeyError reports a mapping key that appears more than once.
type DuplicateKeyError struct {
	Key  string
	Line int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate mapping key %q at line %d", e.Key, e.Line)
}

// checkDuplicateKeys walks the parsed node tree and fails on the first
// repeated key within any single mapping.
func checkDuplicateKeys(node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := checkDuplicateKeys(child); err != nil {
				return err
			}
		}
	case yaml.MappingNode:
		seen := make(map[string]struct{}, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Kind == yaml.ScalarNode {
				k := strings.TrimSpace(key.Value)
				if _, dup := seen[k]; dup {
					return &DuplicateKeyError{Key: k, Line: key.Line}
				}
				seen[k] = struct{}{}
			}
			if err := checkDuplicateKeys(value); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			if err := checkDuplicateKeys(child); err != nil {
				return err
			}
		}
	}
	return nil
}
