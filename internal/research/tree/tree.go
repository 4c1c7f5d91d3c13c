// Package tree loads research tree definitions. Files are JSON extended
// with // line comments, /* block comments */ and trailing commas.
package tree

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/teamprincipal/paddock/internal/research"
)

//go:embed rd_tree.jsonc
var defaultTree []byte

// Parse strips JSONC comments and trailing commas, then unmarshals the
// node definitions.
func Parse(data []byte) ([]research.Definition, error) {
	stripped := jsonc.ToJSON(data)

	var defs []research.Definition
	if err := json.Unmarshal(stripped, &defs); err != nil {
		return nil, fmt.Errorf("parsing research tree: %w", err)
	}
	return defs, nil
}

// ReadFile reads and parses a tree file from disk.
func ReadFile(path string) ([]research.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// Default returns the built-in tree.
func Default() []research.Definition {
	defs, err := Parse(defaultTree)
	if err != nil {
		// the embedded file is covered by tests
		panic(err)
	}
	return defs
}

// Load returns the tree at path, or the built-in tree when path is empty.
func Load(path string) ([]research.Definition, error) {
	if path == "" {
		return Default(), nil
	}
	return ReadFile(path)
}
