// Package loader decodes exported extension definitions.
//
// The tag-management platform exports extensions as JSON; hand-maintained
// definitions are often kept as YAML. Both decode into
// types.Extension. A file may hold a single extension, a list, or an object
// with an "extensions" list.
package loader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solatis/extgen/internal/types"
)

// Format identifies the encoding of an export file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the decoder from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return 0, fmt.Errorf("unsupported file type %q (expected .json, .yaml or .yml)", filepath.Ext(path))
	}
}

// envelope is the {"extensions": [...]} export form.
type envelope struct {
	Extensions []types.Extension `json:"extensions" yaml:"extensions"`
}

// LoadFile reads and decodes one export file.
func LoadFile(path string) ([]types.Extension, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	exts, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exts, nil
}

// LoadFiles decodes every file and concatenates results in argument order.
func LoadFiles(paths ...string) ([]types.Extension, error) {
	var all []types.Extension
	for _, p := range paths {
		exts, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, exts...)
	}
	if len(all) == 0 {
		return nil, types.ErrNoExtensions
	}
	return all, nil
}

// Decode parses data in the given format.
func Decode(data []byte, format Format) ([]types.Extension, error) {
	var (
		exts []types.Extension
		err  error
	)
	switch format {
	case FormatJSON:
		exts, err = decodeJSON(data)
	case FormatYAML:
		exts, err = decodeYAML(data)
	default:
		return nil, fmt.Errorf("unknown format %d", format)
	}
	if err != nil {
		return nil, err
	}
	if len(exts) == 0 {
		return nil, types.ErrNoExtensions
	}
	for i := range exts {
		if exts[i].Name == "" && exts[i].ID == 0 {
			return nil, fmt.Errorf("extension #%d: %w", i, types.ErrInvalidExtension)
		}
	}
	return exts, nil
}

func decodeJSON(data []byte) ([]types.Extension, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var exts []types.Extension
		if err := json.Unmarshal(trimmed, &exts); err != nil {
			return nil, fmt.Errorf("invalid extension list: %w", err)
		}
		return exts, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, fmt.Errorf("invalid extension export: %w", err)
	}
	if _, ok := probe["extensions"]; ok {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("invalid extension envelope: %w", err)
		}
		return env.Extensions, nil
	}

	var ext types.Extension
	if err := json.Unmarshal(trimmed, &ext); err != nil {
		return nil, fmt.Errorf("invalid extension: %w", err)
	}
	return []types.Extension{ext}, nil
}

func decodeYAML(data []byte) ([]types.Extension, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]

	switch doc.Kind {
	case yaml.SequenceNode:
		var exts []types.Extension
		if err := doc.Decode(&exts); err != nil {
			return nil, fmt.Errorf("invalid extension list: %w", err)
		}
		return exts, nil
	case yaml.MappingNode:
		if hasKey(doc, "extensions") {
			var env envelope
			if err := doc.Decode(&env); err != nil {
				return nil, fmt.Errorf("invalid extension envelope: %w", err)
			}
			return env.Extensions, nil
		}
		var ext types.Extension
		if err := doc.Decode(&ext); err != nil {
			return nil, fmt.Errorf("invalid extension: %w", err)
		}
		return []types.Extension{ext}, nil
	default:
		return nil, fmt.Errorf("invalid extension export: unexpected yaml node at line %d", doc.Line)
	}
}

// hasKey reports whether a mapping node has the given key.
func hasKey(m *yaml.Node, key string) bool {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return true
		}
	}
	return false
}
