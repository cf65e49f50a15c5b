package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/solatis/extgen/internal/types"
)

const singleJSON = `{
  "name": "Page category",
  "id": "12",
  "conditions": [[{"variable": "udo.page_type", "operator": "equals", "value": "product"}]],
  "configuration": {"configs": [{"setoption": "text", "set": "js.category", "settotext": "pdp", "settovar": ""}]}
}`

var singleWant = types.Extension{
	Name:       "Page category",
	ID:         12,
	Conditions: types.ConditionMatrix{{{Variable: "udo.page_type", Operator: "equals", Value: "product"}}},
	Configuration: types.Configuration{
		Configs: []types.ActionConfig{{SetOption: "text", Set: "js.category", SetToText: "pdp"}},
	},
}

func TestDecode_JSONForms(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []types.Extension
	}{
		{
			name: "single object with string id",
			data: singleJSON,
			want: []types.Extension{singleWant},
		},
		{
			name: "list",
			data: `[` + singleJSON + `, {"name": "Second", "id": 13}]`,
			want: []types.Extension{singleWant, {Name: "Second", ID: 13}},
		},
		{
			name: "envelope",
			data: `{"extensions": [{"name": "Only", "id": 5}]}`,
			want: []types.Extension{{Name: "Only", ID: 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data), FormatJSON)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_YAMLForms(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []types.Extension
	}{
		{
			name: "single mapping",
			data: `
name: Page category
id: 12
conditions:
  - - variable: udo.page_type
      operator: equals
      value: product
configuration:
  configs:
    - setoption: text
      set: js.category
      settotext: pdp
`,
			want: []types.Extension{singleWant},
		},
		{
			name: "sequence with quoted id",
			data: `
- name: A
  id: "1"
- name: B
  id: 2
`,
			want: []types.Extension{{Name: "A", ID: 1}, {Name: "B", ID: 2}},
		},
		{
			name: "envelope with numeric value",
			data: `
extensions:
  - name: Threshold
    id: 3
    conditions:
      - - variable: order_total
          operator: greater_than
          value: 100
`,
			want: []types.Extension{{
				Name:       "Threshold",
				ID:         3,
				Conditions: types.ConditionMatrix{{{Variable: "order_total", Operator: "greater_than", Value: "100"}}},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data), FormatYAML)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		wantErr error
	}{
		{"empty json", "", FormatJSON, types.ErrNoExtensions},
		{"empty json list", "[]", FormatJSON, types.ErrNoExtensions},
		{"empty yaml", "", FormatYAML, types.ErrNoExtensions},
		{"anonymous extension", `{"conditions": []}`, FormatJSON, types.ErrInvalidExtension},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), tt.format)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := Decode([]byte(`{"name": "x", "id": "twelve"}`), FormatJSON); err == nil {
		t.Error("Decode() with non-numeric id: error = nil, want error")
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	yamlPath := filepath.Join(dir, "b.yml")
	if err := os.WriteFile(jsonPath, []byte(`{"name": "A", "id": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(yamlPath, []byte("name: B\nid: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFiles(jsonPath, yamlPath)
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	want := []types.Extension{{Name: "A", ID: 1}, {Name: "B", ID: 2}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadFiles() mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadFile(filepath.Join(dir, "c.txt")); err == nil {
		t.Error("LoadFile(.txt) error = nil, want unsupported file type")
	}
	if _, err := LoadFiles(); !errors.Is(err, types.ErrNoExtensions) {
		t.Errorf("LoadFiles() with no paths error = %v, want ErrNoExtensions", err)
	}
}
