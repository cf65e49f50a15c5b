package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const categoryExport = `[
  {
    "name": "Page category",
    "id": "42",
    "conditions": [[{"variable": "udo.page_type", "operator": "equals", "value": "product"}]],
    "configuration": {"configs": [{"setoption": "text", "set": "js.page_category", "settotext": "pdp"}]}
  },
  {
    "name": "Unknown mode",
    "id": 43,
    "configuration": {"configs": [{"setoption": "lookup", "set": "x"}]}
  }
]`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRender(t *testing.T) {
	path := writeFile(t, "export.json", categoryExport)

	out, err := execute(t, "render", path)
	require.NoError(t, err)

	assert.Contains(t, out, "/* Based on SET DATA VALUE Page category 42 */")
	assert.Contains(t, out, "b['page_category'] = 'pdp';")
	assert.NotContains(t, out, "Unknown mode", "refused extension must not be rendered")
	assert.True(t, strings.HasSuffix(out, "})();\n"))
}

func TestRun(t *testing.T) {
	exportPath := writeFile(t, "export.json", categoryExport)
	dataPath := writeFile(t, "data.json", `{"page_type": "product"}`)

	out, err := execute(t, "run", exportPath, "--id", "42", "--data", dataPath)
	require.NoError(t, err)

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &data))
	assert.Equal(t, map[string]any{"page_type": "product", "page_category": "pdp"}, data)
}

func TestRun_RefusedExtension(t *testing.T) {
	exportPath := writeFile(t, "export.json", categoryExport)

	_, err := execute(t, "run", exportPath, "--id", "43")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not generated")
}
