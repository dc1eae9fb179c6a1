package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parserator "github.com/Domusgpt/Parserator-8b-alpha"
)

func writeSchemaFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSchemaJSON(t *testing.T) {
	path := writeSchemaFile(t, "schema.json", `{"name": "string", "email": "email"}`)

	schema, err := loadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "string", schema["name"])
	assert.Equal(t, "email", schema["email"])
}

func TestLoadSchemaYAML(t *testing.T) {
	path := writeSchemaFile(t, "schema.yaml", "name: string\nemail: email\n")

	schema, err := loadSchema(path)
	require.NoError(t, err)
	assert.Equal(t, "string", schema["name"])
}

func TestLoadSchemaInvalid(t *testing.T) {
	path := writeSchemaFile(t, "schema.yaml", "{}\n")

	_, err := loadSchema(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema")
}

func TestLoadSchemaMissingFile(t *testing.T) {
	_, err := loadSchema(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestFormatOutputDataOnly(t *testing.T) {
	resp := &parserator.ParseResponse{
		Success:    true,
		ParsedData: map[string]any{"name": "John"},
		Metadata:   parserator.ParseMetadata{Raw: map[string]any{"confidence": 0.9}},
	}

	out, err := formatOutput(resp, false)
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "John", data["name"])
	assert.NotContains(t, decoded, "metadata")
}

func TestFormatOutputWithMetadata(t *testing.T) {
	resp := &parserator.ParseResponse{
		Success:    true,
		ParsedData: map[string]any{"name": "John"},
		Metadata:   parserator.ParseMetadata{Raw: map[string]any{"confidence": 0.9}},
	}

	out, err := formatOutput(resp, true)
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	meta, ok := decoded["metadata"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 0.9, meta["confidence"].(float64), 1e-9)
}

func TestFormatOutputNilData(t *testing.T) {
	out, err := formatOutput(&parserator.ParseResponse{Success: true}, false)
	require.NoError(t, err)

	decoded := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, map[string]any{}, decoded["data"], "missing data still prints an object")
}
