package parserator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllPresetsAreWellFormed(t *testing.T) {
	presets := AllPresets()
	require.NotEmpty(t, presets)

	seen := make(map[string]bool)
	for _, preset := range presets {
		assert.NotEmpty(t, preset.Name)
		assert.NotEmpty(t, preset.Description)
		assert.False(t, seen[preset.Name], "duplicate preset name %q", preset.Name)
		seen[preset.Name] = true

		result := ValidateSchema(preset.Schema)
		assert.True(t, result.Valid, "preset %q ships an invalid schema: %v", preset.Name, result.Issues)
	}
}

func TestPresetByName(t *testing.T) {
	preset, err := PresetByName("contact_parser")
	require.NoError(t, err)
	assert.Equal(t, ContactPreset.Name, preset.Name)
	assert.Contains(t, preset.Schema, "email")

	_, err = PresetByName("no_such_preset")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_preset")
}

func TestPresetTemplatesRender(t *testing.T) {
	templates := BuiltinInstructionTemplates()
	for _, preset := range AllPresets() {
		if preset.InstructionsTemplate == "" {
			continue
		}
		out, err := templates.RenderString(preset.InstructionsTemplate, map[string]any{
			"preset": preset.Name,
			"fields": "a, b",
		})
		require.NoError(t, err, "preset %q", preset.Name)
		assert.Contains(t, out, preset.Name)
	}
}
