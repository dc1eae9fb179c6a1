package parserator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParseOptionsDefaults(t *testing.T) {
	opts, err := NewParseOptions()
	require.NoError(t, err)

	assert.Equal(t, ValidationStrict, opts.Validation())
	assert.Equal(t, DefaultMaxRetries, opts.MaxRetries())
	assert.Empty(t, opts.Locale())
	assert.Empty(t, opts.Timezone())
	assert.Nil(t, opts.LeanRuntime())
	assert.False(t, opts.Explicit(), "default-constructed options must have an empty explicit set")
}

func TestNewParseOptionsRejectsInvalidValues(t *testing.T) {
	_, err := NewParseOptions(WithValidation("unknown-mode"))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeValidation))

	_, err = NewParseOptions(WithMaxRetries(-1))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeValidation))
}

func TestNewLeanRuntimeOptionsRangeChecks(t *testing.T) {
	cases := []struct {
		name string
		opt  LeanRuntimeOption
	}{
		{"confidence above one", WithDefaultConfidence(1.5)},
		{"confidence below zero", WithDefaultConfidence(-0.1)},
		{"gate above one", WithPlanConfidenceGate(2)},
		{"negative input characters", WithMaxInputCharacters(-1)},
		{"negative invocations", WithMaxInvocationsPerParse(-5)},
		{"negative tokens", WithMaxTokensPerParse(-1)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLeanRuntimeOptions(tc.opt)
			require.Error(t, err)
			assert.True(t, IsCode(err, CodeValidation))
		})
	}
}

func TestMergeEmptyOverrideReturnsDefault(t *testing.T) {
	def := MustParseOptions(WithValidation(ValidationLenient), WithTimezone("UTC"))
	override := MustParseOptions()

	merged := MergeParseOptions(def, override)

	assert.Same(t, def, merged, "an override with nothing explicit must not displace the default")
}

func TestMergeNilOverrideReturnsDefault(t *testing.T) {
	def := MustParseOptions(WithLocale("en-US"))
	assert.Same(t, def, MergeParseOptions(def, nil))
}

func TestMergeNilDefaultReturnsOverride(t *testing.T) {
	override := MustParseOptions(WithLocale("en-US"), WithMaxRetries(5))
	assert.Same(t, override, MergeParseOptions(nil, override))
}

func TestMergeExplicitFieldsWin(t *testing.T) {
	def := MustParseOptions(WithValidation(ValidationLenient), WithTimezone("UTC"))
	override := MustParseOptions(WithLocale("fr-FR"))

	merged := MergeParseOptions(def, override)

	assert.Equal(t, ValidationLenient, merged.Validation())
	assert.Equal(t, "fr-FR", merged.Locale())
	assert.Equal(t, "UTC", merged.Timezone())
}

func TestMergeOverrideForcesLibraryDefaultValue(t *testing.T) {
	def := MustParseOptions(WithValidation(ValidationLenient))
	override := MustParseOptions(WithValidation(ValidationStrict))

	merged := MergeParseOptions(def, override)

	// Strict is the library default, but the override set it explicitly, so
	// it must still win over the default's lenient.
	assert.Equal(t, ValidationStrict, merged.Validation())
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	def := MustParseOptions(WithValidation(ValidationLenient), WithTimezone("UTC"))
	override := MustParseOptions(WithLocale("es-ES"))

	first := MergeParseOptions(def, override)
	second := MergeParseOptions(def, override)

	assert.Equal(t, first, second, "merge must be idempotent")
	assert.Equal(t, ValidationLenient, def.Validation())
	assert.Equal(t, "UTC", def.Timezone())
	assert.Empty(t, def.Locale())
	assert.Equal(t, "es-ES", override.Locale())
}

func TestMergeLeanRuntimeRecursive(t *testing.T) {
	defLean, err := NewLeanRuntimeOptions(WithMaxTokensPerParse(150), WithDefaultConfidence(0.65))
	require.NoError(t, err)
	overrideLean, err := NewLeanRuntimeOptions(WithLeanDisabled(true))
	require.NoError(t, err)

	def := MustParseOptions(WithLeanRuntime(defLean))
	override := MustParseOptions(WithLeanRuntime(overrideLean))

	merged := MergeParseOptions(def, override)

	require.NotNil(t, merged.LeanRuntime())
	assert.True(t, merged.LeanRuntime().Disabled())
	assert.Equal(t, 150, merged.LeanRuntime().MaxTokensPerParse())
	assert.InDelta(t, 0.65, merged.LeanRuntime().DefaultConfidence(), 1e-9)
}

func TestMergeEmptyLeanBlockKeepsDefaultBlock(t *testing.T) {
	defLean, err := NewLeanRuntimeOptions(WithMaxInvocationsPerParse(3))
	require.NoError(t, err)
	emptyLean, err := NewLeanRuntimeOptions()
	require.NoError(t, err)

	def := MustParseOptions(WithLeanRuntime(defLean))
	override := MustParseOptions(WithLeanRuntime(emptyLean))

	merged := MergeParseOptions(def, override)

	require.NotNil(t, merged.LeanRuntime())
	assert.Equal(t, 3, merged.LeanRuntime().MaxInvocationsPerParse())
}

func TestOptionsPayloadWireNames(t *testing.T) {
	lean, err := NewLeanRuntimeOptions(WithLeanDisabled(true), WithMaxInvocationsPerParse(2))
	require.NoError(t, err)
	opts := MustParseOptions(
		WithValidation(ValidationStrict),
		WithLeanRuntime(lean),
	)

	payload := opts.payload()

	assert.Equal(t, "strict", payload["validation"])
	leanPayload, ok := payload["leanLLM"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, leanPayload["disabled"])
	assert.Equal(t, 2, leanPayload["maxInvocationsPerParse"])
}

func TestOptionsPayloadOmitsEverythingAtDefault(t *testing.T) {
	opts := MustParseOptions()
	assert.Nil(t, opts.payload(), "fully-default options must not produce an options object")

	var nilOpts *ParseOptions
	assert.Nil(t, nilOpts.payload())
}

func TestOptionsPayloadIncludesNonDefaultUnexplicitFields(t *testing.T) {
	// Merged options can carry non-default values without the explicit bit
	// for that field set on the merged copy; those still go on the wire.
	def := MustParseOptions(WithLocale("de-DE"))
	merged := MergeParseOptions(def, MustParseOptions(WithTimezone("Europe/Berlin")))

	payload := merged.payload()
	assert.Equal(t, "de-DE", payload["locale"])
	assert.Equal(t, "Europe/Berlin", payload["timezone"])
}
