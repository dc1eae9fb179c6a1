package parserator

import "fmt"

// ValidationType selects how strictly the service validates parsed output
// against the requested schema.
type ValidationType string

const (
	ValidationStrict  ValidationType = "strict"
	ValidationLenient ValidationType = "lenient"
)

// optField marks which ParseOptions fields the caller explicitly supplied.
// The set drives merge precedence: only explicitly-set override fields win
// over defaults, even when an override carries the library default value.
type optField uint8

const (
	fieldValidation optField = 1 << iota
	fieldLocale
	fieldTimezone
	fieldMaxRetries
	fieldLeanRuntime
)

type leanField uint8

const (
	leanFieldDisabled leanField = 1 << iota
	leanFieldAllowOptionalFields
	leanFieldDefaultConfidence
	leanFieldMaxInputCharacters
	leanFieldPlanConfidenceGate
	leanFieldMaxInvocations
	leanFieldMaxTokens
)

// LeanRuntimeOptions tunes the lean LLM fallback resolver on the service
// side. Values are range-checked at construction; merge never re-validates.
type LeanRuntimeOptions struct {
	disabled            bool
	allowOptionalFields bool
	defaultConfidence   float64
	maxInputCharacters  int
	planConfidenceGate  float64
	maxInvocations      int
	maxTokens           int
	explicit            leanField
}

// LeanRuntimeOption configures a LeanRuntimeOptions value.
type LeanRuntimeOption func(*LeanRuntimeOptions) error

// WithLeanDisabled toggles the fallback resolver off entirely.
func WithLeanDisabled(disabled bool) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		o.disabled = disabled
		o.explicit |= leanFieldDisabled
		return nil
	}
}

// WithAllowOptionalFields lets the resolver leave optional fields unresolved.
func WithAllowOptionalFields(allow bool) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		o.allowOptionalFields = allow
		o.explicit |= leanFieldAllowOptionalFields
		return nil
	}
}

// WithDefaultConfidence sets the confidence assigned to fallback-resolved
// fields. Must be within [0, 1].
func WithDefaultConfidence(confidence float64) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		if confidence < 0 || confidence > 1 {
			return newValidationError(fmt.Sprintf("default confidence %v must be within [0, 1]", confidence), nil)
		}
		o.defaultConfidence = confidence
		o.explicit |= leanFieldDefaultConfidence
		return nil
	}
}

// WithMaxInputCharacters caps how much input text the resolver may inspect.
func WithMaxInputCharacters(n int) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		if n < 0 {
			return newValidationError(fmt.Sprintf("max input characters %d must be non-negative", n), nil)
		}
		o.maxInputCharacters = n
		o.explicit |= leanFieldMaxInputCharacters
		return nil
	}
}

// WithPlanConfidenceGate sets the planner-confidence threshold below which
// the fallback resolver is invoked. Must be within [0, 1].
func WithPlanConfidenceGate(gate float64) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		if gate < 0 || gate > 1 {
			return newValidationError(fmt.Sprintf("plan confidence gate %v must be within [0, 1]", gate), nil)
		}
		o.planConfidenceGate = gate
		o.explicit |= leanFieldPlanConfidenceGate
		return nil
	}
}

// WithMaxInvocationsPerParse caps fallback invocations for one parse.
func WithMaxInvocationsPerParse(n int) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		if n < 0 {
			return newValidationError(fmt.Sprintf("max invocations per parse %d must be non-negative", n), nil)
		}
		o.maxInvocations = n
		o.explicit |= leanFieldMaxInvocations
		return nil
	}
}

// WithMaxTokensPerParse caps fallback token spend for one parse.
func WithMaxTokensPerParse(n int) LeanRuntimeOption {
	return func(o *LeanRuntimeOptions) error {
		if n < 0 {
			return newValidationError(fmt.Sprintf("max tokens per parse %d must be non-negative", n), nil)
		}
		o.maxTokens = n
		o.explicit |= leanFieldMaxTokens
		return nil
	}
}

// NewLeanRuntimeOptions builds a tuning block. A block built with no options
// has an empty explicit-field set and loses every merge.
func NewLeanRuntimeOptions(opts ...LeanRuntimeOption) (*LeanRuntimeOptions, error) {
	o := &LeanRuntimeOptions{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Disabled reports whether the fallback resolver is switched off.
func (o *LeanRuntimeOptions) Disabled() bool { return o.disabled }

// AllowOptionalFields reports the optional-field tolerance flag.
func (o *LeanRuntimeOptions) AllowOptionalFields() bool { return o.allowOptionalFields }

// DefaultConfidence returns the configured fallback confidence.
func (o *LeanRuntimeOptions) DefaultConfidence() float64 { return o.defaultConfidence }

// MaxInputCharacters returns the input-size cap.
func (o *LeanRuntimeOptions) MaxInputCharacters() int { return o.maxInputCharacters }

// PlanConfidenceGate returns the planner-confidence threshold.
func (o *LeanRuntimeOptions) PlanConfidenceGate() float64 { return o.planConfidenceGate }

// MaxInvocationsPerParse returns the invocation cap.
func (o *LeanRuntimeOptions) MaxInvocationsPerParse() int { return o.maxInvocations }

// MaxTokensPerParse returns the token cap.
func (o *LeanRuntimeOptions) MaxTokensPerParse() int { return o.maxTokens }

// mergeLeanRuntime applies the same explicit-wins rule as the parent options.
// An override block with an empty explicit set leaves the base untouched.
func mergeLeanRuntime(base, override *LeanRuntimeOptions) *LeanRuntimeOptions {
	if override == nil {
		return base
	}
	if base == nil {
		return override
	}
	if override.explicit == 0 {
		return base
	}

	merged := *base
	if override.explicit&leanFieldDisabled != 0 {
		merged.disabled = override.disabled
	}
	if override.explicit&leanFieldAllowOptionalFields != 0 {
		merged.allowOptionalFields = override.allowOptionalFields
	}
	if override.explicit&leanFieldDefaultConfidence != 0 {
		merged.defaultConfidence = override.defaultConfidence
	}
	if override.explicit&leanFieldMaxInputCharacters != 0 {
		merged.maxInputCharacters = override.maxInputCharacters
	}
	if override.explicit&leanFieldPlanConfidenceGate != 0 {
		merged.planConfidenceGate = override.planConfidenceGate
	}
	if override.explicit&leanFieldMaxInvocations != 0 {
		merged.maxInvocations = override.maxInvocations
	}
	if override.explicit&leanFieldMaxTokens != 0 {
		merged.maxTokens = override.maxTokens
	}
	merged.explicit = base.explicit | override.explicit
	return &merged
}

// payload serializes the tuning block with its wire key names. Only fields
// the caller explicitly set are emitted; nil means nothing to send.
func (o *LeanRuntimeOptions) payload() map[string]any {
	if o == nil || o.explicit == 0 {
		return nil
	}
	p := make(map[string]any)
	if o.explicit&leanFieldDisabled != 0 {
		p["disabled"] = o.disabled
	}
	if o.explicit&leanFieldAllowOptionalFields != 0 {
		p["allowOptionalFields"] = o.allowOptionalFields
	}
	if o.explicit&leanFieldDefaultConfidence != 0 {
		p["defaultConfidence"] = o.defaultConfidence
	}
	if o.explicit&leanFieldMaxInputCharacters != 0 {
		p["maxInputCharacters"] = o.maxInputCharacters
	}
	if o.explicit&leanFieldPlanConfidenceGate != 0 {
		p["planConfidenceGate"] = o.planConfidenceGate
	}
	if o.explicit&leanFieldMaxInvocations != 0 {
		p["maxInvocationsPerParse"] = o.maxInvocations
	}
	if o.explicit&leanFieldMaxTokens != 0 {
		p["maxTokensPerParse"] = o.maxTokens
	}
	return p
}

// DefaultMaxRetries is the retry budget applied when the caller never sets
// one.
const DefaultMaxRetries = 3

// ParseOptions tweaks a single parse. A value built by NewParseOptions with
// no options has every field at its default and an empty explicit set, so it
// never overrides anything during a merge.
type ParseOptions struct {
	validation  ValidationType
	locale      string
	timezone    string
	maxRetries  int
	leanRuntime *LeanRuntimeOptions
	explicit    optField
}

// ParseOption configures a ParseOptions value.
type ParseOption func(*ParseOptions) error

// WithValidation selects the validation mode.
func WithValidation(mode ValidationType) ParseOption {
	return func(o *ParseOptions) error {
		switch mode {
		case ValidationStrict, ValidationLenient:
		default:
			return newValidationError(fmt.Sprintf("invalid validation mode %q", mode), nil)
		}
		o.validation = mode
		o.explicit |= fieldValidation
		return nil
	}
}

// WithLocale forwards a locale hint to the service.
func WithLocale(locale string) ParseOption {
	return func(o *ParseOptions) error {
		o.locale = locale
		o.explicit |= fieldLocale
		return nil
	}
}

// WithTimezone forwards a timezone hint to the service.
func WithTimezone(tz string) ParseOption {
	return func(o *ParseOptions) error {
		o.timezone = tz
		o.explicit |= fieldTimezone
		return nil
	}
}

// WithMaxRetries sets the server-side retry budget. Must be non-negative.
func WithMaxRetries(n int) ParseOption {
	return func(o *ParseOptions) error {
		if n < 0 {
			return newValidationError(fmt.Sprintf("max retries %d must be non-negative", n), nil)
		}
		o.maxRetries = n
		o.explicit |= fieldMaxRetries
		return nil
	}
}

// WithLeanRuntime attaches a fallback-resolver tuning block.
func WithLeanRuntime(lean *LeanRuntimeOptions) ParseOption {
	return func(o *ParseOptions) error {
		o.leanRuntime = lean
		o.explicit |= fieldLeanRuntime
		return nil
	}
}

// NewParseOptions builds a ParseOptions value, recording which fields were
// explicitly supplied. Range validation happens here, once.
func NewParseOptions(opts ...ParseOption) (*ParseOptions, error) {
	o := &ParseOptions{validation: ValidationStrict, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustParseOptions is NewParseOptions that panics on invalid input. Intended
// for package-level defaults built from constants.
func MustParseOptions(opts ...ParseOption) *ParseOptions {
	o, err := NewParseOptions(opts...)
	if err != nil {
		panic(err)
	}
	return o
}

// Validation returns the effective validation mode.
func (o *ParseOptions) Validation() ValidationType { return o.validation }

// Locale returns the locale hint, empty when unset.
func (o *ParseOptions) Locale() string { return o.locale }

// Timezone returns the timezone hint, empty when unset.
func (o *ParseOptions) Timezone() string { return o.timezone }

// MaxRetries returns the server-side retry budget.
func (o *ParseOptions) MaxRetries() int { return o.maxRetries }

// LeanRuntime returns the fallback tuning block, nil when unset.
func (o *ParseOptions) LeanRuntime() *LeanRuntimeOptions { return o.leanRuntime }

// Explicit reports whether the caller supplied any field at all. Options with
// nothing explicit are indistinguishable from "no options" during a merge.
func (o *ParseOptions) Explicit() bool { return o != nil && o.explicit != 0 }

// MergeParseOptions resolves per-request overrides against client defaults.
// Only fields the override explicitly set win; everything else keeps the
// default's value, including fields where the override happens to carry the
// library default. Deterministic and side-effect free: neither input is
// mutated and repeated calls yield field-equal results.
func MergeParseOptions(def, override *ParseOptions) *ParseOptions {
	if override == nil {
		return def
	}
	if def == nil {
		return override
	}
	if override.explicit == 0 {
		return def
	}

	merged := *def
	if override.explicit&fieldValidation != 0 {
		merged.validation = override.validation
	}
	if override.explicit&fieldLocale != 0 {
		merged.locale = override.locale
	}
	if override.explicit&fieldTimezone != 0 {
		merged.timezone = override.timezone
	}
	if override.explicit&fieldMaxRetries != 0 {
		merged.maxRetries = override.maxRetries
	}
	if override.explicit&fieldLeanRuntime != 0 {
		merged.leanRuntime = mergeLeanRuntime(def.leanRuntime, override.leanRuntime)
	}
	merged.explicit = def.explicit | override.explicit
	return &merged
}

// payload serializes the options with wire key names. A field is emitted when
// it was explicitly set or differs from the default; an empty map collapses
// to nil so the request body omits the options object entirely.
func (o *ParseOptions) payload() map[string]any {
	if o == nil {
		return nil
	}
	p := make(map[string]any)
	if o.explicit&fieldValidation != 0 || o.validation != ValidationStrict {
		p["validation"] = string(o.validation)
	}
	if o.explicit&fieldLocale != 0 || o.locale != "" {
		p["locale"] = o.locale
	}
	if o.explicit&fieldTimezone != 0 || o.timezone != "" {
		p["timezone"] = o.timezone
	}
	if o.explicit&fieldMaxRetries != 0 || o.maxRetries != DefaultMaxRetries {
		p["maxRetries"] = o.maxRetries
	}
	if lean := o.leanRuntime.payload(); len(lean) > 0 {
		p["leanLLM"] = lean
	}
	if len(p) == 0 {
		return nil
	}
	return p
}
