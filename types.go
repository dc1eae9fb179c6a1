package parserator

import "fmt"

// ParseRequest is one unit of work: input text, the target schema, and
// optional instructions and per-request option overrides. Treat a request as
// immutable once constructed; the client never modifies it.
type ParseRequest struct {
	// InputData is the raw unstructured text to parse. Must be non-blank.
	InputData string

	// OutputSchema maps field names to type descriptors such as "string",
	// "email", "phone", "date", "currency", or "array". Must be non-empty.
	OutputSchema map[string]any

	// Instructions carries optional free-form guidance for the service.
	Instructions string

	// Options overrides the client's default options for this request only.
	Options *ParseOptions
}

// ParseMetadata describes how the service processed a request.
type ParseMetadata struct {
	// Confidence is the service's overall confidence in the parsed output,
	// zero when the response carried none.
	Confidence float64

	// ProcessingTimeMs is the server-side processing duration, zero when the
	// response carried none.
	ProcessingTimeMs int64

	// RequestID correlates the call with server-side logs. Preferred from the
	// response header, falling back to a body-embedded id.
	RequestID string

	// Fallback summarizes secondary-resolver activity, when reported.
	Fallback *FallbackSummary

	// Raw retains the metadata object exactly as the service returned it.
	Raw map[string]any
}

// FallbackSummary wraps fallback usage across resolver strategies.
type FallbackSummary struct {
	LeanLLM *LeanFallbackSummary
	Raw     map[string]any
}

// LeanFallbackSummary aggregates lean LLM fallback metrics for one parse.
type LeanFallbackSummary struct {
	TotalInvocations        int
	ResolvedFields          int
	ReusedResolutions       int
	SkippedByPlanConfidence int
	SkippedByLimits         int
	SharedExtractions       int
	TotalTokens             int
	PlanConfidenceGate      float64
	MaxInvocationsPerParse  int
	MaxTokensPerParse       int
	Fields                  []LeanFallbackField
	Raw                     map[string]any
}

// LeanFallbackField records per-field fallback activity.
type LeanFallbackField struct {
	Field              string
	Action             string
	Resolved           bool
	Confidence         float64
	TokensUsed         int
	Reason             string
	SourceField        string
	SharedKeys         []string
	PlannerConfidence  float64
	Gate               float64
	Error              string
	LimitType          string
	Limit              int
	CurrentInvocations int
	CurrentTokens      int
	Raw                map[string]any
}

// ParseResponse is the structured result of a parse operation. When Success
// is false the transport layer guarantees that ErrorMessage or Error is
// populated.
type ParseResponse struct {
	Success      bool
	ParsedData   map[string]any
	ErrorMessage string
	Metadata     ParseMetadata
	Error        *Error
}

// DefaultParallelism is the batch worker count used when the caller does not
// configure one.
const DefaultParallelism = 4

// BatchOptions tunes a batch parse. Construct through NewBatchOptions, which
// enforces the parallelism invariant.
type BatchOptions struct {
	parallelism int
	haltOnError bool
}

// NewBatchOptions validates and builds batch options. Parallelism below one
// is rejected; use DefaultBatchOptions for the stock configuration.
func NewBatchOptions(parallelism int, haltOnError bool) (*BatchOptions, error) {
	if parallelism < 1 {
		return nil, newValidationError(fmt.Sprintf("batch parallelism %d must be at least 1", parallelism), nil)
	}
	return &BatchOptions{parallelism: parallelism, haltOnError: haltOnError}, nil
}

// DefaultBatchOptions returns the stock configuration: four workers, no halt
// on error.
func DefaultBatchOptions() *BatchOptions {
	return &BatchOptions{parallelism: DefaultParallelism}
}

// Parallelism returns the configured worker ceiling.
func (o *BatchOptions) Parallelism() int { return o.parallelism }

// HaltOnError reports whether the batch stops dispatching after the first
// failure.
func (o *BatchOptions) HaltOnError() bool { return o.haltOnError }

// BatchParseResponse aggregates a batch. Results always follows the input
// order regardless of completion order; Failed lists structured failures in
// ascending original-index order, with the index recorded in each error's
// details under "index".
type BatchParseResponse struct {
	Results []*ParseResponse
	Failed  []*Error
}

// SchemaIssue describes one problem found while validating a schema locally.
type SchemaIssue struct {
	Path     string
	Message  string
	Severity string
}

// SchemaValidationResult is the outcome of local schema validation.
type SchemaValidationResult struct {
	Valid       bool
	Issues      []SchemaIssue
	Suggestions []string
}

// Preset bundles a named schema with usage guidance. The bundled presets in
// this package mirror the ones shipped with the hosted service.
type Preset struct {
	Name        string
	Description string
	Schema      map[string]any

	// InstructionsTemplate is an optional Twig template rendered through
	// InstructionTemplates before being sent as the request instructions.
	InstructionsTemplate string
}
