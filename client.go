package parserator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the hosted Parserator endpoint.
	DefaultBaseURL = "https://api.parserator.com"

	// DefaultTimeout bounds one logical parse call, including retries'
	// individual attempts.
	DefaultTimeout = 30 * time.Second

	// EnvAPIKey is the environment variable NewFromEnv reads by default.
	EnvAPIKey = "PARSERATOR_API_KEY"

	parsePath  = "/v1/parse"
	healthPath = "/health"

	userAgent = "Parserator Go SDK v1.0.0"
)

// ErrMissingAPIKey is returned by NewFromEnv when the environment variable is
// unset or blank.
var ErrMissingAPIKey = errors.New("api key not found in environment")

// Client talks to the Parserator API. Construct with New; the configuration
// is immutable afterwards and the client is safe for concurrent use.
type Client struct {
	apiKey         string
	baseURL        string
	organizationID string
	timeout        time.Duration
	httpClient     *http.Client
	defaultOptions *ParseOptions
	retry          RetryConfig
	limiter        *RateLimiter
	log            *slog.Logger
}

// ClientOption configures a Client during construction.
type ClientOption func(*Client) error

// WithBaseURL points the client at a different deployment, e.g. a staging
// stack or a local mock.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) error {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed == "" {
			return newValidationError("base URL must be a non-empty string", nil)
		}
		if _, err := url.Parse(trimmed); err != nil {
			return newValidationError(fmt.Sprintf("invalid base URL: %v", err), nil)
		}
		c.baseURL = trimmed
		return nil
	}
}

// WithTimeout bounds each parse call.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return newValidationError("timeout must be positive", nil)
		}
		c.timeout = d
		return nil
	}
}

// WithHTTPClient swaps the underlying HTTP client, typically to install a
// test transport or shared connection pool.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		if hc == nil {
			return newValidationError("http client must not be nil", nil)
		}
		c.httpClient = hc
		return nil
	}
}

// WithDefaultOptions installs options merged under every request's own
// overrides.
func WithDefaultOptions(opts *ParseOptions) ClientOption {
	return func(c *Client) error {
		c.defaultOptions = opts
		return nil
	}
}

// WithRetryConfig replaces the transport retry policy.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) error {
		if cfg.MaxRetries < 0 {
			return newValidationError("retry count must be non-negative", nil)
		}
		c.retry = cfg
		return nil
	}
}

// WithRateLimit gates outgoing calls to the given requests-per-second
// ceiling. Zero disables the gate.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) error {
		if requestsPerSecond == 0 {
			c.limiter = nil
			return nil
		}
		limiter, err := NewRateLimiter(requestsPerSecond)
		if err != nil {
			return err
		}
		c.limiter = limiter
		return nil
	}
}

// WithOrganizationID attaches an organization scope to every request.
func WithOrganizationID(id string) ClientOption {
	return func(c *Client) error {
		c.organizationID = id
		return nil
	}
}

// WithLogger lets the caller supply their own logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) error {
		if log == nil {
			log = slog.Default()
		}
		c.log = log
		return nil
	}
}

// New builds a client for the given API key.
func New(apiKey string, opts ...ClientOption) (*Client, error) {
	key, err := ValidateAPIKey(apiKey)
	if err != nil {
		return nil, err
	}

	c := &Client{
		apiKey:  key,
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
		retry:   DefaultRetryConfig(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// NewFromEnv builds a client whose API key comes from the environment. An
// empty envVar falls back to EnvAPIKey.
func NewFromEnv(envVar string, opts ...ClientOption) (*Client, error) {
	if envVar == "" {
		envVar = EnvAPIKey
	}
	key := strings.TrimSpace(os.Getenv(envVar))
	if key == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingAPIKey, envVar)
	}
	return New(key, opts...)
}

// DefaultOptions returns the options merged under every request, nil when
// none were configured.
func (c *Client) DefaultOptions() *ParseOptions { return c.defaultOptions }

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Parse submits one parse request and returns the normalized response.
//
// Local validation runs before any network activity. When the service itself
// reports a failed parse (success=false), Parse returns both the normalized
// response and a CodeParseFailed error, so callers can inspect metadata while
// still treating the call as failed.
func (c *Client) Parse(ctx context.Context, req ParseRequest) (*ParseResponse, error) {
	if err := validateRequest(req); err != nil {
		c.log.Debug("local validation failed", "error", err)
		return nil, err
	}

	merged := MergeParseOptions(c.defaultOptions, req.Options)
	payload := buildPayload(req, merged)

	c.log.Debug("parse started",
		"input_size", len(req.InputData),
		"schema_fields", len(req.OutputSchema),
		"has_options", payload["options"] != nil)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, toError(err)
		}
	}

	var exchange *httpExchange
	call := func() error {
		var err error
		exchange, err = c.do(ctx, http.MethodPost, parsePath, payload)
		return err
	}
	shouldRetry := func(err error, attempt int) bool {
		pe, ok := AsError(err)
		return ok && pe.Retryable()
	}
	if err := retryWithBackoff(ctx, call, c.retry, shouldRetry, c.log); err != nil {
		return nil, err
	}

	resp := normalizeResponse(exchange)
	if !resp.Success {
		err := resp.Error
		if err == nil {
			err = newParseFailedError(resp.ErrorMessage, map[string]any{"response": exchange.body})
			err.RequestID = resp.Metadata.RequestID
			resp.Error = err
		}
		c.log.Debug("service reported parse failure", "message", resp.ErrorMessage, "request_id", resp.Metadata.RequestID)
		return resp, err
	}

	c.log.Info("parse completed",
		"confidence", resp.Metadata.Confidence,
		"processing_time_ms", resp.Metadata.ProcessingTimeMs,
		"request_id", resp.Metadata.RequestID)
	return resp, nil
}

// Healthy reports whether the service answers its health endpoint. A non-2xx
// status surfaces through the standard error mapping.
func (c *Client) Healthy(ctx context.Context) (bool, error) {
	exchange, err := c.do(ctx, http.MethodGet, healthPath, nil)
	if err != nil {
		return false, err
	}
	return exchange.status >= 200 && exchange.status < 300, nil
}

// QuickParse is a one-shot helper for documentation snippets and scripts: it
// builds a throwaway client and issues a single parse.
func QuickParse(ctx context.Context, apiKey, inputData string, outputSchema map[string]any, instructions string) (*ParseResponse, error) {
	client, err := New(apiKey)
	if err != nil {
		return nil, err
	}
	return client.Parse(ctx, ParseRequest{
		InputData:    inputData,
		OutputSchema: outputSchema,
		Instructions: instructions,
	})
}

// ParseWithPreset parses input using a bundled preset's schema, rendering its
// instruction template (when present) through the given template store. A nil
// store falls back to BuiltinInstructionTemplates.
func (c *Client) ParseWithPreset(ctx context.Context, input string, preset Preset, templates *InstructionTemplates, opts *ParseOptions) (*ParseResponse, error) {
	instructions := ""
	if preset.InstructionsTemplate != "" {
		if templates == nil {
			templates = BuiltinInstructionTemplates()
		}
		rendered, err := templates.RenderString(preset.InstructionsTemplate, map[string]any{
			"preset": preset.Name,
			"fields": strings.Join(schemaFieldNames(preset.Schema), ", "),
		})
		if err != nil {
			return nil, newValidationError(fmt.Sprintf("render preset instructions: %v", err), nil)
		}
		instructions = rendered
	}
	return c.Parse(ctx, ParseRequest{
		InputData:    input,
		OutputSchema: preset.Schema,
		Instructions: instructions,
		Options:      opts,
	})
}

// buildPayload assembles the wire body. Wire key names are fixed by the API
// and differ from the Go field names.
func buildPayload(req ParseRequest, merged *ParseOptions) map[string]any {
	payload := map[string]any{
		"inputData":    req.InputData,
		"outputSchema": req.OutputSchema,
	}
	if req.Instructions != "" {
		payload["instructions"] = req.Instructions
	}
	if opts := merged.payload(); len(opts) > 0 {
		payload["options"] = opts
	}
	return payload
}

// httpExchange is the outcome of one completed HTTP round trip.
type httpExchange struct {
	status int
	header http.Header
	body   map[string]any
}

// do issues exactly one HTTP request. Transport failures and non-2xx statuses
// come back as typed errors; a 2xx exchange is returned for normalization.
func (c *Client) do(ctx context.Context, method, path string, payload map[string]any) (*httpExchange, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Code: CodeInternal, Message: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Error{Code: CodeInternal, Message: fmt.Sprintf("build request: %v", err)}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Client-Request-Id", uuid.NewString())
	if c.organizationID != "" {
		httpReq.Header.Set("X-Organization-Id", c.organizationID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newNetworkError(fmt.Sprintf("read response: %v", err))
	}

	// Malformed bodies degrade to an empty map; the status code alone still
	// decides the error kind.
	decoded := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			c.log.Debug("response body is not a JSON object", "status", httpResp.StatusCode, "error", err)
			decoded = map[string]any{}
		}
	}

	if httpResp.StatusCode >= 400 {
		return nil, mapStatusError(httpResp.StatusCode, decoded, httpResp.Header)
	}
	return &httpExchange{status: httpResp.StatusCode, header: httpResp.Header, body: decoded}, nil
}

func (c *Client) classifyTransportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newTimeoutError(c.timeout.String())
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return newTimeoutError(c.timeout.String())
	}
	return newNetworkError(err.Error())
}

// mapStatusError converts a non-2xx exchange into the taxonomy.
func mapStatusError(status int, body map[string]any, header http.Header) *Error {
	message := mapString(body, "message")
	details := map[string]any{"status": status, "response": body}

	var e *Error
	switch status {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		if message == "" {
			message = "invalid request"
		}
		e = newValidationError(message, details)
	case http.StatusUnauthorized, http.StatusForbidden:
		e = newAuthenticationError(message)
	case http.StatusPaymentRequired:
		e = newQuotaExceededError(message)
	case http.StatusTooManyRequests:
		retryAfter := 0.0
		if v := header.Get("Retry-After"); v != "" {
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				retryAfter = parsed
			}
		}
		e = newRateLimitError(message, retryAfter)
		e.Details = details
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e = newServiceUnavailableError(message)
	default:
		if message == "" {
			message = "an unexpected error occurred"
		}
		e = &Error{Code: CodeInternal, Message: message, Details: details}
	}
	if e.RequestID == "" {
		e.RequestID = header.Get("X-Request-Id")
	}
	return e
}

// normalizeResponse turns a 2xx exchange into a ParseResponse. Confidence and
// processing time default to zero when absent; the request id prefers the
// response header over the body; a success=false body without a structured
// error gets a synthesized PARSE_FAILED.
func normalizeResponse(exchange *httpExchange) *ParseResponse {
	body := exchange.body
	resp := &ParseResponse{
		Success:      mapBool(body, "success"),
		ErrorMessage: mapString(body, "errorMessage"),
		ParsedData:   mapMap(body, "parsedData"),
	}

	meta := mapMap(body, "metadata")
	resp.Metadata = ParseMetadata{
		Confidence:       mapFloat(meta, "confidence"),
		ProcessingTimeMs: int64(mapFloat(meta, "processingTimeMs")),
		Raw:              meta,
	}
	if id := exchange.header.Get("X-Request-Id"); id != "" {
		resp.Metadata.RequestID = id
	} else {
		resp.Metadata.RequestID = mapString(meta, "requestId")
	}
	if fallback := mapMap(meta, "fallback"); fallback != nil {
		resp.Metadata.Fallback = parseFallbackSummary(fallback)
	}

	if errObj := mapMap(body, "error"); errObj != nil {
		code := ErrorCode(mapString(errObj, "code"))
		if code == "" {
			code = CodeParseFailed
		}
		resp.Error = &Error{
			Code:      code,
			Message:   mapString(errObj, "message"),
			Details:   mapMap(errObj, "details"),
			RequestID: resp.Metadata.RequestID,
		}
		if resp.ErrorMessage == "" {
			resp.ErrorMessage = resp.Error.Message
		}
	}
	if !resp.Success && resp.Error == nil && resp.ErrorMessage == "" {
		resp.ErrorMessage = "parse operation failed"
	}
	return resp
}

func parseFallbackSummary(raw map[string]any) *FallbackSummary {
	summary := &FallbackSummary{Raw: raw}
	lean := mapMap(raw, "leanLLM")
	if lean == nil {
		return summary
	}
	ls := &LeanFallbackSummary{
		TotalInvocations:        mapInt(lean, "totalInvocations"),
		ResolvedFields:          mapInt(lean, "resolvedFields"),
		ReusedResolutions:       mapInt(lean, "reusedResolutions"),
		SkippedByPlanConfidence: mapInt(lean, "skippedByPlanConfidence"),
		SkippedByLimits:         mapInt(lean, "skippedByLimits"),
		SharedExtractions:       mapInt(lean, "sharedExtractions"),
		TotalTokens:             mapInt(lean, "totalTokens"),
		PlanConfidenceGate:      mapFloat(lean, "planConfidenceGate"),
		MaxInvocationsPerParse:  mapInt(lean, "maxInvocationsPerParse"),
		MaxTokensPerParse:       mapInt(lean, "maxTokensPerParse"),
		Raw:                     lean,
	}
	if fields, ok := lean["fields"].([]any); ok {
		for _, entry := range fields {
			fieldMap, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			ls.Fields = append(ls.Fields, LeanFallbackField{
				Field:              mapString(fieldMap, "field"),
				Action:             mapString(fieldMap, "action"),
				Resolved:           mapBool(fieldMap, "resolved"),
				Confidence:         mapFloat(fieldMap, "confidence"),
				TokensUsed:         mapInt(fieldMap, "tokensUsed"),
				Reason:             mapString(fieldMap, "reason"),
				SourceField:        mapString(fieldMap, "sourceField"),
				SharedKeys:         mapStringSlice(fieldMap, "sharedKeys"),
				PlannerConfidence:  mapFloat(fieldMap, "plannerConfidence"),
				Gate:               mapFloat(fieldMap, "gate"),
				Error:              mapString(fieldMap, "error"),
				LimitType:          mapString(fieldMap, "limitType"),
				Limit:              mapInt(fieldMap, "limit"),
				CurrentInvocations: mapInt(fieldMap, "currentInvocations"),
				CurrentTokens:      mapInt(fieldMap, "currentTokens"),
				Raw:                fieldMap,
			})
		}
	}
	summary.LeanLLM = ls
	return summary
}

func schemaFieldNames(schema map[string]any) []string {
	names := make([]string, 0, len(schema))
	for name := range schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lenient accessors over decoded JSON maps. Absent or mistyped values come
// back as zero values; the raw maps are retained for callers that need more.

func mapString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func mapBool(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	b, _ := m[key].(bool)
	return b
}

func mapFloat(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

func mapInt(m map[string]any, key string) int {
	return int(mapFloat(m, key))
}

func mapMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func mapStringSlice(m map[string]any, key string) []string {
	if m == nil {
		return nil
	}
	list, ok := m[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
