package parserator

import (
	"fmt"
	"strings"
)

// ValidateAPIKey checks that an API key looks usable before it is ever sent
// over the wire and returns it trimmed.
func ValidateAPIKey(apiKey string) (string, error) {
	trimmed := strings.TrimSpace(apiKey)
	if trimmed == "" {
		return "", newValidationError("API key must be a non-empty string", nil)
	}
	return trimmed, nil
}

// ValidateInputData rejects blank input before any network activity.
func ValidateInputData(inputData string) error {
	if strings.TrimSpace(inputData) == "" {
		return newValidationError("input data must be a non-empty string", nil)
	}
	return nil
}

// ValidateSchema performs lightweight local validation of an output schema:
// the mapping must be non-empty, keys must be non-blank, and values must not
// be nil. Type descriptors themselves are interpreted by the service.
func ValidateSchema(schema map[string]any) SchemaValidationResult {
	var issues []SchemaIssue
	var suggestions []string

	if schema == nil {
		issues = append(issues, SchemaIssue{
			Message:  "schema must be a mapping of field names to definitions",
			Severity: "error",
		})
		return SchemaValidationResult{Issues: issues, Suggestions: []string{"provide a field-to-type mapping"}}
	}

	if len(schema) == 0 {
		issues = append(issues, SchemaIssue{Message: "schema cannot be empty", Severity: "error"})
	}

	for key, value := range schema {
		if strings.TrimSpace(key) == "" {
			issues = append(issues, SchemaIssue{
				Path:     key,
				Message:  "schema keys must be non-empty strings",
				Severity: "error",
			})
		}
		if value == nil {
			issues = append(issues, SchemaIssue{
				Path:     key,
				Message:  fmt.Sprintf("schema value for %q cannot be null", key),
				Severity: "error",
			})
		}
	}

	if len(issues) > 0 {
		suggestions = append(suggestions, "review schema keys and values for correctness")
	}

	return SchemaValidationResult{Valid: len(issues) == 0, Issues: issues, Suggestions: suggestions}
}

// validateRequest runs the fail-fast checks shared by every entry point.
func validateRequest(req ParseRequest) error {
	if err := ValidateInputData(req.InputData); err != nil {
		return err
	}
	if result := ValidateSchema(req.OutputSchema); !result.Valid {
		details := map[string]any{"issues": result.Issues}
		if len(result.Suggestions) > 0 {
			details["suggestions"] = result.Suggestions
		}
		return newValidationError("schema validation failed", details)
	}
	return nil
}
