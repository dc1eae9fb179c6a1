package parserator

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// textMIMEPrefixes lists content types accepted as parse input in addition to
// anything under text/.
var textMIMEPrefixes = []string{
	"application/json",
	"application/xml",
	"application/x-ndjson",
	"application/csv",
	"application/yaml",
	"application/x-yaml",
}

// ReadTextFile loads a file destined to become parse input, sniffing its
// content type and rejecting binary data before it reaches the API.
func ReadTextFile(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("detect input type of %s: %w", path, err)
	}
	if !isTextMIME(mtype) {
		return "", newValidationError(
			fmt.Sprintf("input file %s has unsupported content type %s; only text input can be parsed", path, mtype.String()),
			map[string]any{"path": path, "mimeType": mtype.String()},
		)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(content), nil
}

func isTextMIME(mtype *mimetype.MIME) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "text/") {
			return true
		}
		for _, prefix := range textMIMEPrefixes {
			if strings.HasPrefix(m.String(), prefix) {
				return true
			}
		}
	}
	return false
}
