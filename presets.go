package parserator

import "fmt"

// Bundled presets mirroring the schemas shipped with the hosted service.
var (
	EmailPreset = Preset{
		Name:        "email_parser",
		Description: "Extracts key fields from unstructured email content.",
		Schema: map[string]any{
			"from":         "string",
			"to":           "string",
			"subject":      "string",
			"date":         "string",
			"summary":      "string",
			"action_items": "array",
		},
		InstructionsTemplate: builtinTemplates["preset"],
	}

	InvoicePreset = Preset{
		Name:        "invoice_parser",
		Description: "Extracts totals, vendor, and line items from invoices.",
		Schema: map[string]any{
			"vendor":         "string",
			"invoice_number": "string",
			"total":          "currency",
			"due_date":       "date",
			"line_items":     "array",
		},
		InstructionsTemplate: builtinTemplates["preset"],
	}

	ContactPreset = Preset{
		Name:        "contact_parser",
		Description: "Extracts contact information such as name, email, and phone numbers.",
		Schema: map[string]any{
			"name":    "string",
			"email":   "email",
			"phone":   "phone",
			"company": "string",
		},
		InstructionsTemplate: builtinTemplates["preset"],
	}

	CSVPreset = Preset{
		Name:        "csv_parser",
		Description: "Normalises semi-structured CSV like text into a tabular schema.",
		Schema: map[string]any{
			"rows":    "array",
			"columns": "array",
		},
	}

	LogPreset = Preset{
		Name:        "log_parser",
		Description: "Transforms log snippets into structured records.",
		Schema: map[string]any{
			"entries": "array",
		},
	}

	DocumentPreset = Preset{
		Name:        "document_parser",
		Description: "Extracts headings, summaries, and action items from generic documents.",
		Schema: map[string]any{
			"title":        "string",
			"summary":      "string",
			"action_items": "array",
		},
	}
)

// AllPresets lists every bundled preset in a stable order.
func AllPresets() []Preset {
	return []Preset{
		EmailPreset,
		InvoicePreset,
		ContactPreset,
		CSVPreset,
		LogPreset,
		DocumentPreset,
	}
}

// PresetByName looks a bundled preset up by its identifier.
func PresetByName(name string) (Preset, error) {
	for _, preset := range AllPresets() {
		if preset.Name == name {
			return preset, nil
		}
	}
	return Preset{}, fmt.Errorf("unknown preset %q", name)
}
