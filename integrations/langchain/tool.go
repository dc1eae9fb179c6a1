package langchain

import (
	"context"
	"fmt"

	parserator "github.com/Domusgpt/Parserator-8b-alpha"
	"github.com/tmc/langchaingo/tools"
)

// Tool exposes a fixed-schema parse as a LangChain agent tool: the agent
// hands over raw text and receives the structured result as a JSON string.
type Tool struct {
	client       ParseClient
	name         string
	description  string
	outputSchema map[string]any
	instructions string
}

// NewTool builds an agent tool around the given schema.
func NewTool(client ParseClient, name, description string, outputSchema map[string]any) *Tool {
	return &Tool{
		client:       client,
		name:         name,
		description:  description,
		outputSchema: outputSchema,
	}
}

// NewPresetTool builds an agent tool from a bundled preset.
func NewPresetTool(client ParseClient, preset parserator.Preset) *Tool {
	return &Tool{
		client:       client,
		name:         preset.Name,
		description:  preset.Description,
		outputSchema: preset.Schema,
	}
}

// WithInstructions forwards extra guidance with every call. Returns the tool
// for chaining.
func (t *Tool) WithInstructions(instructions string) *Tool {
	t.instructions = instructions
	return t
}

// Name implements tools.Tool.
func (t *Tool) Name() string { return t.name }

// Description implements tools.Tool.
func (t *Tool) Description() string { return t.description }

// Call implements tools.Tool.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	resp, err := t.client.Parse(ctx, parserator.ParseRequest{
		InputData:    input,
		OutputSchema: t.outputSchema,
		Instructions: t.instructions,
	})
	if err != nil {
		return "", fmt.Errorf("parserator tool %s: %w", t.name, err)
	}
	return marshalParsed(resp.ParsedData)
}

var _ tools.Tool = (*Tool)(nil)
