// Package langchain adapts the Parserator client to LangChain-Go. The core
// SDK never imports this package; both adapters depend only on the narrow
// ParseClient contract, so any client (including test doubles) plugs in.
package langchain

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	parserator "github.com/Domusgpt/Parserator-8b-alpha"
	"github.com/tmc/langchaingo/schema"
)

// ParseClient is the slice of the SDK surface the adapters need.
type ParseClient interface {
	Parse(ctx context.Context, req parserator.ParseRequest) (*parserator.ParseResponse, error)
}

// Compile-time check that *parserator.Client satisfies the contract.
var _ ParseClient = (*parserator.Client)(nil)

// OutputParser implements LangChain's output-parser interface by sending the
// chain's raw text through the Parserator API with a fixed target schema.
//
// Example usage:
//
//	client, _ := parserator.New(apiKey)
//	parser := langchain.NewOutputParser(client, map[string]any{
//		"name":  "string",
//		"email": "email",
//	})
//	structured, err := parser.Parse(llmOutput)
type OutputParser struct {
	client       ParseClient
	outputSchema map[string]any
	instructions string
	timeout      time.Duration
}

// NewOutputParser builds an OutputParser targeting the given schema.
func NewOutputParser(client ParseClient, outputSchema map[string]any) *OutputParser {
	return &OutputParser{
		client:       client,
		outputSchema: outputSchema,
		timeout:      parserator.DefaultTimeout,
	}
}

// WithInstructions forwards extra guidance with every parse. Returns the
// parser for chaining.
func (p *OutputParser) WithInstructions(instructions string) *OutputParser {
	p.instructions = instructions
	return p
}

// WithTimeout bounds each parse call made by the parser. Returns the parser
// for chaining.
func (p *OutputParser) WithTimeout(d time.Duration) *OutputParser {
	p.timeout = d
	return p
}

// Parse implements schema.OutputParser.
func (p *OutputParser) Parse(text string) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	resp, err := p.client.Parse(ctx, parserator.ParseRequest{
		InputData:    text,
		OutputSchema: p.outputSchema,
		Instructions: p.instructions,
	})
	if err != nil {
		return nil, fmt.Errorf("parserator output parser: %w", err)
	}
	return resp.ParsedData, nil
}

// ParseWithPrompt implements schema.OutputParser. The prompt is not needed:
// the remote service works from the schema alone.
func (p *OutputParser) ParseWithPrompt(text string, _ schema.PromptValue) (any, error) {
	return p.Parse(text)
}

// GetFormatInstructions implements schema.OutputParser.
func (p *OutputParser) GetFormatInstructions() string {
	fields := make([]string, 0, len(p.outputSchema))
	for name, descriptor := range p.outputSchema {
		fields = append(fields, fmt.Sprintf("%s (%v)", name, descriptor))
	}
	sort.Strings(fields)
	return "Respond in any natural format; the output is post-processed into fields: " +
		strings.Join(fields, ", ")
}

// Type implements schema.OutputParser.
func (p *OutputParser) Type() string { return "parserator_output_parser" }

var _ schema.OutputParser[any] = (*OutputParser)(nil)

// marshalParsed renders parsed data for tool-style string outputs.
func marshalParsed(data map[string]any) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode parsed data: %w", err)
	}
	return string(encoded), nil
}
