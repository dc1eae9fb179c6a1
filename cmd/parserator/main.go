// Command parserator submits parse requests to the Parserator API from the
// command line.
//
// Input text comes from the first argument, --input-file, or stdin. The
// target schema is a JSON or YAML file mapping field names to type
// descriptors. Exit codes: 0 success, 1 invalid user input, 2 API error,
// 130 interrupted.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	parserator "github.com/Domusgpt/Parserator-8b-alpha"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	exitUserError = 1
	exitAPIError  = 2
	exitInterrupt = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := &cli.App{
		Name:      "parserator",
		Usage:     "parse unstructured text into structured JSON via the Parserator API",
		ArgsUsage: "[input text]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "schema",
				Usage:    "path to a JSON or YAML file describing the output schema",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "input-file",
				Usage: "path to a file containing text to parse",
			},
			&cli.StringFlag{
				Name:  "instructions",
				Usage: "additional instructions forwarded to the API",
			},
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Parserator API key; falls back to the environment variable",
			},
			&cli.StringFlag{
				Name:  "env-var",
				Value: parserator.EnvAPIKey,
				Usage: "environment variable holding the API key when --api-key is omitted",
			},
			&cli.StringFlag{
				Name:  "validation",
				Usage: "validation strategy: strict or lenient",
			},
			&cli.StringFlag{
				Name:  "locale",
				Usage: "locale hint forwarded to the API",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "timezone hint forwarded to the API",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Value: -1,
				Usage: "maximum number of automatic retries performed by the API",
			},
			&cli.BoolFlag{
				Name:  "include-metadata",
				Usage: "include response metadata in the printed JSON",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "override the API endpoint",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: parserator.DefaultTimeout,
				Usage: "per-request timeout",
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "suppress log output below the error level",
			},
		},
		Action: parseAction,
	}

	err := app.RunContext(ctx, os.Args)
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "aborted by user")
		os.Exit(exitInterrupt)
	}
	if err != nil {
		// cli.Exit errors carry their own code and were already printed by
		// the framework's handler.
		var coder cli.ExitCoder
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUserError)
	}
}

func parseAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	inputText, err := loadInputText(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}

	outputSchema, err := loadSchema(c.String("schema"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}

	options, err := buildOptions(c)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}

	client, err := buildClient(c, logger)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}

	resp, err := client.Parse(c.Context, parserator.ParseRequest{
		InputData:    inputText,
		OutputSchema: outputSchema,
		Instructions: c.String("instructions"),
		Options:      options,
	})
	if err != nil {
		if pe, ok := parserator.AsError(err); ok {
			return cli.Exit(fmt.Sprintf("Parserator API error: %v", pe), exitAPIError)
		}
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}

	output, err := formatOutput(resp, c.Bool("include-metadata"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), exitUserError)
	}
	fmt.Println(output)
	return nil
}

// loadInputText resolves the input in precedence order: file flag, positional
// argument, piped stdin.
func loadInputText(c *cli.Context) (string, error) {
	if path := c.String("input-file"); path != "" {
		return parserator.ReadTextFile(path)
	}
	if c.Args().Len() > 0 {
		return c.Args().First(), nil
	}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if len(piped) > 0 {
			return string(piped), nil
		}
	}
	return "", errors.New("no input text provided; supply text as an argument, use --input-file, or pipe via stdin")
}

// loadSchema reads a schema file. YAML is a superset of JSON, so one decoder
// handles both formats.
func loadSchema(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema file: %w", err)
	}

	var schema map[string]any
	if err := yaml.Unmarshal(content, &schema); err != nil {
		return nil, fmt.Errorf("decode schema file %s: %w", path, err)
	}

	if result := parserator.ValidateSchema(schema); !result.Valid {
		var messages []string
		for _, issue := range result.Issues {
			messages = append(messages, issue.Message)
		}
		return nil, fmt.Errorf("invalid schema: %s", strings.Join(messages, "; "))
	}
	return schema, nil
}

func buildOptions(c *cli.Context) (*parserator.ParseOptions, error) {
	var opts []parserator.ParseOption
	if v := c.String("validation"); v != "" {
		opts = append(opts, parserator.WithValidation(parserator.ValidationType(v)))
	}
	if locale := c.String("locale"); locale != "" {
		opts = append(opts, parserator.WithLocale(locale))
	}
	if tz := c.String("timezone"); tz != "" {
		opts = append(opts, parserator.WithTimezone(tz))
	}
	if retries := c.Int("max-retries"); retries >= 0 {
		opts = append(opts, parserator.WithMaxRetries(retries))
	}
	if len(opts) == 0 {
		return nil, nil
	}
	return parserator.NewParseOptions(opts...)
}

func buildClient(c *cli.Context, logger *slog.Logger) (*parserator.Client, error) {
	clientOpts := []parserator.ClientOption{
		parserator.WithLogger(logger),
		parserator.WithTimeout(c.Duration("timeout")),
	}
	if base := c.String("base-url"); base != "" {
		clientOpts = append(clientOpts, parserator.WithBaseURL(base))
	}

	if key := c.String("api-key"); key != "" {
		return parserator.New(key, clientOpts...)
	}
	return parserator.NewFromEnv(c.String("env-var"), clientOpts...)
}

func formatOutput(resp *parserator.ParseResponse, includeMetadata bool) (string, error) {
	payload := map[string]any{"data": resp.ParsedData}
	if resp.ParsedData == nil {
		payload["data"] = map[string]any{}
	}
	if includeMetadata {
		meta := resp.Metadata.Raw
		if meta == nil {
			meta = map[string]any{}
		}
		payload["metadata"] = meta
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode output: %w", err)
	}
	return string(encoded), nil
}
