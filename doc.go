// Package parserator is the Go client SDK for the Parserator API, a hosted
// service that turns unstructured text into structured JSON matching a
// caller-supplied schema.
//
// The package wraps the request lifecycle end to end: local validation,
// option merging with explicit-field precedence, payload construction,
// rate limiting and retry with exponential backoff, response and error
// normalization, and a bounded-concurrency batch scheduler.
//
// # Basic Usage
//
// Create a client with an API key and submit a parse request:
//
//	client, err := parserator.New(os.Getenv("PARSERATOR_API_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := client.Parse(ctx, parserator.ParseRequest{
//		InputData: "John Smith, john@example.com, (555) 123-4567",
//		OutputSchema: map[string]any{
//			"name":  "string",
//			"email": "email",
//			"phone": "phone",
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp.ParsedData["email"])
//
// # Options and Merge Precedence
//
// ParseOptions tracks which fields the caller explicitly set, so a
// per-request override only wins for the fields it actually supplies:
//
//	defaults := parserator.MustParseOptions(
//		parserator.WithValidation(parserator.ValidationLenient),
//		parserator.WithTimezone("UTC"),
//	)
//	client, _ := parserator.New(key, parserator.WithDefaultOptions(defaults))
//
//	// This request keeps lenient validation and the UTC timezone, and only
//	// overrides the locale.
//	override := parserator.MustParseOptions(parserator.WithLocale("fr-FR"))
//	resp, _ := client.Parse(ctx, parserator.ParseRequest{..., Options: override})
//
// # Batch Parsing
//
// BatchParse fans requests out over a bounded worker pool, preserving input
// order in the results and collecting per-item failures as data:
//
//	opts, _ := parserator.NewBatchOptions(8, false)
//	batch, _ := client.BatchParse(ctx, requests, opts)
//	for i, r := range batch.Results {
//		fmt.Println(i, r.Success)
//	}
//
// # Error Handling
//
// Every failure carries a stable machine-readable code:
//
//	if pe, ok := parserator.AsError(err); ok {
//		switch pe.Code {
//		case parserator.CodeRateLimit:
//			time.Sleep(time.Duration(pe.RetryAfter * float64(time.Second)))
//		case parserator.CodeValidation:
//			// fix the request
//		}
//	}
//
// Transient failures (timeouts, network errors, 429 and 5xx responses) are
// retried automatically with exponential backoff and jitter; everything else
// propagates on first occurrence.
package parserator
