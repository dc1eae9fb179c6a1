package parserator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchParse fans requests out over a bounded worker pool and aggregates the
// outcomes. The result slice always matches the input order regardless of
// completion order, and per-item failures are returned as data, never as an
// error from the batch call itself.
//
// With HaltOnError set the requests run strictly sequentially: the first
// failure is recorded and a CodeBatchHalted error naming that failure's
// request id is returned alongside the partial response. Requests after the
// failure point are never dispatched.
//
// A nil opts uses DefaultBatchOptions. No retry happens at the batch level;
// retry belongs to each request's transport wrapper.
func (c *Client) BatchParse(ctx context.Context, requests []ParseRequest, opts *BatchOptions) (*BatchParseResponse, error) {
	if opts == nil {
		opts = DefaultBatchOptions()
	}

	response := &BatchParseResponse{Results: make([]*ParseResponse, 0, len(requests))}
	if len(requests) == 0 {
		c.log.Debug("batch parse on empty request list")
		return response, nil
	}

	if opts.HaltOnError() {
		return c.batchSequential(ctx, requests, response)
	}
	return c.batchConcurrent(ctx, requests, opts.Parallelism(), response)
}

func (c *Client) batchSequential(ctx context.Context, requests []ParseRequest, response *BatchParseResponse) (*BatchParseResponse, error) {
	c.log.Debug("batch parse running sequentially", "requests", len(requests))

	for i, req := range requests {
		resp, err := c.Parse(ctx, req)
		if err != nil {
			failure := batchFailure(err, i)
			response.Results = append(response.Results, failureResponse(resp, failure))
			response.Failed = append(response.Failed, failure)

			halted := &Error{
				Code:      CodeBatchHalted,
				Message:   fmt.Sprintf("batch halted after failure at index %d: %s", i, failure.Message),
				Details:   map[string]any{"index": i, "cause": string(failure.Code)},
				RequestID: failure.RequestID,
			}
			c.log.Debug("batch halted", "index", i, "cause", failure.Code, "request_id", failure.RequestID)
			return response, halted
		}
		response.Results = append(response.Results, resp)
	}
	return response, nil
}

func (c *Client) batchConcurrent(ctx context.Context, requests []ParseRequest, parallelism int, response *BatchParseResponse) (*BatchParseResponse, error) {
	workers := parallelism
	if workers > len(requests) {
		workers = len(requests)
	}
	if workers < 1 {
		workers = 1
	}
	c.log.Debug("batch parse fanning out", "requests", len(requests), "workers", workers)

	// Single writer per slot: no locking needed on either slice.
	results := make([]*ParseResponse, len(requests))
	failures := make([]*Error, len(requests))

	eg := &errgroup.Group{}
	sem := make(chan struct{}, workers)
	for i, req := range requests {
		i, req := i, req
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := c.Parse(ctx, req)
			if err != nil {
				failure := batchFailure(err, i)
				failures[i] = failure
				results[i] = failureResponse(resp, failure)
				return nil
			}
			results[i] = resp
			return nil
		})
	}
	// Workers never return errors; failures travel through the slices.
	_ = eg.Wait()

	response.Results = results
	for _, failure := range failures {
		if failure != nil {
			response.Failed = append(response.Failed, failure)
		}
	}
	return response, nil
}

// batchFailure normalizes a per-item error and stamps its original index into
// the details so the failure list can be cross-referenced after aggregation.
func batchFailure(err error, index int) *Error {
	base := toError(err)
	details := map[string]any{"index": index}
	for k, v := range base.Details {
		details[k] = v
	}
	return &Error{
		Code:       base.Code,
		Message:    base.Message,
		Details:    details,
		RequestID:  base.RequestID,
		RetryAfter: base.RetryAfter,
	}
}

// failureResponse ensures a failed slot still carries a ParseResponse. When
// the service produced a normalized failure body it is kept; otherwise one is
// synthesized from the error.
func failureResponse(resp *ParseResponse, failure *Error) *ParseResponse {
	if resp != nil {
		return resp
	}
	return &ParseResponse{
		Success:      false,
		ErrorMessage: failure.Message,
		Error:        failure,
		Metadata:     ParseMetadata{RequestID: failure.RequestID},
	}
}
