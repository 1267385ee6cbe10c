/*
Copyright 2025 The azrest-go Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package azrest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// CallLongOperation performs req through retry, then follows the
// resulting async operation to a terminal state:
//  1. The initial request is expected to return 201 or 202; any other
//     status is logged but not treated as an error on its own.
//  2. The poll location prefers Azure-AsyncOperation, falling back to
//     Location. Neither present is a fatal *LROError.
//  3. The poll location is repeatedly GET; between polls it sleeps for
//     Retry-After seconds if present, otherwise PollInterval. Polling is
//     capped at LongRunningRetries attempts.
//  4. Status 200 or 204 deserialises the (possibly empty) body as T;
//     any other terminal status is decoded as an error, or wrapped in a
//     fatal *LROError if that decode fails too.
func CallLongOperation[T any](ctx context.Context, c *Client, req Req[T]) (T, error) {
	var zero T

	hreq, err := c.prepare(ctx, req.method, req.path, req.apiVersion, req.params, req.body)
	if err != nil {
		return zero, err
	}
	resp, err := c.do(hreq)
	if err != nil {
		return zero, err
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		c.logger.Warn("azrest: long-running operation started with unexpected status",
			zap.Int("status_code", resp.StatusCode))
	}

	pollURL := resp.Header.Get("Azure-AsyncOperation")
	if pollURL == "" {
		pollURL = resp.Header.Get("Location")
	}
	retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), c.config.PollInterval)
	// The initial response's body is not part of the LRO's terminal
	// payload; discard it once we've extracted headers.
	resp.Body.Close()

	if pollURL == "" {
		return zero, &LROError{Reason: "no Azure-AsyncOperation or Location header in initial response", StatusCode: resp.StatusCode}
	}

	for attempt := 0; attempt < c.config.LongRunningRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(retryAfter):
		}

		pollResp, err := c.pollOnce(ctx, pollURL)
		if err != nil {
			return zero, err
		}
		c.metrics.lroPolls.Inc()

		switch pollResp.StatusCode {
		case http.StatusOK, http.StatusNoContent:
			data, derr := decodeBody(pollResp)
			if derr != nil {
				return zero, derr
			}
			v, derr := decodeInto[T](data)
			if derr != nil {
				return zero, derr
			}
			return v.(T), nil
		default:
			data, derr := decodeBody(pollResp)
			if derr != nil {
				if azErr, ok := derr.(*AzureError); ok {
					return zero, azErr
				}
				return zero, &LROError{Reason: "poll returned undecodable error body", StatusCode: pollResp.StatusCode, Body: data}
			}
		}

		retryAfter = parseRetryAfter(pollResp.Header.Get("Retry-After"), c.config.PollInterval)
	}

	return zero, &LROError{Reason: "long-running operation did not reach a terminal state within longRunningRetries"}
}

// pollOnce issues a single GET to the poll location without the Retry
// layer's automatic classification: LRO terminal-state decisions are
// made by CallLongOperation itself from the raw status code, not by
// CheckRetry's Azure-error heuristic.
func (c *Client) pollOnce(ctx context.Context, pollURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pollURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.httpClient.HTTPClient.Do(req)
}

// parseRetryAfter parses a Retry-After header value as whole seconds,
// guarding against non-numeric or negative values by falling back to
// def.
func parseRetryAfter(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}
