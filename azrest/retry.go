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
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// checkRetry classifies a completed attempt for retryablehttp. Retry
// triggers only on typed Azure errors decoded from the response
// body; network-level errors (err != nil here) are never retried — they
// propagate to the caller, wrapped with %w by retryablehttp so that
// errors.Is/errors.As still find the original error.
//
// To classify correctly we have to peek at the body the same way
// decodeBody eventually will, then restore it so the final read (on a
// 2xx, or once retries are exhausted) sees the same bytes.
func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		// A network-level failure (dial/timeout/TLS). Not retried here.
		return false, nil
	}
	if resp == nil {
		return false, nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}

	data, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if readErr != nil {
		return false, nil
	}

	var envelope ErrorResponse
	if len(data) == 0 || azjson.Unmarshal(data, &envelope) != nil || envelope.Error.Code == "" {
		// Not a decodable Azure error envelope.
		return false, nil
	}

	c.metrics.retries.Inc()
	c.logger.Debug("azrest: retriable azure error",
		zap.Int("status_code", resp.StatusCode),
		zap.String("code", envelope.Error.Code))
	// Carry the typed error alongside shouldRetry=true so that once
	// retries are exhausted, retryablehttp's giving-up wrapper still
	// wraps *AzureError rather than a generic timeout, letting
	// errors.As find it.
	return true, envelope.Error.AsError(resp.StatusCode)
}

// backoff implements jittered exponential backoff: full jitter between
// 0 and min(cap, base*2^attempt), honoring a server Retry-After header
// when present.
func (c *Client) backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := time.ParseDuration(ra + "s"); err == nil {
				return secs
			}
		}
	}
	capped := float64(min) * math.Pow(2, float64(attemptNum))
	if capped > float64(max) {
		capped = float64(max)
	}
	return time.Duration(rand.Int63n(int64(capped) + 1))
}

// IsAzureError reports whether err is (or wraps) a retriable Azure API
// error.
func IsAzureError(err error) bool {
	var azErr *AzureError
	return errors.As(err, &azErr)
}
