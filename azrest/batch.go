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
	"fmt"

	"go.uber.org/zap"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// BatchResult is the outcome of a single batch entry: either Value is set
// (the inner Req's declared return type, decoded) or Err is set. Never
// both.
type BatchResult struct {
	Value any
	Err   error
}

// ErrEmptyBatch is returned by CallBatch for a batch with no entries.
var ErrEmptyBatch = fmt.Errorf("azrest: batch request has no entries")

// CallBatch composes a single POST to /batch from every entry in b,
// executes it through the client's retry layer, and demultiplexes each
// sub-response back to its caller-supplied id. The returned map always
// has exactly len(b.order) entries; order of the server's response
// envelope is irrelevant because every entry is looked up by name.
func CallBatch(ctx context.Context, c *Client, b *BatchReq) (map[string]BatchResult, error) {
	if b.Len() == 0 {
		return nil, ErrEmptyBatch
	}
	c.metrics.batches.Inc()

	envelope := AzBatch{Requests: make([]AzBatchRequest, 0, len(b.order))}
	for _, id := range b.order {
		item := b.requests[id]
		url, err := c.composeURL(item.path, item.apiVersion, item.params)
		if err != nil {
			return nil, fmt.Errorf("preparing batch sub-request %q: %w", id, err)
		}
		envelope.Requests = append(envelope.Requests, AzBatchRequest{
			HTTPMethod: item.httpMethod,
			Name:       id,
			URL:        url,
			Content:    item.body,
		})
	}

	data, err := c.callRaw(ctx, MethodPost, "/batch", b.APIVersion, nil, envelope)
	if err != nil {
		return nil, err
	}

	var responses AzBatchResponses
	if err := azjson.Unmarshal(data, &responses); err != nil {
		return nil, &ValidationError{Underlying: err, Body: data}
	}

	results := make(map[string]BatchResult, len(b.order))
	for _, subResp := range responses.Responses {
		item, ok := b.requests[subResp.Name]
		if !ok {
			c.logger.Warn("azrest: batch sub-response named an unknown id, ignoring", zap.String("name", subResp.Name))
			continue
		}
		results[subResp.Name] = decodeSubResponse(item, subResp)
	}

	// A sub-response missing from the envelope entirely (server silently
	// dropped it) still needs an in-band result; surface it as a fatal
	// HTTPError for that entry alone.
	for _, id := range b.order {
		if _, ok := results[id]; !ok {
			results[id] = BatchResult{Err: &HTTPError{StatusCode: 0, Body: []byte("no sub-response received for this batch entry")}}
		}
	}

	return results, nil
}

// decodeSubResponse classifies and decodes one sub-response's content.
// A non-2xx sub-response with no decodable error envelope is treated as
// an HTTPError for that entry, not silently dropped.
func decodeSubResponse(item batchItem, subResp AzBatchResponse) BatchResult {
	if len(subResp.Content) > 0 {
		var envelope ErrorResponse
		if azjson.Unmarshal(subResp.Content, &envelope) == nil && envelope.Error.Code != "" {
			return BatchResult{Err: envelope.Error.AsError(subResp.HTTPStatusCode)}
		}
	}
	if subResp.HTTPStatusCode < 200 || subResp.HTTPStatusCode >= 300 {
		return BatchResult{Err: &HTTPError{StatusCode: subResp.HTTPStatusCode, Body: subResp.Content}}
	}
	v, err := item.decode(subResp.Content)
	if err != nil {
		return BatchResult{Err: err}
	}
	return BatchResult{Value: v}
}

// composeURL prepares path/apiVersion/params into an absolute URL composed
// against the client's base URL, without sending anything, so the batch envelope's
// sub-request URLs reuse the same assembly logic as a direct call.
func (c *Client) composeURL(path, apiVersion string, params map[string]string) (string, error) {
	hreq, err := c.prepare(context.Background(), MethodGet, path, apiVersion, params, nil)
	if err != nil {
		return "", err
	}
	return hreq.URL.String(), nil
}
