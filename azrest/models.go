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

// Package azrest is a typed client runtime for Azure's REST management
// plane: a request descriptor, an HTTP transport with retry, pagination,
// long-running-operation polling and multi-request batching.
package azrest

import (
	"maps"

	"github.com/google/uuid"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// Method is an HTTP verb supported by the management plane.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// Req is an immutable descriptor of a single call against Azure. T is the
// declared return type and drives deserialisation: for a Req[AzList[E]],
// DoList aggregates pages and unwraps to []E (Do decodes a single page).
//
// name is opaque outside of logging and batch keying; callers should not
// parse it.
type Req[T any] struct {
	name       string
	path       string
	method     Method
	apiVersion string
	body       any
	params     map[string]string
}

// Get builds a GET request descriptor.
func Get[T any](name, path string) Req[T] {
	return Req[T]{name: name, path: path, method: MethodGet}
}

// Put builds a PUT request descriptor with the given body.
func Put[T any](name, path string, body any) Req[T] {
	return Req[T]{name: name, path: path, method: MethodPut, body: body}
}

// Post builds a POST request descriptor with the given body.
func Post[T any](name, path string, body any) Req[T] {
	return Req[T]{name: name, path: path, method: MethodPost, body: body}
}

// Patch builds a PATCH request descriptor with the given body.
func Patch[T any](name, path string, body any) Req[T] {
	return Req[T]{name: name, path: path, method: MethodPatch, body: body}
}

// Delete builds a DELETE request descriptor.
func Delete[T any](name, path string) Req[T] {
	return Req[T]{name: name, path: path, method: MethodDelete}
}

// Name returns the request's opaque name.
func (r Req[T]) Name() string { return r.name }

// Path returns the request's URL path, relative to the client's base URL.
func (r Req[T]) Path() string { return r.path }

// Method returns the request's HTTP method.
func (r Req[T]) Method() Method { return r.method }

// Body returns the request's body, or nil if it has none.
func (r Req[T]) Body() any { return r.body }

// Params returns a copy of the request's query parameters.
func (r Req[T]) Params() map[string]string {
	return maps.Clone(r.params)
}

// WithAPIVersion returns a copy of r with apiVersion set; it is injected
// into the query string as api-version at prepare time.
func (r Req[T]) WithAPIVersion(apiVersion string) Req[T] {
	r.apiVersion = apiVersion
	return r
}

// APIVersion returns the request's api-version, or "" if unset.
func (r Req[T]) APIVersion() string { return r.apiVersion }

// AddParams returns a copy of r with the given query parameters merged in
// left-to-right; params passed here take precedence over r's existing
// ones with the same key.
func (r Req[T]) AddParams(params map[string]string) Req[T] {
	merged := make(map[string]string, len(r.params)+len(params))
	maps.Copy(merged, r.params)
	maps.Copy(merged, params)
	r.params = merged
	return r
}

// WithReturnType re-tags r's declared return type, preserving every other
// field. Go cannot change a value's type parameter in place, so this is
// a free function rather than a method.
func WithReturnType[T, U any](r Req[T]) Req[U] {
	return Req[U]{
		name:       r.name,
		path:       r.path,
		method:     r.method,
		apiVersion: r.apiVersion,
		body:       r.body,
		params:     maps.Clone(r.params),
	}
}

// AzList is Azure's paginated list envelope. DoList follows nextLink
// chains and hands callers a flat []T, so no NextLink reaches them; Do on
// a Req[AzList[T]] returns the first page with NextLink as received.
type AzList[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"nextLink,omitempty"`
}

// BatchReq is a named mapping from caller-supplied id to a prepared
// sub-request, posted to the /batch endpoint as a unit.
type BatchReq struct {
	Name       string
	APIVersion string
	requests   map[string]batchItem
	order      []string
}

// batchItem pairs a prepared sub-request with the decoder needed to
// interpret its sub-response once the envelope comes back.
type batchItem struct {
	httpMethod Method
	path       string
	apiVersion string
	params     map[string]string
	body       any
	decode     func(raw []byte) (any, error)
}

// NewBatchReq starts an empty named batch.
func NewBatchReq(name, apiVersion string) *BatchReq {
	return &BatchReq{
		Name:       name,
		APIVersion: apiVersion,
		requests:   map[string]batchItem{},
	}
}

// Add registers req under the caller-supplied id, preserving it verbatim
// even if the server reorders responses.
func Add[T any](b *BatchReq, id string, req Req[T]) {
	b.requests[id] = batchItem{
		httpMethod: req.method,
		path:       req.path,
		apiVersion: req.apiVersion,
		params:     req.params,
		body:       req.body,
		decode:     decodeInto[T],
	}
	b.order = append(b.order, id)
}

// Gather builds a batch from an ordered slice of requests, auto-assigning
// each a fresh id via a random UUID. The assigned ids are returned in
// request order so callers can correlate entries back to their Req.
func Gather[T any](name, apiVersion string, reqs []Req[T]) (*BatchReq, []string) {
	b := NewBatchReq(name, apiVersion)
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		id := uuid.NewString()
		Add(b, id, req)
		ids[i] = id
	}
	return b, ids
}

// Len returns the number of entries registered in the batch.
func (b *BatchReq) Len() int { return len(b.order) }

// AzBatch is the wire envelope POSTed to /batch.
type AzBatch struct {
	Requests []AzBatchRequest `json:"requests"`
}

// AzBatchRequest is a single sub-request inside an AzBatch envelope. URL is
// the absolute URL (base URL, path and query) produced by locally preparing (but not
// sending) the inner Req, so the client's URL assembly logic is reused
// rather than duplicated here.
type AzBatchRequest struct {
	HTTPMethod Method `json:"httpMethod"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Content    any    `json:"content,omitempty"`
}

// AzBatchResponses is the wire envelope returned by /batch.
type AzBatchResponses struct {
	Responses []AzBatchResponse `json:"responses"`
}

// AzBatchResponse is a single sub-response inside an AzBatchResponses
// envelope, keyed back to its AzBatchRequest by Name.
type AzBatchResponse struct {
	Name           string            `json:"name"`
	HTTPStatusCode int               `json:"httpStatusCode"`
	Headers        map[string]string `json:"headers,omitempty"`
	Content        azjson.RawMessage `json:"content,omitempty"`
}
