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

// Package azgraph is a client for the Azure Resource Graph, a KQL-like
// query API over Azure resource metadata: request/response model,
// skipToken pagination, retry, and error decoding.
package azgraph

import "maps"

// Req is an Azure Resource Graph query request.
type Req struct {
	Query             string
	Subscriptions     []string
	Facets            []string
	ManagementGroupID string
	Options           map[string]any
}

// NewReq builds a Req for query against the given subscriptions.
func NewReq(query string, subscriptions ...string) Req {
	return Req{Query: query, Subscriptions: subscriptions, Options: map[string]any{}}
}

// withSkipToken returns a copy of r with options.$skipToken set to token
// and options.$skip removed: the service treats the two as mutually
// exclusive.
func (r Req) withSkipToken(token string) Req {
	opts := maps.Clone(r.Options)
	if opts == nil {
		opts = map[string]any{}
	}
	opts["$skipToken"] = token
	delete(opts, "$skip")
	r.Options = opts
	return r
}

// wireRequest is the JSON shape POSTed to the Graph endpoint.
type wireRequest struct {
	Subscriptions     []string       `json:"subscriptions"`
	Query             string         `json:"query"`
	Facets            []string       `json:"facets,omitempty"`
	ManagementGroupID string         `json:"managementGroupId,omitempty"`
	Options           map[string]any `json:"options,omitempty"`
}

func (r Req) toWire() wireRequest {
	return wireRequest{
		Subscriptions:     r.Subscriptions,
		Query:             r.Query,
		Facets:            r.Facets,
		ManagementGroupID: r.ManagementGroupID,
		Options:           r.Options,
	}
}

// Res is an Azure Resource Graph response.
type Res struct {
	TotalRecords    int64            `json:"totalRecords"`
	Count           int64            `json:"count"`
	ResultTruncated string           `json:"resultTruncated,omitempty"`
	Facets          []any            `json:"facets,omitempty"`
	Data            []map[string]any `json:"data"`
	SkipToken       string           `json:"-"`
}

// Add implements the query result append law: data concatenates in arrival
// order, count sums, and the combined result keeps b's trailing
// skipToken and other metadata, so callers always see the most
// up-to-date metadata alongside the accumulated rows.
func (a Res) Add(b Res) Res {
	out := b
	out.Count = a.Count + b.Count
	out.Data = append(append([]map[string]any{}, a.Data...), b.Data...)
	return out
}

// ResErr is an Azure Resource Graph error response. The client returns
// it in-band and never raises.
type ResErr struct {
	Code    string
	Message string
	Details any
}

func (e *ResErr) Error() string {
	return "azure resource graph error: " + e.Code + ": " + e.Message
}
