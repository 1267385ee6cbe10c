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

package azgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/llamazure/azrest-go/azrest"
)

// DefaultAPIVersion is the Resource Graph service's default api-version
// for Query.
const DefaultAPIVersion = "2021-03-01"

// DefaultSubscriptionsAPIVersion is the api-version used by Subscriptions.
const DefaultSubscriptionsAPIVersion = "2020-01-01"

const queryPath = "/providers/Microsoft.ResourceGraph/resources"

// Subscription is the shape Subscriptions decodes each list entry into;
// only the fields the Graph client itself needs are modelled, everything
// else round-trips as extra JSON that the generator's typed bindings
// would otherwise carry.
type Subscription struct {
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName,omitempty"`
	State          string `json:"state,omitempty"`
}

// Client is a thin Resource Graph client built on top of an azrest
// transport: it reuses that package's transport/retry pipeline but has
// its own request/response envelope and in-band error propagation.
type Client struct {
	rt         *azrest.Client
	apiVersion string
}

// NewClient wraps rt as a Resource Graph client using DefaultAPIVersion.
func NewClient(rt *azrest.Client) *Client {
	return &Client{rt: rt, apiVersion: DefaultAPIVersion}
}

// WithAPIVersion overrides the Resource Graph api-version the client
// queries with.
func (c *Client) WithAPIVersion(apiVersion string) *Client {
	return &Client{rt: c.rt, apiVersion: apiVersion}
}

// Q is the one-argument convenience query, matching Graph.q: run query
// against no particular subscription scope (the service defaults to
// whatever the caller's credential can see) and aggregate every page.
func (c *Client) Q(ctx context.Context, query string) (Res, *ResErr, error) {
	return c.Query(ctx, NewReq(query))
}

// Query runs req to completion, following skipToken pages and
// aggregating results via the Res append law. A decoded Resource Graph
// error — whether surfaced as a non-2xx HTTP error or embedded in a 200
// response body — is returned in-band as *ResErr; the Graph client
// never raises for a query-level failure. Only a transport-level
// failure that cannot be expressed as either shape (a network error, or
// a malformed non-JSON body) is
// returned as a Go error.
func (c *Client) Query(ctx context.Context, req Req) (Res, *ResErr, error) {
	acc, resErr, err := c.queryOnePage(ctx, req)
	if err != nil || resErr != nil {
		return Res{}, resErr, err
	}

	for acc.SkipToken != "" {
		nextReq := req.withSkipToken(acc.SkipToken)
		page, resErr, err := c.queryOnePage(ctx, nextReq)
		if err != nil || resErr != nil {
			return Res{}, resErr, err
		}
		acc = acc.Add(page)
	}
	return acc, nil, nil
}

// queryOnePage issues a single POST and classifies the outcome. A
// terminal non-2xx azrest error is folded into a *ResErr so callers of
// Query never have to distinguish "HTTP-level Azure error" from
// "body-level Resource Graph error" — the Resource Graph API uses both
// depending on the failure.
func (c *Client) queryOnePage(ctx context.Context, req Req) (Res, *ResErr, error) {
	data, err := c.rt.Raw(ctx, azrest.MethodPost, queryPath, c.apiVersion, nil, req.toWire())
	if err != nil {
		var azErr *azrest.AzureError
		if errors.As(err, &azErr) {
			return Res{}, &ResErr{Code: azErr.Details.Code, Message: azErr.Details.Message, Details: azErr.Details.Details}, nil
		}
		var httpErr *azrest.HTTPError
		if errors.As(err, &httpErr) {
			return Res{}, &ResErr{Code: "HTTPError", Message: fmt.Sprintf("status %d", httpErr.StatusCode), Details: string(httpErr.Body)}, nil
		}
		return Res{}, nil, err
	}

	res, resErr, err := Decode(data)
	if err != nil {
		return Res{}, nil, err
	}
	return res, resErr, nil
}

// Subscriptions recovers the dropped Graph._get_subscriptions feature:
// it lists the subscriptions visible to the credential backing rt, for
// callers constructing a Client without an explicit subscription list.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {
	req := azrest.Get[azrest.AzList[Subscription]]("ListSubscriptions", "/subscriptions").
		WithAPIVersion(DefaultSubscriptionsAPIVersion)
	return azrest.DoList(ctx, c.rt, req)
}
