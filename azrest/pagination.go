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
)

// DoList performs req — whose declared return type is AzList[T] — and
// transparently follows nextLink until exhausted, returning the flat
// concatenation of every page's Value in arrival order. Each page is an
// independent call through the retry layer: a typed error on page p is
// retried up to the configured limit; if it still fails, the overall
// call fails with that error even if earlier pages succeeded.
//
// This is the list-shaped sibling of Do; list unwrapping is modelled as
// a distinct entry point rather than runtime type introspection on T.
func DoList[T any](ctx context.Context, c *Client, req Req[AzList[T]]) ([]T, error) {
	page, err := Do(ctx, c, req)
	if err != nil {
		return nil, err
	}

	var acc []T
	acc = append(acc, page.Value...)
	c.metrics.pages.Inc()

	nextLink := page.NextLink
	for nextLink != "" {
		data, err := c.callRawAbsolute(ctx, MethodGet, nextLink)
		if err != nil {
			return nil, err
		}
		decoded, err := decodeInto[AzList[T]](data)
		if err != nil {
			return nil, err
		}
		page = decoded.(AzList[T])
		acc = append(acc, page.Value...)
		c.metrics.pages.Inc()
		nextLink = page.NextLink
	}
	return acc, nil
}
