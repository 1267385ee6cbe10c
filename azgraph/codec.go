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
	"fmt"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// Encode renders req as the JSON body POSTed to the Graph endpoint.
func Encode(req Req) ([]byte, error) {
	return azjson.Marshal(req.toWire())
}

// Decode classifies and parses a Graph response body: a top-level
// "error" key decodes to a *ResErr, otherwise the body decodes to a Res
// with its wire-only "$skipToken" key popped into Res.SkipToken.
func Decode(data []byte) (Res, *ResErr, error) {
	var probe map[string]azjson.RawMessage
	if err := azjson.Unmarshal(data, &probe); err != nil {
		return Res{}, nil, fmt.Errorf("decoding graph response: %w", err)
	}

	if rawErr, ok := probe["error"]; ok {
		var resErr ResErr
		if err := azjson.Unmarshal(rawErr, &resErr); err != nil {
			return Res{}, nil, fmt.Errorf("decoding graph error response: %w", err)
		}
		return Res{}, &resErr, nil
	}

	var res Res
	if err := azjson.Unmarshal(data, &res); err != nil {
		return Res{}, nil, fmt.Errorf("decoding graph response: %w", err)
	}
	if rawToken, ok := probe["$skipToken"]; ok {
		var token string
		if err := azjson.Unmarshal(rawToken, &token); err == nil {
			res.SkipToken = token
		}
	}
	return res, nil, nil
}
