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

package openapi

import (
	"context"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"go.uber.org/zap"

	azjson "github.com/llamazure/azrest-go/libaf/json"
)

// Validate runs a structural smoke test over r's document by converting
// it from Swagger 2.0 to OpenAPI 3 and running kin-openapi's validator.
// It never fails generation: a validation problem is logged and
// swallowed, since some Azure specs are knowingly non-strict-conformant
// and still generate usable clients.
func Validate(ctx context.Context, r *Reader, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	raw, err := azjson.Marshal(r.Doc())
	if err != nil {
		logger.Warn("openapi: validate: re-marshalling document failed", zap.Error(err))
		return
	}

	var doc2 openapi2.T
	if err := azjson.Unmarshal(raw, &doc2); err != nil {
		logger.Warn("openapi: validate: decoding as Swagger 2.0 failed", zap.Error(err))
		return
	}

	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		logger.Warn("openapi: validate: converting to OpenAPI 3 failed", zap.Error(err))
		return
	}

	if err := doc3.Validate(ctx); err != nil {
		logger.Warn("openapi: validate: document failed structural validation",
			zap.String("path", r.Path()), zap.Error(err))
	}
}
