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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func loadDoc(t *testing.T, content string) (*Cache, *Reader) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	c := NewCache()
	r, err := c.Load("file://" + path)
	require.NoError(t, err)
	return c, r
}

func TestTransformSchema_SelfReferentialDefinitionTerminates(t *testing.T) {
	_, r := loadDoc(t, `{
		"info":{"version":"1"},
		"paths":{},
		"definitions":{
			"ErrorDetail":{
				"type":"object",
				"properties":{
					"code":{"type":"string"},
					"details":{"type":"array","items":{"$ref":"#/definitions/ErrorDetail"}}
				}
			}
		}
	}`)
	tr := NewTransformer(NewCache(), zap.NewNop())

	typ, err := tr.TransformSchema(r, map[string]any{"$ref": "#/definitions/ErrorDetail"})
	require.NoError(t, err)
	require.Equal(t, KindDef, typ.Kind)

	detailsProp := findProp(typ.Def.Properties, "details")
	require.NotNil(t, detailsProp)
	require.Equal(t, KindList, detailsProp.Type.Kind)
	// The cyclic reference resolves back to the very same named
	// definition rather than recursing forever.
	assert.Equal(t, "ErrorDetail", detailsProp.Type.List.Item.Def.Name)
	assert.Equal(t, 1, tr.RefCache().Len())
}

func findProp(props []IRProperty, name string) *IRProperty {
	for i := range props {
		if props[i].Name == name {
			return &props[i]
		}
	}
	return nil
}

func TestTransformSchema_DictVsObject(t *testing.T) {
	_, r := loadDoc(t, `{"info":{"version":"1"},"paths":{},"definitions":{}}`)
	tr := NewTransformer(NewCache(), nil)

	dictType, err := tr.TransformSchema(r, map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
	})
	require.NoError(t, err)
	require.Equal(t, KindDict, dictType.Kind)
	assert.Equal(t, PrimitiveString, dictType.Dict.Value.Primitive)

	objType, err := tr.TransformSchema(r, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, KindDef, objType.Kind)
	require.Len(t, objType.Def.Properties, 1)
}

func TestTransformSchema_EnumSanitizesIdentifiers(t *testing.T) {
	_, r := loadDoc(t, `{"info":{"version":"1"},"paths":{},"definitions":{}}`)
	tr := NewTransformer(NewCache(), nil)

	enumType, err := tr.TransformSchema(r, map[string]any{
		"type": "string",
		"enum": []any{"Succeeded", "None", "In,Progress"},
	})
	require.NoError(t, err)
	require.Equal(t, KindEnum, enumType.Kind)
	require.Len(t, enumType.Enum.Values, 3)
	assert.Equal(t, "NoneValue", enumType.Enum.Values[1].Identifier)
	assert.Equal(t, "None", enumType.Enum.Values[1].Wire)
	assert.Equal(t, "In_Progress", enumType.Enum.Values[2].Identifier)
}

func TestTransformDefinitionBody_AzListAlias(t *testing.T) {
	_, r := loadDoc(t, `{
		"info":{"version":"1"},
		"paths":{},
		"definitions":{
			"WidgetListResult":{
				"type":"object",
				"properties":{
					"value":{"type":"array","items":{"$ref":"#/definitions/Widget"}},
					"nextLink":{"type":"string"}
				}
			},
			"Widget":{"type":"object","properties":{"name":{"type":"string"}}}
		}
	}`)
	tr := NewTransformer(NewCache(), nil)

	typ, err := tr.TransformSchema(r, map[string]any{"$ref": "#/definitions/WidgetListResult"})
	require.NoError(t, err)
	require.Equal(t, KindList, typ.Kind, "a value-array-only definition should alias to a list, not a struct")
	assert.Equal(t, "Widget", typ.List.Item.Def.Name)
}

func TestMergeAllOf_LocalPropertiesWinOverInherited(t *testing.T) {
	_, r := loadDoc(t, `{
		"info":{"version":"1"},
		"paths":{},
		"definitions":{
			"Base":{"type":"object","properties":{"id":{"type":"string"},"name":{"type":"string"}}},
			"Derived":{
				"allOf":[{"$ref":"#/definitions/Base"}],
				"properties":{"name":{"type":"integer"},"extra":{"type":"boolean"}}
			}
		}
	}`)
	tr := NewTransformer(NewCache(), nil)

	typ, err := tr.TransformSchema(r, map[string]any{"$ref": "#/definitions/Derived"})
	require.NoError(t, err)
	require.Equal(t, KindDef, typ.Kind)

	nameProp := findProp(typ.Def.Properties, "name")
	require.NotNil(t, nameProp)
	assert.Equal(t, PrimitiveInt, nameProp.Type.Primitive, "local Derived.name should win over Base.name")

	idProp := findProp(typ.Def.Properties, "id")
	require.NotNil(t, idProp, "inherited Base.id should still be present")
}

func TestTransformOperation_SplitsGroupAndMethod(t *testing.T) {
	_, r := loadDoc(t, `{"info":{"version":"2021-01-01"},"paths":{},"definitions":{}}`)
	tr := NewTransformer(NewCache(), nil)

	op, err := tr.TransformOperation(r, "/subscriptions/{subId}/widgets/{name}", "get", map[string]any{
		"operationId": "Widgets_Get",
		"parameters": []any{
			map[string]any{"name": "subId", "in": "path", "required": true, "type": "string"},
			map[string]any{"name": "name", "in": "path", "required": true, "type": "string"},
			map[string]any{"name": "api-version", "in": "query", "required": true, "type": "string"},
		},
		"responses": map[string]any{
			"200": map[string]any{"schema": map[string]any{"type": "object", "properties": map[string]any{"id": map[string]any{"type": "string"}}}},
		},
	}, "2021-01-01")
	require.NoError(t, err)
	assert.Equal(t, "Widgets", op.Group)
	assert.Equal(t, "Get", op.Method)
	assert.Equal(t, "GET", op.HTTPMethod)
	assert.Equal(t, "2021-01-01", op.APIVersion)
	// api-version is filtered out of Params; only the two path params remain.
	assert.Len(t, op.Params, 2)
}

func TestUnifyResponses_CollapsesToNoneWithNoSchemas(t *testing.T) {
	_, r := loadDoc(t, `{"info":{"version":"1"},"paths":{},"definitions":{}}`)
	tr := NewTransformer(NewCache(), nil)

	ret, err := tr.unifyResponses(r, map[string]any{
		"responses": map[string]any{"204": map[string]any{"description": "no content"}},
	})
	require.NoError(t, err)
	assert.Equal(t, KindPrimitive, ret.Kind)
	assert.Equal(t, PrimitiveNone, ret.Primitive)
}
