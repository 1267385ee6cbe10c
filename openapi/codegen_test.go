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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DefAndEnumProducesValidGoSyntax(t *testing.T) {
	mod := Module{
		Package: "widgets",
		Defs: []*IRDef{
			{
				Name: "Widget",
				Properties: []IRProperty{
					{Name: "name", Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: true}},
					{Name: "count", Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveInt}},
				},
			},
		},
		Enums: []*IREnum{
			{Name: "ProvisioningState", Values: []EnumValue{
				{Identifier: "Succeeded", Wire: "Succeeded"},
				{Identifier: "Failed", Wire: "Failed"},
			}},
		},
	}

	src, err := Generate(mod)
	require.NoError(t, err)
	s := string(src)
	assert.Contains(t, s, "package widgets")
	assert.Contains(t, s, "type Widget struct")
	assert.Contains(t, s, "type ProvisioningState string")
	assert.Contains(t, s, `ProvisioningStateSucceeded ProvisioningState = "Succeeded"`)
}

func TestGenerate_ConsumedDefIsOmittedUnlessAlsoDirect(t *testing.T) {
	consumed := &IRDef{Name: "WidgetProperties", ConsumedAsProperties: true}
	mod := Module{Package: "widgets", Defs: []*IRDef{consumed}}

	src, err := Generate(mod)
	require.NoError(t, err)
	assert.NotContains(t, string(src), "type WidgetProperties struct")

	consumed.AlsoReferencedDirectly = true
	src, err = Generate(mod)
	require.NoError(t, err)
	assert.Contains(t, string(src), "type WidgetProperties struct")
}

func TestGenerate_OperationsGroupedIntoOpsType(t *testing.T) {
	mod := Module{
		Package: "widgets",
		Imports: []string{"fmt", "strings", "github.com/llamazure/azrest-go/azrest"},
		Ops: []IROp{
			{
				Group: "Widgets", Method: "Get", HTTPMethod: "GET",
				Path: "/subscriptions/{subId}/widgets/{name}", APIVersion: "2021-01-01",
				Params: []IRParam{
					{Name: "subId", Location: ParamPath, Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: true}},
					{Name: "name", Location: ParamPath, Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: true}},
				},
				Return: IRType{Kind: KindPrimitive, Primitive: PrimitiveNone},
			},
		},
	}

	src, err := Generate(mod)
	require.NoError(t, err)
	s := string(src)
	assert.Contains(t, s, "type WidgetsOps struct")
	assert.Contains(t, s, "func (WidgetsOps) Get(")
	assert.Contains(t, s, `azrest.Get[struct{}]("Get", path)`)
	assert.True(t, strings.Contains(s, `"{subId}"`), "path template should interpolate the subId path param")
}

func TestGenerate_QueryParamsAddedToSignatureAndParamsMap(t *testing.T) {
	mod := Module{
		Package: "widgets",
		Imports: []string{"fmt", "strings", "github.com/llamazure/azrest-go/azrest"},
		Ops: []IROp{
			{
				Group: "Widgets", Method: "List", HTTPMethod: "GET",
				Path: "/subscriptions/{subId}/widgets", APIVersion: "2021-01-01",
				Params: []IRParam{
					{Name: "subId", Location: ParamPath, Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: true}},
					{Name: "$filter", Location: ParamQuery, Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveString}, Required: false},
					{Name: "top", Location: ParamQuery, Type: IRType{Kind: KindPrimitive, Primitive: PrimitiveInt}, Required: true},
				},
				Return: IRType{Kind: KindPrimitive, Primitive: PrimitiveNone},
			},
		},
	}

	src, err := Generate(mod)
	require.NoError(t, err)
	s := string(src)
	// Required query param passes by value; optional by pointer. The
	// OData-style "$filter" wire name sanitizes to a plain identifier.
	assert.Contains(t, s, "top int64")
	assert.Contains(t, s, "filter *string")
	assert.Contains(t, s, `params["top"] = fmt.Sprint(top)`)
	assert.Contains(t, s, "if filter != nil {")
	assert.Contains(t, s, `params["$filter"] = fmt.Sprint(*filter)`)
}

func TestGenerate_ListAliasEmitsAzListTypeAlias(t *testing.T) {
	mod := Module{
		Package: "widgets",
		Imports: []string{"github.com/llamazure/azrest-go/azrest"},
		Lists: []IRType{
			{
				Kind: KindList,
				Name: "WidgetListResult",
				List: &IRList{Item: IRType{Kind: KindDef, Def: &IRDef{Name: "Widget"}, Name: "Widget"}},
			},
		},
	}

	src, err := Generate(mod)
	require.NoError(t, err)
	assert.Contains(t, string(src), "type WidgetListResult = azrest.AzList[Widget]")
}

func TestGenerate_CrossFileDefReferenceIsQualifiedWithAlias(t *testing.T) {
	external := &IRDef{Name: "TrackedResource", Src: "file:///specs/common-types.json", ImportAlias: "ext0"}
	mod := Module{
		Package: "widgets",
		Imports: []string{"github.com/llamazure/azrest-go/azrest"},
		AliasedImports: map[string]string{
			"ext0": "github.com/llamazure/azrest-go/generated/c/common-types",
		},
		Defs: []*IRDef{
			{
				Name: "Widget",
				Properties: []IRProperty{
					{Name: "base", Type: IRType{Kind: KindDef, Def: external, Name: "TrackedResource", Required: true}},
				},
			},
		},
	}

	src, err := Generate(mod)
	require.NoError(t, err)
	s := string(src)
	assert.Contains(t, s, `ext0 "github.com/llamazure/azrest-go/generated/c/common-types"`)
	assert.Contains(t, s, "ext0.TrackedResource")
}

func TestGoTypeRef_OptionalScalarRendersAsPointer(t *testing.T) {
	typ := IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: false}
	assert.Equal(t, "*string", goTypeRef(typ))

	typ.Required = true
	assert.Equal(t, "string", goTypeRef(typ))
}

func TestGoTypeRef_ListAndDict(t *testing.T) {
	list := IRType{Kind: KindList, List: &IRList{Item: IRType{Kind: KindPrimitive, Primitive: PrimitiveString, Required: true}}}
	assert.Equal(t, "[]string", goTypeRef(list))

	dict := IRType{Kind: KindDict, Dict: &IRDict{Key: PrimitiveString, Value: IRType{Kind: KindPrimitive, Primitive: PrimitiveInt, Required: true}}}
	assert.Equal(t, "map[string]int64", goTypeRef(dict))
}
