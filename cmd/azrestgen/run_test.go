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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llamazure/azrest-go/openapi"
)

func TestModulePath_CommonTypesLandUnderFlatCTree(t *testing.T) {
	got := modulePath("/root/specs", "/root/specs/common-types/resource-management/v5/types.json")
	assert.Equal(t, "c/resource-management/v5", got)
}

func TestModulePath_ProviderSpecDropsTrailingFileSegment(t *testing.T) {
	got := modulePath("/root/specs", "/root/specs/specification/widget/resource-manager/Microsoft.Widget/stable/2021-01-01/widget.json")
	assert.Equal(t, "widget/resource-manager/Microsoft.Widget/stable", got)
}

func TestQualifyCrossFileRefs_SameFileDefLeftUnqualified(t *testing.T) {
	local := &openapi.IRDef{Name: "Widget", Src: "file:///specs/widget.json"}
	mod := openapi.Module{
		SourcePath: "file:///specs/widget.json",
		Defs: []*openapi.IRDef{
			{
				Name: "Container",
				Properties: []openapi.IRProperty{
					{Name: "widget", Type: openapi.IRType{Kind: openapi.KindDef, Def: local}},
				},
			},
		},
	}

	qualifyCrossFileRefs(&mod)
	assert.Empty(t, local.ImportAlias)
	assert.Nil(t, mod.AliasedImports)
}

func TestQualifyCrossFileRefs_ForeignDefGetsStableAlias(t *testing.T) {
	oldRoot := rootDir
	rootDir = "/specs"
	defer func() { rootDir = oldRoot }()

	foreign := &openapi.IRDef{Name: "TrackedResource", Src: "file:///specs/common-types/v5/types.json"}
	mod := openapi.Module{
		SourcePath: "file:///specs/widget/resource-manager/2021-01-01/widget.json",
		Defs: []*openapi.IRDef{
			{
				Name: "Widget",
				Properties: []openapi.IRProperty{
					{Name: "base", Type: openapi.IRType{Kind: openapi.KindDef, Def: foreign}},
				},
			},
		},
	}

	qualifyCrossFileRefs(&mod)
	assert.Equal(t, "ext0", foreign.ImportAlias)
	assert.Equal(t, "github.com/llamazure/azrest-go/generated/c/v5", mod.AliasedImports["ext0"])
}

func TestQualifyCrossFileRefs_SelfReferentialDefDoesNotRecurseForever(t *testing.T) {
	def := &openapi.IRDef{Name: "Node", Src: "file:///specs/tree.json"}
	def.Properties = []openapi.IRProperty{
		{Name: "children", Type: openapi.IRType{Kind: openapi.KindList, List: &openapi.IRList{
			Item: openapi.IRType{Kind: openapi.KindDef, Def: def},
		}}},
	}
	mod := openapi.Module{
		SourcePath: "file:///specs/tree.json",
		Defs:       []*openapi.IRDef{def},
	}

	qualifyCrossFileRefs(&mod)
	assert.Empty(t, def.ImportAlias)
}
