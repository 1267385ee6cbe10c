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
	"bytes"
	"fmt"
	"go/format"
	"sort"
	"strings"
)

// Module is one generated Go source file: a package name, the defs,
// list aliases and ops it declares, and the import paths it needs for
// cross-file type references.
type Module struct {
	Package string
	// SourcePath is the spec file this module was generated from; used
	// to tell a def declared here apart from one merely referenced here
	// but declared in (and imported from) another module.
	SourcePath string
	Defs       []*IRDef
	Enums      []*IREnum
	// Lists holds AzList-alias definitions detected by
	// Transformer.tryAzListAlias: a named definition whose only
	// interesting shape is a "value" array, rendered as a type alias
	// rather than a struct.
	Lists   []IRType
	Ops     []IROp
	Imports []string
	// AliasedImports maps a package alias to its import path, for
	// cross-file definition references picked up via IRDef.ImportAlias.
	AliasedImports map[string]string
}

// Generate renders mod to formatted Go source. A def with both
// ConsumedAsProperties and AlsoReferencedDirectly set is still emitted
// at top level, since some other definition references it by name
// directly in addition to nesting it as a flattened properties bag.
func Generate(mod Module) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by azrestgen. DO NOT EDIT.\n\npackage %s\n\n", mod.Package)

	if len(mod.Imports) > 0 || len(mod.AliasedImports) > 0 {
		buf.WriteString("import (\n")
		sort.Strings(mod.Imports)
		for _, imp := range mod.Imports {
			fmt.Fprintf(&buf, "\t%q\n", imp)
		}
		aliases := make([]string, 0, len(mod.AliasedImports))
		for alias := range mod.AliasedImports {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			fmt.Fprintf(&buf, "\t%s %q\n", alias, mod.AliasedImports[alias])
		}
		buf.WriteString(")\n\n")
	}

	for _, def := range mod.Defs {
		if def.ConsumedAsProperties && !def.AlsoReferencedDirectly {
			continue
		}
		writeDef(&buf, def)
	}
	for _, enum := range mod.Enums {
		writeEnum(&buf, enum)
	}
	for _, list := range mod.Lists {
		writeListAlias(&buf, list)
	}
	if len(mod.Ops) > 0 {
		writeOps(&buf, mod)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("openapi: formatting generated source: %w", err)
	}
	return formatted, nil
}

func writeDef(buf *bytes.Buffer, def *IRDef) {
	if def.Description != "" {
		fmt.Fprintf(buf, "// %s %s\n", def.Name, def.Description)
	}
	fmt.Fprintf(buf, "type %s struct {\n", def.Name)
	for _, p := range def.Properties {
		goName := sanitizeGoIdentifier(p.Name)
		goType := goTypeRef(p.Type)
		tag := p.Name
		if !p.Type.Required {
			tag += ",omitempty"
		}
		fmt.Fprintf(buf, "\t%s %s `json:%q`\n", goName, goType, tag)
	}
	buf.WriteString("}\n\n")
	writeEqual(buf, def)
}

// writeEqual emits a structural-equality method over def's non-read-only
// fields, the same shape oapi-codegen's own generated types commonly
// carry for diffing desired-vs-actual resource state.
func writeEqual(buf *bytes.Buffer, def *IRDef) {
	fmt.Fprintf(buf, "// Equal reports whether other has the same mutable field values as d;\n")
	fmt.Fprintf(buf, "// read-only (service-assigned) fields are ignored.\n")
	fmt.Fprintf(buf, "func (d %s) Equal(other %s) bool {\n", def.Name, def.Name)
	buf.WriteString("\treturn true")
	for _, p := range def.Properties {
		if p.Type.ReadOnly {
			continue
		}
		if p.Type.Kind == KindDef || p.Type.Kind == KindList || p.Type.Kind == KindDict {
			continue
		}
		goName := sanitizeGoIdentifier(p.Name)
		fmt.Fprintf(buf, " &&\n\t\td.%s == other.%s", goName, goName)
	}
	buf.WriteString("\n}\n\n")
}

// writeListAlias emits a definition whose only interesting shape was a
// "value" array as a plain type alias to azrest.AzList, rather than as
// a redundant wrapper struct.
func writeListAlias(buf *bytes.Buffer, list IRType) {
	itemType := "any"
	if list.List != nil {
		itemType = goTypeRef(list.List.Item)
	}
	fmt.Fprintf(buf, "type %s = azrest.AzList[%s]\n\n", list.Name, itemType)
}

func writeEnum(buf *bytes.Buffer, enum *IREnum) {
	name := enum.Name
	if name == "" {
		name = "Enum"
	}
	if enum.Description != "" {
		fmt.Fprintf(buf, "// %s %s\n", name, enum.Description)
	}
	fmt.Fprintf(buf, "type %s string\n\nconst (\n", name)
	for _, v := range enum.Values {
		fmt.Fprintf(buf, "\t%s%s %s = %q\n", name, v.Identifier, name, v.Wire)
	}
	buf.WriteString(")\n\n")
}

// writeOps groups operations by their IROp.Group into one method set
// each, matching the generator's module→AzOps-class mapping.
func writeOps(buf *bytes.Buffer, mod Module) {
	groups := map[string][]IROp{}
	var order []string
	for _, op := range mod.Ops {
		if _, ok := groups[op.Group]; !ok {
			order = append(order, op.Group)
		}
		groups[op.Group] = append(groups[op.Group], op)
	}
	sort.Strings(order)

	for _, group := range order {
		typeName := group + "Ops"
		fmt.Fprintf(buf, "type %s struct{}\n\n", typeName)
		for _, op := range groups[group] {
			writeOpMethod(buf, typeName, op)
		}
	}
}

func writeOpMethod(buf *bytes.Buffer, typeName string, op IROp) {
	retType := goTypeRef(op.Return)
	if op.Return.Kind == KindPrimitive && op.Return.Primitive == PrimitiveNone {
		retType = "struct{}"
	}

	var sigParams []string
	for _, p := range op.Params {
		if p.Location == ParamPath {
			sigParams = append(sigParams, fmt.Sprintf("%s %s", sanitizeParamIdent(p.Name), goTypeRef(p.Type)))
		}
	}
	for _, p := range op.Params {
		if p.Location == ParamQuery {
			sigParams = append(sigParams, fmt.Sprintf("%s %s", sanitizeParamIdent(p.Name), queryParamTypeRef(p)))
		}
	}
	for _, p := range op.Params {
		if p.Location == ParamBody {
			sigParams = append(sigParams, fmt.Sprintf("body %s", goTypeRef(p.Type)))
		}
	}

	fmt.Fprintf(buf, "// %s builds the request descriptor for the %s %s operation.\n",
		op.Method, op.HTTPMethod, op.Path)
	fmt.Fprintf(buf, "func (%s) %s(%s) azrest.Req[%s] {\n", typeName, op.Method, strings.Join(sigParams, ", "), retType)
	fmt.Fprintf(buf, "\tpath := %q\n", op.Path)
	for _, p := range op.Params {
		if p.Location != ParamPath {
			continue
		}
		placeholder := "{" + p.Name + "}"
		fmt.Fprintf(buf, "\tpath = strings.ReplaceAll(path, %q, fmt.Sprint(%s))\n", placeholder, sanitizeParamIdent(p.Name))
	}

	ctor := "Get"
	bodyArg := ""
	switch op.HTTPMethod {
	case "PUT":
		ctor, bodyArg = "Put", "body"
	case "POST":
		ctor, bodyArg = "Post", "body"
	case "PATCH":
		ctor, bodyArg = "Patch", "body"
	case "DELETE":
		ctor = "Delete"
	}

	if bodyArg != "" {
		fmt.Fprintf(buf, "\treq := azrest.%s[%s](%q, path, %s).WithAPIVersion(%q)\n",
			ctor, retType, op.Method, bodyArg, op.APIVersion)
	} else {
		fmt.Fprintf(buf, "\treq := azrest.%s[%s](%q, path).WithAPIVersion(%q)\n",
			ctor, retType, op.Method, op.APIVersion)
	}

	var queryParams []IRParam
	for _, p := range op.Params {
		if p.Location == ParamQuery {
			queryParams = append(queryParams, p)
		}
	}
	if len(queryParams) > 0 {
		buf.WriteString("\tparams := map[string]string{}\n")
		for _, p := range queryParams {
			ident := sanitizeParamIdent(p.Name)
			if p.Required {
				fmt.Fprintf(buf, "\tparams[%q] = fmt.Sprint(%s)\n", p.Name, ident)
			} else {
				fmt.Fprintf(buf, "\tif %s != nil {\n\t\tparams[%q] = fmt.Sprint(*%s)\n\t}\n", ident, p.Name, ident)
			}
		}
		buf.WriteString("\treq = req.AddParams(params)\n")
	}

	buf.WriteString("\treturn req\n}\n\n")
}

// queryParamTypeRef renders p's Go type for use in a method signature:
// required query params pass by value, optional ones by pointer so the
// nil check guarding their addition to the query string has something
// to check. This is keyed off IRParam.Required rather than
// IRType.Required since a bare parameter schema carries no "required"
// of its own — the parameter object's own flag is authoritative.
func queryParamTypeRef(p IRParam) string {
	typ := p.Type
	typ.Required = p.Required
	return goTypeRef(typ)
}

// sanitizeParamIdent turns a wire parameter name (which may be an
// OData-style name like "$filter" or a dotted/dashed name) into a valid
// lowerCamelCase Go identifier.
func sanitizeParamIdent(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	name = strings.TrimLeft(name, "_")
	if name == "" {
		return "arg"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = "p" + name
	}
	return strings.ToLower(name[:1]) + name[1:]
}

// goTypeRef renders typ as a Go type expression. Optional (non-required)
// scalar candidates render as pointers so the zero value stays
// distinguishable from "absent", matching how oapi-codegen renders
// optional response fields.
func goTypeRef(typ IRType) string {
	base := goTypeRefBase(typ)
	if !typ.Required && typ.Kind == KindPrimitive && typ.Primitive != PrimitiveNone {
		return "*" + base
	}
	return base
}

func goTypeRefBase(typ IRType) string {
	switch typ.Kind {
	case KindPrimitive:
		switch typ.Primitive {
		case PrimitiveString:
			return "string"
		case PrimitiveInt:
			return "int64"
		case PrimitiveFloat:
			return "float64"
		case PrimitiveBool:
			return "bool"
		case PrimitiveNone:
			return "struct{}"
		default:
			return "map[string]any"
		}
	case KindDef:
		if typ.Def != nil && typ.Def.Name != "" {
			if typ.Def.ImportAlias != "" {
				return typ.Def.ImportAlias + "." + typ.Def.Name
			}
			return typ.Def.Name
		}
		return "map[string]any"
	case KindList:
		return "[]" + goTypeRef(typ.List.Item)
	case KindDict:
		return "map[string]" + goTypeRef(typ.Dict.Value)
	case KindEnum:
		if typ.Enum != nil && typ.Enum.Name != "" {
			return typ.Enum.Name
		}
		return "string"
	case KindUnresolved:
		return typ.Name
	case KindUnion:
		if len(typ.Union.Candidates) > 0 {
			return goTypeRef(typ.Union.Candidates[0])
		}
		return "any"
	default:
		return "any"
	}
}
