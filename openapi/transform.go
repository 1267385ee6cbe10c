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
	"fmt"
	"path"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

// Transformer walks OpenAPI JSON-Schema objects and produces IR. It owns
// one RefCache per generation run: never share a Transformer, or its
// RefCache, across runs.
type Transformer struct {
	cache  *Cache
	refs   *RefCache
	logger *zap.Logger
}

// NewTransformer builds a Transformer over cache, which must already be
// populated with (or able to load) every document this run will touch.
func NewTransformer(cache *Cache, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{cache: cache, refs: NewRefCache(), logger: logger}
}

// RefCache exposes the transformer's reference cache, mainly so tests
// can assert on arena size/termination.
func (t *Transformer) RefCache() *RefCache { return t.refs }

// TransformSchema converts a single JSON-Schema object (as found inline
// in a property, parameter, or definition) into IR, resolving $refs
// through r's document and across files via t.cache.
func (t *Transformer) TransformSchema(r *Reader, schema map[string]any) (IRType, error) {
	if ref, ok := schema["$ref"].(string); ok {
		return t.resolveRef(r, ref)
	}

	if allOf, ok := schema["allOf"].([]any); ok {
		return t.transformAllOf(r, schema, allOf)
	}

	if enumVal, ok := schema["enum"].([]any); ok {
		if typ, _ := schema["type"].(string); typ == "" || typ == "string" {
			return t.transformEnum(schema, enumVal), nil
		}
	}

	switch typ, _ := schema["type"].(string); typ {
	case "array":
		return t.transformArray(r, schema)
	case "object", "":
		return t.transformObjectLike(r, schema)
	case "string":
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveString}, nil
	case "integer":
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveInt}, nil
	case "number":
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveFloat}, nil
	case "boolean":
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveBool}, nil
	default:
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveObject}, nil
	}
}

// resolveRef is the cycle-guarded $ref resolver: before recursing into the referenced definition, it reserves an arena
// slot and hands out a placeholder; a cycle re-enters this same key and
// receives that placeholder back instead of recursing. The placeholder
// is filled in place once resolution completes, so every reference taken
// before or during resolution observes the final IR.
func (t *Transformer) resolveRef(r *Reader, ref string) (IRType, error) {
	targetReader, objectPath, err := t.cache.LoadRelative(r, ref)
	if err != nil {
		return IRType{}, err
	}
	refName := lastSegment(objectPath)

	idx, placeholder, existed := t.refs.Reserve(targetReader.Path(), refName)
	if existed {
		return placeholder, nil
	}

	raw, err := GetByPath(map[string]any(targetReader.Doc()), objectPath)
	if err != nil {
		return IRType{}, err
	}
	schema, ok := raw.(map[string]any)
	if !ok {
		return IRType{}, fmt.Errorf("openapi: $ref %q does not point at an object", ref)
	}

	resolved, err := t.transformDefinitionBody(targetReader, refName, schema)
	if err != nil {
		return IRType{}, err
	}
	t.refs.Fill(idx, resolved)
	return t.refs.Get(idx), nil
}

func lastSegment(objectPath string) string {
	segs := strings.Split(objectPath, "/")
	return segs[len(segs)-1]
}

// transformDefinitionBody resolves one named definition's schema body.
// It is split from TransformSchema because a named definition additionally
// needs dict-vs-object disambiguation and AzList-alias detection, which
// only apply at the definition level, not to every inline schema.
func (t *Transformer) transformDefinitionBody(r *Reader, name string, schema map[string]any) (IRType, error) {
	if allOf, ok := schema["allOf"].([]any); ok {
		return t.transformNamedAllOf(r, name, schema, allOf)
	}

	if alias, ok := t.tryAzListAlias(r, name, schema); ok {
		return alias, nil
	}

	if isDict(schema) {
		return t.transformDict(r, schema)
	}

	if enumVal, ok := schema["enum"].([]any); ok {
		return t.transformEnum(schema, enumVal), nil
	}

	if typ, _ := schema["type"].(string); typ == "array" {
		return t.transformArray(r, schema)
	}

	if _, hasProps := schema["properties"]; !hasProps {
		if typ, _ := schema["type"].(string); typ == "object" {
			return t.transformObjectLike(r, schema)
		}
	}

	return t.transformNamedObject(r, name, schema)
}

// isDict applies the dict-vs-object rule: no properties, no allOf,
// and additionalProperties present (true or a schema) is a dict; bare
// type=object with nothing else is dict<str, any>, handled by
// transformObjectLike instead (for inline schemas and named definitions
// alike).
func isDict(schema map[string]any) bool {
	_, hasProps := schema["properties"]
	_, hasAllOf := schema["allOf"]
	_, hasAdditional := schema["additionalProperties"]
	return !hasProps && !hasAllOf && hasAdditional
}

func (t *Transformer) transformDict(r *Reader, schema map[string]any) (IRType, error) {
	value := IRType{Kind: KindPrimitive, Primitive: PrimitiveObject}
	switch ap := schema["additionalProperties"].(type) {
	case map[string]any:
		v, err := t.TransformSchema(r, ap)
		if err != nil {
			return IRType{}, err
		}
		value = v
	}
	return IRType{Kind: KindDict, Dict: &IRDict{Key: PrimitiveString, Value: value}}, nil
}

// transformObjectLike handles an inline (unnamed) object schema: with
// properties it becomes an anonymous IRDef; with additionalProperties
// it's a dict; with nothing at all it's dict<str, any>.
func (t *Transformer) transformObjectLike(r *Reader, schema map[string]any) (IRType, error) {
	if isDict(schema) {
		return t.transformDict(r, schema)
	}
	if _, hasProps := schema["properties"]; !hasProps {
		return IRType{Kind: KindDict, Dict: &IRDict{Key: PrimitiveString, Value: IRType{Kind: KindPrimitive, Primitive: PrimitiveObject}}}, nil
	}
	return t.transformNamedObject(r, "", schema)
}

func (t *Transformer) transformNamedObject(r *Reader, name string, schema map[string]any) (IRType, error) {
	props, err := t.transformProperties(r, name, schema)
	if err != nil {
		return IRType{}, err
	}
	desc, _ := schema["description"].(string)
	def := &IRDef{Name: name, Properties: props, Description: desc, Src: r.Path()}
	t.applyPropertiesFlattening(r, def)
	return IRType{Kind: KindDef, Def: def, Name: name}, nil
}

// transformProperties converts one schema's properties map into ordered
// IRProperty entries, sorted by name for deterministic output (the
// source JSON-Schema map has no guaranteed order once parsed).
func (t *Transformer) transformProperties(r *Reader, ownerName string, schema map[string]any) ([]IRProperty, error) {
	propsRaw, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	if req, ok := schema["required"].([]any); ok {
		for _, name := range req {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(propsRaw))
	for name := range propsRaw {
		names = append(names, name)
	}
	sort.Strings(names)

	props := make([]IRProperty, 0, len(names))
	for _, name := range names {
		propSchema, ok := propsRaw[name].(map[string]any)
		if !ok {
			continue
		}
		typ, err := t.TransformSchema(r, propSchema)
		if err != nil {
			return nil, err
		}
		typ.ReadOnly, _ = propSchema["readOnly"].(bool)
		typ.Required = required[name]
		props = append(props, IRProperty{Name: name, Type: typ})
	}
	return props, nil
}

// applyPropertiesFlattening flattens a nested "properties" field: when
// def has a "properties" field whose schema resolved to a $ref'd IRDef,
// that nested definition is marked consumed so the top-level emitter
// doesn't also describe it standalone — unless it's referenced from
// elsewhere too, in which case it's kept available both ways.
func (t *Transformer) applyPropertiesFlattening(r *Reader, def *IRDef) {
	for _, p := range def.Properties {
		if p.Name != "properties" {
			continue
		}
		if p.Type.Kind == KindDef && p.Type.Def != nil {
			p.Type.Def.ConsumedAsProperties = true
		}
	}
}

// tryAzListAlias detects the AzList-alias shape: a definition
// whose sole interesting property is value: array<T> becomes an alias
// Name = AzList[T] instead of a full struct.
func (t *Transformer) tryAzListAlias(r *Reader, name string, schema map[string]any) (IRType, bool) {
	propsRaw, ok := schema["properties"].(map[string]any)
	if !ok {
		return IRType{}, false
	}
	valueSchema, hasValue := propsRaw["value"].(map[string]any)
	if !hasValue {
		return IRType{}, false
	}
	interesting := 0
	for k := range propsRaw {
		if k == "value" || k == "nextLink" || k == "count" {
			continue
		}
		interesting++
	}
	if interesting > 0 {
		return IRType{}, false
	}
	valType, ok := valueSchema["type"].(string)
	if !ok || valType != "array" {
		return IRType{}, false
	}
	itemIR, err := t.transformArray(r, valueSchema)
	if err != nil {
		return IRType{}, false
	}
	return IRType{
		Kind: KindList,
		List: itemIR.List,
		Name: name,
	}, true
}

func (t *Transformer) transformArray(r *Reader, schema map[string]any) (IRType, error) {
	itemsRaw, ok := schema["items"].(map[string]any)
	if !ok {
		return IRType{Kind: KindList, List: &IRList{Item: IRType{Kind: KindPrimitive, Primitive: PrimitiveObject}}}, nil
	}
	item, err := t.TransformSchema(r, itemsRaw)
	if err != nil {
		return IRType{}, err
	}
	return IRType{Kind: KindList, List: &IRList{Item: item}}, nil
}

func (t *Transformer) transformEnum(schema map[string]any, values []any) IRType {
	name, _ := schema["x-ms-enum"].(map[string]any)
	enumName := ""
	if name != nil {
		enumName, _ = name["name"].(string)
	}
	desc, _ := schema["description"].(string)

	out := make([]EnumValue, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, EnumValue{Identifier: sanitizeEnumIdentifier(s), Wire: s})
	}
	return IRType{Kind: KindEnum, Enum: &IREnum{Name: enumName, Values: out, Description: desc}}
}

// sanitizeEnumIdentifier normalises a wire enum value into a Go
// identifier: the literal "None" is renamed to avoid clashing with the
// null/zero-value sentinel, commas become underscores, and any other
// non-identifier character is stripped.
func sanitizeEnumIdentifier(wire string) string {
	if wire == "None" {
		return "NoneValue"
	}
	replaced := strings.ReplaceAll(wire, ",", "_")
	var b strings.Builder
	for i, r := range replaced {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			b.WriteByte('_')
		case i == 0 && (r >= '0' && r <= '9'):
			b.WriteString("V")
			b.WriteRune(r)
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			// stripped
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// transformAllOf applies the composition rule for inline (unnamed)
// allOf schemas: a single-$ref, no-local-properties allOf is a pure
// alias that resolves and returns the referent directly.
func (t *Transformer) transformAllOf(r *Reader, schema map[string]any, allOf []any) (IRType, error) {
	if _, hasProps := schema["properties"]; !hasProps && len(allOf) == 1 {
		if entry, ok := allOf[0].(map[string]any); ok {
			if _, isRef := entry["$ref"]; isRef {
				return t.TransformSchema(r, entry)
			}
		}
	}
	def, err := t.mergeAllOf(r, "", schema, allOf)
	if err != nil {
		return IRType{}, err
	}
	return IRType{Kind: KindDef, Def: def}, nil
}

func (t *Transformer) transformNamedAllOf(r *Reader, name string, schema map[string]any, allOf []any) (IRType, error) {
	if _, hasProps := schema["properties"]; !hasProps && len(allOf) == 1 {
		if entry, ok := allOf[0].(map[string]any); ok {
			if _, isRef := entry["$ref"]; isRef {
				return t.TransformSchema(r, entry)
			}
		}
	}
	def, err := t.mergeAllOf(r, name, schema, allOf)
	if err != nil {
		return IRType{}, err
	}
	def.Src = r.Path()
	t.applyPropertiesFlattening(r, def)
	return IRType{Kind: KindDef, Def: def, Name: name}, nil
}

// mergeAllOf merges every allOf entry's properties into schema's own,
// local definition winning over inherited ones on name collision. Local
// properties come first, then inherited ones — preserved here by
// appending local before iterating allOf. Non-definition referents
// (anything that doesn't resolve to an
// IRDef) are logged and skipped.
func (t *Transformer) mergeAllOf(r *Reader, name string, schema map[string]any, allOf []any) (*IRDef, error) {
	localProps, err := t.transformProperties(r, name, schema)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	merged := make([]IRProperty, 0, len(localProps))
	for _, p := range localProps {
		if !seen[p.Name] {
			merged = append(merged, p)
			seen[p.Name] = true
		}
	}

	for _, entry := range allOf {
		entrySchema, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		typ, err := t.TransformSchema(r, entrySchema)
		if err != nil {
			return nil, err
		}
		if typ.Kind != KindDef || typ.Def == nil {
			t.logger.Warn("openapi: allOf entry did not resolve to an object, skipping merge")
			continue
		}
		for _, p := range typ.Def.Properties {
			if !seen[p.Name] {
				merged = append(merged, p)
				seen[p.Name] = true
			}
		}
	}

	desc, _ := schema["description"].(string)
	return &IRDef{Name: name, Properties: merged, Description: desc}, nil
}

// TransformOperation converts one OpenAPI operation object into an IROp.
// operationId is split on the first underscore into (group, method);
// the group is the caller's key for grouping into an AzOps output
// class in codegen.
func (t *Transformer) TransformOperation(r *Reader, pathTemplate, httpMethod string, op map[string]any, docAPIVersion string) (IROp, error) {
	operationID, _ := op["operationId"].(string)
	group, method, ok := strings.Cut(operationID, "_")
	if !ok {
		group, method = "Default", operationID
	}

	apiVersion := docAPIVersion
	if v, ok := op["x-ms-api-version"].(string); ok {
		apiVersion = v
	}

	var params []IRParam
	if rawParams, ok := op["parameters"].([]any); ok {
		for _, rp := range rawParams {
			pMap, ok := rp.(map[string]any)
			if !ok {
				continue
			}
			param, err := t.transformParam(r, pMap)
			if err != nil {
				return IROp{}, err
			}
			// api-version is driven by Req.apiVersion, not a query parameter.
			if param.Location == ParamQuery && param.Name == "api-version" {
				continue
			}
			params = append(params, param)
		}
	}

	ret, err := t.unifyResponses(r, op)
	if err != nil {
		return IROp{}, err
	}

	return IROp{
		Group:      sanitizeGoIdentifier(group),
		Method:     sanitizeGoIdentifier(method),
		HTTPMethod: strings.ToUpper(httpMethod),
		Path:       pathTemplate,
		APIVersion: apiVersion,
		Params:     params,
		Return:     ret,
		Src:        r.Path(),
	}, nil
}

// transformParam categorises a parameter object by its "in" field: a
// body parameter carries a schema instead of a type, path/query
// parameters resolve their type the normal schema way, and an
// array-typed parameter resolves recursively through the array logic.
func (t *Transformer) transformParam(r *Reader, p map[string]any) (IRParam, error) {
	name, _ := p["name"].(string)
	in, _ := p["in"].(string)
	required, _ := p["required"].(bool)

	var typ IRType
	var err error
	if in == "body" {
		schema, _ := p["schema"].(map[string]any)
		typ, err = t.TransformSchema(r, schema)
	} else {
		typ, err = t.TransformSchema(r, p)
	}
	if err != nil {
		return IRParam{}, err
	}

	loc := ParamQuery
	switch in {
	case "path":
		loc = ParamPath
	case "body":
		loc = ParamBody
	}
	return IRParam{Name: name, Location: loc, Type: typ, Required: required}, nil
}

// unifyResponses applies return-type unification: every
// non-"default" response schema is a candidate; zero candidates collapse
// to PrimitiveNone, and candidates that are identical modulo a "None"
// candidate unify to one optional type.
func (t *Transformer) unifyResponses(r *Reader, op map[string]any) (IRType, error) {
	responses, _ := op["responses"].(map[string]any)
	var candidates []IRType
	hasNone := false

	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		if code == "default" {
			continue
		}
		respObj, ok := responses[code].(map[string]any)
		if !ok {
			continue
		}
		schema, ok := respObj["schema"].(map[string]any)
		if !ok {
			hasNone = true
			continue
		}
		typ, err := t.TransformSchema(r, schema)
		if err != nil {
			return IRType{}, err
		}
		candidates = append(candidates, typ)
	}

	if len(candidates) == 0 {
		return IRType{Kind: KindPrimitive, Primitive: PrimitiveNone}, nil
	}
	first := candidates[0]
	allSame := true
	for _, c := range candidates[1:] {
		if !sameShape(first, c) {
			allSame = false
			break
		}
	}
	if allSame {
		first.Required = !hasNone
		return first, nil
	}
	return IRType{Kind: KindUnion, Union: &IRUnion{Candidates: candidates, Optional: hasNone}}, nil
}

// sameShape is a structural identity check used by unifyResponses to
// decide whether multiple response candidates are "the same modulo
// None" and can collapse to a single optional type.
func sameShape(a, b IRType) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindPrimitive:
		return a.Primitive == b.Primitive
	case KindDef:
		return a.Def != nil && b.Def != nil && a.Def.Name == b.Def.Name
	case KindList, KindDict, KindEnum, KindUnresolved:
		return a.Name == b.Name
	default:
		return false
	}
}

// sanitizeGoIdentifier upper-cases the first letter of an operationId
// segment so it exports cleanly as a Go method/group name.
func sanitizeGoIdentifier(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// pathDir returns the directory part of a slash-separated document path.
// Nothing in this module calls it.
func pathDir(p string) string { return path.Dir(p) }
