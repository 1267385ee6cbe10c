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

// Primitive is a scalar IR kind.
type Primitive string

const (
	PrimitiveString Primitive = "string"
	PrimitiveInt    Primitive = "int"
	PrimitiveFloat  Primitive = "float"
	PrimitiveBool   Primitive = "bool"
	PrimitiveObject Primitive = "object" // dict<string, any>, no further structure
	PrimitiveNone   Primitive = "none"   // the unifier's empty/void case
)

// Kind tags which field of IRType is meaningful.
type Kind int

const (
	KindPrimitive Kind = iota
	KindDef
	KindList
	KindDict
	KindEnum
	KindUnresolved // a forward reference to a slot still being resolved
	KindUnion
)

// IRType is a tagged union over every shape the transformer can produce.
// It carries ReadOnly/Required as flags rather than as separate wrapper
// types because they're schema-site properties (does this *property*
// happen to be read-only?), not properties of the referenced type
// itself, and a single IRDef can be reached with different flags from
// different properties.
type IRType struct {
	Kind      Kind
	Primitive Primitive
	Def       *IRDef
	List      *IRList
	Dict      *IRDict
	Enum      *IREnum
	Union     *IRUnion
	// Name carries the forward-reference name when Kind == KindUnresolved,
	// and the definition name once resolved (mirrors Def.Name) so code
	// that only has the placeholder's name can still render an import or
	// a type reference before resolution completes.
	Name     string
	ReadOnly bool
	Required bool
}

// IRDef is a generated record type: a name, its ordered properties, and
// the source file it should be imported from by name when referenced
// across generated modules.
type IRDef struct {
	Name        string
	Properties  []IRProperty
	Description string
	Src         string
	// ConsumedAsProperties marks a definition that was flattened into a
	// sibling Properties nested class and therefore should not also be
	// emitted as a top-level type, unless AlsoReferencedDirectly is set
	// (the safe default: emit it both ways when ambiguous).
	ConsumedAsProperties   bool
	AlsoReferencedDirectly bool
	// ImportAlias is set by the generator when this definition is declared
	// in a different output module than the one referencing it, naming
	// the package alias a property/parameter type reference must be
	// qualified with. Empty for a definition local to the module
	// rendering it.
	ImportAlias string
}

// IRProperty is one ordered (name, type) pair of an IRDef.
type IRProperty struct {
	Name string
	Type IRType
}

// IRList is an array/slice IR node.
type IRList struct {
	Item IRType
}

// IRDict is a string-keyed map IR node. Key is always string; kept as a
// field (rather than assumed) so codegen can still render it explicitly.
type IRDict struct {
	Key   Primitive
	Value IRType
}

// IREnum is a string enum IR node. Values preserves declaration order;
// wire values are preserved even when the generated identifier differs
// (the "None" literal is renamed to avoid clashing with Go's nil/zero
// value vocabulary, and commas become underscores).
type IREnum struct {
	Name        string
	Values      []EnumValue
	Description string
}

// EnumValue pairs a generated Go identifier with the literal wire value
// it must marshal/unmarshal as.
type EnumValue struct {
	Identifier string
	Wire       string
}

// IRUnion is the operation-return-type unifier's result: the set of
// candidate response shapes, collapsed by unifyResponses
// (identical-modulo-optional candidates unify to one, possibly-optional
// type; zero candidates unify to PrimitiveNone).
type IRUnion struct {
	Candidates []IRType
	Optional   bool
}

// ParamLocation is where an operation parameter is carried.
type ParamLocation string

const (
	ParamPath  ParamLocation = "path"
	ParamQuery ParamLocation = "query"
	ParamBody  ParamLocation = "body"
)

// IRParam is one operation parameter.
type IRParam struct {
	Name     string
	Location ParamLocation
	Type     IRType
	Required bool
}

// IROp is one generated operation method: the matching Req constructor,
// its HTTP verb/path/apiVersion, its parameters split by location, and
// its unified return type.
type IROp struct {
	Group      string
	Method     string
	HTTPMethod string
	Path       string
	APIVersion string
	Params     []IRParam
	Return     IRType
	Src        string
}

// RefCache maps (file path, ref name) to an index into the arena. Before
// recursing into a definition, the transformer reserves a slot and
// records its index here; re-encountering the same key mid-recursion
// returns a KindUnresolved IRType naming that slot instead of
// recursing — the forward reference that the arena fills in place once
// resolution completes.
type RefCache struct {
	arena []*IRType
	index map[string]int
}

// NewRefCache builds an empty, run-scoped RefCache: an owned resource
// of one generation run, never a process-global.
func NewRefCache() *RefCache {
	return &RefCache{index: map[string]int{}}
}

func cacheKey(filePath, refName string) string { return filePath + "#" + refName }

// Reserve records that (filePath, refName) is being resolved, returning
// its stable arena index and a placeholder IRType referencing it. The
// placeholder carries an IRDef that Fill completes. If the key is already
// reserved, the slot's current value is returned instead: the placeholder
// while resolution is in progress (the cycle case), the resolved type
// once Fill has run.
func (c *RefCache) Reserve(filePath, refName string) (int, IRType, bool) {
	key := cacheKey(filePath, refName)
	if idx, ok := c.index[key]; ok {
		return idx, *c.arena[idx], true
	}
	idx := len(c.arena)
	placeholder := &IRType{Kind: KindUnresolved, Name: refName, Def: &IRDef{Name: refName}}
	c.arena = append(c.arena, placeholder)
	c.index[key] = idx
	return idx, *placeholder, false
}

// Fill replaces the placeholder at idx with the fully-resolved IRType.
// When that is a definition, its contents are written into the IRDef the
// placeholder already carries, so every reference taken before
// resolution completed (including self-references) reaches the final
// definition through its Def pointer; such a reference keeps Kind
// KindUnresolved and its Name.
func (c *RefCache) Fill(idx int, resolved IRType) {
	slot := c.arena[idx]
	if slot.Def != nil && resolved.Kind == KindDef && resolved.Def != nil {
		*slot.Def = *resolved.Def
		resolved.Def = slot.Def
	}
	*slot = resolved
}

// Get returns the current value at idx — resolved if Fill has run,
// otherwise still the KindUnresolved placeholder.
func (c *RefCache) Get(idx int) IRType {
	return *c.arena[idx]
}

// Lookup returns the arena index for (filePath, refName) if it has been
// reserved already.
func (c *RefCache) Lookup(filePath, refName string) (int, bool) {
	idx, ok := c.index[cacheKey(filePath, refName)]
	return idx, ok
}

// Len returns how many definitions have been reserved so far, across
// every file this RefCache has touched.
func (c *RefCache) Len() int { return len(c.arena) }
