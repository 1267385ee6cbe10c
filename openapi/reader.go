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

// Package openapi reads multi-file OpenAPI 2.0 (Swagger) documents,
// transforms their JSON-Schema definitions into an intermediate
// representation with a reference cache that survives cycles and
// cross-file $refs, and emits typed Go bindings against the azrest
// runtime.
package openapi

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	azjson "github.com/llamazure/azrest-go/libaf/json"
	"github.com/llamazure/azrest-go/azrest"
)

// Doc is a loaded OpenAPI document, kept as a raw, schema-agnostic tree
// because getByPath and $ref resolution walk arbitrary /-separated
// segments that a typed struct can't represent uniformly across Swagger
// extensions like x-ms-paths.
type Doc map[string]any

// Reader exposes the parts of a loaded OpenAPI document the transformer
// needs: its merged path table, its definitions, and its declared
// version.
type Reader struct {
	path string
	doc  Doc
}

// Cache is the generator run's process-level path→Reader cache: a
// single mutable map passed through construction, owned by one
// generation run rather than held process-global. It is created once
// per generation run and threaded through every Reader load so the
// same file is parsed at most once.
type Cache struct {
	httpClient *http.Client
	readers    map[string]*Reader
}

// NewCache builds an empty, run-scoped Reader cache.
func NewCache() *Cache {
	return &Cache{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		readers:    map[string]*Reader{},
	}
}

// Load reads and parses the document at canonicalPath (a file://,
// http://, or https:// URI, or a bare filesystem path treated as
// file://), returning the cached Reader if this exact path was already
// loaded during this run.
func (c *Cache) Load(canonicalPath string) (*Reader, error) {
	if r, ok := c.readers[canonicalPath]; ok {
		return r, nil
	}

	data, err := c.fetch(canonicalPath)
	if err != nil {
		return nil, &azrest.LoadError{Path: canonicalPath, Underlying: err}
	}

	var doc Doc
	if jsonErr := azjson.Unmarshal(data, &doc); jsonErr != nil {
		doc, err = decodeYAML(data)
		if err != nil {
			return nil, &azrest.LoadError{Path: canonicalPath, Underlying: err}
		}
	}

	r := &Reader{path: canonicalPath, doc: doc}
	c.readers[canonicalPath] = r
	return r, nil
}

func decodeYAML(data []byte) (Doc, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return Doc(normalizeYAML(raw).(map[string]any)), nil
}

// normalizeYAML recursively converts yaml.v3's map[string]interface{}
// keys (already strings at the top level, but map[interface{}]interface{}
// can surface from older-style anchors) into the map[string]any shape
// getByPath expects throughout the tree.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeYAML(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[toString(k)] = normalizeYAML(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeYAML(val)
		}
		return out
	default:
		return v
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func (c *Cache) fetch(canonicalPath string) ([]byte, error) {
	u, err := url.Parse(canonicalPath)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		resp, err := c.httpClient.Get(canonicalPath)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	case "file", "":
		return os.ReadFile(u.Path)
	default:
		return os.ReadFile(canonicalPath)
	}
}

// Paths returns the union of the document's paths and x-ms-paths tables,
// x-ms-paths entries winning on key collision since they're the more
// specific Azure extension.
func (r *Reader) Paths() map[string]any {
	merged := map[string]any{}
	if p, ok := r.doc["paths"].(map[string]any); ok {
		for k, v := range p {
			merged[k] = v
		}
	}
	if p, ok := r.doc["x-ms-paths"].(map[string]any); ok {
		for k, v := range p {
			merged[k] = v
		}
	}
	return merged
}

// Definitions returns the document's top-level definitions table.
func (r *Reader) Definitions() map[string]any {
	if d, ok := r.doc["definitions"].(map[string]any); ok {
		return d
	}
	return map[string]any{}
}

// APIVersion returns the document's info.version, used as the Req's
// apiVersion for every operation it declares.
func (r *Reader) APIVersion() string {
	if info, ok := r.doc["info"].(map[string]any); ok {
		if v, ok := info["version"].(string); ok {
			return v
		}
	}
	return ""
}

// Path returns the canonical path this Reader was loaded from.
func (r *Reader) Path() string { return r.path }

// Doc exposes the raw document tree for callers (the IR transformer)
// that need to walk arbitrary schema shapes getByPath-style.
func (r *Reader) Doc() Doc { return r.doc }

// LoadRelative splits a $ref into its file component (if any) and object
// path, then resolves the referenced document relative to r, through c
// so the same file is parsed at most once per run. A $ref with no file
// component ("#/definitions/Foo") resolves against r itself.
func (c *Cache) LoadRelative(r *Reader, ref string) (*Reader, string, error) {
	filePart, objectPath, found := strings.Cut(ref, "#")
	if !found {
		return nil, "", &azrest.LoadError{Path: ref, Underlying: errRefMissingFragment}
	}
	objectPath = strings.TrimPrefix(objectPath, "/")

	if filePart == "" {
		return r, objectPath, nil
	}

	target := normalizePath(r.path, filePart)
	targetReader, err := c.Load(target)
	if err != nil {
		return nil, "", err
	}
	return targetReader, objectPath, nil
}

var errRefMissingFragment = refError("$ref is missing a '#' fragment separator")

type refError string

func (e refError) Error() string { return string(e) }

// normalizePath resolves rel against base, handling .. and . segments
// the way a browser would resolve a relative href, for both file and
// http(s) schemes.
func normalizePath(base, rel string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return rel
	}
	switch baseURL.Scheme {
	case "http", "https":
		ref, err := url.Parse(rel)
		if err != nil {
			return rel
		}
		return baseURL.ResolveReference(ref).String()
	default:
		if path.IsAbs(rel) {
			return "file://" + path.Clean(rel)
		}
		dir := path.Dir(baseURL.Path)
		return "file://" + path.Clean(path.Join(dir, rel))
	}
}

// GetByPath walks doc along objectPath's /-separated segments, skipping
// empty segments, and raises a *azrest.PathLookupError at the first
// segment that cannot be found.
func GetByPath(doc any, objectPath string) (any, error) {
	cur := doc
	for _, seg := range strings.Split(objectPath, "/") {
		if seg == "" {
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &azrest.PathLookupError{ObjectPath: objectPath, Segment: seg}
		}
		next, ok := m[seg]
		if !ok {
			return nil, &azrest.PathLookupError{ObjectPath: objectPath, Segment: seg}
		}
		cur = next
	}
	return cur, nil
}
