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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/llamazure/azrest-go/libaf/logging"
	"github.com/llamazure/azrest-go/openapi"
)

func runGenerate() error {
	// Flags are bound into viper, so read the layered values (flag, then
	// AZRESTGEN_* environment, then config file) rather than the raw flags.
	rootDir = viper.GetString("root")
	specsGlob = viper.GetString("specs")
	outDir = viper.GetString("out")
	pkgName = viper.GetString("package")
	logLevel = viper.GetString("log-level")

	logger := logging.NewLogger(&logging.Config{Style: logging.StyleTerminal, Level: logging.Level(logLevel)})
	defer logger.Sync()

	specFiles, err := discoverSpecs(rootDir, specsGlob)
	if err != nil {
		return fmt.Errorf("azrestgen: discovering specs: %w", err)
	}
	if len(specFiles) == 0 {
		return fmt.Errorf("azrestgen: no spec files matched %q under %q", specsGlob, rootDir)
	}

	cache := openapi.NewCache()
	transformer := openapi.NewTransformer(cache, logger)
	ctx := context.Background()

	for _, specFile := range specFiles {
		canonical := "file://" + specFile
		reader, err := cache.Load(canonical)
		if err != nil {
			return err
		}

		openapi.Validate(ctx, reader, logger)

		mod, err := buildModule(transformer, reader, modulePackageName(specFile))
		if err != nil {
			return fmt.Errorf("azrestgen: transforming %s: %w", specFile, err)
		}

		src, err := openapi.Generate(mod)
		if err != nil {
			return fmt.Errorf("azrestgen: generating %s: %w", specFile, err)
		}

		outPath := filepath.Join(outDir, modulePath(rootDir, specFile), mod.Package+"_gen.go")
		if err := writeGenerated(outPath, src); err != nil {
			return err
		}
		logger.Info("azrestgen: wrote generated client",
			zap.String("spec", specFile), zap.String("out", outPath))
	}
	return nil
}

func discoverSpecs(root, glob string) ([]string, error) {
	var matches []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(p, ".json") {
			return nil
		}
		ok, matchErr := filepath.Match(glob, filepath.Base(p))
		if matchErr != nil {
			return matchErr
		}
		if ok || strings.Contains(glob, "**") {
			matches = append(matches, p)
		}
		return nil
	})
	sort.Strings(matches)
	return matches, err
}

// buildModule walks reader's merged path table and definitions table,
// transforming every operation and every definition in the table, into a
// single Module ready for codegen.
func buildModule(t *openapi.Transformer, r *openapi.Reader, pkg string) (openapi.Module, error) {
	mod := openapi.Module{Package: pkg}

	pathKeys := make([]string, 0, len(r.Paths()))
	for p := range r.Paths() {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, pathTemplate := range pathKeys {
		pathObj, ok := r.Paths()[pathTemplate].(map[string]any)
		if !ok {
			continue
		}
		methods := make([]string, 0, len(pathObj))
		for m := range pathObj {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		for _, httpMethod := range methods {
			opObj, ok := pathObj[httpMethod].(map[string]any)
			if !ok {
				continue
			}
			op, err := t.TransformOperation(r, pathTemplate, httpMethod, opObj, r.APIVersion())
			if err != nil {
				return openapi.Module{}, err
			}
			mod.Ops = append(mod.Ops, op)
		}
	}

	defKeys := make([]string, 0, len(r.Definitions()))
	for name := range r.Definitions() {
		defKeys = append(defKeys, name)
	}
	sort.Strings(defKeys)

	for _, name := range defKeys {
		schema, ok := r.Definitions()[name].(map[string]any)
		if !ok {
			continue
		}
		ref := "#/definitions/" + name
		typ, err := t.TransformSchema(r, map[string]any{"$ref": ref})
		if err != nil {
			return openapi.Module{}, err
		}
		switch {
		case typ.Kind == openapi.KindDef && typ.Def != nil:
			mod.Defs = append(mod.Defs, typ.Def)
		case typ.Kind == openapi.KindEnum && typ.Enum != nil:
			mod.Enums = append(mod.Enums, typ.Enum)
		case typ.Kind == openapi.KindList && typ.Name != "":
			mod.Lists = append(mod.Lists, typ)
		}
	}

	mod.SourcePath = r.Path()
	qualifyCrossFileRefs(&mod)

	if len(mod.Ops) > 0 {
		mod.Imports = append(mod.Imports, "fmt", "strings")
	}
	if len(mod.Ops) > 0 || len(mod.Lists) > 0 {
		mod.Imports = append(mod.Imports, "github.com/llamazure/azrest-go/azrest")
	}
	return mod, nil
}

// qualifyCrossFileRefs walks every definition reachable from mod's own
// defs, list aliases and operations; a definition declared in a
// different spec file than mod.SourcePath is given a package alias
// (stable for the rest of this module) and a matching entry in
// mod.AliasedImports, so the emitted field/parameter type references
// it by its own generated package instead of silently assuming it was
// declared locally.
func qualifyCrossFileRefs(mod *openapi.Module) {
	aliasBySrc := map[string]string{}
	mod.AliasedImports = map[string]string{}

	assign := func(def *openapi.IRDef) {
		if def == nil || def.Src == "" || def.Src == mod.SourcePath || def.ImportAlias != "" {
			return
		}
		alias, ok := aliasBySrc[def.Src]
		if !ok {
			alias = fmt.Sprintf("ext%d", len(aliasBySrc))
			aliasBySrc[def.Src] = alias
			mod.AliasedImports[alias] = generatedImportPath(def.Src)
		}
		def.ImportAlias = alias
	}

	visited := map[*openapi.IRDef]bool{}
	var walk func(t openapi.IRType)
	walk = func(t openapi.IRType) {
		switch t.Kind {
		case openapi.KindDef:
			assign(t.Def)
			if t.Def != nil && !visited[t.Def] {
				visited[t.Def] = true
				for _, p := range t.Def.Properties {
					walk(p.Type)
				}
			}
		case openapi.KindList:
			if t.List != nil {
				walk(t.List.Item)
			}
		case openapi.KindDict:
			if t.Dict != nil {
				walk(t.Dict.Value)
			}
		case openapi.KindUnion:
			if t.Union != nil {
				for _, c := range t.Union.Candidates {
					walk(c)
				}
			}
		}
	}

	for _, def := range mod.Defs {
		for _, p := range def.Properties {
			walk(p.Type)
		}
	}
	for _, list := range mod.Lists {
		walk(list)
	}
	for _, op := range mod.Ops {
		for _, p := range op.Params {
			walk(p.Type)
		}
		walk(op.Return)
	}

	if len(mod.AliasedImports) == 0 {
		mod.AliasedImports = nil
	}
}

// generatedImportPath maps a spec file's own source path (a Reader's
// canonical file:// path) to the Go import path of the package its
// definitions are generated into, so a cross-file reference imports
// that package rather than redeclaring the definition locally.
func generatedImportPath(specSrc string) string {
	plain := strings.TrimPrefix(specSrc, "file://")
	return generatedImportBase + "/" + filepath.ToSlash(modulePath(rootDir, plain))
}

// generatedImportBase is the module path generated packages are rooted
// under, matching --out's default of ./generated relative to the
// module root.
const generatedImportBase = "github.com/llamazure/azrest-go/generated"

// modulePath implements the path→module mapping: a "common-types" spec
// lands under a flat c/ tree; everything else is assumed to be a
// resource provider spec laid out as
// .../<category>/<providerNs>/<provider>/<schema>/<version>/<file>.json
// and maps to <category>/<providerNs>/<provider>/<schema>.
func modulePath(root, specFile string) string {
	rel, err := filepath.Rel(root, specFile)
	if err != nil {
		rel = specFile
	}
	segs := strings.Split(filepath.ToSlash(rel), "/")

	for i, s := range segs {
		if s == "common-types" {
			rest := segs[i+1:]
			if len(rest) > 0 {
				rest = rest[:len(rest)-1] // drop the trailing spec file name
			}
			return filepath.Join("c", filepath.Join(rest...))
		}
	}

	// Trim the trailing "<version>/<file>.json" pair if present, and the
	// leading "specification/" root segment Azure REST specs commonly
	// use, to land on <category>/<providerNs>/<provider>/<schema>.
	if len(segs) > 0 && segs[0] == "specification" {
		segs = segs[1:]
	}
	if len(segs) >= 2 {
		segs = segs[:len(segs)-2] // drop the version directory and file name
	}
	return filepath.Join(segs...)
}

func modulePackageName(specFile string) string {
	base := filepath.Base(specFile)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ToLower(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, base))
	if base == "" {
		return pkgName
	}
	return base
}

func writeGenerated(path string, src []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("azrestgen: creating output dir: %w", err)
	}
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return fmt.Errorf("azrestgen: writing %s: %w", path, err)
	}
	return nil
}

