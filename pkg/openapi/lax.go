package openapi

import (
	"fmt"
	"maps"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// deferredRefKey carries a $ref through the converter without it being resolved.
const deferredRefKey = "x-openapi-parser-deferred-ref"

var (
	serverVariablePattern = regexp.MustCompile(`\{([^{}]+)\}`)

	// Swagger 2.0 local reference roots and where they live in OpenAPI 3.0.
	v3RefPrefixes = map[string]string{
		"#/definitions/": "#/components/schemas/",
		"#/parameters/":  "#/components/parameters/",
		"#/responses/":   "#/components/responses/",
	}
)

type nodeID struct {
	kind reflect.Kind
	ptr  uintptr
	len  int
}

func identify(value any) (nodeID, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return nodeID{}, false
		}
		return nodeID{kind: reflect.Map, ptr: rv.Pointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return nodeID{}, false
		}
		return nodeID{kind: reflect.Slice, ptr: rv.Pointer(), len: rv.Len()}, true
	default:
		return nodeID{}, false
	}
}

// checkGraph rejects cyclic documents, and documents that reuse a node in several
// places unless allowShared is set.
func checkGraph(doc any, allowShared bool) error {
	onPath := map[nodeID]bool{}
	seen := map[nodeID]bool{}

	var walk func(value any, path string) error
	walk = func(value any, path string) error {
		id, ok := identify(value)
		if !ok {
			return nil
		}
		if onPath[id] {
			return fmt.Errorf("%w at %s", ErrDocumentCycle, path)
		}
		if seen[id] {
			if allowShared {
				return nil
			}
			return fmt.Errorf("%w at %s", ErrSharedNode, path)
		}
		seen[id] = true
		onPath[id] = true
		defer delete(onPath, id)

		switch v := value.(type) {
		case map[string]any:
			for _, key := range lo.Keys(v) {
				if err := walk(v[key], path+"/"+escapePointerToken(key)); err != nil {
					return err
				}
			}
		case []any:
			for i, item := range v {
				if err := walk(item, path+"/"+strconv.Itoa(i)); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(doc, "#")
}

// walkMaps calls fn on every mapping in value, parents before children. fn returns
// false to skip the children of a mapping.
func walkMaps(value any, fn func(m map[string]any) bool) {
	visited := map[nodeID]bool{}
	var walk func(value any)
	walk = func(value any) {
		if id, ok := identify(value); ok {
			if visited[id] {
				return
			}
			visited[id] = true
		}
		switch v := value.(type) {
		case map[string]any:
			if !fn(v) {
				return
			}
			for _, item := range v {
				walk(item)
			}
		case []any:
			for _, item := range v {
				walk(item)
			}
		}
	}
	walk(value)
}

// patchLaxDefaults repairs a Swagger 2.0 document that omits containers or carries
// empty defaults that contradict the declared type.
func patchLaxDefaults(doc map[string]any) {
	if _, ok := doc["paths"].(map[string]any); !ok {
		doc["paths"] = map[string]any{}
	}
	// Unquoted YAML versions decode as numbers.
	if v, ok := doc["swagger"]; ok && v != nil {
		if _, isString := v.(string); !isString {
			doc["swagger"] = versionString(v)
		}
	}
	if info, ok := doc["info"].(map[string]any); ok {
		if v, ok := info["version"]; ok && v != nil {
			if _, isString := v.(string); !isString {
				info["version"] = fmt.Sprint(v)
			}
		}
	}
	walkMaps(doc, func(m map[string]any) bool {
		def, ok := m["default"]
		if !ok {
			return true
		}
		typ, _ := m["type"].(string)
		if typ == "" || typ == "string" {
			return true
		}
		if def == nil || def == "" {
			delete(m, "default")
		}
		return true
	})
}

func patchLaxDefaultsV3(doc map[string]any) {
	if _, ok := doc["paths"].(map[string]any); !ok {
		doc["paths"] = map[string]any{}
	}
}

// patchLaxURLs moves a scheme or path written into host to schemes and basePath,
// and normalizes basePath so the converter does not reject or double-encode it.
func patchLaxURLs(doc map[string]any) {
	host, hasHost := doc["host"].(string)
	basePath, _ := doc["basePath"].(string)

	if hasHost {
		host = strings.TrimSpace(host)
		if scheme, rest, found := strings.Cut(host, "://"); found {
			host = rest
			if schemes, _ := doc["schemes"].([]any); len(schemes) == 0 && scheme != "" {
				doc["schemes"] = []any{strings.ToLower(scheme)}
			}
		}
		if i := strings.Index(host, "/"); i >= 0 {
			prefix := strings.TrimRight(host[i:], "/")
			host = host[:i]
			if prefix != "" {
				basePath = prefix + "/" + strings.TrimLeft(basePath, "/")
			}
		}
		if host == "" {
			delete(doc, "host")
		} else {
			doc["host"] = host
		}
	}

	if schemes, ok := doc["schemes"].([]any); ok {
		doc["schemes"] = lo.Map(schemes, func(s any, _ int) any {
			if str, ok := s.(string); ok {
				return strings.ToLower(strings.TrimSuffix(str, "://"))
			}
			return s
		})
	}

	if basePath == "" {
		return
	}
	basePath = unescapeBasePath(basePath)
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if len(basePath) > 1 {
		basePath = strings.TrimRight(basePath, "/")
	}
	doc["basePath"] = basePath
}

var escapedSlashPattern = regexp.MustCompile(`(?i)%2F`)

// unescapeBasePath decodes percent-encoded characters except %2F, which would
// otherwise turn into a segment separator. Undecodable input is returned as is.
func unescapeBasePath(basePath string) string {
	parts := escapedSlashPattern.Split(basePath, -1)
	for i, part := range parts {
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return basePath
		}
		parts[i] = decoded
	}
	return strings.Join(parts, "%2F")
}

// patchLaxServerURLs undoes the escaping of {var} templates in server URLs and
// declares every template variable so the server object stays valid.
func patchLaxServerURLs(doc map[string]any) {
	servers, _ := doc["servers"].([]any)
	for _, item := range servers {
		server, ok := item.(map[string]any)
		if !ok {
			continue
		}
		u, _ := server["url"].(string)
		u = strings.NewReplacer("%7B", "{", "%7b", "{", "%7D", "}", "%7d", "}", "%252F", "%2F", "%252f", "%2F").Replace(u)
		server["url"] = u

		matches := serverVariablePattern.FindAllStringSubmatch(u, -1)
		if len(matches) == 0 {
			continue
		}
		variables, _ := server["variables"].(map[string]any)
		if variables == nil {
			variables = map[string]any{}
		}
		for _, match := range matches {
			if _, ok := variables[match[1]]; !ok {
				variables[match[1]] = map[string]any{"default": match[1]}
			}
		}
		server["variables"] = variables
	}
}

// deferRefs hides the $refs the converter must not resolve: external ones when
// external is set, and local ones that point nowhere when dangling is set. It
// returns the number of references hidden and a function that puts the hidden
// nodes of doc back the way they were.
func deferRefs(doc map[string]any, external, dangling bool) (int, func()) {
	var hidden []map[string]any
	var originals []map[string]any
	walkMaps(doc, func(m map[string]any) bool {
		ref, ok := m["$ref"].(string)
		if !ok {
			return true
		}
		switch {
		case external && isExternalRef(ref):
		case dangling && strings.HasPrefix(ref, "#/") && !pointerExists(doc, ref):
			ref = toV3Ref(ref)
		default:
			return true
		}
		hidden = append(hidden, m)
		originals = append(originals, maps.Clone(m))
		clear(m)
		m[deferredRefKey] = ref
		return false
	})
	undo := func() {
		for i, m := range hidden {
			clear(m)
			maps.Copy(m, originals[i])
		}
	}
	return len(hidden), undo
}

// restoreDeferredRefs turns every node carrying a deferred reference back into a
// plain $ref.
func restoreDeferredRefs(doc map[string]any) {
	walkMaps(doc, func(m map[string]any) bool {
		ref, ok := m[deferredRefKey].(string)
		if !ok {
			return true
		}
		clear(m)
		m["$ref"] = ref
		return false
	})
}

func isExternalRef(ref string) bool {
	return ref != "" && !strings.HasPrefix(ref, "#")
}

func toV3Ref(ref string) string {
	for v2, v3 := range v3RefPrefixes {
		if strings.HasPrefix(ref, v2) {
			return v3 + strings.TrimPrefix(ref, v2)
		}
	}
	return ref
}

// pointerExists reports whether the local JSON pointer ref resolves inside doc.
func pointerExists(doc any, ref string) bool {
	fragment := strings.TrimPrefix(ref, "#")
	if unescaped, err := url.PathUnescape(fragment); err == nil {
		fragment = unescaped
	}
	if fragment == "" || fragment == "/" {
		return true
	}
	current := doc
	for _, token := range strings.Split(strings.TrimPrefix(fragment, "/"), "/") {
		token = unescapePointerToken(token)
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[token]
			if !ok {
				return false
			}
			current = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(v) {
				return false
			}
			current = v[i]
		default:
			return false
		}
	}
	return true
}

func escapePointerToken(token string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(token)
}

func unescapePointerToken(token string) string {
	return strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
}
