// Package snippets resolves OpenAPI schemas into example request bodies.
//
// This file defines the closed set of schema kinds the generator understands
// (references, objects, arrays and scalars) and the resolver that expands a
// schema's properties into a placeholder payload for documentation. Nested
// $ref pointers are followed, and a reference that recurs along the current
// path is replaced by the "string" sentinel so that self-referential and
// mutually-referential schemas always terminate.
package snippets

import (
	"log"

	"gopkg.in/yaml.v3"
)

// recursionSentinel replaces a reference already expanded on the current path.
const recursionSentinel = "string"

// Schema is one of *RefSchema, *ObjectSchema, *ArraySchema or *ScalarSchema.
type Schema interface {
	schemaKind() string
}

// RefSchema points to a named component schema.
type RefSchema struct {
	Name string // e.g. "BTMFeature-134"
}

// ObjectSchema is an object with optional inline properties, example or allOf.
type ObjectSchema struct {
	Properties []Property // Declaration order
	Example    interface{}
	HasExample bool
	AllOf      []Schema
	Required   []string
}

// ArraySchema is an array of Items.
type ArraySchema struct {
	Items Schema // nil when the document omits items
}

// ScalarSchema is a leaf value such as string, number, integer or boolean.
type ScalarSchema struct {
	Type   string
	Format string
}

// Property is one named entry of an object's properties.
type Property struct {
	Name   string
	Schema Schema
}

func (*RefSchema) schemaKind() string    { return "reference" }
func (*ObjectSchema) schemaKind() string { return "object" }
func (*ArraySchema) schemaKind() string  { return "array" }
func (*ScalarSchema) schemaKind() string { return "scalar" }

// baseRef returns the reference an object derives from via allOf[0], if any.
func (s *ObjectSchema) baseRef() *RefSchema {
	if len(s.AllOf) == 0 {
		return nil
	}
	ref, _ := s.AllOf[0].(*RefSchema)
	return ref
}

// parseSchema converts a schema node into the closed schema variant.
// Nodes without a type and without structure decode as an empty object.
func parseSchema(n *yaml.Node) Schema {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}

	if ref := scalarString(mappingValue(n, "$ref")); ref != "" {
		return &RefSchema{Name: refName(ref)}
	}

	typ := schemaType(n)
	items := mappingValue(n, "items")
	if typ == "array" || (typ == "" && items != nil) {
		return &ArraySchema{Items: parseSchema(items)}
	}

	if typ != "" && typ != "object" {
		return &ScalarSchema{Type: typ, Format: scalarString(mappingValue(n, "format"))}
	}

	obj := &ObjectSchema{}
	for _, pair := range mappingPairs(mappingValue(n, "properties")) {
		obj.Properties = append(obj.Properties, Property{Name: pair.key, Schema: parseSchema(pair.value)})
	}
	if example := mappingValue(n, "example"); example != nil {
		var v interface{}
		if err := example.Decode(&v); err == nil {
			obj.Example = v
			obj.HasExample = true
		}
	}
	if allOf := mappingValue(n, "allOf"); allOf != nil && allOf.Kind == yaml.SequenceNode {
		for _, item := range allOf.Content {
			if s := parseSchema(item); s != nil {
				obj.AllOf = append(obj.AllOf, s)
			}
		}
	}
	if required := mappingValue(n, "required"); required != nil {
		for _, r := range required.Content {
			obj.Required = append(obj.Required, scalarString(r))
		}
	}
	return obj
}

// schemaType returns the declared type of a schema node.
// OpenAPI 3.1 type lists resolve to their first non-null entry.
func schemaType(n *yaml.Node) string {
	t := mappingValue(n, "type")
	if t == nil {
		return ""
	}
	if t.Kind == yaml.SequenceNode {
		for _, item := range t.Content {
			if v := scalarString(item); v != "" && v != "null" {
				return v
			}
		}
		return ""
	}
	return scalarString(t)
}

// typeName returns the placeholder used for a schema that is not expanded.
func typeName(s Schema) string {
	switch v := s.(type) {
	case *RefSchema:
		return "object"
	case *ObjectSchema:
		return "object"
	case *ArraySchema:
		return "array"
	case *ScalarSchema:
		if v.Type == "" {
			return "string"
		}
		return v.Type
	default:
		return "string"
	}
}

// VisitedSet holds the schema names expanded on the current resolution path.
// It is copied on every expansion, so siblings never see each other's names.
type VisitedSet map[string]struct{}

// NewVisitedSet creates a set containing names.
func NewVisitedSet(names ...string) VisitedSet {
	v := make(VisitedSet, len(names))
	for _, name := range names {
		v[name] = struct{}{}
	}
	return v
}

// Has reports whether name was expanded by an ancestor.
func (v VisitedSet) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// With returns a copy of the set with name added.
func (v VisitedSet) With(name string) VisitedSet {
	next := make(VisitedSet, len(v)+1)
	for k := range v {
		next[k] = struct{}{}
	}
	next[name] = struct{}{}
	return next
}

// ResolveProperties expands an object's properties into an example mapping.
// The input is never modified; the result is a fresh tree.
func ResolveProperties(doc *Document, props []Property, visited VisitedSet) map[string]interface{} {
	if visited == nil {
		visited = NewVisitedSet()
	}
	out := make(map[string]interface{}, len(props))
	for _, prop := range props {
		out[prop.Name] = resolveValue(doc, prop.Schema, visited)
	}
	return out
}

// resolveValue produces the example value of a single property schema.
func resolveValue(doc *Document, schema Schema, visited VisitedSet) interface{} {
	switch s := schema.(type) {
	case *RefSchema:
		return expandReference(doc, s.Name, visited)
	case *ArraySchema:
		if s.Items == nil {
			return []interface{}{}
		}
		if ref, ok := s.Items.(*RefSchema); ok {
			return []interface{}{expandReference(doc, ref.Name, visited)}
		}
		return []interface{}{typeName(s.Items)}
	case *ObjectSchema:
		if s.HasExample {
			return copyValue(s.Example)
		}
		if len(s.Properties) > 0 {
			return ResolveProperties(doc, s.Properties, visited)
		}
		if ref := s.baseRef(); ref != nil {
			return expandReference(doc, ref.Name, visited)
		}
		return map[string]interface{}{}
	case *ScalarSchema:
		return typeName(s)
	default:
		return map[string]interface{}{}
	}
}

// expandReference expands the component called name unless an ancestor already did.
func expandReference(doc *Document, name string, visited VisitedSet) interface{} {
	if visited.Has(name) {
		if SchemaDebug {
			log.Printf("DEBUG: %s already expanded on this path, using sentinel", name)
		}
		return recursionSentinel
	}
	visited = visited.With(name)

	target, ok := doc.Schema(name)
	if !ok {
		if SchemaDebug {
			log.Printf("DEBUG: schema '%s' not found in components", name)
		}
		return map[string]interface{}{}
	}
	return expandComponent(doc, target, visited)
}

// expandComponent expands a component schema reached through a reference.
// Components without properties fall back to their base type.
func expandComponent(doc *Document, target Schema, visited VisitedSet) interface{} {
	switch t := target.(type) {
	case *ObjectSchema:
		if len(t.Properties) > 0 {
			return ResolveProperties(doc, t.Properties, visited)
		}
		if ref := t.baseRef(); ref != nil {
			return expandReference(doc, ref.Name, visited)
		}
		return map[string]interface{}{}
	case *ArraySchema:
		return []interface{}{}
	case *ScalarSchema:
		return typeName(t)
	case *RefSchema:
		return expandReference(doc, t.Name, visited)
	default:
		return map[string]interface{}{}
	}
}

// ResolveRequestBody builds the example payload of a request body schema.
// A reference to a component with properties, or to a component whose allOf[0]
// is itself a reference, is expanded with both names marked visited. It returns
// false when the body is not an object the resolver can describe.
func ResolveRequestBody(doc *Document, schema Schema) (interface{}, bool) {
	switch s := schema.(type) {
	case *RefSchema:
		target, ok := doc.Schema(s.Name)
		if !ok {
			if SchemaDebug {
				log.Printf("DEBUG: request body schema '%s' not found", s.Name)
			}
			return nil, false
		}
		visited := NewVisitedSet(s.Name)
		obj, isObject := target.(*ObjectSchema)
		if !isObject {
			return expandComponent(doc, target, visited), true
		}
		if len(obj.Properties) > 0 {
			return ResolveProperties(doc, obj.Properties, visited), true
		}
		if base := obj.baseRef(); base != nil {
			visited = visited.With(base.Name)
			inner, ok := doc.Schema(base.Name)
			if !ok {
				return map[string]interface{}{}, true
			}
			if innerObj, ok := inner.(*ObjectSchema); ok {
				return ResolveProperties(doc, innerObj.Properties, visited), true
			}
			return expandComponent(doc, inner, visited), true
		}
		return map[string]interface{}{}, true
	case *ObjectSchema:
		if s.HasExample {
			return copyValue(s.Example), true
		}
		if len(s.Properties) > 0 {
			return ResolveProperties(doc, s.Properties, NewVisitedSet()), true
		}
		return nil, false
	default:
		return nil, false
	}
}

// copyValue deep-copies a decoded example so the document stays immutable.
func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = copyValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return t
	}
}
