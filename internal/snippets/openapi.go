// Package snippets parses OpenAPI documents into an order-preserving model.
//
// This file decodes an OpenAPI 3.x document (JSON or YAML) into a Document:
// tags, operations in declaration order, component schemas as a closed set of
// schema kinds, and shared parameters. Declaration order matters because the
// generated notebook groups snippets the way the API document groups them,
// so decoding goes through yaml.Node instead of Go maps.
package snippets

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrOperationNotFound is returned when a (path, method) pair is not in the document
	ErrOperationNotFound = errors.New("operation not found")

	// ErrMalformedOperation is returned when an operation exists but cannot be emitted
	ErrMalformedOperation = errors.New("malformed operation")
)

// httpMethods lists the operation keys of an OpenAPI path item.
var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true,
	"options": true, "head": true, "patch": true, "trace": true,
}

// Document represents a parsed OpenAPI document.
// Immutable once parsed; callers share it freely between resolution calls.
type Document struct {
	OpenAPI    string
	Info       Info
	Tags       []Tag
	Operations []*Operation // Paths in document order, methods in declared order
	Schemas    map[string]Schema
	Parameters map[string]*Parameter

	index map[string]*Operation // Key: "method path"
}

// Info holds the document's info block.
type Info struct {
	Title       string
	Version     string
	Description string
}

// Tag is a named category of operations.
type Tag struct {
	Name        string
	Description string
}

// Operation represents one (path, method) entry.
type Operation struct {
	Path        string
	Method      string // Lower case, e.g. "post"
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Parameters  []*Parameter
	RequestBody *RequestBody
	Responses   []*Response // Declaration order

	malformed error
}

// Parameter represents an OpenAPI parameter after $ref resolution.
type Parameter struct {
	Name        string
	In          string // path, query, header, cookie
	Description string
	Required    bool
	Type        string
	Default     interface{}
	HasDefault  bool
}

// RequestBody represents an OpenAPI request body.
// Schema is the schema of the first declared content type.
type RequestBody struct {
	Description  string
	Required     bool
	ContentTypes []string
	Schema       Schema
}

// Response represents one entry of an operation's responses map.
type Response struct {
	Status       string
	Description  string
	ContentTypes []string
}

// Tag returns the primary tag of the operation, or "" when untagged.
func (op *Operation) Tag() string {
	if len(op.Tags) == 0 {
		return ""
	}
	return op.Tags[0]
}

// Err reports why the operation could not be decoded, if it could not.
func (op *Operation) Err() error {
	return op.malformed
}

// Response returns the response declared for a status code, or nil.
func (op *Operation) Response(status string) *Response {
	for _, resp := range op.Responses {
		if resp.Status == status {
			return resp
		}
	}
	return nil
}

// PathParameters returns the operation's path parameters in declaration order.
func (op *Operation) PathParameters() []*Parameter {
	var params []*Parameter
	for _, p := range op.Parameters {
		if p.In == "path" {
			params = append(params, p)
		}
	}
	return params
}

// Operation looks up an operation by path and method.
// Method matching is case-insensitive; surrounding whitespace is ignored.
func (d *Document) Operation(path, method string) (*Operation, error) {
	key := operationKey(method, path)
	op, ok := d.index[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrOperationNotFound, strings.ToUpper(strings.TrimSpace(method)), strings.TrimSpace(path))
	}
	return op, nil
}

// Schema returns a component schema by name.
func (d *Document) Schema(name string) (Schema, bool) {
	s, ok := d.Schemas[name]
	return s, ok
}

// TagDescription returns the description declared for a tag, or "".
func (d *Document) TagDescription(name string) string {
	for _, t := range d.Tags {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

func operationKey(method, path string) string {
	return strings.ToLower(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// ParseDocument decodes an OpenAPI document from JSON or YAML bytes.
// Individual operations that cannot be decoded are kept and marked malformed
// so that a single bad endpoint never fails the whole document.
func ParseDocument(data []byte) (*Document, error) {
	root, err := decodeDocumentNode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("failed to parse OpenAPI document: empty document")
	}
	top := resolveAlias(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse OpenAPI document: top level is not a mapping")
	}

	doc := &Document{
		OpenAPI:    scalarString(mappingValue(top, "openapi")),
		Schemas:    make(map[string]Schema),
		Parameters: make(map[string]*Parameter),
		index:      make(map[string]*Operation),
	}
	if doc.OpenAPI == "" {
		doc.OpenAPI = scalarString(mappingValue(top, "swagger"))
	}

	if info := mappingValue(top, "info"); info != nil {
		doc.Info = Info{
			Title:       scalarString(mappingValue(info, "title")),
			Version:     scalarString(mappingValue(info, "version")),
			Description: scalarString(mappingValue(info, "description")),
		}
	}

	if tags := mappingValue(top, "tags"); tags != nil && tags.Kind == yaml.SequenceNode {
		for _, t := range tags.Content {
			t = resolveAlias(t)
			name := scalarString(mappingValue(t, "name"))
			if name == "" {
				continue
			}
			doc.Tags = append(doc.Tags, Tag{
				Name:        name,
				Description: scalarString(mappingValue(t, "description")),
			})
		}
	}

	components := mappingValue(top, "components")
	if schemas := mappingValue(components, "schemas"); schemas != nil {
		for _, pair := range mappingPairs(schemas) {
			doc.Schemas[pair.key] = parseSchema(pair.value)
		}
	}
	if params := mappingValue(components, "parameters"); params != nil {
		for _, pair := range mappingPairs(params) {
			p, err := parseParameter(pair.value, nil)
			if err != nil {
				log.Printf("Warning: skipping shared parameter %s: %v", pair.key, err)
				continue
			}
			doc.Parameters[pair.key] = p
		}
	}

	p := &parser{doc: doc, components: components}
	if paths := mappingValue(top, "paths"); paths != nil {
		for _, pathPair := range mappingPairs(paths) {
			p.parsePathItem(pathPair.key, pathPair.value)
		}
	}

	return doc, nil
}

type parser struct {
	doc        *Document
	components *yaml.Node
}

// parsePathItem appends the operations of one path item in declared order.
func (p *parser) parsePathItem(path string, item *yaml.Node) {
	item = resolveAlias(item)
	if item == nil || item.Kind != yaml.MappingNode {
		log.Printf("Warning: path item %s is not a mapping, skipping", path)
		return
	}

	// Path-level parameters apply to every operation of the path
	var shared []*Parameter
	var sharedErr error
	if params := mappingValue(item, "parameters"); params != nil {
		shared, sharedErr = p.parseParameters(params)
	}

	for _, pair := range mappingPairs(item) {
		method := strings.ToLower(pair.key)
		if !httpMethods[method] {
			continue
		}
		op := p.parseOperation(path, method, pair.value, shared)
		if sharedErr != nil && op.malformed == nil {
			op.malformed = fmt.Errorf("%w: path parameters: %v", ErrMalformedOperation, sharedErr)
		}
		p.doc.Operations = append(p.doc.Operations, op)
		p.doc.index[operationKey(method, path)] = op
	}
}

func (p *parser) parseOperation(path, method string, n *yaml.Node, shared []*Parameter) *Operation {
	op := &Operation{Path: path, Method: method}
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		op.malformed = fmt.Errorf("%w: operation is not a mapping", ErrMalformedOperation)
		return op
	}

	op.OperationID = scalarString(mappingValue(n, "operationId"))
	op.Summary = scalarString(mappingValue(n, "summary"))
	op.Description = scalarString(mappingValue(n, "description"))
	if tags := mappingValue(n, "tags"); tags != nil {
		for _, t := range tags.Content {
			op.Tags = append(op.Tags, scalarString(t))
		}
	}

	own, err := p.parseParameters(mappingValue(n, "parameters"))
	if err != nil {
		op.malformed = fmt.Errorf("%w: %v", ErrMalformedOperation, err)
	}
	op.Parameters = mergeParameters(shared, own)

	if body := mappingValue(n, "requestBody"); body != nil {
		rb, err := p.parseRequestBody(body)
		if err != nil && op.malformed == nil {
			op.malformed = fmt.Errorf("%w: request body: %v", ErrMalformedOperation, err)
		}
		op.RequestBody = rb
	}

	for _, pair := range mappingPairs(mappingValue(n, "responses")) {
		resp := p.resolveComponentRef(pair.value, "responses")
		op.Responses = append(op.Responses, &Response{
			Status:       pair.key,
			Description:  scalarString(mappingValue(resp, "description")),
			ContentTypes: mappingKeys(mappingValue(resp, "content")),
		})
	}

	return op
}

// mergeParameters overlays operation parameters on path-level ones.
// An operation parameter replaces a path-level one with the same name and location.
func mergeParameters(shared, own []*Parameter) []*Parameter {
	merged := make([]*Parameter, 0, len(shared)+len(own))
	merged = append(merged, shared...)
	for _, param := range own {
		found := false
		for i, existing := range merged {
			if existing.Name == param.Name && existing.In == param.In {
				merged[i] = param
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, param)
		}
	}
	return merged
}

func (p *parser) parseParameters(n *yaml.Node) ([]*Parameter, error) {
	n = resolveAlias(n)
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("parameters is not a list")
	}
	params := make([]*Parameter, 0, len(n.Content))
	for _, item := range n.Content {
		param, err := parseParameter(item, p.doc.Parameters)
		if err != nil {
			return params, err
		}
		params = append(params, param)
	}
	return params, nil
}

// parseParameter decodes a parameter, resolving a $ref against shared parameters.
func parseParameter(n *yaml.Node, shared map[string]*Parameter) (*Parameter, error) {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameter is not a mapping")
	}
	if ref := scalarString(mappingValue(n, "$ref")); ref != "" {
		name := refName(ref)
		if param, ok := shared[name]; ok {
			return param, nil
		}
		return nil, fmt.Errorf("unresolved parameter reference %s", ref)
	}

	param := &Parameter{
		Name:        scalarString(mappingValue(n, "name")),
		In:          scalarString(mappingValue(n, "in")),
		Description: scalarString(mappingValue(n, "description")),
		Required:    scalarBool(mappingValue(n, "required")),
	}
	if param.Name == "" || param.In == "" {
		return nil, fmt.Errorf("parameter without name or location")
	}
	if param.In == "path" {
		param.Required = true
	}
	if schema := resolveAlias(mappingValue(n, "schema")); schema != nil {
		param.Type = schemaType(schema)
		if param.Type == "" && mappingValue(schema, "$ref") != nil {
			param.Type = "object"
		}
		if def := mappingValue(schema, "default"); def != nil {
			var v interface{}
			if err := def.Decode(&v); err == nil {
				param.Default = v
				param.HasDefault = true
			}
		}
	}
	if param.Type == "" {
		param.Type = "string"
	}
	return param, nil
}

func (p *parser) parseRequestBody(n *yaml.Node) (*RequestBody, error) {
	n = p.resolveComponentRef(n, "requestBodies")
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("request body is not a mapping")
	}
	rb := &RequestBody{
		Description: scalarString(mappingValue(n, "description")),
		Required:    scalarBool(mappingValue(n, "required")),
	}
	content := mappingPairs(mappingValue(n, "content"))
	for _, pair := range content {
		rb.ContentTypes = append(rb.ContentTypes, pair.key)
	}
	if len(content) > 0 {
		rb.Schema = parseSchema(mappingValue(content[0].value, "schema"))
	}
	return rb, nil
}

// resolveComponentRef follows a $ref into components/<section>, if n is one.
func (p *parser) resolveComponentRef(n *yaml.Node, section string) *yaml.Node {
	n = resolveAlias(n)
	ref := scalarString(mappingValue(n, "$ref"))
	if ref == "" {
		return n
	}
	target := mappingValue(mappingValue(p.components, section), refName(ref))
	if target == nil {
		log.Printf("Warning: unresolved reference %s", ref)
		return nil
	}
	return resolveAlias(target)
}

// refName returns the last segment of a JSON pointer such as
// "#/components/schemas/BTMFeature-134".
func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

type nodePair struct {
	key   string
	value *yaml.Node
}

// mappingPairs returns the key/value pairs of a mapping node in order.
func mappingPairs(n *yaml.Node) []nodePair {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	pairs := make([]nodePair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, nodePair{key: n.Content[i].Value, value: n.Content[i+1]})
	}
	return pairs
}

func mappingKeys(n *yaml.Node) []string {
	var keys []string
	for _, pair := range mappingPairs(n) {
		keys = append(keys, pair.key)
	}
	return keys
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalarString(n *yaml.Node) string {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return ""
	}
	return n.Value
}

func scalarBool(n *yaml.Node) bool {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.ScalarNode {
		return false
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return false
	}
	return b
}
