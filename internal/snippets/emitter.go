// Package snippets emits one documented Python function per API operation.
//
// This file turns a single (path, method) entry of the OpenAPI document into
// a Snippet: a documentation header (title, signature, docstring with the
// parameter list and request body template) followed by the callable body
// (URL construction, query and header assembly, request dispatch and
// response parsing). Emission is a pure function of the document; it never
// performs network calls.
package snippets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"text/template"
)

// Snippet is the generated documentation and code for one operation.
type Snippet struct {
	OperationID string
	Method      string // Upper case, e.g. "POST"
	Path        string
	Tag         string

	FuncName   string
	Args       []string // Rendered arguments, e.g. "limit=20"
	Summary    string
	DocsURL    string
	ParamDocs  []string // One line per documented parameter
	PayloadDoc []string // Lines describing the payload argument
	Body       []string // Function body lines, unindented
}

// Header renders the title, signature and docstring.
func (s *Snippet) Header() string {
	return s.render("header")
}

// Code renders the function body.
func (s *Snippet) Code() string {
	return s.render("body")
}

// String renders the complete snippet, header first.
func (s *Snippet) String() string {
	return s.render("snippet")
}

func (s *Snippet) render(name string) string {
	var buf bytes.Buffer
	if err := snippetTemplate.ExecuteTemplate(&buf, name, s); err != nil {
		// Templates are static and only read exported string fields
		panic(fmt.Sprintf("snippet template %s: %v", name, err))
	}
	return buf.String()
}

var snippetTemplate = template.Must(template.New("layout").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(strings.ReplaceAll(snippetLayout, "'", "`")))

// snippetLayout uses ' for backticks so the layout can live in a raw string.
const snippetLayout = `{{define "header"}}#@title '{{.OperationID}}' (type '{{.Method}}')
def {{.FuncName}}({{join .Args ", "}}):
    """
    API call type: '{{.Method}}'
{{- if .Summary}}
    {{.Summary}}
{{- end}}
    More details can be found in {{.DocsURL}}

    - 'client' (Required): the Onshape client configured with your API keys
    - 'url' (Required): the url of the Onshape document you would like to make this API call to
{{- range .ParamDocs}}
    {{.}}
{{- end}}
{{- range .PayloadDoc}}
{{if .}}    {{.}}{{end}}
{{- end}}
    - 'show_response': boolean: do you want to print out the response of this API call (default: False)
    """{{end}}
{{- define "body"}}
{{- range .Body}}
{{if .}}    {{.}}{{end}}
{{- end}}
{{end}}
{{- define "snippet"}}{{template "header" .}}{{template "body" .}}{{end}}`

// Emitter builds snippets for a particular API host.
type Emitter struct {
	APIPrefix   string // Prepended to every path, e.g. "/api"
	ExplorerURL string // Link template; {tag} and {operationId} are substituted
}

// DefaultEmitter targets the Onshape REST API.
var DefaultEmitter = &Emitter{
	APIPrefix:   "/api",
	ExplorerURL: "https://cad.onshape.com/glassworks/explorer/#/{tag}/{operationId}",
}

// Emit builds the snippet for path and method with DefaultEmitter.
func Emit(doc *Document, path, method string) (*Snippet, error) {
	return DefaultEmitter.Emit(doc, path, method)
}

// Emit builds the snippet for one operation.
// Returns an error wrapping ErrOperationNotFound or ErrMalformedOperation.
func (e *Emitter) Emit(doc *Document, path, method string) (*Snippet, error) {
	op, err := doc.Operation(path, method)
	if err != nil {
		return nil, err
	}
	if op.malformed != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(op.Method), op.Path, op.malformed)
	}
	if op.OperationID == "" {
		return nil, fmt.Errorf("%w: %s %s has no operationId", ErrMalformedOperation, strings.ToUpper(op.Method), op.Path)
	}

	s := &Snippet{
		OperationID: op.OperationID,
		Method:      strings.ToUpper(op.Method),
		Path:        op.Path,
		Tag:         op.Tag(),
		FuncName:    pyFuncName(op.OperationID),
		Summary:     docText(op.Summary),
		DocsURL:     e.docsURL(op),
	}

	b := &snippetBuilder{op: op, namer: newArgNamer(), args: make(map[*Parameter]string)}
	b.line("method = %s", strconv.Quote(s.Method))
	b.line("element = OnshapeElement(url)")
	b.line("fixed_url = %s", strconv.Quote(e.APIPrefix+op.Path))
	b.pathParameters()
	b.queryParameters()
	b.payload(doc)
	b.headers()
	b.line("response = client.api_client.request(method, url=element.base_url + fixed_url, query_params=params, headers=headers, body=payload)")
	b.line("parsed = json.loads(response.data)")
	b.line("if show_response:")
	b.line("    print(json.dumps(parsed, indent=4, sort_keys=True))")
	b.line("return parsed")

	s.Args = b.signature()
	s.ParamDocs = b.paramDocs
	s.PayloadDoc = b.payloadDoc
	s.Body = b.body

	if EmitDebug {
		log.Printf("DEBUG: emitted %s (%s %s) with %d argument(s)", s.OperationID, s.Method, s.Path, len(s.Args))
	}
	return s, nil
}

func (e *Emitter) docsURL(op *Operation) string {
	r := strings.NewReplacer("{tag}", op.Tag(), "{operationId}", op.OperationID)
	return r.Replace(e.ExplorerURL)
}

// URLHelper returns the companion helper that fills a path template from a
// pasted document URL using the same rules as the emitted snippets.
func (e *Emitter) URLHelper() string {
	var b strings.Builder
	b.WriteString("#@title Import and run these helper functions for future use\n")
	b.WriteString("def clean_url(url: str, fixed_url: str) -> str:\n")
	b.WriteString("    element = OnshapeElement(url)\n")
	b.WriteString("    base = element.base_url\n")
	for _, group := range documentURLParameters {
		keyword := "if"
		for _, name := range group.names {
			placeholder := strconv.Quote("{" + name + "}")
			fmt.Fprintf(&b, "    %s %s in fixed_url:\n", keyword, placeholder)
			fmt.Fprintf(&b, "        fixed_url = fixed_url.replace(%s, element.%s)\n", placeholder, group.field)
			keyword = "elif"
		}
	}
	fmt.Fprintf(&b, "    return base + %s + fixed_url\n", strconv.Quote(e.APIPrefix))
	return b.String()
}

// documentURLParameters are path parameters filled from the parsed document URL.
var documentURLParameters = []struct {
	field string
	names []string
}{
	{field: "did", names: []string{"did"}},
	{field: "wvm", names: []string{"wvm", "wv", "wm"}},
	{field: "wvmid", names: []string{"wvmid", "wvid", "wmid", "wid"}},
	{field: "eid", names: []string{"eid"}},
}

// documentURLField returns the OnshapeElement attribute for a path parameter.
func documentURLField(name string) (string, bool) {
	for _, group := range documentURLParameters {
		for _, n := range group.names {
			if n == name {
				return group.field, true
			}
		}
	}
	return "", false
}

type pyArg struct {
	name       string
	def        string
	hasDefault bool
}

// snippetBuilder accumulates the slots of one snippet.
type snippetBuilder struct {
	op    *Operation
	namer *argNamer
	args  map[*Parameter]string

	required   []pyArg // Arguments without default, in declaration order
	optional   []pyArg // Arguments with default, in declaration order
	payloadArg *pyArg

	paramDocs  []string
	payloadDoc []string
	body       []string
}

func (b *snippetBuilder) line(format string, args ...interface{}) {
	b.body = append(b.body, fmt.Sprintf(format, args...))
}

func (b *snippetBuilder) pathParameters() {
	for _, p := range b.op.PathParameters() {
		placeholder := strconv.Quote("{" + p.Name + "}")
		if field, ok := documentURLField(p.Name); ok {
			b.line("fixed_url = fixed_url.replace(%s, element.%s)", placeholder, field)
			continue
		}
		arg := b.namer.name(p.Name)
		b.required = append(b.required, pyArg{name: arg})
		b.line("fixed_url = fixed_url.replace(%s, str(%s))", placeholder, arg)
		doc := fmt.Sprintf("- `%s` (Required)", arg)
		if p.Description != "" {
			doc += ": " + docText(p.Description)
		}
		b.paramDocs = append(b.paramDocs, doc)
	}
}

// queryParameters documents every non-path parameter and assembles params.
// Booleans are always sent; other values only when truthy.
func (b *snippetBuilder) queryParameters() {
	b.line("params = {}")
	for _, p := range b.op.Parameters {
		if p.In == "path" {
			continue
		}
		arg := b.namer.name(p.Name)
		b.args[p] = arg
		b.paramDocs = append(b.paramDocs, parameterDoc(arg, p))

		switch {
		case p.HasDefault:
			b.optional = append(b.optional, pyArg{name: arg, def: pyLiteral(p.Default), hasDefault: true})
		case p.Required:
			b.required = append(b.required, pyArg{name: arg})
		case p.Type == "boolean":
			b.optional = append(b.optional, pyArg{name: arg, def: "False", hasDefault: true})
		default:
			b.optional = append(b.optional, pyArg{name: arg, def: "None", hasDefault: true})
		}

		if p.In != "query" {
			// Header parameters are added once headers exists; cookies are documentation only
			continue
		}
		key := strconv.Quote(p.Name)
		if p.Type == "boolean" {
			b.line("params[%s] = %s", key, arg)
		} else {
			b.line("if %s:", arg)
			b.line("    params[%s] = %s", key, arg)
		}
	}
}

func parameterDoc(arg string, p *Parameter) string {
	required := "Optional"
	if p.Required {
		required = "Required"
	}
	location := ""
	if p.In != "query" {
		location = ", " + p.In
		if arg != p.Name {
			location += " `" + p.Name + "`"
		}
	}
	doc := fmt.Sprintf("- `%s`: %s (%s%s)", arg, p.Type, required, location)
	if p.Description != "" {
		doc += ": " + docText(p.Description)
	}
	if p.HasDefault {
		doc += " (default: " + docText(pyDisplay(p.Default)) + ")"
	}
	return doc
}

// bodyMethods are the methods whose request body is documented and sent.
var bodyMethods = map[string]bool{"post": true, "put": true, "patch": true}

func (b *snippetBuilder) payload(doc *Document) {
	rb := b.op.RequestBody
	if rb == nil || !bodyMethods[b.op.Method] {
		b.payloadArg = &pyArg{name: "payload", def: "{}", hasDefault: true}
		b.payloadDoc = []string{"- `payload={}`: no payload body is accepted for this API call"}
		return
	}

	required := "Optional"
	b.payloadArg = &pyArg{name: "payload", def: "{}", hasDefault: true}
	if rb.Required {
		required = "Required"
		b.payloadArg = &pyArg{name: "payload"}
	}
	b.payloadDoc = append(b.payloadDoc, fmt.Sprintf(
		"- `payload` (%s): a dictionary of the payload body of this API call; a template of the body is shown below:", required))
	if rb.Description != "" {
		b.payloadDoc = append(b.payloadDoc, "    Description: "+docText(rb.Description))
	}

	example, ok := ResolveRequestBody(doc, rb.Schema)
	if !ok {
		b.payloadDoc = append(b.payloadDoc, "    The request body for this API endpoint is a "+typeName(rb.Schema))
		return
	}
	block, err := formatExample(example)
	if err != nil {
		log.Printf("Warning: failed to format request body of %s: %v", b.op.OperationID, err)
		b.payloadDoc = append(b.payloadDoc, "    The request body for this API endpoint is a "+typeName(rb.Schema))
		return
	}
	b.payloadDoc = append(b.payloadDoc, "")
	for _, l := range strings.Split(block, "\n") {
		b.payloadDoc = append(b.payloadDoc, "    "+l)
	}
}

// formatExample serializes an example like json.dumps(indent=4, sort_keys=True).
func formatExample(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	text := strings.TrimRight(buf.String(), "\n")
	text = strings.ReplaceAll(text, `\`, `\\`)
	return strings.ReplaceAll(text, `"""`, `\"\"\"`), nil
}

// headers picks the Accept header from the default response, then 200.
// Without declared content the header map stays empty.
func (b *snippetBuilder) headers() {
	if contentType, ok := responseContentType(b.op); ok {
		b.line(`headers = {"Accept": %s, "Content-Type": "application/json"}`, strconv.Quote(contentType))
	} else {
		b.line("headers = {}")
	}

	for _, p := range b.op.Parameters {
		if p.In != "header" {
			continue
		}
		arg := b.args[p]
		b.line("if %s:", arg)
		b.line("    headers[%s] = %s", strconv.Quote(p.Name), arg)
	}
}

func responseContentType(op *Operation) (string, bool) {
	for _, status := range []string{"default", "200"} {
		resp := op.Response(status)
		if resp != nil && len(resp.ContentTypes) > 0 {
			return resp.ContentTypes[0], true
		}
	}
	return "", false
}

// signature orders arguments so every defaulted argument follows the
// non-defaulted ones, as Python requires.
func (b *snippetBuilder) signature() []string {
	args := []string{"client", "url"}
	for _, a := range b.required {
		args = append(args, a.name)
	}
	if b.payloadArg != nil && !b.payloadArg.hasDefault {
		args = append(args, b.payloadArg.name)
	}
	for _, a := range b.optional {
		args = append(args, a.name+"="+a.def)
	}
	if b.payloadArg != nil && b.payloadArg.hasDefault {
		args = append(args, b.payloadArg.name+"="+b.payloadArg.def)
	}
	return append(args, "show_response=False")
}
