// Package snippets renders Python identifiers and literals for snippets.
//
// This file turns OpenAPI names and default values into text that is valid
// inside the generated Python functions: identifiers that avoid keywords and
// the snippet's own local names, literals for parameter defaults, and
// docstring-safe text.
package snippets

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var pythonKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true, "assert": true,
	"async": true, "await": true, "break": true, "class": true, "continue": true,
	"def": true, "del": true, "elif": true, "else": true, "except": true, "finally": true,
	"for": true, "from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true, "pass": true,
	"raise": true, "return": true, "try": true, "while": true, "with": true, "yield": true,
}

// snippetLocals are names the generated function body defines, receives or calls.
var snippetLocals = map[string]bool{
	"client": true, "url": true, "payload": true, "params": true, "headers": true,
	"show_response": true, "method": true, "element": true, "fixed_url": true,
	"response": true, "parsed": true, "json": true, "OnshapeElement": true,
	"str": true, "print": true,
}

// notebookGlobals are names the setup and helper cells define or rely on.
// A snippet function named after one of them would shadow it in later cells.
var notebookGlobals = map[string]bool{
	"json": true, "OnshapeElement": true, "Client": true, "clean_url": true,
	"client": true, "base": true, "access": true, "secret": true,
	"keyImportOption": true, "files": true, "uploaded": true, "clear_output": true,
	"str": true, "print": true, "input": true, "open": true, "exec": true,
}

// pyIdentifier maps an OpenAPI name to a valid Python identifier.
// Characters outside [A-Za-z0-9_] become underscores.
func pyIdentifier(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id := b.String()
	if id == "" {
		return "param"
	}
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	if pythonKeywords[id] {
		id += "_"
	}
	return id
}

// pyFuncName maps an operation id to the name of its snippet function.
func pyFuncName(operationID string) string {
	id := pyIdentifier(operationID)
	for notebookGlobals[id] {
		id += "_"
	}
	return id
}

// argNamer hands out unique argument identifiers for one snippet.
type argNamer struct {
	used map[string]bool
}

func newArgNamer() *argNamer {
	used := make(map[string]bool, len(snippetLocals))
	for name := range snippetLocals {
		used[name] = true
	}
	return &argNamer{used: used}
}

func (n *argNamer) name(param string) string {
	id := pyIdentifier(param)
	for n.used[id] {
		id += "_"
	}
	n.used[id] = true
	return id
}

// pyLiteral renders a decoded JSON/YAML value as a Python literal.
func pyLiteral(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case bool:
		if t {
			return "True"
		}
		return "False"
	case string:
		return strconv.Quote(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []interface{}:
		items := make([]string, len(t))
		for i, item := range t {
			items[i] = pyLiteral(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]string, len(keys))
		for i, k := range keys {
			items[i] = strconv.Quote(k) + ": " + pyLiteral(t[k])
		}
		return "{" + strings.Join(items, ", ") + "}"
	default:
		return strconv.Quote(fmt.Sprint(t))
	}
}

// pyDisplay renders a default value the way Python's str() would show it.
func pyDisplay(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return pyLiteral(v)
}

// docText makes free text safe for a single line of a Python docstring.
func docText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"""`, `\"\"\"`)
	return strings.TrimSpace(s)
}
