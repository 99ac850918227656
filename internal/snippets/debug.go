// Package snippets provides debug flags for controlling verbose logging.
//
// This file defines global debug flags (SchemaDebug, EmitDebug, LoaderDebug)
// that can be enabled to get detailed logging output while resolving request
// body schemas, emitting snippets and loading the OpenAPI document.
package snippets

var (
	// SchemaDebug enables debug logging in request body resolution
	SchemaDebug = false

	// EmitDebug enables debug logging in snippet emission
	EmitDebug = false

	// LoaderDebug enables debug logging while fetching and caching the document
	LoaderDebug = false
)

// SetDebugFlags sets all debug flags at once
func SetDebugFlags(enabled bool) {
	SchemaDebug = enabled
	EmitDebug = enabled
	LoaderDebug = enabled
}
