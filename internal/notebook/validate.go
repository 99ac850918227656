package notebook

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/nbformat.v4.json
var nbformatSchema string

// Validate checks notebook JSON against the embedded nbformat v4 schema.
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(nbformatSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		var msg strings.Builder
		msg.WriteString("notebook validation failed:\n")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&msg, "  - %s: %s\n", desc.Field(), desc.Description())
		}
		return fmt.Errorf("%s", msg.String())
	}

	return nil
}
