package snippets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// onshapeFixture is a trimmed Onshape-style document: paths are deliberately
// not grouped by tag, and BTMFeature-134 nests itself.
const onshapeFixture = `{
  "openapi": "3.0.1",
  "info": {"title": "Onshape REST API", "version": "1.170"},
  "tags": [
    {"name": "Document", "description": "Create and manage documents."},
    {"name": "PartStudio", "description": "Part Studio features."},
    {"name": "User", "description": "User information."}
  ],
  "paths": {
    "/documents/d/{did}": {
      "get": {
        "tags": ["Document"],
        "operationId": "getDocument",
        "summary": "Get document\nby id",
        "parameters": [
          {"name": "did", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "link", "in": "query", "description": "Link document id", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "OK", "content": {"application/json;charset=UTF-8; qs=0.09": {}}}
        }
      }
    },
    "/partstudios/d/{did}/{wvm}/{wvmid}/e/{eid}/features": {
      "parameters": [
        {"name": "did", "in": "path", "required": true, "schema": {"type": "string"}},
        {"name": "wvm", "in": "path", "required": true, "schema": {"type": "string"}},
        {"name": "wvmid", "in": "path", "required": true, "schema": {"type": "string"}},
        {"name": "eid", "in": "path", "required": true, "schema": {"type": "string"}}
      ],
      "post": {
        "tags": ["PartStudio"],
        "operationId": "addPartStudioFeature",
        "summary": "Add a feature",
        "requestBody": {
          "description": "The feature to add",
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/BTFeatureDefinitionCall-1406"}}}
        },
        "responses": {
          "default": {"description": "OK", "content": {"application/json;charset=UTF-8; qs=0.09": {}}}
        }
      }
    },
    "/documents": {
      "get": {
        "tags": ["Document"],
        "operationId": "getDocuments",
        "parameters": [
          {"name": "q", "in": "query", "schema": {"type": "string", "default": ""}},
          {"name": "ownerType", "in": "query", "schema": {"type": "integer", "default": 1}},
          {"$ref": "#/components/parameters/Offset"}
        ],
        "responses": {"200": {"description": "OK"}}
      },
      "post": {
        "tags": ["Document"],
        "operationId": "createDocument",
        "requestBody": {
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/BTDocumentParams"}}}
        },
        "responses": {"200": {"description": "OK", "content": {"application/json": {}}}}
      }
    },
    "/users/sessioninfo": {
      "get": {
        "tags": ["User"],
        "operationId": "sessionInfo",
        "responses": {}
      }
    },
    "/users/broken": {
      "get": {
        "tags": ["User"],
        "responses": {}
      }
    }
  },
  "components": {
    "parameters": {
      "Offset": {"name": "offset", "in": "query", "schema": {"type": "integer", "default": 0}}
    },
    "schemas": {
      "BTFeatureDefinitionCall-1406": {
        "type": "object",
        "properties": {
          "feature": {"$ref": "#/components/schemas/BTMFeature-134"},
          "libraryVersion": {"type": "integer"},
          "serializationVersion": {"type": "string"}
        }
      },
      "BTMFeature-134": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "subFeatures": {"type": "array", "items": {"$ref": "#/components/schemas/BTMFeature-134"}},
          "parameters": {"type": "array", "items": {"$ref": "#/components/schemas/BTMParameter-1"}},
          "suppressed": {"type": "boolean"}
        }
      },
      "BTMParameter-1": {
        "type": "object",
        "properties": {
          "parameterId": {"type": "string"},
          "nodeId": {"type": "string"}
        }
      },
      "BTDocumentParams": {
        "allOf": [{"$ref": "#/components/schemas/BTDocumentBase"}]
      },
      "BTDocumentBase": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "isPublic": {"type": "boolean"},
          "tags": {"type": "array", "items": {"type": "string"}},
          "ownerType": {"$ref": "#/components/schemas/GBTOwnerType"}
        }
      },
      "GBTOwnerType": {"type": "integer", "enum": [0, 1, 2]}
    }
  }
}`

func mustParse(t *testing.T, data string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(data))
	require.NoError(t, err)
	return doc
}

// schemaDoc wraps component schemas in a minimal document.
func schemaDoc(t *testing.T, schemas string) *Document {
	t.Helper()
	return mustParse(t, `{"openapi": "3.0.1", "paths": {}, "components": {"schemas": `+schemas+`}}`)
}

// componentProperties returns the properties of an object component.
func componentProperties(t *testing.T, doc *Document, name string) []Property {
	t.Helper()
	s, ok := doc.Schema(name)
	require.True(t, ok, "schema %s", name)
	obj, ok := s.(*ObjectSchema)
	require.True(t, ok, "schema %s is %T", name, s)
	return obj.Properties
}
