package snippets

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// operationDoc wraps a single operation in a minimal document.
func operationDoc(t *testing.T, path, method, operation string) *Document {
	t.Helper()
	return mustParse(t, `{"openapi": "3.0.1", "paths": {"`+path+`": {"`+method+`": `+operation+`}}}`)
}

func TestEmitNoParameters(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	s, err := Emit(doc, "/users/sessioninfo", "get")
	require.NoError(t, err)

	wantHeader := "#@title `sessionInfo` (type `GET`)\n" +
		"def sessionInfo(client, url, payload={}, show_response=False):\n" +
		"    \"\"\"\n" +
		"    API call type: `GET`\n" +
		"    More details can be found in https://cad.onshape.com/glassworks/explorer/#/User/sessionInfo\n" +
		"\n" +
		"    - `client` (Required): the Onshape client configured with your API keys\n" +
		"    - `url` (Required): the url of the Onshape document you would like to make this API call to\n" +
		"    - `payload={}`: no payload body is accepted for this API call\n" +
		"    - `show_response`: boolean: do you want to print out the response of this API call (default: False)\n" +
		"    \"\"\""
	assert.Equal(t, wantHeader, s.Header())

	wantCode := "\n" +
		"    method = \"GET\"\n" +
		"    element = OnshapeElement(url)\n" +
		"    fixed_url = \"/api/users/sessioninfo\"\n" +
		"    params = {}\n" +
		"    headers = {}\n" +
		"    response = client.api_client.request(method, url=element.base_url + fixed_url, query_params=params, headers=headers, body=payload)\n" +
		"    parsed = json.loads(response.data)\n" +
		"    if show_response:\n" +
		"        print(json.dumps(parsed, indent=4, sort_keys=True))\n" +
		"    return parsed\n"
	assert.Equal(t, wantCode, s.Code())

	assert.Empty(t, s.ParamDocs)
	assert.Equal(t, s.Header()+s.Code(), s.String())
}

func TestEmitBooleanParametersAlwaysAssigned(t *testing.T) {
	doc := operationDoc(t, "/search", "get", `{
		"tags": ["Search"],
		"operationId": "search",
		"parameters": [
			{"name": "flag", "in": "query", "required": true, "schema": {"type": "boolean"}},
			{"name": "name", "in": "query", "required": true, "schema": {"type": "string"}},
			{"name": "verbose", "in": "query", "schema": {"type": "boolean"}}
		],
		"responses": {}
	}`)

	s, err := Emit(doc, "/search", "GET")
	require.NoError(t, err)

	code := s.Code()
	assert.Contains(t, code, "    params[\"flag\"] = flag\n")
	assert.NotContains(t, code, "if flag:")
	assert.Contains(t, code, "    if name:\n        params[\"name\"] = name\n")
	assert.Contains(t, code, "    params[\"verbose\"] = verbose\n")

	assert.Equal(t, []string{"client", "url", "flag", "name", "verbose=False", "payload={}", "show_response=False"}, s.Args)
	assert.Equal(t, []string{
		"- `flag`: boolean (Required)",
		"- `name`: string (Required)",
		"- `verbose`: boolean (Optional)",
	}, s.ParamDocs)
}

func TestEmitQueryParameterDocs(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	s, err := Emit(doc, "/documents", "get")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"- `q`: string (Optional) (default: )",
		"- `ownerType`: integer (Optional) (default: 1)",
		"- `offset`: integer (Optional) (default: 0)",
	}, s.ParamDocs)
	assert.Equal(t, []string{"client", "url", `q=""`, "ownerType=1", "offset=0", "payload={}", "show_response=False"}, s.Args)
	assert.Contains(t, s.Code(), "    if offset:\n        params[\"offset\"] = offset\n")
}

func TestEmitDocumentURLPathParameters(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	s, err := Emit(doc, "/partstudios/d/{did}/{wvm}/{wvmid}/e/{eid}/features", "post")
	require.NoError(t, err)

	code := s.Code()
	assert.Contains(t, code, `    fixed_url = "/api/partstudios/d/{did}/{wvm}/{wvmid}/e/{eid}/features"`+"\n")
	assert.Contains(t, code, `    fixed_url = fixed_url.replace("{did}", element.did)`+"\n")
	assert.Contains(t, code, `    fixed_url = fixed_url.replace("{wvm}", element.wvm)`+"\n")
	assert.Contains(t, code, `    fixed_url = fixed_url.replace("{wvmid}", element.wvmid)`+"\n")
	assert.Contains(t, code, `    fixed_url = fixed_url.replace("{eid}", element.eid)`+"\n")

	// Document URL parameters are not function arguments
	assert.Equal(t, []string{"client", "url", "payload", "show_response=False"}, s.Args)
	assert.Empty(t, s.ParamDocs)
}

func TestEmitGenericPathParameter(t *testing.T) {
	doc := operationDoc(t, "/blobelements/d/{did}/w/{wid}/e/{eid}/translations/{tid}", "get", `{
		"tags": ["Translation"],
		"operationId": "getTranslation",
		"parameters": [
			{"name": "did", "in": "path", "required": true, "schema": {"type": "string"}},
			{"name": "wid", "in": "path", "required": true, "schema": {"type": "string"}},
			{"name": "eid", "in": "path", "required": true, "schema": {"type": "string"}},
			{"name": "tid", "in": "path", "required": true, "description": "Translation id", "schema": {"type": "string"}}
		],
		"responses": {}
	}`)

	s, err := Emit(doc, "/blobelements/d/{did}/w/{wid}/e/{eid}/translations/{tid}", "get")
	require.NoError(t, err)

	assert.Contains(t, s.Code(), `    fixed_url = fixed_url.replace("{wid}", element.wvmid)`+"\n")
	assert.Contains(t, s.Code(), `    fixed_url = fixed_url.replace("{tid}", str(tid))`+"\n")
	assert.Equal(t, []string{"- `tid` (Required): Translation id"}, s.ParamDocs)
	assert.Equal(t, []string{"client", "url", "tid", "payload={}", "show_response=False"}, s.Args)
}

func TestEmitHeaderParametersAndIdentifiers(t *testing.T) {
	doc := operationDoc(t, "/things", "get", `{
		"tags": ["Things"],
		"operationId": "get-things",
		"parameters": [
			{"name": "If-None-Match", "in": "header", "schema": {"type": "string"}},
			{"name": "from", "in": "query", "schema": {"type": "integer"}},
			{"name": "params", "in": "query", "schema": {"type": "string"}}
		],
		"responses": {}
	}`)

	s, err := Emit(doc, "/things", "get")
	require.NoError(t, err)

	assert.Equal(t, "get_things", s.FuncName)
	assert.Equal(t, []string{"client", "url", "If_None_Match=None", "from_=None", "params_=None", "payload={}", "show_response=False"}, s.Args)
	assert.Equal(t, "- `If_None_Match`: string (Optional, header `If-None-Match`)", s.ParamDocs[0])

	code := s.Code()
	assert.Contains(t, code, "    if If_None_Match:\n        headers[\"If-None-Match\"] = If_None_Match\n")
	assert.Contains(t, code, "    if from_:\n        params[\"from\"] = from_\n")
	assert.Contains(t, code, "    if params_:\n        params[\"params\"] = params_\n")
	assert.NotContains(t, code, "params[\"If-None-Match\"]")

	// Headers exist before the header parameter is assigned
	assert.Less(t, strings.Index(code, "headers = {}"), strings.Index(code, "headers[\"If-None-Match\"]"))
}

func TestEmitReservedNames(t *testing.T) {
	doc := operationDoc(t, "/convert/{str}", "get", `{
		"tags": ["Convert"],
		"operationId": "json",
		"parameters": [
			{"name": "str", "in": "path", "required": true, "schema": {"type": "string"}},
			{"name": "print", "in": "query", "schema": {"type": "boolean"}}
		],
		"responses": {}
	}`)

	s, err := Emit(doc, "/convert/{str}", "get")
	require.NoError(t, err)

	assert.Equal(t, "json_", s.FuncName)
	assert.Contains(t, s.Header(), "def json_(client, url, str_, print_=False, payload={}, show_response=False):")

	code := s.Code()
	assert.Contains(t, code, `    fixed_url = fixed_url.replace("{str}", str(str_))`+"\n")
	assert.Contains(t, code, `    params["print"] = print_`+"\n")
	assert.Contains(t, code, "        print(json.dumps(parsed, indent=4, sort_keys=True))\n")
}

func TestEmitResponseHeaders(t *testing.T) {
	tests := []struct {
		name      string
		responses string
		want      string
	}{
		{
			name:      "Default response wins",
			responses: `{"200": {"content": {"application/json": {}}}, "default": {"content": {"application/vnd.onshape.v1+json": {}}}}`,
			want:      `headers = {"Accept": "application/vnd.onshape.v1+json", "Content-Type": "application/json"}`,
		},
		{
			name:      "Falls back to 200",
			responses: `{"200": {"content": {"application/octet-stream": {}, "application/json": {}}}}`,
			want:      `headers = {"Accept": "application/octet-stream", "Content-Type": "application/json"}`,
		},
		{
			name:      "Default without content falls back to 200",
			responses: `{"default": {"description": "none"}, "200": {"content": {"text/plain": {}}}}`,
			want:      `headers = {"Accept": "text/plain", "Content-Type": "application/json"}`,
		},
		{
			name:      "No content anywhere",
			responses: `{"200": {"description": "OK"}, "204": {"content": {"application/json": {}}}}`,
			want:      `headers = {}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := operationDoc(t, "/x", "get", `{"tags": ["X"], "operationId": "x", "responses": `+tt.responses+`}`)
			s, err := Emit(doc, "/x", "get")
			require.NoError(t, err)
			assert.Contains(t, s.Body, tt.want)
		})
	}
}

func TestEmitRequestBody(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	s, err := Emit(doc, "/partstudios/d/{did}/{wvm}/{wvmid}/e/{eid}/features", "post")
	require.NoError(t, err)

	header := s.Header()
	assert.Contains(t, header, "    - `payload` (Required): a dictionary of the payload body of this API call; a template of the body is shown below:\n")
	assert.Contains(t, header, "        Description: The feature to add\n")

	wantBody := `        {
            "feature": {
                "name": "string",
                "parameters": [
                    {
                        "nodeId": "string",
                        "parameterId": "string"
                    }
                ],
                "subFeatures": [
                    "string"
                ],
                "suppressed": "boolean"
            },
            "libraryVersion": "integer",
            "serializationVersion": "string"
        }
`
	assert.Contains(t, header, wantBody)

	// Payload documentation precedes the callable body
	assert.Less(t, strings.Index(s.String(), "serializationVersion"), strings.Index(s.String(), "method = \"POST\""))
}

func TestEmitOptionalRequestBody(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	s, err := Emit(doc, "/documents", "post")
	require.NoError(t, err)

	assert.Equal(t, []string{"client", "url", "payload={}", "show_response=False"}, s.Args)
	assert.Equal(t, "- `payload` (Optional): a dictionary of the payload body of this API call; a template of the body is shown below:", s.PayloadDoc[0])
	assert.Contains(t, s.Header(), `"ownerType": "integer"`)
}

func TestEmitRequestBodyNotDescribable(t *testing.T) {
	doc := operationDoc(t, "/upload", "post", `{
		"tags": ["Blob"],
		"operationId": "upload",
		"requestBody": {"required": true, "content": {"multipart/form-data": {"schema": {"type": "string", "format": "binary"}}}},
		"responses": {}
	}`)

	s, err := Emit(doc, "/upload", "post")
	require.NoError(t, err)
	assert.Contains(t, s.PayloadDoc, "    The request body for this API endpoint is a string")
}

func TestEmitBodyIgnoredForGet(t *testing.T) {
	doc := operationDoc(t, "/x", "get", `{
		"tags": ["X"], "operationId": "x",
		"requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "properties": {"a": {"type": "string"}}}}}},
		"responses": {}
	}`)

	s, err := Emit(doc, "/x", "get")
	require.NoError(t, err)
	assert.Equal(t, []string{"- `payload={}`: no payload body is accepted for this API call"}, s.PayloadDoc)
}

func TestEmitErrors(t *testing.T) {
	doc := mustParse(t, onshapeFixture)

	t.Run("Unknown path", func(t *testing.T) {
		_, err := Emit(doc, "/nope", "get")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrOperationNotFound))
	})

	t.Run("Unknown method", func(t *testing.T) {
		_, err := Emit(doc, "/users/sessioninfo", "delete")
		assert.ErrorIs(t, err, ErrOperationNotFound)
	})

	t.Run("Missing operationId", func(t *testing.T) {
		_, err := Emit(doc, "/users/broken", "get")
		assert.ErrorIs(t, err, ErrMalformedOperation)
	})

	t.Run("Unresolved parameter reference", func(t *testing.T) {
		bad := operationDoc(t, "/x", "get", `{"tags": ["X"], "operationId": "x", "parameters": [{"$ref": "#/components/parameters/Nope"}], "responses": {}}`)
		_, err := Emit(bad, "/x", "get")
		assert.ErrorIs(t, err, ErrMalformedOperation)
	})

	t.Run("Whitespace and case are ignored", func(t *testing.T) {
		_, err := Emit(doc, " /users/sessioninfo ", " GET ")
		assert.NoError(t, err)
	})
}

func TestEmitterConfiguration(t *testing.T) {
	doc := mustParse(t, onshapeFixture)
	e := &Emitter{APIPrefix: "/api/v6", ExplorerURL: "https://example.com/docs/{operationId}"}

	s, err := e.Emit(doc, "/documents/d/{did}", "get")
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/docs/getDocument", s.DocsURL)
	assert.Contains(t, s.Code(), `fixed_url = "/api/v6/documents/d/{did}"`)
	assert.Equal(t, "Get document by id", s.Summary)
}

func TestURLHelper(t *testing.T) {
	helper := DefaultEmitter.URLHelper()

	assert.Contains(t, helper, "def clean_url(url: str, fixed_url: str) -> str:\n")
	assert.Contains(t, helper, "    if \"{wvm}\" in fixed_url:\n        fixed_url = fixed_url.replace(\"{wvm}\", element.wvm)\n")
	assert.Contains(t, helper, "    elif \"{wvid}\" in fixed_url:\n        fixed_url = fixed_url.replace(\"{wvid}\", element.wvmid)\n")
	assert.Contains(t, helper, "    if \"{eid}\" in fixed_url:\n")
	assert.True(t, strings.HasSuffix(helper, "    return base + \"/api\" + fixed_url\n"))
}
