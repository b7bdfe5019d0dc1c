package v1

import _ "embed"

// OpenAPISpec is the OpenAPI 3 document describing the policy REST surface.
//
//go:embed openapi.yaml
var OpenAPISpec []byte
