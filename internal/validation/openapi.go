package validation

import (
	"context"
	"errors"
	"net/http"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
)

// RequestValidator checks the parameters and body of a request against the
// operation the chi route pattern resolves to in the OpenAPI document.
type RequestValidator struct {
	doc     *openapi3.T
	onError func(w http.ResponseWriter, r *http.Request, err *Error)
}

// NewRequestValidator loads and validates the embedded OpenAPI document.
// onError writes the rejection response.
func NewRequestValidator(onError func(w http.ResponseWriter, r *http.Request, err *Error)) (*RequestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(v1.OpenAPISpec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, err
	}
	return &RequestValidator{doc: doc, onError: onError}, nil
}

// Middleware must run after routing, e.g. through chi's With, so the route
// pattern and URL params are known.
func (v *RequestValidator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		if rctx == nil {
			next.ServeHTTP(w, r)
			return
		}
		pattern := rctx.RoutePattern()
		pathItem := v.doc.Paths.Find(pattern)
		if pathItem == nil {
			next.ServeHTTP(w, r)
			return
		}
		operation := pathItem.GetOperation(r.Method)
		if operation == nil {
			next.ServeHTTP(w, r)
			return
		}

		params := make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route: &routers.Route{
				Spec:      v.doc,
				Path:      pattern,
				PathItem:  pathItem,
				Method:    r.Method,
				Operation: operation,
			},
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			v.onError(w, r, requestError(err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestError(err error) *Error {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		cause := reqErr.Error()
		if reqErr.Parameter != nil {
			return &Error{Summary: "Invalid parameter " + reqErr.Parameter.Name, Causes: []string{cause}}
		}
		if reqErr.RequestBody != nil {
			return &Error{Summary: "Invalid request body", Causes: []string{cause}}
		}
		return &Error{Summary: "Invalid request", Causes: []string{cause}}
	}
	return &Error{Summary: "Invalid request", Causes: []string{err.Error()}}
}
