// Package v1 serves the policy REST API on top of the service layer.
package v1

import (
	"crypto/subtle"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apiv1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/service"
	"github.com/dcm-project/policy-sdk/internal/validation"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

const (
	maxBodyBytes = 1 << 20

	PoliciesPath    = "/api/v1/policies"
	PolicyPath      = PoliciesPath + "/{policyId}"
	PolicyRulesPath = PolicyPath + "/rules"
	PolicyRulePath  = PolicyRulesPath + "/{ruleId}"
)

// Handler implements the policy and policy rule endpoints.
type Handler struct {
	policies  service.PolicyService
	rules     service.RuleService
	validator *validation.Validator
}

// NewHandler creates a new handler.
func NewHandler(policies service.PolicyService, rules service.RuleService, validator *validation.Validator) *Handler {
	return &Handler{
		policies:  policies,
		rules:     rules,
		validator: validator,
	}
}

// Register mounts every endpoint on r. Route patterns match the paths of
// the OpenAPI document so request validation can find the operation.
func (h *Handler) Register(r chi.Router) {
	r.Get(PoliciesPath, h.ListPolicies)
	r.Post(PoliciesPath, h.CreatePolicy)
	r.Get(PolicyPath, h.GetPolicy)
	r.Put(PolicyPath, h.UpdatePolicy)
	r.Delete(PolicyPath, h.DeletePolicy)
	r.Post(PolicyPath+"/lifecycle/activate", h.ActivatePolicy)
	r.Post(PolicyPath+"/lifecycle/deactivate", h.DeactivatePolicy)

	r.Get(PolicyRulesPath, h.ListPolicyRules)
	r.Post(PolicyRulesPath, h.AddPolicyRule)
	r.Get(PolicyRulePath, h.GetPolicyRule)
	r.Put(PolicyRulePath, h.UpdatePolicyRule)
	r.Delete(PolicyRulePath, h.DeletePolicyRule)
	r.Post(PolicyRulePath+"/lifecycle/activate", h.ActivatePolicyRule)
	r.Post(PolicyRulePath+"/lifecycle/deactivate", h.DeactivatePolicyRule)
}

// RequireToken rejects requests that do not carry "SSWS <token>". An empty
// token disables the check.
func RequireToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		want := []byte("SSWS " + token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				writeError(w, r, http.StatusUnauthorized, apiv1.ErrorCodeInvalidToken,
					"Invalid token provided")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NotFound answers unknown routes with an API error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, apiv1.ErrorCodeNotFound,
		"Not found: Resource not found: "+r.URL.Path)
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, apiv1.ErrorCodeValidation,
		"Api validation failed: method "+r.Method+" is not supported on "+r.URL.Path)
}

func pathParam(r *http.Request, name string) (string, error) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", service.NewInvalidArgumentError(fmt.Sprintf("Invalid format for parameter %s", name), err.Error())
	}
	return value, nil
}

func queryParam[T any](r *http.Request, name string) (*T, error) {
	var value *T
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &value); err != nil {
		return nil, service.NewInvalidArgumentError(fmt.Sprintf("Invalid format for parameter %s", name), err.Error())
	}
	return value, nil
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, service.NewInvalidArgumentError("Unreadable request body", err.Error())
	}
	return body, nil
}

// setLinks advertises the current page and, when there is one, the next page
// in RFC 5988 Link headers.
func setLinks(w http.ResponseWriter, r *http.Request, next string) {
	self := requestURL(r)
	w.Header().Add("Link", fmt.Sprintf(`<%s>; rel="self"`, self.String()))
	if next == "" {
		return
	}
	q := self.Query()
	q.Set("after", next)
	self.RawQuery = q.Encode()
	w.Header().Add("Link", fmt.Sprintf(`<%s>; rel="next"`, self.String()))
}

func requestURL(r *http.Request) *url.URL {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	return &url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
}
