package v1

import (
	"context"
	"net/http"

	apiv1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/service"
)

// decodePolicy validates the body against the policy schema and decodes the
// variant named by its type.
func (h *Handler) decodePolicy(w http.ResponseWriter, r *http.Request) (apiv1.Policy, bool) {
	body, err := readBody(r)
	if err != nil {
		handleError(w, r, err)
		return nil, false
	}
	if verr := h.validator.ValidatePolicy(body); verr != nil {
		handleValidation(w, r, verr)
		return nil, false
	}
	policy, err := apiv1.UnmarshalPolicy(body)
	if err != nil {
		handleError(w, r, service.NewInvalidArgumentError("Invalid policy", err.Error()))
		return nil, false
	}
	return policy, true
}

// ListPolicies handles GET /api/v1/policies
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policyType, err := queryParam[string](r, "type")
	if err != nil {
		handleError(w, r, err)
		return
	}
	opts := service.ListPoliciesOptions{}
	if policyType != nil {
		opts.Type = *policyType
	}
	if opts.Status, err = queryParam[string](r, "status"); err != nil {
		handleError(w, r, err)
		return
	}
	if opts.Limit, err = queryParam[int](r, "limit"); err != nil {
		handleError(w, r, err)
		return
	}
	if opts.After, err = queryParam[string](r, "after"); err != nil {
		handleError(w, r, err)
		return
	}

	page, err := h.policies.ListPolicies(r.Context(), opts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	setLinks(w, r, page.NextCursor)
	writeJSON(w, http.StatusOK, page.Policies)
}

// CreatePolicy handles POST /api/v1/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	activate, err := queryParam[bool](r, "activate")
	if err != nil {
		handleError(w, r, err)
		return
	}
	policy, ok := h.decodePolicy(w, r)
	if !ok {
		return
	}

	created, err := h.policies.CreatePolicy(r.Context(), policy, activate)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// GetPolicy handles GET /api/v1/policies/{policyId}
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "policyId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	policy, err := h.policies.GetPolicy(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// UpdatePolicy handles PUT /api/v1/policies/{policyId}
func (h *Handler) UpdatePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "policyId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	policy, ok := h.decodePolicy(w, r)
	if !ok {
		return
	}

	updated, err := h.policies.UpdatePolicy(r.Context(), id, policy)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePolicy handles DELETE /api/v1/policies/{policyId}
func (h *Handler) DeletePolicy(w http.ResponseWriter, r *http.Request) {
	h.policyAction(w, r, h.policies.DeletePolicy)
}

// ActivatePolicy handles POST /api/v1/policies/{policyId}/lifecycle/activate
func (h *Handler) ActivatePolicy(w http.ResponseWriter, r *http.Request) {
	h.policyAction(w, r, h.policies.ActivatePolicy)
}

// DeactivatePolicy handles POST /api/v1/policies/{policyId}/lifecycle/deactivate
func (h *Handler) DeactivatePolicy(w http.ResponseWriter, r *http.Request) {
	h.policyAction(w, r, h.policies.DeactivatePolicy)
}

func (h *Handler) policyAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) error) {
	id, err := pathParam(r, "policyId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := action(r.Context(), id); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
