package v1

import (
	"context"
	"net/http"

	apiv1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/service"
)

func (h *Handler) decodeRule(w http.ResponseWriter, r *http.Request) (apiv1.PolicyRule, bool) {
	body, err := readBody(r)
	if err != nil {
		handleError(w, r, err)
		return nil, false
	}
	if verr := h.validator.ValidateRule(body); verr != nil {
		handleValidation(w, r, verr)
		return nil, false
	}
	rule, err := apiv1.UnmarshalPolicyRule(body)
	if err != nil {
		handleError(w, r, service.NewInvalidArgumentError("Invalid policy rule", err.Error()))
		return nil, false
	}
	return rule, true
}

func ruleParams(r *http.Request) (string, string, error) {
	policyID, err := pathParam(r, "policyId")
	if err != nil {
		return "", "", err
	}
	ruleID, err := pathParam(r, "ruleId")
	if err != nil {
		return "", "", err
	}
	return policyID, ruleID, nil
}

// ListPolicyRules handles GET /api/v1/policies/{policyId}/rules
func (h *Handler) ListPolicyRules(w http.ResponseWriter, r *http.Request) {
	policyID, err := pathParam(r, "policyId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	var opts service.ListRulesOptions
	if opts.Limit, err = queryParam[int](r, "limit"); err != nil {
		handleError(w, r, err)
		return
	}
	if opts.After, err = queryParam[string](r, "after"); err != nil {
		handleError(w, r, err)
		return
	}

	page, err := h.rules.ListPolicyRules(r.Context(), policyID, opts)
	if err != nil {
		handleError(w, r, err)
		return
	}
	setLinks(w, r, page.NextCursor)
	writeJSON(w, http.StatusOK, page.Rules)
}

// AddPolicyRule handles POST /api/v1/policies/{policyId}/rules
func (h *Handler) AddPolicyRule(w http.ResponseWriter, r *http.Request) {
	policyID, err := pathParam(r, "policyId")
	if err != nil {
		handleError(w, r, err)
		return
	}
	activate, err := queryParam[bool](r, "activate")
	if err != nil {
		handleError(w, r, err)
		return
	}
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}

	created, err := h.rules.AddPolicyRule(r.Context(), policyID, rule, activate)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// GetPolicyRule handles GET /api/v1/policies/{policyId}/rules/{ruleId}
func (h *Handler) GetPolicyRule(w http.ResponseWriter, r *http.Request) {
	policyID, ruleID, err := ruleParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	rule, err := h.rules.GetPolicyRule(r.Context(), policyID, ruleID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// UpdatePolicyRule handles PUT /api/v1/policies/{policyId}/rules/{ruleId}
func (h *Handler) UpdatePolicyRule(w http.ResponseWriter, r *http.Request) {
	policyID, ruleID, err := ruleParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	rule, ok := h.decodeRule(w, r)
	if !ok {
		return
	}

	updated, err := h.rules.UpdatePolicyRule(r.Context(), policyID, ruleID, rule)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePolicyRule handles DELETE /api/v1/policies/{policyId}/rules/{ruleId}
func (h *Handler) DeletePolicyRule(w http.ResponseWriter, r *http.Request) {
	h.ruleAction(w, r, h.rules.DeletePolicyRule)
}

// ActivatePolicyRule handles POST /api/v1/policies/{policyId}/rules/{ruleId}/lifecycle/activate
func (h *Handler) ActivatePolicyRule(w http.ResponseWriter, r *http.Request) {
	h.ruleAction(w, r, h.rules.ActivatePolicyRule)
}

// DeactivatePolicyRule handles POST /api/v1/policies/{policyId}/rules/{ruleId}/lifecycle/deactivate
func (h *Handler) DeactivatePolicyRule(w http.ResponseWriter, r *http.Request) {
	h.ruleAction(w, r, h.rules.DeactivatePolicyRule)
}

func (h *Handler) ruleAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, policyID, ruleID string) error) {
	policyID, ruleID, err := ruleParams(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if err := action(r.Context(), policyID, ruleID); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
