package client

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
)

// ListPolicyRulesOptions tunes the page size of a rule listing.
type ListPolicyRulesOptions struct {
	Limit int
}

// AddPolicyRule creates a rule under policyID. The rule's type must be the
// one its policy's type admits (see v1.RuleTypeFor).
func (c *Client) AddPolicyRule(ctx context.Context, rule v1.PolicyRule, policyID string) (v1.PolicyRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: rule is nil", ErrInvalidArgument)
	}
	u, err := c.endpoint("policies", policyID, "rules")
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPost, u, rule)
	if err != nil {
		return nil, err
	}
	return decodeRule(resp.body)
}

// GetPolicyRule fetches one rule of a policy.
func (c *Client) GetPolicyRule(ctx context.Context, policyID, ruleID string) (v1.PolicyRule, error) {
	u, err := c.endpoint("policies", policyID, "rules", ruleID)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return decodeRule(resp.body)
}

// GetPolicyRuleAs fetches a rule and asserts its variant.
func GetPolicyRuleAs[T v1.PolicyRule](ctx context.Context, c *Client, policyID, ruleID string) (T, error) {
	var zero T
	r, err := c.GetPolicyRule(ctx, policyID, ruleID)
	if err != nil {
		return zero, err
	}
	typed, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("%w: rule %s is %s, not %T", ErrUnexpectedType, ruleID, r.RuleType(), zero)
	}
	return typed, nil
}

// ListPolicyRules returns a lazy sequence over the rules of a policy in
// priority order. opts may be nil.
func (c *Client) ListPolicyRules(ctx context.Context, policyID string, opts *ListPolicyRulesOptions) iter.Seq2[v1.PolicyRule, error] {
	u, err := c.endpoint("policies", policyID, "rules")
	if err != nil {
		return func(yield func(v1.PolicyRule, error) bool) {
			yield(nil, err)
		}
	}
	if opts != nil && opts.Limit > 0 {
		u.RawQuery = url.Values{"limit": {strconv.Itoa(opts.Limit)}}.Encode()
	}
	return paginate(ctx, c, u, v1.UnmarshalPolicyRules)
}

// UpdatePolicyRule replaces the rule stored under ruleID.
func (c *Client) UpdatePolicyRule(ctx context.Context, rule v1.PolicyRule, policyID, ruleID string) (v1.PolicyRule, error) {
	if rule == nil {
		return nil, fmt.Errorf("%w: rule is nil", ErrInvalidArgument)
	}
	u, err := c.endpoint("policies", policyID, "rules", ruleID)
	if err != nil {
		return nil, err
	}
	body, err := withID(rule, ruleID)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, u, body)
	if err != nil {
		return nil, err
	}
	return decodeRule(resp.body)
}

// ActivatePolicyRule sets a rule ACTIVE. Activating an active rule is a no-op.
func (c *Client) ActivatePolicyRule(ctx context.Context, policyID, ruleID string) error {
	return c.send(ctx, http.MethodPost, "policies", policyID, "rules", ruleID, "lifecycle/activate")
}

// DeactivatePolicyRule sets a rule INACTIVE.
func (c *Client) DeactivatePolicyRule(ctx context.Context, policyID, ruleID string) error {
	return c.send(ctx, http.MethodPost, "policies", policyID, "rules", ruleID, "lifecycle/deactivate")
}

// DeletePolicyRule deletes a rule. Like policies, a rule must be deactivated first.
func (c *Client) DeletePolicyRule(ctx context.Context, policyID, ruleID string) error {
	return c.send(ctx, http.MethodDelete, "policies", policyID, "rules", ruleID)
}

func decodeRule(body []byte) (v1.PolicyRule, error) {
	r, err := v1.UnmarshalPolicyRule(body)
	if err != nil {
		return nil, decodeError(err)
	}
	return r, nil
}
