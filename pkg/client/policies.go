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

// CreatePolicyOptions tunes CreatePolicy.
type CreatePolicyOptions struct {
	// Activate sets the initial status when the policy itself carries none.
	// nil leaves the decision to the service, which activates by default.
	Activate *bool
}

// ListPoliciesOptions selects the policies to list. Type is required.
type ListPoliciesOptions struct {
	Type   v1.PolicyType
	Status v1.Status
	// Limit is the page size requested from the service; zero uses its default.
	Limit int
	// After resumes from a cursor returned in PolicyPage.After.
	After string
}

// PolicyPage is one page of ListPoliciesPage. After is empty on the last page.
type PolicyPage struct {
	Policies []v1.Policy
	After    string
}

func (c *Client) policiesURL(opts *ListPoliciesOptions) (*url.URL, error) {
	if opts == nil || opts.Type == "" {
		return nil, fmt.Errorf("%w: a policy type is required to list policies", ErrInvalidArgument)
	}
	u, err := c.endpoint("policies")
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("type", string(opts.Type))
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.After != "" {
		q.Set("after", opts.After)
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// CreatePolicy creates a policy and returns it with its server-assigned id.
func (c *Client) CreatePolicy(ctx context.Context, policy v1.Policy, opts *CreatePolicyOptions) (v1.Policy, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: policy is nil", ErrInvalidArgument)
	}
	u, err := c.endpoint("policies")
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.Activate != nil {
		u.RawQuery = url.Values{"activate": {strconv.FormatBool(*opts.Activate)}}.Encode()
	}
	resp, err := c.do(ctx, http.MethodPost, u, policy)
	if err != nil {
		return nil, err
	}
	return decodePolicy(resp.body)
}

// GetPolicy fetches a policy as the variant matching its type.
func (c *Client) GetPolicy(ctx context.Context, policyID string) (v1.Policy, error) {
	u, err := c.endpoint("policies", policyID)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return decodePolicy(resp.body)
}

// GetPolicyAs fetches a policy and asserts its variant, e.g.
// GetPolicyAs[*v1.OktaSignOnPolicy](ctx, c, id).
func GetPolicyAs[T v1.Policy](ctx context.Context, c *Client, policyID string) (T, error) {
	var zero T
	p, err := c.GetPolicy(ctx, policyID)
	if err != nil {
		return zero, err
	}
	typed, ok := p.(T)
	if !ok {
		return zero, fmt.Errorf("%w: policy %s is %s, not %T", ErrUnexpectedType, policyID, p.PolicyType(), zero)
	}
	return typed, nil
}

// ListPolicies returns a lazy sequence over every matching policy, fetching
// pages as the caller advances.
func (c *Client) ListPolicies(ctx context.Context, opts *ListPoliciesOptions) iter.Seq2[v1.Policy, error] {
	first, err := c.policiesURL(opts)
	if err != nil {
		return func(yield func(v1.Policy, error) bool) {
			yield(nil, err)
		}
	}
	return paginate(ctx, c, first, v1.UnmarshalPolicies)
}

// ListPoliciesPage fetches a single page.
func (c *Client) ListPoliciesPage(ctx context.Context, opts *ListPoliciesOptions) (*PolicyPage, error) {
	u, err := c.policiesURL(opts)
	if err != nil {
		return nil, err
	}
	policies, next, err := fetchPage(ctx, c, u, v1.UnmarshalPolicies)
	if err != nil {
		return nil, err
	}
	return &PolicyPage{Policies: policies, After: cursor(next)}, nil
}

// UpdatePolicy replaces the policy stored under policyID. The id in the body
// is always sent as policyID; the type cannot change.
func (c *Client) UpdatePolicy(ctx context.Context, policy v1.Policy, policyID string) (v1.Policy, error) {
	if policy == nil {
		return nil, fmt.Errorf("%w: policy is nil", ErrInvalidArgument)
	}
	u, err := c.endpoint("policies", policyID)
	if err != nil {
		return nil, err
	}
	body, err := withID(policy, policyID)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, http.MethodPut, u, body)
	if err != nil {
		return nil, err
	}
	return decodePolicy(resp.body)
}

// ActivatePolicy sets the policy ACTIVE.
func (c *Client) ActivatePolicy(ctx context.Context, policyID string) error {
	return c.send(ctx, http.MethodPost, "policies", policyID, "lifecycle/activate")
}

// DeactivatePolicy sets the policy INACTIVE.
func (c *Client) DeactivatePolicy(ctx context.Context, policyID string) error {
	return c.send(ctx, http.MethodPost, "policies", policyID, "lifecycle/deactivate")
}

// DeletePolicy deletes a policy. The service refuses to delete an ACTIVE
// policy with an error matching ErrConflict.
func (c *Client) DeletePolicy(ctx context.Context, policyID string) error {
	return c.send(ctx, http.MethodDelete, "policies", policyID)
}

// send issues a bodiless request whose response body is ignored.
func (c *Client) send(ctx context.Context, method string, segments ...string) error {
	u, err := c.endpoint(segments...)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, method, u, nil)
	return err
}

func decodePolicy(body []byte) (v1.Policy, error) {
	p, err := v1.UnmarshalPolicy(body)
	if err != nil {
		return nil, decodeError(err)
	}
	return p, nil
}
