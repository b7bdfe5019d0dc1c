package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/store"
	"github.com/dcm-project/policy-sdk/internal/store/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	policyIDPrefix = "00p"
	ruleIDPrefix   = "0pr"
	idSuffixLength = 17

	// DefaultPolicyName is the name of the system policy seeded per type.
	DefaultPolicyName = "Default Policy"
)

// Observer is told about every successful mutation. The emulator uses it
// to drive lifecycle metrics.
type Observer interface {
	Observe(resource, operation, kind string)
}

type nopObserver struct{}

func (nopObserver) Observe(string, string, string) {}

// ListPoliciesOptions narrows a policy listing. Type is mandatory.
type ListPoliciesOptions struct {
	Type   string
	Status *string
	After  *string
	Limit  *int
}

// PolicyPage is one page of a policy listing. NextCursor is empty on the
// last page.
type PolicyPage struct {
	Policies   []v1.Policy
	NextCursor string
}

// PolicyService defines the interface for policy business logic operations.
type PolicyService interface {
	CreatePolicy(ctx context.Context, policy v1.Policy, activate *bool) (v1.Policy, error)
	GetPolicy(ctx context.Context, id string) (v1.Policy, error)
	ListPolicies(ctx context.Context, opts ListPoliciesOptions) (*PolicyPage, error)
	UpdatePolicy(ctx context.Context, id string, policy v1.Policy) (v1.Policy, error)
	ActivatePolicy(ctx context.Context, id string) error
	DeactivatePolicy(ctx context.Context, id string) error
	DeletePolicy(ctx context.Context, id string) error
	SeedDefaultPolicies(ctx context.Context) error
}

// PolicyServiceImpl implements the PolicyService interface.
type PolicyServiceImpl struct {
	store    store.Store
	observer Observer
}

var _ PolicyService = (*PolicyServiceImpl)(nil)

// NewPolicyService creates a new PolicyService instance. observer may be nil.
func NewPolicyService(store store.Store, observer Observer) *PolicyServiceImpl {
	if observer == nil {
		observer = nopObserver{}
	}
	return &PolicyServiceImpl{
		store:    store,
		observer: observer,
	}
}

func newID(prefix string) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + hex[:idSuffixLength]
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return NewInvalidArgumentError("name is required", "The name field must be present and non-empty")
	}
	if len([]rune(name)) > v1.MaxNameLength {
		return NewInvalidArgumentError(
			"name is too long",
			fmt.Sprintf("The name field must be at most %d characters", v1.MaxNameLength),
		)
	}
	return nil
}

func validatePriority(priority int) error {
	if priority < 0 {
		return NewInvalidArgumentError("priority must not be negative", "The priority field must be zero or greater")
	}
	return nil
}

// resolveStatus picks the initial status of a created resource: the body
// wins, then the activate flag, then ACTIVE.
func resolveStatus(body v1.Status, activate *bool) (v1.Status, error) {
	switch body {
	case v1.StatusActive, v1.StatusInactive:
		return body, nil
	case "":
	default:
		return "", NewInvalidArgumentError("Invalid status", fmt.Sprintf("Status '%s' is not ACTIVE or INACTIVE", body))
	}
	if activate != nil && !*activate {
		return v1.StatusInactive, nil
	}
	return v1.StatusActive, nil
}

func parseStatusFilter(status *string) (*string, error) {
	if status == nil || *status == "" {
		return nil, nil
	}
	s := v1.Status(*status)
	if s != v1.StatusActive && s != v1.StatusInactive {
		return nil, NewInvalidArgumentError("Invalid status filter", fmt.Sprintf("Status '%s' is not ACTIVE or INACTIVE", *status))
	}
	return status, nil
}

func pageSize(limit *int) (int, error) {
	if limit == nil {
		return store.DefaultPageSize, nil
	}
	if *limit < 1 || *limit > store.MaxPageSize {
		return 0, NewInvalidArgumentError(
			"Invalid limit",
			fmt.Sprintf("limit must be between 1 and %d", store.MaxPageSize),
		)
	}
	return *limit, nil
}

// CreatePolicy stores a new policy with a server-assigned id. A zero priority
// places the policy last among policies of its type.
func (s *PolicyServiceImpl) CreatePolicy(ctx context.Context, policy v1.Policy, activate *bool) (v1.Policy, error) {
	if policy == nil {
		return nil, NewInvalidArgumentError("policy is required", "The request body must contain a policy")
	}
	base := policy.Base()
	if err := validateName(base.Name); err != nil {
		return nil, err
	}
	if err := validatePriority(base.Priority); err != nil {
		return nil, err
	}
	status, err := resolveStatus(base.Status, activate)
	if err != nil {
		return nil, err
	}

	dbPolicy, err := APIToDBModel(policy, newID(policyIDPrefix))
	if err != nil {
		return nil, NewInvalidArgumentError("Invalid policy", err.Error())
	}
	dbPolicy.Status = string(status)
	if dbPolicy.Priority == 0 {
		next, err := s.store.Policy().NextPriority(ctx, dbPolicy.PolicyType)
		if err != nil {
			return nil, NewInternalError("Failed to create policy", err.Error(), err)
		}
		dbPolicy.Priority = next
	}

	created, err := s.store.Policy().Create(ctx, dbPolicy)
	if err != nil {
		return nil, processPolicyStoreError(err, dbPolicy.ID, dbPolicy.Name, dbPolicy.PolicyType, "create")
	}
	s.observer.Observe("policy", "create", created.PolicyType)
	log.Ctx(ctx).Info().Str("policy_id", created.ID).Str("type", created.PolicyType).Str("status", created.Status).Msg("policy created")

	return s.toAPI(created)
}

// GetPolicy retrieves a policy by ID.
func (s *PolicyServiceImpl) GetPolicy(ctx context.Context, id string) (v1.Policy, error) {
	dbPolicy, err := s.store.Policy().Get(ctx, id)
	if err != nil {
		return nil, processPolicyStoreError(err, id, "", "", "get")
	}
	return s.toAPI(dbPolicy)
}

// ListPolicies lists policies of one type, ordered by priority.
func (s *PolicyServiceImpl) ListPolicies(ctx context.Context, opts ListPoliciesOptions) (*PolicyPage, error) {
	if opts.Type == "" {
		return nil, NewInvalidArgumentError("type is required", "Policies can only be listed for a single type")
	}
	if !v1.PolicyType(opts.Type).Valid() {
		return nil, NewInvalidArgumentError("Invalid policy type", fmt.Sprintf("Policy type '%s' is not supported", opts.Type))
	}
	status, err := parseStatusFilter(opts.Status)
	if err != nil {
		return nil, err
	}
	size, err := pageSize(opts.Limit)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Policy().List(ctx, &store.PolicyListOptions{
		Filter: &store.PolicyFilter{
			PolicyType: &opts.Type,
			Status:     status,
		},
		PageToken: opts.After,
		PageSize:  size,
	})
	if err != nil {
		return nil, processPolicyStoreError(err, "", "", opts.Type, "list")
	}

	page := &PolicyPage{
		Policies:   make([]v1.Policy, 0, len(result.Policies)),
		NextCursor: result.NextPageToken,
	}
	for i := range result.Policies {
		p, err := s.toAPI(&result.Policies[i])
		if err != nil {
			return nil, err
		}
		page.Policies = append(page.Policies, p)
	}
	return page, nil
}

// UpdatePolicy replaces the mutable fields of a policy. The type cannot
// change and a zero priority keeps the current one.
func (s *PolicyServiceImpl) UpdatePolicy(ctx context.Context, id string, policy v1.Policy) (v1.Policy, error) {
	if policy == nil {
		return nil, NewInvalidArgumentError("policy is required", "The request body must contain a policy")
	}
	base := policy.Base()
	if base.ID != "" && base.ID != id {
		return nil, NewInvalidArgumentError(
			"Policy ID mismatch",
			fmt.Sprintf("The body id '%s' does not match the path id '%s'", base.ID, id),
		)
	}
	if err := validateName(base.Name); err != nil {
		return nil, err
	}
	if err := validatePriority(base.Priority); err != nil {
		return nil, err
	}

	existing, err := s.store.Policy().Get(ctx, id)
	if err != nil {
		return nil, processPolicyStoreError(err, id, base.Name, "", "update")
	}
	if string(policy.PolicyType()) != existing.PolicyType {
		return nil, NewInvalidArgumentError(
			"Policy type is immutable",
			fmt.Sprintf("Policy '%s' is of type '%s' and cannot become '%s'", id, existing.PolicyType, policy.PolicyType()),
		)
	}

	dbPolicy, err := APIToDBModel(policy, id)
	if err != nil {
		return nil, NewInvalidArgumentError("Invalid policy", err.Error())
	}
	if dbPolicy.Priority == 0 {
		dbPolicy.Priority = existing.Priority
	}

	updated, err := s.store.Policy().Update(ctx, dbPolicy)
	if err != nil {
		return nil, processPolicyStoreError(err, id, dbPolicy.Name, dbPolicy.PolicyType, "update")
	}
	s.observer.Observe("policy", "update", updated.PolicyType)

	return s.toAPI(updated)
}

// ActivatePolicy sets the policy ACTIVE. Activating an active policy is a no-op.
func (s *PolicyServiceImpl) ActivatePolicy(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, v1.StatusActive, "activate")
}

// DeactivatePolicy sets the policy INACTIVE. Deactivating an inactive policy is a no-op.
func (s *PolicyServiceImpl) DeactivatePolicy(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, v1.StatusInactive, "deactivate")
}

func (s *PolicyServiceImpl) setStatus(ctx context.Context, id string, status v1.Status, operation string) error {
	existing, err := s.store.Policy().Get(ctx, id)
	if err != nil {
		return processPolicyStoreError(err, id, "", "", operation)
	}
	if existing.Status == string(status) {
		return nil
	}
	if err := s.store.Policy().SetStatus(ctx, id, string(status)); err != nil {
		return processPolicyStoreError(err, id, "", "", operation)
	}
	s.observer.Observe("policy", operation, existing.PolicyType)
	log.Ctx(ctx).Info().Str("policy_id", id).Str("status", string(status)).Msg("policy status changed")
	return nil
}

// DeletePolicy removes an inactive, non-system policy and all of its rules.
func (s *PolicyServiceImpl) DeletePolicy(ctx context.Context, id string) error {
	existing, err := s.store.Policy().Get(ctx, id)
	if err != nil {
		return processPolicyStoreError(err, id, "", "", "delete")
	}
	if existing.System {
		return NewInvalidArgumentError(
			"Cannot delete a system policy",
			fmt.Sprintf("Policy '%s' is a system policy", id),
		)
	}
	if existing.Status == string(v1.StatusActive) {
		return NewActiveResourceError("policy", id)
	}
	if err := s.store.Policy().Delete(ctx, id); err != nil {
		return processPolicyStoreError(err, id, "", "", "delete")
	}
	s.observer.Observe("policy", "delete", existing.PolicyType)
	log.Ctx(ctx).Info().Str("policy_id", id).Msg("policy deleted")
	return nil
}

// SeedDefaultPolicies creates one system default policy per type. Types that
// already have one are skipped, so seeding is safe to repeat.
func (s *PolicyServiceImpl) SeedDefaultPolicies(ctx context.Context) error {
	for _, t := range v1.PolicyTypes {
		policy, err := v1.NewPolicy(t)
		if err != nil {
			return err
		}
		dbPolicy, err := APIToDBModel(policy, newID(policyIDPrefix))
		if err != nil {
			return err
		}
		dbPolicy.Name = DefaultPolicyName
		dbPolicy.Description = "The default policy applies in all situations if no other policy applies."
		dbPolicy.Status = string(v1.StatusActive)
		dbPolicy.System = true
		dbPolicy.Priority = 1

		_, err = s.store.Policy().Create(ctx, dbPolicy)
		switch {
		case err == nil:
			log.Ctx(ctx).Info().Str("type", string(t)).Msg("seeded default policy")
		case errors.Is(err, store.ErrPolicyNameTaken):
		default:
			return fmt.Errorf("seed %s default policy: %w", t, err)
		}
	}
	return nil
}

func (s *PolicyServiceImpl) toAPI(dbPolicy *model.Policy) (v1.Policy, error) {
	p, err := DBToAPIModel(dbPolicy)
	if err != nil {
		return nil, NewInternalError("Failed to read policy", err.Error(), err)
	}
	return p, nil
}
