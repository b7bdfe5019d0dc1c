package service

import (
	"context"
	"fmt"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/store"
	"github.com/dcm-project/policy-sdk/internal/store/model"
	"github.com/rs/zerolog/log"
)

// ListRulesOptions pages through the rules of one policy.
type ListRulesOptions struct {
	After *string
	Limit *int
}

// RulePage is one page of a rule listing.
type RulePage struct {
	Rules      []v1.PolicyRule
	NextCursor string
}

// RuleService defines the business logic for rules nested under a policy.
type RuleService interface {
	AddPolicyRule(ctx context.Context, policyID string, rule v1.PolicyRule, activate *bool) (v1.PolicyRule, error)
	GetPolicyRule(ctx context.Context, policyID, ruleID string) (v1.PolicyRule, error)
	ListPolicyRules(ctx context.Context, policyID string, opts ListRulesOptions) (*RulePage, error)
	UpdatePolicyRule(ctx context.Context, policyID, ruleID string, rule v1.PolicyRule) (v1.PolicyRule, error)
	ActivatePolicyRule(ctx context.Context, policyID, ruleID string) error
	DeactivatePolicyRule(ctx context.Context, policyID, ruleID string) error
	DeletePolicyRule(ctx context.Context, policyID, ruleID string) error
}

// RuleServiceImpl implements RuleService.
type RuleServiceImpl struct {
	store    store.Store
	observer Observer
}

var _ RuleService = (*RuleServiceImpl)(nil)

func NewRuleService(store store.Store, observer Observer) *RuleServiceImpl {
	if observer == nil {
		observer = nopObserver{}
	}
	return &RuleServiceImpl{
		store:    store,
		observer: observer,
	}
}

// parent loads the owning policy and checks that it admits rules of type rt.
// An empty rt skips the type check.
func (s *RuleServiceImpl) parent(ctx context.Context, policyID string, rt v1.PolicyRuleType, operation string) (*model.Policy, error) {
	policy, err := s.store.Policy().Get(ctx, policyID)
	if err != nil {
		return nil, processPolicyStoreError(err, policyID, "", "", operation)
	}
	if rt == "" {
		return policy, nil
	}
	want, ok := v1.RuleTypeFor(v1.PolicyType(policy.PolicyType))
	if !ok || want != rt {
		return nil, NewInvalidArgumentError(
			"Rule type does not match policy type",
			fmt.Sprintf("A %s policy only accepts %s rules, got %s", policy.PolicyType, want, rt),
		)
	}
	return policy, nil
}

func validateRule(rule v1.PolicyRule) error {
	if rule == nil {
		return NewInvalidArgumentError("rule is required", "The request body must contain a policy rule")
	}
	base := rule.RuleBase()
	if err := validateName(base.Name); err != nil {
		return err
	}
	return validatePriority(base.Priority)
}

// AddPolicyRule creates a rule under policyID with server defaults applied.
func (s *RuleServiceImpl) AddPolicyRule(ctx context.Context, policyID string, rule v1.PolicyRule, activate *bool) (v1.PolicyRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if _, err := s.parent(ctx, policyID, rule.RuleType(), "add rule to"); err != nil {
		return nil, err
	}
	status, err := resolveStatus(rule.RuleBase().Status, activate)
	if err != nil {
		return nil, err
	}

	defaulted, err := applyRuleDefaults(rule)
	if err != nil {
		return nil, NewInternalError("Failed to add policy rule", err.Error(), err)
	}
	dbRule, err := APIToDBRule(defaulted, policyID, newID(ruleIDPrefix))
	if err != nil {
		return nil, NewInvalidArgumentError("Invalid policy rule", err.Error())
	}
	dbRule.Status = string(status)
	if dbRule.Priority == 0 {
		next, err := s.store.Rule().NextPriority(ctx, policyID)
		if err != nil {
			return nil, NewInternalError("Failed to add policy rule", err.Error(), err)
		}
		dbRule.Priority = next
	}

	created, err := s.store.Rule().Create(ctx, dbRule)
	if err != nil {
		return nil, processRuleStoreError(err, policyID, dbRule.ID, dbRule.Name, "create")
	}
	s.observer.Observe("rule", "create", created.RuleType)
	log.Ctx(ctx).Info().Str("policy_id", policyID).Str("rule_id", created.ID).Str("type", created.RuleType).Msg("policy rule added")

	return toAPIRule(created)
}

// GetPolicyRule retrieves one rule of a policy.
func (s *RuleServiceImpl) GetPolicyRule(ctx context.Context, policyID, ruleID string) (v1.PolicyRule, error) {
	dbRule, err := s.store.Rule().Get(ctx, policyID, ruleID)
	if err != nil {
		return nil, processRuleStoreError(err, policyID, ruleID, "", "get")
	}
	return toAPIRule(dbRule)
}

// ListPolicyRules lists the rules of a policy in priority order. An unknown
// policy is reported as not found rather than as an empty list.
func (s *RuleServiceImpl) ListPolicyRules(ctx context.Context, policyID string, opts ListRulesOptions) (*RulePage, error) {
	if _, err := s.parent(ctx, policyID, "", "list rules of"); err != nil {
		return nil, err
	}
	size, err := pageSize(opts.Limit)
	if err != nil {
		return nil, err
	}

	result, err := s.store.Rule().List(ctx, policyID, &store.RuleListOptions{
		PageToken: opts.After,
		PageSize:  size,
	})
	if err != nil {
		return nil, processRuleStoreError(err, policyID, "", "", "list")
	}

	page := &RulePage{
		Rules:      make([]v1.PolicyRule, 0, len(result.Rules)),
		NextCursor: result.NextPageToken,
	}
	for i := range result.Rules {
		r, err := toAPIRule(&result.Rules[i])
		if err != nil {
			return nil, err
		}
		page.Rules = append(page.Rules, r)
	}
	return page, nil
}

// UpdatePolicyRule replaces a rule. Omitted defaulted fields are filled in
// again, so an update never leaves a rule without its server defaults.
func (s *RuleServiceImpl) UpdatePolicyRule(ctx context.Context, policyID, ruleID string, rule v1.PolicyRule) (v1.PolicyRule, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	base := rule.RuleBase()
	if base.ID != "" && base.ID != ruleID {
		return nil, NewInvalidArgumentError(
			"Policy rule ID mismatch",
			fmt.Sprintf("The body id '%s' does not match the path id '%s'", base.ID, ruleID),
		)
	}

	existing, err := s.store.Rule().Get(ctx, policyID, ruleID)
	if err != nil {
		return nil, processRuleStoreError(err, policyID, ruleID, base.Name, "update")
	}
	if string(rule.RuleType()) != existing.RuleType {
		return nil, NewInvalidArgumentError(
			"Policy rule type is immutable",
			fmt.Sprintf("Rule '%s' is of type '%s' and cannot become '%s'", ruleID, existing.RuleType, rule.RuleType()),
		)
	}

	defaulted, err := applyRuleDefaults(rule)
	if err != nil {
		return nil, NewInternalError("Failed to update policy rule", err.Error(), err)
	}
	dbRule, err := APIToDBRule(defaulted, policyID, ruleID)
	if err != nil {
		return nil, NewInvalidArgumentError("Invalid policy rule", err.Error())
	}
	if dbRule.Priority == 0 {
		dbRule.Priority = existing.Priority
	}

	updated, err := s.store.Rule().Update(ctx, dbRule)
	if err != nil {
		return nil, processRuleStoreError(err, policyID, ruleID, dbRule.Name, "update")
	}
	s.observer.Observe("rule", "update", updated.RuleType)

	return toAPIRule(updated)
}

func (s *RuleServiceImpl) ActivatePolicyRule(ctx context.Context, policyID, ruleID string) error {
	return s.setStatus(ctx, policyID, ruleID, v1.StatusActive, "activate")
}

func (s *RuleServiceImpl) DeactivatePolicyRule(ctx context.Context, policyID, ruleID string) error {
	return s.setStatus(ctx, policyID, ruleID, v1.StatusInactive, "deactivate")
}

func (s *RuleServiceImpl) setStatus(ctx context.Context, policyID, ruleID string, status v1.Status, operation string) error {
	existing, err := s.store.Rule().Get(ctx, policyID, ruleID)
	if err != nil {
		return processRuleStoreError(err, policyID, ruleID, "", operation)
	}
	if existing.Status == string(status) {
		return nil
	}
	if err := s.store.Rule().SetStatus(ctx, policyID, ruleID, string(status)); err != nil {
		return processRuleStoreError(err, policyID, ruleID, "", operation)
	}
	s.observer.Observe("rule", operation, existing.RuleType)
	log.Ctx(ctx).Info().Str("policy_id", policyID).Str("rule_id", ruleID).Str("status", string(status)).Msg("policy rule status changed")
	return nil
}

// DeletePolicyRule removes an inactive, non-system rule.
func (s *RuleServiceImpl) DeletePolicyRule(ctx context.Context, policyID, ruleID string) error {
	existing, err := s.store.Rule().Get(ctx, policyID, ruleID)
	if err != nil {
		return processRuleStoreError(err, policyID, ruleID, "", "delete")
	}
	if existing.System {
		return NewInvalidArgumentError(
			"Cannot delete a system rule",
			fmt.Sprintf("Rule '%s' is a system rule", ruleID),
		)
	}
	if existing.Status == string(v1.StatusActive) {
		return NewActiveResourceError("policy rule", ruleID)
	}
	if err := s.store.Rule().Delete(ctx, policyID, ruleID); err != nil {
		return processRuleStoreError(err, policyID, ruleID, "", "delete")
	}
	s.observer.Observe("rule", "delete", existing.RuleType)
	log.Ctx(ctx).Info().Str("policy_id", policyID).Str("rule_id", ruleID).Msg("policy rule deleted")
	return nil
}

func toAPIRule(dbRule *model.PolicyRule) (v1.PolicyRule, error) {
	r, err := DBToAPIRule(dbRule)
	if err != nil {
		return nil, NewInternalError("Failed to read policy rule", err.Error(), err)
	}
	return r, nil
}
