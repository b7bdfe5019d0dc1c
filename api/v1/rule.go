package v1

import (
	"encoding/json"
	"fmt"
)

// PolicyRule is the closed set of rule variants owned by a policy.
type PolicyRule interface {
	RuleBase() *PolicyRuleBase
	RuleType() PolicyRuleType
	isPolicyRule()
}

type OktaSignOnPolicyRule struct {
	PolicyRuleBase
	Conditions *OktaSignOnPolicyRuleConditions `json:"conditions,omitempty"`
	Actions    *OktaSignOnPolicyRuleActions    `json:"actions,omitempty"`
}

type PasswordPolicyRule struct {
	PolicyRuleBase
	Conditions *PasswordPolicyRuleConditions `json:"conditions,omitempty"`
	Actions    *PasswordPolicyRuleActions    `json:"actions,omitempty"`
}

type MFAEnrollPolicyRule struct {
	PolicyRuleBase
	Conditions *MFAEnrollPolicyRuleConditions `json:"conditions,omitempty"`
	Actions    *MFAEnrollPolicyRuleActions    `json:"actions,omitempty"`
}

type IDPDiscoveryPolicyRule struct {
	PolicyRuleBase
	Conditions *IDPDiscoveryPolicyRuleConditions `json:"conditions,omitempty"`
	Actions    *IDPDiscoveryPolicyRuleActions    `json:"actions,omitempty"`
}

func (*OktaSignOnPolicyRule) RuleType() PolicyRuleType   { return PolicyRuleTypeSignOn }
func (*PasswordPolicyRule) RuleType() PolicyRuleType     { return PolicyRuleTypePassword }
func (*MFAEnrollPolicyRule) RuleType() PolicyRuleType    { return PolicyRuleTypeMFAEnroll }
func (*IDPDiscoveryPolicyRule) RuleType() PolicyRuleType { return PolicyRuleTypeIDPDiscovery }

func (*OktaSignOnPolicyRule) isPolicyRule()   {}
func (*PasswordPolicyRule) isPolicyRule()     {}
func (*MFAEnrollPolicyRule) isPolicyRule()    {}
func (*IDPDiscoveryPolicyRule) isPolicyRule() {}

func (r OktaSignOnPolicyRule) MarshalJSON() ([]byte, error) {
	type wire OktaSignOnPolicyRule
	r.Type = PolicyRuleTypeSignOn
	return json.Marshal(wire(r))
}

func (r PasswordPolicyRule) MarshalJSON() ([]byte, error) {
	type wire PasswordPolicyRule
	r.Type = PolicyRuleTypePassword
	return json.Marshal(wire(r))
}

func (r MFAEnrollPolicyRule) MarshalJSON() ([]byte, error) {
	type wire MFAEnrollPolicyRule
	r.Type = PolicyRuleTypeMFAEnroll
	return json.Marshal(wire(r))
}

func (r IDPDiscoveryPolicyRule) MarshalJSON() ([]byte, error) {
	type wire IDPDiscoveryPolicyRule
	r.Type = PolicyRuleTypeIDPDiscovery
	return json.Marshal(wire(r))
}

// NewPolicyRule returns an empty variant for t with its type field set.
func NewPolicyRule(t PolicyRuleType) (PolicyRule, error) {
	var r PolicyRule
	switch t {
	case PolicyRuleTypeSignOn:
		r = &OktaSignOnPolicyRule{}
	case PolicyRuleTypePassword:
		r = &PasswordPolicyRule{}
	case PolicyRuleTypeMFAEnroll:
		r = &MFAEnrollPolicyRule{}
	case PolicyRuleTypeIDPDiscovery:
		r = &IDPDiscoveryPolicyRule{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleType, t)
	}
	r.RuleBase().Type = t
	return r, nil
}

// UnmarshalPolicyRule decodes a single rule, choosing the variant from the
// type discriminator.
func UnmarshalPolicyRule(data []byte) (PolicyRule, error) {
	var head struct {
		Type PolicyRuleType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	r, err := NewPolicyRule(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s rule: %w", head.Type, err)
	}
	return r, nil
}

// UnmarshalPolicyRules decodes a JSON array of rules.
func UnmarshalPolicyRules(data []byte) ([]PolicyRule, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	rules := make([]PolicyRule, 0, len(raw))
	for _, item := range raw {
		r, err := UnmarshalPolicyRule(item)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}
