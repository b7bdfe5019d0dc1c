package v1

import (
	"encoding/json"
	"fmt"
)

// Policy is the closed set of policy variants. The concrete type always
// matches the value of the type discriminator.
type Policy interface {
	Base() *PolicyBase
	PolicyType() PolicyType
	isPolicy()
}

type OktaSignOnPolicy struct {
	PolicyBase
	Conditions *OktaSignOnPolicyConditions `json:"conditions,omitempty"`
}

type PasswordPolicy struct {
	PolicyBase
	Conditions *PasswordPolicyConditions `json:"conditions,omitempty"`
	Settings   *PasswordPolicySettings   `json:"settings,omitempty"`
}

type MFAEnrollPolicy struct {
	PolicyBase
	Conditions *MFAEnrollPolicyConditions `json:"conditions,omitempty"`
	Settings   *MFAEnrollPolicySettings   `json:"settings,omitempty"`
}

type IDPDiscoveryPolicy struct {
	PolicyBase
	Conditions *IDPDiscoveryPolicyConditions `json:"conditions,omitempty"`
}

func (*OktaSignOnPolicy) PolicyType() PolicyType   { return PolicyTypeOktaSignOn }
func (*PasswordPolicy) PolicyType() PolicyType     { return PolicyTypePassword }
func (*MFAEnrollPolicy) PolicyType() PolicyType    { return PolicyTypeMFAEnroll }
func (*IDPDiscoveryPolicy) PolicyType() PolicyType { return PolicyTypeIDPDiscovery }

func (*OktaSignOnPolicy) isPolicy()   {}
func (*PasswordPolicy) isPolicy()     {}
func (*MFAEnrollPolicy) isPolicy()    {}
func (*IDPDiscoveryPolicy) isPolicy() {}

// The type field is stamped from the variant so a value can never be sent
// with a discriminator that disagrees with its shape.

func (p OktaSignOnPolicy) MarshalJSON() ([]byte, error) {
	type wire OktaSignOnPolicy
	p.Type = PolicyTypeOktaSignOn
	return json.Marshal(wire(p))
}

func (p PasswordPolicy) MarshalJSON() ([]byte, error) {
	type wire PasswordPolicy
	p.Type = PolicyTypePassword
	return json.Marshal(wire(p))
}

func (p MFAEnrollPolicy) MarshalJSON() ([]byte, error) {
	type wire MFAEnrollPolicy
	p.Type = PolicyTypeMFAEnroll
	return json.Marshal(wire(p))
}

func (p IDPDiscoveryPolicy) MarshalJSON() ([]byte, error) {
	type wire IDPDiscoveryPolicy
	p.Type = PolicyTypeIDPDiscovery
	return json.Marshal(wire(p))
}

// NewPolicy returns an empty variant for t with its type field set.
func NewPolicy(t PolicyType) (Policy, error) {
	var p Policy
	switch t {
	case PolicyTypeOktaSignOn:
		p = &OktaSignOnPolicy{}
	case PolicyTypePassword:
		p = &PasswordPolicy{}
	case PolicyTypeMFAEnroll:
		p = &MFAEnrollPolicy{}
	case PolicyTypeIDPDiscovery:
		p = &IDPDiscoveryPolicy{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicyType, t)
	}
	p.Base().Type = t
	return p, nil
}

// UnmarshalPolicy decodes a single policy, choosing the variant from the
// type discriminator.
func UnmarshalPolicy(data []byte) (Policy, error) {
	var head struct {
		Type PolicyType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	p, err := NewPolicy(head.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode %s policy: %w", head.Type, err)
	}
	return p, nil
}

// UnmarshalPolicies decodes a JSON array of policies of mixed types.
func UnmarshalPolicies(data []byte) ([]Policy, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	policies := make([]Policy, 0, len(raw))
	for _, item := range raw {
		p, err := UnmarshalPolicy(item)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, nil
}
