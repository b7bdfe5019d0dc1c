// Package v1 holds the wire model of the policy API: policies, policy rules,
// their polymorphic conditions and actions, and the error body returned by
// the service.
package v1

import (
	"errors"
	"time"
)

// MaxNameLength is the longest policy or rule name the service accepts.
const MaxNameLength = 50

var (
	ErrUnknownPolicyType = errors.New("unknown policy type")
	ErrUnknownRuleType   = errors.New("unknown policy rule type")
)

// PolicyType discriminates the Policy variants.
type PolicyType string

const (
	PolicyTypeOktaSignOn   PolicyType = "OKTA_SIGN_ON"
	PolicyTypePassword     PolicyType = "PASSWORD"
	PolicyTypeMFAEnroll    PolicyType = "MFA_ENROLL"
	PolicyTypeIDPDiscovery PolicyType = "IDP_DISCOVERY"
)

// PolicyTypes lists every supported policy type.
var PolicyTypes = []PolicyType{
	PolicyTypeOktaSignOn,
	PolicyTypePassword,
	PolicyTypeMFAEnroll,
	PolicyTypeIDPDiscovery,
}

// Valid reports whether t is a known policy type.
func (t PolicyType) Valid() bool {
	_, ok := ruleTypes[t]
	return ok
}

// PolicyRuleType discriminates the PolicyRule variants.
type PolicyRuleType string

const (
	PolicyRuleTypeSignOn       PolicyRuleType = "SIGN_ON"
	PolicyRuleTypePassword     PolicyRuleType = "PASSWORD"
	PolicyRuleTypeMFAEnroll    PolicyRuleType = "MFA_ENROLL"
	PolicyRuleTypeIDPDiscovery PolicyRuleType = "IDP_DISCOVERY"
)

var ruleTypes = map[PolicyType]PolicyRuleType{
	PolicyTypeOktaSignOn:   PolicyRuleTypeSignOn,
	PolicyTypePassword:     PolicyRuleTypePassword,
	PolicyTypeMFAEnroll:    PolicyRuleTypeMFAEnroll,
	PolicyTypeIDPDiscovery: PolicyRuleTypeIDPDiscovery,
}

// RuleTypeFor returns the only rule type a policy of type t may own.
func RuleTypeFor(t PolicyType) (PolicyRuleType, bool) {
	rt, ok := ruleTypes[t]
	return rt, ok
}

// Status is the lifecycle state shared by policies and rules.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Access is the decision a rule action applies.
type Access string

const (
	AccessAllow Access = "ALLOW"
	AccessDeny  Access = "DENY"
)

// NetworkConnection selects which networks a network condition matches.
type NetworkConnection string

const (
	NetworkConnectionAnywhere NetworkConnection = "ANYWHERE"
	NetworkConnectionZone     NetworkConnection = "ZONE"
)

// AuthType restricts a sign-on rule to an authentication context.
type AuthType string

const (
	AuthTypeAny    AuthType = "ANY"
	AuthTypeRadius AuthType = "RADIUS"
)

// FactorPromptMode controls how often a second factor is requested.
type FactorPromptMode string

const (
	FactorPromptModeAlways  FactorPromptMode = "ALWAYS"
	FactorPromptModeDevice  FactorPromptMode = "DEVICE"
	FactorPromptModeSession FactorPromptMode = "SESSION"
)

// PolicyBase carries the fields every policy variant shares.
type PolicyBase struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	Type        PolicyType `json:"type"`
	Status      Status     `json:"status,omitempty"`
	Description string     `json:"description,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	System      bool       `json:"system,omitempty"`
	Created     *time.Time `json:"created,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// Base gives access to the shared fields of any variant.
func (b *PolicyBase) Base() *PolicyBase { return b }

// PolicyRuleBase carries the fields every rule variant shares.
type PolicyRuleBase struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Type        PolicyRuleType `json:"type"`
	Status      Status         `json:"status,omitempty"`
	Priority    int            `json:"priority,omitempty"`
	System      bool           `json:"system,omitempty"`
	Created     *time.Time     `json:"created,omitempty"`
	LastUpdated *time.Time     `json:"lastUpdated,omitempty"`
}

// RuleBase gives access to the shared fields of any rule variant.
func (b *PolicyRuleBase) RuleBase() *PolicyRuleBase { return b }

// Ptr returns a pointer to v, for optional scalar fields.
func Ptr[T any](v T) *T {
	return &v
}
