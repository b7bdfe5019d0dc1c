package service

import (
	"github.com/brunoga/deep/v4"
	v1 "github.com/dcm-project/policy-sdk/api/v1"
)

const (
	DefaultSessionIdleMinutes     = 120
	DefaultSessionLifetimeMinutes = 0
)

var (
	defaultNetwork = v1.NetworkCondition{Connection: v1.NetworkConnectionAnywhere}

	defaultPasswordActions = v1.PasswordPolicyRuleActions{
		PasswordChange:           &v1.PasswordPolicyRuleAction{Access: v1.AccessAllow},
		SelfServicePasswordReset: &v1.PasswordPolicyRuleAction{Access: v1.AccessAllow},
		SelfServiceUnlock:        &v1.PasswordPolicyRuleAction{Access: v1.AccessDeny},
	}

	defaultSession = v1.SignonSessionAction{
		UsePersistentCookie:       v1.Ptr(false),
		MaxSessionIdleMinutes:     v1.Ptr(DefaultSessionIdleMinutes),
		MaxSessionLifetimeMinutes: v1.Ptr(DefaultSessionLifetimeMinutes),
	}
)

// applyRuleDefaults returns a copy of rule with every server-defaulted field
// filled in. The input is left untouched.
func applyRuleDefaults(rule v1.PolicyRule) (v1.PolicyRule, error) {
	out, err := deep.Copy(rule)
	if err != nil {
		return nil, err
	}

	switch r := out.(type) {
	case *v1.OktaSignOnPolicyRule:
		if r.Conditions == nil {
			r.Conditions = &v1.OktaSignOnPolicyRuleConditions{}
		}
		r.Conditions.Network = withDefaultNetwork(r.Conditions.Network)
		if r.Actions == nil {
			r.Actions = &v1.OktaSignOnPolicyRuleActions{}
		}
		if r.Actions.Signon == nil {
			r.Actions.Signon = &v1.SignonAction{Access: v1.AccessAllow}
		}
		signon := r.Actions.Signon
		if signon.Access == "" {
			signon.Access = v1.AccessAllow
		}
		if signon.Session == nil {
			signon.Session = &v1.SignonSessionAction{}
		}
		fillSession(signon.Session)
	case *v1.PasswordPolicyRule:
		if r.Conditions == nil {
			r.Conditions = &v1.PasswordPolicyRuleConditions{}
		}
		r.Conditions.Network = withDefaultNetwork(r.Conditions.Network)
		if r.Actions == nil {
			r.Actions = &v1.PasswordPolicyRuleActions{}
		}
		r.Actions.PasswordChange = withDefaultAccess(r.Actions.PasswordChange, defaultPasswordActions.PasswordChange)
		r.Actions.SelfServicePasswordReset = withDefaultAccess(r.Actions.SelfServicePasswordReset, defaultPasswordActions.SelfServicePasswordReset)
		r.Actions.SelfServiceUnlock = withDefaultAccess(r.Actions.SelfServiceUnlock, defaultPasswordActions.SelfServiceUnlock)
	case *v1.MFAEnrollPolicyRule:
		if r.Conditions == nil {
			r.Conditions = &v1.MFAEnrollPolicyRuleConditions{}
		}
		r.Conditions.Network = withDefaultNetwork(r.Conditions.Network)
	case *v1.IDPDiscoveryPolicyRule:
		if r.Conditions == nil {
			r.Conditions = &v1.IDPDiscoveryPolicyRuleConditions{}
		}
		r.Conditions.Network = withDefaultNetwork(r.Conditions.Network)
	}
	return out, nil
}

func withDefaultNetwork(n *v1.NetworkCondition) *v1.NetworkCondition {
	if n == nil {
		n = &v1.NetworkCondition{}
	}
	if n.Connection == "" {
		n.Connection = defaultNetwork.Connection
	}
	return n
}

func withDefaultAccess(a, def *v1.PasswordPolicyRuleAction) *v1.PasswordPolicyRuleAction {
	if a == nil {
		return &v1.PasswordPolicyRuleAction{Access: def.Access}
	}
	if a.Access == "" {
		a.Access = def.Access
	}
	return a
}

func fillSession(s *v1.SignonSessionAction) {
	if s.UsePersistentCookie == nil {
		s.UsePersistentCookie = v1.Ptr(*defaultSession.UsePersistentCookie)
	}
	if s.MaxSessionIdleMinutes == nil {
		s.MaxSessionIdleMinutes = v1.Ptr(*defaultSession.MaxSessionIdleMinutes)
	}
	if s.MaxSessionLifetimeMinutes == nil {
		s.MaxSessionLifetimeMinutes = v1.Ptr(*defaultSession.MaxSessionLifetimeMinutes)
	}
}
