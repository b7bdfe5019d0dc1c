//go:build e2e

package e2e_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/pkg/client"
)

var _ = Describe("Policy Rule Operations", func() {
	var policyID string

	addRule := func(rule v1.PolicyRule) v1.PolicyRule {
		GinkgoHelper()
		created, err := apiClient.AddPolicyRule(ctx, rule, policyID)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = apiClient.DeactivatePolicyRule(ctx, policyID, created.RuleBase().ID)
			_ = apiClient.DeletePolicyRule(ctx, policyID, created.RuleBase().ID)
		})
		return created
	}

	createPolicy := func(p v1.Policy) {
		GinkgoHelper()
		created, err := apiClient.CreatePolicy(ctx, p, nil)
		Expect(err).NotTo(HaveOccurred())
		policyID = created.Base().ID
		DeferCleanup(func() {
			_ = apiClient.DeactivatePolicy(ctx, policyID)
			_ = apiClient.DeletePolicy(ctx, policyID)
		})
	}

	signOnRule := func(prefix string, authType v1.AuthType, access v1.Access) *v1.OktaSignOnPolicyRule {
		return &v1.OktaSignOnPolicyRule{
			PolicyRuleBase: v1.PolicyRuleBase{Name: uniqueName(prefix)},
			Conditions: &v1.OktaSignOnPolicyRuleConditions{
				People:      &v1.PeopleCondition{Users: &v1.UserCondition{}},
				AuthContext: &v1.AuthContextCondition{AuthType: authType},
			},
			Actions: &v1.OktaSignOnPolicyRuleActions{
				Signon: &v1.SignonAction{
					Access: access,
					Session: &v1.SignonSessionAction{
						UsePersistentCookie:       v1.Ptr(false),
						MaxSessionIdleMinutes:     v1.Ptr(720),
						MaxSessionLifetimeMinutes: v1.Ptr(0),
					},
				},
			},
		}
	}

	Context("sign-on policy", func() {
		BeforeEach(func() {
			createPolicy(&v1.OktaSignOnPolicy{
				PolicyBase: v1.PolicyBase{Name: uniqueName("SignOnRules"), Description: defaultDescription},
			})
		})

		It("should create an on-prem sign-on rule", func() {
			rule := signOnRule("CreateOktaSignOnOnPremPolicyRule", v1.AuthTypeAny, v1.AccessAllow)
			rule.Actions.Signon.RequireFactor = v1.Ptr(false)

			created := addRule(rule)

			got, err := client.GetPolicyRuleAs[*v1.OktaSignOnPolicyRule](ctx, apiClient, policyID, created.RuleBase().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal(rule.Name))
			Expect(got.Actions.Signon.Access).To(Equal(v1.AccessAllow))
			Expect(*got.Actions.Signon.RequireFactor).To(BeFalse())
			Expect(*got.Actions.Signon.Session.UsePersistentCookie).To(BeFalse())
			Expect(*got.Actions.Signon.Session.MaxSessionIdleMinutes).To(Equal(720))
			Expect(*got.Actions.Signon.Session.MaxSessionLifetimeMinutes).To(Equal(0))
			Expect(got.Conditions.AuthContext.AuthType).To(Equal(v1.AuthTypeAny))
			Expect(got.Conditions.Network.Connection).To(Equal(v1.NetworkConnectionAnywhere))
			Expect(got.Conditions.People.Users.Include).To(BeEmpty())
			Expect(got.Conditions.People.Users.Exclude).To(BeEmpty())
		})

		It("should create a radius sign-on rule", func() {
			rule := signOnRule("CreateOktaSignOnRadiusPolicyRule", v1.AuthTypeRadius, v1.AccessAllow)
			rule.Actions.Signon.RequireFactor = v1.Ptr(false)

			created := addRule(rule)

			got, err := client.GetPolicyRuleAs[*v1.OktaSignOnPolicyRule](ctx, apiClient, policyID, created.RuleBase().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Conditions.AuthContext.AuthType).To(Equal(v1.AuthTypeRadius))
			Expect(*got.Actions.Signon.Session.MaxSessionIdleMinutes).To(Equal(720))
		})

		It("should create a cloud sign-on rule that requires a factor", func() {
			rule := signOnRule("CreateOktaSignOnCloudPolicyRule", v1.AuthTypeAny, v1.AccessAllow)
			rule.Actions.Signon.RequireFactor = v1.Ptr(true)
			rule.Actions.Signon.FactorPromptMode = v1.FactorPromptModeAlways
			rule.Actions.Signon.RememberDeviceByDefault = v1.Ptr(false)

			created := addRule(rule)

			got, err := client.GetPolicyRuleAs[*v1.OktaSignOnPolicyRule](ctx, apiClient, policyID, created.RuleBase().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.Actions.Signon.RequireFactor).To(BeTrue())
			Expect(got.Actions.Signon.FactorPromptMode).To(Equal(v1.FactorPromptModeAlways))
			Expect(*got.Actions.Signon.RememberDeviceByDefault).To(BeFalse())
		})

		It("should create a deny sign-on rule", func() {
			rule := signOnRule("CreateOktaSignOnDenyPolicyRule", v1.AuthTypeAny, v1.AccessDeny)

			created := addRule(rule)

			got, err := client.GetPolicyRuleAs[*v1.OktaSignOnPolicyRule](ctx, apiClient, policyID, created.RuleBase().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Actions.Signon.Access).To(Equal(v1.AccessDeny))
		})

		It("should update a sign-on rule", func() {
			created := addRule(signOnRule("UpdateOktaSignOnPolicyRule", v1.AuthTypeAny, v1.AccessAllow))

			replacement := signOnRule("UpdateOktaSignOnPolicyRule renamed", v1.AuthTypeAny, v1.AccessDeny)
			updated, err := apiClient.UpdatePolicyRule(ctx, replacement, policyID, created.RuleBase().ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.RuleBase().ID).To(Equal(created.RuleBase().ID))
			Expect(updated.RuleBase().Name).To(Equal(replacement.Name))
			Expect(updated.(*v1.OktaSignOnPolicyRule).Actions.Signon.Access).To(Equal(v1.AccessDeny))
		})

		It("should list the rules of a policy", func() {
			first := addRule(signOnRule("GetPolicyRules one", v1.AuthTypeAny, v1.AccessAllow))
			second := addRule(signOnRule("GetPolicyRules two", v1.AuthTypeAny, v1.AccessDeny))

			rules, err := client.Collect(apiClient.ListPolicyRules(ctx, policyID, nil))

			Expect(err).NotTo(HaveOccurred())
			var ids []string
			for _, r := range rules {
				ids = append(ids, r.RuleBase().ID)
			}
			Expect(ids).To(ContainElements(first.RuleBase().ID, second.RuleBase().ID))
		})

		It("should get a rule", func() {
			created := addRule(signOnRule("GetPolicyRule", v1.AuthTypeAny, v1.AccessAllow))

			got, err := apiClient.GetPolicyRule(ctx, policyID, created.RuleBase().ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleBase().Name).To(Equal(created.RuleBase().Name))
			Expect(got.RuleType()).To(Equal(v1.PolicyRuleTypeSignOn))
		})

		It("should delete a rule", func() {
			created := addRule(signOnRule("DeletePolicyRule", v1.AuthTypeAny, v1.AccessAllow))
			ruleID := created.RuleBase().ID

			Expect(apiClient.DeactivatePolicyRule(ctx, policyID, ruleID)).To(Succeed())
			Expect(apiClient.DeletePolicyRule(ctx, policyID, ruleID)).To(Succeed())

			_, err := apiClient.GetPolicyRule(ctx, policyID, ruleID)
			Expect(client.IsNotFound(err)).To(BeTrue())
		})

		It("should deactivate and reactivate a rule", func() {
			created := addRule(signOnRule("DeactivatePolicyRule", v1.AuthTypeAny, v1.AccessAllow))
			ruleID := created.RuleBase().ID
			Expect(created.RuleBase().Status).To(Equal(v1.StatusActive))

			Expect(apiClient.DeactivatePolicyRule(ctx, policyID, ruleID)).To(Succeed())
			got, err := apiClient.GetPolicyRule(ctx, policyID, ruleID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleBase().Status).To(Equal(v1.StatusInactive))

			Expect(apiClient.ActivatePolicyRule(ctx, policyID, ruleID)).To(Succeed())
			got, err = apiClient.GetPolicyRule(ctx, policyID, ruleID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleBase().Status).To(Equal(v1.StatusActive))
		})
	})

	Context("password policy", func() {
		BeforeEach(func() {
			createPolicy(&v1.PasswordPolicy{
				PolicyBase: v1.PolicyBase{Name: uniqueName("PasswordRules"), Description: defaultDescription},
			})
		})

		passwordRule := func(prefix string) *v1.PasswordPolicyRule {
			return &v1.PasswordPolicyRule{
				PolicyRuleBase: v1.PolicyRuleBase{Name: uniqueName(prefix)},
				Actions: &v1.PasswordPolicyRuleActions{
					PasswordChange:           &v1.PasswordPolicyRuleAction{Access: v1.AccessAllow},
					SelfServicePasswordReset: &v1.PasswordPolicyRuleAction{Access: v1.AccessAllow},
					SelfServiceUnlock:        &v1.PasswordPolicyRuleAction{Access: v1.AccessDeny},
				},
			}
		}

		It("should create a password rule", func() {
			created := addRule(passwordRule("CreatePasswordPolicyRule"))

			got, err := client.GetPolicyRuleAs[*v1.PasswordPolicyRule](ctx, apiClient, policyID, created.RuleBase().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Actions.PasswordChange.Access).To(Equal(v1.AccessAllow))
			Expect(got.Actions.SelfServicePasswordReset.Access).To(Equal(v1.AccessAllow))
			Expect(got.Actions.SelfServiceUnlock.Access).To(Equal(v1.AccessDeny))
			Expect(got.Conditions.Network.Connection).To(Equal(v1.NetworkConnectionAnywhere))
		})

		It("should update a password rule", func() {
			created := addRule(passwordRule("UpdatePasswordPolicyRule"))

			replacement := passwordRule("UpdatePasswordPolicyRule renamed")
			replacement.Actions.SelfServiceUnlock.Access = v1.AccessAllow
			updated, err := apiClient.UpdatePolicyRule(ctx, replacement, policyID, created.RuleBase().ID)

			Expect(err).NotTo(HaveOccurred())
			rule, ok := updated.(*v1.PasswordPolicyRule)
			Expect(ok).To(BeTrue())
			Expect(rule.Name).To(Equal(replacement.Name))
			Expect(rule.Actions.SelfServiceUnlock.Access).To(Equal(v1.AccessAllow))
		})

		It("should activate an inactive rule", func() {
			created := addRule(passwordRule("ActivateAnInactivePolicyRule"))
			ruleID := created.RuleBase().ID
			Expect(apiClient.DeactivatePolicyRule(ctx, policyID, ruleID)).To(Succeed())

			Expect(apiClient.ActivatePolicyRule(ctx, policyID, ruleID)).To(Succeed())

			got, err := apiClient.GetPolicyRule(ctx, policyID, ruleID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.RuleBase().Status).To(Equal(v1.StatusActive))
		})

		It("should reject a sign-on rule under a password policy", func() {
			_, err := apiClient.AddPolicyRule(ctx, signOnRule("MismatchedRule", v1.AuthTypeAny, v1.AccessAllow), policyID)
			Expect(client.IsValidation(err)).To(BeTrue())
		})
	})
})
