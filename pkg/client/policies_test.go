package client_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/pkg/client"
)

var _ = Describe("Policies", func() {
	var (
		emu *emulator
		c   *client.Client
		ctx context.Context
	)

	BeforeEach(func() {
		emu = startEmulator()
		c = emu.client()
		ctx = context.Background()
	})

	AfterEach(func() {
		emu.stop()
	})

	create := func(p v1.Policy) v1.Policy {
		GinkgoHelper()
		created, err := c.CreatePolicy(ctx, p, nil)
		Expect(err).NotTo(HaveOccurred())
		return created
	}

	Describe("CreatePolicy and GetPolicy", func() {
		It("round-trips a sign-on policy as its variant", func() {
			created := create(&v1.OktaSignOnPolicy{
				PolicyBase: v1.PolicyBase{Name: "Sign on", Description: "employees"},
				Conditions: &v1.OktaSignOnPolicyConditions{
					People: &v1.PeopleCondition{Groups: &v1.GroupCondition{Include: []string{"00geveryone"}}},
				},
			})

			Expect(created.Base().ID).To(HavePrefix("00p"))
			Expect(created.Base().Status).To(Equal(v1.StatusActive))

			got, err := client.GetPolicyAs[*v1.OktaSignOnPolicy](ctx, c, created.Base().ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Description).To(Equal("employees"))
			Expect(got.Conditions.People.Groups.Include).To(ConsistOf("00geveryone"))
			Expect(got.Created).NotTo(BeNil())
		})

		It("creates an inactive policy on request", func() {
			created, err := c.CreatePolicy(ctx, &v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: "Later"}},
				&client.CreatePolicyOptions{Activate: v1.Ptr(false)})

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Base().Status).To(Equal(v1.StatusInactive))
		})

		It("reports the wrong variant through ErrUnexpectedType", func() {
			created := create(&v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: "Password"}})

			_, err := client.GetPolicyAs[*v1.MFAEnrollPolicy](ctx, c, created.Base().ID)

			Expect(err).To(MatchError(client.ErrUnexpectedType))
		})

		It("returns an APIError matching ErrNotFound for a missing policy", func() {
			_, err := c.GetPolicy(ctx, "00pmissing")

			Expect(client.IsNotFound(err)).To(BeTrue())
			var apiErr *client.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.StatusCode).To(Equal(404))
			Expect(apiErr.Code).To(Equal(v1.ErrorCodeNotFound))
			Expect(apiErr.ErrorID).To(HavePrefix("oae"))
		})

		It("escapes ids so they cannot leave their path segment", func() {
			_, err := c.GetPolicy(ctx, "../policies?type=PASSWORD")

			Expect(client.IsNotFound(err)).To(BeTrue())
		})

		It("refuses empty ids and nil bodies before sending", func() {
			_, err := c.GetPolicy(ctx, "")
			Expect(err).To(MatchError(client.ErrInvalidArgument))

			_, err = c.CreatePolicy(ctx, nil, nil)
			Expect(err).To(MatchError(client.ErrInvalidArgument))
		})

		It("reports validation failures with their causes", func() {
			_, err := c.CreatePolicy(ctx, &v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: ""}}, nil)

			Expect(client.IsValidation(err)).To(BeTrue())
			var apiErr *client.APIError
			Expect(errors.As(err, &apiErr)).To(BeTrue())
			Expect(apiErr.Causes).NotTo(BeEmpty())
		})
	})

	Describe("ListPolicies", func() {
		BeforeEach(func() {
			for i := 1; i <= 5; i++ {
				create(&v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: fmt.Sprintf("Password %d", i)}})
			}
			create(&v1.IDPDiscoveryPolicy{PolicyBase: v1.PolicyBase{Name: "Discovery"}})
		})

		It("follows next links until the last page", func() {
			policies, err := client.Collect(c.ListPolicies(ctx, &client.ListPoliciesOptions{
				Type:  v1.PolicyTypePassword,
				Limit: 2,
			}))

			Expect(err).NotTo(HaveOccurred())
			Expect(policies).To(HaveLen(5))
			for i, p := range policies {
				Expect(p.Base().Name).To(Equal(fmt.Sprintf("Password %d", i+1)))
			}
		})

		It("stops fetching when the caller stops ranging", func() {
			var names []string
			for p, err := range c.ListPolicies(ctx, &client.ListPoliciesOptions{Type: v1.PolicyTypePassword, Limit: 2}) {
				Expect(err).NotTo(HaveOccurred())
				names = append(names, p.Base().Name)
				if len(names) == 3 {
					break
				}
			}

			Expect(names).To(Equal([]string{"Password 1", "Password 2", "Password 3"}))
		})

		It("fetches a single page with a resumable cursor", func() {
			page, err := c.ListPoliciesPage(ctx, &client.ListPoliciesOptions{Type: v1.PolicyTypePassword, Limit: 3})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(3))
			Expect(page.After).NotTo(BeEmpty())

			page, err = c.ListPoliciesPage(ctx, &client.ListPoliciesOptions{
				Type:  v1.PolicyTypePassword,
				Limit: 3,
				After: page.After,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(2))
			Expect(page.After).To(BeEmpty())
		})

		It("requires a type", func() {
			_, err := client.Collect(c.ListPolicies(ctx, nil))

			Expect(err).To(MatchError(client.ErrInvalidArgument))
		})

		It("filters by status", func() {
			_, err := c.CreatePolicy(ctx, &v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: "Off"}},
				&client.CreatePolicyOptions{Activate: v1.Ptr(false)})
			Expect(err).NotTo(HaveOccurred())

			policies, err := client.Collect(c.ListPolicies(ctx, &client.ListPoliciesOptions{
				Type:   v1.PolicyTypePassword,
				Status: v1.StatusInactive,
			}))

			Expect(err).NotTo(HaveOccurred())
			Expect(policies).To(HaveLen(1))
			Expect(policies[0].Base().Name).To(Equal("Off"))
		})
	})

	Describe("UpdatePolicy", func() {
		It("replaces the policy and forces the path id into the body", func() {
			created := create(&v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: "Old"}})

			replacement := &v1.PasswordPolicy{
				PolicyBase: v1.PolicyBase{ID: "00pstale", Name: "New"},
				Settings: &v1.PasswordPolicySettings{
					Password: &v1.PasswordSettings{Lockout: &v1.PasswordLockout{MaxAttempts: v1.Ptr(5)}},
				},
			}
			updated, err := c.UpdatePolicy(ctx, replacement, created.Base().ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Base().ID).To(Equal(created.Base().ID))
			Expect(updated.Base().Name).To(Equal("New"))
			Expect(*updated.(*v1.PasswordPolicy).Settings.Password.Lockout.MaxAttempts).To(Equal(5))
		})
	})

	Describe("lifecycle", func() {
		It("deactivates, reactivates and deletes", func() {
			id := create(&v1.MFAEnrollPolicy{PolicyBase: v1.PolicyBase{Name: "MFA"}}).Base().ID

			err := c.DeletePolicy(ctx, id)
			Expect(client.IsConflict(err)).To(BeTrue())

			Expect(c.DeactivatePolicy(ctx, id)).To(Succeed())
			Expect(c.ActivatePolicy(ctx, id)).To(Succeed())
			Expect(c.DeactivatePolicy(ctx, id)).To(Succeed())
			Expect(c.DeletePolicy(ctx, id)).To(Succeed())

			_, err = c.GetPolicy(ctx, id)
			Expect(client.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("authentication and transport", func() {
		It("maps a rejected token to ErrUnauthorized", func() {
			bad, err := client.New(client.Config{OrgURL: emu.server.URL, Token: "wrong"})
			Expect(err).NotTo(HaveOccurred())

			_, err = bad.GetPolicy(ctx, "00pany")

			Expect(err).To(MatchError(client.ErrUnauthorized))
		})

		It("maps an unreachable service to ErrTransport", func() {
			url := emu.server.URL
			emu.server.Close()
			offline, err := client.New(client.Config{OrgURL: url, Token: testToken})
			Expect(err).NotTo(HaveOccurred())

			_, err = offline.GetPolicy(ctx, "00pany")

			Expect(err).To(MatchError(client.ErrTransport))
		})

		It("honours context cancellation", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := c.GetPolicy(cancelled, "00pany")

			Expect(err).To(MatchError(client.ErrTransport))
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("keeps emulator logs in the spec output", func() {
			create(&v1.PasswordPolicy{PolicyBase: v1.PolicyBase{Name: "Logged"}})

			Expect(emu.logs).To(gbytes.Say(`"message":"policy created"`))
		})
	})
})
