package service_test

import (
	"context"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/internal/service"
	"github.com/dcm-project/policy-sdk/internal/store"
)

func passwordPolicy(name string) *v1.PasswordPolicy {
	return &v1.PasswordPolicy{
		PolicyBase: v1.PolicyBase{Name: name, Description: "password policy " + name},
		Conditions: &v1.PasswordPolicyConditions{
			People: &v1.PeopleCondition{Groups: &v1.GroupCondition{Include: []string{"00g1"}}},
		},
		Settings: &v1.PasswordPolicySettings{
			Password: &v1.PasswordSettings{Complexity: &v1.PasswordComplexity{MinLength: v1.Ptr(12)}},
		},
	}
}

var _ = Describe("PolicyService", func() {
	var (
		db            *gorm.DB
		dataStore     store.Store
		observer      *RecordingObserver
		policyService service.PolicyService
		ctx           context.Context
	)

	BeforeEach(func() {
		db, dataStore = openTestStore()
		observer = &RecordingObserver{}
		policyService = service.NewPolicyService(dataStore, observer)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	Describe("CreatePolicy", func() {
		It("assigns an id, timestamps and an ACTIVE status", func() {
			created, err := policyService.CreatePolicy(ctx, passwordPolicy("Strong"), nil)

			Expect(err).NotTo(HaveOccurred())
			base := created.Base()
			Expect(base.ID).To(HavePrefix("00p"))
			Expect(base.ID).To(HaveLen(20))
			Expect(base.Status).To(Equal(v1.StatusActive))
			Expect(base.Priority).To(Equal(1))
			Expect(base.Created).NotTo(BeNil())
			Expect(base.LastUpdated).NotTo(BeNil())
			Expect(observer.Events()).To(ConsistOf("policy/create/PASSWORD"))
		})

		It("keeps the variant payload", func() {
			created, err := policyService.CreatePolicy(ctx, passwordPolicy("Payload"), nil)
			Expect(err).NotTo(HaveOccurred())

			p, ok := created.(*v1.PasswordPolicy)
			Expect(ok).To(BeTrue())
			Expect(*p.Settings.Password.Complexity.MinLength).To(Equal(12))
			Expect(p.Conditions.People.Groups.Include).To(ConsistOf("00g1"))
		})

		It("creates an INACTIVE policy when activate is false", func() {
			created, err := policyService.CreatePolicy(ctx, passwordPolicy("Dormant"), v1.Ptr(false))

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Base().Status).To(Equal(v1.StatusInactive))
		})

		It("lets an explicit body status win over the activate flag", func() {
			p := passwordPolicy("Explicit")
			p.Status = v1.StatusActive

			created, err := policyService.CreatePolicy(ctx, p, v1.Ptr(false))

			Expect(err).NotTo(HaveOccurred())
			Expect(created.Base().Status).To(Equal(v1.StatusActive))
		})

		It("appends after the highest priority of the type", func() {
			first := passwordPolicy("First")
			first.Priority = 5
			_, err := policyService.CreatePolicy(ctx, first, nil)
			Expect(err).NotTo(HaveOccurred())

			second, err := policyService.CreatePolicy(ctx, passwordPolicy("Second"), nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(second.Base().Priority).To(Equal(6))
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*v1.PasswordPolicy)) {
				p := passwordPolicy("Invalid")
				mutate(p)

				_, err := policyService.CreatePolicy(ctx, p, nil)

				Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
			},
			Entry("empty name", func(p *v1.PasswordPolicy) { p.Name = "" }),
			Entry("blank name", func(p *v1.PasswordPolicy) { p.Name = "   " }),
			Entry("name over the limit", func(p *v1.PasswordPolicy) { p.Name = strings.Repeat("n", v1.MaxNameLength+1) }),
			Entry("negative priority", func(p *v1.PasswordPolicy) { p.Priority = -1 }),
			Entry("unknown status", func(p *v1.PasswordPolicy) { p.Status = "PAUSED" }),
		)

		It("accepts a name at the length limit", func() {
			_, err := policyService.CreatePolicy(ctx, passwordPolicy(strings.Repeat("n", v1.MaxNameLength)), nil)

			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects a nil policy", func() {
			_, err := policyService.CreatePolicy(ctx, nil, nil)

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("reports a duplicate name within the type as already existing", func() {
			_, err := policyService.CreatePolicy(ctx, passwordPolicy("Twin"), nil)
			Expect(err).NotTo(HaveOccurred())

			_, err = policyService.CreatePolicy(ctx, passwordPolicy("Twin"), nil)

			Expect(service.IsErrorType(err, service.ErrorTypeAlreadyExists)).To(BeTrue())
		})
	})

	Describe("GetPolicy", func() {
		It("returns the stored variant", func() {
			created, err := policyService.CreatePolicy(ctx, &v1.OktaSignOnPolicy{PolicyBase: v1.PolicyBase{Name: "Sign on"}}, nil)
			Expect(err).NotTo(HaveOccurred())

			got, err := policyService.GetPolicy(ctx, created.Base().ID)

			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeAssignableToTypeOf(&v1.OktaSignOnPolicy{}))
			Expect(got.Base().Name).To(Equal("Sign on"))
			Expect(got.Base().Type).To(Equal(v1.PolicyTypeOktaSignOn))
		})

		It("returns not found for an unknown id", func() {
			_, err := policyService.GetPolicy(ctx, "00pmissing")

			Expect(service.IsErrorType(err, service.ErrorTypeNotFound)).To(BeTrue())
		})
	})

	Describe("ListPolicies", func() {
		BeforeEach(func() {
			for i := 1; i <= 3; i++ {
				_, err := policyService.CreatePolicy(ctx, passwordPolicy(fmt.Sprintf("Password %d", i)), nil)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := policyService.CreatePolicy(ctx, passwordPolicy("Dormant"), v1.Ptr(false))
			Expect(err).NotTo(HaveOccurred())
			_, err = policyService.CreatePolicy(ctx, &v1.MFAEnrollPolicy{PolicyBase: v1.PolicyBase{Name: "MFA"}}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("requires a type", func() {
			_, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{})

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("rejects an unknown type", func() {
			_, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "ACCESS_POLICY"})

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("lists only the requested type in priority order", func() {
			page, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD"})

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(4))
			Expect(page.NextCursor).To(BeEmpty())
			for i, p := range page.Policies {
				Expect(p.PolicyType()).To(Equal(v1.PolicyTypePassword))
				Expect(p.Base().Priority).To(Equal(i + 1))
			}
		})

		It("filters by status", func() {
			page, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{
				Type:   "PASSWORD",
				Status: v1.Ptr("INACTIVE"),
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(1))
			Expect(page.Policies[0].Base().Name).To(Equal("Dormant"))
		})

		It("rejects an unknown status filter", func() {
			_, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD", Status: v1.Ptr("PAUSED")})

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("pages with the returned cursor", func() {
			page, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD", Limit: v1.Ptr(3)})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(3))
			Expect(page.NextCursor).NotTo(BeEmpty())

			page, err = policyService.ListPolicies(ctx, service.ListPoliciesOptions{
				Type:  "PASSWORD",
				Limit: v1.Ptr(3),
				After: &page.NextCursor,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Policies).To(HaveLen(1))
			Expect(page.NextCursor).To(BeEmpty())
		})

		DescribeTable("rejects an out of range limit",
			func(limit int) {
				_, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD", Limit: &limit})

				Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
			},
			Entry("zero", 0),
			Entry("negative", -5),
			Entry("above the maximum", store.MaxPageSize+1),
		)

		It("rejects a forged cursor", func() {
			_, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD", After: v1.Ptr("not a cursor")})

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})
	})

	Describe("UpdatePolicy", func() {
		var created v1.Policy

		BeforeEach(func() {
			p := passwordPolicy("Original")
			p.Priority = 4
			var err error
			created, err = policyService.CreatePolicy(ctx, p, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("replaces mutable fields and keeps priority when omitted", func() {
			replacement := passwordPolicy("Renamed")
			replacement.Settings = nil

			updated, err := policyService.UpdatePolicy(ctx, created.Base().ID, replacement)

			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Base().Name).To(Equal("Renamed"))
			Expect(updated.Base().Priority).To(Equal(4))
			Expect(updated.Base().Status).To(Equal(v1.StatusActive))
			Expect(updated.(*v1.PasswordPolicy).Settings).To(BeNil())
			Expect(observer.Events()).To(ContainElement("policy/update/PASSWORD"))
		})

		It("refuses to change the type", func() {
			_, err := policyService.UpdatePolicy(ctx, created.Base().ID, &v1.MFAEnrollPolicy{PolicyBase: v1.PolicyBase{Name: "Other"}})

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("refuses a body id that differs from the path id", func() {
			replacement := passwordPolicy("Mismatch")
			replacement.ID = "00pelsewhere"

			_, err := policyService.UpdatePolicy(ctx, created.Base().ID, replacement)

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})

		It("returns not found for an unknown id", func() {
			_, err := policyService.UpdatePolicy(ctx, "00pmissing", passwordPolicy("Missing"))

			Expect(service.IsErrorType(err, service.ErrorTypeNotFound)).To(BeTrue())
		})
	})

	Describe("lifecycle", func() {
		var id string

		BeforeEach(func() {
			created, err := policyService.CreatePolicy(ctx, passwordPolicy("Lifecycle"), nil)
			Expect(err).NotTo(HaveOccurred())
			id = created.Base().ID
		})

		It("deactivates, then deletes", func() {
			Expect(policyService.DeactivatePolicy(ctx, id)).To(Succeed())
			got, err := policyService.GetPolicy(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Base().Status).To(Equal(v1.StatusInactive))

			Expect(policyService.DeletePolicy(ctx, id)).To(Succeed())
			_, err = policyService.GetPolicy(ctx, id)
			Expect(service.IsErrorType(err, service.ErrorTypeNotFound)).To(BeTrue())
			Expect(observer.Events()).To(Equal([]string{
				"policy/create/PASSWORD",
				"policy/deactivate/PASSWORD",
				"policy/delete/PASSWORD",
			}))
		})

		It("refuses to delete an ACTIVE policy", func() {
			err := policyService.DeletePolicy(ctx, id)

			Expect(service.IsErrorType(err, service.ErrorTypeFailedPrecondition)).To(BeTrue())
		})

		It("treats activating an ACTIVE policy as a no-op", func() {
			Expect(policyService.ActivatePolicy(ctx, id)).To(Succeed())

			Expect(observer.Events()).To(Equal([]string{"policy/create/PASSWORD"}))
		})

		It("reactivates an INACTIVE policy", func() {
			Expect(policyService.DeactivatePolicy(ctx, id)).To(Succeed())
			Expect(policyService.ActivatePolicy(ctx, id)).To(Succeed())

			got, err := policyService.GetPolicy(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Base().Status).To(Equal(v1.StatusActive))
		})

		It("returns not found for an unknown id", func() {
			Expect(service.IsErrorType(policyService.ActivatePolicy(ctx, "00pmissing"), service.ErrorTypeNotFound)).To(BeTrue())
			Expect(service.IsErrorType(policyService.DeactivatePolicy(ctx, "00pmissing"), service.ErrorTypeNotFound)).To(BeTrue())
			Expect(service.IsErrorType(policyService.DeletePolicy(ctx, "00pmissing"), service.ErrorTypeNotFound)).To(BeTrue())
		})
	})

	Describe("SeedDefaultPolicies", func() {
		It("creates one system default policy per type and is repeatable", func() {
			Expect(policyService.SeedDefaultPolicies(ctx)).To(Succeed())
			Expect(policyService.SeedDefaultPolicies(ctx)).To(Succeed())

			for _, t := range v1.PolicyTypes {
				page, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: string(t)})
				Expect(err).NotTo(HaveOccurred())
				Expect(page.Policies).To(HaveLen(1))
				base := page.Policies[0].Base()
				Expect(base.Name).To(Equal(service.DefaultPolicyName))
				Expect(base.System).To(BeTrue())
				Expect(base.Status).To(Equal(v1.StatusActive))
			}
		})

		It("protects the default policy from deletion", func() {
			Expect(policyService.SeedDefaultPolicies(ctx)).To(Succeed())
			page, err := policyService.ListPolicies(ctx, service.ListPoliciesOptions{Type: "PASSWORD"})
			Expect(err).NotTo(HaveOccurred())
			id := page.Policies[0].Base().ID

			Expect(policyService.DeactivatePolicy(ctx, id)).To(Succeed())
			err = policyService.DeletePolicy(ctx, id)

			Expect(service.IsErrorType(err, service.ErrorTypeInvalidArgument)).To(BeTrue())
		})
	})
})
