package commands

import (
	"context"
	"fmt"
	"strings"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/pkg/client"
	"github.com/spf13/cobra"
)

func newPoliciesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "policies",
		Aliases: []string{"policy"},
		Short:   "Manage policies",
	}
	cmd.AddCommand(
		newPoliciesListCommand(root),
		newPoliciesGetCommand(root),
		newPoliciesCreateCommand(root),
		newPoliciesUpdateCommand(root),
		newPolicyLifecycleCommand(root, "activate", "Set a policy ACTIVE", (*client.Client).ActivatePolicy),
		newPolicyLifecycleCommand(root, "deactivate", "Set a policy INACTIVE", (*client.Client).DeactivatePolicy),
		newPolicyLifecycleCommand(root, "delete", "Delete an inactive policy", (*client.Client).DeletePolicy),
	)
	return cmd
}

func policyTypeNames() string {
	names := make([]string, len(v1.PolicyTypes))
	for i, t := range v1.PolicyTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func newPoliciesListCommand(root *rootOptions) *cobra.Command {
	var (
		policyType string
		status     string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List policies of one type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := v1.PolicyType(strings.ToUpper(policyType))
			if !t.Valid() {
				return fmt.Errorf("--type must be one of %s", policyTypeNames())
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			policies, err := client.Collect(c.ListPolicies(cmd.Context(), &client.ListPoliciesOptions{
				Type:   t,
				Status: v1.Status(strings.ToUpper(status)),
				Limit:  limit,
			}))
			if err != nil {
				return err
			}
			if policies == nil {
				policies = []v1.Policy{}
			}
			return printJSON(cmd.OutOrStdout(), policies)
		},
	}
	cmd.Flags().StringVarP(&policyType, "type", "t", "", "policy type ("+policyTypeNames()+")")
	cmd.Flags().StringVar(&status, "status", "", "only ACTIVE or INACTIVE policies")
	cmd.Flags().IntVar(&limit, "page-size", 0, "policies fetched per request")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newPoliciesGetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get POLICY_ID",
		Short: "Show a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			policy, err := c.GetPolicy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), policy)
		},
	}
}

func newPoliciesCreateCommand(root *rootOptions) *cobra.Command {
	var (
		file     string
		inactive bool
	)
	cmd := &cobra.Command{
		Use:   "create -f FILE",
		Short: "Create a policy from a JSON or YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := readPolicy(cmd, file)
			if err != nil {
				return err
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			var opts *client.CreatePolicyOptions
			if inactive {
				opts = &client.CreatePolicyOptions{Activate: v1.Ptr(false)}
			}
			created, err := c.CreatePolicy(cmd.Context(), policy, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `policy document ("-" for stdin)`)
	cmd.Flags().BoolVar(&inactive, "inactive", false, "create the policy INACTIVE")
	return cmd
}

func newPoliciesUpdateCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update POLICY_ID -f FILE",
		Short: "Replace a policy from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := readPolicy(cmd, file)
			if err != nil {
				return err
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			updated, err := c.UpdatePolicy(cmd.Context(), policy, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `policy document ("-" for stdin)`)
	return cmd
}

type policyAction func(c *client.Client, ctx context.Context, policyID string) error

func newPolicyLifecycleCommand(root *rootOptions, use, short string, action policyAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " POLICY_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			if err := action(c, cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "policy %s: %s done\n", args[0], use)
			return err
		},
	}
}

func readPolicy(cmd *cobra.Command, file string) (v1.Policy, error) {
	doc, err := readDocument(file, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return v1.UnmarshalPolicy(doc)
}
