package commands

import (
	"context"
	"fmt"

	v1 "github.com/dcm-project/policy-sdk/api/v1"
	"github.com/dcm-project/policy-sdk/pkg/client"
	"github.com/spf13/cobra"
)

func newRulesCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Manage the rules of a policy",
	}
	cmd.AddCommand(
		newRulesListCommand(root),
		newRulesGetCommand(root),
		newRulesAddCommand(root),
		newRulesUpdateCommand(root),
		newRuleLifecycleCommand(root, "activate", "Set a rule ACTIVE", (*client.Client).ActivatePolicyRule),
		newRuleLifecycleCommand(root, "deactivate", "Set a rule INACTIVE", (*client.Client).DeactivatePolicyRule),
		newRuleLifecycleCommand(root, "delete", "Delete an inactive rule", (*client.Client).DeletePolicyRule),
	)
	return cmd
}

func newRulesListCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list POLICY_ID",
		Short: "List the rules of a policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			rules, err := client.Collect(c.ListPolicyRules(cmd.Context(), args[0], nil))
			if err != nil {
				return err
			}
			if rules == nil {
				rules = []v1.PolicyRule{}
			}
			return printJSON(cmd.OutOrStdout(), rules)
		},
	}
}

func newRulesGetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get POLICY_ID RULE_ID",
		Short: "Show a rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			rule, err := c.GetPolicyRule(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rule)
		},
	}
}

func newRulesAddCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "add POLICY_ID -f FILE",
		Short: "Add a rule to a policy from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := readRule(cmd, file)
			if err != nil {
				return err
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			created, err := c.AddPolicyRule(cmd.Context(), rule, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `rule document ("-" for stdin)`)
	return cmd
}

func newRulesUpdateCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "update POLICY_ID RULE_ID -f FILE",
		Short: "Replace a rule from a JSON or YAML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := readRule(cmd, file)
			if err != nil {
				return err
			}
			c, err := root.client()
			if err != nil {
				return err
			}
			updated, err := c.UpdatePolicyRule(cmd.Context(), rule, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), updated)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", `rule document ("-" for stdin)`)
	return cmd
}

type ruleAction func(c *client.Client, ctx context.Context, policyID, ruleID string) error

func newRuleLifecycleCommand(root *rootOptions, use, short string, action ruleAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " POLICY_ID RULE_ID",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.client()
			if err != nil {
				return err
			}
			if err := action(c, cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rule %s: %s done\n", args[1], use)
			return err
		},
	}
}

func readRule(cmd *cobra.Command, file string) (v1.PolicyRule, error) {
	doc, err := readDocument(file, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	return v1.UnmarshalPolicyRule(doc)
}
