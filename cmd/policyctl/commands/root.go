package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dcm-project/policy-sdk/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// rootOptions carries the persistent flags to every subcommand.
type rootOptions struct {
	configPath string
	orgURL     string
	token      string
	verbose    bool
}

// Execute runs the root command
func Execute(ctx context.Context, version, commit string) error {
	return NewRootCommand(version, commit).ExecuteContext(ctx)
}

// NewRootCommand builds the command tree.
func NewRootCommand(version, commit string) *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "policyctl",
		Short: "Manage policies and policy rules",
		Long: `policyctl drives the policy API from the command line.

Connection settings come from the policy.client section of --config, then
POLICY_CLIENT_* environment variables, then --org-url and --token.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "client config file path")
	rootCmd.PersistentFlags().StringVar(&opts.orgURL, "org-url", "", "base URL of the policy API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "API token")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every HTTP request")

	rootCmd.AddCommand(newPoliciesCommand(opts))
	rootCmd.AddCommand(newRulesCommand(opts))

	return rootCmd
}

func (o *rootOptions) client() (*client.Client, error) {
	cfg, err := client.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.orgURL != "" {
		cfg.OrgURL = o.orgURL
	}
	if o.token != "" {
		cfg.Token = o.token
	}

	var clientOpts []client.Option
	if o.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		clientOpts = append(clientOpts, client.WithLogger(log.Logger))
	}
	return client.New(cfg, clientOpts...)
}

// printJSON writes v indented, followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readDocument loads a JSON or YAML file and returns it as JSON. "-" reads stdin.
func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	case ".json":
		return data, nil
	}
	if json.Valid(data) {
		return data, nil
	}
	return yamlToJSON(data)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	return json.Marshal(doc)
}
