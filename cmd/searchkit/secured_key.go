package main

import (
	"fmt"

	"github.com/brizzai/searchkit/internal/securedkey"
	"github.com/spf13/cobra"
)

type securedKeyOptions struct {
	privateKey string
	tagFilters []string
	params     string
	tag        string
	userToken  string
}

func newSecuredKeyCmd() *cobra.Command {
	opts := &securedKeyOptions{}
	cmd := &cobra.Command{
		Use:   "secured-key",
		Short: "Derive a secured API key locally",
		Example: `  searchkit secured-key --private-key KEY --tag user_42
  searchkit secured-key --private-key KEY --tag-filters public,user_42 --user-token user_42
  searchkit secured-key --private-key KEY --params 'filters=brand:acme&validUntil=1700000000'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := opts.generate()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&opts.privateKey, "private-key", "", "API key to sign with")
	fs.StringSliceVar(&opts.tagFilters, "tag-filters", nil, "Tags the key is restricted to")
	fs.StringVar(&opts.params, "params", "", "Raw query string the key is restricted to")
	fs.StringVar(&opts.tag, "tag", "", "A single tag filter expression")
	fs.StringVar(&opts.userToken, "user-token", "", "User token bound into the key")
	_ = cmd.MarkFlagRequired("private-key")
	cmd.MarkFlagsMutuallyExclusive("tag-filters", "params", "tag")
	cmd.MarkFlagsOneRequired("tag-filters", "params", "tag")
	return cmd
}

func (o *securedKeyOptions) generate() (string, error) {
	var restriction any
	switch {
	case len(o.tagFilters) > 0:
		restriction = o.tagFilters
	case o.params != "":
		restriction = o.params
	case o.tag != "":
		restriction = o.tag
	default:
		return "", fmt.Errorf("one of --tag-filters, --params or --tag is required")
	}
	return securedkey.GenerateSecuredAPIKey(o.privateKey, restriction, o.userToken)
}
