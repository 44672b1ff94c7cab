package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/logger"
	"github.com/brizzai/searchkit/internal/params"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type requestOptions struct {
	method  string
	path    string
	data    string
	query   map[string]string
	timeout time.Duration
	output  string
	key     string
}

func newRequestCmd() *cobra.Command {
	opts := &requestOptions{}
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send one request to the search API and print the JSON response",
		Example: `  searchkit request --path /1/indexes
  searchkit request --method POST --path /1/indexes/products/query --data '{"params":"query=phone"}'
  searchkit request --path /1/indexes/products --secured-key "$(searchkit secured-key --private-key K --tag user_42)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRequest(cmd, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.method, "method", "X", http.MethodGet, "HTTP method")
	fs.StringVar(&opts.path, "path", "", "Path on the API host, e.g. /1/indexes")
	fs.StringVarP(&opts.data, "data", "d", "", "JSON request body")
	fs.StringToStringVarP(&opts.query, "query", "q", nil, "Query parameters as key=value")
	fs.DurationVar(&opts.timeout, "timeout", 0, "Request timeout, overrides --timeout-ms")
	fs.StringVarP(&opts.output, "output", "o", "json", "Output format (json|yaml)")
	fs.StringVar(&opts.key, "secured-key", "", "Send this secured API key instead of the configured one")
	_ = cmd.MarkFlagRequired("path")
	return cmd
}

func runRequest(cmd *cobra.Command, opts *requestOptions) error {
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unsupported output format %q", opts.output)
	}
	if opts.data != "" && !json.Valid([]byte(opts.data)) {
		return fmt.Errorf("--data is not valid JSON")
	}

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	endpoint := &cfg.Endpoint
	r := requester.NewHTTPRequester(requester.HTTPRequesterParams{
		EndpointConfig: endpoint,
		Logger:         logger.Named("searchkit"),
	})
	defer r.Destroy()
	auth := requester.NewHTTPAuthManager(endpoint)
	if opts.key != "" {
		auth = auth.WithAPIKey(opts.key)
	}
	builder := requester.NewHTTPRequestBuilder(requester.HTTPRequestBuilderParams{
		EndpointConfig: endpoint,
		AuthManager:    auth,
	})

	query := make(params.Params, len(opts.query))
	for k, v := range opts.query {
		query[k] = v
	}
	var body any
	if opts.data != "" {
		body = json.RawMessage(opts.data)
	}
	req, err := builder.BuildRequest(opts.method, opts.path, query, body)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		req.Timeout = opts.timeout
	}

	resp, err := r.Execute(commandContext(cmd), req)
	if err != nil {
		return err
	}
	if err := writeBody(cmd.OutOrStdout(), resp.Body, opts.output); err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("HTTP Error %d", resp.StatusCode)
	}
	return nil
}

func writeBody(w io.Writer, body any, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(body); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}
}

// commandContext falls back to Background for commands run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
