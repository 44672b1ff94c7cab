package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brizzai/searchkit/internal/config"
	"github.com/brizzai/searchkit/internal/requester"
	"github.com/brizzai/searchkit/internal/securedkey"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, sub *cobra.Command, args ...string) (string, error) {
	t.Helper()
	root := &cobra.Command{Use: "searchkit", SilenceUsage: true, SilenceErrors: true}
	config.InitFlags(root.PersistentFlags())
	root.AddCommand(sub)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{sub.Name()}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSecuredKeyCmd(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		restriction any
		userToken   string
		wantErr     bool
	}{
		{
			name:        "single tag",
			args:        []string{"--private-key", "parent", "--tag", "user_42"},
			restriction: "user_42",
		},
		{
			name:        "tag list with user token",
			args:        []string{"--private-key", "parent", "--tag-filters", "public,user_42", "--user-token", "u42"},
			restriction: []string{"public", "user_42"},
			userToken:   "u42",
		},
		{
			name:        "raw params",
			args:        []string{"--private-key", "parent", "--params", "filters=brand:acme&validUntil=1700000000"},
			restriction: "filters=brand:acme&validUntil=1700000000",
		},
		{
			name:    "missing restriction",
			args:    []string{"--private-key", "parent"},
			wantErr: true,
		},
		{
			name:    "two restrictions",
			args:    []string{"--private-key", "parent", "--tag", "a", "--params", "b=c"},
			wantErr: true,
		},
		{
			name:    "missing private key",
			args:    []string{"--tag", "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, newSecuredKeyCmd(), tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			want, err := securedkey.GenerateSecuredAPIKey("parent", tt.restriction, tt.userToken)
			require.NoError(t, err)
			assert.Equal(t, want, strings.TrimSpace(out))

			ok, err := securedkey.Verify("parent", strings.TrimSpace(out))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func writeConfig(t *testing.T, host string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	cfg := fmt.Sprintf(`endpoint:
  app_id: APPID
  api_key: secret
  protocol: "http:"
  hosts: ["%s"]
logging:
  level: error
`, host)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o600))
}

func TestRequestCmd(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "APPID", r.Header.Get(requester.HeaderApplicationID))
		assert.Equal(t, "secret", r.Header.Get(requester.HeaderAPIKey))
		if r.URL.Path == "/1/indexes/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Index does not exist"}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"name":"products"}],"page":` + r.URL.Query().Get("page") + `}`))
	}))
	defer backend.Close()
	writeConfig(t, strings.TrimPrefix(backend.URL, "http://"))

	t.Run("json output", func(t *testing.T) {
		out, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes", "--query", "page=2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"items":[{"name":"products"}],"page":2}`, out)
	})

	t.Run("yaml output", func(t *testing.T) {
		out, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes", "-q", "page=1", "-o", "yaml")
		require.NoError(t, err)
		assert.Equal(t, "items:\n  - name: products\npage: 1\n", out)
	})

	t.Run("error status", func(t *testing.T) {
		out, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes/missing")
		assert.EqualError(t, err, "HTTP Error 404")
		assert.Contains(t, out, "Index does not exist")
	})

	t.Run("invalid body", func(t *testing.T) {
		_, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes", "--method", "POST", "--data", "{nope")
		assert.Error(t, err)
	})

	t.Run("unknown output", func(t *testing.T) {
		_, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes", "-o", "xml")
		assert.Error(t, err)
	})
}

func TestRequestCmd_SecuredKey(t *testing.T) {
	key, err := securedkey.GenerateSecuredAPIKey("secret", "user_42", "")
	require.NoError(t, err)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "APPID", r.Header.Get(requester.HeaderApplicationID))
		assert.Equal(t, key, r.Header.Get(requester.HeaderAPIKey))
		_, _ = w.Write([]byte(`{"hits":[]}`))
	}))
	defer backend.Close()
	writeConfig(t, strings.TrimPrefix(backend.URL, "http://"))

	out, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes/products", "--secured-key", key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":[]}`, out)
}

func TestRequestCmd_MissingCredentials(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEARCHKIT_ENDPOINT_APP_ID", "")
	t.Setenv("SEARCHKIT_ENDPOINT_API_KEY", "")
	_, err := runCommand(t, newRequestCmd(), "--path", "/1/indexes")
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCommand(t, newVersionCmd())
	require.NoError(t, err)
	assert.Equal(t, config.GetVersionInfo(), strings.TrimSpace(out))
}
