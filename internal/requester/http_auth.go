package requester

import (
	"fmt"

	"github.com/brizzai/searchkit/internal/config"
)

const (
	HeaderApplicationID = "X-Algolia-Application-Id"
	HeaderAPIKey        = "X-Algolia-API-Key"
)

// AuthManager handles request authentication
type AuthManager interface {
	ApplyAuth(headers map[string]string) error
}

// HTTPAuthManager sends the application id and API key as headers.
type HTTPAuthManager struct {
	appID  string
	apiKey string
}

// NewHTTPAuthManager creates a new HTTPAuthManager
func NewHTTPAuthManager(endpoint *config.EndpointConfig) *HTTPAuthManager {
	return &HTTPAuthManager{
		appID:  endpoint.AppID,
		apiKey: endpoint.APIKey,
	}
}

// WithAPIKey returns a copy authenticating with apiKey, e.g. a secured key.
func (a *HTTPAuthManager) WithAPIKey(apiKey string) *HTTPAuthManager {
	return &HTTPAuthManager{appID: a.appID, apiKey: apiKey}
}

// ApplyAuth adds the credential headers. With neither value configured the
// request is left anonymous.
func (a *HTTPAuthManager) ApplyAuth(headers map[string]string) error {
	switch {
	case a.appID == "" && a.apiKey == "":
		return nil
	case a.appID == "":
		return fmt.Errorf("api key configured without an application id")
	case a.apiKey == "":
		return fmt.Errorf("application id %s configured without an api key", a.appID)
	}
	headers[HeaderApplicationID] = a.appID
	headers[HeaderAPIKey] = a.apiKey
	return nil
}
