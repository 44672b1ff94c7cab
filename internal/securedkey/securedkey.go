// Package securedkey derives secured API keys: search parameters signed with
// a private API key so the search service can enforce them server-side.
package securedkey

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/brizzai/searchkit/internal/params"
)

const signatureLen = sha256.Size * 2

var (
	// ErrUnsupportedParams is returned for a params argument of an unknown shape.
	ErrUnsupportedParams = errors.New("unsupported secured key parameters")
	// ErrMalformedKey is returned when a token cannot be decoded.
	ErrMalformedKey = errors.New("malformed secured api key")
)

// GenerateSecuredAPIKey signs search parameters with privateKey.
//
// p selects how the parameter string is built:
//   - []string: tag filters; userToken, when set, is added to the parameters
//   - string without '=': a single tag filter value, sent as tagFilters=<p>
//   - string with '=': an already encoded query string, used verbatim
//   - params.Params or map[string]any: canonicalized as-is; userToken is ignored
//
// For both string forms a non-empty userToken is appended as &userToken=<escaped>.
// The token is base64(hex(HMAC-SHA256(privateKey, paramString)) + paramString).
func GenerateSecuredAPIKey(privateKey string, p any, userToken string) (string, error) {
	paramString, err := buildParamString(p, userToken)
	if err != nil {
		return "", err
	}
	return encode(sign(privateKey, paramString), paramString), nil
}

func buildParamString(p any, userToken string) (string, error) {
	switch v := p.(type) {
	case []string:
		ps := params.Params{"tagFilters": v}
		if userToken != "" {
			ps["userToken"] = userToken
		}
		return params.Encode(ps), nil
	case string:
		s := v
		if !strings.Contains(s, "=") {
			s = "tagFilters=" + s
		}
		if userToken != "" {
			s += "&userToken=" + params.EscapeComponent(userToken)
		}
		return s, nil
	case params.Params:
		return params.Encode(v), nil
	case map[string]any:
		return params.Encode(params.Params(v)), nil
	case nil:
		return "", fmt.Errorf("%w: nil", ErrUnsupportedParams)
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedParams, p)
	}
}

func sign(privateKey, paramString string) string {
	mac := hmac.New(sha256.New, []byte(privateKey))
	mac.Write([]byte(paramString))
	return hex.EncodeToString(mac.Sum(nil))
}

func encode(signature, paramString string) string {
	return base64.StdEncoding.EncodeToString([]byte(signature + paramString))
}

// Decode splits a secured API key into its hex signature and parameter string.
func Decode(token string) (signature, paramString string, err error) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(raw) < signatureLen {
		return "", "", fmt.Errorf("%w: %d bytes", ErrMalformedKey, len(raw))
	}
	signature = string(raw[:signatureLen])
	if _, err := hex.DecodeString(signature); err != nil {
		return "", "", fmt.Errorf("%w: signature is not hex", ErrMalformedKey)
	}
	return signature, string(raw[signatureLen:]), nil
}

// Verify reports whether token was signed with privateKey.
func Verify(privateKey, token string) (bool, error) {
	signature, paramString, err := Decode(token)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(signature), []byte(sign(privateKey, paramString))), nil
}
