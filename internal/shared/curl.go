// Utilities for turning a captured cURL command into a credential bundle.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var (
	headerRegex = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// strippedHeaders are dropped before persisting; the proxy cannot decode compressed responses.
var strippedHeaders = []string{"accept-encoding"}

// CredentialBundle is the set of browser request headers used to authenticate playlist creation.
//
// Keys are lower-cased header names.
type CredentialBundle struct {
	Headers map[string]string
	// Warnings collects non-fatal problems found while parsing, such as a missing authorization header.
	Warnings []string
}

// ParseCurlFile reads a file containing a cURL command and extracts a credential bundle.
func ParseCurlFile(path string) (*CredentialBundle, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command and extracts its headers and cookies.
//
// A cookie passed with -b/--cookie takes precedence over a cookie header.
// A missing cookie is an error; a missing authorization header is recorded as a warning.
func ParseCurlCommand(curlCmd string) (*CredentialBundle, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\r\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")

	headers := make(map[string]string)
	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		line := firstNonEmpty(match[1], match[2])
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}

	if m := cookieRegex.FindStringSubmatch(curlCmd); m != nil {
		headers["cookie"] = firstNonEmpty(m[1], m[2])
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrInvalidCredentials)
	}

	for _, h := range strippedHeaders {
		delete(headers, h)
	}

	bundle := &CredentialBundle{Headers: headers}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	if bundle.Headers["authorization"] == "" {
		bundle.Warnings = append(bundle.Warnings, "no authorization header found, playlist creation may fail")
	}

	return bundle, nil
}

// Validate checks that the bundle carries a cookie.
func (b *CredentialBundle) Validate() error {
	if b == nil || strings.TrimSpace(b.Headers["cookie"]) == "" {
		return fmt.Errorf("%w: cookie header is required", ErrMissingCredentials)
	}
	return nil
}

// Save writes the bundle as JSON to path with owner-only permissions.
//
// The file is written to a temporary sibling and renamed so readers never see a partial bundle.
func (b *CredentialBundle) Save(path string) error {
	if err := b.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(b.Headers, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode credential bundle: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bundle-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential bundle: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credential bundle: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to save credential bundle: %w", err)
	}
	return nil
}

// Keys returns the header names in sorted order.
func (b *CredentialBundle) Keys() []string {
	keys := make([]string, 0, len(b.Headers))
	for k := range b.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadCredentialBundle reads and validates a bundle previously written by [CredentialBundle.Save].
func LoadCredentialBundle(path string) (*CredentialBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no credential bundle at %s", ErrNotAuthenticated, path)
		}
		return nil, fmt.Errorf("failed to read credential bundle: %w", err)
	}

	headers := make(map[string]string)
	if err := json.Unmarshal(data, &headers); err != nil {
		return nil, fmt.Errorf("%w: malformed credential bundle: %v", ErrInvalidCredentials, err)
	}

	bundle := &CredentialBundle{Headers: headers}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
