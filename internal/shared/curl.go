// Utilities for turning a browser "Copy as cURL" capture into ytmusicapi
// browser credentials.
package shared

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CurlHeaders represents parsed headers and cookies from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

var (
	headerRegex = regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
)

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(path string) (*CurlHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers.
//
// Handles both -H 'cookie: ...' and -b '...' cookie forms produced by
// browser DevTools.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		headerLine := match[1]
		if headerLine == "" {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if strings.EqualFold(key, "cookie") {
			cookie = value
		} else {
			headers[key] = value
		}
	}

	if cookie == "" {
		if m := cookieRegex.FindStringSubmatch(curlCmd); len(m) > 1 {
			cookie = m[1]
			if cookie == "" {
				cookie = m[2]
			}
		}
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("no headers found in curl command")
	}

	return &CurlHeaders{Headers: headers, Cookie: cookie}, nil
}

// ToHeadersRaw converts parsed headers to the newline-separated "Key: Value"
// format ytmusicapi expects for browser authentication.
func (c *CurlHeaders) ToHeadersRaw() string {
	var lines []string

	for key, value := range c.Headers {
		lines = append(lines, fmt.Sprintf("%s: %s", key, value))
	}

	if c.Cookie != "" {
		lines = append(lines, fmt.Sprintf("cookie: %s", c.Cookie))
	}

	return strings.Join(lines, "\n")
}

// WriteBrowserJSON writes the parsed headers to a browser.json credentials
// file consumable by the YouTube Music proxy.
func (c *CurlHeaders) WriteBrowserJSON(path string) error {
	if c.Cookie == "" {
		return fmt.Errorf("%w: capture did not include a cookie header", ErrMissingCredentials)
	}

	payload := make(map[string]string, len(c.Headers)+1)
	for key, value := range c.Headers {
		payload[strings.ToLower(key)] = value
	}
	payload["cookie"] = c.Cookie

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal browser credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write browser credentials: %w", err)
	}

	return nil
}
