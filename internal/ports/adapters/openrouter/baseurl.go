package openrouter

import (
	"fmt"
	"net/url"
	"strings"
)

const defaultBaseURL = "https://openrouter.ai"

var defaultAllowedHosts = []string{"openrouter.ai", "api.openrouter.ai"}

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// ValidateBaseURL accepts only absolute https URLs whose host is in
// allowedHosts (openrouter.ai hosts when empty). The key is sent to this
// host as a bearer token.
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("openrouter base url: %w", err)
	}

	var problem string
	switch {
	case !u.IsAbs() || u.Hostname() == "":
		problem = "absolute URL with host is required"
	case u.User != nil:
		problem = "userinfo is not allowed"
	case u.RawQuery != "" || u.Fragment != "":
		problem = "query and fragment are not allowed"
	case !strings.EqualFold(u.Scheme, "https"):
		problem = "https is required"
	case !hostAllowed(u.Hostname(), allowedHosts):
		problem = fmt.Sprintf("host %q is not in the allowed hosts", strings.ToLower(u.Hostname()))
	}
	if problem != "" {
		return fmt.Errorf("openrouter base url %q: %s", baseURL, problem)
	}
	return nil
}

func hostAllowed(host string, allowed []string) bool {
	host = strings.ToLower(host)
	list := cleanHosts(allowed)
	if len(list) == 0 {
		list = defaultAllowedHosts
	}
	for _, h := range list {
		if h == host {
			return true
		}
	}
	return false
}

// cleanHosts strips schemes, ports and slashes from configured host entries.
func cleanHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.Index(v, ":"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
