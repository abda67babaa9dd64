package oauthwire

import (
	"regexp"
	"strings"
)

var paramPattern = regexp.MustCompile(`(\w+)="([^"]*)"`)

// ParseWWWAuthenticate parses a WWW-Authenticate header value of the form
//
//	Bearer realm="...", error="invalid_token", resource_metadata="https://rs.example/.well-known/oauth-protected-resource"
func ParseWWWAuthenticate(header string) *WWWAuthenticateParams {
	if header == "" {
		return nil
	}

	parts := strings.SplitN(header, " ", 2)
	params := &WWWAuthenticateParams{Scheme: strings.TrimSpace(parts[0])}
	if len(parts) == 1 {
		return params
	}

	for _, match := range paramPattern.FindAllStringSubmatch(parts[1], -1) {
		if len(match) != 3 {
			continue
		}
		switch strings.ToLower(match[1]) {
		case "realm":
			params.Realm = match[2]
		case "scope":
			params.Scope = match[2]
		case "error":
			params.Error = match[2]
		case "error_description":
			params.ErrorDescription = match[2]
		case "resource_metadata":
			params.ResourceMetadataURL = match[2]
		}
	}

	return params
}
