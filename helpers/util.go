package helpers

import (
	"net/url"
	"strings"
)

// ResolveURL resolves href against base. An unparsable href is returned as is.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
