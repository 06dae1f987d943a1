// Package directory defines the harvested entity model and the paginated
// directory crawl that produces it.
package directory

import (
	"fmt"
	"net/url"
	"strings"
)

// Entity is one accepted directory listing. Immutable once accepted; owned
// by the partition that produced it until the partitions are merged.
type Entity struct {
	IdentityKey  string `json:"identity_key"`
	Name         string `json:"name"`
	ProfileURL   string `json:"profile_url"`
	WebsiteURL   string `json:"website_url,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Description  string `json:"description,omitempty"`
	WebsiteValid bool   `json:"website_valid"`
}

// IdentityKeyFor derives the dedup key for a listing from its profile link,
// resolved against the directory base URL and canonicalized. Repeated DOM
// renders of the same listing always map to the same key.
func IdentityKeyFor(baseURL, href string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse profile href: %w", err)
	}
	return canonicalURL(base.ResolveReference(ref)), nil
}

// canonicalURL standardizes a URL to avoid duplicates. It lowercases the
// scheme and host, removes default ports and fragments, and sorts query
// parameters.
func canonicalURL(u *url.URL) string {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	u.Fragment = ""
	u.RawQuery = u.Query().Encode()

	return u.String()
}

// NormalizeWebsiteURL fills in a default scheme for bare hostnames as they
// appear in directory listings ("acme.com" rather than "http://acme.com").
func NormalizeWebsiteURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "http://" + raw
	}
	return raw
}
