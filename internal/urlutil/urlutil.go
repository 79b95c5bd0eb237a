// Package urlutil provides URL validation and domain extraction helpers.
package urlutil

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Validate reports whether raw is a syntactically usable http(s) URL.
func Validate(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" || strings.ContainsAny(host, " \t") {
		return false
	}
	return true
}

// Domain returns the registrable domain of a URL, used as the politeness
// scheduling unit. Hosts the public suffix list cannot resolve (IP addresses,
// intranet names) fall back to the bare lowercased hostname.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	etld, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return etld
}
