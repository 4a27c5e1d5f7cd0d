package domain

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var errMissingSchemeOrHost = errors.New("registrable domain: missing scheme or host")

// RegistrableDomain extracts the registrable, public-suffix-aware
// domain of a URL (glossary: "Domain") — the eTLD+1, or the bare host
// when the host has no recognized public suffix (e.g. "localhost", an
// IP literal). This is the single definition of "domain" shared by
// the Frontier Manager and the Politeness Enforcer, so exclusion,
// seeded-only, and robots/crawl-delay caching all key on the same
// value regardless of which subdomain a URL names.
func RegistrableDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return "", errMissingSchemeOrHost
	}

	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// No recognized public suffix: fall back to the host itself.
		return host, nil
	}

	return registrable, nil
}
