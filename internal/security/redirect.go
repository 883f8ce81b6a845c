package security

import (
	"net/url"
	"strings"
)

// DefaultRedirect is where unsafe redirect targets are sent instead.
const DefaultRedirect = "/index.html"

// IsValidURL reports whether raw is an absolute http or https URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsInternalURL resolves target against origin and reports whether the result
// is an http(s) URL with exactly the same origin.
func IsInternalURL(target, origin string) bool {
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return false
	}
	ref, err := url.Parse(normalizeTarget(target))
	if err != nil {
		return false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return false
	}
	return originOf(resolved) == originOf(base)
}

// SafeRedirectTarget returns the cleaned target when it stays on origin and
// DefaultRedirect otherwise.
func SafeRedirectTarget(target, origin string) string {
	if IsInternalURL(target, origin) {
		return normalizeTarget(target)
	}
	return DefaultRedirect
}

// normalizeTarget cleans target the way a browser's URL parser does before
// navigating. Backslashes count as slashes in http(s) URLs.
func normalizeTarget(target string) string {
	target = strings.TrimFunc(target, func(r rune) bool { return r <= ' ' })
	target = strings.NewReplacer("\t", "", "\n", "", "\r", "").Replace(target)
	return strings.ReplaceAll(target, `\`, "/")
}

func originOf(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	switch {
	case port == "":
	case u.Scheme == "http" && port == "80":
		port = ""
	case u.Scheme == "https" && port == "443":
		port = ""
	}
	out := u.Scheme + "://" + host
	if port != "" {
		out += ":" + port
	}
	return out
}
