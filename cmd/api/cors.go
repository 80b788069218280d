package main

import (
	"net/url"
	"strings"
)

// matchCORSOrigin allows an origin when it equals a pattern, when a pattern
// is "*", or when a pattern of the form "scheme://*.domain" covers one or
// more subdomain labels with the same scheme.
func matchCORSOrigin(origin string, patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case p == "*":
			return true
		case strings.EqualFold(strings.TrimSuffix(p, "/"), origin):
			return true
		case strings.Contains(p, "://*."):
			pu, err := url.Parse(strings.Replace(p, "*.", "wildcard.", 1))
			if err != nil {
				continue
			}
			ou, err := url.Parse(origin)
			if err != nil || ou.Scheme != pu.Scheme {
				continue
			}
			suffix := strings.TrimPrefix(pu.Host, "wildcard")
			if strings.HasSuffix(strings.ToLower(ou.Host), strings.ToLower(suffix)) && len(ou.Host) > len(suffix) {
				return true
			}
		}
	}
	return false
}
