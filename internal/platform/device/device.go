// Package device turns a raw User-Agent header into a short human-readable
// descriptor for login-event records.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Describe returns "browser major / os (platform)", e.g.
// "chrome 120 / linux (desktop)". Unknown inputs degrade to "unknown".
func Describe(userAgentString string) string {
	if strings.TrimSpace(userAgentString) == "" {
		return "unknown"
	}

	ua := useragent.New(userAgentString)
	browser, version := ua.Browser()

	major := "unknown"
	if version != "" {
		if parts := strings.Split(version, "."); len(parts) > 0 && parts[0] != "" {
			major = parts[0]
		}
	}

	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	} else if ua.Bot() {
		platform = "bot"
	}

	return fmt.Sprintf("%s %s / %s (%s)", browser, major, os, platform)
}
