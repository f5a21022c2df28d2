package service

import (
	"strings"

	"github.com/mssola/useragent"
)

// summarizeUserAgent condenses a raw User-Agent header into a short
// "browser/version on os" label for the login log.
func summarizeUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "unknown"
	}

	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return "unknown"
	}

	var b strings.Builder
	b.WriteString(name)
	if version != "" {
		b.WriteByte('/')
		b.WriteString(version)
	}
	if os := ua.OS(); os != "" {
		b.WriteString(" on ")
		b.WriteString(os)
	}
	return b.String()
}
