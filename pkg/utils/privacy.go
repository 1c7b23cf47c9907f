package utils

import (
	"net"
	"strings"

	"github.com/mssola/useragent"
)

// MaskIPAddress masks the last IPv4 octet or last IPv6 segment of an address.
// Unparseable non-empty input returns "masked" rather than leaking the raw value.
func MaskIPAddress(ipAddress string) string {
	if ipAddress == "" {
		return ""
	}

	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return "masked"
	}

	if ip.To4() != nil {
		parts := strings.Split(ipAddress, ".")
		parts[len(parts)-1] = "xxx"
		return strings.Join(parts, ".")
	}

	parts := strings.Split(ipAddress, ":")
	parts[len(parts)-1] = "xxxx"
	return strings.Join(parts, ":")
}

// SummarizeUserAgent condenses a raw User-Agent header into "browser/os/platform"
// for audit metadata, so the full fingerprintable string never reaches the ledger.
func SummarizeUserAgent(userAgentString string) string {
	if userAgentString == "" {
		return ""
	}

	ua := useragent.New(userAgentString)
	browser, _ := ua.Browser()

	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}

	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	} else if ua.Bot() {
		platform = "bot"
	}

	return browser + "/" + os + "/" + platform
}
