package utils

import (
	"strings"
	"testing"
)

func TestMaskIPAddress_IPv4(t *testing.T) {
	masked := MaskIPAddress("192.168.10.44")
	if masked != "192.168.10.xxx" {
		t.Errorf("Expected last octet masked, got %q", masked)
	}
}

func TestMaskIPAddress_IPv6(t *testing.T) {
	masked := MaskIPAddress("2001:db8:85a3:8d3:1319:8a2e:370:7348")
	if masked != "2001:db8:85a3:8d3:1319:8a2e:370:xxxx" {
		t.Errorf("Expected last segment masked, got %q", masked)
	}
}

func TestMaskIPAddress_Invalid(t *testing.T) {
	if masked := MaskIPAddress("not-an-ip"); masked != "masked" {
		t.Errorf("Expected invalid input fully masked, got %q", masked)
	}
}

func TestMaskIPAddress_Empty(t *testing.T) {
	if masked := MaskIPAddress(""); masked != "" {
		t.Errorf("Expected empty input passthrough, got %q", masked)
	}
}

func TestSummarizeUserAgent_Empty(t *testing.T) {
	if got := SummarizeUserAgent(""); got != "" {
		t.Errorf("Expected empty summary for empty input, got %q", got)
	}
}

func TestSummarizeUserAgent_Desktop(t *testing.T) {
	ua := "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	got := SummarizeUserAgent(ua)

	if !strings.HasPrefix(got, "chrome/") {
		t.Errorf("Expected chrome browser prefix, got %q", got)
	}
	if !strings.HasSuffix(got, "/desktop") {
		t.Errorf("Expected desktop platform suffix, got %q", got)
	}
	if strings.Contains(got, "537.36") {
		t.Errorf("Raw user agent leaked into summary: %q", got)
	}
}
