package fetch

import (
	"net/url"
	"strings"
)

// Platform is a newswire or investor-relations host with a known page layout.
type Platform string

const (
	// PlatformBusinessWire is businesswire.com
	PlatformBusinessWire Platform = "businesswire"
	// PlatformPRNewswire is prnewswire.com and its regional mirrors
	PlatformPRNewswire Platform = "prnewswire"
	// PlatformGlobeNewswire is globenewswire.com
	PlatformGlobeNewswire Platform = "globenewswire"
	// PlatformQ4 covers investor sites hosted on Q4 (q4cdn, q4inc, q4web)
	PlatformQ4 Platform = "q4"
	// PlatformUnknown is an unrecognized host
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the publishing platform from a URL's host.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Hostname())
	switch {
	case hostIs(host, "businesswire.com"):
		return PlatformBusinessWire
	case hostIs(host, "prnewswire.com"), hostIs(host, "prnewswire.co.uk"), hostIs(host, "newswire.ca"):
		return PlatformPRNewswire
	case hostIs(host, "globenewswire.com"):
		return PlatformGlobeNewswire
	case hostIs(host, "q4cdn.com"), hostIs(host, "q4inc.com"), hostIs(host, "q4web.com"):
		return PlatformQ4
	default:
		return PlatformUnknown
	}
}

// hostIs reports whether host is domain or one of its subdomains.
func hostIs(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// PlatformContentSelectors returns the release body selectors for a
// platform, ahead of the generic press release selectors.
func PlatformContentSelectors(platform Platform) []string {
	var specific []string
	switch platform {
	case PlatformBusinessWire:
		specific = []string{".bw-release-story", "#bw-release-story", ".bw-release-main"}
	case PlatformPRNewswire:
		specific = []string{".release-body", "section.release-body", ".news-release-detail"}
	case PlatformGlobeNewswire:
		specific = []string{"#main-body-container", ".main-body-container", "[itemprop='articleBody']"}
	case PlatformQ4:
		specific = []string{".module_body", ".module-details_body", ".q4default"}
	}
	return append(specific, PressReleaseSelectors()...)
}

// PlatformNoiseSelectors returns elements to drop before extracting a
// platform's release text.
func PlatformNoiseSelectors(platform Platform) []string {
	// Common noise selectors for all platforms
	common := []string{
		".social-share",
		".share-buttons",
		".social-links",
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
		".newsletter-signup",
	}

	switch platform {
	case PlatformBusinessWire:
		return append(common, ".bw-release-contact", ".bw-release-sidebars", ".bw-social")
	case PlatformPRNewswire:
		return append(common, ".release-footer", ".more-news", ".prn-related")
	case PlatformGlobeNewswire:
		return append(common, ".related-news", ".article-tools", ".contact-container")
	case PlatformQ4:
		return append(common, ".module_nav", ".module-subscribe", ".module_pager")
	default:
		return common
	}
}
