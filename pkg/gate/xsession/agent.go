package xsession

import "strings"

// 设备与浏览器归类值。
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"

	BrowserChrome  = "chrome"
	BrowserEdge    = "edge"
	BrowserFirefox = "firefox"
	BrowserSafari  = "safari"
	BrowserOther   = "other"
)

// ClassifyAgent 按 UA 文本归类设备与浏览器。
// 粗粒度启发式，够统计用；空 UA 归为 desktop/other。
func ClassifyAgent(userAgent string) (device, browser string) {
	ua := strings.ToLower(userAgent)

	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		device = DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "android"):
		device = DeviceMobile
	default:
		device = DeviceDesktop
	}

	// Edge 的 UA 同时带 "chrome"，Chrome/Safari 的 UA 都带 "safari"，
	// 判定顺序不能变。
	switch {
	case strings.Contains(ua, "edg"):
		browser = BrowserEdge
	case strings.Contains(ua, "chrome") || strings.Contains(ua, "crios"):
		browser = BrowserChrome
	case strings.Contains(ua, "firefox") || strings.Contains(ua, "fxios"):
		browser = BrowserFirefox
	case strings.Contains(ua, "safari"):
		browser = BrowserSafari
	default:
		browser = BrowserOther
	}
	return device, browser
}
