package driver

import (
	"fmt"
	"math/rand"
	"net/http"
)

// StealthProfile is the browser fingerprint presented to visited sites.
type StealthProfile struct {
	ViewportWidth       int
	ViewportHeight      int
	Language            string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
}

// DefaultStealthProfile picks a common desktop fingerprint.
func DefaultStealthProfile() *StealthProfile {
	viewports := []struct{ w, h int }{
		{1920, 1080}, {1366, 768}, {1536, 864},
		{1440, 900}, {1280, 720},
	}
	vp := viewports[rand.Intn(len(viewports))]

	platforms := []string{"Win32", "MacIntel", "Linux x86_64"}

	return &StealthProfile{
		ViewportWidth:       vp.w,
		ViewportHeight:      vp.h,
		Language:            "en-US",
		Platform:            platforms[rand.Intn(len(platforms))],
		HardwareConcurrency: 4 + rand.Intn(13),
		DeviceMemory:        8,
	}
}

// WindowSize returns the Chromium --window-size value.
func (sp *StealthProfile) WindowSize() string {
	return fmt.Sprintf("%d,%d", sp.ViewportWidth, sp.ViewportHeight)
}

// Script returns JS evaluated on every new document before page scripts run.
// It complements go-rod/stealth with the profile's navigator values.
func (sp *StealthProfile) Script() string {
	return fmt.Sprintf(`(() => {
	const define = (obj, prop, value) => {
		try { Object.defineProperty(obj, prop, { get: () => value }); } catch (e) {}
	};
	define(navigator, 'platform', %q);
	define(navigator, 'language', %q);
	define(navigator, 'languages', [%q, 'en']);
	define(navigator, 'hardwareConcurrency', %d);
	define(navigator, 'deviceMemory', %d);
	define(navigator, 'webdriver', false);
	if (!window.chrome) {
		window.chrome = { runtime: {}, loadTimes: () => ({}), csi: () => ({}) };
	}
})();`, sp.Platform, sp.Language, sp.Language, sp.HardwareConcurrency, sp.DeviceMemory)
}

// ApplyHeaders sets browser-like request headers the static driver sends.
func (sp *StealthProfile) ApplyHeaders(h http.Header) {
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", sp.Language+",en;q=0.9")
	h.Set("Accept-Encoding", "gzip, deflate, br")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Upgrade-Insecure-Requests", "1")
}
