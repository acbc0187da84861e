// Package stealth randomizes browser-identifying attributes for the
// browser-based extraction strategy. One fingerprint is assigned per
// browser session and never shared across concurrent sessions.
package stealth

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Fingerprint is one randomized browser identity.
type Fingerprint struct {
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Platform       string
	Languages      []string
	Timezone       string
	WebGLVendor    string
	WebGLRenderer  string
}

// Rotation pools. Combinations are kept plausible: the platform and
// viewport are derived from the chosen user agent.
var (
	userAgents = []string{
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}

	webglVendors = []string{
		"Intel Inc.",
		"Google Inc. (NVIDIA)",
		"Google Inc. (Intel)",
		"Apple Inc.",
	}

	webglRenderers = []string{
		"Intel Iris OpenGL Engine",
		"ANGLE (NVIDIA, NVIDIA GeForce GTX 1060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		"ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)",
		"Apple GPU",
	}

	timezones = []string{
		"America/New_York",
		"America/Los_Angeles",
		"America/Chicago",
		"Europe/London",
		"Europe/Paris",
		"Asia/Tokyo",
		"Asia/Singapore",
	}

	languageCombos = [][]string{
		{"en-US", "en"},
		{"en-GB", "en"},
		{"en-US", "en", "fr"},
		{"en-US", "en", "es"},
	}
)

// Controller issues fingerprints and interaction jitter. Safe for
// concurrent use.
type Controller struct {
	enabled   bool
	jitterMin time.Duration
	jitterMax time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewController builds a Controller. When disabled, Generate returns
// nil and the automation engine's default fingerprint is left untouched.
func NewController(enabled bool, jitterMin, jitterMax time.Duration) *Controller {
	if jitterMax < jitterMin {
		jitterMax = jitterMin
	}
	return &Controller{
		enabled:   enabled,
		jitterMin: jitterMin,
		jitterMax: jitterMax,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Enabled reports whether fingerprint randomization is active.
func (c *Controller) Enabled() bool { return c.enabled }

// Generate draws a fresh randomized fingerprint, or nil when disabled.
func (c *Controller) Generate() *Fingerprint {
	if !c.enabled {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ua := userAgents[c.rng.Intn(len(userAgents))]

	// Viewports are drawn as pairs so width and height always come from
	// the same real screen size.
	var platform string
	var viewports [][2]int
	switch {
	case strings.Contains(ua, "Macintosh"):
		platform = "MacIntel"
		viewports = [][2]int{{1920, 1080}, {1440, 900}, {2560, 1440}}
	case strings.Contains(ua, "Windows"):
		platform = "Win32"
		viewports = [][2]int{{1920, 1080}, {1366, 768}, {2560, 1440}}
	default:
		platform = "Linux x86_64"
		viewports = [][2]int{{1920, 1080}, {1366, 768}}
	}
	vp := viewports[c.rng.Intn(len(viewports))]

	return &Fingerprint{
		UserAgent:      ua,
		ViewportWidth:  vp[0],
		ViewportHeight: vp[1],
		Platform:       platform,
		Languages:      languageCombos[c.rng.Intn(len(languageCombos))],
		Timezone:       timezones[c.rng.Intn(len(timezones))],
		WebGLVendor:    webglVendors[c.rng.Intn(len(webglVendors))],
		WebGLRenderer:  webglRenderers[c.rng.Intn(len(webglRenderers))],
	}
}

// Delay draws a randomized inter-action pause from the jitter range,
// used between simulated scrolls and clicks.
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	span := c.jitterMax - c.jitterMin
	if span <= 0 {
		return c.jitterMin
	}
	return c.jitterMin + time.Duration(c.rng.Int63n(int64(span)))
}

// AcceptLanguage renders the fingerprint's languages as a header value.
func (f *Fingerprint) AcceptLanguage() string {
	return strings.Join(f.Languages, ",") + ";q=0.9"
}

// maskScript returns JS that overrides the automation-detectable
// properties this fingerprint controls. Installed before navigation.
func (f *Fingerprint) maskScript() string {
	langs := make([]string, len(f.Languages))
	for i, l := range f.Languages {
		langs[i] = fmt.Sprintf("%q", l)
	}
	return fmt.Sprintf(`
		Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
		Object.defineProperty(navigator, 'platform', { get: () => %q });
		Object.defineProperty(navigator, 'languages', { get: () => [%s] });
		Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
		const getParameter = WebGLRenderingContext.prototype.getParameter;
		WebGLRenderingContext.prototype.getParameter = function(parameter) {
			if (parameter === 37445) return %q;
			if (parameter === 37446) return %q;
			return getParameter.call(this, parameter);
		};
	`, f.Platform, strings.Join(langs, ", "), f.WebGLVendor, f.WebGLRenderer)
}
