package stealth

import (
	"strings"
	"testing"
	"time"
)

func TestGenerate_Disabled(t *testing.T) {
	c := NewController(false, 0, 0)
	if fp := c.Generate(); fp != nil {
		t.Errorf("disabled controller produced %+v", fp)
	}
}

func TestGenerate_PlausibleCombination(t *testing.T) {
	c := NewController(true, 0, 0)
	for i := 0; i < 50; i++ {
		fp := c.Generate()
		if fp == nil {
			t.Fatal("enabled controller returned nil")
		}

		switch {
		case strings.Contains(fp.UserAgent, "Macintosh"):
			if fp.Platform != "MacIntel" {
				t.Errorf("mac agent with platform %q", fp.Platform)
			}
		case strings.Contains(fp.UserAgent, "Windows"):
			if fp.Platform != "Win32" {
				t.Errorf("windows agent with platform %q", fp.Platform)
			}
		default:
			if fp.Platform != "Linux x86_64" {
				t.Errorf("linux agent with platform %q", fp.Platform)
			}
		}

		if fp.ViewportWidth < fp.ViewportHeight {
			t.Errorf("portrait viewport %dx%d", fp.ViewportWidth, fp.ViewportHeight)
		}
		if len(fp.Languages) == 0 || fp.Timezone == "" || fp.WebGLVendor == "" {
			t.Errorf("incomplete fingerprint: %+v", fp)
		}
	}
}

func TestDelay_WithinRange(t *testing.T) {
	min, max := 10*time.Millisecond, 50*time.Millisecond
	c := NewController(true, min, max)
	for i := 0; i < 100; i++ {
		d := c.Delay()
		if d < min || d >= max {
			t.Fatalf("delay %v outside [%v, %v)", d, min, max)
		}
	}
}

func TestDelay_DegenerateRange(t *testing.T) {
	c := NewController(true, 20*time.Millisecond, 5*time.Millisecond)
	if d := c.Delay(); d != 20*time.Millisecond {
		t.Errorf("inverted range delay = %v", d)
	}
}

func TestAcceptLanguage(t *testing.T) {
	fp := &Fingerprint{Languages: []string{"en-US", "en"}}
	if got := fp.AcceptLanguage(); got != "en-US,en;q=0.9" {
		t.Errorf("AcceptLanguage = %q", got)
	}
}

func TestMaskScript_EmbedsIdentity(t *testing.T) {
	fp := &Fingerprint{
		Platform:      "MacIntel",
		Languages:     []string{"en-US"},
		WebGLVendor:   "Apple Inc.",
		WebGLRenderer: "Apple GPU",
	}
	script := fp.maskScript()
	for _, want := range []string{`"MacIntel"`, `"en-US"`, `"Apple Inc."`, `"Apple GPU"`, "webdriver"} {
		if !strings.Contains(script, want) {
			t.Errorf("mask script missing %s", want)
		}
	}
}
