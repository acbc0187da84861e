package stealth

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Apply installs the fingerprint on a page. Must run before navigation:
// the stealth script and property overrides only take effect for
// navigations that happen after they are installed.
func Apply(page *rod.Page, fp *Fingerprint) {
	if fp == nil {
		return
	}

	// Base evasion bundle (masks CDP runtime markers).
	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth script injection failed, proceeding without", "error", err)
	}
	if _, err := page.EvalOnNewDocument(fp.maskScript()); err != nil {
		slog.Warn("fingerprint mask injection failed", "error", err)
	}

	if err := (proto.NetworkSetUserAgentOverride{
		UserAgent:      fp.UserAgent,
		AcceptLanguage: fp.AcceptLanguage(),
		Platform:       fp.Platform,
	}).Call(page); err != nil {
		slog.Warn("user agent override failed", "error", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             fp.ViewportWidth,
		Height:            fp.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}).Call(page); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}

	if err := (proto.EmulationSetTimezoneOverride{
		TimezoneID: fp.Timezone,
	}).Call(page); err != nil {
		slog.Warn("timezone override failed", "error", err)
	}
}
