package scraper

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerHosts are analytics and ad hosts that slow product pages down
// without contributing any extracted field.
var trackerHosts = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"facebook.net":          {},
	"hotjar.com":            {},
	"criteo.com":            {},
	"criteo.net":            {},
	"adnxs.com":             {},
	"taboola.com":           {},
	"outbrain.com":          {},
	"quantserve.com":        {},
	"scorecardresearch.com": {},
	"segment.io":            {},
	"mixpanel.com":          {},
	"optimizely.com":        {},
	"bing.com":              {},
	"pinterest.com":         {},
	"tiktok.com":            {},
}

// isTrackerHost checks host and each of its parent domains.
func isTrackerHost(host string) bool {
	host = strings.ToLower(host)
	for host != "" {
		if _, ok := trackerHosts[host]; ok {
			return true
		}
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
	}
	return false
}

// blockedTypes resolves config names, ignoring unknown ones.
func blockedTypes(names []string) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := resourceTypes[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	return blocked
}

// setupHijack installs a request interceptor that aborts the blocked
// resource types and, optionally, tracker hosts. It returns nil when there
// is nothing to block; otherwise the caller must Stop the router.
func setupHijack(page *rod.Page, names []string, blockTrackers bool) *rod.HijackRouter {
	blocked := blockedTypes(names)
	if len(blocked) == 0 && !blockTrackers {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if _, ok := blocked[h.Request.Type()]; ok {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if blockTrackers {
			if isTrackerHost(h.Request.URL().Hostname()) {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop, so it lives in its own goroutine.
	go router.Run()
	return router
}
