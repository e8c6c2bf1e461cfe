package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceAliases maps config names to CDP resource types.
var resourceAliases = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
	"scripts":     proto.NetworkResourceTypeScript,
}

var cdpResourceTypes = []proto.NetworkResourceType{
	proto.NetworkResourceTypeDocument,
	proto.NetworkResourceTypeStylesheet,
	proto.NetworkResourceTypeImage,
	proto.NetworkResourceTypeMedia,
	proto.NetworkResourceTypeFont,
	proto.NetworkResourceTypeScript,
	proto.NetworkResourceTypeXHR,
	proto.NetworkResourceTypeFetch,
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeOther,
}

// blockedTypes resolves config names to the set of resource types to fail.
// CDP type names ("image", "xhr") match case-insensitively; unknown names
// are ignored.
func blockedTypes(names []string) map[proto.NetworkResourceType]bool {
	set := make(map[proto.NetworkResourceType]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if t, ok := resourceAliases[n]; ok {
			set[t] = true
			continue
		}
		for _, t := range cdpResourceTypes {
			if strings.EqualFold(string(t), n) {
				set[t] = true
			}
		}
	}
	return set
}

// applyResourceBlocking fails requests of the configured resource types.
// Blocked requests still show up in the network log as failed, so audits
// that measure them (invisible images, head links) report nothing for them.
func applyResourceBlocking(page *rod.Page, names []string) error {
	blocked := blockedTypes(names)
	if len(blocked) == 0 {
		return nil
	}

	router := page.HijackRequests()
	if err := router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	}); err != nil {
		return err
	}

	go router.Run()
	return nil
}
