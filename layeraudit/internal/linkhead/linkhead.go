// CLAUDE:SUMMARY Finds render-blocking <link> elements in <head> and audits how long they delayed first paint.
// Package linkhead gathers the stylesheets and async imports in <head>
// that block first paint, and turns them into the block-first-paint audit.
package linkhead

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// Script returns, as JSON, the href of every <head> link that is either a
// stylesheet whose media query matches or an async HTML import.
const Script = `() => {
	const hrefs = [...document.querySelectorAll('head link')].filter(link => {
		const async = link.getAttribute('async');
		return (link.rel === 'stylesheet' && window.matchMedia(link.media).matches) ||
			(link.rel === 'import' && async !== null);
	}).map(link => link.href);
	return JSON.stringify(hrefs);
}`

// GatherFailed is the debug string of a failed gather pass.
const GatherFailed = "Unable to get stylesheet/webcomponents in head"

// NotRun is the debug string of an audit without a usable artifact.
const NotRun = "LinkInHead gatherer did not run"

// Evaluator runs a page script returning a string.
type Evaluator interface {
	EvalString(ctx context.Context, script string) (string, error)
}

// Gather evaluates Script and joins the hrefs with the recorded css/html
// responses. Links without a matching response are dropped.
func Gather(ctx context.Context, page Evaluator, records []artifact.NetworkRecord) artifact.LinkInHead {
	raw, err := page.EvalString(ctx, Script)
	if err != nil {
		return failed()
	}
	var hrefs []string
	if err := json.Unmarshal([]byte(raw), &hrefs); err != nil {
		return failed()
	}
	return Join(hrefs, records)
}

// Join builds the artifact from link hrefs and network records.
func Join(hrefs []string, records []artifact.NetworkRecord) artifact.LinkInHead {
	byURL := make(map[string]artifact.NetworkRecord)
	for _, r := range records {
		if isDocumentLike(r.MIMEType) {
			byURL[r.URL] = r
		}
	}

	out := artifact.LinkInHead{Links: []artifact.HeadLink{}}
	for _, href := range hrefs {
		r, ok := byURL[href]
		if !ok {
			continue
		}
		link := artifact.HeadLink{
			URL:          href,
			TransferSize: r.TransferSize,
			SpendTime:    artifact.RoundTo(r.Duration(), 2),
		}
		out.Links = append(out.Links, link)
		out.TotalTransferSize += link.TransferSize
		out.TotalSpendTime += link.SpendTime
	}
	out.TotalSpendTime = artifact.RoundTo(out.TotalSpendTime, 2)
	return out
}

// isDocumentLike matches stylesheets (text/css) and imports (text/html).
func isDocumentLike(mime string) bool {
	return strings.Contains(mime, "css") || strings.Contains(mime, "html")
}

func failed() artifact.LinkInHead {
	return artifact.LinkInHead{Value: artifact.Unavailable, DebugString: GatherFailed}
}

// Audit turns the artifact into the block-first-paint result. A nil
// artifact means the gatherer did not run.
func Audit(art *artifact.LinkInHead) artifact.BlockFirstPaintAudit {
	if art == nil || art.Failed() {
		return artifact.BlockFirstPaintAudit{
			RawValue:    false,
			Links:       []artifact.BlockedLink{},
			DebugString: NotRun,
		}
	}

	links := make([]artifact.BlockedLink, len(art.Links))
	for i, l := range art.Links {
		links[i] = artifact.BlockedLink{
			URL:   l.URL,
			Label: fmt.Sprintf("blocked first paint by %sms", artifact.FormatMS(l.SpendTime)),
		}
	}

	res := artifact.BlockFirstPaintAudit{
		RawValue: len(links) == 0,
		Links:    links,
	}
	if len(links) > 0 {
		res.DisplayValue = fmt.Sprintf("%d resources blocked first paint by %sms",
			len(links), artifact.FormatMS(art.TotalSpendTime))
	}
	return res
}
