// CLAUDE:SUMMARY Finds large images rendered outside the viewport and reports their network cost.
// Package offscreen gathers images laid out outside the viewport and turns
// them into the invisible-image audit.
package offscreen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// MinSide is the size, in CSS pixels, both sides of an image must exceed
// to be reported.
const MinSide = 70

// Script returns, as JSON, the bounding box and src of every sizeable image
// positioned outside the viewport.
var Script = fmt.Sprintf(`() => {
	const root = document.documentElement;
	const out = [];
	for (const img of document.querySelectorAll('img')) {
		if (img.src === '') continue;
		const r = img.getBoundingClientRect();
		if (r.width <= %[1]d || r.height <= %[1]d) continue;
		if (r.top < 0 || r.top > root.clientHeight || r.left < 0 || r.left > root.clientWidth) {
			out.push({src: img.src, top: r.top, left: r.left, width: r.width, height: r.height});
		}
	}
	return JSON.stringify(out);
}`, MinSide)

const (
	// GatherFailed is the debug string of a failed gather pass.
	GatherFailed = "Unable to get off-screen images"

	// NotRun is the debug string of an audit without a usable artifact.
	NotRun = "InvisibleImage gatherer did not run"
)

// Evaluator runs a page script returning a string.
type Evaluator interface {
	EvalString(ctx context.Context, script string) (string, error)
}

// Gather evaluates Script and joins each image with its recorded response.
// Images without a response keep zero cost.
func Gather(ctx context.Context, page Evaluator, records []artifact.NetworkRecord) artifact.OffscreenImages {
	raw, err := page.EvalString(ctx, Script)
	if err != nil {
		return artifact.OffscreenImages{Value: artifact.Unavailable, DebugString: GatherFailed + ": " + err.Error()}
	}
	var imgs []artifact.OffscreenImage
	if err := json.Unmarshal([]byte(raw), &imgs); err != nil {
		return artifact.OffscreenImages{Value: artifact.Unavailable, DebugString: GatherFailed + ": " + err.Error()}
	}
	return Join(imgs, records)
}

// Join attaches network cost to the images.
func Join(imgs []artifact.OffscreenImage, records []artifact.NetworkRecord) artifact.OffscreenImages {
	out := artifact.OffscreenImages{Images: make([]artifact.OffscreenImage, 0, len(imgs))}
	for _, img := range imgs {
		if r, ok := artifact.FindRecord(records, img.Src); ok {
			img.SpendTime = artifact.RoundTo(r.Duration(), 2)
			img.TransferSize = r.TransferSize
		}
		out.Images = append(out.Images, img)
	}
	return out
}

// Audit counts the off-screen images. The optimal value is 0.
func Audit(art *artifact.OffscreenImages) artifact.InvisibleImageAudit {
	if art == nil || art.Failed() {
		return artifact.InvisibleImageAudit{
			RawValue:    artifact.Unavailable,
			Images:      []artifact.OffscreenImage{},
			DebugString: NotRun,
		}
	}
	return artifact.InvisibleImageAudit{
		RawValue:     len(art.Images),
		OptimalValue: 0,
		Images:       art.Images,
		Pretty:       Pretty(art.Images),
	}
}

// Pretty renders the images for terminal output:
//
//	    - Count: 2
//	    - Duration: 12.5ms
//	    - Transfer Size: 3.2KB
//	    - List
//	      ┏━ hero.png - 10ms, 2KB
//	      ┗━ logo.png - 2.5ms, 1.2KB
func Pretty(imgs []artifact.OffscreenImage) string {
	if len(imgs) == 0 {
		return ""
	}

	var total float64
	var size int64
	for _, img := range imgs {
		total += img.SpendTime
		size += img.TransferSize
	}

	var b strings.Builder
	fmt.Fprintf(&b, "    - Count: %d\n", len(imgs))
	fmt.Fprintf(&b, "    - Duration: %sms\n", artifact.FormatMS(total))
	fmt.Fprintf(&b, "    - Transfer Size: %sKB\n", artifact.FormatKB(size))
	b.WriteString("    - List\n")
	for i, img := range imgs {
		fmt.Fprintf(&b, "      %s %s - %sms, %sKB\n", delimiter(i, len(imgs)),
			fileName(img.Src), artifact.FormatMS(img.SpendTime), artifact.FormatKB(img.TransferSize))
	}
	return b.String()
}

func delimiter(i, n int) string {
	switch {
	case i == 0:
		return "┏━"
	case i == n-1:
		return "┗━"
	default:
		return "┣━"
	}
}

// fileName is the last path segment of src, or src itself when it has none.
func fileName(src string) string {
	u, err := url.Parse(src)
	if err != nil || u.Scheme == "data" {
		return src
	}
	if base := path.Base(u.Path); base != "/" && base != "." {
		return base
	}
	return src
}
