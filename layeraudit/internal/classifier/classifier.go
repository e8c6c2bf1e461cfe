// CLAUDE:SUMMARY Flags overlapping, oversized and frequently repainted layers, propagates the flag to ancestors, and builds the display table.
// Package classifier implements the incorrect-layers audit over a captured
// layer list. It performs no I/O and never mutates its input.
package classifier

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

const (
	// LargeLayerBytes is the memory above which a layer is oversized.
	LargeLayerBytes = 1 << 20

	// FrequentPaintCount is the paint count above which a layer repaints too often.
	FrequentPaintCount = 10

	// DepthPadding is the indentation, in pixels, per hierarchy level.
	DepthPadding = 10
)

// overlapReasons are the compositing reasons that mean "promoted because
// it overlaps another composited layer".
var overlapReasons = []string{"assumedOverlap", "overlap"}

// hits records which rules a layer triggered.
type hits struct {
	overlap, large, frequent bool
}

func (h hits) count() int {
	n := 0
	for _, b := range []bool{h.overlap, h.large, h.frequent} {
		if b {
			n++
		}
	}
	return n
}

func (h hits) any() bool { return h.overlap || h.large || h.frequent }

func evaluate(l artifact.Layer) hits {
	return hits{
		overlap: slices.ContainsFunc(l.CompositingReasons, func(r string) bool {
			return slices.Contains(overlapReasons, r)
		}),
		large:    l.Memory > LargeLayerBytes,
		frequent: l.PaintCount > FrequentPaintCount,
	}
}

// Audit runs the incorrect-layers audit on a gathered artifact.
func Audit(art artifact.Layers) artifact.LayerAudit {
	if art.Failed() {
		return artifact.LayerAudit{
			TotalMemory: artifact.ZeroBytes,
			RawValue:    false,
			Rows:        []artifact.LayerRow{},
			Headings:    artifact.LayerTableHeadings,
			DebugString: art.DebugString,
		}
	}
	return Classify(art.Layers)
}

// Classify flags incorrect layers and returns the display table of every
// flagged layer, directly or through a flagged descendant.
func Classify(layers []artifact.Layer) artifact.LayerAudit {
	res, _ := classify(layers)
	return res
}

// classify returns the audit and the classified copy of the layers.
func classify(layers []artifact.Layer) (artifact.LayerAudit, []artifact.Layer) {
	recs := slices.Clone(layers)

	var totalMemory int64
	for _, l := range recs {
		totalMemory += l.Memory
	}

	// Pass 1: rules.
	ruleHits := make([]hits, len(recs))
	direct := make([]bool, len(recs))
	defects := 0
	for i := range recs {
		ruleHits[i] = evaluate(recs[i])
		defects += ruleHits[i].count()
		direct[i] = ruleHits[i].any()
		recs[i].Incorrect = direct[i]
	}

	// Pass 2: depth, and taint every ancestor of a directly flagged layer.
	tree := newForest(recs)
	depth := make([]int, len(recs))
	for i := range recs {
		taint := direct[i]
		depth[i] = tree.walkUp(i, func(a int) {
			if taint {
				recs[a].Incorrect = true
			}
		})
	}

	// Pass 3: filter on the propagated flag.
	rows := make([]artifact.LayerRow, 0)
	for i, l := range recs {
		if !l.Incorrect {
			continue
		}
		rows = append(rows, buildRow(l, ruleHits[i], depth[i], tree.hasChildren(i)))
	}

	mem := artifact.FormatBytes(totalMemory)
	return artifact.LayerAudit{
		TotalCount:   len(recs),
		TotalMemory:  mem,
		DisplayValue: fmt.Sprintf("Total Layer Count: %d, Layer Memory: %s", len(recs), mem),
		RawValue:     defects == 0,
		DefectCount:  defects,
		Rows:         rows,
		Headings:     artifact.LayerTableHeadings,
	}, recs
}

func buildRow(l artifact.Layer, h hits, depth int, parent bool) artifact.LayerRow {
	row := artifact.LayerRow{
		LayerID:       l.LayerID,
		ParentLayerID: l.ParentLayerID,
		Arrow: artifact.Arrow{
			Label: l.Identity,
			Type:  artifact.ArrowSingle,
			Depth: depth * DepthPadding,
		},
		Area: artifact.FormatArea(l.Width, l.Height),
	}
	if parent {
		row.Arrow.Type = artifact.ArrowParent
	}
	if h.overlap {
		row.Overlap = artifact.OverlapMark
	}
	if h.large {
		row.LargeLayer = artifact.FormatBytes(l.Memory)
	}
	if h.frequent {
		row.FrequentlyRepainted = strconv.Itoa(l.PaintCount)
	}
	return row
}
