package classifier

import (
	"reflect"
	"testing"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

func layer(id, parent string, w, h, paints int, reasons ...string) artifact.Layer {
	l := artifact.NewLayer(artifact.RawLayer{
		LayerID: id, ParentLayerID: parent, Width: w, Height: h, PaintCount: paints,
	})
	if reasons != nil {
		l.CompositingReasons = reasons
	}
	return l
}

func rowIDs(rows []artifact.LayerRow) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.LayerID
	}
	return ids
}

func TestClassify_Empty(t *testing.T) {
	res := Classify(nil)
	if res.TotalCount != 0 {
		t.Errorf("TotalCount: got %d, want 0", res.TotalCount)
	}
	if res.TotalMemory != artifact.ZeroBytes {
		t.Errorf("TotalMemory: got %q, want %q", res.TotalMemory, artifact.ZeroBytes)
	}
	if len(res.Rows) != 0 || res.Rows == nil {
		t.Errorf("Rows: got %v, want empty non-nil", res.Rows)
	}
	if !res.RawValue {
		t.Error("RawValue: got false, want true")
	}
	if res.DisplayValue != "Total Layer Count: 0, Layer Memory: 0 Byte" {
		t.Errorf("DisplayValue: got %q", res.DisplayValue)
	}
}

func TestClassify_AncestorPropagation(t *testing.T) {
	layers := []artifact.Layer{
		layer("A", "", 10, 10, 0),
		layer("B", "A", 10, 10, 0, "overlap"),
		layer("C", "B", 10, 10, 0),
	}

	res, recs := classify(layers)

	if got, want := rowIDs(res.Rows), []string{"A", "B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows: got %v, want %v", got, want)
	}
	if !recs[0].Incorrect || !recs[1].Incorrect || recs[2].Incorrect {
		t.Errorf("Incorrect flags: got A=%v B=%v C=%v, want true true false",
			recs[0].Incorrect, recs[1].Incorrect, recs[2].Incorrect)
	}
	if res.DefectCount != 1 {
		t.Errorf("DefectCount: got %d, want 1 (propagation does not count)", res.DefectCount)
	}
	if res.RawValue {
		t.Error("RawValue: got true, want false")
	}

	a, b := res.Rows[0], res.Rows[1]
	if a.Overlap != "" {
		t.Errorf("A.Overlap: got %q, want empty (tainted, not overlapping)", a.Overlap)
	}
	if b.Overlap != artifact.OverlapMark {
		t.Errorf("B.Overlap: got %q, want %q", b.Overlap, artifact.OverlapMark)
	}
	if a.Arrow.Depth != 0 || b.Arrow.Depth != 10 {
		t.Errorf("depths: got A=%d B=%d, want 0 10", a.Arrow.Depth, b.Arrow.Depth)
	}
	if a.Arrow.Type != artifact.ArrowParent || b.Arrow.Type != artifact.ArrowParent {
		t.Errorf("arrow types: got A=%q B=%q, want parent-layer for both", a.Arrow.Type, b.Arrow.Type)
	}
}

func TestClassify_PropagationIndependentOfOrder(t *testing.T) {
	// Descendant listed before its ancestors: the taint must still reach
	// the root before the filter runs.
	layers := []artifact.Layer{
		layer("C", "B", 10, 10, 11),
		layer("B", "A", 10, 10, 0),
		layer("A", "", 10, 10, 0),
		layer("D", "A", 10, 10, 0),
	}
	res := Classify(layers)
	if got, want := rowIDs(res.Rows), []string{"C", "B", "A"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows: got %v, want %v", got, want)
	}
	if res.Rows[0].FrequentlyRepainted != "11" {
		t.Errorf("C.FrequentlyRepainted: got %q, want %q", res.Rows[0].FrequentlyRepainted, "11")
	}
	if res.Rows[0].Arrow.Depth != 20 {
		t.Errorf("C depth: got %d, want 20", res.Rows[0].Arrow.Depth)
	}
	if res.Rows[0].Arrow.Type != artifact.ArrowSingle {
		t.Errorf("C arrow: got %q, want %q", res.Rows[0].Arrow.Type, artifact.ArrowSingle)
	}
}

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		name     string
		l        artifact.Layer
		flagged  bool
		overlap  string
		large    string
		frequent string
		defects  int
	}{
		{"clean", layer("1", "", 100, 100, 10), false, "", "", "", 0},
		{"overlap", layer("1", "", 1, 1, 0, "overlap"), true, "✔", "", "", 1},
		{"assumedOverlap", layer("1", "", 1, 1, 0, "assumedOverlap"), true, "✔", "", "", 1},
		{"other reason", layer("1", "", 1, 1, 0, "willChangeTransform"), false, "", "", "", 0},
		// 512x512x4 = 1048576: not strictly greater.
		{"exactly 1MB", layer("1", "", 512, 512, 0), false, "", "", "", 0},
		// 1048580 bytes.
		{"just over 1MB", layer("1", "", 262145, 1, 0), true, "", "1 MB", "", 1},
		{"1920x1080", layer("1", "", 1920, 1080, 0), true, "", "7.91 MB", "", 1},
		{"paint 11", layer("1", "", 1, 1, 11), true, "", "", "11", 1},
		{"all three", layer("1", "", 1024, 1024, 50, "overlap"), true, "✔", "4 MB", "50", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify([]artifact.Layer{tt.l})
			if res.DefectCount != tt.defects {
				t.Errorf("DefectCount: got %d, want %d", res.DefectCount, tt.defects)
			}
			if res.RawValue != (tt.defects == 0) {
				t.Errorf("RawValue: got %v", res.RawValue)
			}
			if !tt.flagged {
				if len(res.Rows) != 0 {
					t.Errorf("rows: got %d, want 0", len(res.Rows))
				}
				return
			}
			if len(res.Rows) != 1 {
				t.Fatalf("rows: got %d, want 1", len(res.Rows))
			}
			r := res.Rows[0]
			if r.Overlap != tt.overlap {
				t.Errorf("Overlap: got %q, want %q", r.Overlap, tt.overlap)
			}
			if r.LargeLayer != tt.large {
				t.Errorf("LargeLayer: got %q, want %q", r.LargeLayer, tt.large)
			}
			if r.FrequentlyRepainted != tt.frequent {
				t.Errorf("FrequentlyRepainted: got %q, want %q", r.FrequentlyRepainted, tt.frequent)
			}
		})
	}
}

func TestClassify_Aggregates(t *testing.T) {
	layers := []artifact.Layer{
		layer("1", "", 512, 512, 0),
		layer("2", "1", 512, 512, 0),
	}
	res := Classify(layers)
	if res.TotalCount != 2 {
		t.Errorf("TotalCount: got %d, want 2", res.TotalCount)
	}
	if res.TotalMemory != "2 MB" {
		t.Errorf("TotalMemory: got %q, want %q", res.TotalMemory, "2 MB")
	}
	if res.DisplayValue != "Total Layer Count: 2, Layer Memory: 2 MB" {
		t.Errorf("DisplayValue: got %q", res.DisplayValue)
	}
	if res.Headings["arrow"] != "Layer ID" {
		t.Errorf("Headings: got %v", res.Headings)
	}
}

func TestClassify_RowDisplay(t *testing.T) {
	l := layer("7", "", 1920, 1080, 0)
	l.Identity = "div#hero.banner"
	res := Classify([]artifact.Layer{l})
	if len(res.Rows) != 1 {
		t.Fatalf("rows: got %d, want 1", len(res.Rows))
	}
	r := res.Rows[0]
	if r.Arrow.Label != "div#hero.banner" {
		t.Errorf("Arrow.Label: got %q", r.Arrow.Label)
	}
	if r.Area != "2,073.6 K" {
		t.Errorf("Area: got %q, want %q", r.Area, "2,073.6 K")
	}
}

func TestClassify_DoesNotMutateInput(t *testing.T) {
	layers := []artifact.Layer{
		layer("A", "", 10, 10, 0),
		layer("B", "A", 10, 10, 0, "overlap"),
	}
	Classify(layers)
	for _, l := range layers {
		if l.Incorrect {
			t.Errorf("input layer %s mutated: Incorrect = true", l.LayerID)
		}
	}
}

func TestClassify_Deterministic(t *testing.T) {
	raw := func() []artifact.Layer {
		return []artifact.Layer{
			layer("1", "", 1920, 1080, 2),
			layer("2", "1", 100, 100, 30, "assumedOverlap"),
			layer("3", "2", 10, 10, 0),
			layer("4", "1", 10, 10, 0),
			layer("5", "", 10, 10, 0, "overlap"),
		}
	}
	first := Classify(raw())
	second := Classify(raw())
	if !reflect.DeepEqual(first, second) {
		t.Errorf("classification differs between runs:\n%+v\n%+v", first, second)
	}
}

func TestClassify_OrphanAndCycle(t *testing.T) {
	layers := []artifact.Layer{
		layer("X", "missing", 10, 10, 0, "overlap"),
		layer("P", "Q", 10, 10, 0, "overlap"),
		layer("Q", "P", 10, 10, 0),
	}
	res := Classify(layers)
	if got, want := rowIDs(res.Rows), []string{"X", "P", "Q"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows: got %v, want %v", got, want)
	}
	if res.Rows[0].Arrow.Depth != 0 {
		t.Errorf("orphan depth: got %d, want 0", res.Rows[0].Arrow.Depth)
	}
}

func TestAudit_FailedArtifact(t *testing.T) {
	res := Audit(artifact.Layers{Value: artifact.Unavailable, DebugString: "collector: enable layer tree: boom"})
	if res.RawValue {
		t.Error("RawValue: got true, want false")
	}
	if res.DebugString == "" {
		t.Error("DebugString: got empty")
	}
	if len(res.Rows) != 0 {
		t.Errorf("Rows: got %d, want 0", len(res.Rows))
	}
}

func TestWalkUp_Depths(t *testing.T) {
	layers := []artifact.Layer{
		layer("r", "", 1, 1, 0),
		layer("a", "r", 1, 1, 0),
		layer("b", "a", 1, 1, 0),
		layer("c", "b", 1, 1, 0),
	}
	f := newForest(layers)
	for i, want := range []int{0, 1, 2, 3} {
		var visited []int
		if got := f.walkUp(i, func(a int) { visited = append(visited, a) }); got != want {
			t.Errorf("walkUp(%d): got %d, want %d", i, got, want)
		}
		if len(visited) != want {
			t.Errorf("walkUp(%d) visited %v", i, visited)
		}
	}
	if !f.hasChildren(0) || f.hasChildren(3) {
		t.Error("hasChildren: root should have children, leaf should not")
	}
}
