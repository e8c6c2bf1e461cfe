package artifact

import "testing"

func TestNewLayer_MemoryDerived(t *testing.T) {
	raws := []RawLayer{
		{LayerID: "1", Width: 0, Height: 0},
		{LayerID: "2", Width: 1, Height: 1},
		{LayerID: "3", Width: 512, Height: 512},
		{LayerID: "4", Width: 1920, Height: 1080},
		{LayerID: "5", Width: 70000, Height: 70000},
	}
	for _, raw := range raws {
		l := NewLayer(raw)
		want := int64(raw.Width) * int64(raw.Height) * 4
		if l.Memory != want {
			t.Errorf("layer %s Memory: got %d, want %d", raw.LayerID, l.Memory, want)
		}
	}
}

func TestNewLayer_Defaults(t *testing.T) {
	l := NewLayer(RawLayer{LayerID: "42", ParentLayerID: "7", BackendNodeID: 9, PaintCount: 3})
	if l.Identity != "#42" {
		t.Errorf("Identity: got %q, want %q", l.Identity, "#42")
	}
	if l.CompositingReasons == nil || len(l.CompositingReasons) != 0 {
		t.Errorf("CompositingReasons: got %v, want empty non-nil", l.CompositingReasons)
	}
	if l.IsRoot() {
		t.Error("IsRoot: got true for a layer with a parent")
	}
	if l.Incorrect {
		t.Error("Incorrect: got true before classification")
	}
}

func TestLayersFailed(t *testing.T) {
	if (Layers{}).Failed() {
		t.Error("zero Layers artifact reported as failed")
	}
	if !(Layers{Value: Unavailable, DebugString: "x"}).Failed() {
		t.Error("Unavailable Layers artifact not reported as failed")
	}
}

func TestReportRoundtrip(t *testing.T) {
	r := &Report{
		ID:      "0190b8a0-0000-7000-8000-000000000000",
		PageURL: "https://example.com",
		PageID:  "page-1",
		IncorrectLayers: &LayerAudit{
			TotalCount:  2,
			TotalMemory: "1 MB",
			RawValue:    false,
			Rows:        []LayerRow{{LayerID: "1", Arrow: Arrow{Label: "#1", Type: ArrowParent}}},
		},
	}
	data, err := MarshalReport(r)
	if err != nil {
		t.Fatal(err)
	}
	got, err := UnmarshalReport(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.IncorrectLayers == nil || len(got.IncorrectLayers.Rows) != 1 {
		t.Fatalf("IncorrectLayers: got %+v", got.IncorrectLayers)
	}
	if got.IncorrectLayers.Rows[0].Arrow.Type != ArrowParent {
		t.Errorf("Arrow.Type: got %q, want %q", got.IncorrectLayers.Rows[0].Arrow.Type, ArrowParent)
	}
	if got.BlockFirstPaint != nil {
		t.Errorf("BlockFirstPaint: got %+v, want nil", got.BlockFirstPaint)
	}
}
