package offscreen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

type fakePage struct {
	out string
	err error
}

func (f fakePage) EvalString(context.Context, string) (string, error) { return f.out, f.err }

var records = []artifact.NetworkRecord{
	{URL: "https://a.test/img/hero.png", ResourceType: "Image", TransferSize: 2000, StartTime: 1, EndTime: 1.01},
	{URL: "https://a.test/img/logo.png", ResourceType: "Image", TransferSize: 1234, StartTime: 2, EndTime: 2.0025},
}

func TestGather(t *testing.T) {
	page := fakePage{out: `[
		{"src":"https://a.test/img/hero.png","top":-400,"left":0,"width":800,"height":300},
		{"src":"https://a.test/img/unknown.png","top":2000,"left":0,"width":100,"height":100}
	]`}
	art := Gather(context.Background(), page, records)
	if art.Failed() {
		t.Fatalf("Failed: %s", art.DebugString)
	}
	if len(art.Images) != 2 {
		t.Fatalf("images: got %d, want 2", len(art.Images))
	}
	hero := art.Images[0]
	if hero.TransferSize != 2000 || hero.SpendTime != 10 || hero.Top != -400 {
		t.Errorf("hero: got %+v", hero)
	}
	if art.Images[1].TransferSize != 0 || art.Images[1].SpendTime != 0 {
		t.Errorf("unknown image: got %+v", art.Images[1])
	}
}

func TestGather_EvalError(t *testing.T) {
	art := Gather(context.Background(), fakePage{err: errors.New("boom")}, records)
	if !art.Failed() || !strings.HasPrefix(art.DebugString, GatherFailed) {
		t.Errorf("artifact: got %+v", art)
	}
	res := Audit(&art)
	if res.RawValue != artifact.Unavailable || res.DebugString != NotRun {
		t.Errorf("audit: got %+v", res)
	}
}

func TestAudit_Pretty(t *testing.T) {
	art := Join([]artifact.OffscreenImage{
		{Src: "https://a.test/img/hero.png"},
		{Src: "https://a.test/img/mid.png"},
		{Src: "https://a.test/img/logo.png?v=2"},
	}, records)
	res := Audit(&art)
	if res.RawValue != 3 || res.OptimalValue != 0 {
		t.Errorf("values: got raw=%d optimal=%d", res.RawValue, res.OptimalValue)
	}

	want := "    - Count: 3\n" +
		"    - Duration: 10ms\n" +
		"    - Transfer Size: 2KB\n" +
		"    - List\n" +
		"      ┏━ hero.png - 10ms, 2KB\n" +
		"      ┣━ mid.png - 0ms, 0KB\n" +
		"      ┗━ logo.png - 0ms, 0KB\n"
	if res.Pretty != want {
		t.Errorf("Pretty:\ngot:\n%s\nwant:\n%s", res.Pretty, want)
	}
}

func TestPretty_Empty(t *testing.T) {
	if got := Pretty(nil); got != "" {
		t.Errorf("Pretty(nil): got %q", got)
	}
	art := Join(nil, records)
	if res := Audit(&art); res.RawValue != 0 || res.Images == nil {
		t.Errorf("audit: got %+v", res)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"https://a.test/img/hero.png": "hero.png",
		"https://a.test/":             "https://a.test/",
		"data:image/png;base64,AAAA":  "data:image/png;base64,AAAA",
	}
	for in, want := range tests {
		if got := fileName(in); got != want {
			t.Errorf("fileName(%q): got %q, want %q", in, got, want)
		}
	}
}
