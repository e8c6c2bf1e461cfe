package artifact

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Byte"},
		{1, "1 Bytes"},
		{1023, "1,023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048576, "1 MB"},
		{1048577, "1 MB"},
		{1572864, "1.5 MB"},
		{8294400, "7.91 MB"},
		{1 << 30, "1 GB"},
		{1 << 40, "1 TB"},
		{5 << 50, "5,120 TB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatArea(t *testing.T) {
	tests := []struct {
		w, h int
		want string
	}{
		{0, 0, "0 K"},
		{10, 10, "0.1 K"},
		{100, 100, "10 K"},
		{1920, 1080, "2,073.6 K"},
		{1000, 1000, "1,000 K"},
	}
	for _, tt := range tests {
		if got := FormatArea(tt.w, tt.h); got != tt.want {
			t.Errorf("FormatArea(%d, %d): got %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestRoundTo(t *testing.T) {
	if got := RoundTo(12.3456, 2); got != 12.35 {
		t.Errorf("RoundTo: got %v, want 12.35", got)
	}
	if got := RoundTo(3, 2); got != 3 {
		t.Errorf("RoundTo: got %v, want 3", got)
	}
}

func TestFormatMSAndKB(t *testing.T) {
	ms := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{111.00000001, "111"},
		{0.1111, "0.11"},
		{12, "12"},
	}
	for _, tt := range ms {
		if got := FormatMS(tt.in); got != tt.want {
			t.Errorf("FormatMS(%v): got %q, want %q", tt.in, got, tt.want)
		}
	}

	kb := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{12346, "12.35"},
		{2048, "2.05"},
		{1000, "1"},
	}
	for _, tt := range kb {
		if got := FormatKB(tt.in); got != tt.want {
			t.Errorf("FormatKB(%d): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
