// CLAUDE:SUMMARY Defines audit results (incorrect layers, block-first-paint, invisible images) and the per-page Report envelope.
package artifact

// Arrow styles for the layer identity column.
const (
	ArrowParent = "parent-layer" // the layer has children
	ArrowSingle = "single-layer"
)

// OverlapMark is the overlap column value of a layer promoted because of overlap.
const OverlapMark = "✔"

// Arrow is the identity column of a layer row: label, tree style and
// indentation in pixels.
type Arrow struct {
	Label string `json:"label"`
	Type  string `json:"type"`
	Depth int    `json:"depth"`
}

// LayerRow is one displayed row of the incorrect-layers table.
type LayerRow struct {
	LayerID             string `json:"layer_id"`
	ParentLayerID       string `json:"parent_layer_id,omitempty"`
	Arrow               Arrow  `json:"arrow"`
	Overlap             string `json:"overlap"`
	Area                string `json:"area"`
	LargeLayer          string `json:"large_layer"`
	FrequentlyRepainted string `json:"frequently_repainted"`
}

// LayerTableHeadings labels the LayerRow columns.
var LayerTableHeadings = map[string]string{
	"arrow":                "Layer ID",
	"overlap":              "Overlapped Layer/Created because of overlap",
	"area":                 "Area (px²)",
	"large_layer":          "Large layer(over 1MB)",
	"frequently_repainted": "Frequently Repainted Layer(over 10)",
}

// LayerAudit is the result of the incorrect-layers audit. It is
// informative: RawValue says whether any layer directly triggered a rule.
type LayerAudit struct {
	TotalCount   int               `json:"total_count"`
	TotalMemory  string            `json:"total_memory"`
	DisplayValue string            `json:"display_value"`
	RawValue     bool              `json:"raw_value"`
	DefectCount  int               `json:"defect_count"`
	Rows         []LayerRow        `json:"rows"`
	Headings     map[string]string `json:"headings"`
	DebugString  string            `json:"debug_string,omitempty"`
}

// HeadLink is a render-blocking <link> found in <head>.
type HeadLink struct {
	URL          string  `json:"url"`
	TransferSize int64   `json:"transfer_size"`
	SpendTime    float64 `json:"spend_time_ms"`
}

// LinkInHead is the artifact of the link-in-head gatherer.
type LinkInHead struct {
	Links             []HeadLink `json:"links"`
	TotalTransferSize int64      `json:"total_transfer_size"`
	TotalSpendTime    float64    `json:"total_spend_time_ms"`
	Value             int        `json:"value,omitempty"` // Unavailable when the gather pass failed
	DebugString       string     `json:"debug_string,omitempty"`
}

// Failed reports whether the artifact carries no usable link list.
func (l LinkInHead) Failed() bool { return l.Value == Unavailable }

// BlockedLink is one row of the block-first-paint audit.
type BlockedLink struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// BlockFirstPaintAudit is the result of the block-first-paint audit.
type BlockFirstPaintAudit struct {
	DisplayValue string        `json:"display_value"`
	RawValue     bool          `json:"raw_value"`
	Links        []BlockedLink `json:"links"`
	DebugString  string        `json:"debug_string,omitempty"`
}

// OffscreenImage is an image rendered outside the viewport.
type OffscreenImage struct {
	Src          string  `json:"src"`
	Top          float64 `json:"top"`
	Left         float64 `json:"left"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	SpendTime    float64 `json:"spend_time_ms"`
	TransferSize int64   `json:"transfer_size"`
}

// OffscreenImages is the artifact of the invisible-image gatherer.
type OffscreenImages struct {
	Images      []OffscreenImage `json:"images"`
	Value       int              `json:"value,omitempty"` // Unavailable when the gather pass failed
	DebugString string           `json:"debug_string,omitempty"`
}

// Failed reports whether the artifact carries no usable image list.
func (o OffscreenImages) Failed() bool { return o.Value == Unavailable }

// InvisibleImageAudit is the result of the invisible-image audit.
type InvisibleImageAudit struct {
	RawValue     int              `json:"raw_value"`
	OptimalValue int              `json:"optimal_value"`
	Images       []OffscreenImage `json:"images"`
	Pretty       string           `json:"pretty"`
	DebugString  string           `json:"debug_string,omitempty"`
}

// Report bundles the audit results of one page visit.
type Report struct {
	ID              string                `json:"id"` // UUIDv7
	PageURL         string                `json:"page_url"`
	PageID          string                `json:"page_id"`
	Timestamp       int64                 `json:"timestamp"` // epoch milliseconds
	IncorrectLayers *LayerAudit           `json:"incorrect_layers,omitempty"`
	BlockFirstPaint *BlockFirstPaintAudit `json:"block_first_paint,omitempty"`
	InvisibleImages *InvisibleImageAudit  `json:"invisible_images,omitempty"`
}
