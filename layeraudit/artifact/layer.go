// Package artifact defines the structured types produced by layeraudit.
// Gatherers emit artifacts (layers, head links, off-screen images), audits
// turn them into results, and a Report bundles the results of one page.
// Any consumer of layeraudit output imports this package.
package artifact

import "fmt"

// BytesPerPixel is the memory estimate for one composited pixel (RGBA).
const BytesPerPixel = 4

// RawLayer is a compositing layer as reported by LayerTree.layerTreeDidChange.
type RawLayer struct {
	LayerID       string `json:"layer_id"`
	ParentLayerID string `json:"parent_layer_id,omitempty"` // empty for roots
	BackendNodeID int    `json:"backend_node_id,omitempty"` // 0 when the layer has no DOM node
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	PaintCount    int    `json:"paint_count"`
}

// Layer is an enriched compositing layer.
type Layer struct {
	LayerID            string   `json:"layer_id"`
	ParentLayerID      string   `json:"parent_layer_id,omitempty"`
	BackendNodeID      int      `json:"backend_node_id,omitempty"`
	Width              int      `json:"width"`
	Height             int      `json:"height"`
	Memory             int64    `json:"memory"` // Width * Height * BytesPerPixel
	PaintCount         int      `json:"paint_count"`
	CompositingReasons []string `json:"compositing_reasons"`
	Identity           string   `json:"identity"` // DOM descriptor, or "#<layer_id>"
	Incorrect          bool     `json:"incorrect,omitempty"`
}

// NewLayer builds a Layer from a raw entry. Memory is derived here and
// nowhere else; identity starts at its fallback value.
func NewLayer(raw RawLayer) Layer {
	return Layer{
		LayerID:            raw.LayerID,
		ParentLayerID:      raw.ParentLayerID,
		BackendNodeID:      raw.BackendNodeID,
		Width:              raw.Width,
		Height:             raw.Height,
		Memory:             LayerMemory(raw.Width, raw.Height),
		PaintCount:         raw.PaintCount,
		CompositingReasons: []string{},
		Identity:           FallbackIdentity(raw.LayerID),
	}
}

// LayerMemory estimates the backing store size of a width x height layer.
func LayerMemory(width, height int) int64 {
	return int64(width) * int64(height) * BytesPerPixel
}

// FallbackIdentity is the display identity of a layer whose DOM node could
// not be described.
func FallbackIdentity(layerID string) string {
	return fmt.Sprintf("#%s", layerID)
}

// IsRoot reports whether the layer has no parent.
func (l Layer) IsRoot() bool { return l.ParentLayerID == "" }

// Unavailable is the Value of an artifact whose gather pass failed.
const Unavailable = -1

// Layers is the artifact of the layers gatherer.
type Layers struct {
	Layers      []Layer `json:"layers"`
	Value       int     `json:"value,omitempty"` // Unavailable when the gather pass failed
	DebugString string  `json:"debug_string,omitempty"`
}

// Failed reports whether the artifact carries no usable layer list.
func (l Layers) Failed() bool { return l.Value == Unavailable }
