package browser

import (
	"context"
	"errors"
	"math"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
	"github.com/hazyhaar/renderaudit/layeraudit/internal/collector"
)

// Tab drives the layer collector over the page's CDP session.
var _ collector.Protocol = (*Tab)(nil)

// EnableLayerTree enables the LayerTree domain.
func (t *Tab) EnableLayerTree(ctx context.Context) error {
	return proto.LayerTreeEnable{}.Call(t.Page.Context(ctx))
}

// WatchLayerTree subscribes to layerTreeDidChange before returning and
// delivers the first event that carries a layer list.
func (t *Tab) WatchLayerTree(ctx context.Context) <-chan []artifact.RawLayer {
	out := make(chan []artifact.RawLayer, 1)
	wait := t.Page.Context(ctx).EachEvent(func(e *proto.LayerTreeLayerTreeDidChange) bool {
		if e.Layers == nil {
			return false
		}
		out <- rawLayers(e.Layers)
		return true
	})
	go func() {
		wait()
		close(out)
	}()
	return out
}

// Evaluate runs a JS function expression and discards its result.
func (t *Tab) Evaluate(ctx context.Context, script string) error {
	_, err := t.Page.Context(ctx).Eval(script)
	return err
}

// CompositingReasons returns why the browser promoted a layer.
func (t *Tab) CompositingReasons(ctx context.Context, layerID string) ([]string, error) {
	res, err := proto.LayerTreeCompositingReasons{
		LayerID: proto.LayerTreeLayerID(layerID),
	}.Call(t.Page.Context(ctx))
	if err != nil {
		return nil, err
	}
	return res.CompositingReasons, nil
}

// PushNodesByBackendIDs maps backend node ids to frontend node ids.
func (t *Tab) PushNodesByBackendIDs(ctx context.Context, backendIDs []int) ([]int, error) {
	if err := t.ensureDocument(ctx); err != nil {
		return nil, err
	}
	ids := make([]proto.DOMBackendNodeID, len(backendIDs))
	for i, id := range backendIDs {
		ids[i] = proto.DOMBackendNodeID(id)
	}
	res, err := proto.DOMPushNodesByBackendIDsToFrontend{BackendNodeIDs: ids}.Call(t.Page.Context(ctx))
	if err != nil {
		return nil, err
	}
	out := make([]int, len(res.NodeIDs))
	for i, id := range res.NodeIDs {
		out[i] = int(id)
	}
	return out, nil
}

// DescribeNode returns the remote object description of a DOM node.
func (t *Tab) DescribeNode(ctx context.Context, nodeID int) (string, error) {
	res, err := proto.DOMResolveNode{NodeID: proto.DOMNodeID(nodeID)}.Call(t.Page.Context(ctx))
	if err != nil {
		return "", err
	}
	if res.Object == nil {
		return "", errors.New("browser: resolve node: no remote object")
	}
	return res.Object.Description, nil
}

// rawLayers converts protocol layers, rounding fractional sizes.
func rawLayers(layers []*proto.LayerTreeLayer) []artifact.RawLayer {
	out := make([]artifact.RawLayer, 0, len(layers))
	for _, l := range layers {
		if l == nil {
			continue
		}
		out = append(out, artifact.RawLayer{
			LayerID:       string(l.LayerID),
			ParentLayerID: string(l.ParentLayerID),
			BackendNodeID: int(l.BackendNodeID),
			Width:         int(math.Round(l.Width)),
			Height:        int(math.Round(l.Height)),
			PaintCount:    l.PaintCount,
		})
	}
	return out
}
