// CLAUDE:SUMMARY Captures a page's compositing layer tree over CDP in five barrier stages and enriches each layer.
// Package collector captures the compositing layer tree of a live page.
//
// A capture runs five stages, each a barrier for the next:
//
//  1. enable the LayerTree domain
//  2. arm a one-shot layerTreeDidChange listener, force a recomputation
//     with an inert DOM mutation, and wait (bounded) for the tree
//  3. fetch compositing reasons for every layer (all-or-nothing fan-out)
//  4. push backend node ids to the frontend (one batched call)
//  5. describe every node (settle-all fan-out; failures keep the fallback)
package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/renderaudit/layeraudit/artifact"
)

// ForceLayoutScript appends an empty div to body so the browser recomputes
// its layer tree and emits layerTreeDidChange.
const ForceLayoutScript = `() => {
	const el = document.createElement('div');
	document.body.appendChild(el);
}`

// Protocol is the subset of a browser instrumentation session the
// collector drives.
type Protocol interface {
	// EnableLayerTree enables the LayerTree domain.
	EnableLayerTree(ctx context.Context) error

	// WatchLayerTree arms a one-shot listener before returning. The channel
	// receives the first layer tree snapshot and is closed when the listener
	// stops (after delivery, or when ctx is done).
	WatchLayerTree(ctx context.Context) <-chan []artifact.RawLayer

	// Evaluate runs a JS function expression in the page.
	Evaluate(ctx context.Context, script string) error

	// CompositingReasons returns why the browser promoted a layer.
	CompositingReasons(ctx context.Context, layerID string) ([]string, error)

	// PushNodesByBackendIDs maps backend node ids to frontend node ids,
	// preserving order. 0 marks an id the frontend could not resolve.
	PushNodesByBackendIDs(ctx context.Context, backendIDs []int) ([]int, error)

	// DescribeNode returns a human-readable descriptor of a frontend node.
	DescribeNode(ctx context.Context, nodeID int) (string, error)
}

// Config configures a Collector.
type Config struct {
	// TreeTimeout bounds the wait for layerTreeDidChange. Default: 10s.
	TreeTimeout time.Duration

	// Concurrency caps in-flight requests of a fan-out stage. 0 = unbounded.
	Concurrency int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.TreeTimeout <= 0 {
		c.TreeTimeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Collector captures layer trees. It keeps no state between captures and
// is safe for concurrent use on distinct sessions.
type Collector struct {
	cfg Config
}

// New creates a Collector.
func New(cfg Config) *Collector {
	cfg.defaults()
	return &Collector{cfg: cfg}
}

// capture is the working set of one Collect call.
type capture struct {
	layers []artifact.Layer

	// backendIDs[k] belongs to layers[layerIndex[k]].
	backendIDs []int
	layerIndex []int
}

// Collect runs the five stages against p and returns the enriched layers
// in capture order. Any error is fatal and no partial list is returned.
func (c *Collector) Collect(ctx context.Context, p Protocol) ([]artifact.Layer, error) {
	log := c.cfg.Logger

	if err := p.EnableLayerTree(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnable, err)
	}

	capt, err := c.captureTree(ctx, p)
	if err != nil {
		return nil, err
	}
	log.Debug("collector: layer tree captured",
		"layers", len(capt.layers), "with_node", len(capt.backendIDs))

	if err := c.setCompositingReasons(ctx, p, capt); err != nil {
		return nil, err
	}

	if len(capt.backendIDs) == 0 {
		return capt.layers, nil
	}

	nodeIDs, err := p.PushNodesByBackendIDs(ctx, capt.backendIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNodeIDs, err)
	}
	if len(nodeIDs) != len(capt.backendIDs) {
		return nil, fmt.Errorf("%w: got %d node ids for %d backend ids",
			ErrNodeIDs, len(nodeIDs), len(capt.backendIDs))
	}

	c.setIdentities(ctx, p, capt, nodeIDs)
	return capt.layers, nil
}

// Gather runs Collect and packs the outcome into the artifact handed to
// the incorrect-layers audit. A failed capture yields the Unavailable
// sentinel with a debug string.
func (c *Collector) Gather(ctx context.Context, p Protocol) artifact.Layers {
	layers, err := c.Collect(ctx, p)
	if err != nil {
		c.cfg.Logger.Error("collector: capture failed", "error", err)
		return artifact.Layers{
			Value:       artifact.Unavailable,
			DebugString: fmt.Sprintf("Unable to capture layer tree: %v", err),
		}
	}
	return artifact.Layers{Layers: layers}
}

// captureTree arms the listener, forces a recomputation and waits for the
// tree, bounded by TreeTimeout.
func (c *Collector) captureTree(ctx context.Context, p Protocol) (*capture, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.TreeTimeout)
	defer cancel()

	treeCh := p.WatchLayerTree(waitCtx)

	// The compositor may still publish a tree; keep waiting.
	if err := p.Evaluate(waitCtx, ForceLayoutScript); err != nil {
		c.cfg.Logger.Debug("collector: force layout failed", "error", err)
	}

	select {
	case raws, ok := <-treeCh:
		if !ok {
			return nil, treeWaitError(ctx, waitCtx)
		}
		return newCapture(raws), nil
	case <-waitCtx.Done():
		return nil, treeWaitError(ctx, waitCtx)
	}
}

// treeWaitError distinguishes the caller giving up from the deadline.
func treeWaitError(parent, wait context.Context) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTreeClosed, err)
	}
	if wait.Err() != nil {
		return ErrTreeTimeout
	}
	return ErrTreeClosed
}

func newCapture(raws []artifact.RawLayer) *capture {
	capt := &capture{layers: make([]artifact.Layer, len(raws))}
	for i, raw := range raws {
		capt.layers[i] = artifact.NewLayer(raw)
		if raw.BackendNodeID != 0 {
			capt.backendIDs = append(capt.backendIDs, raw.BackendNodeID)
			capt.layerIndex = append(capt.layerIndex, i)
		}
	}
	return capt
}

// setCompositingReasons fetches reasons for every layer. Responses are
// buffered by request index and merged only once all have arrived.
func (c *Collector) setCompositingReasons(ctx context.Context, p Protocol, capt *capture) error {
	reasons := make([][]string, len(capt.layers))
	err := allOrNothing(ctx, len(capt.layers), c.cfg.Concurrency, func(ctx context.Context, i int) error {
		r, err := p.CompositingReasons(ctx, capt.layers[i].LayerID)
		if err != nil {
			return fmt.Errorf("layer %s: %w", capt.layers[i].LayerID, err)
		}
		reasons[i] = r
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCompositingReasons, err)
	}
	for i, r := range reasons {
		if r == nil {
			r = []string{}
		}
		capt.layers[i].CompositingReasons = r
	}
	return nil
}

// setIdentities describes every frontend node. Each call writes only the
// layer at its own index; failures keep the fallback identity.
func (c *Collector) setIdentities(ctx context.Context, p Protocol, capt *capture, nodeIDs []int) {
	settled, failed := settleAll(ctx, len(nodeIDs), c.cfg.Concurrency, func(ctx context.Context, k int) error {
		idx := capt.layerIndex[k]
		if nodeIDs[k] == 0 {
			return fmt.Errorf("backend node %d not pushed", capt.backendIDs[k])
		}
		desc, err := p.DescribeNode(ctx, nodeIDs[k])
		if err != nil {
			c.cfg.Logger.Debug("collector: describe node failed",
				"layer", capt.layers[idx].LayerID, "node", nodeIDs[k], "error", err)
			return err
		}
		if desc == "" {
			return fmt.Errorf("node %d has no description", nodeIDs[k])
		}
		capt.layers[idx].Identity = desc
		return nil
	})
	c.cfg.Logger.Debug("collector: node descriptions settled",
		"dispatched", len(nodeIDs), "settled", settled, "failed", failed)
}
