package classifier

import "github.com/hazyhaar/renderaudit/layeraudit/artifact"

// forest is the layer hierarchy of one capture, built once from the
// ParentLayerID back-references. Layers are addressed by their position in
// the capture; nothing is copied.
type forest struct {
	parent   []int   // -1 for roots and orphans
	children [][]int // positions of direct children, in capture order
}

func newForest(layers []artifact.Layer) *forest {
	index := make(map[string]int, len(layers))
	for i, l := range layers {
		if _, dup := index[l.LayerID]; !dup {
			index[l.LayerID] = i
		}
	}

	f := &forest{
		parent:   make([]int, len(layers)),
		children: make([][]int, len(layers)),
	}
	for i, l := range layers {
		f.parent[i] = -1
		if l.IsRoot() {
			continue
		}
		p, ok := index[l.ParentLayerID]
		if !ok || p == i {
			continue
		}
		f.parent[i] = p
		f.children[p] = append(f.children[p], i)
	}
	return f
}

// hasChildren reports whether the layer at i is the parent of another layer.
func (f *forest) hasChildren(i int) bool {
	return len(f.children[i]) > 0
}

// walkUp visits every ancestor of i, nearest first, and returns the number
// of hops to the root (0 for a root). A malformed chain is cut after
// len(layers) hops.
func (f *forest) walkUp(i int, visit func(ancestor int)) int {
	hops := 0
	for p := f.parent[i]; p >= 0 && hops < len(f.parent); p = f.parent[p] {
		hops++
		if visit != nil {
			visit(p)
		}
	}
	return hops
}
