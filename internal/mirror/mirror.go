package mirror

import (
	"sync"
	"time"
)

// RunMode reports whether the host is in play mode.
type RunMode string

const (
	RunModeStopped RunMode = "stopped"
	RunModeRunning RunMode = "running"
)

// SceneNode is one entry in the host's scene hierarchy.
type SceneNode struct {
	Name     string      `json:"name"`
	Tags     []string    `json:"tags,omitempty"`
	Children []SceneNode `json:"children,omitempty"`
}

// Snapshot is a complete, replace-only view of the host's observable state.
// It is never merged field-by-field; every publication supersedes the
// previous snapshot wholesale.
type Snapshot struct {
	ActiveEntities   []string            `json:"activeEntities"`
	SelectedEntities []string            `json:"selectedEntities"`
	RunMode          RunMode             `json:"runMode"`
	SceneTree        []SceneNode         `json:"sceneTree,omitempty"`
	Assets           map[string][]string `json:"assets,omitempty"`
	CapturedAt       time.Time           `json:"capturedAt"`
}

// viewKind selects how much of a snapshot a read returns.
type viewKind int

const (
	viewFull viewKind = iota
	viewCategory
	viewExcludingCategory
)

// View narrows a snapshot read to one asset category, everything except one
// category, or the full snapshot.
type View struct {
	kind     viewKind
	category string
}

func ViewFull() View { return View{kind: viewFull} }

func ViewCategory(name string) View { return View{kind: viewCategory, category: name} }

func ViewExcludingCategory(name string) View {
	return View{kind: viewExcludingCategory, category: name}
}

// Mirror holds the most recently published snapshot. Publish replaces the
// held snapshot atomically; readers always receive deep copies and never
// observe a partially-updated snapshot.
type Mirror struct {
	mu        sync.RWMutex
	snap      Snapshot
	published bool
}

func New() *Mirror {
	return &Mirror{}
}

// Publish replaces the held snapshot. The mirror takes ownership of the
// value; callers must not retain references into its slices or maps.
func (m *Mirror) Publish(snap Snapshot) {
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = time.Now()
	}
	m.mu.Lock()
	m.snap = snap
	m.published = true
	m.mu.Unlock()
}

// Read returns a deep copy of the held snapshot narrowed to the given view.
// The second return is false if no snapshot has been published yet.
func (m *Mirror) Read(view View) (Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.published {
		return Snapshot{}, false
	}
	snap := Clone(m.snap)
	switch view.kind {
	case viewCategory:
		paths := snap.Assets[view.category]
		snap.Assets = map[string][]string{}
		if paths != nil {
			snap.Assets[view.category] = paths
		}
	case viewExcludingCategory:
		delete(snap.Assets, view.category)
	}
	return snap, true
}

// LastPublished reports the capture time of the held snapshot, if any.
func (m *Mirror) LastPublished() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.published {
		return time.Time{}, false
	}
	return m.snap.CapturedAt, true
}

// Clone returns a deep copy of a snapshot.
func Clone(snap Snapshot) Snapshot {
	copied := snap
	copied.ActiveEntities = append([]string(nil), snap.ActiveEntities...)
	copied.SelectedEntities = append([]string(nil), snap.SelectedEntities...)
	copied.SceneTree = cloneNodes(snap.SceneTree)
	if snap.Assets != nil {
		assets := make(map[string][]string, len(snap.Assets))
		for category, paths := range snap.Assets {
			assets[category] = append([]string(nil), paths...)
		}
		copied.Assets = assets
	}
	return copied
}

func cloneNodes(nodes []SceneNode) []SceneNode {
	if nodes == nil {
		return nil
	}
	copied := make([]SceneNode, len(nodes))
	for i, node := range nodes {
		copied[i] = SceneNode{
			Name:     node.Name,
			Tags:     append([]string(nil), node.Tags...),
			Children: cloneNodes(node.Children),
		}
	}
	return copied
}
