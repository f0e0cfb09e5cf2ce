package memdb

import (
	"encoding/json"

	"github.com/unkn0wn-root/pathmut/tree"
)

// Snapshot is an immutable read of one node.
type Snapshot struct {
	path string
	node any
}

func (s Snapshot) Path() string { return s.path }
func (s Snapshot) Key() string  { return tree.Base(s.path) }
func (s Snapshot) Exists() bool { return s.node != nil }

// Val returns a fresh copy of the value without priority metadata, or nil.
func (s Snapshot) Val() any { return tree.Strip(s.node) }

// Priority returns the node's priority (float64 or string), or nil.
func (s Snapshot) Priority() any { return tree.PriorityOf(s.node) }

// Export returns a copy of the value in export format.
func (s Snapshot) Export() any { return tree.Clone(s.node) }

// Child returns the snapshot of rel below s.
func (s Snapshot) Child(rel string) Snapshot {
	return Snapshot{
		path: tree.Join(s.path, rel),
		node: tree.Lookup(s.node, tree.Split(rel)),
	}
}

// Children returns the direct children in priority order.
func (s Snapshot) Children() []Snapshot {
	keys := tree.Children(s.node)
	out := make([]Snapshot, len(keys))
	for i, k := range keys {
		out[i] = s.Child(k)
	}
	return out
}

// Decode unmarshals the value into dst via its JSON form.
func (s Snapshot) Decode(dst any) error {
	b, err := json.Marshal(s.Val())
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
