package content

import "sort"

// Tree is an arena snapshot of one document's hierarchy: every node in a
// single keyed collection, parent links resolved by id lookup instead of
// embedded pointers. Renderers treat it as read-only; concurrent readers are
// safe as long as nobody mutates the nodes.
type Tree struct {
	Document    Document
	Publication Publication

	nodes    map[string]*Node
	children map[string][]*Node
	roots    []*Node
}

// NewTree indexes nodes into an arena. Siblings are sorted by
// SequenceInParent; nodes whose parent id is absent from the arena are
// treated as roots so a partially loaded tree still renders its intact parts.
func NewTree(doc Document, pub Publication, nodes []*Node) *Tree {
	t := &Tree{
		Document:    doc,
		Publication: pub,
		nodes:       make(map[string]*Node, len(nodes)),
		children:    make(map[string][]*Node),
	}
	for _, n := range nodes {
		t.nodes[n.ID] = n
	}
	for _, n := range nodes {
		if n.ParentID == "" || t.nodes[n.ParentID] == nil {
			t.roots = append(t.roots, n)
			continue
		}
		t.children[n.ParentID] = append(t.children[n.ParentID], n)
	}
	sort.Slice(t.roots, func(i, j int) bool {
		return t.roots[i].SequenceInParent < t.roots[j].SequenceInParent
	})
	for _, siblings := range t.children {
		sort.Slice(siblings, func(i, j int) bool {
			return siblings[i].SequenceInParent < siblings[j].SequenceInParent
		})
	}
	return t
}

// Node returns the node with the given id, or false on a miss.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Children returns the node's children ordered by SequenceInParent. The
// ordering is a hard contract; the renderer depends on it.
func (t *Tree) Children(id string) []*Node {
	return t.children[id]
}

// Roots returns the document's root nodes ordered by SequenceInParent.
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Parent resolves the node's parent, or nil at a root.
func (t *Tree) Parent(n *Node) *Node {
	if n.ParentID == "" {
		return nil
	}
	return t.nodes[n.ParentID]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int {
	return len(t.nodes)
}
