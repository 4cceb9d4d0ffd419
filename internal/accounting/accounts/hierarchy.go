package accounts

import "sort"

// Node is an account with its nested children.
type Node struct {
	Account
	Children []*Node `json:"children,omitempty"`
}

// Tree indexes a chart of accounts by id with parent to children adjacency.
// It is built once per query and must not outlive it: accounts can be added
// or re-parented between requests.
type Tree struct {
	nodes map[int64]*Node
	roots []*Node
}

// NewTree builds the forest. Accounts whose parent is missing become roots.
// Children are ordered lexicographically by code at every level.
func NewTree(accounts []Account) *Tree {
	t := &Tree{nodes: make(map[int64]*Node, len(accounts))}
	for _, acc := range accounts {
		t.nodes[acc.ID] = &Node{Account: acc}
	}
	for _, acc := range accounts {
		node := t.nodes[acc.ID]
		if acc.ParentID != nil && *acc.ParentID != acc.ID {
			if parent, ok := t.nodes[*acc.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		t.roots = append(t.roots, node)
	}
	sortNodes(t.roots)
	for _, node := range t.nodes {
		sortNodes(node.Children)
	}
	return t
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Code < nodes[j].Code })
}

// Roots returns the top-level accounts.
func (t *Tree) Roots() []*Node { return t.roots }

// Node returns the node for id.
func (t *Tree) Node(id int64) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of accounts in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Descendants returns every transitive child of id in depth-first code order,
// excluding id itself.
func (t *Tree) Descendants(id int64) []int64 {
	root, ok := t.nodes[id]
	if !ok {
		return nil
	}
	var out []int64
	seen := map[int64]bool{id: true}
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, child := range n.Children {
			if seen[child.ID] {
				continue
			}
			seen[child.ID] = true
			out = append(out, child.ID)
			walk(child)
		}
	}
	walk(root)
	return out
}

// IsDescendant reports whether id sits anywhere below ancestor.
func (t *Tree) IsDescendant(ancestor, id int64) bool {
	for _, d := range t.Descendants(ancestor) {
		if d == id {
			return true
		}
	}
	return false
}

// Flatten lists accounts in hierarchy order: each parent followed by its subtree.
func (t *Tree) Flatten() []Account {
	out := make([]Account, 0, len(t.nodes))
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n.Account)
			walk(n.Children)
		}
	}
	walk(t.roots)
	return out
}
