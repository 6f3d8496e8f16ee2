package scene

import "fmt"

// A Child references either another node (inner) or the start of a leaf
// record in a packed triangle buffer. It is collapsed into a single signed
// integer only when written into a node array: inner children are stored as
// their non-negative node index and leaves as the bitwise complement of their
// offset.
type Child struct {
	leaf  bool
	index uint32
}

// Create a reference to an inner node.
func InnerChild(nodeIndex uint32) Child {
	return Child{index: nodeIndex}
}

// Create a reference to a leaf record that starts at the given offset.
func LeafChild(offset uint32) Child {
	return Child{leaf: true, index: offset}
}

// Decode a sign-encoded child index.
func DecodeChild(v int32) Child {
	if v < 0 {
		return LeafChild(uint32(^v))
	}
	return InnerChild(uint32(v))
}

// Returns true if this child points to a leaf record.
func (c Child) IsLeaf() bool {
	return c.leaf
}

// Get the node index or leaf offset.
func (c Child) Index() uint32 {
	return c.index
}

// Encode the child into its sign-encoded form.
func (c Child) Encode() int32 {
	if c.leaf {
		return ^int32(c.index)
	}
	return int32(c.index)
}

// Implements Stringer.
func (c Child) String() string {
	if c.leaf {
		return fmt.Sprintf("leaf@%d", c.index)
	}
	return fmt.Sprintf("node#%d", c.index)
}
