package frontier

import "github.com/hawkberry/Arborist/internal/split"

// PreTreeNode mirrors spec §3's pre-tree node record. Terminal nodes
// carry a leaf id; interior nodes carry the delta to their left child
// (the right child is always leftChild+1, since every branch's two
// children are allocated consecutively).
type PreTreeNode struct {
	Pred             int
	IsFactor         bool
	RankLo, RankHi   int
	ImplicitLHExtent int
	FacBitStart      int
	FacBitLen        int
	LeftDelta        int
	InfoGain         float64
	Terminal         bool
	LeafID           int
}

// PreTree is the growable pre-tree node array plus growable factor-bit
// vector of spec §4.7, grown level by level during Frontier.OneTree
// and walked afterward in that same storage order to emit packed
// Forest nodes.
type PreTree struct {
	Nodes         []PreTreeNode
	FacBits       []bool
	TerminalCount int
	nextLeafID    int
}

func newPreTree() *PreTree {
	pt := &PreTree{}
	pt.addNode()
	return pt
}

func (pt *PreTree) addNode() int {
	pt.Nodes = append(pt.Nodes, PreTreeNode{Terminal: true, LeafID: -1})
	pt.TerminalCount++
	return len(pt.Nodes) - 1
}

// terminalOffspring accounts for the parent losing terminal status
// when it branches; addNode already counted its two new children, so
// the net effect of a branch is TerminalCount+1, per spec §4.7.
func (pt *PreTree) terminalOffspring() { pt.TerminalCount-- }

// BranchNum records a numeric split's rank range and left-child delta.
func (pt *PreTree) BranchNum(nodeID int, n split.Nucleus) (leftID, rightID int) {
	leftID = pt.addNode()
	rightID = pt.addNode()
	pt.terminalOffspring()
	node := &pt.Nodes[nodeID]
	node.Pred = n.Pred
	node.RankLo, node.RankHi = n.Encoding.RankRangeLo, n.Encoding.RankRangeHi
	node.ImplicitLHExtent = n.Encoding.ImplicitLHExtent
	node.InfoGain = n.InfoGain
	node.LeftDelta = leftID - nodeID
	node.Terminal = false
	return leftID, rightID
}

// BranchFac allocates bits in the factor-bit vector for the given
// cardinality, sets the ones in n.Encoding.LeftCodes, and records the
// left-child delta.
func (pt *PreTree) BranchFac(nodeID int, n split.Nucleus, cardinality int) (leftID, rightID int) {
	start := len(pt.FacBits)
	pt.FacBits = append(pt.FacBits, make([]bool, cardinality)...)
	leftID = pt.addNode()
	rightID = pt.addNode()
	pt.terminalOffspring()
	node := &pt.Nodes[nodeID]
	node.Pred = n.Pred
	node.IsFactor = true
	node.FacBitStart = start
	node.FacBitLen = cardinality
	node.InfoGain = n.InfoGain
	node.LeftDelta = leftID - nodeID
	node.Terminal = false
	for _, code := range n.Encoding.LeftCodes {
		pt.LHBit(nodeID, code)
	}
	return leftID, rightID
}

// LHBit sets the bit for factor code pos within nodeID's factor-bit
// range, marking that code as routing left.
func (pt *PreTree) LHBit(nodeID, pos int) {
	n := pt.Nodes[nodeID]
	pt.FacBits[n.FacBitStart+pos] = true
}

// MakeTerminal finalizes nodeID as a leaf, assigning it the next leaf
// id, and returns that id.
func (pt *PreTree) MakeTerminal(nodeID int) int {
	id := pt.nextLeafID
	pt.nextLeafID++
	pt.Nodes[nodeID].Terminal = true
	pt.Nodes[nodeID].LeafID = id
	return id
}

// LeafMerge collapses adjacent terminal sibling pairs (always
// consecutive ids, since BranchNum/BranchFac allocate a branch's two
// children back to back) until the terminal count no longer exceeds
// leafMax, or no mergeable pair remains. It returns the number of
// leaves removed. leafMax <= 0 disables the cap.
func (pt *PreTree) LeafMerge(leafMax int) int {
	if leafMax <= 0 {
		return 0
	}
	removed := 0
	for i := 1; i+1 < len(pt.Nodes) && pt.TerminalCount > leafMax; i += 2 {
		if pt.Nodes[i].Terminal && pt.Nodes[i+1].Terminal && pt.Nodes[i].LeafID >= 0 && pt.Nodes[i+1].LeafID >= 0 &&
			pt.Nodes[i].LeafID != pt.Nodes[i+1].LeafID {
			pt.Nodes[i+1].LeafID = pt.Nodes[i].LeafID
			pt.TerminalCount--
			removed++
		}
	}
	return removed
}
