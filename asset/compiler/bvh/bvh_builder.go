package bvh

import (
	"math"
	"time"

	"github.com/achilleasa/raybench/asset/format"
	"github.com/achilleasa/raybench/log"
	"github.com/achilleasa/raybench/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis

	// The BVH builder will not attempt to calculate split candidates
	// if the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 * depth+1))
	// is less than this threshold the BVH builder will not evaluate
	// split candidates.
	minSplitStep float32 = 1e-5

	// The on-disk node stores the primitive count as a uint16.
	maxLeafItems = math.MaxUint16
)

var (
	// A split scoring strategy that uses the surface area heuristic (SAH).
	SurfaceAreaHeuristic = surfaceAreaHeuristic{}
)

// The BoundedVolume interface is implemented by all primitives that can
// be partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() types.BBox
	Center() types.Vec3
}

// A callback that is called whenever the BVH builder creates a new leaf. It
// must set up the leaf ChildFirst and PrimCount fields.
type LeafCallback func(leaf *format.BvhNode, itemList []BoundedVolume)

// A split scoring strategy.
type ScoreStrategy interface {
	// Calculate a score for splitting workList at splitPoint along a particular Axis.
	ScoreSplit(workList []BoundedVolume, splitAxis Axis, splitPoint float32) (leftCount, rightCount int, score float32)

	// Calculate a score for all items in workList.
	ScorePartition(workList []BoundedVolume) (score float32)
}

type splitScore struct {
	axis       Axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

// Candidates are evaluated concurrently so ties are broken by axis and split
// point to keep the output independent of goroutine scheduling.
func (s *splitScore) betterThan(other *splitScore) bool {
	if s.score != other.score {
		return s.score < other.score
	}
	if s.axis != other.axis {
		return s.axis < other.axis
	}
	return s.splitPoint < other.splitPoint
}

type stats struct {
	partitionedItems int
	totalItems       int
	nodes            int
	leafs            int
	maxDepth         int
}

type builder struct {
	logger log.Logger

	// Bvh nodes stored as a contiguous list. The children of an inner
	// node are always stored next to each other.
	nodes []format.BvhNode

	// A callback invoked to set up BVH leafs depending on the type of
	// partitioned bounding volume
	leafCb LeafCallback

	// The minimum number of items that are required for creating a leaf.
	minLeafItems int

	// A channel for receiving score results.
	scoreChan chan splitScore

	// The split scoring strategy to use.
	scoreStrategy ScoreStrategy

	// Stats
	stats stats
}

// Construct a BVH from a set of bounded volumes.
//
// The builder uses SAH for scoring splits:
// score = num_polygons * node bbox face area.
//
// The minLeafItems param should be used to specified the minimum number of
// items that can form a leaf. The BVH builder will automatically generate leafs
// if the incoming work length is <= minLeafItems.
func Build(workList []BoundedVolume, minLeafItems int, leafCb LeafCallback, scoreStrategy ScoreStrategy) []format.BvhNode {
	b := &builder{
		logger:        log.New("bvh builder"),
		nodes:         make([]format.BvhNode, 1),
		leafCb:        leafCb,
		minLeafItems:  minLeafItems,
		scoreChan:     make(chan splitScore, 0),
		scoreStrategy: scoreStrategy,
		stats: stats{
			totalItems: len(workList),
		},
	}

	start := time.Now()
	b.partition(workList, 0, 0)
	b.logger.Debugf(
		"BVH tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs,
	)
	return b.nodes
}

// Partition worklist into the node stored at nodeIndex.
func (b *builder) partition(workList []BoundedVolume, nodeIndex uint32, depth int) {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bbox := types.EmptyBBox()

	// Calculate bounding box for node
	for _, item := range workList {
		bbox = bbox.Union(item.BBox())
	}
	node := format.BvhNode{Min: bbox.Min, Max: bbox.Max}

	// Do we have enough items for partitioning? If not create a leaf
	if len(workList) <= b.minLeafItems {
		b.createLeaf(nodeIndex, &node, workList)
		return
	}

	bestSplit := b.findSplit(workList, bbox, depth)

	var leftWorkList, rightWorkList []BoundedVolume
	switch {
	case bestSplit != nil:
		// split work list into two sets
		leftWorkList = make([]BoundedVolume, 0, bestSplit.leftCount)
		rightWorkList = make([]BoundedVolume, 0, bestSplit.rightCount)
		for _, item := range workList {
			center := item.Center()
			if center[bestSplit.axis] < bestSplit.splitPoint {
				leftWorkList = append(leftWorkList, item)
			} else {
				rightWorkList = append(rightWorkList, item)
			}
		}
		node.Axis = uint16(bestSplit.axis)
	case len(workList) > maxLeafItems:
		// Too many items for a single leaf and no useful split;
		// halve the list.
		half := len(workList) / 2
		leftWorkList, rightWorkList = workList[:half], workList[half:]
	default:
		// If we can't find a split that improves the current node score create a leaf
		b.createLeaf(nodeIndex, &node, workList)
		return
	}

	// Reserve adjacent slots for both children
	childFirst := uint32(len(b.nodes))
	b.nodes = append(b.nodes, format.BvhNode{}, format.BvhNode{})
	node.ChildFirst = int32(childFirst)
	b.nodes[nodeIndex] = node
	b.stats.nodes++

	b.partition(leftWorkList, childFirst, depth+1)
	b.partition(rightWorkList, childFirst+1, depth+1)
}

// Score all split candidates in parallel and return the one that improves
// the most on the unsplit node score or nil if none does.
func (b *builder) findSplit(workList []BoundedVolume, bbox types.BBox, depth int) *splitScore {
	// Calc current node score
	var bestScore float32 = b.scoreStrategy.ScorePartition(workList)
	var bestSplit *splitScore = nil

	// Try partioning along each axis and select the split with best score
	pendingScores := 0

	// Run axis split tests in parallel
	side := bbox.Extents()
	for axis := XAxis; axis <= ZAxis; axis++ {
		// Skip axis if bbox dimension is too small
		if side[axis] < minSideLength {
			continue
		}

		splitStep := side[axis] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := bbox.Min[axis]; splitPoint < bbox.Max[axis]; splitPoint += splitStep {
			pendingScores++
			go func(axis Axis, splitPoint float32) {
				lCount, rCount, score := b.scoreStrategy.ScoreSplit(workList, axis, splitPoint)
				b.scoreChan <- splitScore{
					axis:       axis,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(axis, splitPoint)
		}
	}

	// Process all scores and pick the best split
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score >= bestScore {
			continue
		}
		if bestSplit == nil || candidate.betterThan(bestSplit) {
			bestSplit = &candidate
		}
	}

	return bestSplit
}

// Setup the node stored at nodeIndex as a leaf containing all items in the work list.
func (b *builder) createLeaf(nodeIndex uint32, node *format.BvhNode, workList []BoundedVolume) {
	b.leafCb(node, workList)
	b.nodes[nodeIndex] = *node

	// update stats
	b.stats.leafs++
	b.stats.partitionedItems += len(workList)
}

// A score implementation that uses surface area heuristic for calculating split scores.
type surfaceAreaHeuristic struct{}

// Score a BVH split based on the surface area heuristic. The SAH calculates
// the split score using the formula (lower score is better):
//
// left count * left BBOX area + rightCount * right BBOX area.
//
// SAH avoids splits that generate empty partitions by assigning the worst
// possible score (MaxFloat32) when it enounters such cases.
func (h surfaceAreaHeuristic) ScoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	left := types.EmptyBBox()
	right := types.EmptyBBox()

	leftCount = 0
	rightCount = 0
	for _, item := range workList {
		center := item.Center()
		if center[axis] < splitPoint {
			leftCount++
			left = left.Union(item.BBox())
		} else {
			rightCount++
			right = right.Union(item.BBox())
		}
	}

	// Make sure that we don't generate empty partitions
	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	// SurfaceArea is twice the face area sum; the factor does not affect
	// the ordering of scores.
	score = float32(leftCount)*left.SurfaceArea()*0.5 + float32(rightCount)*right.SurfaceArea()*0.5
	return leftCount, rightCount, score
}

// Calculate score for a partitioned workList using formula:
// count * BBOX area
//
// If the workList is empty, then this method returns the worst possible
// score (MaxFloat32).
func (h surfaceAreaHeuristic) ScorePartition(workList []BoundedVolume) (score float32) {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	bbox := types.EmptyBBox()
	for _, item := range workList {
		bbox = bbox.Union(item.BBox())
	}

	return float32(len(workList)) * bbox.SurfaceArea() * 0.5
}
