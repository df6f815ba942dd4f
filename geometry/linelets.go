package geometry

import (
	"math"

	"github.com/notargets/goadjoint/types"
)

const maxLineletLength = 12

// Linelets builds chains of strongly coupled points for the linelet
// preconditioner: each chain starts at a wall point and repeatedly steps to
// the nearest unclaimed neighbor, mimicking the tight normal-direction
// coupling of stretched boundary-layer meshes.
func (dm *DualMesh) Linelets() (lines [][]int) {
	var (
		claimed = make([]bool, dm.NPoint)
		seeds   []int
	)
	for _, kind := range []types.BCFLAG{types.BC_NSWall, types.BC_EulerWall} {
		for _, mi := range dm.MarkersOfKind(kind) {
			for _, v := range dm.Markers[mi].Vertices {
				seeds = append(seeds, v.Node)
			}
		}
	}
	for _, seed := range seeds {
		if claimed[seed] {
			continue
		}
		line := []int{seed}
		claimed[seed] = true
		current := seed
		for len(line) < maxLineletLength {
			next := dm.nearestUnclaimed(current, claimed)
			if next < 0 {
				break
			}
			line = append(line, next)
			claimed[next] = true
			current = next
		}
		if len(line) > 1 {
			lines = append(lines, line)
		}
	}
	return
}

func (dm *DualMesh) nearestUnclaimed(i int, claimed []bool) (next int) {
	var (
		min = math.MaxFloat64
	)
	next = -1
	for _, j := range dm.Points[i].Neighbors {
		if claimed[j] {
			continue
		}
		var d2 float64
		for d := 0; d < dm.NDim; d++ {
			diff := dm.Points[i].Coord[d] - dm.Points[j].Coord[d]
			d2 += diff * diff
		}
		if d2 < min {
			min = d2
			next = j
		}
	}
	return
}
