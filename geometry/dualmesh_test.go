package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// squareMesh builds the unit square as four triangles around a center point.
// The bottom edge is a wall, the remaining sides are far-field.
func squareMesh() (VX, VY utils.Vector, EToV utils.Matrix, bcEdges map[string][][2]int) {
	VX = utils.NewVector(5, []float64{0, 1, 1, 0, 0.5})
	VY = utils.NewVector(5, []float64{0, 0, 1, 1, 0.5})
	EToV = utils.NewMatrix(4, 3, []float64{
		0, 1, 4,
		1, 2, 4,
		2, 3, 4,
		3, 0, 4,
	})
	bcEdges = map[string][][2]int{
		"wall":     {{0, 1}},
		"farfield": {{1, 2}, {2, 3}, {3, 0}},
	}
	return
}

func TestDualMeshMetrics(t *testing.T) {
	VX, VY, EToV, bcEdges := squareMesh()
	dm := NewDualMesh(VX, VY, EToV, bcEdges)
	assert.Equal(t, 2, dm.NDim)
	assert.Equal(t, 5, dm.NPoint)
	assert.Equal(t, 5, dm.NPointDomain)

	// Control volumes tile the domain
	var totalVolume float64
	for _, p := range dm.Points {
		assert.True(t, p.Volume > 0)
		totalVolume += p.Volume
	}
	assert.InDelta(t, 1.0, totalVolume, 1e-12)

	// The center point touches all four triangles, each corner touches two
	assert.InDelta(t, 1.0/3.0, dm.Points[4].Volume, 1e-12)
	assert.InDelta(t, 1.0/6.0, dm.Points[0].Volume, 1e-12)

	// Four boundary edges plus four spokes into the center
	assert.Equal(t, 8, len(dm.Edges))
	assert.Equal(t, 4, len(dm.Points[4].Neighbors))

	assert.False(t, dm.Points[4].Boundary)
	assert.True(t, dm.Points[0].Boundary)
}

// Each interior control volume is closed: the signed dual-face normals of
// its edges sum to zero. Boundary volumes close once the outward vertex
// normals of their markers are added.
func TestDualMeshNormalClosure(t *testing.T) {
	VX, VY, EToV, bcEdges := squareMesh()
	dm := NewDualMesh(VX, VY, EToV, bcEdges)

	closure := make([][2]float64, dm.NPoint)
	for _, e := range dm.Edges {
		i, j := e.Nodes[0], e.Nodes[1]
		closure[i][0] += e.Normal[0]
		closure[i][1] += e.Normal[1]
		closure[j][0] -= e.Normal[0]
		closure[j][1] -= e.Normal[1]
	}
	for _, marker := range dm.Markers {
		for _, vtx := range marker.Vertices {
			closure[vtx.Node][0] += vtx.Normal[0]
			closure[vtx.Node][1] += vtx.Normal[1]
		}
	}
	for i := range closure {
		assert.InDelta(t, 0, closure[i][0], 1e-12, "point %d", i)
		assert.InDelta(t, 0, closure[i][1], 1e-12, "point %d", i)
	}
}

func TestDualMeshMarkers(t *testing.T) {
	VX, VY, EToV, bcEdges := squareMesh()
	dm := NewDualMesh(VX, VY, EToV, bcEdges)
	assert.Equal(t, 2, len(dm.Markers))

	walls := dm.MarkersOfKind(types.BC_EulerWall)
	assert.Equal(t, 1, len(walls))
	wall := dm.Markers[walls[0]]
	assert.Equal(t, "wall", wall.Label)
	assert.Equal(t, 2, len(wall.Vertices))
	// The bottom edge has outward normal (0,-1) of length one, split
	// between its endpoint vertices
	for _, vtx := range wall.Vertices {
		assert.InDelta(t, 0, vtx.Normal[0], 1e-12)
		assert.InDelta(t, -0.5, vtx.Normal[1], 1e-12)
	}

	far := dm.MarkersOfKind(types.BC_Far)
	assert.Equal(t, 1, len(far))
	assert.Equal(t, 4, len(dm.Markers[far[0]].Vertices))
}

func TestDualMeshWallDistance(t *testing.T) {
	VX, VY, EToV, bcEdges := squareMesh()
	dm := NewDualMesh(VX, VY, EToV, bcEdges)
	assert.InDelta(t, 0, dm.Points[0].WallDistance, 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), dm.Points[4].WallDistance, 1e-12)
	assert.InDelta(t, 1.0, dm.Points[2].WallDistance, 1e-12)
}

func TestJacobianAddresses(t *testing.T) {
	VX, VY, EToV, bcEdges := squareMesh()
	dm := NewDualMesh(VX, VY, EToV, bcEdges)
	addresses := dm.JacobianAddresses()
	assert.Equal(t, dm.NPoint+2*len(dm.Edges), len(addresses))
	seen := make(map[[2]int]bool)
	for _, a := range addresses {
		assert.False(t, seen[a], "duplicate address %v", a)
		seen[a] = true
	}
	for i := 0; i < dm.NPoint; i++ {
		assert.True(t, seen[[2]int{i, i}])
	}
}
