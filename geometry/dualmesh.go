package geometry

import (
	"math"

	"github.com/james-bowman/sparse"

	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// Point is one control volume of the median-dual mesh.
type Point struct {
	Coord        []float64
	Volume       float64
	GlobalIndex  int
	Domain       bool // owned by this partition, not a halo point
	Boundary     bool // sits on a physical boundary marker
	Neighbors    []int
	WallDistance float64
	GridVel      []float64
}

// Edge connects two points; Normal is the area-scaled dual face normal
// oriented from Nodes[0] toward Nodes[1].
type Edge struct {
	Nodes  [2]int
	Normal []float64
}

// Vertex is one boundary control-volume face. Normal is area scaled and
// points out of the domain. Donor pairs the vertex with a point across an
// interface, nearfield or periodic boundary.
type Vertex struct {
	Node           int
	Normal         []float64
	RotationType   int
	DonorPoint     int
	DonorPartition int
}

// Marker is a tagged set of boundary vertices. SendRecv carries the signed
// one-based partner partition for send-receive markers: positive sends,
// negative receives, zero for physical boundaries.
type Marker struct {
	Label    string
	Kind     types.BCFLAG
	SendRecv int
	Vertices []Vertex
}

// DualMesh is the median-dual control-volume mesh of one partition.
type DualMesh struct {
	NDim         int
	NPoint       int
	NPointDomain int
	Points       []Point
	Edges        []Edge
	Markers      []Marker
	Adjacency    *sparse.CSR // symmetric point-to-point connectivity
}

// NewDualMesh builds the median-dual metrics from a triangle mesh: per-point
// control volumes, interior dual-face normals and boundary vertex normals.
// EToV is Kx3, bcEdges maps marker labels onto endpoint vertex pairs.
func NewDualMesh(VX, VY utils.Vector, EToV utils.Matrix, bcEdges map[string][][2]int) (dm *DualMesh) {
	var (
		K, _   = EToV.Dims()
		nPoint = VX.Len()
	)
	dm = &DualMesh{
		NDim:         2,
		NPoint:       nPoint,
		NPointDomain: nPoint,
		Points:       make([]Point, nPoint),
	}
	for i := range dm.Points {
		dm.Points[i] = Point{
			Coord:       []float64{VX.AtVec(i), VY.AtVec(i)},
			GlobalIndex: i,
			Domain:      true,
		}
	}
	edgeIndex := make(map[types.EdgeKey]int)
	addNormal := func(i, j int, nx, ny float64) {
		key := types.NewEdgeKey([2]int{i, j})
		if i > j {
			nx, ny = -nx, -ny
		}
		ind, exists := edgeIndex[key]
		if !exists {
			ind = len(dm.Edges)
			edgeIndex[key] = ind
			dm.Edges = append(dm.Edges, Edge{
				Nodes:  key.GetVertices(false),
				Normal: make([]float64, 2),
			})
		}
		dm.Edges[ind].Normal[0] += nx
		dm.Edges[ind].Normal[1] += ny
	}
	for k := 0; k < K; k++ {
		v := [3]int{int(EToV.At(k, 0)), int(EToV.At(k, 1)), int(EToV.At(k, 2))}
		var cx, cy float64
		for _, p := range v {
			cx += dm.Points[p].Coord[0]
			cy += dm.Points[p].Coord[1]
		}
		cx, cy = cx/3, cy/3
		area := triArea(dm.Points[v[0]].Coord, dm.Points[v[1]].Coord, dm.Points[v[2]].Coord)
		for _, p := range v {
			dm.Points[p].Volume += area / 3
		}
		// One dual face per triangle edge, from edge midpoint to centroid
		for e := 0; e < 3; e++ {
			i, j := v[e], v[(e+1)%3]
			mx := 0.5 * (dm.Points[i].Coord[0] + dm.Points[j].Coord[0])
			my := 0.5 * (dm.Points[i].Coord[1] + dm.Points[j].Coord[1])
			// Normal to the segment midpoint->centroid, oriented i->j
			nx, ny := cy-my, -(cx - mx)
			if nx*(dm.Points[j].Coord[0]-dm.Points[i].Coord[0])+
				ny*(dm.Points[j].Coord[1]-dm.Points[i].Coord[1]) < 0 {
				nx, ny = -nx, -ny
			}
			addNormal(i, j, nx, ny)
		}
	}
	dm.buildNeighbors()
	dm.buildMarkers(bcEdges)
	return
}

func triArea(a, b, c []float64) float64 {
	return 0.5 * math.Abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1]))
}

func (dm *DualMesh) buildNeighbors() {
	dok := sparse.NewDOK(dm.NPoint, dm.NPoint)
	for _, e := range dm.Edges {
		dok.Set(e.Nodes[0], e.Nodes[1], 1)
		dok.Set(e.Nodes[1], e.Nodes[0], 1)
	}
	dm.Adjacency = dok.ToCSR()
	for i := 0; i < dm.NPoint; i++ {
		var nbrs []int
		dm.Adjacency.DoRowNonZero(i, func(_, j int, _ float64) {
			nbrs = append(nbrs, j)
		})
		dm.Points[i].Neighbors = nbrs
	}
}

func (dm *DualMesh) buildMarkers(bcEdges map[string][][2]int) {
	for label, edges := range bcEdges {
		kind, ok := types.ParseBCName(label)
		if !ok {
			kind = types.BC_None
		}
		marker := Marker{Label: label, Kind: kind}
		vertexOf := make(map[int]int)
		for _, be := range edges {
			p1, p2 := be[0], be[1]
			// Outward normal of the boundary segment with its full length,
			// split evenly between the two endpoint vertices
			dx := dm.Points[p2].Coord[0] - dm.Points[p1].Coord[0]
			dy := dm.Points[p2].Coord[1] - dm.Points[p1].Coord[1]
			nx, ny := dy, -dx
			if dm.pointsInward(p1, p2, nx, ny) {
				nx, ny = -nx, -ny
			}
			for _, p := range [2]int{p1, p2} {
				vi, exists := vertexOf[p]
				if !exists {
					vi = len(marker.Vertices)
					vertexOf[p] = vi
					marker.Vertices = append(marker.Vertices, Vertex{
						Node:       p,
						Normal:     make([]float64, 2),
						DonorPoint: -1,
					})
				}
				marker.Vertices[vi].Normal[0] += 0.5 * nx
				marker.Vertices[vi].Normal[1] += 0.5 * ny
			}
		}
		dm.Markers = append(dm.Markers, marker)
	}
	for _, marker := range dm.Markers {
		switch marker.Kind {
		case types.BC_SendReceive, types.BC_Interface, types.BC_NearField, types.BC_Periodic:
		default:
			for _, vtx := range marker.Vertices {
				dm.Points[vtx.Node].Boundary = true
			}
		}
	}
	dm.computeWallDistance()
}

// pointsInward reports whether (nx,ny) at the midpoint of segment (p1,p2)
// points toward the interior, tested against the average of the two points'
// neighbor positions.
func (dm *DualMesh) pointsInward(p1, p2 int, nx, ny float64) bool {
	var ix, iy float64
	var count int
	for _, p := range [2]int{p1, p2} {
		for _, nbr := range dm.Points[p].Neighbors {
			ix += dm.Points[nbr].Coord[0]
			iy += dm.Points[nbr].Coord[1]
			count++
		}
	}
	if count == 0 {
		return false
	}
	ix, iy = ix/float64(count), iy/float64(count)
	mx := 0.5 * (dm.Points[p1].Coord[0] + dm.Points[p2].Coord[0])
	my := 0.5 * (dm.Points[p1].Coord[1] + dm.Points[p2].Coord[1])
	return nx*(ix-mx)+ny*(iy-my) > 0
}

func (dm *DualMesh) computeWallDistance() {
	var wallPoints []int
	for _, m := range dm.Markers {
		if m.Kind == types.BC_NSWall || m.Kind == types.BC_EulerWall {
			for _, v := range m.Vertices {
				wallPoints = append(wallPoints, v.Node)
			}
		}
	}
	for i := range dm.Points {
		if len(wallPoints) == 0 {
			dm.Points[i].WallDistance = math.MaxFloat64
			continue
		}
		min := math.MaxFloat64
		for _, w := range wallPoints {
			var d2 float64
			for d := 0; d < dm.NDim; d++ {
				diff := dm.Points[i].Coord[d] - dm.Points[w].Coord[d]
				d2 += diff * diff
			}
			if d2 < min {
				min = d2
			}
		}
		dm.Points[i].WallDistance = math.Sqrt(min)
	}
}

// JacobianAddresses returns the block sparsity pattern of the implicit system:
// one diagonal block per point plus an off-diagonal pair per edge.
func (dm *DualMesh) JacobianAddresses() (addresses [][2]int) {
	addresses = make([][2]int, 0, dm.NPoint+2*len(dm.Edges))
	for i := 0; i < dm.NPoint; i++ {
		addresses = append(addresses, [2]int{i, i})
	}
	for _, e := range dm.Edges {
		addresses = append(addresses, [2]int{e.Nodes[0], e.Nodes[1]})
		addresses = append(addresses, [2]int{e.Nodes[1], e.Nodes[0]})
	}
	return
}

// MarkersOfKind returns the indices of all markers with the given kind.
func (dm *DualMesh) MarkersOfKind(kind types.BCFLAG) (indices []int) {
	for i, m := range dm.Markers {
		if m.Kind == kind {
			indices = append(indices, i)
		}
	}
	return
}
