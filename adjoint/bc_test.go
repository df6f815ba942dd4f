package adjoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/types"
)

func TestBoundaryResidualZeroAdjointDrag(t *testing.T) {
	// Zero adjoint state, zero alpha: the drag projection vector is normal
	// to the bottom wall, so every boundary flux vanishes identically
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.TimeIntegration = "explicit-euler"
	})
	assert.NoError(t, s.SetForceProjVector())
	ek := newEdgeKernel(s.NDim, s.IP.Gamma)
	s.spaceIntegration(ek, 0)
	for i := range s.ResConv {
		assert.InDelta(t, 0.0, s.ResConv[i], 1.e-12)
	}
}

func TestFarFieldJacobianConsistency(t *testing.T) {
	// At the free-stream state the Roe average collapses to the state
	// itself, so the upwind far-field Jacobian satisfies
	// A - 2*(0.5*A - 0.5*|A|) = |A|, and |A| squares back to A*A.
	s := testCase(t, nil)
	im := s.Mesh.MarkersOfKind(types.BC_Far)[0]
	vtx := s.Mesh.Markers[im].Vertices[0]
	var (
		iPoint = vtx.Node
		nVar   = s.NVar
		normal = vtx.Normal
		area   float64
	)
	for _, n := range normal {
		area += n * n
	}
	area = math.Sqrt(area)

	jacT := newSquare(nVar) // adjoint (transposed) projected Jacobian
	s.farFieldExactJacobian(s.Flow.Solution(iPoint), s.Flow.Pressure(iPoint),
		normal, jacT)
	jacRoe := newSquare(nVar)
	s.farFieldFluxJacobian(iPoint, normal, area, jacRoe)

	mul := func(a, b [][]float64) [][]float64 {
		c := newSquare(nVar)
		for i := 0; i < nVar; i++ {
			for j := 0; j < nVar; j++ {
				for k := 0; k < nVar; k++ {
					c[i][j] += a[i][k] * b[k][j]
				}
			}
		}
		return c
	}
	a := newSquare(nVar)
	absA := newSquare(nVar)
	for i := 0; i < nVar; i++ {
		for j := 0; j < nVar; j++ {
			a[i][j] = jacT[j][i]
		}
	}
	assert.InDelta(t, normal[0], a[0][1], 1.e-12)
	assert.InDelta(t, normal[1], a[0][2], 1.e-12)
	for i := 0; i < nVar; i++ {
		for j := 0; j < nVar; j++ {
			absA[i][j] = a[i][j] - 2*jacRoe[i][j]
		}
	}
	aa := mul(a, a)
	absAbs := mul(absA, absA)
	for i := 0; i < nVar; i++ {
		for j := 0; j < nVar; j++ {
			assert.InDelta(t, aa[i][j], absAbs[i][j], 1.e-8)
		}
	}
}

func TestBoundaryResidualZeroAdjointLift(t *testing.T) {
	// With the lift projection the wall flux no longer vanishes at zero
	// adjoint state. Deriving the wall block by hand for the bottom wall:
	// the outward unit normal is (0,-1), the projection vector is (0,cP),
	// and the no-flux momentum correction leaves psi_mom = (0,cP) inside
	// the flux formulas.
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.Objective = "lift"
		ap.TimeIntegration = "explicit-euler"
	})
	assert.NoError(t, s.SetForceProjVector())
	ek := newEdgeKernel(s.NDim, s.IP.Gamma)
	s.spaceIntegration(ek, 0)

	var (
		nVar  = s.NVar
		gm1   = s.FS.Gamma - 1
		cP    = 1 / (0.5 * s.FS.RefDensity * s.FS.RefAreaCoeff * s.FS.RefVel2)
		velX  = s.FS.Velocity[0]
		sqVel = 0.5 * s.FS.RefVel2
		// Each wall vertex carries the into-domain normal (0, 0.5)
		phis1 = -0.5 * cP
	)
	expected := []float64{
		-(phis1 * gm1 * sqVel),
		phis1 * gm1 * velX,
		0,
		-(phis1 * gm1),
	}
	wall := make(map[int]bool)
	for _, im := range s.Mesh.MarkersOfKind(types.BC_EulerWall) {
		for _, vtx := range s.Mesh.Markers[im].Vertices {
			wall[vtx.Node] = true
		}
	}
	assert.Equal(t, 2, len(wall))
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		for iVar := 0; iVar < nVar; iVar++ {
			want := 0.0
			if wall[iPoint] {
				want = expected[iVar]
			}
			assert.InDelta(t, want, s.ResConv[iPoint*nVar+iVar], 1.e-12)
		}
	}
}
