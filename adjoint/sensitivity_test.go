package adjoint

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/flow"
	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/types"
	"github.com/notargets/goadjoint/utils"
)

// At a uniform free stream with a zero adjoint the surface sensitivity
// vanishes and only the explicit free-stream terms of the drag survive.
func TestInviscidSensitivityUniformState(t *testing.T) {
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.Alpha = 5
	})
	s.InviscidSensitivity()

	for im := range s.CSensitivity {
		for _, c := range s.CSensitivity[im] {
			assert.InDelta(t, 0, c, 1e-12)
		}
	}
	assert.InDelta(t, 0, s.TotalSensGeo, 1e-12)

	var (
		alpha = s.FS.Alpha
		cP    = 1.0 / (0.5 * s.FS.RefDensity * s.FS.RefAreaCoeff * s.FS.RefVel2)
	)
	// two wall vertices, each holding half the bottom edge with outward
	// normal (0,-1) and unit free-stream pressure
	assert.InDelta(t, 2.5*cP*math.Sin(alpha), s.SensMach, 1e-12)
	assert.InDelta(t, -cP*math.Cos(alpha), s.SensAoA, 1e-12)
	assert.InDelta(t, cP*math.Sin(alpha), s.SensPress, 1e-12)
	assert.InDelta(t, 0, s.SensTemp, 1e-12)
}

func TestInviscidSensitivityDiscreteMode(t *testing.T) {
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.AdjointMode = "discrete"
		ap.SpaceScheme = "upwind-roe-1st"
	})
	for i := range s.Psi {
		s.Psi[i] = 0.01 * float64(i%7)
	}
	s.InviscidSensitivity()
	assert.False(t, math.IsNaN(s.TotalSensGeo))
	assert.False(t, math.IsNaN(s.SensMach))
	assert.False(t, math.IsNaN(s.SensAoA))
	assert.False(t, math.IsNaN(s.SensPress))
	assert.False(t, math.IsNaN(s.SensTemp))
}

// viscousCase marks the bottom of the square as a no-slip wall.
func viscousCase(t *testing.T) *Solver {
	t.Helper()
	VX := utils.NewVector(5, []float64{0, 1, 1, 0, 0.5})
	VY := utils.NewVector(5, []float64{0, 0, 1, 1, 0.5})
	EToV := utils.NewMatrix(4, 3, []float64{
		0, 1, 4,
		1, 2, 4,
		2, 3, 4,
		3, 0, 4,
	})
	bcEdges := map[string][][2]int{
		"noslip":   {{0, 1}},
		"farfield": {{1, 2}, {2, 3}, {3, 0}},
	}
	dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
	ap := &InputParameters.AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte("Minf: 0.8\nViscous: true")))
	ap.CFL = 2
	fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
	fsol := flow.NewFlowSolution(dm, fs, false)
	for i := range fsol.LamVisc {
		fsol.LamVisc[i] = 1e-3
	}
	s, err := NewSolver(dm, fsol, fs, ap, 0, NewExchanger(1))
	assert.NoError(t, err)
	return s
}

func TestViscousAdjFlux(t *testing.T) {
	// Zero velocity isolates the adjoint stress tensor: with unit viscous
	// density and gradPhi = [[1,0],[0,0]], eta_xx = 2 - 2/3 = 4/3 and
	// eta_yy = -2/3, so the x-momentum flux through the x-normal is 4/3.
	s := viscousCase(t)
	var (
		vel      = []float64{0, 0}
		gradPhi  = [][]float64{{1, 0}, {0, 0}}
		gradPsiE = []float64{3, 0}
		normal   = []float64{1, 0}
		res      = make([]float64, s.NVar)
	)
	s.viscousAdjFlux(vel, 1, 1, 1, 2, gradPhi, gradPsiE, normal, res)
	sigma5 := 2.0 * 3 // xiDens * dPsiE/dx
	assert.InDelta(t, -1/(s.FS.Gamma-1)*sigma5, res[0], 1e-12)
	assert.InDelta(t, 4.0/3.0, res[1], 1e-12)
	assert.InDelta(t, 0, res[2], 1e-12)
	assert.InDelta(t, sigma5, res[3], 1e-12)
}

func TestViscousSensitivity(t *testing.T) {
	s := viscousCase(t)
	for i := range s.Psi {
		s.Psi[i] = 0.02 * float64(i%5)
	}
	s.Flow.ComputePrimGradients(s.Mesh)
	s.ViscousSensitivity()
	walls := s.Mesh.MarkersOfKind(types.BC_NSWall)
	assert.Equal(t, 1, len(walls))
	for _, c := range s.CSensitivity[walls[0]] {
		assert.False(t, math.IsNaN(c))
	}
	assert.False(t, math.IsNaN(s.TotalSensGeo))

	// discrete mode carries the sensitivity through the linear system, the
	// continuous viscous terms are skipped
	sd := viscousCase(t)
	sd.Mode = Discrete
	before := append([]float64{}, sd.CSensitivity[walls[0]]...)
	sd.ViscousSensitivity()
	assert.Equal(t, before, sd.CSensitivity[walls[0]])
}

// A marker with fewer than three vertices has no arc to smooth over.
func TestSmoothSensitivityShortMarker(t *testing.T) {
	s := testCase(t, nil)
	walls := s.Mesh.MarkersOfKind(types.BC_EulerWall)
	im := walls[0]
	s.CSensitivity[im][0] = 1.5
	s.CSensitivity[im][1] = -0.5
	s.SmoothSensitivity()
	assert.Equal(t, 1.5, s.CSensitivity[im][0])
	assert.Equal(t, -0.5, s.CSensitivity[im][1])
}

// A constant surface sensitivity is a fixed point of the Sobolev smoother:
// the second difference of a constant vanishes.
func TestSmoothSensitivityConstantField(t *testing.T) {
	// two squares in a strip, three wall vertices along the bottom
	VX := utils.NewVector(6, []float64{0, 0.5, 1, 0, 0.5, 1})
	VY := utils.NewVector(6, []float64{0, 0, 0, 1, 1, 1})
	EToV := utils.NewMatrix(4, 3, []float64{
		0, 1, 4,
		0, 4, 3,
		1, 2, 5,
		1, 5, 4,
	})
	bcEdges := map[string][][2]int{
		"wall":     {{0, 1}, {1, 2}},
		"farfield": {{2, 5}, {5, 4}, {4, 3}, {3, 0}},
	}
	dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
	ap := &InputParameters.AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte("Minf: 0.8")))
	fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
	fsol := flow.NewFlowSolution(dm, fs, false)
	s, err := NewSolver(dm, fsol, fs, ap, 0, NewExchanger(1))
	assert.NoError(t, err)

	walls := s.Mesh.MarkersOfKind(types.BC_EulerWall)
	im := walls[0]
	assert.Equal(t, 3, len(s.CSensitivity[im]))
	for iv := range s.CSensitivity[im] {
		s.CSensitivity[im][iv] = 0.7
	}
	s.SmoothSensitivity()
	for iv := range s.CSensitivity[im] {
		assert.InDelta(t, 0.7, s.CSensitivity[im][iv], 1e-9)
	}
}
