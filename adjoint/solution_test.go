package adjoint

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/flow"
	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/utils"
)

// testCase builds a one-partition solver on the unit square, four triangles
// around a center point, wall on the bottom and far field elsewhere.
func testCase(t *testing.T, mutate func(ap *InputParameters.AdjointParameters)) *Solver {
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
		"wall":     {{0, 1}},
		"farfield": {{1, 2}, {2, 3}, {3, 0}},
	}
	dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
	ap := &InputParameters.AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte(`Title: "unit square"`)))
	ap.CFL = 2
	ap.Minf = 0.8
	if mutate != nil {
		mutate(ap)
	}
	fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
	fsol := flow.NewFlowSolution(dm, fs, ap.Incompressible)
	s, err := NewSolver(dm, fsol, fs, ap, 0, NewExchanger(1))
	assert.NoError(t, err)
	return s
}

func TestObjectiveSuffix(t *testing.T) {
	assert.Equal(t, "solution_adj_cd.dat", ObjectiveSuffix("solution_adj.dat", "drag"))
	assert.Equal(t, "solution_adj_cl.dat", ObjectiveSuffix("solution_adj.dat", "lift"))
	assert.Equal(t, "adj_cmz", ObjectiveSuffix("adj", "moment-z"))
	assert.Equal(t, "solution_adj_fwh.dat", ObjectiveSuffix("solution_adj.dat", "noise"))
	assert.Equal(t, "solution_adj.dat", ObjectiveSuffix("solution_adj.dat", "no-such-objective"))
}

func TestNewSolverDefaults(t *testing.T) {
	s := testCase(t, nil)
	assert.Equal(t, Continuous, s.Mode)
	assert.Equal(t, CenteredJST, s.Scheme)
	assert.Equal(t, ImplicitEuler, s.Time)
	assert.Equal(t, 4, s.NVar)
	assert.NotNil(t, s.Jacobian)
	assert.Nil(t, s.PsiTimeN)

	// the adjoint starts from the zero far-field state
	for _, psi := range s.Psi {
		assert.Equal(t, 0.0, psi)
	}
	assert.Equal(t, len(s.Mesh.Markers), len(s.CSensitivity))
	for im, marker := range s.Mesh.Markers {
		assert.Equal(t, len(marker.Vertices), len(s.CSensitivity[im]))
	}
}

func TestNewSolverModes(t *testing.T) {
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.AdjointMode = "discrete"
		ap.SpaceScheme = "upwind-roe-1st"
		ap.TimeIntegration = "explicit-euler"
	})
	assert.Equal(t, Discrete, s.Mode)
	assert.Equal(t, UpwindRoe1st, s.Scheme)
	assert.Equal(t, ExplicitEuler, s.Time)
	// discrete mode always carries the linearized system
	assert.NotNil(t, s.Jacobian)
}

func TestForceProjVector(t *testing.T) {
	s := testCase(t, nil) // drag objective, zero incidence
	cP := 1.0 / (0.5 * s.FS.RefDensity * s.FS.RefAreaCoeff * s.FS.RefVel2)
	wallPoints := []int{0, 1}
	for _, iPoint := range wallPoints {
		d := s.ForceProjAt(iPoint)
		assert.InDelta(t, cP, d[0], 1e-12)
		assert.InDelta(t, 0, d[1], 1e-12)
	}
	// interior points carry no projection
	assert.InDelta(t, 0, s.ForceProjAt(4)[0], 1e-12)

	sLift := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.Objective = "lift"
	})
	for _, iPoint := range wallPoints {
		d := sLift.ForceProjAt(iPoint)
		assert.InDelta(t, 0, d[0], 1e-12)
		assert.InDelta(t, cP, d[1], 1e-12)
	}

	// the aeroacoustic adjoint is forced through the wave coupling terms,
	// not the surface projection
	sNoise := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.Objective = "noise"
	})
	for _, iPoint := range wallPoints {
		d := sNoise.ForceProjAt(iPoint)
		assert.InDelta(t, 0, d[0], 1e-12)
		assert.InDelta(t, 0, d[1], 1e-12)
	}
}

func TestObjectivesInvalidIn2D(t *testing.T) {
	for _, objective := range []string{"sideforce", "moment-x", "moment-y", "thrust", "figure-of-merit"} {
		VX := utils.NewVector(5, []float64{0, 1, 1, 0, 0.5})
		VY := utils.NewVector(5, []float64{0, 0, 1, 1, 0.5})
		EToV := utils.NewMatrix(4, 3, []float64{0, 1, 4, 1, 2, 4, 2, 3, 4, 3, 0, 4})
		bcEdges := map[string][][2]int{"wall": {{0, 1}}, "farfield": {{1, 2}, {2, 3}, {3, 0}}}
		dm := geometry.NewDualMesh(VX, VY, EToV, bcEdges)
		ap := &InputParameters.AdjointParameters{}
		assert.NoError(t, ap.Parse([]byte("Minf: 0.8")))
		ap.Objective = objective
		fs := flow.NewFreeStream(dm.NDim, ap.Gamma, ap.Minf, ap.Alpha, ap.Beta, ap.Pinf, ap.Rhoinf)
		fsol := flow.NewFlowSolution(dm, fs, false)
		_, err := NewSolver(dm, fsol, fs, ap, 0, NewExchanger(1))
		assert.ErrorIs(t, err, ErrObjectiveInvalid2D, objective)
	}
}

func TestRestartRoundtrip(t *testing.T) {
	s := testCase(t, nil)
	for i := range s.Psi {
		s.Psi[i] = float64(i) * 0.01
	}
	fileName := filepath.Join(t.TempDir(), "solution_adj.dat")
	assert.NoError(t, s.WriteRestart(fileName))

	s2 := testCase(t, nil)
	assert.NoError(t, s2.readRestart(ObjectiveSuffix(fileName, "drag")))
	for i := range s.Psi {
		assert.InDelta(t, s.Psi[i], s2.Psi[i], 1e-14)
	}

	assert.ErrorIs(t, s2.readRestart(filepath.Join(t.TempDir(), "missing.dat")), ErrRestartMissing)
}

func TestIterateExplicitEuler(t *testing.T) {
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.TimeIntegration = "explicit-euler"
	})
	ek := newEdgeKernel(s.NDim, s.FS.Gamma)
	for iter := 0; iter < 3; iter++ {
		s.Iterate(ek)
	}
	assert.Equal(t, 3, s.ExtIter)
	for _, psi := range s.Psi {
		assert.False(t, math.IsNaN(psi))
	}
	for iVar := 0; iVar < s.NVar; iVar++ {
		assert.False(t, math.IsNaN(s.ResRMS[iVar]))
	}
}

func TestIterateRungeKutta(t *testing.T) {
	s := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.TimeIntegration = "runge-kutta"
	})
	ek := newEdgeKernel(s.NDim, s.FS.Gamma)
	s.Iterate(ek)
	for _, psi := range s.Psi {
		assert.False(t, math.IsNaN(psi))
	}
}

func TestIterateImplicitEuler(t *testing.T) {
	s := testCase(t, nil)
	ek := newEdgeKernel(s.NDim, s.FS.Gamma)
	for iter := 0; iter < 2; iter++ {
		s.Iterate(ek)
	}
	for _, psi := range s.Psi {
		assert.False(t, math.IsNaN(psi))
	}
}

func TestSetTimeStep(t *testing.T) {
	s := testCase(t, nil)
	s.SetTimeStep()
	for iPoint := 0; iPoint < s.NPoint; iPoint++ {
		assert.True(t, s.Delta[iPoint] > 0)
	}
	// global time stepping shares the smallest step
	for iPoint := 1; iPoint < s.NPoint; iPoint++ {
		assert.Equal(t, s.Delta[0], s.Delta[iPoint])
	}

	sLocal := testCase(t, func(ap *InputParameters.AdjointParameters) {
		ap.LocalTimeStepping = true
	})
	sLocal.SetTimeStep()
	for iPoint := 0; iPoint < sLocal.NPoint; iPoint++ {
		assert.True(t, sLocal.Delta[iPoint] > 0)
	}
}
