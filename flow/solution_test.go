package flow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/utils"
)

func testMesh() *geometry.DualMesh {
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
	return geometry.NewDualMesh(VX, VY, EToV, bcEdges)
}

func TestFreeStream(t *testing.T) {
	fs := NewFreeStream(2, 1.4, 0.8, 0, 0, 1, 1.4)
	assert.InDelta(t, 1.0, fs.Cinf, 1e-12)
	assert.InDelta(t, 0.8, fs.Velocity[0], 1e-12)
	assert.InDelta(t, 0.0, fs.Velocity[1], 1e-12)
	assert.InDelta(t, 1.0, fs.Tinf, 1e-12)
	assert.InDelta(t, 1.4, fs.Uinf[0], 1e-12)
	assert.InDelta(t, 1.4*0.8, fs.Uinf[1], 1e-12)
	// rhoE = p/(gamma-1) + rho*v^2/2
	assert.InDelta(t, 2.5+0.5*1.4*0.64, fs.Uinf[3], 1e-12)
}

func TestFlowSolutionAccessors(t *testing.T) {
	dm := testMesh()
	fs := NewFreeStream(2, 1.4, 0.8, 0, 0, 1, 1.4)
	sol := NewFlowSolution(dm, fs, false)
	assert.Equal(t, 4, sol.NVar)
	for i := 0; i < dm.NPoint; i++ {
		assert.InDelta(t, 1.4, sol.Density(i), 1e-12)
		assert.InDelta(t, 0.8, sol.Velocity(i, 0), 1e-12)
		assert.InDelta(t, 0.64, sol.Velocity2(i), 1e-12)
		assert.InDelta(t, 1.0, sol.Pressure(i), 1e-12)
		assert.InDelta(t, 1.0, sol.SoundSpeed(i), 1e-12)
		assert.InDelta(t, 1.0, sol.Temperature(i), 1e-12)
		assert.InDelta(t, (fs.Uinf[3]+1)/1.4, sol.Enthalpy(i), 1e-12)
	}
}

func TestFlowSolutionIncompressible(t *testing.T) {
	dm := testMesh()
	fs := NewFreeStream(2, 1.4, 0.8, 0, 0, 1, 1.4)
	sol := NewFlowSolution(dm, fs, true)
	assert.Equal(t, 3, sol.NVar)
	for i := 0; i < dm.NPoint; i++ {
		assert.InDelta(t, 1.4, sol.Density(i), 1e-12)
		assert.InDelta(t, 1.0, sol.Pressure(i), 1e-12)
		assert.InDelta(t, 0.8, sol.Velocity(i, 0), 1e-12)
		assert.InDelta(t, fs.RefVel2, sol.BetaInc2[i], 1e-12)
	}
}

// A uniform state has zero primitive gradients; the boundary closure of the
// dual volumes guarantees the Green-Gauss sum cancels exactly.
func TestPrimGradientsUniformState(t *testing.T) {
	dm := testMesh()
	fs := NewFreeStream(2, 1.4, 0.8, 0, 0, 1, 1.4)
	sol := NewFlowSolution(dm, fs, false)
	sol.ComputePrimGradients(dm)
	for i := 0; i < dm.NPoint; i++ {
		for iVar := 0; iVar < dm.NDim+2; iVar++ {
			for d := 0; d < dm.NDim; d++ {
				assert.InDelta(t, 0, sol.PrimGradient(i, iVar, d), 1e-10)
			}
		}
	}
}

func TestReadRestart(t *testing.T) {
	dm := testMesh()
	fs := NewFreeStream(2, 1.4, 0.8, 0, 0, 1, 1.4)
	sol := NewFlowSolution(dm, fs, false)

	fileName := filepath.Join(t.TempDir(), "solution_flow.dat")
	content := `"PointID" "x" "y" "Density" "X-Momentum" "Y-Momentum" "Energy"
0 0.0 0.0 1.0 0.5 0.1 2.0
1 1.0 0.0 1.1 0.55 0.11 2.1
2 1.0 1.0 1.2 0.6 0.12 2.2
3 0.0 1.0 1.3 0.65 0.13 2.3
4 0.5 0.5 1.4 0.7 0.14 2.4
`
	assert.NoError(t, os.WriteFile(fileName, []byte(content), 0644))
	assert.NoError(t, sol.ReadRestart(fileName, dm))
	assert.InDelta(t, 1.0, sol.Density(0), 1e-12)
	assert.InDelta(t, 0.5, sol.Solution(0)[1], 1e-12)
	assert.InDelta(t, 2.4, sol.Solution(4)[3], 1e-12)

	assert.Error(t, sol.ReadRestart(filepath.Join(t.TempDir(), "missing.dat"), dm))
}
