package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDefaults(t *testing.T) {
	ap := &AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte(`Title: "empty case"`)))
	assert.Equal(t, 1.4, ap.Gamma)
	assert.Equal(t, "drag", ap.Objective)
	assert.Equal(t, "continuous", ap.AdjointMode)
	assert.Equal(t, "centered-jst", ap.SpaceScheme)
	assert.Equal(t, "green-gauss", ap.GradientMethod)
	assert.Equal(t, "implicit-euler", ap.TimeIntegration)
	assert.Equal(t, "lu-sgs", ap.LinearSolver)
	assert.Equal(t, "jacobi", ap.Preconditioner)
	assert.Equal(t, "none", ap.DualTime)
	assert.Equal(t, "none", ap.SensSmoothing)
	assert.Equal(t, 0.72, ap.Prandtl)
	assert.Equal(t, 1000, ap.MaxIterations)
	assert.Equal(t, []float64{0.66667, 0.66667, 1.0}, ap.RKCoefficients)
	assert.Equal(t, "solution_flow.dat", ap.FlowFileName)
	assert.Equal(t, "solution_adj.dat", ap.AdjFileName)
	assert.Equal(t, [][]float64{{0, 0, 0}}, ap.PeriodicAngles)
}

func TestParseOverrides(t *testing.T) {
	input := `
Title: "NACA 0012 lift adjoint"
CFL: 4.
Minf: 0.8
Alpha: 1.25
Objective: lift
AdjointMode: discrete
SpaceScheme: upwind-roe-2nd
GradientMethod: weighted-least-squares
TimeIntegration: runge-kutta
MaxIterations: 250
Viscous: true
SensSmoothing: sobolev
BCs:
  Inlet:
    1:
      TotalPressure: 1.2
`
	ap := &AdjointParameters{}
	assert.NoError(t, ap.Parse([]byte(input)))
	assert.Equal(t, "lift", ap.Objective)
	assert.Equal(t, "discrete", ap.AdjointMode)
	assert.Equal(t, "upwind-roe-2nd", ap.SpaceScheme)
	assert.Equal(t, "weighted-least-squares", ap.GradientMethod)
	assert.Equal(t, "runge-kutta", ap.TimeIntegration)
	assert.Equal(t, 250, ap.MaxIterations)
	assert.True(t, ap.Viscous)
	assert.Equal(t, "sobolev", ap.SensSmoothing)
	assert.Equal(t, 1.2, ap.BCs["Inlet"][1]["TotalPressure"])
}

func TestParseBadInput(t *testing.T) {
	ap := &AdjointParameters{}
	assert.Error(t, ap.Parse([]byte("Title: [unclosed")))
}
