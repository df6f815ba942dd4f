package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type AdjointParameters struct {
	Title          string  `yaml:"Title"`
	CFL            float64 `yaml:"CFL"`
	Gamma          float64 `yaml:"Gamma"`
	Minf           float64 `yaml:"Minf"`
	Alpha          float64 `yaml:"Alpha"`
	Beta           float64 `yaml:"Beta"`
	Pinf           float64 `yaml:"Pinf"`
	Rhoinf         float64 `yaml:"Rhoinf"`
	Objective      string  `yaml:"Objective"`   // drag, lift, sideforce, pressure, moment-x/y/z, force-x/y/z, efficiency, eq-area, nearfield-pressure, thrust, torque, figure-of-merit, free-surface, heat-load
	AdjointMode    string  `yaml:"AdjointMode"` // continuous, discrete, hybrid
	Viscous        bool    `yaml:"Viscous"`
	Incompressible bool    `yaml:"Incompressible"`
	Axisymmetric   bool    `yaml:"Axisymmetric"`
	RotatingFrame  bool    `yaml:"RotatingFrame"`
	GridMovement   bool    `yaml:"GridMovement"`

	SpaceScheme    string  `yaml:"SpaceScheme"`    // centered-jst, upwind-roe-1st, upwind-roe-2nd
	GradientMethod string  `yaml:"GradientMethod"` // green-gauss, weighted-least-squares
	Limiter        string  `yaml:"Limiter"`        // none, minmod, venkatakrishnan
	LimiterCoeff   float64 `yaml:"LimiterCoeff"`
	Kappa2nd       float64 `yaml:"Kappa2nd"` // JST 2nd difference coefficient
	Kappa4th       float64 `yaml:"Kappa4th"` // JST 4th difference coefficient

	TimeIntegration   string    `yaml:"TimeIntegration"` // explicit-euler, runge-kutta, implicit-euler
	RKCoefficients    []float64 `yaml:"RKCoefficients"`
	LinearSolver      string    `yaml:"LinearSolver"`   // sgs, lu-sgs, bcgstab, gmres
	Preconditioner    string    `yaml:"Preconditioner"` // identity, jacobi, linelet
	LinearTol         float64   `yaml:"LinearTol"`
	LinearMaxIter     int       `yaml:"LinearMaxIter"`
	MaxIterations     int       `yaml:"MaxIterations"`
	LocalTimeStepping bool      `yaml:"LocalTimeStep"`

	DualTime      string  `yaml:"DualTime"` // none, 1st-order, 2nd-order
	TimeStep      float64 `yaml:"TimeStep"`
	TimeSpectral  bool    `yaml:"TimeSpectral"`
	TimeInstances int     `yaml:"TimeInstances"`

	RestartFlow    bool   `yaml:"RestartFlow"`
	RestartAdjoint bool   `yaml:"RestartAdjoint"`
	FlowFileName   string `yaml:"FlowFileName"`
	AdjFileName    string `yaml:"AdjFileName"`
	WeightFileName string `yaml:"WeightFileName"` // near-field weights

	SensSmoothing string  `yaml:"SensSmoothing"` // none, sobolev
	Prandtl       float64 `yaml:"Prandtl"`
	WeightCd      float64 `yaml:"WeightCd"` // drag penalty weight for the inverse design objectives

	RefOriginMoment []float64 `yaml:"RefOriginMoment"`
	RefArea         float64   `yaml:"RefArea"`
	RefLength       float64   `yaml:"RefLength"`
	RotationOrigin  []float64 `yaml:"RotationOrigin"`
	RotationOmega   []float64 `yaml:"RotationOmega"`
	// PeriodicAngles holds the (theta, phi, psi) rotation per periodic
	// transform index, index 0 being the identity
	PeriodicAngles [][]float64 `yaml:"PeriodicAngles"`

	BCs map[string]map[int]map[string]float64 `yaml:"BCs"` // First key is BC name/type, second is parameter name
}

func (ap *AdjointParameters) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ap); err != nil {
		return err
	}
	ap.setDefaults()
	return nil
}

func (ap *AdjointParameters) setDefaults() {
	if ap.Gamma == 0 {
		ap.Gamma = 1.4
	}
	if ap.Pinf == 0 {
		ap.Pinf = 1
	}
	if ap.Rhoinf == 0 {
		ap.Rhoinf = 1.4
	}
	if ap.Objective == "" {
		ap.Objective = "drag"
	}
	if ap.AdjointMode == "" {
		ap.AdjointMode = "continuous"
	}
	if ap.SpaceScheme == "" {
		ap.SpaceScheme = "centered-jst"
	}
	if ap.GradientMethod == "" {
		ap.GradientMethod = "green-gauss"
	}
	if ap.LimiterCoeff == 0 {
		ap.LimiterCoeff = 0.3
	}
	if ap.Kappa2nd == 0 {
		ap.Kappa2nd = 0.5
	}
	if ap.Kappa4th == 0 {
		ap.Kappa4th = 0.02
	}
	if ap.TimeIntegration == "" {
		ap.TimeIntegration = "implicit-euler"
	}
	if len(ap.RKCoefficients) == 0 {
		ap.RKCoefficients = []float64{0.66667, 0.66667, 1.0}
	}
	if ap.LinearSolver == "" {
		ap.LinearSolver = "lu-sgs"
	}
	if ap.Preconditioner == "" {
		ap.Preconditioner = "jacobi"
	}
	if ap.LinearTol == 0 {
		ap.LinearTol = 1.e-5
	}
	if ap.LinearMaxIter == 0 {
		ap.LinearMaxIter = 10
	}
	if ap.MaxIterations == 0 {
		ap.MaxIterations = 1000
	}
	if ap.DualTime == "" {
		ap.DualTime = "none"
	}
	if ap.TimeInstances == 0 {
		ap.TimeInstances = 1
	}
	if ap.FlowFileName == "" {
		ap.FlowFileName = "solution_flow.dat"
	}
	if ap.AdjFileName == "" {
		ap.AdjFileName = "solution_adj.dat"
	}
	if ap.WeightFileName == "" {
		ap.WeightFileName = "WeightNF.dat"
	}
	if ap.SensSmoothing == "" {
		ap.SensSmoothing = "none"
	}
	if ap.Prandtl == 0 {
		ap.Prandtl = 0.72
	}
	if ap.RefArea == 0 {
		ap.RefArea = 1
	}
	if ap.RefLength == 0 {
		ap.RefLength = 1
	}
	if len(ap.PeriodicAngles) == 0 {
		ap.PeriodicAngles = [][]float64{{0, 0, 0}}
	}
}

func (ap *AdjointParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ap.Title)
	fmt.Printf("%8.5f\t\t= CFL\n", ap.CFL)
	fmt.Printf("%8.5f\t\t= Minf\n", ap.Minf)
	fmt.Printf("%8.5f\t\t= Alpha\n", ap.Alpha)
	fmt.Printf("[%s]\t\t\t= Objective\n", ap.Objective)
	fmt.Printf("[%s]\t\t\t= Adjoint Mode\n", ap.AdjointMode)
	fmt.Printf("[%s]\t\t\t= Space Scheme\n", ap.SpaceScheme)
	fmt.Printf("[%s]\t\t\t= Time Integration\n", ap.TimeIntegration)
	fmt.Printf("[%s]\t\t\t= Linear Solver\n", ap.LinearSolver)
	keys := make([]string, len(ap.BCs))
	i := 0
	for k := range ap.BCs {
		keys[i] = k
		i++
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%s] = %v\n", key, ap.BCs[key])
	}
}
