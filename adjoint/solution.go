package adjoint

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/goadjoint/InputParameters"
	"github.com/notargets/goadjoint/flow"
	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/utils"
)

type AdjointMode uint8

const (
	Continuous AdjointMode = iota
	Discrete
	Hybrid
)

type SpaceScheme uint8

const (
	CenteredJST SpaceScheme = iota
	UpwindRoe1st
	UpwindRoe2nd
)

type TimeScheme uint8

const (
	ExplicitEuler TimeScheme = iota
	RungeKutta
	ImplicitEuler
)

// Solver integrates the adjoint equations on the dual mesh, one instance
// per partition. All per-point state lives in contiguous buffers, nVar
// values per point, so views into them alias rather than copy.
type Solver struct {
	Mesh *geometry.DualMesh
	Flow *flow.FlowSolution
	FS   *flow.FreeStream
	IP   *InputParameters.AdjointParameters

	PartitionIndex int
	Exch           *Exchanger

	NDim, NVar           int
	NPoint, NPointDomain int

	Mode   AdjointMode
	Scheme SpaceScheme
	Time   TimeScheme

	// adjoint state and residuals, nPoint*nVar each
	Psi        []float64
	PsiOld     []float64
	ResConv    []float64
	ResVisc    []float64
	ResSour    []float64
	TruncError []float64

	// dual time stepping history
	PsiTimeN, PsiTimeN1 []float64

	// per-point work fields
	Delta     []float64 // local time step over volume
	Sensor    []float64
	UndivLapl []float64 // nPoint*nVar

	Gradient []float64 // nPoint*nVar*nDim
	Limiter  []float64 // nPoint*nVar
	SolMin   []float64 // nPoint*nVar, limiter support
	SolMax   []float64

	// force projection vector, nPointDomain*nDim, nonzero on solid walls
	ForceProj []float64
	// near-field interior boundary jump, nPointDomain*nVar
	IntBoundJump []float64
	// discrete-mode objective right hand side, nPoint*nVar
	ObjFuncSource []float64

	// externally injected volumetric couplings, nil unless the driver
	// provides them
	TimeSpectralSource []float64 // nPoint*nVar
	FreeSurfaceCoeff   []float64 // nPoint, levelset over density
	FreeSurfaceGrad    []float64 // nPoint*nDim, levelset adjoint gradient

	// surface sensitivities, one slice per marker index
	CSensitivity [][]float64
	SensGeo      []float64
	TotalSensGeo float64
	SensMach     float64
	SensAoA      float64
	SensPress    float64
	SensTemp     float64

	// implicit system
	Jacobian *utils.BlockSparse
	Prec     utils.Preconditioner
	LinSolX  []float64
	LinSolB  []float64

	ResRMS      []float64
	ResMax      []float64
	ResMaxPoint []int

	PsiInf []float64

	ExtIter int
}

// adjExt maps the objective to the restart file suffix, so that adjoint
// solutions of different objectives can coexist in one directory.
var adjExt = map[string]string{
	"drag":               "_cd",
	"lift":               "_cl",
	"sideforce":          "_csf",
	"pressure":           "_cp",
	"moment-x":           "_cmx",
	"moment-y":           "_cmy",
	"moment-z":           "_cmz",
	"force-x":            "_cfx",
	"force-y":            "_cfy",
	"force-z":            "_cfz",
	"efficiency":         "_eff",
	"eq-area":            "_ea",
	"nearfield-pressure": "_nfp",
	"thrust":             "_ct",
	"torque":             "_cq",
	"figure-of-merit":    "_merit",
	"free-surface":       "_fs",
	"heat-load":          "_q",
	"noise":              "_fwh",
}

// ObjectiveSuffix inserts the objective tag before the file extension:
// solution_adj.dat becomes solution_adj_cd.dat for the drag adjoint.
func ObjectiveSuffix(fileName, objective string) string {
	ext, ok := adjExt[objective]
	if !ok {
		return fileName
	}
	if ind := strings.LastIndex(fileName, "."); ind >= 0 {
		return fileName[:ind] + ext + fileName[ind:]
	}
	return fileName + ext
}

func NewSolver(dm *geometry.DualMesh, fsol *flow.FlowSolution, fs *flow.FreeStream,
	ip *InputParameters.AdjointParameters, partitionIndex int,
	exch *Exchanger) (s *Solver, err error) {
	var (
		nDim = dm.NDim
		nVar = nDim + 2
	)
	if ip.Incompressible {
		nVar = nDim + 1
	}
	s = &Solver{
		Mesh:           dm,
		Flow:           fsol,
		FS:             fs,
		IP:             ip,
		PartitionIndex: partitionIndex,
		Exch:           exch,
		NDim:           nDim,
		NVar:           nVar,
		NPoint:         dm.NPoint,
		NPointDomain:   dm.NPointDomain,
		Psi:            make([]float64, dm.NPoint*nVar),
		PsiOld:         make([]float64, dm.NPoint*nVar),
		ResConv:        make([]float64, dm.NPoint*nVar),
		ResVisc:        make([]float64, dm.NPoint*nVar),
		ResSour:        make([]float64, dm.NPoint*nVar),
		TruncError:     make([]float64, dm.NPoint*nVar),
		Delta:          make([]float64, dm.NPoint),
		Sensor:         make([]float64, dm.NPoint),
		UndivLapl:      make([]float64, dm.NPoint*nVar),
		Gradient:       make([]float64, dm.NPoint*nVar*nDim),
		Limiter:        make([]float64, dm.NPoint*nVar),
		SolMin:         make([]float64, dm.NPoint*nVar),
		SolMax:         make([]float64, dm.NPoint*nVar),
		ForceProj:      make([]float64, dm.NPointDomain*nDim),
		IntBoundJump:   make([]float64, dm.NPointDomain*nVar),
		ObjFuncSource:  make([]float64, dm.NPoint*nVar),
		ResRMS:         make([]float64, nVar),
		ResMax:         make([]float64, nVar),
		ResMaxPoint:    make([]int, nVar),
		PsiInf:         make([]float64, nVar),
	}
	switch ip.AdjointMode {
	case "discrete":
		s.Mode = Discrete
	case "hybrid":
		s.Mode = Hybrid
	default:
		s.Mode = Continuous
	}
	switch ip.SpaceScheme {
	case "upwind-roe-1st":
		s.Scheme = UpwindRoe1st
	case "upwind-roe-2nd":
		s.Scheme = UpwindRoe2nd
	default:
		s.Scheme = CenteredJST
	}
	switch ip.TimeIntegration {
	case "explicit-euler":
		s.Time = ExplicitEuler
	case "runge-kutta":
		s.Time = RungeKutta
	default:
		s.Time = ImplicitEuler
	}

	if ip.DualTime != "none" {
		s.PsiTimeN = make([]float64, dm.NPoint*nVar)
		s.PsiTimeN1 = make([]float64, dm.NPoint*nVar)
	}

	s.CSensitivity = make([][]float64, len(dm.Markers))
	s.SensGeo = make([]float64, len(dm.Markers))
	for im, marker := range dm.Markers {
		s.CSensitivity[im] = make([]float64, len(marker.Vertices))
	}

	// the far-field adjoint state is zero, objectives enter through
	// boundary terms only
	if ip.RestartAdjoint {
		if err = s.readRestart(ObjectiveSuffix(ip.AdjFileName, ip.Objective)); err != nil {
			return nil, err
		}
	} else {
		for i := 0; i < dm.NPoint; i++ {
			copy(s.Psi[i*nVar:(i+1)*nVar], s.PsiInf)
		}
	}

	if s.Time == ImplicitEuler || s.Mode != Continuous {
		addresses := dm.JacobianAddresses()
		s.Jacobian = utils.NewBlockSparse(dm.NPoint, dm.NPoint, nVar, nVar, addresses)
		s.LinSolX = make([]float64, dm.NPoint*nVar)
		s.LinSolB = make([]float64, dm.NPoint*nVar)
	}

	if err = s.SetForceProjVector(); err != nil {
		return nil, err
	}
	if ip.Objective == "eq-area" || ip.Objective == "nearfield-pressure" {
		if err = s.SetIntBoundaryJump(); err != nil {
			return nil, err
		}
	}
	return
}

// PsiAt returns the adjoint variables of iPoint as a view.
func (s *Solver) PsiAt(iPoint int) []float64 {
	return s.Psi[iPoint*s.NVar : (iPoint+1)*s.NVar]
}

func (s *Solver) PsiOldAt(iPoint int) []float64 {
	return s.PsiOld[iPoint*s.NVar : (iPoint+1)*s.NVar]
}

func (s *Solver) GradientAt(iPoint int) []float64 {
	return s.Gradient[iPoint*s.NVar*s.NDim : (iPoint+1)*s.NVar*s.NDim]
}

func (s *Solver) ForceProjAt(iPoint int) []float64 {
	return s.ForceProj[iPoint*s.NDim : (iPoint+1)*s.NDim]
}

func (s *Solver) SetSolutionOld() {
	copy(s.PsiOld, s.Psi)
}

// readRestart loads the adjoint state for owned points; halo points keep
// the free-stream adjoint until the first exchange.
func (s *Solver) readRestart(fileName string) (err error) {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRestartMissing, fileName)
	}
	defer file.Close()
	global2Local := make(map[int]int, s.NPointDomain)
	for i := 0; i < s.NPointDomain; i++ {
		global2Local[s.Mesh.Points[i].GlobalIndex] = i
	}
	for i := s.NPointDomain; i < s.NPoint; i++ {
		copy(s.Psi[i*s.NVar:(i+1)*s.NVar], s.PsiInf)
	}
	scanner := bufio.NewScanner(bufio.NewReader(file))
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		gi, convErr := strconv.Atoi(fields[0])
		if convErr != nil {
			if line == 1 {
				continue // header
			}
			return fmt.Errorf("adjoint restart %s line %d: %w", fileName, line, convErr)
		}
		iPoint, owned := global2Local[gi]
		if !owned {
			continue
		}
		if len(fields) < 1+s.NVar {
			return fmt.Errorf("adjoint restart %s: short record at line %d", fileName, line)
		}
		for iVar := 0; iVar < s.NVar; iVar++ {
			val, convErr := strconv.ParseFloat(fields[1+iVar], 64)
			if convErr != nil {
				return fmt.Errorf("adjoint restart %s line %d: %w", fileName, line, convErr)
			}
			s.Psi[iPoint*s.NVar+iVar] = val
		}
	}
	return scanner.Err()
}

// WriteRestart stores the owned adjoint state in the same record layout
// readRestart consumes.
func (s *Solver) WriteRestart(fileName string) (err error) {
	file, err := os.Create(ObjectiveSuffix(fileName, s.IP.Objective))
	if err != nil {
		return err
	}
	defer file.Close()
	w := bufio.NewWriter(file)
	defer w.Flush()
	for i := 0; i < s.NPointDomain; i++ {
		fmt.Fprintf(w, "%d", s.Mesh.Points[i].GlobalIndex)
		for iVar := 0; iVar < s.NVar; iVar++ {
			fmt.Fprintf(w, " %.15e", s.Psi[i*s.NVar+iVar])
		}
		fmt.Fprintln(w)
	}
	return
}
