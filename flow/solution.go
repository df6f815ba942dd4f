package flow

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/goadjoint/geometry"
	"github.com/notargets/goadjoint/utils"
)

// FlowSolution is the frozen direct solution the adjoint equations are
// linearized about. Conservative variables live in one contiguous buffer,
// nVar per point; primitive gradients in another, laid out
// [point][primVar][dim] with primVar 0 = temperature, 1..nDim = velocity,
// nDim+1 = pressure.
type FlowSolution struct {
	NDim, NVar, NPoint int
	Gamma, GasConstant float64
	Incompressible     bool

	U        []float64 // nPoint * nVar
	PrimGrad []float64 // nPoint * (nDim+2) * nDim

	LamVisc  []float64
	EddyVisc []float64

	// incompressible only
	DensityInc []float64
	BetaInc2   []float64
}

func NewFlowSolution(dm *geometry.DualMesh, fs *FreeStream, incompressible bool) (sol *FlowSolution) {
	var (
		nDim = dm.NDim
		nVar = nDim + 2
	)
	if incompressible {
		nVar = nDim + 1
	}
	sol = &FlowSolution{
		NDim:           nDim,
		NVar:           nVar,
		NPoint:         dm.NPoint,
		Gamma:          fs.Gamma,
		GasConstant:    fs.GasConstant,
		Incompressible: incompressible,
		U:              make([]float64, dm.NPoint*nVar),
		PrimGrad:       make([]float64, dm.NPoint*(nDim+2)*nDim),
		LamVisc:        make([]float64, dm.NPoint),
		EddyVisc:       make([]float64, dm.NPoint),
	}
	if incompressible {
		sol.DensityInc = make([]float64, dm.NPoint)
		sol.BetaInc2 = make([]float64, dm.NPoint)
		for i := 0; i < dm.NPoint; i++ {
			sol.DensityInc[i] = fs.Rhoinf
			sol.BetaInc2[i] = fs.RefVel2
			sol.U[i*nVar] = fs.Pinf
			for d := 0; d < nDim; d++ {
				sol.U[i*nVar+d+1] = fs.Rhoinf * fs.Velocity[d]
			}
		}
		return
	}
	for i := 0; i < dm.NPoint; i++ {
		copy(sol.U[i*nVar:(i+1)*nVar], fs.Uinf)
	}
	return
}

func (sol *FlowSolution) Solution(iPoint int) []float64 {
	return sol.U[iPoint*sol.NVar : (iPoint+1)*sol.NVar]
}

func (sol *FlowSolution) Density(iPoint int) float64 {
	if sol.Incompressible {
		return sol.DensityInc[iPoint]
	}
	return sol.U[iPoint*sol.NVar]
}

func (sol *FlowSolution) Velocity(iPoint, iDim int) float64 {
	if sol.Incompressible {
		return sol.U[iPoint*sol.NVar+iDim+1] / sol.DensityInc[iPoint]
	}
	return sol.U[iPoint*sol.NVar+iDim+1] / sol.U[iPoint*sol.NVar]
}

func (sol *FlowSolution) Velocity2(iPoint int) (v2 float64) {
	for d := 0; d < sol.NDim; d++ {
		v := sol.Velocity(iPoint, d)
		v2 += v * v
	}
	return
}

func (sol *FlowSolution) Pressure(iPoint int) float64 {
	if sol.Incompressible {
		return sol.U[iPoint*sol.NVar]
	}
	var (
		u    = sol.Solution(iPoint)
		rho  = u[0]
		rhoE = u[sol.NVar-1]
	)
	return (sol.Gamma - 1) * (rhoE - 0.5*rho*sol.Velocity2(iPoint))
}

func (sol *FlowSolution) SoundSpeed(iPoint int) float64 {
	if sol.Incompressible {
		return math.Sqrt(sol.BetaInc2[iPoint])
	}
	return math.Sqrt(sol.Gamma * sol.Pressure(iPoint) / sol.Density(iPoint))
}

func (sol *FlowSolution) Enthalpy(iPoint int) float64 {
	u := sol.Solution(iPoint)
	return (u[sol.NVar-1] + sol.Pressure(iPoint)) / u[0]
}

func (sol *FlowSolution) Temperature(iPoint int) float64 {
	return sol.Pressure(iPoint) / (sol.GasConstant * sol.Density(iPoint))
}

// PrimGradient returns the gradient of primitive variable iVar at iPoint.
func (sol *FlowSolution) PrimGradient(iPoint, iVar, iDim int) float64 {
	nPrim := sol.NDim + 2
	return sol.PrimGrad[(iPoint*nPrim+iVar)*sol.NDim+iDim]
}

func (sol *FlowSolution) primitive(iPoint, iVar int) float64 {
	switch {
	case iVar == 0:
		return sol.Temperature(iPoint)
	case iVar <= sol.NDim:
		return sol.Velocity(iPoint, iVar-1)
	default:
		return sol.Pressure(iPoint)
	}
}

// ComputePrimGradients builds Green-Gauss gradients of the primitive
// variables over the dual control volumes. The wall sensitivity terms of
// the viscous adjoint consume these.
func (sol *FlowSolution) ComputePrimGradients(dm *geometry.DualMesh) {
	var (
		nDim  = sol.NDim
		nPrim = nDim + 2
	)
	for i := range sol.PrimGrad {
		sol.PrimGrad[i] = 0
	}
	for _, edge := range dm.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		for iVar := 0; iVar < nPrim; iVar++ {
			mean := 0.5 * (sol.primitive(i, iVar) + sol.primitive(j, iVar))
			for d := 0; d < nDim; d++ {
				flux := mean * edge.Normal[d]
				sol.PrimGrad[(i*nPrim+iVar)*nDim+d] += flux
				sol.PrimGrad[(j*nPrim+iVar)*nDim+d] -= flux
			}
		}
	}
	for _, marker := range dm.Markers {
		if marker.SendRecv != 0 {
			continue
		}
		for _, vtx := range marker.Vertices {
			i := vtx.Node
			for iVar := 0; iVar < nPrim; iVar++ {
				val := sol.primitive(i, iVar)
				// vertex normals point out of the domain
				for d := 0; d < nDim; d++ {
					sol.PrimGrad[(i*nPrim+iVar)*nDim+d] += val * vtx.Normal[d]
				}
			}
		}
	}
	for i := 0; i < sol.NPoint; i++ {
		vol := dm.Points[i].Volume + utils.EPS
		for k := 0; k < nPrim*nDim; k++ {
			sol.PrimGrad[i*nPrim*nDim+k] /= vol
		}
	}
}

// ReadRestart loads a direct solution written one point per line,
// "globalIndex coords... vars...". Points not owned by this partition keep
// their free-stream values.
func (sol *FlowSolution) ReadRestart(fileName string, dm *geometry.DualMesh) (err error) {
	file, err := os.Open(fileName)
	if err != nil {
		return fmt.Errorf("unable to open flow restart file %s: %w", fileName, err)
	}
	defer file.Close()
	global2Local := make(map[int]int, dm.NPointDomain)
	for i := 0; i < dm.NPointDomain; i++ {
		global2Local[dm.Points[i].GlobalIndex] = i
	}
	reader := bufio.NewReader(file)
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || line == 1 && !isNumeric(fields[0]) {
			continue // header
		}
		if len(fields) < 1+sol.NDim+sol.NVar {
			return fmt.Errorf("flow restart file %s: short record at line %d", fileName, line)
		}
		gi, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("flow restart file %s line %d: %w", fileName, line, err)
		}
		iPoint, owned := global2Local[gi]
		if !owned {
			continue
		}
		for iVar := 0; iVar < sol.NVar; iVar++ {
			val, err := strconv.ParseFloat(fields[1+sol.NDim+iVar], 64)
			if err != nil {
				return fmt.Errorf("flow restart file %s line %d: %w", fileName, line, err)
			}
			sol.U[iPoint*sol.NVar+iVar] = val
		}
	}
	return scanner.Err()
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
