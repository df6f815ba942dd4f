package adjoint

import (
	"math"

	"github.com/notargets/goadjoint/utils"
)

// SetTimeStep fills the local pseudo time step from the inviscid spectral
// radius of the frozen flow, accumulated over the dual faces of each
// point. With global time stepping every owned point gets the smallest
// step of the partition.
func (s *Solver) SetTimeStep() {
	var (
		nDim   = s.NDim
		lambda = make([]float64, s.NPoint)
		rotI   = make([]float64, nDim)
		rotJ   = make([]float64, nDim)
	)
	for _, edge := range s.Mesh.Edges {
		i, j := edge.Nodes[0], edge.Nodes[1]
		var area, projVel float64
		for iDim := 0; iDim < nDim; iDim++ {
			area += edge.Normal[iDim] * edge.Normal[iDim]
			projVel += 0.5 * (s.Flow.Velocity(i, iDim) + s.Flow.Velocity(j, iDim)) * edge.Normal[iDim]
		}
		area = math.Sqrt(area)
		if s.IP.RotatingFrame {
			s.rotVel(i, rotI)
			s.rotVel(j, rotJ)
			for iDim := 0; iDim < nDim; iDim++ {
				projVel -= 0.5 * (rotI[iDim] + rotJ[iDim]) * edge.Normal[iDim]
			}
		}
		meanC := 0.5 * (s.Flow.SoundSpeed(i) + s.Flow.SoundSpeed(j))
		l := math.Abs(projVel) + meanC*area
		lambda[i] += l
		lambda[j] += l
	}
	for _, marker := range s.Mesh.Markers {
		if marker.SendRecv != 0 {
			continue
		}
		for _, vtx := range marker.Vertices {
			iPoint := vtx.Node
			var area, projVel float64
			for iDim := 0; iDim < nDim; iDim++ {
				area += vtx.Normal[iDim] * vtx.Normal[iDim]
				projVel += s.Flow.Velocity(iPoint, iDim) * vtx.Normal[iDim]
			}
			area = math.Sqrt(area)
			if s.IP.RotatingFrame {
				projVel -= s.rotFlux(iPoint, vtx.Normal)
			}
			lambda[iPoint] += math.Abs(projVel) + s.Flow.SoundSpeed(iPoint)*area
		}
	}

	minDelta := math.MaxFloat64
	for iPoint := 0; iPoint < s.NPoint; iPoint++ {
		vol := s.Mesh.Points[iPoint].Volume
		s.Delta[iPoint] = s.IP.CFL * vol / (lambda[iPoint] + utils.EPS)
		if iPoint < s.NPointDomain && s.Delta[iPoint] < minDelta {
			minDelta = s.Delta[iPoint]
		}
	}
	if !s.IP.LocalTimeStepping {
		for iPoint := 0; iPoint < s.NPoint; iPoint++ {
			s.Delta[iPoint] = minDelta
		}
	}
}

func (s *Solver) clearResidualNorms() {
	for iVar := 0; iVar < s.NVar; iVar++ {
		s.ResRMS[iVar] = 0
		s.ResMax[iVar] = 0
		s.ResMaxPoint[iVar] = 0
	}
}

func (s *Solver) accumulateResidualNorms(iPoint, iVar int, res float64) {
	s.ResRMS[iVar] += res * res
	if a := math.Abs(res); a > s.ResMax[iVar] {
		s.ResMax[iVar] = a
		s.ResMaxPoint[iVar] = s.Mesh.Points[iPoint].GlobalIndex
	}
}

// SetResidualRMS converts the accumulated squares into root mean square
// norms over the owned points.
func (s *Solver) SetResidualRMS() {
	for iVar := 0; iVar < s.NVar; iVar++ {
		s.ResRMS[iVar] = math.Sqrt(s.ResRMS[iVar] / float64(s.NPointDomain))
	}
}

// ExplicitRKIteration advances one Runge-Kutta stage, scaling the
// accumulated residual by the stage coefficient.
func (s *Solver) ExplicitRKIteration(iRKStep int) {
	var (
		nVar  = s.NVar
		alpha = s.IP.RKCoefficients[iRKStep]
	)
	s.clearResidualNorms()
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		var (
			vol   = s.Mesh.Points[iPoint].Volume
			delta = s.Delta[iPoint] / vol
		)
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			res := s.ResConv[idx] + s.ResVisc[idx] + s.ResSour[idx] + s.TruncError[idx]
			s.Psi[idx] -= res * delta * alpha
			s.accumulateResidualNorms(iPoint, iVar, res)
		}
	}
	s.ExchangeSolution()
	s.SetResidualRMS()
}

// ExplicitEulerIteration advances the adjoint one forward Euler step.
func (s *Solver) ExplicitEulerIteration() {
	nVar := s.NVar
	s.clearResidualNorms()
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		var (
			vol   = s.Mesh.Points[iPoint].Volume
			delta = s.Delta[iPoint] / vol
		)
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			res := s.ResConv[idx] + s.ResVisc[idx] + s.ResSour[idx] + s.TruncError[idx]
			s.Psi[idx] -= res * delta
			s.accumulateResidualNorms(iPoint, iVar, res)
		}
	}
	s.ExchangeSolution()
	s.SetResidualRMS()
}

// solveSystem dispatches the configured linear solver on the implicit
// matrix. The returned solution lands in x.
func (s *Solver) solveSystem(b, x []float64) (res float64, iters int) {
	var (
		tol     = s.IP.LinearTol
		maxIter = s.IP.LinearMaxIter
	)
	switch s.IP.LinearSolver {
	case "sgs":
		return s.Jacobian.SGS(b, x, tol, maxIter)
	case "lu-sgs":
		return s.Jacobian.LUSGS(b, x, tol, maxIter)
	case "bcgstab":
		return s.Jacobian.BCGSTAB(b, x, tol, maxIter, s.preconditioner())
	default:
		return s.Jacobian.GMRES(b, x, tol, maxIter, s.preconditioner())
	}
}

func (s *Solver) preconditioner() utils.Preconditioner {
	if s.Prec != nil {
		return s.Prec
	}
	switch s.IP.Preconditioner {
	case "identity":
		s.Prec = utils.IdentityPrec{}
	case "linelet":
		s.Prec = utils.NewLineletPrec(s.Jacobian, s.Mesh.Linelets())
	default:
		s.Prec = utils.NewBlockJacobiPrec(s.Jacobian)
	}
	return s.Prec
}

// ImplicitEulerIteration assembles and solves the backward Euler system
// and applies the increment. The pseudo time term keeps the matrix
// diagonally dominant; halo rows carry a zero right hand side.
func (s *Solver) ImplicitEulerIteration() {
	nVar := s.NVar
	s.clearResidualNorms()
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		var (
			vol   = s.Mesh.Points[iPoint].Volume
			delta = vol / (s.Delta[iPoint] + utils.EPS)
		)
		s.Jacobian.AddToDiag(iPoint, delta)
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			res := s.ResConv[idx] + s.ResVisc[idx] + s.ResSour[idx] + s.TruncError[idx]
			s.LinSolB[idx] = -res
			s.LinSolX[idx] = 0
			s.accumulateResidualNorms(iPoint, iVar, res)
		}
	}
	for iPoint := s.NPointDomain; iPoint < s.NPoint; iPoint++ {
		s.Jacobian.AddToDiag(iPoint, 1)
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			s.LinSolB[idx] = 0
			s.LinSolX[idx] = 0
		}
	}
	s.Prec = nil
	s.solveSystem(s.LinSolB, s.LinSolX)

	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			s.Psi[idx] += s.LinSolX[idx]
		}
	}
	s.ExchangeSolution()
	s.SetResidualRMS()
}

// SolveLinearSystem is the discrete adjoint update: one solve of the
// transposed flow Jacobian against the objective source, replacing the
// adjoint state rather than incrementing it.
func (s *Solver) SolveLinearSystem() {
	nVar := s.NVar
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			s.LinSolB[idx] = s.ObjFuncSource[idx]
			s.LinSolX[idx] = 0
		}
	}
	for iPoint := s.NPointDomain; iPoint < s.NPoint; iPoint++ {
		s.Jacobian.AddToDiag(iPoint, 1)
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			s.LinSolB[idx] = 0
			s.LinSolX[idx] = 0
		}
	}
	s.Prec = nil
	s.solveSystem(s.LinSolB, s.LinSolX)
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			s.Psi[idx] = s.LinSolX[idx]
		}
	}
	s.ExchangeSolution()
}

// SetResidualDualTime adds the physical time derivative of the dual time
// stepping scheme, first or second order backward differences over the
// stored time levels.
func (s *Solver) SetResidualDualTime() {
	var (
		nVar     = s.NVar
		implicit = s.Time == ImplicitEuler
		timeStep = s.IP.TimeStep
		secOrder = s.IP.DualTime == "2nd-order"
		jac      = newSquare(nVar)
	)
	for iPoint := 0; iPoint < s.NPointDomain; iPoint++ {
		vol := s.Mesh.Points[iPoint].Volume
		for iVar := 0; iVar < nVar; iVar++ {
			idx := iPoint*nVar + iVar
			var res float64
			if secOrder {
				res = (3*s.Psi[idx]*vol - 4*s.PsiTimeN[idx]*vol + s.PsiTimeN1[idx]*vol) / (2 * timeStep)
			} else {
				res = (s.Psi[idx] - s.PsiTimeN[idx]) * vol / timeStep
			}
			if s.IP.Incompressible && iVar == 0 {
				res = 0
			}
			s.ResConv[idx] += res
		}
		if implicit {
			zeroSquare(jac)
			diag := vol / timeStep
			if secOrder {
				diag = 3 * vol / (2 * timeStep)
			}
			for iVar := 0; iVar < nVar; iVar++ {
				jac[iVar][iVar] = diag
			}
			if s.IP.Incompressible {
				jac[0][0] = 0
			}
			s.Jacobian.AddBlock(iPoint, iPoint, flatten(jac))
		}
	}
}

// PushTimeLevels shifts the dual time history after a converged inner
// iteration.
func (s *Solver) PushTimeLevels() {
	if s.PsiTimeN == nil {
		return
	}
	copy(s.PsiTimeN1, s.PsiTimeN)
	copy(s.PsiTimeN, s.Psi)
}
