package adjoint

import (
	"github.com/notargets/goadjoint/utils"
)

// BCInterface matches the adjoint across the two sides of an interior
// interface by upwinding against the donor point state. The residual is
// treated explicitly on both sides, so no Jacobian contribution is added.
func (s *Solver) BCInterface(ek *edgeKernel, iMarker int) {
	var (
		nDim   = s.NDim
		nVar   = s.NVar
		normal = make([]float64, nDim)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		jPoint := vertex.DonorPoint
		copy(normal, vertex.Normal)

		s.upwindRoeStates(ek, s.Flow.Solution(iPoint), s.Flow.Solution(jPoint),
			s.PsiAt(iPoint), s.PsiAt(jPoint), normal, false)
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
	}
}

// BCNearField couples the two rows of points straddling the near-field
// boundary. For the boom-shaped objectives the donor adjoint is reflected
// through the interface mean and shifted by the prescribed jump, with
// opposite sign on the inner and outer sides. Any other objective reduces
// it to a periodic matching.
func (s *Solver) BCNearField(ek *edgeKernel, iMarker int) {
	var (
		nDim     = s.NDim
		nVar     = s.NVar
		jumpObj  = s.IP.Objective == "eq-area" || s.IP.Objective == "nearfield-pressure"
		normal   = make([]float64, nDim)
		psiGhost = make([]float64, nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		jPoint := vertex.DonorPoint
		copy(normal, vertex.Normal)

		psiI := s.PsiAt(iPoint)
		psiJ := s.PsiAt(jPoint)

		if jumpObj {
			// the inner point sits below the boundary
			pin := iPoint
			if normal[nDim-1] >= 0 {
				pin = jPoint
			}
			jump := s.IntBoundJump[iPoint*nVar : (iPoint+1)*nVar]
			if iPoint == pin {
				for iVar := 0; iVar < nVar; iVar++ {
					psiGhost[iVar] = psiJ[iVar] - jump[iVar]
				}
			} else {
				for iVar := 0; iVar < nVar; iVar++ {
					psiGhost[iVar] = psiJ[iVar] + jump[iVar]
				}
			}
			s.upwindRoeStates(ek, s.Flow.Solution(iPoint), s.Flow.Solution(jPoint),
				psiI, psiGhost, normal, false)
		} else {
			s.upwindRoeStates(ek, s.Flow.Solution(iPoint), s.Flow.Solution(jPoint),
				psiI, psiJ, normal, false)
		}
		subtractVec(s.ResConv[iPoint*nVar:(iPoint+1)*nVar], ek.ResConvI)
	}
}

// BCFWH imposes the adjoint state computed by the aeroacoustic coupling as
// a Dirichlet condition on the integration surface.
func (s *Solver) BCFWH(iMarker int) {
	var (
		nVar     = s.NVar
		implicit = s.Time == ImplicitEuler
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if iPoint < s.NPointDomain {
			jump := s.IntBoundJump[iPoint*nVar : (iPoint+1)*nVar]
			copy(s.Psi[iPoint*nVar:(iPoint+1)*nVar], jump)
			copy(s.PsiOld[iPoint*nVar:(iPoint+1)*nVar], jump)
		}
		zeroVec(s.ResConv[iPoint*nVar : (iPoint+1)*nVar])
		zeroVec(s.ResVisc[iPoint*nVar : (iPoint+1)*nVar])
		zeroVec(s.ResSour[iPoint*nVar : (iPoint+1)*nVar])
		zeroVec(s.TruncError[iPoint*nVar : (iPoint+1)*nVar])
		if implicit {
			for iVar := 0; iVar < nVar; iVar++ {
				s.Jacobian.DeleteRow(iPoint, iVar)
			}
		}
	}
}

// SetAeroacousticCoupling solves a small linear system at every point of
// the acoustic integration surface to convert the wave adjoint potential
// into flow adjoint variables. wavePotential holds the wave solution per
// mesh point, flowOld the flow conservative state at the previous physical
// time step, and deltaT the physical time increment. The result is stored
// as the boundary jump consumed by BCFWH.
func (s *Solver) SetAeroacousticCoupling(iMarker int, wavePotential, flowOld []float64, deltaT float64) {
	var (
		nDim  = s.NDim
		nVar  = s.NVar
		gamma = s.FS.Gamma
		gm1   = gamma - 1
	)
	if nDim != 2 {
		return
	}
	var (
		normal = make([]float64, nDim)
		vel    = make([]float64, nDim)
		a      = newSquare(nVar)
		m      = newSquare(nVar)
		am     = newSquare(nVar)
		b      = make([]float64, nVar)
	)
	for _, vertex := range s.Mesh.Markers[iMarker].Vertices {
		iPoint := vertex.Node
		if !s.Mesh.Points[iPoint].Domain {
			continue
		}
		copy(normal, vertex.Normal)

		var (
			u     = s.Flow.Solution(iPoint)
			uOld  = flowOld[iPoint*nVar : (iPoint+1)*nVar]
			rho   = u[0]
			sqVel float64
		)
		for iDim := 0; iDim < nDim; iDim++ {
			vel[iDim] = u[iDim+1] / rho
			sqVel += vel[iDim] * vel[iDim]
		}
		e := u[nVar-1] / rho

		inviscidProjJac(nDim, gamma, vel, e, normal, 1.0, a)

		// M = dU/dV, conservative from primitive
		zeroSquare(m)
		m[0][0] = 1
		for iDim := 0; iDim < nDim; iDim++ {
			m[iDim+1][0] = vel[iDim]
			m[iDim+1][iDim+1] = rho
			m[nVar-1][iDim+1] = rho * vel[iDim]
		}
		m[nVar-1][0] = 0.5 * sqVel
		m[nVar-1][nVar-1] = 1 / gm1

		// (A M)^T since the system is adjoint to the primitive one
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				var sum float64
				for kVar := 0; kVar < nVar; kVar++ {
					sum += a[iVar][kVar] * m[kVar][jVar]
				}
				am[iVar][jVar] = sum
			}
		}
		for iVar := 0; iVar < nVar; iVar++ {
			for jVar := 0; jVar < nVar; jVar++ {
				a[iVar][jVar] = am[jVar][iVar]
			}
		}

		// right hand side carries the surface time derivative of the flow
		// weighted by the wave potential
		phi := wavePotential[iPoint]
		b[0] = 0
		for iDim := 0; iDim < nDim; iDim++ {
			b[0] += phi * (u[iDim+1]/rho - uOld[iDim+1]/uOld[0]) * normal[iDim] / deltaT
			b[iDim+1] = phi * (rho - uOld[0]) * normal[iDim] / deltaT
		}
		b[nVar-1] = 0

		utils.GaussElimination(a, b)
		copy(s.IntBoundJump[iPoint*nVar:(iPoint+1)*nVar], b)
	}
}

func zeroVec(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
